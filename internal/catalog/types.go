// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"time"
)

// Visibility controls which read paths expose a video.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// IsPublic reports whether v is public. The empty value counts as public.
func (v Visibility) IsPublic() bool {
	return v == "" || v == VisibilityPublic
}

// Valid reports whether v is one of the known values or empty.
func (v Visibility) Valid() bool {
	switch v {
	case "", VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return true
	}
	return false
}

const (
	// SystemChannelID owns every static asset.
	SystemChannelID = "system"
	// CategoryAll is the pass-through category filter.
	CategoryAll = "all"
	// DefaultCategory is assigned when a draft has none.
	DefaultCategory = "other"
	// DefaultThumbnail is the bundled placeholder preview.
	DefaultThumbnail = "Videos/Preview.png"
)

// VideoRecord is a catalog entry. ID is immutable once created.
type VideoRecord struct {
	ID              string     `json:"id"`
	Filename        string     `json:"filename"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Visibility      Visibility `json:"visibility"`
	Source          string     `json:"src"`
	Thumbnail       string     `json:"thumbnail"`
	DurationSeconds float64    `json:"durationSeconds"`
	Duration        string     `json:"duration"`
	Views           int64      `json:"views"`
	Likes           int64      `json:"likes"`
	UploadedAt      time.Time  `json:"uploadedAt"`
	ChannelID       string     `json:"channelId"`
	Channel         string     `json:"channel"`
	ChannelAvatar   string     `json:"channelAvatar"`
	IsUserVideo     bool       `json:"isUserVideo"`
	IsRestored      bool       `json:"isRestored"`
}

// IsStatic reports whether the record was synthesized from the asset bundle.
func (v VideoRecord) IsStatic() bool {
	return v.ChannelID == SystemChannelID && !v.IsUserVideo
}

// VisibleTo reports whether userID may see v. Private videos are shown to
// their owner only; an empty userID is an anonymous viewer.
func (v VideoRecord) VisibleTo(userID string) bool {
	if v.Visibility != VisibilityPrivate {
		return true
	}
	return userID != "" && v.ChannelID == userID
}

// Owner is the acting user for mutations.
type Owner struct {
	ID          string
	DisplayName string
	AvatarRef   string
}

// Draft carries the user supplied fields of a new video.
type Draft struct {
	Title       string
	Description string
	Category    string
	Visibility  Visibility
}

// Upload is a raw payload handed over by an input collaborator.
type Upload struct {
	Data     []byte
	Filename string
	MimeType string
}

// Patch lists the fields UpdateVideo may change. Nil means "leave as is".
type Patch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Category    *string     `json:"category,omitempty"`
	Visibility  *Visibility `json:"visibility,omitempty"`
	Thumbnail   *string     `json:"thumbnail,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Visibility == nil && p.Thumbnail == nil
}

func (p Patch) apply(v *VideoRecord) {
	if p.Title != nil {
		v.Title = *p.Title
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.Category != nil {
		v.Category = *p.Category
	}
	if p.Visibility != nil {
		v.Visibility = *p.Visibility
	}
	if p.Thumbnail != nil {
		v.Thumbnail = *p.Thumbnail
	}
}

// Stats summarizes the in-memory catalog.
type Stats struct {
	Total       int  `json:"total"`
	Static      int  `json:"static"`
	User        int  `json:"user"`
	Restored    int  `json:"restored"`
	Unplayable  int  `json:"unplayable"`
	BinaryTier  bool `json:"binaryTier"`
	Initialized bool `json:"initialized"`
}
