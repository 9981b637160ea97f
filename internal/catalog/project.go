// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"hash/fnv"
	"math/rand/v2"
	"net/url"
	"time"
)

// Card is the display-ready view of a VideoRecord.
type Card struct {
	ID            string     `json:"id"`
	Href          string     `json:"href"`
	Title         string     `json:"title"`
	Thumbnail     string     `json:"thumbnail"`
	Duration      string     `json:"duration"`
	Channel       string     `json:"channel"`
	ChannelID     string     `json:"channelId"`
	ChannelAvatar string     `json:"channelAvatar"`
	Views         string     `json:"views"`
	ViewCount     int64      `json:"viewCount"`
	Likes         int64      `json:"likes"`
	Uploaded      string     `json:"uploaded"`
	Visibility    Visibility `json:"visibility"`
	IsUserVideo   bool       `json:"isUserVideo"`
	Playable      bool       `json:"playable"`
}

// Project maps v to a Card. It performs no I/O and reads no state beyond its
// arguments.
func Project(v VideoRecord, now time.Time) Card {
	duration := v.Duration
	if duration == "" {
		duration = FormatDuration(v.DurationSeconds, idRand(v.ID))
	}
	thumb := v.Thumbnail
	if thumb == "" {
		thumb = DefaultThumbnail
	}
	vis := v.Visibility
	if vis == "" {
		vis = VisibilityPublic
	}
	return Card{
		ID:            v.ID,
		Href:          "watch?v=" + url.QueryEscape(v.ID),
		Title:         v.Title,
		Thumbnail:     thumb,
		Duration:      duration,
		Channel:       v.Channel,
		ChannelID:     v.ChannelID,
		ChannelAvatar: v.ChannelAvatar,
		Views:         FormatViews(v.Views),
		ViewCount:     v.Views,
		Likes:         v.Likes,
		Uploaded:      RelativeUploadLabel(v.UploadedAt, now),
		Visibility:    vis,
		IsUserVideo:   v.IsUserVideo,
		Playable:      v.Source != "",
	}
}

// ProjectAll maps every record through Project.
func ProjectAll(list []VideoRecord, now time.Time) []Card {
	out := make([]Card, 0, len(list))
	for _, v := range list {
		out = append(out, Project(v, now))
	}
	return out
}

// idRand seeds the duration fallback from the video id so a record without a
// known length renders the same label every time.
func idRand(id string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return rand.New(rand.NewPCG(h.Sum64(), 0))
}
