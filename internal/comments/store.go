// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package comments keeps per-video comment lists, most recent first.
package comments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	xglog "github.com/ManuGH/vidshelf/internal/log"
	"github.com/ManuGH/vidshelf/internal/record"
	"github.com/google/uuid"
)

// ErrEmptyComment is returned by Add when the text is blank.
var ErrEmptyComment = errors.New("comments: empty text")

// Comment is a single comment on a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	Author    string    `json:"author"`
	Avatar    string    `json:"avatar"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int64     `json:"likes"`
}

// Store holds the comment aggregate in memory and writes it through to the record tier.
type Store struct {
	records *record.Store
	now     func() time.Time

	mu      sync.RWMutex
	byVideo map[string][]Comment
}

// NewStore returns an empty store backed by records. Call Load before use.
func NewStore(records *record.Store) *Store {
	return &Store{
		records: records,
		now:     time.Now,
		byVideo: make(map[string][]Comment),
	}
}

// Load replaces the in-memory aggregate with the persisted one. A missing or
// unreadable aggregate yields an empty store.
func (s *Store) Load(ctx context.Context) {
	agg := make(map[string][]Comment)
	s.records.Load(ctx, record.KeyComments, &agg)
	if agg == nil {
		agg = make(map[string][]Comment)
	}
	s.mu.Lock()
	s.byVideo = agg
	s.mu.Unlock()
}

// Add prepends a comment to videoID's list and persists the aggregate.
// A persistence failure is logged; the comment stays visible for this session.
func (s *Store) Add(ctx context.Context, videoID, author, avatar, text string) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, ErrEmptyComment
	}
	c := Comment{
		ID:        "c_" + uuid.NewString(),
		VideoID:   videoID,
		Author:    author,
		Avatar:    avatar,
		Text:      text,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.byVideo[videoID] = append([]Comment{c}, s.byVideo[videoID]...)
	s.mu.Unlock()

	s.persist(ctx)
	return c, nil
}

// For returns a copy of videoID's comments, most recent first. Never nil.
func (s *Store) For(videoID string) []Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.byVideo[videoID]
	out := make([]Comment, len(list))
	copy(out, list)
	return out
}

// DeleteFor drops every comment of videoID and persists the aggregate.
func (s *Store) DeleteFor(ctx context.Context, videoID string) {
	s.mu.Lock()
	_, ok := s.byVideo[videoID]
	delete(s.byVideo, videoID)
	s.mu.Unlock()
	if ok {
		s.persist(ctx)
	}
}

func (s *Store) persist(ctx context.Context) {
	s.mu.RLock()
	err := s.records.Save(ctx, record.KeyComments, s.byVideo)
	s.mu.RUnlock()
	if err != nil {
		logger := xglog.WithComponentFromContext(ctx, "comments")
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "comments.persist_failed").
			Msg("failed to persist comments")
	}
}
