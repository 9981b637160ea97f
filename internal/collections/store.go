// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package collections keeps per-user watch history and save-for-later lists.
// Entries reference catalog videos by id and are resolved on read.
package collections

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ManuGH/vidshelf/internal/catalog"
	xglog "github.com/ManuGH/vidshelf/internal/log"
	"github.com/ManuGH/vidshelf/internal/record"
)

// DefaultHistoryLimit caps a user's history.
const DefaultHistoryLimit = 50

// Entry is one membership record.
type Entry struct {
	VideoID string    `json:"videoId"`
	AddedAt time.Time `json:"addedAt"`
}

// Lookup resolves video ids. *catalog.Catalog satisfies it.
type Lookup interface {
	Video(id string) (catalog.VideoRecord, bool)
}

// Store reads and writes the per-user aggregates in the record tier.
type Store struct {
	records      *record.Store
	lookup       Lookup
	historyLimit int
	now          func() time.Time

	// one read-modify-write at a time per store
	mu sync.Mutex
}

// NewStore returns a Store. historyLimit <= 0 selects DefaultHistoryLimit.
func NewStore(records *record.Store, lookup Lookup, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		records:      records,
		lookup:       lookup,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// AddToHistory moves videoID to the front of userID's history.
func (s *Store) AddToHistory(ctx context.Context, userID, videoID string) error {
	return s.update(ctx, record.HistoryKey(userID), func(list []Entry) []Entry {
		list = slices.DeleteFunc(list, func(e Entry) bool { return e.VideoID == videoID })
		list = slices.Insert(list, 0, Entry{VideoID: videoID, AddedAt: s.now()})
		if len(list) > s.historyLimit {
			list = list[:s.historyLimit]
		}
		return list
	})
}

// History returns userID's history, most recent first, dropping ids the
// catalog no longer knows and videos userID may not see.
func (s *Store) History(ctx context.Context, userID string) []catalog.VideoRecord {
	return s.resolve(userID, s.load(ctx, record.HistoryKey(userID)))
}

// HistoryEntries returns the raw stored history.
func (s *Store) HistoryEntries(ctx context.Context, userID string) []Entry {
	return s.load(ctx, record.HistoryKey(userID))
}

// ClearHistory empties userID's history.
func (s *Store) ClearHistory(ctx context.Context, userID string) error {
	return s.update(ctx, record.HistoryKey(userID), func([]Entry) []Entry {
		return []Entry{}
	})
}

// AddToSaveForLater appends videoID unless it is already saved.
func (s *Store) AddToSaveForLater(ctx context.Context, userID, videoID string) error {
	return s.update(ctx, record.WatchLaterKey(userID), func(list []Entry) []Entry {
		if slices.ContainsFunc(list, func(e Entry) bool { return e.VideoID == videoID }) {
			return nil
		}
		return append(list, Entry{VideoID: videoID, AddedAt: s.now()})
	})
}

// RemoveFromSaveForLater drops videoID from userID's list.
func (s *Store) RemoveFromSaveForLater(ctx context.Context, userID, videoID string) error {
	return s.update(ctx, record.WatchLaterKey(userID), func(list []Entry) []Entry {
		n := len(list)
		list = slices.DeleteFunc(list, func(e Entry) bool { return e.VideoID == videoID })
		if len(list) == n {
			return nil
		}
		return list
	})
}

// SaveForLater returns userID's saved videos in insertion order, dropping ids
// the catalog no longer knows and videos userID may not see.
func (s *Store) SaveForLater(ctx context.Context, userID string) []catalog.VideoRecord {
	return s.resolve(userID, s.load(ctx, record.WatchLaterKey(userID)))
}

// update applies fn to the stored list. A nil result means "unchanged".
func (s *Store) update(ctx context.Context, key string, fn func([]Entry) []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.load(ctx, key))
	if next == nil {
		return nil
	}
	if err := s.records.Save(ctx, key, next); err != nil {
		logger := xglog.WithComponentFromContext(ctx, "collections")
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "collections.persist_failed").
			Str(xglog.FieldKey, key).
			Msg("failed to persist collection")
		return err
	}
	return nil
}

func (s *Store) load(ctx context.Context, key string) []Entry {
	var list []Entry
	s.records.Load(ctx, key, &list)
	return list
}

// resolve keeps the stored entries but hides videos that went private, so a
// video made public again reappears.
func (s *Store) resolve(viewer string, list []Entry) []catalog.VideoRecord {
	out := make([]catalog.VideoRecord, 0, len(list))
	for _, e := range list {
		if v, ok := s.lookup.Video(e.VideoID); ok && v.VisibleTo(viewer) {
			out = append(out, v)
		}
	}
	return out
}
