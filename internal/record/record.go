// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package record implements the record tier: whole JSON aggregates stored
// under fixed keys in a size-bounded key/value backend.
package record

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded is returned when an encoded aggregate exceeds the configured ceiling.
	ErrQuotaExceeded = errors.New("record: value exceeds quota")
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("record: unknown backend")
)

// Backend is the narrow capability every record storage engine provides.
// Values are opaque bytes; the Store owns encoding.
type Backend interface {
	// Get returns the value for key. found is false when the key was never written.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Fixed aggregate keys, relative to the store prefix.
const (
	KeyUserVideos = "user_videos_meta"
	KeyComments   = "comments"
)

// HistoryKey returns the key of the per-user history aggregate.
func HistoryKey(userID string) string {
	return "history:" + userID
}

// WatchLaterKey returns the key of the per-user save-for-later aggregate.
func WatchLaterKey(userID string) string {
	return "watch_later:" + userID
}
