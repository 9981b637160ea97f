// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package blob implements the binary tier: video payloads keyed by video id.
package blob

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when no payload is stored for the id.
	ErrNotFound = errors.New("blob: not found")
	// ErrUnavailable is returned by Open when the tier is disabled or cannot start.
	ErrUnavailable = errors.New("blob: tier unavailable")
)

// Blob is a stored payload plus the metadata needed to serve it again.
type Blob struct {
	Data     []byte
	MimeType string
	Name     string
	StoredAt time.Time
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// Tier is the narrow capability the catalog needs from a binary store.
type Tier interface {
	Put(ctx context.Context, id string, b Blob) error
	// Get returns ErrNotFound when nothing is stored for id.
	Get(ctx context.Context, id string) (*Blob, error)
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	Close() error
}
