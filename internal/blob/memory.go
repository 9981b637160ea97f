// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package blob

import (
	"context"
	"sync"
	"time"
)

// MemoryTier keeps payloads for the lifetime of the process only.
type MemoryTier struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewMemoryTier returns an empty in-memory tier.
func NewMemoryTier() *MemoryTier {
	return &MemoryTier{blobs: make(map[string]Blob)}
}

func (m *MemoryTier) Put(_ context.Context, id string, b Blob) error {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	b.Data = data
	if b.StoredAt.IsZero() {
		b.StoredAt = time.Now()
	}
	m.mu.Lock()
	m.blobs[id] = b
	m.mu.Unlock()
	return nil
}

func (m *MemoryTier) Get(_ context.Context, id string) (*Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *MemoryTier) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.blobs, id)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored payloads.
func (m *MemoryTier) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

func (m *MemoryTier) Close() error { return nil }
