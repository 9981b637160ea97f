// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package transient hands out session-local references to in-memory payloads.
// A reference stays resolvable until it is released; nothing survives a restart.
package transient

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/vidshelf/internal/metrics"
	"github.com/google/uuid"
)

// Scheme prefixes every reference minted by a Registry.
const Scheme = "blob:"

// IsRef reports whether s is a transient reference rather than a static path.
func IsRef(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// Token strips the scheme from ref.
func Token(ref string) string {
	return strings.TrimPrefix(ref, Scheme)
}

// Entry is a resolved reference.
type Entry struct {
	Ref      string
	MimeType string
	Name     string
	Created  time.Time
	data     []byte
}

// Size returns the payload length.
func (e *Entry) Size() int { return len(e.data) }

// Reader returns a fresh seekable reader over the payload.
func (e *Entry) Reader() io.ReadSeeker { return bytes.NewReader(e.data) }

// Registry owns every live transient reference.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	bytes   int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Acquire pins data under a new reference. The caller owns the reference and
// must Release it.
func (r *Registry) Acquire(data []byte, mimeType, name string) string {
	ref := Scheme + uuid.NewString()
	e := &Entry{
		Ref:      ref,
		MimeType: mimeType,
		Name:     name,
		Created:  time.Now(),
		data:     data,
	}

	r.mu.Lock()
	r.entries[ref] = e
	r.bytes += int64(len(data))
	r.publishLocked()
	r.mu.Unlock()
	return ref
}

// Resolve looks up ref. It accepts the reference with or without the scheme.
func (r *Registry) Resolve(ref string) (*Entry, bool) {
	if !IsRef(ref) {
		ref = Scheme + ref
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[ref]
	return e, ok
}

// Release revokes ref. Releasing an unknown or already released reference is a no-op
// and reports false.
func (r *Registry) Release(ref string) bool {
	if !IsRef(ref) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[ref]
	if !ok {
		return false
	}
	delete(r.entries, ref)
	r.bytes -= int64(len(e.data))
	r.publishLocked()
	return true
}

// ReleaseAll revokes every live reference and returns how many were released.
func (r *Registry) ReleaseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	r.entries = make(map[string]*Entry)
	r.bytes = 0
	r.publishLocked()
	return n
}

// Len returns the number of live references.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) publishLocked() {
	metrics.TransientRefs.Set(float64(len(r.entries)))
	metrics.TransientRefBytes.Set(float64(r.bytes))
}
