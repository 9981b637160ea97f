// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package record

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	xglog "github.com/ManuGH/vidshelf/internal/log"
	"github.com/ManuGH/vidshelf/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultMaxValueBytes mirrors the practical ceiling of browser local storage.
const DefaultMaxValueBytes = 5 << 20

// Store encodes aggregates as JSON on top of a Backend and enforces the size ceiling.
// Every Save rewrites the whole aggregate for its key.
type Store struct {
	backend  Backend
	prefix   string
	maxBytes int
	logger   zerolog.Logger
}

// NewStore wraps backend. maxBytes <= 0 selects DefaultMaxValueBytes.
func NewStore(backend Backend, prefix string, maxBytes int) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxValueBytes
	}
	return &Store{
		backend:  backend,
		prefix:   prefix,
		maxBytes: maxBytes,
		logger:   xglog.WithComponent("record"),
	}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Load decodes the aggregate stored under key into dst and reports whether one was found.
// It never fails: a missing key, a backend error or a corrupt value leave dst untouched
// and are logged, so callers always continue with an empty aggregate.
func (s *Store) Load(ctx context.Context, key string, dst any) bool {
	full := s.key(key)
	raw, found, err := s.backend.Get(ctx, full)
	if err != nil {
		metrics.RecordTierError("get")
		s.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "record.load_failed").
			Str(xglog.FieldKey, full).
			Msg("record tier read failed, using empty aggregate")
		return false
	}
	if !found || len(raw) == 0 {
		return false
	}
	if err := decodeInto(raw, dst); err != nil {
		metrics.RecordTierError("decode")
		s.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "record.decode_failed").
			Str(xglog.FieldKey, full).
			Msg("corrupt aggregate, using empty aggregate")
		return false
	}
	return true
}

// decodeInto unmarshals into a fresh value and copies it to dst only on
// success. json.Unmarshal fills dst field by field before reporting a type
// mismatch.
func decodeInto(raw []byte, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return json.Unmarshal(raw, dst)
	}
	fresh := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(raw, fresh.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}

// Save encodes v and replaces the aggregate stored under key.
func (s *Store) Save(ctx context.Context, key string, v any) error {
	full := s.key(key)
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", full, err)
	}
	if len(raw) > s.maxBytes {
		metrics.RecordTierError("quota")
		return fmt.Errorf("%w: %s is %d bytes (max %d)", ErrQuotaExceeded, full, len(raw), s.maxBytes)
	}
	if err := s.backend.Set(ctx, full, raw); err != nil {
		metrics.RecordTierError("set")
		return fmt.Errorf("write %s: %w", full, err)
	}
	return nil
}

// Delete removes the aggregate stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, s.key(key)); err != nil {
		metrics.RecordTierError("delete")
		return fmt.Errorf("delete %s: %w", s.key(key), err)
	}
	return nil
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
