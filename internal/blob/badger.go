// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerTier stores payloads in an embedded badger database.
//   - meta:<id> JSON metadata
//   - data:<id> raw payload
//
// Both keys are written and deleted in one transaction.
type BadgerTier struct {
	db *badger.DB
}

type badgerMeta struct {
	MimeType string    `json:"mime_type"`
	Name     string    `json:"name"`
	Size     int       `json:"size"`
	StoredAt time.Time `json:"stored_at"`
}

// ErrNoPath is returned by OpenBadgerTier for an empty directory. In-memory
// badger has no value log and rejects values over 1 MiB, which is too small
// for video payloads.
var ErrNoPath = errors.New("badger tier needs a directory")

// OpenBadgerTier opens (or creates) a badger database in dir.
func OpenBadgerTier(dir string) (*BadgerTier, error) {
	if dir == "" {
		return nil, ErrNoPath
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &BadgerTier{db: db}, nil
}

func metaKey(id string) []byte { return []byte("meta:" + id) }
func dataKey(id string) []byte { return []byte("data:" + id) }

func (s *BadgerTier) Close() error { return s.db.Close() }

func (s *BadgerTier) Put(ctx context.Context, id string, b Blob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	storedAt := b.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}
	buf, err := json.Marshal(badgerMeta{
		MimeType: b.MimeType,
		Name:     b.Name,
		Size:     len(b.Data),
		StoredAt: storedAt,
	})
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(metaKey(id), buf); err != nil {
			return err
		}
		return txn.Set(dataKey(id), b.Data)
	})
	if err != nil {
		return fmt.Errorf("badger put %s: %w", id, err)
	}
	return nil
}

func (s *BadgerTier) Get(ctx context.Context, id string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		meta badgerMeta
		out  Blob
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return err
		}
		item, err = txn.Get(dataKey(id))
		if err != nil {
			return err
		}
		out.Data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", id, err)
	}
	out.MimeType = meta.MimeType
	out.Name = meta.Name
	out.StoredAt = meta.StoredAt
	return &out, nil
}

func (s *BadgerTier) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(metaKey(id)); err != nil {
			return err
		}
		return txn.Delete(dataKey(id))
	})
	if err != nil {
		return fmt.Errorf("badger delete %s: %w", id, err)
	}
	return nil
}
