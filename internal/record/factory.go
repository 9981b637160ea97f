// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package record

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config selects and configures a record backend.
type Config struct {
	Backend       string // file|sqlite|redis|memory; empty selects file
	Path          string // directory (file) or database path (sqlite)
	Prefix        string
	MaxValueBytes int
	Redis         RedisConfig
}

// Open constructs the configured backend and wraps it in a Store.
func Open(cfg Config) (*Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "file"
	}

	var (
		b   Backend
		err error
	)
	switch backend {
	case "memory":
		b = NewMemoryBackend()
	case "file":
		b, err = NewFileBackend(cfg.Path)
	case "sqlite":
		path := cfg.Path
		if path != ":memory:" && filepath.Ext(path) == "" {
			if err = os.MkdirAll(path, 0o750); err != nil {
				break
			}
			path = filepath.Join(path, "records.db")
		}
		b, err = NewSqliteBackend(path)
	case "redis":
		b, err = NewRedisBackend(cfg.Redis)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s record backend: %w", backend, err)
	}
	return NewStore(b, cfg.Prefix, cfg.MaxValueBytes), nil
}
