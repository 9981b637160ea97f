// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package blob

import (
	"context"
	"fmt"
	"os"
)

// Config selects and configures a binary tier backend.
type Config struct {
	Backend string // badger|memory|none; empty selects badger
	Path    string // badger directory; empty or ":memory:" selects the memory tier
}

// Opener initialises a tier. The catalog treats any error as "no binary tier".
type Opener func(ctx context.Context) (Tier, error)

// NewOpener returns an Opener for cfg.
func NewOpener(cfg Config) Opener {
	return func(ctx context.Context) (Tier, error) {
		return Open(ctx, cfg)
	}
}

// Open initialises the configured backend. Opening runs in its own goroutine so
// a stuck storage directory is bounded by ctx.
func Open(ctx context.Context, cfg Config) (Tier, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "badger"
	}

	switch backend {
	case "none":
		return nil, fmt.Errorf("%w: disabled by configuration", ErrUnavailable)
	case "memory":
		return NewMemoryTier(), nil
	case "badger":
		if cfg.Path == "" || cfg.Path == ":memory:" {
			return NewMemoryTier(), nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnavailable, backend)
	}

	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create blob dir: %v", ErrUnavailable, err)
	}

	type result struct {
		tier *BadgerTier
		err  error
	}
	done := make(chan result, 1)
	go func() {
		t, err := OpenBadgerTier(cfg.Path)
		done <- result{tier: t, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, res.err)
		}
		return res.tier, nil
	case <-ctx.Done():
		// Close the database if it finishes opening after we gave up.
		go func() {
			if res := <-done; res.err == nil {
				_ = res.tier.Close()
			}
		}()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}
