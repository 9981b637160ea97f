// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package probe extracts playable durations from media sources.
package probe

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Timeout bounds a single probe.
const Timeout = 10 * time.Second

var (
	// ErrTimeout is returned when a probe does not finish within its deadline.
	ErrTimeout = errors.New("probe: timeout")
	// ErrProbeFailed is returned when the source cannot be decoded.
	ErrProbeFailed = errors.New("probe: failed")
)

// Source is either a file on disk or an in-memory payload.
type Source struct {
	Path string
	Data []byte
	Name string // original filename, used for the spool file extension
}

// FileSource returns a Source for a file on disk.
func FileSource(path string) Source {
	return Source{Path: path}
}

// PayloadSource returns a Source for an in-memory payload.
func PayloadSource(data []byte, name string) Source {
	return Source{Data: data, Name: name}
}

// Prober reads a media source and returns its duration in seconds.
// Implementations never block past their own timeout.
type Prober interface {
	Probe(ctx context.Context, src Source) (float64, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, src Source) (float64, error)

func (f ProberFunc) Probe(ctx context.Context, src Source) (float64, error) {
	return f(ctx, src)
}

// SeedDuration synthesizes a whole-second duration in [60, 660) for static
// assets whose probe failed.
func SeedDuration(rng *rand.Rand) float64 {
	return float64(rng.IntN(600) + 60)
}
