// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"slices"
	"time"

	"github.com/ManuGH/vidshelf/internal/catalog"
	"github.com/ManuGH/vidshelf/internal/collections"
	"github.com/ManuGH/vidshelf/internal/probe"
	"github.com/ManuGH/vidshelf/internal/record"
)

const (
	DefaultDataDir       = "data"
	DefaultListenAddr    = "127.0.0.1:8088"
	DefaultLogLevel      = "info"
	DefaultFlushInterval = 30 * time.Second
	DefaultRateRequests  = 60
	DefaultRateWindow    = time.Minute
)

// applyDefaults fills every zero field. Paths are resolved against DataDir.
func applyDefaults(c *Config) {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}

	if c.Record.Backend == "" {
		c.Record.Backend = "file"
	}
	switch c.Record.Backend {
	case "file":
		c.Record.Path = resolvePath(c.DataDir, c.Record.Path, "records")
	case "sqlite":
		c.Record.Path = resolvePath(c.DataDir, c.Record.Path, "records.db")
	}
	if c.Record.MaxValueBytes == 0 {
		c.Record.MaxValueBytes = record.DefaultMaxValueBytes
	}
	if c.Record.Backend == "redis" && c.Record.RedisAddr == "" {
		c.Record.RedisAddr = "127.0.0.1:6379"
	}

	if c.Blob.Backend == "" {
		c.Blob.Backend = "badger"
	}
	if c.Blob.Backend == "badger" {
		c.Blob.Path = resolvePath(c.DataDir, c.Blob.Path, "blobs")
	}

	if c.Assets.Dir == "" {
		c.Assets.Dir = "Videos"
	}
	if len(c.Assets.Extensions) == 0 {
		c.Assets.Extensions = slices.Clone(catalog.DefaultExtensions)
	}
	if c.Assets.Thumbnail == "" {
		c.Assets.Thumbnail = catalog.DefaultThumbnail
	}
	if c.Assets.URLPrefix == "" {
		c.Assets.URLPrefix = "Videos"
	}

	if c.Catalog.SeedStats == nil {
		seed := true
		c.Catalog.SeedStats = &seed
	}
	if c.Catalog.SystemChannel == "" {
		c.Catalog.SystemChannel = "vidshelf"
	}
	if c.Catalog.FlushInterval == 0 {
		c.Catalog.FlushInterval = DefaultFlushInterval
	}

	if c.Probe.FFprobeBin == "" {
		c.Probe.FFprobeBin = "ffprobe"
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = probe.Timeout
	}
	if c.Probe.Rate > 0 && c.Probe.Burst == 0 {
		c.Probe.Burst = 4
	}

	if c.Collections.HistoryLimit == 0 {
		c.Collections.HistoryLimit = collections.DefaultHistoryLimit
	}

	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = DefaultRateRequests
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = DefaultRateWindow
	}

	if c.Telemetry.Exporter == "" {
		c.Telemetry.Exporter = "grpc"
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4317"
		if c.Telemetry.Exporter == "http" {
			c.Telemetry.Endpoint = "localhost:4318"
		}
	}
}

// Defaults returns a fully defaulted config.
func Defaults() Config {
	var c Config
	applyDefaults(&c)
	return c
}
