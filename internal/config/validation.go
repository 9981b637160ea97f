// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks a merged config. Every problem is reported; the result
// wraps ErrInvalid.
func Validate(c Config) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		add("log_level: %q is not a level", c.LogLevel)
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		add("listen_addr: must not be empty")
	}

	switch c.Record.Backend {
	case "file", "sqlite":
		if c.Record.Path == "" {
			add("record.path: required for backend %q", c.Record.Backend)
		}
	case "redis":
		if c.Record.RedisAddr == "" {
			add("record.redis_addr: required for backend redis")
		}
	case "memory":
	default:
		add("record.backend: unknown backend %q", c.Record.Backend)
	}
	if c.Record.MaxValueBytes < 0 {
		add("record.max_value_bytes: must not be negative")
	}
	if c.Record.RedisDB < 0 {
		add("record.redis_db: must not be negative")
	}

	switch c.Blob.Backend {
	case "badger", "memory", "none":
	default:
		add("blob.backend: unknown backend %q", c.Blob.Backend)
	}

	for _, ext := range c.Assets.Extensions {
		if !strings.HasPrefix(ext, ".") {
			add("assets.extensions: %q must start with a dot", ext)
		}
	}
	for _, f := range c.Assets.Files {
		if f == "" || strings.Contains(f, "..") {
			add("assets.files: %q is not a plain file name", f)
		}
	}

	if c.Catalog.FlushInterval < 0 {
		add("catalog.flush_interval: must not be negative")
	}
	if c.Probe.Timeout < 0 {
		add("probe.timeout: must not be negative")
	}
	if c.Probe.Rate < 0 || c.Probe.Burst < 0 {
		add("probe: rate and burst must not be negative")
	}
	if c.Collections.HistoryLimit < 0 {
		add("collections.history_limit: must not be negative")
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.Window < 0 {
		add("rate_limit: requests and window must not be negative")
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case "grpc", "http":
		default:
			add("telemetry.exporter: unknown exporter %q", c.Telemetry.Exporter)
		}
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		add("telemetry.sampling_rate: must be within [0, 1]")
	}

	ids := map[string]bool{}
	tokens := map[string]bool{}
	for i, u := range c.Auth.Users {
		if u.ID == "" || u.Token == "" {
			add("auth.users[%d]: id and token are required", i)
			continue
		}
		if ids[u.ID] {
			add("auth.users[%d]: duplicate id %q", i, u.ID)
		}
		if tokens[u.Token] {
			add("auth.users[%d]: duplicate token", i)
		}
		ids[u.ID], tokens[u.Token] = true, true
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
