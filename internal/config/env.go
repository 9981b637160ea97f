// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/vidshelf/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VIDSHELF_"

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	lowerKey := strings.ToLower(key)
	if strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "password") {
		logger.Debug().
			Str("key", key).
			Str("source", "environment").
			Bool("sensitive", true).
			Msg("using environment variable")
	} else {
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
	}
	return value
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().Err(err).
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	return i
}

// ParseBool reads a boolean from environment variable or returns default value.
func ParseBool(key string, defaultValue bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().Err(err).
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
	return b
}

// ParseFloat reads a float from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().Err(err).
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid number in environment variable, using default")
		return defaultValue
	}
	return f
}

// ParseDuration reads a duration from environment variable or returns default value.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger := log.WithComponent("config")
		logger.Warn().Err(err).
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	return d
}

// ParseList reads a comma separated list.
func ParseList(key string, defaultValue []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyEnv overlays VIDSHELF_* variables on c.
func applyEnv(c *Config) {
	p := EnvPrefix
	c.DataDir = ParseString(p+"DATA_DIR", c.DataDir)
	c.LogLevel = ParseString(p+"LOG_LEVEL", c.LogLevel)
	c.ListenAddr = ParseString(p+"LISTEN_ADDR", c.ListenAddr)

	c.Record.Backend = ParseString(p+"RECORD_BACKEND", c.Record.Backend)
	c.Record.Path = ParseString(p+"RECORD_PATH", c.Record.Path)
	c.Record.Prefix = ParseString(p+"RECORD_PREFIX", c.Record.Prefix)
	c.Record.MaxValueBytes = ParseInt(p+"RECORD_MAX_VALUE_BYTES", c.Record.MaxValueBytes)
	c.Record.RedisAddr = ParseString(p+"REDIS_ADDR", c.Record.RedisAddr)
	c.Record.RedisPassword = ParseString(p+"REDIS_PASSWORD", c.Record.RedisPassword)
	c.Record.RedisDB = ParseInt(p+"REDIS_DB", c.Record.RedisDB)

	c.Blob.Backend = ParseString(p+"BLOB_BACKEND", c.Blob.Backend)
	c.Blob.Path = ParseString(p+"BLOB_PATH", c.Blob.Path)

	c.Assets.Dir = ParseString(p+"ASSETS_DIR", c.Assets.Dir)
	c.Assets.Files = ParseList(p+"ASSETS_FILES", c.Assets.Files)

	if _, ok := os.LookupEnv(p + "SEED_STATS"); ok {
		def := c.Catalog.SeedStats == nil || *c.Catalog.SeedStats
		seed := ParseBool(p+"SEED_STATS", def)
		c.Catalog.SeedStats = &seed
	}
	c.Catalog.SystemChannel = ParseString(p+"SYSTEM_CHANNEL", c.Catalog.SystemChannel)
	c.Catalog.FlushInterval = ParseDuration(p+"FLUSH_INTERVAL", c.Catalog.FlushInterval)

	c.Probe.FFprobeBin = ParseString(p+"FFPROBE_BIN", c.Probe.FFprobeBin)
	c.Probe.Timeout = ParseDuration(p+"PROBE_TIMEOUT", c.Probe.Timeout)
	c.Probe.Rate = ParseFloat(p+"PROBE_RATE", c.Probe.Rate)

	c.Collections.HistoryLimit = ParseInt(p+"HISTORY_LIMIT", c.Collections.HistoryLimit)

	c.RateLimit.Requests = ParseInt(p+"RATE_LIMIT_REQUESTS", c.RateLimit.Requests)
	c.RateLimit.Window = ParseDuration(p+"RATE_LIMIT_WINDOW", c.RateLimit.Window)

	c.Telemetry.Enabled = ParseBool(p+"TELEMETRY_ENABLED", c.Telemetry.Enabled)
	c.Telemetry.Exporter = ParseString(p+"TELEMETRY_EXPORTER", c.Telemetry.Exporter)
	c.Telemetry.Endpoint = ParseString(p+"TELEMETRY_ENDPOINT", c.Telemetry.Endpoint)
}
