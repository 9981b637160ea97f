// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"path/filepath"
	"time"

	"github.com/ManuGH/vidshelf/internal/auth"
	"github.com/ManuGH/vidshelf/internal/blob"
	"github.com/ManuGH/vidshelf/internal/record"
	"github.com/ManuGH/vidshelf/internal/telemetry"
)

// Config is the merged runtime configuration.
type Config struct {
	DataDir    string `yaml:"data_dir"`
	LogLevel   string `yaml:"log_level"`
	ListenAddr string `yaml:"listen_addr"`

	Record      RecordConfig      `yaml:"record"`
	Blob        BlobConfig        `yaml:"blob"`
	Assets      AssetsConfig      `yaml:"assets"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Probe       ProbeConfig       `yaml:"probe"`
	Collections CollectionsConfig `yaml:"collections"`
	Auth        AuthConfig        `yaml:"auth"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

type RecordConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	Prefix        string `yaml:"prefix"`
	MaxValueBytes int    `yaml:"max_value_bytes"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type BlobConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type AssetsConfig struct {
	Dir        string   `yaml:"dir"`
	Files      []string `yaml:"files"`
	Extensions []string `yaml:"extensions"`
	Thumbnail  string   `yaml:"thumbnail"`
	URLPrefix  string   `yaml:"url_prefix"`
}

type CatalogConfig struct {
	// SeedStats is a pointer so an explicit false survives defaulting.
	SeedStats     *bool         `yaml:"seed_stats"`
	SystemChannel string        `yaml:"system_channel"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type ProbeConfig struct {
	FFprobeBin string        `yaml:"ffprobe_bin"`
	Timeout    time.Duration `yaml:"timeout"`
	// Rate caps ffprobe spawns per second; zero disables the cap.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

type CollectionsConfig struct {
	HistoryLimit int `yaml:"history_limit"`
}

type AuthConfig struct {
	Users []UserConfig `yaml:"users"`
}

// UserConfig binds a bearer token to a local identity.
type UserConfig struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	Avatar      string `yaml:"avatar"`
	Token       string `yaml:"token"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// SeedStatsEnabled reports the effective seeding flag.
func (c Config) SeedStatsEnabled() bool {
	return c.Catalog.SeedStats == nil || *c.Catalog.SeedStats
}

// RecordTier returns the record backend settings with paths resolved.
func (c Config) RecordTier() record.Config {
	return record.Config{
		Backend:       c.Record.Backend,
		Path:          c.Record.Path,
		Prefix:        c.Record.Prefix,
		MaxValueBytes: c.Record.MaxValueBytes,
		Redis: record.RedisConfig{
			Addr:     c.Record.RedisAddr,
			Password: c.Record.RedisPassword,
			DB:       c.Record.RedisDB,
		},
	}
}

// BlobTier returns the binary tier settings.
func (c Config) BlobTier() blob.Config {
	return blob.Config{Backend: c.Blob.Backend, Path: c.Blob.Path}
}

// Tracing returns the telemetry settings for version.
func (c Config) Tracing(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    "vidshelf",
		ServiceVersion: version,
		ExporterType:   c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		SamplingRate:   c.Telemetry.SamplingRate,
	}
}

// Accounts converts the configured users for auth.NewStaticSource.
func (c Config) Accounts() []auth.Account {
	out := make([]auth.Account, 0, len(c.Auth.Users))
	for _, u := range c.Auth.Users {
		out = append(out, auth.Account{
			Token: u.Token,
			User:  auth.User{ID: u.ID, DisplayName: u.DisplayName, AvatarRef: u.Avatar},
		})
	}
	return out
}

func resolvePath(dataDir, p, fallback string) string {
	if p == "" {
		p = fallback
	}
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}
