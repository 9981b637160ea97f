// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"unknown record backend", func(c *Config) { c.Record.Backend = "etcd" }, "record.backend"},
		{"file without path", func(c *Config) { c.Record.Path = "" }, "record.path"},
		{"redis without addr", func(c *Config) { c.Record.Backend = "redis"; c.Record.RedisAddr = "" }, "redis_addr"},
		{"unknown blob backend", func(c *Config) { c.Blob.Backend = "s3" }, "blob.backend"},
		{"extension without dot", func(c *Config) { c.Assets.Extensions = []string{"mp4"} }, "assets.extensions"},
		{"path traversal", func(c *Config) { c.Assets.Files = []string{"../etc/passwd"} }, "assets.files"},
		{"negative history", func(c *Config) { c.Collections.HistoryLimit = -1 }, "history_limit"},
		{"bad exporter", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }, "telemetry.exporter"},
		{"sampling above one", func(c *Config) { c.Telemetry.SamplingRate = 2 }, "sampling_rate"},
		{"negative probe rate", func(c *Config) { c.Probe.Rate = -1 }, "probe"},
		{"user without token", func(c *Config) { c.Auth.Users = []UserConfig{{ID: "u1"}} }, "auth.users[0]"},
		{"duplicate user", func(c *Config) {
			c.Auth.Users = []UserConfig{{ID: "u1", Token: "a"}, {ID: "u1", Token: "b"}}
		}, "duplicate id"},
		{"duplicate token", func(c *Config) {
			c.Auth.Users = []UserConfig{{ID: "u1", Token: "a"}, {ID: "u2", Token: "a"}}
		}, "duplicate token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(&c)
			err := Validate(c)
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
