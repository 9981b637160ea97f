// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config provides configuration management for vidshelf.
//
// Precedence, lowest first: built-in defaults, the YAML file, VIDSHELF_*
// environment variables. The merged result is validated before use.
package config
