// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package version carries build metadata, set with -ldflags -X.
package version

var (
	// Version is the release tag.
	Version = "v0.1.0"
	// Commit is the git short hash of the build.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the build metadata for --version.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
