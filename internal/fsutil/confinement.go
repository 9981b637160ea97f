// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fsutil confines user supplied paths to a root directory.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesRoot is returned when a path resolves outside its root.
var ErrEscapesRoot = errors.New("path escapes root")

// ConfineRelPath joins relTarget to root and returns the resolved path if it
// stays physically under root after symlink resolution. A missing root is
// reported with an error satisfying os.IsNotExist. A missing target is not an
// error; the caller sees that when opening the returned path.
func ConfineRelPath(root, relTarget string) (string, error) {
	if strings.Contains(relTarget, "\\") {
		return "", fmt.Errorf("%w: backslash in %q", ErrEscapesRoot, relTarget)
	}
	cleanRel := filepath.Clean(filepath.FromSlash(relTarget))
	if filepath.IsAbs(cleanRel) {
		return "", fmt.Errorf("%w: %q is absolute", ErrEscapesRoot, relTarget)
	}
	if cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrEscapesRoot, relTarget)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}
	return resolveWithin(realRoot, filepath.Join(realRoot, cleanRel))
}

// resolveWithin resolves symlinks in fullPath and checks it stays under realRoot.
func resolveWithin(realRoot, fullPath string) (string, error) {
	realPath, err := filepath.EvalSymlinks(fullPath)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		// target missing: resolve the parent so a dangling link cannot escape
		parent, perr := filepath.EvalSymlinks(filepath.Dir(fullPath))
		if perr != nil && !os.IsNotExist(perr) {
			return "", fmt.Errorf("failed to resolve parent path: %w", perr)
		}
		if perr != nil {
			parent = filepath.Dir(fullPath)
		}
		if _, lerr := os.Lstat(fullPath); lerr == nil {
			// a symlink pointing at nothing
			return "", fmt.Errorf("%w: dangling link %s", ErrEscapesRoot, fullPath)
		}
		realPath = filepath.Join(parent, filepath.Base(fullPath))
	default:
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil {
		return "", fmt.Errorf("rel computation failed: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w via symlinks: %s", ErrEscapesRoot, realPath)
	}
	return realPath, nil
}
