// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	xglog "github.com/ManuGH/vidshelf/internal/log"
)

// DefaultExtensions are the file types picked up by a directory scan.
var DefaultExtensions = []string{".mp4", ".webm", ".mov", ".mkv"}

// Assets describes the bundled, read-only video set.
type Assets struct {
	// Dir is the on-disk asset directory. Probing and modification times
	// are read from here.
	Dir string
	// Files is an explicit manifest. When empty, Dir is scanned.
	Files []string
	// Extensions filters the scan; empty means DefaultExtensions.
	Extensions []string
	// URLPrefix is prepended to a filename to form Source, default "Videos".
	URLPrefix string
	// Thumbnail is the preview image of every static asset.
	Thumbnail string
}

func (a Assets) urlPrefix() string {
	if a.URLPrefix == "" {
		return "Videos"
	}
	return strings.Trim(a.URLPrefix, "/")
}

func (a Assets) thumbnail() string {
	if a.Thumbnail == "" {
		return DefaultThumbnail
	}
	return a.Thumbnail
}

// Manifest returns the ordered static filenames.
func (a Assets) Manifest() []string {
	if len(a.Files) > 0 {
		return slices.Clone(a.Files)
	}
	if a.Dir == "" {
		return nil
	}

	exts := a.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	entries, err := os.ReadDir(a.Dir)
	if err != nil {
		logger := xglog.WithComponent("catalog")
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "catalog.assets_scan_failed").
			Str(xglog.FieldPath, a.Dir).
			Msg("cannot scan asset directory, no static videos")
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if slices.ContainsFunc(exts, func(x string) bool { return strings.EqualFold(x, ext) }) {
			files = append(files, e.Name())
		}
	}
	// os.ReadDir already sorts by name
	return files
}

// Source returns the servable path of a bundled file.
func (a Assets) Source(filename string) string {
	return path.Join(a.urlPrefix(), filename)
}

func (a Assets) localPath(filename string) string {
	if a.Dir == "" {
		return filename
	}
	return filepath.Join(a.Dir, filepath.FromSlash(filename))
}

func (a Assets) modTime(filename string) (time.Time, bool) {
	if a.Dir == "" {
		return time.Time{}, false
	}
	fi, err := os.Stat(a.localPath(filename))
	if err != nil {
		return time.Time{}, false
	}
	return fi.ModTime(), true
}
