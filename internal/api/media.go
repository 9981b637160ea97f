// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ManuGH/vidshelf/internal/fsutil"
	"github.com/ManuGH/vidshelf/internal/log"
	"github.com/go-chi/chi/v5"
	"golang.org/x/text/unicode/norm"
)

// handleBlob streams a live transient reference. Revoked refs are 404.
func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if s.refs == nil || token == "" {
		recordFileRequestDenied("not_found")
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	e, ok := s.refs.Resolve(token)
	if !ok {
		recordFileRequestDenied("not_found")
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if e.MimeType != "" {
		w.Header().Set("Content-Type", e.MimeType)
	}
	// refs are immutable for their lifetime
	w.Header().Set("Cache-Control", "private, max-age=3600")
	recordFileRequestAllowed()
	http.ServeContent(w, r, e.Name, e.Created, e.Reader())
}

// secureFileServer serves the static asset directory, refusing traversal,
// symlink escapes and directory listings.
func (s *Server) secureFileServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "api")
		deny := func(status int, reason, msg string) {
			logger.Warn().Str("event", "file_req.denied").Str("path", r.URL.Path).Str("reason", reason).Msg(msg)
			recordFileRequestDenied(reason)
			http.Error(w, http.StatusText(status), status)
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			deny(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		p := r.URL.Path
		if isPathTraversal(p) {
			deny(http.StatusForbidden, "path_escape", "detected traversal sequence")
			return
		}
		if p == "" || strings.HasSuffix(p, "/") {
			deny(http.StatusForbidden, "directory_listing", "directory listing forbidden")
			return
		}

		realPath, err := fsutil.ConfineRelPath(s.assetsDir, strings.TrimPrefix(p, "/"))
		switch {
		case errors.Is(err, fsutil.ErrEscapesRoot):
			logger.Warn().
				Str("event", "file_req.denied").
				Str("path", p).
				Str("reason", "path_escape").
				Err(err).
				Msg("path escapes assets directory")
			recordFileRequestDenied("path_escape")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		case os.IsNotExist(err):
			recordFileRequestDenied("not_found")
			http.Error(w, "Not found", http.StatusNotFound)
			return
		case err != nil:
			logger.Error().Err(err).Str("event", "file_req.internal_error").Str("path", p).Msg("could not resolve path")
			recordFileRequestDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// #nosec G304 -- realPath is contained in the assets directory
		f, err := os.Open(realPath)
		if os.IsNotExist(err) {
			recordFileRequestDenied("not_found")
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error().Err(err).Str("event", "file_req.internal_error").Str("path", realPath).Msg("could not open file")
			recordFileRequestDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			recordFileRequestDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if info.IsDir() {
			deny(http.StatusForbidden, "directory_listing", "resolved path is a directory")
			return
		}

		etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			recordFileCacheHit()
			w.WriteHeader(http.StatusNotModified)
			return
		}

		recordFileRequestAllowed()
		recordFileCacheMiss()
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// isPathTraversal decodes p repeatedly, normalizes it and looks for parent
// references or NUL bytes.
func isPathTraversal(p string) bool {
	decoded := p
	for range 3 {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		} else if d2, err2 := url.QueryUnescape(decoded); err2 == nil {
			decoded = d2
		}
		if decoded == prev {
			break
		}
	}

	lower := strings.ToLower(decoded)
	for _, pat := range []string{"..", "%00", "%c0%ae", "%e0%80%ae"} {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	if strings.IndexByte(decoded, 0x00) >= 0 {
		return true
	}
	return strings.Contains(norm.NFC.String(lower), "..")
}
