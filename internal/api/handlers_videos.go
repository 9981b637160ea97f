// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ManuGH/vidshelf/internal/audit"
	"github.com/ManuGH/vidshelf/internal/auth"
	"github.com/ManuGH/vidshelf/internal/catalog"
	"github.com/ManuGH/vidshelf/internal/log"
	"github.com/ManuGH/vidshelf/internal/transient"
	"github.com/go-chi/chi/v5"
)

// videoDetail is the full record plus a URL the browser can play.
type videoDetail struct {
	catalog.VideoRecord
	PlaybackURL string `json:"playbackUrl,omitempty"`
	Uploaded    string `json:"uploaded"`
	ViewsLabel  string `json:"viewsLabel"`
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var list []catalog.VideoRecord
	if query := strings.TrimSpace(q.Get("q")); query != "" {
		list = s.catalog.Search(query)
		if cat := q.Get("category"); cat != "" && cat != catalog.CategoryAll {
			list = filterCategory(list, cat)
		}
	} else {
		list = s.catalog.ByCategory(q.Get("category"))
	}
	writeJSON(w, http.StatusOK, catalog.ProjectAll(list, s.now()))
}

func filterCategory(list []catalog.VideoRecord, category string) []catalog.VideoRecord {
	out := list[:0]
	for _, v := range list {
		if v.Category == category {
			out = append(out, v)
		}
	}
	return out
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	v, ok := s.visibleVideo(r, chi.URLParam(r, "id"))
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return
	}
	writeJSON(w, http.StatusOK, s.detail(v))
}

func (s *Server) detail(v catalog.VideoRecord) videoDetail {
	d := videoDetail{
		VideoRecord: v,
		PlaybackURL: s.playbackURL(v.Source),
		Uploaded:    catalog.RelativeUploadLabel(v.UploadedAt, s.now()),
		ViewsLabel:  catalog.FormatViews(v.Views),
	}
	return d
}

// playbackURL maps a source reference to a URL served by this process.
func (s *Server) playbackURL(src string) string {
	switch {
	case src == "":
		return ""
	case transient.IsRef(src):
		return "/media/blob/" + transient.Token(src)
	case strings.HasPrefix(src, "/"), strings.Contains(src, "://"):
		return src
	default:
		return "/" + src
	}
}

// visibleVideo hides private videos from everyone but their owner.
func (s *Server) visibleVideo(r *http.Request, id string) (catalog.VideoRecord, bool) {
	v, ok := s.catalog.Video(id)
	if !ok {
		return catalog.VideoRecord{}, false
	}
	var viewer string
	if u, signedIn := auth.UserFromContext(r.Context()); signedIn {
		viewer = u.ID
	}
	if !v.VisibleTo(viewer) {
		return catalog.VideoRecord{}, false
	}
	return v, true
}

func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeProblem(w, r, http.StatusUnauthorized, "sign in to upload")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "missing file")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "failed to read upload")
		return
	}
	visibility := catalog.Visibility(r.FormValue("visibility"))
	if !visibility.Valid() {
		writeProblem(w, r, http.StatusBadRequest, "unknown visibility")
		return
	}

	v, err := s.catalog.AddVideo(r.Context(), u.Owner(), catalog.Draft{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Visibility:  visibility,
	}, catalog.Upload{
		Data:     data,
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
	})
	switch {
	case errors.Is(err, catalog.ErrUnauthenticated):
		writeProblem(w, r, http.StatusUnauthorized, "sign in to upload")
		return
	case errors.Is(err, catalog.ErrEmptyUpload):
		writeProblem(w, r, http.StatusBadRequest, "empty upload")
		return
	case err != nil:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str("event", "api.upload_failed").Msg("upload failed")
		writeProblem(w, r, http.StatusInternalServerError, "upload failed")
		return
	}
	s.audit.VideoChanged(r, audit.EventVideoUpload, v.ID)
	writeJSON(w, http.StatusCreated, s.detail(v))
}

// ownedVideo loads id and checks that the signed-in user owns it.
func (s *Server) ownedVideo(w http.ResponseWriter, r *http.Request) (catalog.VideoRecord, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeProblem(w, r, http.StatusUnauthorized, "sign in required")
		return catalog.VideoRecord{}, false
	}
	v, ok := s.catalog.Video(chi.URLParam(r, "id"))
	if !ok || !v.VisibleTo(u.ID) {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return catalog.VideoRecord{}, false
	}
	if v.ChannelID != u.ID || v.IsStatic() {
		s.audit.Forbidden(r, v.ID)
		writeProblem(w, r, http.StatusForbidden, "not the owner of this video")
		return catalog.VideoRecord{}, false
	}
	return v, true
}

func (s *Server) handleUpdateVideo(w http.ResponseWriter, r *http.Request) {
	v, ok := s.ownedVideo(w, r)
	if !ok {
		return
	}
	var patch catalog.Patch
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if patch.Visibility != nil && !patch.Visibility.Valid() {
		writeProblem(w, r, http.StatusBadRequest, "unknown visibility")
		return
	}
	updated, ok := s.catalog.UpdateVideo(r.Context(), v.ID, patch)
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return
	}
	s.audit.VideoChanged(r, audit.EventVideoUpdate, updated.ID)
	writeJSON(w, http.StatusOK, s.detail(updated))
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	v, ok := s.ownedVideo(w, r)
	if !ok {
		return
	}
	if !s.catalog.DeleteVideo(r.Context(), v.ID) {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return
	}
	s.audit.VideoChanged(r, audit.EventVideoDelete, v.ID)
	w.WriteHeader(http.StatusNoContent)
}

type counterResponse struct {
	ID    string `json:"id"`
	Count int64  `json:"count"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, ok := s.visibleVideo(r, chi.URLParam(r, "id"))
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return
	}
	n, ok := s.catalog.IncrementViews(v.ID)
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return
	}
	if u, signedIn := auth.UserFromContext(r.Context()); signedIn && s.collections != nil {
		_ = s.collections.AddToHistory(r.Context(), u.ID, v.ID)
	}
	writeJSON(w, http.StatusOK, counterResponse{ID: v.ID, Count: n})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	v, ok := s.visibleVideo(r, chi.URLParam(r, "id"))
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return
	}
	n, ok := s.catalog.LikeVideo(v.ID)
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return
	}
	writeJSON(w, http.StatusOK, counterResponse{ID: v.ID, Count: n})
}

func (s *Server) handleChannelVideos(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "userID")
	list := s.catalog.ByOwner(owner)
	if u, ok := auth.UserFromContext(r.Context()); !ok || u.ID != owner {
		public := list[:0]
		for _, v := range list {
			if v.Visibility.IsPublic() {
				public = append(public, v)
			}
		}
		list = public
	}
	writeJSON(w, http.StatusOK, catalog.ProjectAll(list, s.now()))
}
