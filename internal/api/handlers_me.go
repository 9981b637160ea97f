// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/ManuGH/vidshelf/internal/auth"
	"github.com/ManuGH/vidshelf/internal/catalog"
	"github.com/ManuGH/vidshelf/internal/log"
	"github.com/go-chi/chi/v5"
)

type meResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

type videoRef struct {
	VideoID string `json:"videoId"`
}

// All /api/me handlers run behind requireUser.
func currentUser(r *http.Request) *auth.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeJSON(w, http.StatusOK, meResponse{ID: u.ID, DisplayName: u.DisplayName, Avatar: u.AvatarRef})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeJSON(w, http.StatusOK, catalog.ProjectAll(s.collections.History(r.Context(), u.ID), s.now()))
}

func (s *Server) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.decodeVideoRef(w, r)
	if !ok {
		return
	}
	u := currentUser(r)
	if err := s.collections.AddToHistory(r.Context(), u.ID, id); err != nil {
		s.logCollectionError(r, err, "history")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.collections.ClearHistory(r.Context(), u.ID); err != nil {
		s.logCollectionError(r, err, "history")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWatchLater(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeJSON(w, http.StatusOK, catalog.ProjectAll(s.collections.SaveForLater(r.Context(), u.ID), s.now()))
}

func (s *Server) handleAddWatchLater(w http.ResponseWriter, r *http.Request) {
	id, ok := s.decodeVideoRef(w, r)
	if !ok {
		return
	}
	u := currentUser(r)
	if err := s.collections.AddToSaveForLater(r.Context(), u.ID, id); err != nil {
		s.logCollectionError(r, err, "watch_later")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveWatchLater(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.collections.RemoveFromSaveForLater(r.Context(), u.ID, chi.URLParam(r, "videoID")); err != nil {
		s.logCollectionError(r, err, "watch_later")
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeVideoRef reads {"videoId": "..."} and checks the video is visible to the caller.
func (s *Server) decodeVideoRef(w http.ResponseWriter, r *http.Request) (string, bool) {
	var ref videoRef
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&ref); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}
	ref.VideoID = strings.TrimSpace(ref.VideoID)
	if ref.VideoID == "" {
		writeProblem(w, r, http.StatusBadRequest, "videoId is required")
		return "", false
	}
	if _, ok := s.visibleVideo(r, ref.VideoID); !ok {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return "", false
	}
	return ref.VideoID, true
}

// Collection writes are best effort; the in-memory list is already updated.
func (s *Server) logCollectionError(r *http.Request, err error, list string) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Warn().Err(err).
		Str("event", "api.collection_save_failed").
		Str("list", list).
		Msg("collection not persisted")
}
