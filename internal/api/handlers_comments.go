// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ManuGH/vidshelf/internal/auth"
	"github.com/ManuGH/vidshelf/internal/comments"
	"github.com/ManuGH/vidshelf/internal/log"
	"github.com/go-chi/chi/v5"
)

type commentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	v, ok := s.visibleVideo(r, chi.URLParam(r, "id"))
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return
	}
	writeJSON(w, http.StatusOK, s.comments.For(v.ID))
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeProblem(w, r, http.StatusUnauthorized, "sign in to comment")
		return
	}
	v, ok := s.visibleVideo(r, chi.URLParam(r, "id"))
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "video not found")
		return
	}
	var req commentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := s.comments.Add(r.Context(), v.ID, u.DisplayName, u.AvatarRef, req.Text)
	if errors.Is(err, comments.ErrEmptyComment) {
		writeProblem(w, r, http.StatusBadRequest, "comment text is empty")
		return
	}
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str("event", "api.comment_failed").Msg("comment failed")
		writeProblem(w, r, http.StatusInternalServerError, "comment failed")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
