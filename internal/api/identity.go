// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"

	"github.com/ManuGH/vidshelf/internal/auth"
	"github.com/ManuGH/vidshelf/internal/log"
	"github.com/go-chi/httprate"
)

// identify resolves the acting user, if any, and stores it in the request context.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.users == nil {
			next.ServeHTTP(w, r)
			return
		}
		u, ok := s.users.CurrentUser(r)
		if !ok {
			if auth.ExtractToken(r) != "" {
				s.audit.AuthFailure(r, "unknown token")
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := auth.WithUser(r.Context(), u)
		ctx = log.ContextWithUserID(ctx, u.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserFromContext(r.Context()); !ok {
			writeProblem(w, r, http.StatusUnauthorized, "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitKey buckets signed-in users by id and everyone else by client IP.
func rateLimitKey(r *http.Request) (string, error) {
	if u, ok := auth.UserFromContext(r.Context()); ok {
		return "user:" + u.ID, nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + ip, nil
}
