// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package auth maps request credentials to the acting user.
package auth

import (
	"context"
	"net/http"

	"github.com/ManuGH/vidshelf/internal/catalog"
)

// User is the identity consumed by the catalog.
type User struct {
	ID          string
	DisplayName string
	AvatarRef   string
}

// Owner converts u to the catalog's owner type.
func (u *User) Owner() catalog.Owner {
	if u == nil {
		return catalog.Owner{}
	}
	return catalog.Owner{ID: u.ID, DisplayName: u.DisplayName, AvatarRef: u.AvatarRef}
}

// Source resolves the current user of a request.
type Source interface {
	CurrentUser(r *http.Request) (*User, bool)
}

type ctxKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the user stored by WithUser.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*User)
	return u, ok && u != nil
}
