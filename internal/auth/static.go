// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package auth

import (
	"net/http"
)

// Account binds a token to a user.
type Account struct {
	Token string
	User  User
}

// StaticSource authenticates against a fixed account list.
type StaticSource struct {
	accounts []Account
}

// NewStaticSource returns a Source over accounts. Accounts without a token or
// user id are ignored.
func NewStaticSource(accounts []Account) *StaticSource {
	s := &StaticSource{}
	for _, a := range accounts {
		if a.Token == "" || a.User.ID == "" {
			continue
		}
		s.accounts = append(s.accounts, a)
	}
	return s
}

// CurrentUser implements Source. Every account is compared so the time spent
// does not depend on which one matched.
func (s *StaticSource) CurrentUser(r *http.Request) (*User, bool) {
	if r == nil {
		return nil, false
	}
	token := ExtractToken(r)
	if token == "" {
		return nil, false
	}
	var found *User
	for i := range s.accounts {
		if AuthorizeToken(token, s.accounts[i].Token) && found == nil {
			u := s.accounts[i].User
			found = &u
		}
	}
	return found, found != nil
}

// Len returns the number of usable accounts.
func (s *StaticSource) Len() int { return len(s.accounts) }
