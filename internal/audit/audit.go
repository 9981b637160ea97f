// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package audit writes WHO/WHAT/WHEN records for catalog changes and
// rejected credentials.
package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/vidshelf/internal/log"
	"github.com/rs/zerolog"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventConfigReload EventType = "config.reload"

	EventVideoUpload EventType = "video.upload"
	EventVideoUpdate EventType = "video.update"
	EventVideoDelete EventType = "video.delete"

	EventAuthFailure  EventType = "auth.failure"
	EventAPIForbidden EventType = "api.forbidden"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	Actor      string // user id, client address or "system"
	Action     string
	Resource   string
	Result     string // success, failure, denied
	RemoteAddr string
	UserAgent  string
	RequestID  string
	Details    map[string]string
}

// Logger provides audit logging functionality.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger returns a Logger on the "audit" component of the global logger.
func NewLogger() *Logger {
	return New(log.WithComponent("audit"))
}

// New returns a Logger writing to base.
func New(base zerolog.Logger) *Logger {
	return &Logger{logger: base.With().Str("log_type", "audit").Logger()}
}

// Log writes an audit event to the audit log.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	evt := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)
	if event.RemoteAddr != "" {
		evt.Str("remote_addr", event.RemoteAddr)
	}
	if event.UserAgent != "" {
		evt.Str("user_agent", event.UserAgent)
	}
	if event.RequestID != "" {
		evt.Str("request_id", event.RequestID)
	}
	for key, value := range event.Details {
		evt.Str(key, value)
	}
	evt.Msg("audit event")
}

// FromRequest fills the request metadata of event from r and logs it.
func (l *Logger) FromRequest(r *http.Request, event Event) {
	if event.RequestID == "" {
		event.RequestID = log.RequestIDFromContext(r.Context())
	}
	if event.RemoteAddr == "" {
		event.RemoteAddr = r.RemoteAddr
	}
	if event.UserAgent == "" {
		event.UserAgent = r.UserAgent()
	}
	if event.Actor == "" {
		event.Actor = actor(r.Context(), r.RemoteAddr)
	}
	l.Log(event)
}

func actor(ctx context.Context, fallback string) string {
	if id := log.UserIDFromContext(ctx); id != "" {
		return id
	}
	return fallback
}

// VideoChanged records a successful catalog mutation of videoID.
func (l *Logger) VideoChanged(r *http.Request, typ EventType, videoID string) {
	action := map[EventType]string{
		EventVideoUpload: "uploaded video",
		EventVideoUpdate: "updated video",
		EventVideoDelete: "deleted video",
	}[typ]
	l.FromRequest(r, Event{
		Type:     typ,
		Action:   action,
		Resource: videoID,
		Result:   "success",
	})
}

// Forbidden records a mutation refused because the caller does not own videoID.
func (l *Logger) Forbidden(r *http.Request, videoID string) {
	l.FromRequest(r, Event{
		Type:     EventAPIForbidden,
		Action:   r.Method + " " + r.URL.Path,
		Resource: videoID,
		Result:   "denied",
	})
}

// AuthFailure records a request that carried an unknown credential.
func (l *Logger) AuthFailure(r *http.Request, reason string) {
	l.FromRequest(r, Event{
		Type:     EventAuthFailure,
		Actor:    r.RemoteAddr,
		Action:   "authentication failed",
		Resource: r.URL.Path,
		Result:   "failure",
		Details:  map[string]string{"reason": reason},
	})
}

// ConfigReload logs a configuration reload event.
func (l *Logger) ConfigReload(actor, result string, details map[string]string) {
	l.Log(Event{
		Type:     EventConfigReload,
		Actor:    actor,
		Action:   "reloaded configuration",
		Resource: "config",
		Result:   result,
		Details:  details,
	})
}
