// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldVideoID   = "video_id"
	FieldUserID    = "user_id"
	FieldCommentID = "comment_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldBackend   = "backend"
	FieldKey       = "key"

	// Media fields
	FieldFilename = "filename"
	FieldDuration = "duration_seconds"
	FieldBytes    = "bytes"
	FieldRef      = "ref"

	// Path fields
	FieldPath = "path"
)
