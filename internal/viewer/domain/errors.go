package domain

import "errors"

var (
	ErrSessionRequired  = errors.New("session_required")
	ErrNotFound         = errors.New("viewer_not_found")
	ErrEventNotAccepted = errors.New("event_not_accepted")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrInstanceClosed   = errors.New("viewer_closed")
)
