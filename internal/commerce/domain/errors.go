package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSellableRequired   = errors.New("sellable_required")
	ErrAuthDomainRequired = errors.New("auth_domain_required")
	ErrPriceNotFound      = errors.New("price_not_found")
	ErrNotFound           = errors.New("not_found")
	ErrEventNotAccepted   = errors.New("event_not_accepted")
	ErrInvalidEvent       = errors.New("invalid_event")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInstanceClosed     = errors.New("instance_closed")
)

// RemoteError is a non-2xx answer from one of the commerce APIs.
type RemoteError struct {
	Status  int
	Message string
	Body    []byte
}

// NewRemoteError keeps the raw body and extracts the provider message from
// {"error": "..."} or {"error": {"message": "..."}}.
func NewRemoteError(status int, body []byte) *RemoteError {
	e := &RemoteError{Status: status, Body: body}

	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Error) == 0 {
		return e
	}
	var message string
	if err := json.Unmarshal(payload.Error, &message); err == nil {
		e.Message = strings.TrimSpace(message)
		return e
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		e.Message = strings.TrimSpace(nested.Message)
	}
	return e
}

func (e *RemoteError) Error() string {
	if body := strings.TrimSpace(string(e.Body)); body != "" {
		return body
	}
	return fmt.Sprintf("remote request failed with status %d", e.Status)
}

func (e *RemoteError) HTTPStatus() int { return e.Status }
