package domain

import "context"

// Service hosts one viewer machine per browser session.
type Service interface {
	Start(ctx context.Context, sessionID string, page PageLocation) (*View, error)
	Get(ctx context.Context, sessionID string) (*View, error)
	Send(ctx context.Context, sessionID string, event Event) (*View, error)
	Close(ctx context.Context, sessionID string) error
}
