package service

import (
	"context"

	"github.com/smallbiznis/storefront/internal/viewer/domain"
)

// Authenticator resolves viewer identities for a browser session.
type Authenticator interface {
	Check(ctx context.Context, sid string, page domain.PageLocation) (*domain.Viewer, string, error)
	Refresh(ctx context.Context, sid string) (*domain.Viewer, error)
	Cached(ctx context.Context, sid string) (*domain.Viewer, error)
}

type Identifier interface {
	Identify(ctx context.Context, v *domain.Viewer) error
}
