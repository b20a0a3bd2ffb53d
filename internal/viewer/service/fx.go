package service

import (
	"github.com/smallbiznis/storefront/internal/analytics"
	"github.com/smallbiznis/storefront/internal/auth/identity"
	"go.uber.org/fx"
)

var Module = fx.Module("viewer",
	fx.Provide(
		func(a *identity.Authenticator) Authenticator { return a },
		func(c *analytics.Client) Identifier { return c },
		New,
	),
)
