package identity

import "go.uber.org/fx"

var Module = fx.Module("auth.identity",
	fx.Provide(
		fx.Annotate(NewClient, fx.As(new(TokenClient))),
		NewAuthenticator,
	),
)
