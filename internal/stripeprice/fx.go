package stripeprice

import "go.uber.org/fx"

var Module = fx.Module("stripeprice",
	fx.Provide(NewClient),
	fx.Provide(NewHandler),
)
