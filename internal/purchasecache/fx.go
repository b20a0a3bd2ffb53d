package purchasecache

import "go.uber.org/fx"

var Module = fx.Module("purchasecache",
	fx.Provide(NewRepository),
)
