package migration

import (
	"github.com/smallbiznis/storefront/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.PurchaseCacheEnabled {
			log.Info("purchase cache disabled, skipping migrations")
			return nil
		}
		return Run(conn)
	}),
)
