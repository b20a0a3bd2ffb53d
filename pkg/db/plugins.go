package db

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

// statsRefreshSeconds is how often pool stats are copied into prometheus.
const statsRefreshSeconds = 15

// usePlugins attaches query tracing and connection pool metrics. Pool stats
// are registered on the default registry and served by /metrics.
func usePlugins(conn *gorm.DB, cfg Config) error {
	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Name))); err != nil {
		return fmt.Errorf("otelgorm: %w", err)
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          cfg.Name,
		RefreshInterval: statsRefreshSeconds,
		StartServer:     false,
	})); err != nil {
		return fmt.Errorf("gorm prometheus: %w", err)
	}
	return nil
}
