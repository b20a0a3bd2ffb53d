package observability

import (
	"testing"

	"github.com/smallbiznis/storefront/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment: "production",
		AppVersion:  " 1.2.0 ",
		Observability: config.ObservabilityConfig{
			LogLevel:      "info",
			LogFormat:     "yaml",
			SamplingRatio: 3,
		},
	})

	assert.Equal(t, "storefront", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigDebug(t *testing.T) {
	assert.True(t, LoadConfig(config.Config{Environment: "development"}).Debug())
	assert.True(t, LoadConfig(config.Config{
		Environment:   "production",
		Observability: config.ObservabilityConfig{LogLevel: "debug"},
	}).Debug())
}
