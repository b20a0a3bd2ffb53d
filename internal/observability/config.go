package observability

import (
	"strings"

	"github.com/smallbiznis/storefront/internal/auth/session"
	"github.com/smallbiznis/storefront/internal/config"
)

// Config is the observability view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	debug bool
}

func LoadConfig(cfg config.Config) Config {
	obs := cfg.Observability

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "storefront"
	}
	format := obs.LogFormat
	if format != "console" {
		format = "json"
	}
	ratio := obs.SamplingRatio
	if ratio < 0 || ratio > 1 {
		ratio = 0.1
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             obs.LogLevel,
		LogFormat:            format,
		OtelEnabled:          obs.OtelEnabled,
		OtelExporterEndpoint: obs.ExporterEndpoint,
		OtelExporterProtocol: obs.ExporterProtocol,
		OtelSamplingRatio:    ratio,
		debug:                obs.LogLevel == "debug" || cfg.IsDevelopment(),
	}
}

// Debug reports whether request logs include debug detail.
func (c Config) Debug() bool {
	return c.debug
}

// sessionCookie is logged as session_id on every request.
const sessionCookie = session.DefaultCookieName
