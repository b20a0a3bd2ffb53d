package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewStorefrontConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// SiteName is the `site` column of every sellable sold here.
	SiteName     string
	ClientID     string
	AuthDomain   string
	SupportEmail string

	// DevUserToken establishes a session directly, bypassing the identity handshake.
	// Only honoured in development.
	DevUserToken string

	Stripe     StripeConfig
	ConvertKit ConvertKitConfig
	Session    SessionConfig
	Analytics  AnalyticsConfig
	RateLimit  RateLimitConfig

	Observability ObservabilityConfig

	PurchaseCacheEnabled bool

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

type StripeConfig struct {
	APIBaseURL          string
	SecretKey           string
	CheckoutSessionsURL string
	SuccessURL          string
	CancelURL           string
	CheckoutBaseURL     string
	PricesURL           string
}

type ConvertKitConfig struct {
	BaseURL   string
	PublicKey string
	FormID    string
}

type AnalyticsConfig struct {
	IdentifyURL string
	WriteKey    string
}

// RateLimitConfig throttles the public endpoints that fan out to paid APIs.
// Limits are enforced only when redis is configured.
type RateLimitConfig struct {
	Enabled bool
	Rate    float64
	Burst   int
}

// ObservabilityConfig follows the OTEL_* environment conventions.
type ObservabilityConfig struct {
	LogLevel         string
	LogFormat        string
	OtelEnabled      bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

type SessionConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PollInterval  time.Duration
	TTL           time.Duration
	// IdleTTL closes machine instances nobody has read or driven for this
	// long. SweepInterval is how often they are checked.
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// InstanceIdleTTL is IdleTTL capped at the session TTL.
func (c SessionConfig) InstanceIdleTTL() time.Duration {
	if c.TTL > 0 && (c.IdleTTL <= 0 || c.IdleTTL > c.TTL) {
		return c.TTL
	}
	return c.IdleTTL
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "storefront"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  environment,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		SiteName:     strings.TrimSpace(getenv("SITE_NAME", "")),
		ClientID:     strings.TrimSpace(getenv("CLIENT_ID", "")),
		AuthDomain:   strings.TrimRight(strings.TrimSpace(getenv("AUTH_DOMAIN", "")), "/"),
		SupportEmail: strings.TrimSpace(getenv("SUPPORT_EMAIL", "support@example.com")),
		Stripe: StripeConfig{
			APIBaseURL:          strings.TrimRight(getenv("STRIPE_API_BASE_URL", "https://api.stripe.com"), "/"),
			SecretKey:           strings.TrimSpace(getenv("STRIPE_SECRET_TOKEN", "")),
			CheckoutSessionsURL: strings.TrimSpace(getenv("STRIPE_CHECKOUT_SESSIONS_URL", "")),
			SuccessURL:          strings.TrimSpace(getenv("STRIPE_CHECKOUT_SESSIONS_SUCCESS_URL", "")),
			CancelURL:           strings.TrimSpace(getenv("STRIPE_CHECKOUT_SESSIONS_CANCEL_URL", "")),
			CheckoutBaseURL:     strings.TrimRight(getenv("STRIPE_CHECKOUT_BASE_URL", "https://checkout.stripe.com/pay"), "/"),
			PricesURL:           strings.TrimSpace(getenv("STRIPE_PRICES_URL", "http://localhost:8080/api/stripe/prices")),
		},
		ConvertKit: ConvertKitConfig{
			BaseURL:   strings.TrimRight(getenv("CONVERTKIT_BASE_URL", "https://api.convertkit.com/v3"), "/"),
			PublicKey: strings.TrimSpace(getenv("CONVERTKIT_PUBLIC_KEY", "")),
			FormID:    strings.TrimSpace(getenv("CONVERTKIT_SIGNUP_FORM", "")),
		},
		Session: SessionConfig{
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("REDIS_DB", 0),
			PollInterval:  time.Duration(getenvInt("SESSION_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
			TTL:           time.Duration(getenvInt("SESSION_TTL_HOURS", 24*30)) * time.Hour,
			IdleTTL:       time.Duration(getenvInt("SESSION_IDLE_TTL_MINUTES", 30)) * time.Minute,
			SweepInterval: time.Duration(getenvInt("SESSION_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
		},
		Analytics: AnalyticsConfig{
			IdentifyURL: strings.TrimSpace(getenv("ANALYTICS_IDENTIFY_URL", "")),
			WriteKey:    strings.TrimSpace(getenv("ANALYTICS_WRITE_KEY", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled: getenvBool("RATE_LIMIT_ENABLED", true),
			Rate:    getenvFloat("RATE_LIMIT_RPS", 2),
			Burst:   getenvInt("RATE_LIMIT_BURST", 10),
		},
		Observability: ObservabilityConfig{
			LogLevel:         strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:        strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:      getenvBool("OTEL_ENABLED", environment == "production"),
			ExporterEndpoint: strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
			ExporterProtocol: strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			SamplingRatio:    getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		PurchaseCacheEnabled: getenvBool("PURCHASE_CACHE_ENABLED", true),
		DBType:               getenv("DATABASE_TYPE", "sqlite"),
		DBHost:               getenv("DATABASE_HOST", "localhost"),
		DBPort:               getenv("DATABASE_PORT", "5432"),
		DBName:               getenv("DATABASE_NAME", "storefront"),
		DBUser:               getenv("DATABASE_USER", "postgres"),
		DBPassword:           getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:            getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:        getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:        getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:    getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:    getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
	}

	if !cfg.IsDevelopment() {
		cfg.DevUserToken = ""
	} else {
		cfg.DevUserToken = strings.TrimSpace(getenv("DEV_USER_TOKEN", ""))
	}

	return cfg
}

func (c Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
