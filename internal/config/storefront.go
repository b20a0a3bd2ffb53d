package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Routes are the navigation targets emitted by the machines.
type Routes struct {
	Thanks        string `mapstructure:"thanks"`
	Invoice       string `mapstructure:"invoice"`
	Learn         string `mapstructure:"learn"`
	Login         string `mapstructure:"login"`
	OAuthRedirect string `mapstructure:"oauth_redirect"`
}

// SignupTags are the email-list tags applied after a purchase.
type SignupTags struct {
	Purchased int64 `mapstructure:"purchased"`
	Bulk      int64 `mapstructure:"bulk"`
}

type StorefrontConfig struct {
	Routes     Routes     `mapstructure:"routes"`
	SignupTags SignupTags `mapstructure:"signup_tags"`
}

func DefaultStorefrontConfig() StorefrontConfig {
	return StorefrontConfig{
		Routes: Routes{
			Thanks:        "/thanks",
			Invoice:       "/invoice",
			Learn:         "/learn",
			Login:         "/login",
			OAuthRedirect: "/redirect",
		},
		SignupTags: SignupTags{
			Purchased: 12345,
			Bulk:      1888676,
		},
	}
}

type StorefrontConfigHolder struct {
	current atomic.Value // holds StorefrontConfig
}

// NewStaticStorefrontConfigHolder returns a holder that never reloads.
func NewStaticStorefrontConfigHolder(cfg StorefrontConfig) *StorefrontConfigHolder {
	holder := &StorefrontConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewStorefrontConfigHolder(log *zap.Logger) (*StorefrontConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("storefront.config")

	v := viper.New()
	v.SetConfigName("storefront")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/storefront")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultStorefrontConfig()
	v.SetDefault("storefront.routes.thanks", defaults.Routes.Thanks)
	v.SetDefault("storefront.routes.invoice", defaults.Routes.Invoice)
	v.SetDefault("storefront.routes.learn", defaults.Routes.Learn)
	v.SetDefault("storefront.routes.login", defaults.Routes.Login)
	v.SetDefault("storefront.routes.oauth_redirect", defaults.Routes.OAuthRedirect)
	v.SetDefault("storefront.signup_tags.purchased", defaults.SignupTags.Purchased)
	v.SetDefault("storefront.signup_tags.bulk", defaults.SignupTags.Bulk)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg StorefrontConfig
	if err := v.UnmarshalKey("storefront", &cfg); err != nil {
		return nil, err
	}
	if err := validateStorefrontConfig(cfg); err != nil {
		return nil, err
	}

	holder := &StorefrontConfigHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated StorefrontConfig
			if err := v.UnmarshalKey("storefront", &updated); err != nil {
				log.Warn("reload failed", zap.Error(err))
				return
			}
			if err := validateStorefrontConfig(updated); err != nil {
				log.Warn("invalid config ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *StorefrontConfigHolder) Get() StorefrontConfig {
	return h.current.Load().(StorefrontConfig)
}

func validateStorefrontConfig(cfg StorefrontConfig) error {
	r := cfg.Routes
	if strings.TrimSpace(r.Thanks) == "" || strings.TrimSpace(r.Login) == "" {
		return errors.New("storefront.routes.thanks and storefront.routes.login are required")
	}
	if strings.TrimSpace(r.OAuthRedirect) == "" {
		return errors.New("storefront.routes.oauth_redirect cannot be empty")
	}
	if cfg.SignupTags.Purchased == 0 {
		return errors.New("storefront.signup_tags.purchased cannot be empty")
	}
	return nil
}
