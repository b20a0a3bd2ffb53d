package session

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("auth.session",
	fx.Provide(NewManager),
	fx.Provide(NewRedisClient),
	fx.Provide(NewStore),
)

// NewRedisClient connects to REDIS_ADDR. It returns nil when redis is not
// configured; consumers fall back to in-process behavior.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	addr := strings.TrimSpace(cfg.Session.RedisAddr)
	if addr == "" {
		return nil
	}
	log = log.Named("redis")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Session.RedisPassword,
		DB:       cfg.Session.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

// NewStore uses redis when a client is available and falls back to memory.
func NewStore(cfg config.Config, clk clock.Clock, client *redis.Client, log *zap.Logger) Store {
	log = log.Named("auth.session")
	if client == nil {
		log.Info("session store: memory")
		return NewMemoryStore(cfg.Session.TTL, clk)
	}
	log.Info("session store: redis", zap.String("addr", client.Options().Addr))
	return NewRedisStore(client, cfg.Session.TTL)
}
