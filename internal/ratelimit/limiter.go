package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/storefront/internal/config"
	"go.uber.org/zap"
)

const keyPattern = "storefront:ratelimit:%s:%s"

// Scopes name the throttled endpoints.
const (
	ScopeCommerceMachines = "commerce_machines"
	ScopeStripePrices     = "stripe_prices"
)

// Limiter throttles callers per scope. A nil or disabled limiter allows
// everything.
type Limiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *Limiter {
	log = log.Named("ratelimit")
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		log.Info("rate limiting disabled")
		return nil
	}
	if limitCfg.Rate <= 0 || limitCfg.Burst <= 0 {
		log.Warn("rate limiting disabled: rate and burst must be positive",
			zap.Float64("rate", limitCfg.Rate),
			zap.Int("burst", limitCfg.Burst),
		)
		return nil
	}
	return &Limiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.Rate,
		burst:  limitCfg.Burst,
		log:    log,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one request for caller within scope.
func (l *Limiter) Allow(ctx context.Context, scope, caller string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyPattern, scope, strings.TrimSpace(caller))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
