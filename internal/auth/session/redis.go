package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keySession = "storefront:session:%s"

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, sid string) (*Record, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return nil, ErrSessionIDRequired
	}

	raw, err := s.client.Get(ctx, fmt.Sprintf(keySession, sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Set(ctx context.Context, sid string, record Record) error {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return ErrSessionIDRequired
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, fmt.Sprintf(keySession, sid), raw, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, sid string) error {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return nil
	}
	return s.client.Del(ctx, fmt.Sprintf(keySession, sid)).Err()
}

// Monitor polls; another tab or device logging in writes the same key.
func (s *RedisStore) Monitor(ctx context.Context, sid string, interval time.Duration, onTick func(ctx context.Context)) func() {
	return poll(ctx, interval, onTick)
}
