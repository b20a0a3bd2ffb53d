package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("session_not_found")
	ErrSessionIDRequired = errors.New("session_id_required")
)

// Record is what a browser session remembers about its viewer.
type Record struct {
	Viewer      json.RawMessage `json:"viewer,omitempty"`
	AccessToken string          `json:"access_token,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r *Record) Empty() bool {
	if r == nil {
		return true
	}
	switch string(r.Viewer) {
	case "", "null", "{}":
		return true
	}
	return false
}

// Store persists viewer sessions keyed by the `_sid` cookie value.
type Store interface {
	Get(ctx context.Context, sid string) (*Record, error)
	Set(ctx context.Context, sid string, record Record) error
	Clear(ctx context.Context, sid string) error
	// Monitor calls onTick every interval until the returned stop func is
	// called or ctx is done.
	Monitor(ctx context.Context, sid string, interval time.Duration, onTick func(ctx context.Context)) (stop func())
}

func poll(ctx context.Context, interval time.Duration, onTick func(ctx context.Context)) func() {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				onTick(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
