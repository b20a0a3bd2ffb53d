package session

import (
	"context"
	"encoding/json"
	"os"
	"sync/atomic"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNotFound)

	record := Record{Viewer: json.RawMessage(`{"email":"jane@example.com"}`), AccessToken: "tok"}
	require.NoError(t, store.Set(ctx, "sid-1", record))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"jane@example.com"}`, string(got.Viewer))
	assert.Equal(t, "tok", got.AccessToken)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, store.Clear(ctx, "sid-1"))
	_, err = store.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, " ")
	assert.ErrorIs(t, err, ErrSessionIDRequired)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour, nil))
}

func TestMemoryStoreExpires(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewMemoryStore(time.Minute, clk)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid", Record{Viewer: json.RawMessage(`{"id":1}`)}))
	clk.Advance(59 * time.Second)
	_, err := store.Get(ctx, "sid")
	require.NoError(t, err)

	clk.Advance(time.Second)
	_, err = store.Get(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedisStore(client, time.Minute))
}

func TestMonitorStopsTicking(t *testing.T) {
	store := NewMemoryStore(0, nil)
	var ticks atomic.Int32

	stop := store.Monitor(context.Background(), "sid", 5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})
	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)

	stop()
	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestRecordEmpty(t *testing.T) {
	var nilRecord *Record
	assert.True(t, nilRecord.Empty())
	assert.True(t, (&Record{}).Empty())
	assert.True(t, (&Record{Viewer: json.RawMessage(`null`)}).Empty())
	assert.True(t, (&Record{Viewer: json.RawMessage(`{}`)}).Empty())
	assert.False(t, (&Record{Viewer: json.RawMessage(`{"id":1}`)}).Empty())
}
