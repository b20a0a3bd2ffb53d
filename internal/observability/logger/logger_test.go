package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/storefront/internal/observability/context"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithSessionID(ctx, "sid-1")
	ctx = correlation.ContextWithCorrelationID(ctx, "cid-1")

	WithContext(ctx, zap.New(core)).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "sid-1", fields["session_id"])
	assert.Equal(t, "cid-1", fields["correlation_id"])
}

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
	}{
		{`SELECT * FROM "purchase_cache" WHERE email = $1 LIMIT 1`, "SELECT", "purchase_cache"},
		{"INSERT INTO `purchase_cache` (`id`,`email`) VALUES (?,?)", "INSERT", "purchase_cache"},
		{`UPDATE "purchase_cache" SET "payload"=$1 WHERE email = $2`, "UPDATE", "purchase_cache"},
		{"", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		operation, table := describeSQL(tc.sql)
		assert.Equal(t, tc.operation, operation, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestGormTraceLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := DefaultGormLoggerConfig()
	gl := NewGormLogger(zap.New(core), cfg)
	fc := func() (string, int64) { return `SELECT * FROM "purchase_cache"`, 0 }

	gl.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len(), "expected errors stay quiet at warn level")

	gl.Trace(context.Background(), time.Now(), fc, errors.New("connection refused"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)

	gl.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/health", http.StatusOK, ""))
	assert.Equal(t, zapcore.DebugLevel, requestLevel("/api/commerce/machines/:id/events", http.StatusConflict, "event_not_accepted"))
	assert.Equal(t, zapcore.InfoLevel, requestLevel("/api/commerce/machines/:id/events", http.StatusConflict, "conflict"))
	assert.Equal(t, zapcore.WarnLevel, requestLevel("/api/stripe/prices", http.StatusTooManyRequests, ""))
	assert.Equal(t, zapcore.ErrorLevel, requestLevel("/api/viewer", http.StatusBadGateway, ""))
}

func TestGinMiddlewareLogsSessionAndMachine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{SessionCookie: "_sid"}))
	r.POST("/api/commerce/machines/:id/events", func(c *gin.Context) {
		c.Set("machine_event", "APPLY_COUPON")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/commerce/machines/m-1/events", nil)
	req.AddCookie(&http.Cookie{Name: "_sid", Value: "sid-9"})
	req.Header.Set("X-Request-Id", "req-9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-9", rec.Header().Get("X-Request-Id"))
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "sid-9", fields["session_id"])
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "m-1", fields["machine_id"])
	assert.Equal(t, "APPLY_COUPON", fields["machine_event"])
}
