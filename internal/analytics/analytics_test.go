package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smallbiznis/storefront/internal/config"
	viewerdomain "github.com/smallbiznis/storefront/internal/viewer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIdentifyPostsTraits(t *testing.T) {
	var got identifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "wk", user)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	t.Cleanup(srv.Close)

	client := New(config.Config{Analytics: config.AnalyticsConfig{IdentifyURL: srv.URL, WriteKey: "wk"}}, zap.NewNop())
	err := client.Identify(context.Background(), &viewerdomain.Viewer{ID: "7", Email: "jane@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "7", got.UserID)
	assert.Equal(t, "jane@example.com", got.Traits["email"])
}

func TestIdentifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := New(config.Config{Analytics: config.AnalyticsConfig{IdentifyURL: srv.URL}}, zap.NewNop())
	assert.Error(t, client.Identify(context.Background(), &viewerdomain.Viewer{ID: "7"}))
}

func TestIdentifyWithoutEndpointIsNoop(t *testing.T) {
	client := New(config.Config{}, zap.NewNop())
	assert.NoError(t, client.Identify(context.Background(), &viewerdomain.Viewer{ID: "7"}))
	assert.NoError(t, client.Identify(context.Background(), nil))
}
