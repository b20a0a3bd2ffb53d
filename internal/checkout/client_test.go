package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_CreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client-1", body["client_id"])
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.stripe.com/c/pay/cs_test_1","object":"checkout.session"}`))
	}))
	defer server.Close()

	cfg := config.Config{Stripe: config.StripeConfig{CheckoutSessionsURL: server.URL}}
	client := NewClient(cfg, zap.NewNop())

	session, err := client.CreateSession(context.Background(), domain.CheckoutSessionRequest{ClientID: "client-1"})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Contains(t, string(session.Raw), "checkout.session")
}

func TestClient_CreateSessionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Coupon expired"}`))
	}))
	defer server.Close()

	cfg := config.Config{Stripe: config.StripeConfig{CheckoutSessionsURL: server.URL}}
	_, err := NewClient(cfg, zap.NewNop()).CreateSession(context.Background(), domain.CheckoutSessionRequest{})
	require.Error(t, err)
	assert.Equal(t, "Coupon expired", ProviderMessage(err, "x"))

	_, err = NewClient(config.Config{}, zap.NewNop()).CreateSession(context.Background(), domain.CheckoutSessionRequest{})
	assert.ErrorIs(t, err, ErrSessionURLRequired)
}

func TestClient_Finalize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sellable_purchases", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":7,"email":"buyer@example.com","quantity":1,"sellable":{"id":42,"slug":"pro-bundle","type":"bundle","title":"Pro"}}`))
	}))
	defer server.Close()

	client := NewClient(config.Config{AuthDomain: server.URL}, zap.NewNop())
	purchase, err := client.Finalize(context.Background(), domain.FinalizeRequest{Email: "buyer@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceID("7"), purchase.ID)
	require.NotNil(t, purchase.Sellable)
	assert.Equal(t, domain.ResourceID("42"), purchase.Sellable.ID)
	assert.Equal(t, "Pro", purchase.Sellable.Title)
}

func TestClient_FinalizeWithoutAuthDomain(t *testing.T) {
	client := NewClient(config.Config{}, zap.NewNop())
	_, err := client.Finalize(context.Background(), domain.FinalizeRequest{})
	assert.ErrorIs(t, err, domain.ErrAuthDomainRequired)
}
