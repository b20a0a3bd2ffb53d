package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/storefront/internal/auth/session"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	viewerdomain "github.com/smallbiznis/storefront/internal/viewer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTokenClient struct {
	users     map[string]string
	becomeErr error
	calls     []string
}

func (f *fakeTokenClient) CurrentUser(_ context.Context, token string) (*viewerdomain.Viewer, error) {
	f.calls = append(f.calls, "current:"+token)
	raw, ok := f.users[token]
	if !ok {
		return nil, ErrUnauthorized
	}
	var v viewerdomain.Viewer
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (f *fakeTokenClient) Become(_ context.Context, email, token string) (string, error) {
	f.calls = append(f.calls, "become:"+email+":"+token)
	if f.becomeErr != nil {
		return "", f.becomeErr
	}
	return "as-" + email, nil
}

type authHarness struct {
	auth   *Authenticator
	client *fakeTokenClient
	store  *session.MemoryStore
}

func newAuthHarness(t *testing.T, cfg config.Config) authHarness {
	t.Helper()
	client := &fakeTokenClient{users: map[string]string{
		"tok":                `{"id":1,"email":"jane@example.com"}`,
		"dev":                `{"id":99,"email":"dev@example.com"}`,
		"as-bob@example.com": `{"id":2,"email":"bob@example.com"}`,
	}}
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := session.NewMemoryStore(time.Hour, clk)
	auth := NewAuthenticator(Params{
		Config:     cfg,
		Storefront: config.NewStaticStorefrontConfigHolder(config.DefaultStorefrontConfig()),
		Client:     client,
		Store:      store,
		Clock:      clk,
		Log:        zap.NewNop(),
	})
	return authHarness{auth: auth, client: client, store: store}
}

func TestCheckDevTokenTakesPrecedence(t *testing.T) {
	h := newAuthHarness(t, config.Config{Environment: "development", DevUserToken: "dev"})

	v, _, err := h.auth.Check(context.Background(), "sid", viewerdomain.PageLocation{Path: "/redirect", Hash: "#access_token=tok"})
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", v.Email)
	assert.Equal(t, []string{"current:dev"}, h.client.calls)
}

func TestCheckIgnoresDevTokenOutsideDevelopment(t *testing.T) {
	h := newAuthHarness(t, config.Config{Environment: "production", DevUserToken: "dev"})

	v, _, err := h.auth.Check(context.Background(), "sid", viewerdomain.PageLocation{Path: "/"})
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Empty(t, h.client.calls)
}

func TestCheckImpersonates(t *testing.T) {
	h := newAuthHarness(t, config.Config{})

	v, viewAs, err := h.auth.Check(context.Background(), "sid", viewerdomain.PageLocation{
		Path:   "/",
		Search: "?show-as-user=bob@example.com",
		Hash:   "#access_token=tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", viewAs)
	assert.Equal(t, "bob@example.com", v.Email)
	assert.Equal(t, []string{"become:bob@example.com:tok", "current:as-bob@example.com"}, h.client.calls)
}

func TestCheckCompletesOAuthHandshakeAndCaches(t *testing.T) {
	h := newAuthHarness(t, config.Config{})
	ctx := context.Background()

	v, _, err := h.auth.Check(ctx, "sid", viewerdomain.PageLocation{Path: "/redirect", Hash: "#access_token=tok&token_type=bearer"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", v.Email)

	record, err := h.store.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "tok", record.AccessToken)

	cached, _, err := h.auth.Check(ctx, "sid", viewerdomain.PageLocation{Path: "/articles"})
	require.NoError(t, err)
	assert.True(t, viewerdomain.Equal(v, cached))
}

func TestCheckOAuthLandingWithoutToken(t *testing.T) {
	h := newAuthHarness(t, config.Config{})

	_, _, err := h.auth.Check(context.Background(), "sid", viewerdomain.PageLocation{Path: "/redirect"})
	assert.ErrorIs(t, err, ErrTokenRequired)
}

func TestCheckImpersonationFailure(t *testing.T) {
	h := newAuthHarness(t, config.Config{})
	h.client.becomeErr = errors.New("forbidden")

	_, _, err := h.auth.Check(context.Background(), "sid", viewerdomain.PageLocation{Search: "show-as-user=bob@example.com", Hash: "access_token=tok"})
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	h := newAuthHarness(t, config.Config{})
	ctx := context.Background()

	_, err := h.auth.Refresh(ctx, "sid")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, h.store.Set(ctx, "sid", session.Record{Viewer: json.RawMessage(`{"id":1}`), AccessToken: "tok"}))
	v, err := h.auth.Refresh(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", v.Email)

	require.NoError(t, h.store.Set(ctx, "sid", session.Record{Viewer: json.RawMessage(`{"id":1}`), AccessToken: "revoked"}))
	_, err = h.auth.Refresh(ctx, "sid")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClientCurrentUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/current", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"email":"jane@example.com","purchased":[{"site":"s","bulk":false}]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.Config{AuthDomain: srv.URL}, zap.NewNop())

	v, err := client.CurrentUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", v.Email)
	require.Len(t, v.Purchased, 1)
	assert.True(t, v.Purchased[0].IsIndividual())

	_, err = client.CurrentUser(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClientBecome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bob@example.com", body["email"])
		assert.Equal(t, "client-1", body["client_id"])
		_, _ = w.Write([]byte(`{"access_token":"bob-token"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.Config{AuthDomain: srv.URL, ClientID: "client-1"}, zap.NewNop())
	token, err := client.Become(context.Background(), "bob@example.com", "admin")
	require.NoError(t, err)
	assert.Equal(t, "bob-token", token)
}

func TestClientRequiresAuthDomain(t *testing.T) {
	client := NewClient(config.Config{}, zap.NewNop())
	_, err := client.CurrentUser(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrAuthDomainRequired)
}
