package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/storefront/internal/auth/session"
	commercedomain "github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/internal/config"
	obslogger "github.com/smallbiznis/storefront/internal/observability/logger"
	"github.com/smallbiznis/storefront/internal/stripeprice"
	viewerdomain "github.com/smallbiznis/storefront/internal/viewer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCommerce struct {
	views    map[string]*commercedomain.View
	reject   bool
	received []commercedomain.Event
}

func (f *fakeCommerce) Create(_ context.Context, req commercedomain.CreateRequest) (*commercedomain.View, error) {
	if req.Sellable == nil {
		return nil, commercedomain.ErrSellableRequired
	}
	view := &commercedomain.View{ID: "m-1", State: commercedomain.StateFetchingPrice}
	f.views[view.ID] = view
	return view, nil
}

func (f *fakeCommerce) Get(_ context.Context, id string) (*commercedomain.View, error) {
	view, ok := f.views[id]
	if !ok {
		return nil, commercedomain.ErrNotFound
	}
	return view, nil
}

func (f *fakeCommerce) Send(ctx context.Context, id string, event commercedomain.Event) (*commercedomain.View, error) {
	view, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f.received = append(f.received, event)
	if f.reject {
		return view, commercedomain.ErrEventNotAccepted
	}
	return view, nil
}

func (f *fakeCommerce) Close(_ context.Context, id string) error {
	if _, ok := f.views[id]; !ok {
		return commercedomain.ErrNotFound
	}
	delete(f.views, id)
	return nil
}

type fakeViewers struct {
	views map[string]*viewerdomain.View
}

func (f *fakeViewers) Start(_ context.Context, sid string, _ viewerdomain.PageLocation) (*viewerdomain.View, error) {
	view := &viewerdomain.View{SessionID: sid, State: viewerdomain.StateCheckingIfLoggedIn}
	f.views[sid] = view
	return view, nil
}

func (f *fakeViewers) Get(_ context.Context, sid string) (*viewerdomain.View, error) {
	view, ok := f.views[sid]
	if !ok {
		return nil, viewerdomain.ErrNotFound
	}
	return view, nil
}

func (f *fakeViewers) Send(ctx context.Context, sid string, _ viewerdomain.Event) (*viewerdomain.View, error) {
	view, err := f.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if view.State == viewerdomain.StateCheckingIfLoggedIn {
		return view, viewerdomain.ErrEventNotAccepted
	}
	return view, nil
}

func (f *fakeViewers) Close(_ context.Context, sid string) error {
	delete(f.views, sid)
	return nil
}

type testServer struct {
	*Server
	commerce *fakeCommerce
	viewers  *fakeViewers
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{Environment: "development"}
	commerce := &fakeCommerce{views: map[string]*commercedomain.View{}}
	viewers := &fakeViewers{views: map[string]*viewerdomain.View{}}
	log := zap.NewNop()

	srv := NewServer(ServerParams{
		Gin:      NewEngine(obslogger.MiddlewareConfig{SessionCookie: session.DefaultCookieName}, nil),
		Cfg:      cfg,
		Log:      log,
		Commerce: commerce,
		Viewers:  viewers,
		Sessions: session.NewManager(cfg),
		Prices:   stripeprice.NewHandler(stripeprice.NewClient(cfg, log), log),
	})
	return testServer{Server: srv, commerce: commerce, viewers: viewers}
}

func (ts testServer) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	ts.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateCommerceMachine(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/commerce/machines", map[string]any{
		"sellable": map[string]any{"id": "course-1", "site": "egghead", "type": "playlist"},
		"query":    "?coupon=SAVE",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var view commercedomain.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "m-1", view.ID)
	assert.Equal(t, commercedomain.StateFetchingPrice, view.State)
}

func TestCreateCommerceMachineRequiresSellable(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/commerce/machines", map[string]any{})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "sellable_required", decodeError(t, rec).Type)
}

func TestSendCommerceEvent(t *testing.T) {
	ts := newTestServer(t)
	ts.commerce.views["m-1"] = &commercedomain.View{ID: "m-1", State: commercedomain.StatePriceLoaded}

	rec := ts.do(http.MethodPost, "/api/commerce/machines/m-1/events", map[string]any{"type": "SET_QUANTITY", "quantity": 3, "bulk": true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.commerce.received, 1)
	assert.Equal(t, commercedomain.SetQuantity{Quantity: 3, Bulk: true}, ts.commerce.received[0])
}

func TestSendCommerceEventRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.commerce.views["m-1"] = &commercedomain.View{ID: "m-1", State: commercedomain.StateFetchingPrice}
	ts.commerce.reject = true

	rec := ts.do(http.MethodPost, "/api/commerce/machines/m-1/events", map[string]any{"type": "START_PURCHASE"})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error errorPayload        `json:"error"`
		View  commercedomain.View `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "event_not_accepted", resp.Error.Type)
	assert.Equal(t, commercedomain.StateFetchingPrice, resp.View.State)
}

func TestSendCommerceEventValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.commerce.views["m-1"] = &commercedomain.View{ID: "m-1"}

	cases := []map[string]any{
		{"type": "done.fetchPrice"},
		{"type": "SET_QUANTITY", "quantity": 0},
	}
	for _, body := range cases {
		rec := ts.do(http.MethodPost, "/api/commerce/machines/m-1/events", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, ts.commerce.received)
}

func TestCommerceMachineNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/commerce/machines/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/commerce/machines/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCommerceMachine(t *testing.T) {
	ts := newTestServer(t)
	ts.commerce.views["m-1"] = &commercedomain.View{ID: "m-1"}

	rec := ts.do(http.MethodDelete, "/api/commerce/machines/m-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ts.commerce.views)
}

func TestViewerLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/viewer", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/viewer", map[string]any{"path": "/courses"})
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	assert.Contains(t, ts.viewers.views, cookies[0].Value)

	rec = ts.do(http.MethodGet, "/api/viewer", nil, cookies[0])
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/viewer/events", map[string]any{"type": "REFRESH_VIEWER"}, cookies[0])
	assert.Equal(t, http.StatusConflict, rec.Code)

	ts.viewers.views[cookies[0].Value].State = viewerdomain.StateLoggedInStable
	rec = ts.do(http.MethodPost, "/api/viewer/events", map[string]any{"type": "REFRESH_VIEWER"}, cookies[0])
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/viewer/events", map[string]any{"type": "LOG_IN"}, cookies[0])
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestPurchaseDisabled(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/purchases/latest?email=a@b.co", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{commercedomain.ErrEventNotAccepted, http.StatusConflict},
		{viewerdomain.ErrEventNotAccepted, http.StatusConflict},
		{commercedomain.ErrInvalidQuantity, http.StatusBadRequest},
		{commercedomain.ErrSellableRequired, http.StatusUnprocessableEntity},
		{viewerdomain.ErrNotFound, http.StatusNotFound},
		{commercedomain.ErrAuthDomainRequired, http.StatusServiceUnavailable},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}
