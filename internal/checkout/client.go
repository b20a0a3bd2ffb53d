package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

var ErrSessionURLRequired = errors.New("checkout_sessions_url_required")

// Client talks to the checkout-session endpoint and the purchase API. Requests
// have no timeout; only the caller's context ends them.
type Client struct {
	sessionsURL string
	authDomain  string
	http        *http.Client
	log         *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		sessionsURL: cfg.Stripe.CheckoutSessionsURL,
		authDomain:  cfg.AuthDomain,
		http:        &http.Client{},
		log:         log.Named("checkout.client"),
	}
}

func (c *Client) CreateSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error) {
	if strings.TrimSpace(c.sessionsURL) == "" {
		return domain.CheckoutSession{}, ErrSessionURLRequired
	}
	var session domain.CheckoutSession
	if err := c.postJSON(ctx, c.sessionsURL, req, &session); err != nil {
		return domain.CheckoutSession{}, err
	}
	if session.ID == "" {
		return domain.CheckoutSession{}, errors.New("checkout_session_response_invalid")
	}
	return session, nil
}

// Finalize posts the purchase. A missing API base is a deployment error and
// fails before any request is made.
func (c *Client) Finalize(ctx context.Context, req domain.FinalizeRequest) (domain.Purchase, error) {
	if strings.TrimSpace(c.authDomain) == "" {
		return domain.Purchase{}, domain.ErrAuthDomainRequired
	}
	var purchase domain.Purchase
	if err := c.postJSON(ctx, c.authDomain+"/api/v1/sellable_purchases", req, &purchase); err != nil {
		return domain.Purchase{}, err
	}
	return purchase, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	correlation.Inject(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Warn("request rejected", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
		return domain.NewRemoteError(resp.StatusCode, raw)
	}
	return json.Unmarshal(raw, out)
}
