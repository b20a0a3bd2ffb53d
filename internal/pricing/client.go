package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

// Client fetches quotes from the pricing service. Fixed Stripe prices are read
// from the prices endpoint; everything else is priced by the sellable API.
type Client struct {
	authDomain string
	pricesURL  string
	http       *http.Client
	log        *zap.Logger
}

// NewClient returns a client without a request timeout: a hanging quote keeps
// the machine in fetchingPrice until the instance is closed.
func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		authDomain: cfg.AuthDomain,
		pricesURL:  cfg.Stripe.PricesURL,
		http:       &http.Client{},
		log:        log.Named("pricing.client"),
	}
}

func (c *Client) FetchPrice(ctx context.Context, req domain.PriceRequest) ([]domain.Price, error) {
	var (
		httpReq *http.Request
		err     error
	)
	if req.IsFixedPrice() {
		endpoint, perr := url.Parse(c.pricesURL)
		if perr != nil {
			return nil, perr
		}
		query := endpoint.Query()
		query.Set("id", req.ID)
		endpoint.RawQuery = query.Encode()
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	} else {
		if strings.TrimSpace(c.authDomain) == "" {
			return nil, domain.ErrAuthDomainRequired
		}
		body, merr := json.Marshal(req)
		if merr != nil {
			return nil, merr
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, c.authDomain+"/api/v1/sellable_purchases/prices", bytes.NewReader(body))
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	correlation.Inject(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Warn("price request rejected", zap.Int("status", resp.StatusCode), zap.Bool("fixed_price", req.IsFixedPrice()))
		return nil, domain.NewRemoteError(resp.StatusCode, payload)
	}

	var prices []domain.Price
	if err := json.Unmarshal(payload, &prices); err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, domain.ErrPriceNotFound
	}
	return prices, nil
}
