package stripeprice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

var (
	ErrInvalidConfig = errors.New("stripe_invalid_config")
	ErrInvalidID     = errors.New("invalid_price_id")
	ErrRequestFailed = errors.New("stripe_request_failed")
)

// Price is a Stripe price object. Fields are kept as returned so the lookup
// endpoint can echo them back.
type Price map[string]any

// UnitAmount is the price in minor units, zero when Stripe omits it.
func (p Price) UnitAmount() int64 {
	switch v := p["unit_amount"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return n
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// WholeUnits rounds the unit amount up to whole currency units.
func (p Price) WholeUnits() int64 {
	return decimal.NewFromInt(p.UnitAmount()).Div(decimal.NewFromInt(100)).Ceil().IntPart()
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(cfg.Stripe.SecretKey),
		baseURL: cfg.Stripe.APIBaseURL,
		client:  &http.Client{},
		log:     log.Named("stripeprice.client"),
	}
}

func (c *Client) RetrievePrice(ctx context.Context, id string) (Price, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}
	if c.apiKey == "" {
		return nil, ErrInvalidConfig
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/prices/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	correlation.Inject(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.Unmarshal(buf.Bytes(), &stripeErr); err != nil {
			return nil, ErrRequestFailed
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			return nil, ErrRequestFailed
		}
		return nil, errors.New(message)
	}

	decoder := json.NewDecoder(&buf)
	decoder.UseNumber()
	var price Price
	if err := decoder.Decode(&price); err != nil {
		return nil, err
	}
	if id, _ := price["id"].(string); id == "" {
		return nil, errors.New("stripe_response_invalid")
	}
	return price, nil
}
