package subscriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

var ErrFormRequired = errors.New("convertkit_form_required")

type subscribeRequest struct {
	Email  string  `json:"email"`
	APIKey string  `json:"api_key,omitempty"`
	Tags   []int64 `json:"tags"`
}

// Client subscribes buyers to the ConvertKit signup form.
type Client struct {
	baseURL string
	apiKey  string
	formID  string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.ConvertKit.BaseURL,
		apiKey:  cfg.ConvertKit.PublicKey,
		formID:  cfg.ConvertKit.FormID,
		http:    &http.Client{},
		log:     log.Named("subscriber.convertkit"),
	}
}

func (c *Client) Subscribe(ctx context.Context, email string, tags []int64) error {
	if strings.TrimSpace(c.formID) == "" {
		return ErrFormRequired
	}
	body, err := json.Marshal(subscribeRequest{Email: email, APIKey: c.apiKey, Tags: tags})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/forms/%s/subscribe", strings.TrimRight(c.baseURL, "/"), c.formID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	correlation.Inject(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("convertkit subscribe: status %d", resp.StatusCode)
	}
	c.log.Debug("subscribed after purchase", zap.Int("tags", len(tags)))
	return nil
}
