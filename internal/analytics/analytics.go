package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/smallbiznis/storefront/internal/config"
	viewerdomain "github.com/smallbiznis/storefront/internal/viewer/domain"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("analytics",
	fx.Provide(New),
)

type identifyRequest struct {
	UserID string         `json:"userId"`
	Traits map[string]any `json:"traits"`
}

// Client reports viewer identities to the analytics collector. Without a
// configured endpoint it only logs.
type Client struct {
	endpoint string
	writeKey string
	http     *http.Client
	log      *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		endpoint: cfg.Analytics.IdentifyURL,
		writeKey: cfg.Analytics.WriteKey,
		http:     &http.Client{},
		log:      log.Named("analytics"),
	}
}

func (c *Client) Identify(ctx context.Context, v *viewerdomain.Viewer) error {
	if v.IsEmpty() {
		return nil
	}

	traits := map[string]any{}
	if v.Email != "" {
		traits["email"] = v.Email
	}
	if v.Name != "" {
		traits["name"] = v.Name
	}
	if v.ContactID != "" {
		traits["contact_id"] = v.ContactID
	}

	if c.endpoint == "" {
		c.log.Debug("identify", zap.String("viewer_id", v.ID.String()))
		return nil
	}

	payload, err := json.Marshal(identifyRequest{UserID: v.ID.String(), Traits: traits})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.writeKey != "" {
		req.SetBasicAuth(c.writeKey, "")
	}
	correlation.Inject(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("identify rejected with status %d", resp.StatusCode)
	}
	return nil
}
