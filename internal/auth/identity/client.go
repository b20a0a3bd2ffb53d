package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/smallbiznis/storefront/internal/config"
	viewerdomain "github.com/smallbiznis/storefront/internal/viewer/domain"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

var (
	ErrAuthDomainRequired = errors.New("auth_domain_required")
	ErrTokenRequired      = errors.New("access_token_required")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRequestFailed      = errors.New("identity_request_failed")
)

// Client talks to the identity service that issues viewer tokens.
type Client struct {
	authDomain string
	clientID   string
	http       *http.Client
	log        *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		authDomain: cfg.AuthDomain,
		clientID:   cfg.ClientID,
		http:       &http.Client{},
		log:        log.Named("identity.client"),
	}
}

// CurrentUser resolves the viewer that owns token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*viewerdomain.Viewer, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}

	var viewer viewerdomain.Viewer
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/current?minimal=true", token, nil, &viewer); err != nil {
		return nil, err
	}
	return &viewer, nil
}

// Become exchanges an administrator token for a token of the user identified
// by email.
func (c *Client) Become(ctx context.Context, email, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrTokenRequired
	}

	body := map[string]string{"email": email, "client_id": c.clientID}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/users/become", token, body, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", ErrRequestFailed
	}
	return out.AccessToken, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body any, out any) error {
	if c.authDomain == "" {
		return ErrAuthDomainRequired
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.authDomain+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	correlation.Inject(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= http.StatusBadRequest:
		c.log.Warn("identity request rejected", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return ErrRequestFailed
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
