package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/smallbiznis/storefront/internal/auth/session"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	viewerdomain "github.com/smallbiznis/storefront/internal/viewer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNoSession = errors.New("no_session")

type TokenClient interface {
	CurrentUser(ctx context.Context, token string) (*viewerdomain.Viewer, error)
	Become(ctx context.Context, email, token string) (string, error)
}

type Params struct {
	fx.In

	Config     config.Config
	Storefront *config.StorefrontConfigHolder
	Client     TokenClient
	Store      session.Store
	Clock      clock.Clock
	Log        *zap.Logger
}

// Authenticator resolves the viewer of a browser session.
type Authenticator struct {
	devToken   string
	storefront *config.StorefrontConfigHolder
	client     TokenClient
	store      session.Store
	clock      clock.Clock
	log        *zap.Logger
}

func NewAuthenticator(p Params) *Authenticator {
	devToken := ""
	if p.Config.IsDevelopment() {
		devToken = p.Config.DevUserToken
	}
	return &Authenticator{
		devToken:   devToken,
		storefront: p.Storefront,
		client:     p.Client,
		store:      p.Store,
		clock:      p.Clock,
		log:        p.Log.Named("identity.authenticator"),
	}
}

// Check resolves the viewer for a page load. Sources are tried in order: the
// development token, impersonation with show-as-user, the OAuth landing
// fragment, then the identity cached in the session. A nil viewer means
// logged out.
func (a *Authenticator) Check(ctx context.Context, sid string, page viewerdomain.PageLocation) (*viewerdomain.Viewer, string, error) {
	fragment := parseValues(page.Hash, "#")
	query := parseValues(page.Search, "?")
	viewAsUser := strings.TrimSpace(query.Get("show-as-user"))

	accessToken := fragment.Get("access_token")
	if a.devToken != "" {
		accessToken = a.devToken
	}

	switch {
	case a.devToken != "":
		v, err := a.establish(ctx, sid, a.devToken)
		return v, viewAsUser, err
	case viewAsUser != "" && accessToken != "":
		token, err := a.client.Become(ctx, viewAsUser, accessToken)
		if err != nil {
			return nil, viewAsUser, err
		}
		v, err := a.establish(ctx, sid, token)
		return v, viewAsUser, err
	case page.Path == a.storefront.Get().Routes.OAuthRedirect:
		if accessToken == "" {
			return nil, viewAsUser, ErrTokenRequired
		}
		v, err := a.establish(ctx, sid, accessToken)
		return v, viewAsUser, err
	}

	v, err := a.Cached(ctx, sid)
	return v, viewAsUser, err
}

// Refresh re-fetches the viewer with the token stored for the session.
func (a *Authenticator) Refresh(ctx context.Context, sid string) (*viewerdomain.Viewer, error) {
	record, err := a.store.Get(ctx, sid)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if record.AccessToken == "" {
		return nil, ErrNoSession
	}
	return a.establish(ctx, sid, record.AccessToken)
}

// Cached returns the viewer stored for the session, nil when there is none.
func (a *Authenticator) Cached(ctx context.Context, sid string) (*viewerdomain.Viewer, error) {
	record, err := a.store.Get(ctx, sid)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if record.Empty() {
		return nil, nil
	}

	var v viewerdomain.Viewer
	if err := json.Unmarshal(record.Viewer, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (a *Authenticator) establish(ctx context.Context, sid, token string) (*viewerdomain.Viewer, error) {
	v, err := a.client.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if v.IsEmpty() {
		return nil, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := a.store.Set(ctx, sid, session.Record{Viewer: raw, AccessToken: token, UpdatedAt: a.clock.Now()}); err != nil {
		return nil, err
	}
	a.log.Debug("session established", zap.String("viewer_id", v.ID.String()))
	return v, nil
}

func parseValues(raw, prefix string) url.Values {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, prefix))
	if err != nil {
		return url.Values{}
	}
	return values
}
