package session

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/storefront/internal/config"
)

const DefaultCookieName = "_sid"

// Manager issues and reads the browser session cookie. Session ids are
// random UUIDs; anything else presented by a client is ignored so callers
// cannot choose their own store keys.
type Manager struct {
	cookieName string
	secure     bool
	maxAge     int
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     !cfg.IsDevelopment(),
		maxAge:     int(cfg.Session.TTL.Seconds()),
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// ReadSessionID returns the session id carried by the request, if valid.
func (m *Manager) ReadSessionID(c *gin.Context) (string, bool) {
	sid, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	sid = strings.TrimSpace(sid)
	if _, err := uuid.Parse(sid); err != nil {
		return "", false
	}
	return sid, true
}

// Ensure returns the current session id, issuing a new cookie when the
// request has none or an invalid one.
func (m *Manager) Ensure(c *gin.Context) string {
	if sid, ok := m.ReadSessionID(c); ok {
		return sid
	}
	sid := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, sid, m.maxAge, "/", "", m.secure, true)
	return sid
}
