package server

import (
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/storefront/internal/observability/context"
)

// sessionID issues the session cookie when missing and records the id on the
// request context for logging.
func (s *Server) sessionID(c *gin.Context) string {
	sid := s.sessions.Ensure(c)
	c.Request = c.Request.WithContext(obscontext.WithSessionID(c.Request.Context(), sid))
	return sid
}

// existingSessionID reads the session cookie without issuing one.
func (s *Server) existingSessionID(c *gin.Context) (string, bool) {
	return s.sessions.ReadSessionID(c)
}
