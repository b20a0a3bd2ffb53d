package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/storefront/internal/observability/context"
	obstracing "github.com/smallbiznis/storefront/internal/observability/tracing"
	viewerdomain "github.com/smallbiznis/storefront/internal/viewer/domain"
)

// StartViewer (re)starts the viewer machine for the caller's session at the
// given page.
func (s *Server) StartViewer(c *gin.Context) {
	var page viewerdomain.PageLocation
	if err := c.ShouldBindJSON(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if page.Path == "" {
		page.Path = "/"
	}

	sid := s.sessionID(c)
	view, err := s.viewers.Start(c.Request.Context(), sid, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (s *Server) GetViewer(c *gin.Context) {
	sid, ok := s.requireSession(c)
	if !ok {
		return
	}
	view, err := s.viewers.Get(c.Request.Context(), sid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) SendViewerEvent(c *gin.Context) {
	var in viewerdomain.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	event, err := in.ToEvent()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set(obstracing.MachineEventKey, string(event.Type()))

	sid, ok := s.requireSession(c)
	if !ok {
		return
	}
	view, err := s.viewers.Send(c.Request.Context(), sid, event)
	writeEventResult(c, view, err)
}

// requireSession aborts with not found when the caller has no session yet.
func (s *Server) requireSession(c *gin.Context) (string, bool) {
	sid, ok := s.existingSessionID(c)
	if !ok {
		AbortWithError(c, viewerdomain.ErrNotFound)
		return "", false
	}
	c.Request = c.Request.WithContext(obscontext.WithSessionID(c.Request.Context(), sid))
	return sid, true
}
