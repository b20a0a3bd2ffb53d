package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	commercedomain "github.com/smallbiznis/storefront/internal/commerce/domain"
	obstracing "github.com/smallbiznis/storefront/internal/observability/tracing"
)

func (s *Server) CreateCommerceMachine(c *gin.Context) {
	var req commercedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.StripePriceID = strings.TrimSpace(req.StripePriceID)
	req.Query = strings.TrimPrefix(strings.TrimSpace(req.Query), "?")

	view, err := s.commerce.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (s *Server) GetCommerceMachine(c *gin.Context) {
	view, err := s.commerce.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) SendCommerceEvent(c *gin.Context) {
	var in commercedomain.EventInput
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

	view, err := s.commerce.Send(c.Request.Context(), c.Param("id"), event)
	writeEventResult(c, view, err)
}

func (s *Server) DeleteCommerceMachine(c *gin.Context) {
	if err := s.commerce.Close(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type rejectedEventResponse struct {
	Error errorPayload `json:"error"`
	View  any          `json:"view"`
}

// writeEventResult answers an event dispatch. A rejected event still carries
// the unchanged view so the client can re-render.
func writeEventResult[V any](c *gin.Context, view *V, err error) {
	if err == nil {
		c.JSON(http.StatusOK, view)
		return
	}
	if isEventNotAccepted(err) && view != nil {
		_ = c.Error(err)
		status, payload := mapError(err)
		c.JSON(status, rejectedEventResponse{Error: payload, View: view})
		return
	}
	AbortWithError(c, err)
}
