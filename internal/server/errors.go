package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	commercedomain "github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/internal/purchasecache"
	viewerdomain "github.com/smallbiznis/storefront/internal/viewer/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	case isEventNotAccepted(err):
		return http.StatusConflict, errorPayload{
			Type:    "event_not_accepted",
			Message: "event not accepted in the current state",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, commercedomain.ErrSellableRequired):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "sellable_required",
			Message: "a sellable is required",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, commercedomain.ErrAuthDomainRequired):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, err.Error()
}

func isEventNotAccepted(err error) bool {
	return errors.Is(err, commercedomain.ErrEventNotAccepted) ||
		errors.Is(err, viewerdomain.ErrEventNotAccepted)
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, commercedomain.ErrInvalidEvent),
		errors.Is(err, commercedomain.ErrInvalidQuantity),
		errors.Is(err, viewerdomain.ErrInvalidEvent),
		errors.Is(err, viewerdomain.ErrSessionRequired),
		errors.Is(err, purchasecache.ErrEmailRequired):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, commercedomain.ErrNotFound),
		errors.Is(err, commercedomain.ErrInstanceClosed),
		errors.Is(err, viewerdomain.ErrNotFound),
		errors.Is(err, viewerdomain.ErrInstanceClosed),
		errors.Is(err, purchasecache.ErrNotFound):
		return true
	default:
		return false
	}
}
