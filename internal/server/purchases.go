package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	commercedomain "github.com/smallbiznis/storefront/internal/commerce/domain"
)

type latestPurchaseResponse struct {
	Email    string                  `json:"email"`
	Purchase commercedomain.Purchase `json:"purchase"`
	CachedAt time.Time               `json:"cached_at"`
}

// LatestPurchase reads the best-effort purchase cache by buyer email.
func (s *Server) LatestPurchase(c *gin.Context) {
	if s.purchases == nil || !s.cfg.PurchaseCacheEnabled {
		AbortWithError(c, ErrNotFound)
		return
	}

	email := strings.TrimSpace(c.Query("email"))
	purchase, cachedAt, err := s.purchases.Latest(c.Request.Context(), email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, latestPurchaseResponse{
		Email:    strings.ToLower(email),
		Purchase: *purchase,
		CachedAt: cachedAt,
	})
}
