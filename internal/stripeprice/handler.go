package stripeprice

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PriceRetriever interface {
	RetrievePrice(ctx context.Context, id string) (Price, error)
}

// Handler serves the fixed-price lookup used by the pricing client for
// sellables that carry a Stripe price id.
type Handler struct {
	prices PriceRetriever
	log    *zap.Logger
}

func NewHandler(prices *Client, log *zap.Logger) *Handler {
	return &Handler{prices: prices, log: log.Named("stripeprice.handler")}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/api/stripe/prices", h.Lookup)
}

// Lookup answers with a one-element list shaped like a pricing quote. Any
// failure is logged and answered with an empty list.
func (h *Handler) Lookup(c *gin.Context) {
	price, err := h.prices.RetrievePrice(c.Request.Context(), c.Query("id"))
	if err != nil {
		h.log.Warn("stripe price lookup failed", zap.String("price_id", c.Query("id")), zap.Error(err))
		c.JSON(http.StatusOK, []Price{})
		return
	}

	quote := make(Price, len(price)+2)
	for k, v := range price {
		quote[k] = v
	}
	whole := price.WholeUnits()
	quote["price"] = whole
	quote["full_price"] = whole

	c.JSON(http.StatusOK, []Price{quote})
}
