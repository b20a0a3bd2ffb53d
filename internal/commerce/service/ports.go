package service

import (
	"context"

	"github.com/smallbiznis/storefront/internal/commerce/domain"
)

type PriceFetcher interface {
	FetchPrice(ctx context.Context, req domain.PriceRequest) ([]domain.Price, error)
}

type CheckoutClient interface {
	CreateSession(ctx context.Context, req domain.CheckoutSessionRequest) (domain.CheckoutSession, error)
	Finalize(ctx context.Context, req domain.FinalizeRequest) (domain.Purchase, error)
}

// Subscriber adds the buyer to the email list after a purchase.
type Subscriber interface {
	Subscribe(ctx context.Context, email string, tags []int64) error
}

// PurchaseCache stores the latest purchase of a buyer, best effort.
type PurchaseCache interface {
	Store(ctx context.Context, email string, purchase domain.Purchase) error
}
