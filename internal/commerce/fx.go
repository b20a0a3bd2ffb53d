package commerce

import (
	"github.com/smallbiznis/storefront/internal/checkout"
	"github.com/smallbiznis/storefront/internal/commerce/service"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/pricing"
	"github.com/smallbiznis/storefront/internal/purchasecache"
	"github.com/smallbiznis/storefront/internal/subscriber"
	"go.uber.org/fx"
)

var Module = fx.Module("commerce",
	fx.Provide(
		fx.Annotate(pricing.NewClient, fx.As(new(service.PriceFetcher))),
		fx.Annotate(checkout.NewClient, fx.As(new(service.CheckoutClient))),
		fx.Annotate(subscriber.NewClient, fx.As(new(service.Subscriber))),
		providePurchaseCache,
		service.New,
	),
)

func providePurchaseCache(cfg config.Config, repo *purchasecache.Repository) service.PurchaseCache {
	if !cfg.PurchaseCacheEnabled {
		return nil
	}
	return repo
}
