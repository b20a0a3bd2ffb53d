package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(opts ...func(*domain.Context)) domain.Context {
	c := domain.Context{Quantity: 1}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func withSellable(c *domain.Context) {
	c.Sellable = &domain.Sellable{ID: "abc123", Type: "type", Site: "site"}
}

func TestPriceParams_StripePriceID(t *testing.T) {
	c := newContext(withSellable, func(c *domain.Context) {
		c.StripePriceID = "abc123"
		c.Quantity = 4
		c.AppliedCoupon = "SAVE"
		c.UpgradeFromSellable = &domain.Sellable{Slug: "basic", Type: "bundle"}
	})

	params, err := PriceParams(c)
	require.NoError(t, err)

	body, err := json.Marshal(params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc123"}`, string(body))
}

func TestPriceParams_RequiresSellable(t *testing.T) {
	cases := []domain.Context{
		newContext(),
		newContext(func(c *domain.Context) { c.StripePriceID = "price_1" }),
		newContext(func(c *domain.Context) { c.AppliedCoupon = "SAVE"; c.Quantity = 3 }),
	}
	for _, c := range cases {
		_, err := PriceParams(c)
		assert.ErrorIs(t, err, domain.ErrSellableRequired)
	}
}

func TestPriceParams_Sellable(t *testing.T) {
	params, err := PriceParams(newContext(withSellable))
	require.NoError(t, err)

	body, err := json.Marshal(params)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"sellables":[{"site":"site","sellable_id":"abc123","sellable":"type","quantity":1}],
		"site":"site"
	}`, string(body))
}

func TestPriceParams_CouponAndUpgrade(t *testing.T) {
	c := newContext(withSellable, func(c *domain.Context) {
		c.Sellable.Type = "Bundle"
		c.AppliedCoupon = "coupon"
		c.UpgradeFromSellable = &domain.Sellable{Slug: "upgrade", Type: "type"}
	})

	params, err := PriceParams(c)
	require.NoError(t, err)

	body, err := json.Marshal(params)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"sellables":[{
			"site":"site","sellable_id":"abc123","sellable":"bundle","quantity":1,
			"upgrade_from_sellable_id":"upgrade","upgrade_from_sellable":"type"
		}],
		"site":"site",
		"code":"coupon"
	}`, string(body))
}

func TestAdjustForUpgrade(t *testing.T) {
	raw := &domain.Price{Price: decimal.NewFromInt(250), FullPrice: decimal.NewFromInt(250)}
	upgrade := &domain.Sellable{Price: decimal.NewFromInt(100)}

	t.Run("no upgrade", func(t *testing.T) {
		got := AdjustForUpgrade(raw, nil, 1)
		assert.True(t, got.Price.Equal(decimal.NewFromInt(250)))
	})

	t.Run("multiple units keep the fetched price", func(t *testing.T) {
		got := AdjustForUpgrade(raw, upgrade, 2)
		assert.True(t, got.Price.Equal(decimal.NewFromInt(250)))
	})

	t.Run("single unit subtracts the upgrade price once", func(t *testing.T) {
		first := AdjustForUpgrade(raw, upgrade, 1)
		second := AdjustForUpgrade(raw, upgrade, 1)
		assert.True(t, first.Price.Equal(decimal.NewFromInt(150)))
		assert.True(t, second.Price.Equal(first.Price))
		assert.True(t, raw.Price.Equal(decimal.NewFromInt(250)), "raw price must stay untouched")
		assert.True(t, first.FullPrice.Equal(decimal.NewFromInt(250)))
	})

	t.Run("nil price", func(t *testing.T) {
		assert.Nil(t, AdjustForUpgrade(nil, upgrade, 1))
	})
}
