package checkout

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSettings = Settings{
	Site:       "storefront",
	ClientID:   "client-1",
	SuccessURL: "https://shop.test/thanks",
	CancelURL:  "https://shop.test/buy",
}

func bundleContext() domain.Context {
	return domain.Context{
		Sellable: &domain.Sellable{ID: "42", Slug: "pro-bundle", Type: "Bundle", Site: "storefront"},
		Quantity: 1,
	}
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestParams_BulkUpgrade(t *testing.T) {
	c := bundleContext()
	c.Quantity = 2
	c.Bulk = true
	c.UpgradeFromSellable = &domain.Sellable{Slug: "basic-bundle", Type: "bundle"}

	params, err := Params(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"sellables":[{
			"site":"storefront","sellable_id":"pro-bundle","sellable":"bundle",
			"bulk":true,"quantity":2,
			"upgrade_from_sellable_id":"basic-bundle","upgrade_from_sellable":"bundle"
		}]
	}`, marshal(t, params))
}

func TestParams_StripePriceID(t *testing.T) {
	c := bundleContext()
	c.StripePriceID = "price_9"
	c.Quantity = 3
	c.AppliedCoupon = "SAVE"

	params, err := Params(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stripe_price_id":"price_9","quantity":3}`, marshal(t, params))
}

func TestBuilders_RequireSellable(t *testing.T) {
	c := domain.Context{Quantity: 2, Bulk: true, StripePriceID: "price_9"}

	_, err := Params(c)
	assert.ErrorIs(t, err, domain.ErrSellableRequired)
	_, err = SessionRequest(c, testSettings)
	assert.ErrorIs(t, err, domain.ErrSellableRequired)
	_, err = FinalizeParams(c, testSettings)
	assert.ErrorIs(t, err, domain.ErrSellableRequired)
}

func TestSessionRequest(t *testing.T) {
	c := bundleContext()
	c.AppliedCoupon = "LAUNCH"

	req, err := SessionRequest(c, testSettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"sellables":[{"site":"storefront","sellable_id":"pro-bundle","sellable":"bundle","quantity":1}],
		"code":"LAUNCH",
		"site":"storefront",
		"client_id":"client-1",
		"success_url":"https://shop.test/thanks",
		"cancel_url":"https://shop.test/buy"
	}`, marshal(t, req))
}

func TestFinalizeParams(t *testing.T) {
	c := bundleContext()
	c.Email = "buyer@example.com"
	c.StripeToken = "tok_1"

	req, err := FinalizeParams(c, testSettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"site":"storefront","sellable_id":"42","sellable":"bundle","quantity":1,
		"stripeToken":"tok_1","client_id":"client-1","email":"buyer@example.com"
	}`, marshal(t, req))
}

func TestProviderMessage(t *testing.T) {
	remote := domain.NewRemoteError(402, []byte(`{"error":"Your card was declined."}`))
	assert.Equal(t, "Your card was declined.", ProviderMessage(remote, "help@shop.test"))

	nested := domain.NewRemoteError(400, []byte(`{"error":{"message":"Coupon is not valid"}}`))
	assert.Equal(t, "Coupon is not valid", ProviderMessage(nested, "help@shop.test"))

	fallback := "Purchase failed. Please contact help@shop.test for help"
	assert.Equal(t, fallback, ProviderMessage(domain.NewRemoteError(500, []byte("oops")), "help@shop.test"))
	assert.Equal(t, fallback, ProviderMessage(errors.New("connection reset"), "help@shop.test"))
}
