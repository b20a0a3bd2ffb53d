package checkout

import (
	"strings"

	"github.com/smallbiznis/storefront/internal/commerce/domain"
)

// Settings are the deployment values every checkout request carries.
type Settings struct {
	Site       string
	ClientID   string
	SuccessURL string
	CancelURL  string
}

// Params builds the checkout parameters. With a Stripe price id only the id and
// quantity are sent; otherwise the sellable line identifies the product by slug.
func Params(c domain.Context) (domain.CheckoutParams, error) {
	if c.Sellable == nil {
		return domain.CheckoutParams{}, domain.ErrSellableRequired
	}
	if strings.TrimSpace(c.StripePriceID) != "" {
		return domain.CheckoutParams{StripePriceID: c.StripePriceID, Quantity: c.Quantity}, nil
	}

	line := domain.SellableParams{
		Site:       c.Sellable.Site,
		SellableID: c.Sellable.Slug,
		Sellable:   strings.ToLower(c.Sellable.Type),
		Bulk:       c.Bulk,
		Quantity:   c.Quantity,
	}
	if c.UpgradeFromSellable != nil {
		line.UpgradeFromSellableID = c.UpgradeFromSellable.Slug
		line.UpgradeFromSellable = c.UpgradeFromSellable.Type
	}
	return domain.CheckoutParams{
		Sellables: []domain.SellableParams{line},
		Code:      c.AppliedCoupon,
	}, nil
}

func SessionRequest(c domain.Context, s Settings) (domain.CheckoutSessionRequest, error) {
	params, err := Params(c)
	if err != nil {
		return domain.CheckoutSessionRequest{}, err
	}
	return domain.CheckoutSessionRequest{
		CheckoutParams: params,
		Site:           s.Site,
		ClientID:       s.ClientID,
		SuccessURL:     s.SuccessURL,
		CancelURL:      s.CancelURL,
	}, nil
}

// FinalizeParams builds the finalize-purchase body. The site is the deployment
// site rather than the sellable's.
func FinalizeParams(c domain.Context, s Settings) (domain.FinalizeRequest, error) {
	if c.Sellable == nil {
		return domain.FinalizeRequest{}, domain.ErrSellableRequired
	}
	req := domain.FinalizeRequest{
		Site:        s.Site,
		SellableID:  c.Sellable.ID.String(),
		Sellable:    strings.ToLower(c.Sellable.Type),
		Quantity:    c.Quantity,
		StripeToken: c.StripeToken,
		ClientID:    s.ClientID,
		Code:        c.AppliedCoupon,
		Email:       c.Email,
		Bulk:        c.Bulk,
	}
	if c.UpgradeFromSellable != nil {
		req.UpgradeFromSellableID = c.UpgradeFromSellable.Slug
		req.UpgradeFromSellable = c.UpgradeFromSellable.Type
	}
	return req, nil
}
