package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/config"
)

func TestCheckoutParamsCarryMetadata(t *testing.T) {
	pc := NewPromotionController(nil, nil, nil, nil, config.StripeConfig{
		SuccessURL: "https://example.com/success",
		CancelURL:  "https://example.com/cancelled",
	}, nil)

	plan := model.TierPlan{Tier: model.TierPremium, StripePriceID: "price_premium_30d"}
	params := pc.checkoutParams(plan, 42, 7)

	// The webhook resolves the purchase through this metadata.
	assert.Equal(t, "42", params.Metadata["property_id"])
	assert.Equal(t, "7", params.Metadata["user_id"])
	assert.Equal(t, "premium", params.Metadata["tier"])

	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *params.Mode)
	assert.Equal(t, "https://example.com/success", *params.SuccessURL)
	assert.Equal(t, "https://example.com/cancelled", *params.CancelURL)

	require.Len(t, params.LineItems, 1)
	assert.Equal(t, "price_premium_30d", *params.LineItems[0].Price)
	assert.Equal(t, int64(1), *params.LineItems[0].Quantity)
}
