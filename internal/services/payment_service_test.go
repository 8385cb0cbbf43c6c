// internal/services/payment_service_test.go
package services

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/models"
)

func TestBuildCheckoutURL(t *testing.T) {
	cfg := config.PaymentConfig{
		CheckoutBaseURL: "https://www.checkout-ds24.com/product",
		ThankYouURL:     "https://learnhub.example.com/thank-you",
		CancelURL:       "https://learnhub.example.com/cancel",
	}
	custom := checkoutCustomData{
		UserID:   "6e2d58a1-7b30-4c3d-9d2e-0f6a3f1c2b4d",
		ItemType: models.ItemKindCourse,
		ItemID:   "1f9c7e52-8a41-4b6f-8c3d-5e2a1b0c9d8e",
	}

	raw, err := BuildCheckoutURL(cfg, "424242", "buyer@example.com", custom)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "https://www.checkout-ds24.com/product/424242?"))

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "buyer@example.com", q.Get("email"))
	assert.Equal(t, cfg.ThankYouURL, q.Get("thankyou_url"))
	assert.Equal(t, cfg.CancelURL, q.Get("cancel_url"))

	// The custom blob round-trips to the exact purchase context.
	blob, err := base64.StdEncoding.DecodeString(q.Get("custom"))
	require.NoError(t, err)
	var decoded checkoutCustomData
	require.NoError(t, json.Unmarshal(blob, &decoded))
	assert.Equal(t, custom, decoded)
}

func TestBuildCheckoutURLOmitsUnsetReturnURLs(t *testing.T) {
	cfg := config.PaymentConfig{CheckoutBaseURL: "https://www.checkout-ds24.com/product"}

	raw, err := BuildCheckoutURL(cfg, "77", "buyer@example.com", checkoutCustomData{})
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()
	assert.False(t, q.Has("thankyou_url"))
	assert.False(t, q.Has("cancel_url"))
}
