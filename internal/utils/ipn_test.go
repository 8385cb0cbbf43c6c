// internal/utils/ipn_test.go
package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testPassphrase = "test-passphrase-123"

func testIPNPayload() map[string]string {
	return map[string]string{
		"event":      "on_payment",
		"order_id":   "ORDER-123",
		"product_id": "42",
		"amount":     "99.00",
		"currency":   "USD",
		"email":      "buyer@example.com",
	}
}

func TestComputeIPNSignature(t *testing.T) {
	payload := testIPNPayload()
	sig := ComputeIPNSignature(payload, testPassphrase)

	// SHA-512 uppercase hex.
	assert.Len(t, sig, 128)
	assert.Equal(t, strings.ToUpper(sig), sig)

	// Deterministic regardless of map iteration order.
	assert.Equal(t, sig, ComputeIPNSignature(testIPNPayload(), testPassphrase))

	// The signature field itself never participates.
	payload[IPNSignatureField] = sig
	assert.Equal(t, sig, ComputeIPNSignature(payload, testPassphrase))
}

func TestVerifyIPNSignature(t *testing.T) {
	payload := testIPNPayload()
	payload[IPNSignatureField] = ComputeIPNSignature(payload, testPassphrase)

	assert.True(t, VerifyIPNSignature(payload, testPassphrase))
}

func TestVerifyIPNSignatureCaseInsensitive(t *testing.T) {
	payload := testIPNPayload()
	payload[IPNSignatureField] = strings.ToLower(ComputeIPNSignature(payload, testPassphrase))

	assert.True(t, VerifyIPNSignature(payload, testPassphrase))
}

func TestVerifyIPNSignatureTamperedField(t *testing.T) {
	payload := testIPNPayload()
	payload[IPNSignatureField] = ComputeIPNSignature(payload, testPassphrase)

	payload["amount"] = "0.01"
	assert.False(t, VerifyIPNSignature(payload, testPassphrase))
}

func TestVerifyIPNSignatureAddedField(t *testing.T) {
	payload := testIPNPayload()
	payload[IPNSignatureField] = ComputeIPNSignature(payload, testPassphrase)

	payload["extra"] = "injected"
	assert.False(t, VerifyIPNSignature(payload, testPassphrase))
}

func TestVerifyIPNSignatureWrongPassphrase(t *testing.T) {
	payload := testIPNPayload()
	payload[IPNSignatureField] = ComputeIPNSignature(payload, testPassphrase)

	assert.False(t, VerifyIPNSignature(payload, "other-passphrase"))
}

func TestVerifyIPNSignatureFailsClosed(t *testing.T) {
	payload := testIPNPayload()
	payload[IPNSignatureField] = ComputeIPNSignature(payload, "")

	// No shared passphrase configured means nothing verifies.
	assert.False(t, VerifyIPNSignature(payload, ""))

	// Missing signature field never verifies either.
	delete(payload, IPNSignatureField)
	assert.False(t, VerifyIPNSignature(payload, testPassphrase))
}
