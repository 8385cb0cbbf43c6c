// internal/handlers/payment_test.go
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/services"
	"github.com/learnhub/learnhub-backend/internal/utils"
)

const webhookPassphrase = "webhook-test-passphrase"

type recordingLedger struct {
	events []services.PaymentEvent
	err    error
}

func (l *recordingLedger) ApplyPaymentEvent(_ context.Context, evt services.PaymentEvent) error {
	l.events = append(l.events, evt)
	return l.err
}

type WebhookTestSuite struct {
	suite.Suite
	router *gin.Engine
	ledger *recordingLedger
}

func (suite *WebhookTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Payment.IPNPassphrase = webhookPassphrase

	suite.ledger = &recordingLedger{}
	handler := NewPaymentHandler(nil, suite.ledger, cfg)

	suite.router = gin.New()
	suite.router.POST("/v1/payments/webhook", handler.Webhook)
}

func (suite *WebhookTestSuite) postIPN(payload map[string]string) *httptest.ResponseRecorder {
	form := url.Values{}
	for k, v := range payload {
		form.Set(k, v)
	}

	req, _ := http.NewRequest("POST", "/v1/payments/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func signedIPNPayload(event string) map[string]string {
	payload := map[string]string{
		"event":        event,
		"order_id":     "ORDER-777",
		"product_id":   "424242",
		"email":        "buyer@example.com",
		"amount":       "149.50",
		"currency":     "EUR",
		"billing_type": "single_payment",
	}
	payload[utils.IPNSignatureField] = utils.ComputeIPNSignature(payload, webhookPassphrase)
	return payload
}

func (suite *WebhookTestSuite) TestValidNotificationReachesLedger() {
	w := suite.postIPN(signedIPNPayload("on_payment"))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "OK", w.Body.String())

	require.Len(suite.T(), suite.ledger.events, 1)
	evt := suite.ledger.events[0]
	assert.Equal(suite.T(), services.PaymentEventPayment, evt.Kind)
	assert.Equal(suite.T(), "ORDER-777", evt.OrderID)
	assert.Equal(suite.T(), "424242", evt.ProductRef)
	assert.Equal(suite.T(), "buyer@example.com", evt.Email)
	assert.Equal(suite.T(), 149.50, evt.Amount)
	assert.Equal(suite.T(), "EUR", evt.Currency)
}

func (suite *WebhookTestSuite) TestInvalidSignatureIsDroppedButAcked() {
	payload := signedIPNPayload("on_payment")
	payload["amount"] = "0.01"

	w := suite.postIPN(payload)

	// Still a 200 "OK": a rejection body would make the processor retry
	// a notification that will never verify.
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "OK", w.Body.String())
	assert.Empty(suite.T(), suite.ledger.events)
}

func (suite *WebhookTestSuite) TestMissingSignatureIsDroppedButAcked() {
	payload := signedIPNPayload("on_refund")
	delete(payload, utils.IPNSignatureField)

	w := suite.postIPN(payload)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "OK", w.Body.String())
	assert.Empty(suite.T(), suite.ledger.events)
}

func (suite *WebhookTestSuite) TestConnectionTestShortCircuits() {
	// The processor's connection test is unsigned and must still be acked.
	w := suite.postIPN(map[string]string{"event": "connection_test"})

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "OK", w.Body.String())
	assert.Empty(suite.T(), suite.ledger.events)
}

func (suite *WebhookTestSuite) TestLedgerFailureStillAcked() {
	suite.ledger.err = services.ErrUnknownProduct

	w := suite.postIPN(signedIPNPayload("on_payment"))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "OK", w.Body.String())
	assert.Len(suite.T(), suite.ledger.events, 1)
}

func (suite *WebhookTestSuite) TestRefundEventKind() {
	w := suite.postIPN(signedIPNPayload("on_refund"))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	require.Len(suite.T(), suite.ledger.events, 1)
	assert.Equal(suite.T(), services.PaymentEventRefund, suite.ledger.events[0].Kind)
}

func TestWebhookTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookTestSuite))
}
