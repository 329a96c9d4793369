package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/application/reconcile"
	"github.com/storefront/backend/internal/domain/shared"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*reconcile.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.WebhookResult), args.Error(1)
}

func newWebhookRouter(processor WebhookProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewWebhookHandler(processor).RegisterRoutes(engine.Group(""))
	return engine
}

func TestWebhookHandler_Received(t *testing.T) {
	processor := new(mockProcessor)
	processor.On("ProcessWebhook", mock.Anything, []byte(`{"id":"evt_1"}`), "sig_abc").
		Return(&reconcile.WebhookResult{EventID: "evt_1", EventType: "payment_intent.succeeded", Handled: true}, nil)

	router := newWebhookRouter(processor)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBufferString(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "sig_abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
	processor.AssertExpectations(t)
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	processor := new(mockProcessor)
	processor.On("ProcessWebhook", mock.Anything, mock.Anything, "bad").
		Return(nil, shared.ErrBadSignature)

	router := newWebhookRouter(processor)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBufferString(`{}`))
	req.Header.Set("Stripe-Signature", "bad")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Webhook signature verification failed"}`, w.Body.String())
}

func TestWebhookHandler_ProcessingFailure(t *testing.T) {
	processor := new(mockProcessor)
	processor.On("ProcessWebhook", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, shared.ErrUpstreamUnavailable)

	router := newWebhookRouter(processor)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Webhook processing failed"}`, w.Body.String())
}

func TestWebhookHandler_PayloadTooLarge(t *testing.T) {
	processor := new(mockProcessor)

	router := newWebhookRouter(processor)
	body := strings.Repeat("x", maxWebhookPayloadSize+1)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	processor.AssertNotCalled(t, "ProcessWebhook", mock.Anything, mock.Anything, mock.Anything)
}
