package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/application/reconcile"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Provider webhooks are small; anything larger is rejected outright.
const maxWebhookPayloadSize = 65536

// WebhookProcessor ingests one signed provider event.
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*reconcile.WebhookResult, error)
}

// WebhookHandler exposes the payment provider's webhook endpoint. It is
// unauthenticated beyond the payload signature.
type WebhookHandler struct {
	processor WebhookProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// RegisterRoutes registers the webhook route
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/payment", h.HandlePaymentWebhook)
}

// HandlePaymentWebhook receives a provider event. The status code drives the
// provider's retry behavior: 400 stops retries for a permanently bad
// signature, 500 invites a retry of a projection that is safe to repeat.
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	log := logger.FromGin(c)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")

	result, err := h.processor.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, shared.ErrBadSignature) {
			log.Warn("Webhook signature verification failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook signature verification failed"})
			return
		}
		log.Error("Webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	log.Info("Webhook processed",
		zap.String("event_id", result.EventID),
		zap.String("event_type", result.EventType),
		zap.Bool("handled", result.Handled),
		zap.Bool("duplicate", result.Duplicate),
		zap.Bool("stale", result.Stale))

	c.JSON(http.StatusOK, gin.H{"received": true})
}
