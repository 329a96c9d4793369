package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"go.uber.org/zap"
)

// Webhook event types recognized by the ingestor. Anything else is
// acknowledged without a projection.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
	EventDisputeCreated  = "charge.dispute.created"
)

// dedupeTTL bounds how long processed event IDs are remembered. The provider
// stops retrying well before this.
const dedupeTTL = 24 * time.Hour

// WebhookResult reports what ingestion did with a verified event.
type WebhookResult struct {
	EventID   string
	EventType string
	OrderID   string
	// Handled is false for event types that carry no projection.
	Handled bool
	// Duplicate is true when a dispute event ID was already processed and
	// the charge lookup was skipped. Intent events are never deduplicated.
	Duplicate bool
	// Stale is true when the event lost the ordering-token comparison.
	Stale bool
}

// WebhookService ingests verified provider events and projects them onto
// durable order records. It is the single writer of payment status.
type WebhookService struct {
	gateway payment.Gateway
	orders  order.Repository
	outbox  notification.Repository
	dedupe  shared.IdempotencyStore
	logger  *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(
	gateway payment.Gateway,
	orders order.Repository,
	outbox notification.Repository,
	dedupe shared.IdempotencyStore,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		gateway: gateway,
		orders:  orders,
		outbox:  outbox,
		dedupe:  dedupe,
		logger:  logger,
	}
}

// ProcessWebhook verifies the payload signature, classifies the event, and
// applies the matching projection. A signature failure wraps
// shared.ErrBadSignature so the transport layer answers 4xx and the provider
// stops retrying; every other error must surface as 5xx so at-least-once
// delivery retries a projection that is safe to repeat.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	ev, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		return nil, err
	}

	result := &WebhookResult{EventID: ev.ID, EventType: ev.Type}

	switch ev.Type {
	case EventIntentSucceeded:
		err = s.projectIntent(ctx, ev, order.PaymentStatusSucceeded, result)
	case EventIntentFailed:
		err = s.projectIntent(ctx, ev, order.PaymentStatusFailed, result)
	case EventIntentCanceled:
		err = s.projectIntent(ctx, ev, order.PaymentStatusCancelled, result)
	case EventDisputeCreated:
		err = s.projectDispute(ctx, ev, result)
	default:
		s.logger.Debug("Unhandled event type",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.Type))
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Handled = true
	return result, nil
}

// projectIntent applies a payment_intent.* event.
func (s *WebhookService) projectIntent(ctx context.Context, ev *payment.WebhookEvent, status order.PaymentStatus, result *WebhookResult) error {
	rec, err := payment.ParseIntentEvent(ev.DataRaw)
	if err != nil {
		return err
	}
	result.OrderID = rec.ID

	domainEv := order.PaymentEvent{
		IntentID:       rec.ID,
		Status:         status,
		ProviderStatus: rec.Status,
		Amount:         rec.Amount,
		Currency:       rec.Currency,
		Customer: order.Customer{
			Email:   rec.ReceiptEmail,
			Name:    rec.ShippingName,
			Address: rec.ShippingAddress,
		},
		Metadata:       map[string]string{},
		EventCreatedAt: ev.Created,
		IntentCreated:  rec.Created,
	}
	for k, v := range rec.Metadata {
		domainEv.Metadata[k] = v
	}
	switch status {
	case order.PaymentStatusFailed:
		if rec.LastPaymentError != "" {
			domainEv.Metadata[order.MetaFailureReason] = rec.LastPaymentError
		}
	case order.PaymentStatusCancelled:
		if rec.CancellationReason != "" {
			domainEv.Metadata[order.MetaCancellationReason] = rec.CancellationReason
		}
	}

	return s.project(ctx, domainEv, result)
}

// projectDispute applies a charge.dispute.created event. The dispute payload
// only names a charge, so the owning payment intent is resolved with one
// provider lookup before the projection.
//
// Re-deliveries are short-circuited here so that charge lookup runs at most
// once per distinct event in the common case. Intent events carry no such
// RPC and are re-projected on every delivery; correctness never depends on
// the dedupe store.
func (s *WebhookService) projectDispute(ctx context.Context, ev *payment.WebhookEvent, result *WebhookResult) error {
	if processed, derr := s.dedupe.IsProcessed(ctx, ev.ID); derr != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("event_id", ev.ID), zap.Error(derr))
	} else if processed {
		result.Duplicate = true
		return nil
	}

	dispute, err := payment.ParseDisputeEvent(ev.DataRaw)
	if err != nil {
		return err
	}

	charge, err := s.gateway.GetCharge(ctx, dispute.ChargeID)
	if err != nil {
		return fmt.Errorf("failed to resolve disputed charge %s: %w", dispute.ChargeID, err)
	}
	if charge.PaymentIntentID == "" {
		s.logger.Warn("Disputed charge has no payment intent",
			zap.String("event_id", ev.ID),
			zap.String("charge_id", dispute.ChargeID))
		return nil
	}
	result.OrderID = charge.PaymentIntentID

	domainEv := order.PaymentEvent{
		IntentID:       charge.PaymentIntentID,
		Status:         order.PaymentStatusDisputed,
		Amount:         charge.Amount,
		EventCreatedAt: ev.Created,
		Metadata: map[string]string{
			order.MetaDisputeID:     dispute.ID,
			order.MetaDisputeReason: dispute.Reason,
			order.MetaDisputeStatus: dispute.Status,
		},
	}
	if err := s.project(ctx, domainEv, result); err != nil {
		return err
	}

	if _, derr := s.dedupe.MarkProcessed(ctx, ev.ID, dedupeTTL); derr != nil {
		s.logger.Warn("Failed to mark event as processed", zap.String("event_id", ev.ID), zap.Error(derr))
	}
	return nil
}

// project merges the event into the stored order under the ordering-token
// guard and enqueues the customer notification. A stale event is acknowledged
// without a write so the provider does not retry it forever.
func (s *WebhookService) project(ctx context.Context, ev order.PaymentEvent, result *WebhookResult) error {
	now := time.Now()

	o, err := s.orders.FindByID(ctx, ev.IntentID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		o = order.NewFromEvent(ev, now)
	case err != nil:
		return err
	default:
		if aerr := o.ApplyEvent(ev, now); aerr != nil {
			if errors.Is(aerr, shared.ErrStaleEvent) {
				result.Stale = true
				s.logger.Info("Stale event ignored",
					zap.String("order_id", ev.IntentID),
					zap.Int64("event_created_at", ev.EventCreatedAt),
					zap.Int64("applied_created_at", o.EventCreatedAt))
				return nil
			}
			return aerr
		}
	}

	applied, err := s.orders.SaveProjection(ctx, o)
	if err != nil {
		return err
	}
	if !applied {
		// Lost the conditional write to a concurrent newer projection.
		result.Stale = true
		s.logger.Info("Projection superseded by newer event", zap.String("order_id", ev.IntentID))
		return nil
	}

	s.logger.Info("Projected payment event",
		zap.String("order_id", o.ID),
		zap.String("payment_status", string(o.PaymentStatus)),
		zap.Int64("event_created_at", o.EventCreatedAt))

	s.enqueueNotification(ctx, o)
	return nil
}

// Outbox enqueue failures are logged and swallowed: the payment-state
// projection already committed and must not be rolled back by a
// notification-side problem.
func (s *WebhookService) enqueueNotification(ctx context.Context, o *order.Order) {
	if o.Customer.Email == "" {
		return
	}
	intent := notification.NewIntent(o.ID, o.Customer.Email, notifyStatus(o.PaymentStatus), o.Currency, o.Amount)
	intent.CustomerName = o.Customer.Name
	if err := s.outbox.Save(ctx, intent); err != nil {
		s.logger.Warn("Failed to enqueue notification",
			zap.String("order_id", o.ID),
			zap.Error(err))
	}
}

// notifyStatus maps a payment status to the customer-facing email kind.
func notifyStatus(s order.PaymentStatus) string {
	switch s {
	case order.PaymentStatusSucceeded:
		return "completed"
	case order.PaymentStatusFailed:
		return "failed"
	case order.PaymentStatusCancelled:
		return "cancelled"
	case order.PaymentStatusDisputed:
		return "disputed"
	case order.PaymentStatusRefunded:
		return "refunded"
	default:
		return string(s)
	}
}
