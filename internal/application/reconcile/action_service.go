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

// Admin actions accepted by Dispatch.
const (
	ActionCapture      = "capture"
	ActionCancel       = "cancel"
	ActionRefund       = "refund"
	ActionUpdateStatus = "update_status"
)

// defaultCancelReason is the normalized reason sent to the provider.
const defaultCancelReason = "requested_by_customer"

// ErrInvalidAction is returned for action strings Dispatch does not know.
var ErrInvalidAction = shared.NewDomainError("INVALID_ACTION", "Invalid action")

// ActionRequest is an admin-requested mutation of one order.
type ActionRequest struct {
	Action            string
	Reason            string
	FulfillmentStatus string
}

// ActionResult is the uniform success payload of a dispatched action.
type ActionResult struct {
	Action  string
	Message string
	Data    any
}

// ActionService validates admin actions and forwards them to the payment
// provider. Except for fulfillment updates it never writes payment status
// itself: the provider emits a webhook event for the state change, and the
// webhook path stays the single writer of payment truth.
type ActionService struct {
	gateway payment.Gateway
	orders  order.Repository
	outbox  notification.Repository
	logger  *zap.Logger
}

// NewActionService creates a new ActionService
func NewActionService(
	gateway payment.Gateway,
	orders order.Repository,
	outbox notification.Repository,
	logger *zap.Logger,
) *ActionService {
	return &ActionService{
		gateway: gateway,
		orders:  orders,
		outbox:  outbox,
		logger:  logger,
	}
}

// Dispatch executes one admin action against an order.
func (s *ActionService) Dispatch(ctx context.Context, orderID string, req ActionRequest) (*ActionResult, error) {
	var result *ActionResult
	var err error

	switch req.Action {
	case ActionUpdateStatus:
		result, err = s.updateFulfillment(ctx, orderID, req)
	case ActionCancel:
		result, err = s.cancel(ctx, orderID)
	case ActionRefund:
		result, err = s.refund(ctx, orderID, req.Reason)
	case ActionCapture:
		result, err = s.capture(ctx, orderID)
	default:
		return nil, ErrInvalidAction
	}
	if err != nil {
		return nil, err
	}

	result.Action = req.Action
	result.Message = fmt.Sprintf("Order %s successful", req.Action)
	return result, nil
}

// updateFulfillment is the only action that mutates storefront-owned state.
// The local record is authoritative; the provider's metadata copy is a
// best-effort mirror for anyone reading the provider dashboard directly.
func (s *ActionService) updateFulfillment(ctx context.Context, orderID string, req ActionRequest) (*ActionResult, error) {
	status := order.FulfillmentStatus(req.FulfillmentStatus)
	if !order.ValidFulfillmentStatus(status) {
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Invalid fulfillment status %q", req.FulfillmentStatus))
	}

	o, err := s.ensureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateFulfillment(ctx, orderID, status); err != nil {
		return nil, err
	}
	o.FulfillmentStatus = status

	if _, merr := s.gateway.UpdatePaymentMetadata(ctx, orderID, map[string]string{
		"fulfillment_status": string(status),
	}); merr != nil {
		s.logger.Warn("Failed to mirror fulfillment status to provider",
			zap.String("order_id", orderID),
			zap.Error(merr))
	}

	s.notify(ctx, orderID, o.Customer.Email, o.Customer.Name, string(status), o.Currency, o.Amount, 0)

	return &ActionResult{Data: map[string]any{
		"id":                o.ID,
		"fulfillmentStatus": string(status),
	}}, nil
}

func (s *ActionService) cancel(ctx context.Context, orderID string) (*ActionResult, error) {
	rec, err := s.gateway.CancelPayment(ctx, orderID, defaultCancelReason)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, rec.ID, rec.ReceiptEmail, rec.ShippingName, "cancelled", rec.Currency, rec.Amount, 0)
	return &ActionResult{Data: rec}, nil
}

// refund resolves the most recent charge first; an intent that never charged
// cannot be refunded and the provider is not called.
func (s *ActionService) refund(ctx context.Context, orderID, reason string) (*ActionResult, error) {
	rec, err := s.gateway.GetPaymentRecord(ctx, orderID)
	if err != nil {
		return nil, err
	}

	charges, err := s.gateway.ListCharges(ctx, orderID, 1)
	if err != nil {
		return nil, err
	}
	if len(charges) == 0 {
		return nil, shared.ErrNoCharge
	}

	if reason == "" {
		reason = defaultCancelReason
	}
	refund, err := s.gateway.CreateRefund(ctx, charges[0].ID, reason)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, rec.ID, rec.ReceiptEmail, rec.ShippingName, "refunded", rec.Currency, rec.Amount, refund.Amount)
	return &ActionResult{Data: refund}, nil
}

func (s *ActionService) capture(ctx context.Context, orderID string) (*ActionResult, error) {
	rec, err := s.gateway.CapturePayment(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, rec.ID, rec.ReceiptEmail, rec.ShippingName, "completed", rec.Currency, rec.Amount, 0)
	return &ActionResult{Data: rec}, nil
}

// ensureOrder loads the local order, syncing it from the provider on first
// sight of an id the store has never recorded.
func (s *ActionService) ensureOrder(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	rec, err := s.gateway.GetPaymentRecord(ctx, orderID)
	if err != nil {
		return nil, err
	}

	o = order.NewFromEvent(order.PaymentEvent{
		IntentID:       rec.ID,
		Status:         mapProviderStatus(rec.Status),
		ProviderStatus: rec.Status,
		Amount:         rec.Amount,
		Currency:       rec.Currency,
		Customer: order.Customer{
			Email:   rec.ReceiptEmail,
			Name:    rec.ShippingName,
			Address: rec.ShippingAddress,
		},
		Metadata:       rec.Metadata,
		EventCreatedAt: rec.Created.Unix(),
		IntentCreated:  rec.Created,
	}, time.Now())

	if _, err := s.orders.SaveProjection(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// notify enqueues a customer email on the outbox; failures are logged and
// never fail the action.
func (s *ActionService) notify(ctx context.Context, orderID, email, name, status, currency string, amountMinor, refundMinor int64) {
	if email == "" {
		return
	}
	intent := notification.NewIntent(orderID, email, status, currency, amountMinor)
	intent.CustomerName = name
	intent.RefundMinor = refundMinor
	if err := s.outbox.Save(ctx, intent); err != nil {
		s.logger.Warn("Failed to enqueue notification",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}

// mapProviderStatus folds the provider's intent status into the local
// payment-status enum.
func mapProviderStatus(providerStatus string) order.PaymentStatus {
	switch providerStatus {
	case "succeeded":
		return order.PaymentStatusSucceeded
	case "requires_capture":
		return order.PaymentStatusRequiresCapture
	case "canceled":
		return order.PaymentStatusCancelled
	default:
		return order.PaymentStatusCreated
	}
}
