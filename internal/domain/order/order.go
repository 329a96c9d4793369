package order

import (
	"maps"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

// PaymentStatus mirrors the payment lifecycle state reported by the provider.
// It is never inferred locally; the webhook path is its single writer.
type PaymentStatus string

const (
	PaymentStatusCreated         PaymentStatus = "created"
	PaymentStatusRequiresCapture PaymentStatus = "requires_capture"
	PaymentStatusSucceeded       PaymentStatus = "succeeded"
	PaymentStatusFailed          PaymentStatus = "failed"
	PaymentStatusCancelled       PaymentStatus = "cancelled"
	PaymentStatusDisputed        PaymentStatus = "disputed"
	PaymentStatusRefunded        PaymentStatus = "refunded"
)

// FulfillmentStatus is the storefront-owned delivery state. The payment
// provider has no concept of it.
type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "pending"
	FulfillmentStatusProcessing FulfillmentStatus = "processing"
	FulfillmentStatusShipped    FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered  FulfillmentStatus = "delivered"
	FulfillmentStatusCancelled  FulfillmentStatus = "cancelled"
	FulfillmentStatusReturned   FulfillmentStatus = "returned"
)

// ValidFulfillmentStatus reports whether s is a known fulfillment status.
func ValidFulfillmentStatus(s FulfillmentStatus) bool {
	switch s {
	case FulfillmentStatusPending, FulfillmentStatusProcessing, FulfillmentStatusShipped,
		FulfillmentStatusDelivered, FulfillmentStatusCancelled, FulfillmentStatusReturned:
		return true
	}
	return false
}

// Metadata bookkeeping keys written by payment projections.
const (
	MetaProviderStatus     = "stripe_status"
	MetaProcessedAt        = "webhook_processed_at"
	MetaFailureReason      = "failure_reason"
	MetaCancellationReason = "cancellation_reason"
	MetaDisputeID          = "dispute_id"
	MetaDisputeReason      = "dispute_reason"
	MetaDisputeStatus      = "dispute_status"
)

// Customer is a denormalized snapshot captured at last sync.
type Customer struct {
	Email   string
	Name    string
	Address string
}

// LineItem is a purchased item sourced from a linked checkout session.
type LineItem struct {
	Name     string
	Quantity int64
	Amount   int64
}

// Order is the durable reconciliation record, keyed by the provider's
// payment-intent id. Monetary amounts are minor units.
type Order struct {
	ID                string
	Amount            int64
	Currency          string
	PaymentStatus     PaymentStatus
	FulfillmentStatus FulfillmentStatus
	Customer          Customer
	LineItems         []LineItem
	Metadata          map[string]string

	// EventCreatedAt is the ordering token: the provider-reported creation
	// time of the most recently applied event. Projections carrying an older
	// token must not be applied.
	EventCreatedAt int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentEvent is a normalized provider event ready to be projected.
type PaymentEvent struct {
	IntentID       string
	Status         PaymentStatus
	ProviderStatus string
	Amount         int64
	Currency       string
	Customer       Customer
	LineItems      []LineItem
	Metadata       map[string]string
	EventCreatedAt int64
	IntentCreated  time.Time
}

// NewFromEvent creates an Order from the first sighting of an intent.
// Fulfillment defaults to pending and is owned by the storefront thereafter.
func NewFromEvent(ev PaymentEvent, now time.Time) *Order {
	o := &Order{
		ID:                ev.IntentID,
		Amount:            ev.Amount,
		Currency:          ev.Currency,
		PaymentStatus:     ev.Status,
		FulfillmentStatus: FulfillmentStatusPending,
		Customer:          ev.Customer,
		LineItems:         ev.LineItems,
		Metadata:          map[string]string{},
		EventCreatedAt:    ev.EventCreatedAt,
		CreatedAt:         ev.IntentCreated,
		UpdatedAt:         now,
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.stampMetadata(ev, now)
	return o
}

// ApplyEvent projects a payment event onto an existing order. It returns
// shared.ErrStaleEvent when the event's ordering token is older than the one
// already applied. Fulfillment status is never touched here.
func (o *Order) ApplyEvent(ev PaymentEvent, now time.Time) error {
	if ev.EventCreatedAt < o.EventCreatedAt {
		return shared.ErrStaleEvent
	}
	o.PaymentStatus = ev.Status
	o.EventCreatedAt = ev.EventCreatedAt
	o.UpdatedAt = now
	if ev.Customer.Email != "" {
		o.Customer = ev.Customer
	}
	if len(ev.LineItems) > 0 {
		o.LineItems = ev.LineItems
	}
	o.stampMetadata(ev, now)
	return nil
}

// SetFulfillmentStatus changes the storefront-owned delivery state. It is
// independent of payment-status transitions.
func (o *Order) SetFulfillmentStatus(s FulfillmentStatus, now time.Time) error {
	if !ValidFulfillmentStatus(s) {
		return shared.ErrInvalidInput
	}
	o.FulfillmentStatus = s
	o.UpdatedAt = now
	return nil
}

func (o *Order) stampMetadata(ev PaymentEvent, now time.Time) {
	if o.Metadata == nil {
		o.Metadata = map[string]string{}
	}
	maps.Copy(o.Metadata, ev.Metadata)
	if ev.ProviderStatus != "" {
		o.Metadata[MetaProviderStatus] = ev.ProviderStatus
	}
	o.Metadata[MetaProcessedAt] = now.UTC().Format(time.RFC3339)
}
