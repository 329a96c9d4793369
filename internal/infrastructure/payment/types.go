package payment

import (
	"context"
	"encoding/json"
	"time"
)

// WebhookEvent is a verified provider notification. DataRaw carries the
// provider's JSON object for the event, parsed later by ParseIntentEvent or
// ParseDisputeEvent.
type WebhookEvent struct {
	ID      string
	Type    string
	Created int64
	DataRaw json.RawMessage
}

// PaymentRecord is the provider's view of a payment intent, normalized so the
// application layer does not depend on provider SDK types. Amounts are minor
// units.
type PaymentRecord struct {
	ID                 string
	Amount             int64
	Currency           string
	Status             string
	ReceiptEmail       string
	Description        string
	ShippingName       string
	ShippingAddress    string
	CustomerID         string
	CheckoutSessionID  string
	Metadata           map[string]string
	PaymentMethodTypes []string
	Created            time.Time
	LatestChargeID     string
	CancellationReason string
	LastPaymentError   string
}

// ChargeInfo describes a single charge attached to a payment intent
type ChargeInfo struct {
	ID                 string
	PaymentIntentID    string
	Amount             int64
	Status             string
	Created            time.Time
	ReceiptURL         string
	BalanceTransaction string
}

// RefundInfo describes a refund issued against a charge
type RefundInfo struct {
	ID      string
	Amount  int64
	Reason  string
	Status  string
	Created time.Time
}

// CustomerProfile is a provider-side customer record
type CustomerProfile struct {
	ID    string
	Email string
	Name  string
	Phone string
}

// SessionLineItem is a purchased item from a checkout session
type SessionLineItem struct {
	Name     string
	Quantity int64
	Amount   int64
}

// DisputeInfo describes a newly created dispute
type DisputeInfo struct {
	ID       string
	ChargeID string
	Reason   string
	Status   string
}

// ListQuery drives cursor-based payment record listing
type ListQuery struct {
	Limit         int64
	StartingAfter string
}

// Gateway abstracts the payment provider's RPC surface. The concrete Stripe
// implementation is constructed once at startup and shared; it is stateless
// beyond its HTTP client.
type Gateway interface {
	// VerifyWebhook checks the timestamped HMAC signature over payload and
	// returns the decoded event. A verification failure wraps
	// shared.ErrBadSignature.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)

	GetPaymentRecord(ctx context.Context, id string) (*PaymentRecord, error)
	// ListPaymentRecords returns up to q.Limit records after the cursor and
	// whether more records exist.
	ListPaymentRecords(ctx context.Context, q ListQuery) ([]*PaymentRecord, bool, error)
	// SearchPaymentRecordsByStatus filters server-side on provider status.
	SearchPaymentRecordsByStatus(ctx context.Context, status string, limit int64) ([]*PaymentRecord, bool, error)

	CapturePayment(ctx context.Context, id string) (*PaymentRecord, error)
	CancelPayment(ctx context.Context, id, reason string) (*PaymentRecord, error)
	UpdatePaymentMetadata(ctx context.Context, id string, metadata map[string]string) (*PaymentRecord, error)

	ListCharges(ctx context.Context, intentID string, limit int64) ([]*ChargeInfo, error)
	GetCharge(ctx context.Context, chargeID string) (*ChargeInfo, error)
	CreateRefund(ctx context.Context, chargeID, reason string) (*RefundInfo, error)
	ListRefunds(ctx context.Context, chargeID string) ([]*RefundInfo, error)

	GetCustomer(ctx context.Context, customerID string) (*CustomerProfile, error)
	GetSessionLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error)
}
