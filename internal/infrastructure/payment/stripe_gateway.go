package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"strings"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// CardError is a provider rejection attributable to the card itself. Its
// message is safe to surface to the admin UI.
type CardError struct {
	Message string
}

func (e *CardError) Error() string {
	return e.Message
}

// StripeGateway implements Gateway against the Stripe API. One instance is
// created at startup and shared by all request handlers; the underlying
// client is a stateless HTTP client.
type StripeGateway struct {
	config *StripeConfig
	sc     *client.API
	logger *zap.Logger
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	sc := &client.API{}
	sc.Init(config.SecretKey, nil)

	return &StripeGateway{
		config: config,
		sc:     sc,
		logger: logger,
	}, nil
}

// VerifyWebhook verifies the timestamped HMAC signature and decodes the event
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.config.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe: %v: %w", err, shared.ErrBadSignature)
	}
	return &WebhookEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: event.Created,
		DataRaw: event.Data.Raw,
	}, nil
}

// opCtx bounds a single provider call with the configured request timeout.
// Hung upstream connections then surface as shared.ErrUpstreamTimeout via
// normalizeError instead of stalling the caller.
func (g *StripeGateway) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.config.RequestTimeout)
}

// GetPaymentRecord retrieves a single payment intent
func (g *StripeGateway) GetPaymentRecord(ctx context.Context, id string) (*PaymentRecord, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := g.sc.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, g.normalizeError("get payment intent", err)
	}
	return fromIntent(intent), nil
}

// ListPaymentRecords lists payment intents after the cursor, newest first
func (g *StripeGateway) ListPaymentRecords(ctx context.Context, q ListQuery) ([]*PaymentRecord, bool, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.PaymentIntentListParams{}
	params.Context = ctx
	// One extra record decides hasMore without a second round trip.
	params.Limit = stripe.Int64(q.Limit + 1)
	if q.StartingAfter != "" {
		params.StartingAfter = stripe.String(q.StartingAfter)
	}

	records := make([]*PaymentRecord, 0, q.Limit+1)
	iter := g.sc.PaymentIntents.List(params)
	for iter.Next() {
		records = append(records, fromIntent(iter.PaymentIntent()))
		if int64(len(records)) > q.Limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, false, g.normalizeError("list payment intents", err)
	}

	hasMore := int64(len(records)) > q.Limit
	if hasMore {
		records = records[:q.Limit]
	}
	return records, hasMore, nil
}

// SearchPaymentRecordsByStatus filters on provider status server-side
func (g *StripeGateway) SearchPaymentRecordsByStatus(ctx context.Context, status string, limit int64) ([]*PaymentRecord, bool, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.PaymentIntentSearchParams{
		SearchParams: stripe.SearchParams{
			Query: fmt.Sprintf("status:'%s'", status),
			Limit: stripe.Int64(limit + 1),
		},
	}
	params.Context = ctx

	records := make([]*PaymentRecord, 0, limit+1)
	iter := g.sc.PaymentIntents.Search(params)
	for iter.Next() {
		records = append(records, fromIntent(iter.PaymentIntent()))
		if int64(len(records)) > limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, false, g.normalizeError("search payment intents", err)
	}

	hasMore := int64(len(records)) > limit
	if hasMore {
		records = records[:limit]
	}
	return records, hasMore, nil
}

// CapturePayment captures an authorized payment intent
func (g *StripeGateway) CapturePayment(ctx context.Context, id string) (*PaymentRecord, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	intent, err := g.sc.PaymentIntents.Capture(id, params)
	if err != nil {
		return nil, g.normalizeError("capture payment intent", err)
	}
	return fromIntent(intent), nil
}

// CancelPayment cancels a payment intent with a normalized reason
func (g *StripeGateway) CancelPayment(ctx context.Context, id, reason string) (*PaymentRecord, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(reason),
	}
	params.Context = ctx

	intent, err := g.sc.PaymentIntents.Cancel(id, params)
	if err != nil {
		return nil, g.normalizeError("cancel payment intent", err)
	}
	return fromIntent(intent), nil
}

// UpdatePaymentMetadata writes metadata keys on a payment intent
func (g *StripeGateway) UpdatePaymentMetadata(ctx context.Context, id string, metadata map[string]string) (*PaymentRecord, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := g.sc.PaymentIntents.Update(id, params)
	if err != nil {
		return nil, g.normalizeError("update payment intent", err)
	}
	return fromIntent(intent), nil
}

// ListCharges lists charges for a payment intent, newest first
func (g *StripeGateway) ListCharges(ctx context.Context, intentID string, limit int64) ([]*ChargeInfo, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.ChargeListParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)

	charges := make([]*ChargeInfo, 0, limit)
	iter := g.sc.Charges.List(params)
	for iter.Next() {
		charges = append(charges, fromCharge(iter.Charge()))
		if int64(len(charges)) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, g.normalizeError("list charges", err)
	}
	return charges, nil
}

// GetCharge retrieves a single charge
func (g *StripeGateway) GetCharge(ctx context.Context, chargeID string) (*ChargeInfo, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.ChargeParams{}
	params.Context = ctx

	ch, err := g.sc.Charges.Get(chargeID, params)
	if err != nil {
		return nil, g.normalizeError("get charge", err)
	}
	return fromCharge(ch), nil
}

// CreateRefund issues a refund against a charge
func (g *StripeGateway) CreateRefund(ctx context.Context, chargeID, reason string) (*RefundInfo, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.RefundParams{
		Charge: stripe.String(chargeID),
		Reason: stripe.String(reason),
	}
	params.Context = ctx

	r, err := g.sc.Refunds.New(params)
	if err != nil {
		return nil, g.normalizeError("create refund", err)
	}
	return fromRefund(r), nil
}

// ListRefunds lists refunds for a charge
func (g *StripeGateway) ListRefunds(ctx context.Context, chargeID string) ([]*RefundInfo, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.RefundListParams{
		Charge: stripe.String(chargeID),
	}
	params.Context = ctx

	var refunds []*RefundInfo
	iter := g.sc.Refunds.List(params)
	for iter.Next() {
		refunds = append(refunds, fromRefund(iter.Refund()))
	}
	if err := iter.Err(); err != nil {
		return nil, g.normalizeError("list refunds", err)
	}
	return refunds, nil
}

// GetCustomer retrieves a customer profile
func (g *StripeGateway) GetCustomer(ctx context.Context, customerID string) (*CustomerProfile, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := g.sc.Customers.Get(customerID, params)
	if err != nil {
		return nil, g.normalizeError("get customer", err)
	}
	if cust.Deleted {
		return nil, fmt.Errorf("stripe: customer %s deleted: %w", customerID, shared.ErrNotFound)
	}
	return &CustomerProfile{
		ID:    cust.ID,
		Email: cust.Email,
		Name:  cust.Name,
		Phone: cust.Phone,
	}, nil
}

// GetSessionLineItems retrieves the line items of a checkout session
func (g *StripeGateway) GetSessionLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	sess, err := g.sc.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, g.normalizeError("get checkout session", err)
	}
	if sess.LineItems == nil {
		return nil, nil
	}

	items := make([]SessionLineItem, 0, len(sess.LineItems.Data))
	for _, li := range sess.LineItems.Data {
		items = append(items, SessionLineItem{
			Name:     li.Description,
			Quantity: li.Quantity,
			Amount:   li.AmountTotal,
		})
	}
	return items, nil
}

// ParseIntentEvent decodes a payment_intent.* event payload
func ParseIntentEvent(raw json.RawMessage) (*PaymentRecord, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}
	return fromIntent(&intent), nil
}

// ParseDisputeEvent decodes a charge.dispute.* event payload
func ParseDisputeEvent(raw json.RawMessage) (*DisputeInfo, error) {
	var dispute stripe.Dispute
	if err := json.Unmarshal(raw, &dispute); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dispute: %w", err)
	}
	info := &DisputeInfo{
		ID:     dispute.ID,
		Reason: string(dispute.Reason),
		Status: string(dispute.Status),
	}
	if dispute.Charge != nil {
		info.ChargeID = dispute.Charge.ID
	}
	return info, nil
}

// normalizeError collapses provider failures into the domain taxonomy. Card
// rejections keep their message; everything else is either a timeout or a
// generic upstream failure.
func (g *StripeGateway) normalizeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("stripe: %s: %w", op, shared.ErrUpstreamTimeout)
	}

	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		if sErr.Type == stripe.ErrorTypeCard {
			return &CardError{Message: sErr.Msg}
		}
		g.logger.Warn("Stripe request rejected",
			zap.String("op", op),
			zap.String("code", string(sErr.Code)),
			zap.Error(err))
		return fmt.Errorf("stripe: %s: %s: %w", op, sErr.Msg, shared.ErrUpstreamUnavailable)
	}

	return fmt.Errorf("stripe: %s: %v: %w", op, err, shared.ErrUpstreamUnavailable)
}

func fromIntent(intent *stripe.PaymentIntent) *PaymentRecord {
	rec := &PaymentRecord{
		ID:                 intent.ID,
		Amount:             intent.Amount,
		Currency:           string(intent.Currency),
		Status:             string(intent.Status),
		ReceiptEmail:       intent.ReceiptEmail,
		Description:        intent.Description,
		Metadata:           intent.Metadata,
		PaymentMethodTypes: intent.PaymentMethodTypes,
		Created:            time.Unix(intent.Created, 0),
		CancellationReason: string(intent.CancellationReason),
	}
	if intent.Shipping != nil {
		rec.ShippingName = intent.Shipping.Name
		if intent.Shipping.Address != nil {
			rec.ShippingAddress = formatAddress(intent.Shipping.Address)
		}
	}
	if intent.Customer != nil {
		rec.CustomerID = intent.Customer.ID
	}
	if intent.LatestCharge != nil {
		rec.LatestChargeID = intent.LatestCharge.ID
	}
	if intent.LastPaymentError != nil {
		rec.LastPaymentError = intent.LastPaymentError.Msg
	}
	if intent.Metadata != nil {
		rec.CheckoutSessionID = intent.Metadata["checkout_session_id"]
	}
	return rec
}

func fromCharge(ch *stripe.Charge) *ChargeInfo {
	info := &ChargeInfo{
		ID:         ch.ID,
		Amount:     ch.Amount,
		Status:     string(ch.Status),
		Created:    time.Unix(ch.Created, 0),
		ReceiptURL: ch.ReceiptURL,
	}
	if ch.PaymentIntent != nil {
		info.PaymentIntentID = ch.PaymentIntent.ID
	}
	if ch.BalanceTransaction != nil {
		info.BalanceTransaction = ch.BalanceTransaction.ID
	}
	return info
}

func fromRefund(r *stripe.Refund) *RefundInfo {
	return &RefundInfo{
		ID:      r.ID,
		Amount:  r.Amount,
		Reason:  string(r.Reason),
		Status:  string(r.Status),
		Created: time.Unix(r.Created, 0),
	}
}

func formatAddress(a *stripe.Address) string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Ensure StripeGateway implements Gateway
var _ Gateway = (*StripeGateway)(nil)
