package reconcile

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/payment"
)

// OrderView is the presentation-ready projection of an order. Amounts are
// major currency units; everything internal stays in minor units.
type OrderView struct {
	ID                string            `json:"id"`
	Amount            float64           `json:"amount"`
	Currency          string            `json:"currency"`
	Status            string            `json:"status"`
	FulfillmentStatus string            `json:"fulfillmentStatus"`
	CustomerEmail     string            `json:"customerEmail,omitempty"`
	CustomerName      string            `json:"customerName,omitempty"`
	CustomerDetails   *CustomerView     `json:"customerDetails,omitempty"`
	Description       string            `json:"description,omitempty"`
	Created           time.Time         `json:"created"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	PaymentMethod     string            `json:"paymentMethod"`
	ReceiptURL        string            `json:"receiptUrl,omitempty"`
	ShippingAddress   string            `json:"shippingAddress,omitempty"`
	LineItems         []LineItemView    `json:"lineItems,omitempty"`
	Charges           []ChargeView      `json:"charges,omitempty"`
	Refunds           []RefundView      `json:"refunds,omitempty"`
}

// CustomerView is the expanded customer profile on the detail view
type CustomerView struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// LineItemView is a purchased item on the detail view
type LineItemView struct {
	Name     string  `json:"name"`
	Quantity int64   `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// ChargeView is a charge on the detail view
type ChargeView struct {
	ID                 string    `json:"id"`
	Amount             float64   `json:"amount"`
	Status             string    `json:"status"`
	Created            time.Time `json:"created"`
	ReceiptURL         string    `json:"receiptUrl,omitempty"`
	BalanceTransaction string    `json:"balanceTransaction,omitempty"`
}

// RefundView is a refund on the detail view
type RefundView struct {
	ID      string    `json:"id"`
	Amount  float64   `json:"amount"`
	Reason  string    `json:"reason,omitempty"`
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
}

// Pagination describes the page window of a list response. Counts are
// approximate once local text filtering discards records from the fetched
// batch.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"totalCount"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// OrderPage is one page of the order list
type OrderPage struct {
	Orders     []OrderView `json:"orders"`
	Pagination Pagination  `json:"pagination"`
}

// majorUnits converts a minor-unit amount to major units for presentation.
func majorUnits(minor int64) float64 {
	f, _ := decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)).Float64()
	return f
}

// viewFromRecord builds the list-level OrderView from a provider record,
// overlaying the storefront-owned fulfillment status when the order is known
// locally.
func viewFromRecord(rec *payment.PaymentRecord, local *order.Order) OrderView {
	fulfillment := rec.Metadata["fulfillment_status"]
	if local != nil {
		fulfillment = string(local.FulfillmentStatus)
	}
	if fulfillment == "" {
		fulfillment = string(order.FulfillmentStatusPending)
	}

	name := rec.ShippingName
	if name == "" {
		name = rec.ReceiptEmail
	}
	paymentMethod := "unknown"
	if len(rec.PaymentMethodTypes) > 0 {
		paymentMethod = rec.PaymentMethodTypes[0]
	}

	return OrderView{
		ID:                rec.ID,
		Amount:            majorUnits(rec.Amount),
		Currency:          strings.ToUpper(rec.Currency),
		Status:            rec.Status,
		FulfillmentStatus: fulfillment,
		CustomerEmail:     rec.ReceiptEmail,
		CustomerName:      name,
		Description:       rec.Description,
		Created:           rec.Created,
		Metadata:          rec.Metadata,
		PaymentMethod:     paymentMethod,
		ShippingAddress:   rec.ShippingAddress,
	}
}
