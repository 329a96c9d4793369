package models

import (
	"encoding/json"
	"time"

	"github.com/storefront/backend/internal/domain/order"
)

// OrderModel is the persistence model for reconciled orders. Customer,
// line items, and metadata are stored as JSON documents; everything the
// read path filters on is a real column.
type OrderModel struct {
	ID                string `gorm:"type:varchar(255);primaryKey"`
	Amount            int64  `gorm:"not null"`
	Currency          string `gorm:"type:varchar(10);not null"`
	PaymentStatus     string `gorm:"type:varchar(32);not null;index:idx_orders_payment_status"`
	FulfillmentStatus string `gorm:"type:varchar(32);not null;default:pending"`
	Customer          []byte `gorm:"type:jsonb"`
	LineItems         []byte `gorm:"type:jsonb"`
	Metadata          []byte `gorm:"type:jsonb"`
	EventCreatedAt    int64  `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() (*order.Order, error) {
	o := &order.Order{
		ID:                m.ID,
		Amount:            m.Amount,
		Currency:          m.Currency,
		PaymentStatus:     order.PaymentStatus(m.PaymentStatus),
		FulfillmentStatus: order.FulfillmentStatus(m.FulfillmentStatus),
		Metadata:          map[string]string{},
		EventCreatedAt:    m.EventCreatedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if len(m.Customer) > 0 {
		if err := json.Unmarshal(m.Customer, &o.Customer); err != nil {
			return nil, err
		}
	}
	if len(m.LineItems) > 0 {
		if err := json.Unmarshal(m.LineItems, &o.LineItems); err != nil {
			return nil, err
		}
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &o.Metadata); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OrderModelFromDomain creates a persistence model from a domain Order
func OrderModelFromDomain(o *order.Order) (*OrderModel, error) {
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return nil, err
	}
	lineItems, err := json.Marshal(o.LineItems)
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(o.Metadata)
	if err != nil {
		return nil, err
	}
	return &OrderModel{
		ID:                o.ID,
		Amount:            o.Amount,
		Currency:          o.Currency,
		PaymentStatus:     string(o.PaymentStatus),
		FulfillmentStatus: string(o.FulfillmentStatus),
		Customer:          customer,
		LineItems:         lineItems,
		Metadata:          metadata,
		EventCreatedAt:    o.EventCreatedAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}, nil
}
