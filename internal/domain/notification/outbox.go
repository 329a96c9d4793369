package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery status of a notification intent
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSent       Status = "SENT"
	StatusFailed     Status = "FAILED"
	StatusDead       Status = "DEAD"
)

// Default retry configuration
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// Intent is a durable record of an order-status email that must be delivered.
// It is written in the same transaction as the state change that caused it,
// so a slow mail provider never sits on the webhook or action critical path.
type Intent struct {
	ID           uuid.UUID
	OrderID      string
	Recipient    string
	OrderStatus  string
	AmountMinor  int64
	RefundMinor  int64
	Currency     string
	CustomerName string
	Status       Status
	RetryCount   int
	MaxRetries   int
	LastError    string
	NextRetryAt  *time.Time
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewIntent creates a pending notification intent for an order status change.
func NewIntent(orderID, recipient, orderStatus, currency string, amountMinor int64) *Intent {
	now := time.Now()
	return &Intent{
		ID:          uuid.New(),
		OrderID:     orderID,
		Recipient:   recipient,
		OrderStatus: orderStatus,
		AmountMinor: amountMinor,
		Currency:    currency,
		Status:      StatusPending,
		MaxRetries:  DefaultMaxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkProcessing marks the intent as being delivered
func (i *Intent) MarkProcessing() error {
	if i.Status != StatusPending && i.Status != StatusFailed {
		return errors.New("can only mark pending or failed intents as processing")
	}
	i.Status = StatusProcessing
	i.UpdatedAt = time.Now()
	return nil
}

// MarkSent marks the intent as successfully delivered
func (i *Intent) MarkSent() {
	now := time.Now()
	i.Status = StatusSent
	i.ProcessedAt = &now
	i.UpdatedAt = now
}

// MarkFailed records a delivery failure and schedules the next retry with
// exponential backoff. After MaxRetries the intent is dead-lettered.
func (i *Intent) MarkFailed(errMsg string) {
	i.RetryCount++
	i.LastError = errMsg
	i.UpdatedAt = time.Now()

	if i.RetryCount >= i.MaxRetries {
		i.Status = StatusDead
	} else {
		i.Status = StatusFailed
		backoff := DefaultBaseBackoff * time.Duration(1<<uint(i.RetryCount-1))
		nextRetry := time.Now().Add(backoff)
		i.NextRetryAt = &nextRetry
	}
}

// IsDead returns true if the intent is in dead letter status
func (i *Intent) IsDead() bool {
	return i.Status == StatusDead
}

// Repository defines the interface for notification outbox persistence
type Repository interface {
	// Save persists one or more intents
	Save(ctx context.Context, intents ...*Intent) error
	// FindDue retrieves pending intents plus failed intents whose retry time
	// has passed, up to limit
	FindDue(ctx context.Context, now time.Time, limit int) ([]*Intent, error)
	// Update updates an existing intent
	Update(ctx context.Context, intent *Intent) error
	// DeleteOlderThan deletes sent intents older than the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
