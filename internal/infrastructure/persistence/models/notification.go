package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/notification"
)

// NotificationIntentModel is the persistence model for the notification
// outbox.
type NotificationIntentModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID      string    `gorm:"type:varchar(255);not null;index:idx_notifications_order"`
	Recipient    string    `gorm:"type:varchar(255);not null"`
	OrderStatus  string    `gorm:"type:varchar(32);not null"`
	AmountMinor  int64     `gorm:"not null"`
	RefundMinor  int64     `gorm:"not null;default:0"`
	Currency     string    `gorm:"type:varchar(10);not null"`
	CustomerName string    `gorm:"type:varchar(255)"`
	Status       string    `gorm:"type:varchar(20);not null;default:PENDING;index:idx_notifications_status_created,priority:1"`
	RetryCount   int       `gorm:"default:0"`
	MaxRetries   int       `gorm:"default:5"`
	LastError    string    `gorm:"type:text"`
	NextRetryAt  *time.Time
	ProcessedAt  *time.Time
	CreatedAt    time.Time `gorm:"not null;index:idx_notifications_status_created,priority:2"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NotificationIntentModel) TableName() string {
	return "notification_outbox"
}

// ToDomain converts the persistence model to a domain Intent
func (m *NotificationIntentModel) ToDomain() *notification.Intent {
	return &notification.Intent{
		ID:           m.ID,
		OrderID:      m.OrderID,
		Recipient:    m.Recipient,
		OrderStatus:  m.OrderStatus,
		AmountMinor:  m.AmountMinor,
		RefundMinor:  m.RefundMinor,
		Currency:     m.Currency,
		CustomerName: m.CustomerName,
		Status:       notification.Status(m.Status),
		RetryCount:   m.RetryCount,
		MaxRetries:   m.MaxRetries,
		LastError:    m.LastError,
		NextRetryAt:  m.NextRetryAt,
		ProcessedAt:  m.ProcessedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// NotificationIntentModelFromDomain creates a persistence model from a domain Intent
func NotificationIntentModelFromDomain(i *notification.Intent) *NotificationIntentModel {
	return &NotificationIntentModel{
		ID:           i.ID,
		OrderID:      i.OrderID,
		Recipient:    i.Recipient,
		OrderStatus:  i.OrderStatus,
		AmountMinor:  i.AmountMinor,
		RefundMinor:  i.RefundMinor,
		Currency:     i.Currency,
		CustomerName: i.CustomerName,
		Status:       string(i.Status),
		RetryCount:   i.RetryCount,
		MaxRetries:   i.MaxRetries,
		LastError:    i.LastError,
		NextRetryAt:  i.NextRetryAt,
		ProcessedAt:  i.ProcessedAt,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}
