package persistence

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormNotificationRepository implements notification.Repository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Save persists one or more intents
func (r *GormNotificationRepository) Save(ctx context.Context, intents ...*notification.Intent) error {
	if len(intents) == 0 {
		return nil
	}
	rows := make([]*models.NotificationIntentModel, len(intents))
	for i, intent := range intents {
		rows[i] = models.NotificationIntentModelFromDomain(intent)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// FindDue retrieves pending intents plus failed intents whose retry time has
// passed, oldest first
func (r *GormNotificationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*notification.Intent, error) {
	var rows []models.NotificationIntentModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(notification.StatusPending)).
		Or("status = ? AND next_retry_at <= ?", string(notification.StatusFailed), now).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	intents := make([]*notification.Intent, len(rows))
	for i := range rows {
		intents[i] = rows[i].ToDomain()
	}
	return intents, nil
}

// Update updates an existing intent
func (r *GormNotificationRepository) Update(ctx context.Context, intent *notification.Intent) error {
	model := models.NotificationIntentModelFromDomain(intent)
	return r.db.WithContext(ctx).Save(model).Error
}

// DeleteOlderThan deletes sent intents older than the given time
func (r *GormNotificationRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", string(notification.StatusSent), before).
		Delete(&models.NotificationIntentModel{})
	return res.RowsAffected, res.Error
}

// Ensure GormNotificationRepository implements notification.Repository
var _ notification.Repository = (*GormNotificationRepository)(nil)
