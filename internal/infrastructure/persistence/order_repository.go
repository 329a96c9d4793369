package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its payment-intent id
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// SaveProjection upserts the order, guarded by the ordering token. The update
// arm only fires when the incoming event_created_at is at least as new as the
// stored one, so a delayed older event can never overwrite a newer projection
// regardless of interleaving. Returns whether the row was written.
func (r *GormOrderRepository) SaveProjection(ctx context.Context, o *order.Order) (bool, error) {
	model, err := models.OrderModelFromDomain(o)
	if err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"amount", "currency", "payment_status", "customer",
			"line_items", "metadata", "event_created_at", "updated_at",
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "excluded.event_created_at >= orders.event_created_at"},
		}},
	}).Create(model)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// UpdateFulfillment writes only the storefront-owned fulfillment column
func (r *GormOrderRepository) UpdateFulfillment(ctx context.Context, id string, status order.FulfillmentStatus) error {
	res := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"fulfillment_status": string(status),
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
