package order

import "context"

// Repository defines durable storage for Order records.
//
// SaveProjection must be a conditional upsert keyed by Order.ID: the write is
// applied only when the incoming EventCreatedAt is not older than the stored
// one, so concurrent webhook deliveries for the same intent are safe without
// global locks. It returns (false, nil) when the projection was rejected as
// stale.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	SaveProjection(ctx context.Context, o *Order) (applied bool, err error)

	// UpdateFulfillment writes only the storefront-owned fulfillment status,
	// leaving payment-status fields and the ordering token untouched.
	UpdateFulfillment(ctx context.Context, id string, status FulfillmentStatus) error
}
