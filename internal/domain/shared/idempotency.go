package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers provider event IDs that have already been
// projected. It is an optimization only: projection itself is idempotent, so
// losing this state never corrupts orders, it just costs a redundant write.
type IdempotencyStore interface {
	// MarkProcessed records eventID with a TTL. Returns true if the event was
	// newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether eventID has been marked and not expired.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}
