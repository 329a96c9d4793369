package cache

import (
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// NewStore returns a Redis-backed idempotency store when Redis is enabled and
// reachable, otherwise a process-local in-memory store. Deduplication is
// best-effort, so degrading to in-memory is acceptable outside of
// multi-instance deployments.
func NewStore(cfg RedisConfig, enabled bool, logger *zap.Logger) shared.IdempotencyStore {
	if enabled {
		store, err := NewRedisStore(cfg)
		if err == nil {
			logger.Info("using Redis idempotency store")
			return store
		}
		logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
			"duplicate webhook deliveries may be reprocessed across instances",
			zap.Error(err),
		)
	}
	return NewInMemoryStore()
}
