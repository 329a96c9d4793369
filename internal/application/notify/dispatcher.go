package notify

import (
	"context"
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/notification"
	"go.uber.org/zap"
)

// Sender delivers one rendered notification.
type Sender interface {
	Send(ctx context.Context, intent *notification.Intent) error
}

// DispatcherConfig holds configuration for the outbox dispatcher
type DispatcherConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultDispatcherConfig returns default configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:        50,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Dispatcher drains the notification outbox in the background. Delivery is
// at-least-once: a crash between send and update redelivers the email, which
// is the accepted trade-off for keeping the mail provider off the webhook
// critical path.
type Dispatcher struct {
	repo   notification.Repository
	sender Sender
	config DispatcherConfig
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a new outbox dispatcher
func NewDispatcher(repo notification.Repository, sender Sender, config DispatcherConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repo:   repo,
		sender: sender,
		config: config,
		logger: logger,
	}
}

// Start starts the background delivery loop
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.deliverLoop(ctx)

	if d.config.CleanupEnabled {
		d.wg.Add(1)
		go d.cleanupLoop(ctx)
	}

	d.logger.Info("notification dispatcher started",
		zap.Int("batch_size", d.config.BatchSize),
		zap.Duration("poll_interval", d.config.PollInterval),
	)
}

// Stop gracefully stops the dispatcher
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliverLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DeliverBatch(ctx)
		}
	}
}

// DeliverBatch claims and delivers one batch of due intents. Exported so the
// poll cycle can be driven directly in tests.
func (d *Dispatcher) DeliverBatch(ctx context.Context) {
	due, err := d.repo.FindDue(ctx, time.Now(), d.config.BatchSize)
	if err != nil {
		d.logger.Error("failed to find due notifications", zap.Error(err))
		return
	}

	for _, intent := range due {
		d.deliver(ctx, intent)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, intent *notification.Intent) {
	if err := intent.MarkProcessing(); err != nil {
		d.logger.Warn("skipping intent in unexpected state",
			zap.String("intent_id", intent.ID.String()),
			zap.String("status", string(intent.Status)))
		return
	}
	if err := d.repo.Update(ctx, intent); err != nil {
		d.logger.Error("failed to claim notification", zap.Error(err))
		return
	}

	if err := d.sender.Send(ctx, intent); err != nil {
		intent.MarkFailed(err.Error())
		if intent.IsDead() {
			d.logger.Warn("notification moved to dead letter",
				zap.String("intent_id", intent.ID.String()),
				zap.String("order_id", intent.OrderID),
				zap.Int("retry_count", intent.RetryCount),
				zap.String("last_error", intent.LastError),
			)
		} else {
			d.logger.Warn("notification delivery failed, will retry",
				zap.String("intent_id", intent.ID.String()),
				zap.String("order_id", intent.OrderID),
				zap.Int("retry_count", intent.RetryCount),
				zap.Error(err),
			)
		}
		if uerr := d.repo.Update(ctx, intent); uerr != nil {
			d.logger.Error("failed to update notification", zap.Error(uerr))
		}
		return
	}

	intent.MarkSent()
	if err := d.repo.Update(ctx, intent); err != nil {
		d.logger.Error("failed to mark notification as sent",
			zap.String("intent_id", intent.ID.String()),
			zap.Error(err))
		return
	}
	d.logger.Debug("notification delivered",
		zap.String("intent_id", intent.ID.String()),
		zap.String("order_id", intent.OrderID))
}

func (d *Dispatcher) cleanupLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.cleanup(ctx)
		}
	}
}

func (d *Dispatcher) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-d.config.CleanupRetention)
	deleted, err := d.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		d.logger.Error("failed to clean up sent notifications", zap.Error(err))
		return
	}
	if deleted > 0 {
		d.logger.Info("cleaned up sent notifications",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
}
