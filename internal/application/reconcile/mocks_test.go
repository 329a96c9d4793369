package reconcile

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/stretchr/testify/mock"
)

func testNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

// MockGateway is a mock implementation of payment.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookEvent), args.Error(1)
}

func (m *MockGateway) GetPaymentRecord(ctx context.Context, id string) (*payment.PaymentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentRecord), args.Error(1)
}

func (m *MockGateway) ListPaymentRecords(ctx context.Context, q payment.ListQuery) ([]*payment.PaymentRecord, bool, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]*payment.PaymentRecord), args.Bool(1), args.Error(2)
}

func (m *MockGateway) SearchPaymentRecordsByStatus(ctx context.Context, status string, limit int64) ([]*payment.PaymentRecord, bool, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]*payment.PaymentRecord), args.Bool(1), args.Error(2)
}

func (m *MockGateway) CapturePayment(ctx context.Context, id string) (*payment.PaymentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentRecord), args.Error(1)
}

func (m *MockGateway) CancelPayment(ctx context.Context, id, reason string) (*payment.PaymentRecord, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentRecord), args.Error(1)
}

func (m *MockGateway) UpdatePaymentMetadata(ctx context.Context, id string, metadata map[string]string) (*payment.PaymentRecord, error) {
	args := m.Called(ctx, id, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentRecord), args.Error(1)
}

func (m *MockGateway) ListCharges(ctx context.Context, intentID string, limit int64) ([]*payment.ChargeInfo, error) {
	args := m.Called(ctx, intentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.ChargeInfo), args.Error(1)
}

func (m *MockGateway) GetCharge(ctx context.Context, chargeID string) (*payment.ChargeInfo, error) {
	args := m.Called(ctx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ChargeInfo), args.Error(1)
}

func (m *MockGateway) CreateRefund(ctx context.Context, chargeID, reason string) (*payment.RefundInfo, error) {
	args := m.Called(ctx, chargeID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundInfo), args.Error(1)
}

func (m *MockGateway) ListRefunds(ctx context.Context, chargeID string) ([]*payment.RefundInfo, error) {
	args := m.Called(ctx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.RefundInfo), args.Error(1)
}

func (m *MockGateway) GetCustomer(ctx context.Context, customerID string) (*payment.CustomerProfile, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CustomerProfile), args.Error(1)
}

func (m *MockGateway) GetSessionLineItems(ctx context.Context, sessionID string) ([]payment.SessionLineItem, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.SessionLineItem), args.Error(1)
}

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) SaveProjection(ctx context.Context, o *order.Order) (bool, error) {
	args := m.Called(ctx, o)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) UpdateFulfillment(ctx context.Context, id string, status order.FulfillmentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockNotificationRepository is a mock implementation of notification.Repository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Save(ctx context.Context, intents ...*notification.Intent) error {
	callArgs := make([]any, 0, len(intents)+1)
	callArgs = append(callArgs, ctx)
	for _, i := range intents {
		callArgs = append(callArgs, i)
	}
	args := m.Called(callArgs...)
	return args.Error(0)
}

func (m *MockNotificationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*notification.Intent, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Intent), args.Error(1)
}

func (m *MockNotificationRepository) Update(ctx context.Context, intent *notification.Intent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockNotificationRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
