package notify

import (
	"context"
	"testing"
	"time"

	"github.com/storefront/backend/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Save(ctx context.Context, intents ...*notification.Intent) error {
	callArgs := make([]any, 0, len(intents)+1)
	callArgs = append(callArgs, ctx)
	for _, i := range intents {
		callArgs = append(callArgs, i)
	}
	args := m.Called(callArgs...)
	return args.Error(0)
}

func (m *mockRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*notification.Intent, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Intent), args.Error(1)
}

func (m *mockRepository) Update(ctx context.Context, intent *notification.Intent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *mockRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, intent *notification.Intent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func newDispatcherFixture() (*Dispatcher, *mockRepository, *mockSender) {
	repo := new(mockRepository)
	sender := new(mockSender)
	d := NewDispatcher(repo, sender, DefaultDispatcherConfig(), zap.NewNop())
	return d, repo, sender
}

func TestDeliverBatch_SendsAndMarksSent(t *testing.T) {
	d, repo, sender := newDispatcherFixture()

	intent := notification.NewIntent("pay_1", "buyer@example.com", "completed", "usd", 2500)
	repo.On("FindDue", mock.Anything, mock.Anything, 50).Return([]*notification.Intent{intent}, nil)
	repo.On("Update", mock.Anything, intent).Return(nil)
	sender.On("Send", mock.Anything, intent).Return(nil)

	d.DeliverBatch(context.Background())

	assert.Equal(t, notification.StatusSent, intent.Status)
	require.NotNil(t, intent.ProcessedAt)
	repo.AssertNumberOfCalls(t, "Update", 2)
}

func TestDeliverBatch_FailureSchedulesRetry(t *testing.T) {
	d, repo, sender := newDispatcherFixture()

	intent := notification.NewIntent("pay_1", "buyer@example.com", "completed", "usd", 2500)
	repo.On("FindDue", mock.Anything, mock.Anything, 50).Return([]*notification.Intent{intent}, nil)
	repo.On("Update", mock.Anything, intent).Return(nil)
	sender.On("Send", mock.Anything, intent).Return(assert.AnError)

	d.DeliverBatch(context.Background())

	assert.Equal(t, notification.StatusFailed, intent.Status)
	assert.Equal(t, 1, intent.RetryCount)
	require.NotNil(t, intent.NextRetryAt)
}

func TestDeliverBatch_ExhaustedRetriesDeadLetter(t *testing.T) {
	d, repo, sender := newDispatcherFixture()

	intent := notification.NewIntent("pay_1", "buyer@example.com", "completed", "usd", 2500)
	intent.RetryCount = notification.DefaultMaxRetries - 1

	repo.On("FindDue", mock.Anything, mock.Anything, 50).Return([]*notification.Intent{intent}, nil)
	repo.On("Update", mock.Anything, intent).Return(nil)
	sender.On("Send", mock.Anything, intent).Return(assert.AnError)

	d.DeliverBatch(context.Background())

	assert.True(t, intent.IsDead())
}

func TestDeliverBatch_FindDueErrorIsSwallowed(t *testing.T) {
	d, repo, sender := newDispatcherFixture()

	repo.On("FindDue", mock.Anything, mock.Anything, 50).Return(nil, assert.AnError)

	d.DeliverBatch(context.Background())

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDispatcher_StartStop(t *testing.T) {
	d, repo, _ := newDispatcherFixture()

	repo.On("FindDue", mock.Anything, mock.Anything, 50).Return([]*notification.Intent{}, nil).Maybe()
	repo.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()

	d.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
}
