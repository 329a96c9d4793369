package reconcile

import (
	"context"
	"testing"

	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newActionFixture() (*ActionService, *MockGateway, *MockOrderRepository, *MockNotificationRepository) {
	gateway := new(MockGateway)
	orders := new(MockOrderRepository)
	outbox := new(MockNotificationRepository)
	svc := NewActionService(gateway, orders, outbox, zap.NewNop())
	return svc, gateway, orders, outbox
}

func localOrderFixture() *order.Order {
	return order.NewFromEvent(order.PaymentEvent{
		IntentID: "pay_1",
		Status:   order.PaymentStatusSucceeded,
		Amount:   2500,
		Currency: "usd",
		Customer: order.Customer{Email: "buyer@example.com", Name: "Buyer"},
	}, testNow())
}

func TestDispatch_InvalidAction(t *testing.T) {
	svc, gateway, _, _ := newActionFixture()

	_, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{Action: "explode"})
	assert.ErrorIs(t, err, ErrInvalidAction)
	gateway.AssertNotCalled(t, "CancelPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_UpdateStatus(t *testing.T) {
	svc, gateway, orders, outbox := newActionFixture()

	orders.On("FindByID", mock.Anything, "pay_1").Return(localOrderFixture(), nil)
	orders.On("UpdateFulfillment", mock.Anything, "pay_1", order.FulfillmentStatusShipped).Return(nil)
	gateway.On("UpdatePaymentMetadata", mock.Anything, "pay_1",
		map[string]string{"fulfillment_status": "shipped"}).Return(&payment.PaymentRecord{ID: "pay_1"}, nil)

	var intent *notification.Intent
	outbox.On("Save", mock.Anything, mock.AnythingOfType("*notification.Intent")).
		Run(func(args mock.Arguments) { intent = args.Get(1).(*notification.Intent) }).
		Return(nil)

	result, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{
		Action:            ActionUpdateStatus,
		FulfillmentStatus: "shipped",
	})
	require.NoError(t, err)

	assert.Equal(t, "Order update_status successful", result.Message)
	require.NotNil(t, intent)
	assert.Equal(t, "shipped", intent.OrderStatus)
	assert.Equal(t, "buyer@example.com", intent.Recipient)
}

func TestDispatch_UpdateStatus_InvalidStatus(t *testing.T) {
	svc, _, orders, _ := newActionFixture()

	_, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{
		Action:            ActionUpdateStatus,
		FulfillmentStatus: "teleported",
	})
	require.Error(t, err)
	orders.AssertNotCalled(t, "UpdateFulfillment", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_UpdateStatus_SyncsUnknownOrder(t *testing.T) {
	svc, gateway, orders, outbox := newActionFixture()

	orders.On("FindByID", mock.Anything, "pay_1").Return(nil, shared.ErrNotFound)
	gateway.On("GetPaymentRecord", mock.Anything, "pay_1").Return(&payment.PaymentRecord{
		ID:           "pay_1",
		Amount:       2500,
		Currency:     "usd",
		Status:       "succeeded",
		ReceiptEmail: "buyer@example.com",
		Created:      testNow(),
	}, nil)
	orders.On("SaveProjection", mock.Anything, mock.AnythingOfType("*order.Order")).Return(true, nil)
	orders.On("UpdateFulfillment", mock.Anything, "pay_1", order.FulfillmentStatusProcessing).Return(nil)
	gateway.On("UpdatePaymentMetadata", mock.Anything, "pay_1", mock.Anything).Return(&payment.PaymentRecord{ID: "pay_1"}, nil)
	outbox.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{
		Action:            ActionUpdateStatus,
		FulfillmentStatus: "processing",
	})
	require.NoError(t, err)
	orders.AssertCalled(t, "SaveProjection", mock.Anything, mock.Anything)
}

func TestDispatch_Cancel(t *testing.T) {
	svc, gateway, _, outbox := newActionFixture()

	gateway.On("CancelPayment", mock.Anything, "pay_1", "requested_by_customer").Return(&payment.PaymentRecord{
		ID:           "pay_1",
		Amount:       2500,
		Currency:     "usd",
		ReceiptEmail: "buyer@example.com",
	}, nil)

	var intent *notification.Intent
	outbox.On("Save", mock.Anything, mock.AnythingOfType("*notification.Intent")).
		Run(func(args mock.Arguments) { intent = args.Get(1).(*notification.Intent) }).
		Return(nil)

	result, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{Action: ActionCancel})
	require.NoError(t, err)

	assert.Equal(t, ActionCancel, result.Action)
	require.NotNil(t, intent)
	assert.Equal(t, "cancelled", intent.OrderStatus)
}

func TestDispatch_Refund_NoCharge(t *testing.T) {
	svc, gateway, _, _ := newActionFixture()

	gateway.On("GetPaymentRecord", mock.Anything, "pay_1").Return(&payment.PaymentRecord{ID: "pay_1"}, nil)
	gateway.On("ListCharges", mock.Anything, "pay_1", int64(1)).Return([]*payment.ChargeInfo{}, nil)

	_, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{Action: ActionRefund})
	assert.ErrorIs(t, err, shared.ErrNoCharge)
	gateway.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_Refund(t *testing.T) {
	svc, gateway, _, outbox := newActionFixture()

	gateway.On("GetPaymentRecord", mock.Anything, "pay_1").Return(&payment.PaymentRecord{
		ID:           "pay_1",
		Amount:       2500,
		Currency:     "usd",
		ReceiptEmail: "buyer@example.com",
	}, nil)
	gateway.On("ListCharges", mock.Anything, "pay_1", int64(1)).Return([]*payment.ChargeInfo{
		{ID: "ch_1", Amount: 2500},
	}, nil)
	gateway.On("CreateRefund", mock.Anything, "ch_1", "requested_by_customer").Return(&payment.RefundInfo{
		ID:     "re_1",
		Amount: 2500,
		Status: "succeeded",
	}, nil)

	var intent *notification.Intent
	outbox.On("Save", mock.Anything, mock.AnythingOfType("*notification.Intent")).
		Run(func(args mock.Arguments) { intent = args.Get(1).(*notification.Intent) }).
		Return(nil)

	result, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{Action: ActionRefund})
	require.NoError(t, err)

	refund, ok := result.Data.(*payment.RefundInfo)
	require.True(t, ok)
	assert.Equal(t, "re_1", refund.ID)
	require.NotNil(t, intent)
	assert.Equal(t, "refunded", intent.OrderStatus)
	assert.Equal(t, int64(2500), intent.RefundMinor)
}

func TestDispatch_Capture(t *testing.T) {
	svc, gateway, _, outbox := newActionFixture()

	gateway.On("CapturePayment", mock.Anything, "pay_1").Return(&payment.PaymentRecord{
		ID:           "pay_1",
		Amount:       2500,
		Currency:     "usd",
		ReceiptEmail: "buyer@example.com",
	}, nil)

	var intent *notification.Intent
	outbox.On("Save", mock.Anything, mock.AnythingOfType("*notification.Intent")).
		Run(func(args mock.Arguments) { intent = args.Get(1).(*notification.Intent) }).
		Return(nil)

	_, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{Action: ActionCapture})
	require.NoError(t, err)

	require.NotNil(t, intent)
	assert.Equal(t, "completed", intent.OrderStatus)
}

func TestDispatch_NotificationFailureDoesNotFailAction(t *testing.T) {
	svc, gateway, _, outbox := newActionFixture()

	gateway.On("CancelPayment", mock.Anything, "pay_1", "requested_by_customer").Return(&payment.PaymentRecord{
		ID:           "pay_1",
		Amount:       2500,
		Currency:     "usd",
		ReceiptEmail: "buyer@example.com",
	}, nil)
	outbox.On("Save", mock.Anything, mock.Anything).Return(assert.AnError)

	result, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{Action: ActionCancel})
	require.NoError(t, err)
	assert.Equal(t, "Order cancel successful", result.Message)
}

func TestDispatch_NoEmailSkipsNotification(t *testing.T) {
	svc, gateway, _, outbox := newActionFixture()

	gateway.On("CapturePayment", mock.Anything, "pay_1").Return(&payment.PaymentRecord{
		ID:       "pay_1",
		Amount:   2500,
		Currency: "usd",
	}, nil)

	_, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{Action: ActionCapture})
	require.NoError(t, err)
	outbox.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDispatch_ProviderErrorPropagates(t *testing.T) {
	svc, gateway, _, _ := newActionFixture()

	gateway.On("CapturePayment", mock.Anything, "pay_1").Return(nil, shared.ErrUpstreamUnavailable)

	_, err := svc.Dispatch(context.Background(), "pay_1", ActionRequest{Action: ActionCapture})
	assert.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
}
