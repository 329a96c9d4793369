package reconcile

import (
	"context"
	"testing"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProjectionFixture() (*ProjectionService, *MockGateway, *MockOrderRepository) {
	gateway := new(MockGateway)
	orders := new(MockOrderRepository)
	svc := NewProjectionService(gateway, orders, zap.NewNop())
	return svc, gateway, orders
}

func record(id string, amount int64) *payment.PaymentRecord {
	return &payment.PaymentRecord{
		ID:           id,
		Amount:       amount,
		Currency:     "usd",
		Status:       "succeeded",
		ReceiptEmail: id + "@example.com",
		Created:      testNow(),
	}
}

func TestList_FirstPage(t *testing.T) {
	svc, gateway, orders := newProjectionFixture()

	gateway.On("ListPaymentRecords", mock.Anything, payment.ListQuery{Limit: 10}).
		Return([]*payment.PaymentRecord{record("pay_1", 2000), record("pay_2", 3000)}, false, nil)
	orders.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	page, err := svc.List(context.Background(), ListOrdersQuery{Page: 1, Limit: 10})
	require.NoError(t, err)

	require.Len(t, page.Orders, 2)
	assert.Equal(t, "pay_1", page.Orders[0].ID)
	assert.Equal(t, 20.0, page.Orders[0].Amount)
	assert.Equal(t, "USD", page.Orders[0].Currency)
	assert.Equal(t, "pending", page.Orders[0].FulfillmentStatus)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.False(t, page.Pagination.HasMore)
}

func TestList_SecondPageWalksCursor(t *testing.T) {
	svc, gateway, orders := newProjectionFixture()

	gateway.On("ListPaymentRecords", mock.Anything, payment.ListQuery{Limit: 10}).
		Return([]*payment.PaymentRecord{record("pay_10", 1000)}, true, nil).Once()
	gateway.On("ListPaymentRecords", mock.Anything, payment.ListQuery{Limit: 10, StartingAfter: "pay_10"}).
		Return([]*payment.PaymentRecord{record("pay_11", 1000)}, false, nil).Once()
	orders.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	page, err := svc.List(context.Background(), ListOrdersQuery{Page: 2, Limit: 10})
	require.NoError(t, err)

	require.Len(t, page.Orders, 1)
	assert.Equal(t, "pay_11", page.Orders[0].ID)
	assert.Equal(t, 2, page.Pagination.Page)
}

func TestList_StatusFilterUsesProviderSearch(t *testing.T) {
	svc, gateway, orders := newProjectionFixture()

	gateway.On("SearchPaymentRecordsByStatus", mock.Anything, "succeeded", int64(10)).
		Return([]*payment.PaymentRecord{record("pay_1", 2000)}, false, nil)
	orders.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	page, err := svc.List(context.Background(), ListOrdersQuery{Page: 1, Limit: 10, Status: "succeeded"})
	require.NoError(t, err)

	require.Len(t, page.Orders, 1)
	assert.Equal(t, "succeeded", page.Orders[0].Status)
	gateway.AssertNotCalled(t, "ListPaymentRecords", mock.Anything, mock.Anything)
}

func TestList_StatusSecondPageCountsWholeBatch(t *testing.T) {
	svc, gateway, orders := newProjectionFixture()

	gateway.On("SearchPaymentRecordsByStatus", mock.Anything, "succeeded", int64(4)).
		Return([]*payment.PaymentRecord{
			record("pay_1", 1000), record("pay_2", 1000), record("pay_3", 1000),
		}, false, nil)
	orders.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	page, err := svc.List(context.Background(), ListOrdersQuery{Page: 2, Limit: 2, Status: "succeeded"})
	require.NoError(t, err)

	require.Len(t, page.Orders, 1)
	assert.Equal(t, "pay_3", page.Orders[0].ID)
	assert.Equal(t, 3, page.Pagination.TotalCount)
	assert.Equal(t, 2, page.Pagination.TotalPages)
}

func TestList_SearchFiltersLocally(t *testing.T) {
	svc, gateway, orders := newProjectionFixture()

	batch := []*payment.PaymentRecord{
		record("pay_1", 2000),
		record("pay_2", 3000),
	}
	batch[1].Description = "Gift wrap"
	gateway.On("ListPaymentRecords", mock.Anything, payment.ListQuery{Limit: 20}).
		Return(batch, false, nil)
	orders.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

	page, err := svc.List(context.Background(), ListOrdersQuery{Page: 1, Limit: 10, Search: "gift"})
	require.NoError(t, err)

	require.Len(t, page.Orders, 1)
	assert.Equal(t, "pay_2", page.Orders[0].ID)
	assert.Equal(t, 1, page.Pagination.TotalCount)
}

func TestList_FulfillmentOverlayFromLocalStore(t *testing.T) {
	svc, gateway, orders := newProjectionFixture()

	gateway.On("ListPaymentRecords", mock.Anything, mock.Anything).
		Return([]*payment.PaymentRecord{record("pay_1", 2000)}, false, nil)

	local := order.NewFromEvent(order.PaymentEvent{
		IntentID: "pay_1",
		Status:   order.PaymentStatusSucceeded,
		Amount:   2000,
		Currency: "usd",
	}, testNow())
	require.NoError(t, local.SetFulfillmentStatus(order.FulfillmentStatusShipped, testNow()))
	orders.On("FindByID", mock.Anything, "pay_1").Return(local, nil)

	page, err := svc.List(context.Background(), ListOrdersQuery{Page: 1, Limit: 10})
	require.NoError(t, err)

	require.Len(t, page.Orders, 1)
	assert.Equal(t, "shipped", page.Orders[0].FulfillmentStatus)
	assert.Equal(t, "succeeded", page.Orders[0].Status)
}

func TestList_UpstreamFailure(t *testing.T) {
	svc, gateway, _ := newProjectionFixture()

	gateway.On("ListPaymentRecords", mock.Anything, mock.Anything).
		Return(nil, false, shared.ErrUpstreamUnavailable)

	_, err := svc.List(context.Background(), ListOrdersQuery{Page: 1, Limit: 10})
	assert.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
}

func TestGet_FullyExpanded(t *testing.T) {
	svc, gateway, orders := newProjectionFixture()

	rec := record("pay_1", 2000)
	rec.CustomerID = "cus_1"
	rec.CheckoutSessionID = "cs_1"

	gateway.On("GetPaymentRecord", mock.Anything, "pay_1").Return(rec, nil)
	orders.On("FindByID", mock.Anything, "pay_1").Return(nil, shared.ErrNotFound)
	gateway.On("GetCustomer", mock.Anything, "cus_1").Return(&payment.CustomerProfile{
		ID:    "cus_1",
		Email: "real@example.com",
		Name:  "Real Name",
	}, nil)
	gateway.On("GetSessionLineItems", mock.Anything, "cs_1").Return([]payment.SessionLineItem{
		{Name: "Widget", Quantity: 2, Amount: 1000},
	}, nil)
	gateway.On("ListCharges", mock.Anything, "pay_1", int64(10)).Return([]*payment.ChargeInfo{
		{ID: "ch_1", Amount: 2000, Status: "succeeded", ReceiptURL: "https://receipt"},
	}, nil)
	gateway.On("ListRefunds", mock.Anything, "ch_1").Return([]*payment.RefundInfo{
		{ID: "re_1", Amount: 500, Status: "succeeded"},
	}, nil)

	view, err := svc.Get(context.Background(), "pay_1")
	require.NoError(t, err)

	assert.Equal(t, "real@example.com", view.CustomerEmail)
	assert.Equal(t, "Real Name", view.CustomerName)
	require.NotNil(t, view.CustomerDetails)
	require.Len(t, view.LineItems, 1)
	assert.Equal(t, 10.0, view.LineItems[0].Amount)
	require.Len(t, view.Charges, 1)
	assert.Equal(t, "https://receipt", view.ReceiptURL)
	require.Len(t, view.Refunds, 1)
	assert.Equal(t, 5.0, view.Refunds[0].Amount)
}

func TestGet_EnrichmentFailuresAreNonFatal(t *testing.T) {
	svc, gateway, orders := newProjectionFixture()

	rec := record("pay_1", 2000)
	rec.CustomerID = "cus_1"

	gateway.On("GetPaymentRecord", mock.Anything, "pay_1").Return(rec, nil)
	orders.On("FindByID", mock.Anything, "pay_1").Return(nil, shared.ErrNotFound)
	gateway.On("GetCustomer", mock.Anything, "cus_1").Return(nil, shared.ErrUpstreamUnavailable)
	gateway.On("ListCharges", mock.Anything, "pay_1", int64(10)).Return(nil, shared.ErrUpstreamUnavailable)

	view, err := svc.Get(context.Background(), "pay_1")
	require.NoError(t, err)

	assert.Equal(t, "pay_1", view.ID)
	assert.Nil(t, view.CustomerDetails)
	assert.Empty(t, view.Charges)
	// The record-level email survives a failed customer lookup.
	assert.Equal(t, "pay_1@example.com", view.CustomerEmail)
}

func TestGet_PrimaryFetchFailure(t *testing.T) {
	svc, gateway, _ := newProjectionFixture()

	gateway.On("GetPaymentRecord", mock.Anything, "pay_1").Return(nil, shared.ErrUpstreamTimeout)

	_, err := svc.Get(context.Background(), "pay_1")
	assert.ErrorIs(t, err, shared.ErrUpstreamTimeout)
}
