package reconcile

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxFetchLimit   = 100
)

// ListOrdersQuery drives the order list read path.
type ListOrdersQuery struct {
	Page   int
	Limit  int
	Status string
	Search string
}

// ProjectionService is the provider-backed read path. The provider remains
// the source of payment truth; the local store contributes only the
// storefront-owned fulfillment overlay.
type ProjectionService struct {
	gateway payment.Gateway
	orders  order.Repository
	logger  *zap.Logger
}

// NewProjectionService creates a new ProjectionService
func NewProjectionService(gateway payment.Gateway, orders order.Repository, logger *zap.Logger) *ProjectionService {
	return &ProjectionService{
		gateway: gateway,
		orders:  orders,
		logger:  logger,
	}
}

// List returns one page of orders. Status filtering is pushed to the
// provider's search endpoint so its page math stays correct; free-text search
// is a local refinement over the fetched batch, which makes the counts
// approximate whenever it discards records.
func (s *ProjectionService) List(ctx context.Context, q ListOrdersQuery) (*OrderPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}

	var (
		records []*payment.PaymentRecord
		hasMore bool
		offset  int
		err     error
	)
	if q.Status != "" && q.Status != "all" {
		// The search endpoint has no cursor to carry between requests, so the
		// whole window up to the requested page is fetched and sliced here.
		records, hasMore, err = s.listByStatus(ctx, q)
		offset = (q.Page - 1) * q.Limit
	} else {
		records, hasMore, err = s.listCursor(ctx, q)
	}
	if err != nil {
		return nil, err
	}

	if q.Search != "" {
		records = filterBySearch(records, q.Search)
	}

	// Counts cover the whole fetched batch after filtering, so totalPages
	// reflects every matched record seen, not just the returned window.
	totalCount := len(records)
	if offset >= len(records) {
		records = nil
	} else {
		records = records[offset:]
	}
	if len(records) > q.Limit {
		records = records[:q.Limit]
		hasMore = true
	}

	views := make([]OrderView, len(records))
	for i, rec := range records {
		views[i] = viewFromRecord(rec, s.localOrder(ctx, rec.ID))
	}

	return &OrderPage{
		Orders: views,
		Pagination: Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			TotalCount: totalCount,
			TotalPages: int(math.Ceil(float64(totalCount) / float64(q.Limit))),
			HasMore:    hasMore,
		},
	}, nil
}

// listByStatus fetches enough status-matched records to cover the requested
// page; the caller slices the page window out of the batch.
func (s *ProjectionService) listByStatus(ctx context.Context, q ListOrdersQuery) ([]*payment.PaymentRecord, bool, error) {
	fetch := int64(q.Page * q.Limit)
	if fetch > maxFetchLimit {
		fetch = maxFetchLimit
	}
	return s.gateway.SearchPaymentRecordsByStatus(ctx, q.Status, fetch)
}

// listCursor walks the provider's cursor pagination to the requested page,
// then over-fetches to leave room for local text filtering.
func (s *ProjectionService) listCursor(ctx context.Context, q ListOrdersQuery) ([]*payment.PaymentRecord, bool, error) {
	var cursor string
	if q.Page > 1 {
		skip := int64((q.Page - 1) * q.Limit)
		if skip > maxFetchLimit {
			skip = maxFetchLimit
		}
		prev, _, err := s.gateway.ListPaymentRecords(ctx, payment.ListQuery{Limit: skip})
		if err != nil {
			return nil, false, err
		}
		if len(prev) == 0 {
			return nil, false, nil
		}
		cursor = prev[len(prev)-1].ID
	}

	fetch := int64(q.Limit)
	if q.Search != "" {
		fetch = min(fetch*2, maxFetchLimit)
	}
	return s.gateway.ListPaymentRecords(ctx, payment.ListQuery{Limit: fetch, StartingAfter: cursor})
}

// Get returns the fully expanded detail view. Optional enrichments (customer
// profile, line items, refunds) degrade to warnings; only the primary record
// fetch can fail the call.
func (s *ProjectionService) Get(ctx context.Context, orderID string) (*OrderView, error) {
	rec, err := s.gateway.GetPaymentRecord(ctx, orderID)
	if err != nil {
		return nil, err
	}

	view := viewFromRecord(rec, s.localOrder(ctx, orderID))

	if rec.CustomerID != "" {
		if cust, cerr := s.gateway.GetCustomer(ctx, rec.CustomerID); cerr != nil {
			s.logger.Warn("Failed to fetch customer",
				zap.String("order_id", orderID),
				zap.String("customer_id", rec.CustomerID),
				zap.Error(cerr))
		} else {
			if cust.Email != "" {
				view.CustomerEmail = cust.Email
			}
			view.CustomerName = cust.Name
			view.CustomerDetails = &CustomerView{
				ID:    cust.ID,
				Email: cust.Email,
				Name:  cust.Name,
				Phone: cust.Phone,
			}
		}
	}

	if rec.CheckoutSessionID != "" {
		if items, lerr := s.gateway.GetSessionLineItems(ctx, rec.CheckoutSessionID); lerr != nil {
			s.logger.Warn("Failed to fetch line items",
				zap.String("order_id", orderID),
				zap.String("session_id", rec.CheckoutSessionID),
				zap.Error(lerr))
		} else {
			view.LineItems = make([]LineItemView, len(items))
			for i, item := range items {
				view.LineItems[i] = LineItemView{
					Name:     item.Name,
					Quantity: item.Quantity,
					Amount:   majorUnits(item.Amount),
				}
			}
		}
	}

	charges, cerr := s.gateway.ListCharges(ctx, orderID, 10)
	if cerr != nil {
		s.logger.Warn("Failed to fetch charges",
			zap.String("order_id", orderID),
			zap.Error(cerr))
		return &view, nil
	}

	view.Charges = make([]ChargeView, len(charges))
	for i, ch := range charges {
		view.Charges[i] = ChargeView{
			ID:                 ch.ID,
			Amount:             majorUnits(ch.Amount),
			Status:             ch.Status,
			Created:            ch.Created,
			ReceiptURL:         ch.ReceiptURL,
			BalanceTransaction: ch.BalanceTransaction,
		}
	}
	if len(charges) > 0 {
		view.ReceiptURL = charges[0].ReceiptURL

		refunds, rerr := s.gateway.ListRefunds(ctx, charges[0].ID)
		if rerr != nil {
			s.logger.Warn("Failed to fetch refunds",
				zap.String("order_id", orderID),
				zap.String("charge_id", charges[0].ID),
				zap.Error(rerr))
		} else {
			view.Refunds = make([]RefundView, len(refunds))
			for i, r := range refunds {
				view.Refunds[i] = RefundView{
					ID:      r.ID,
					Amount:  majorUnits(r.Amount),
					Reason:  r.Reason,
					Status:  r.Status,
					Created: r.Created,
				}
			}
		}
	}

	return &view, nil
}

// localOrder looks up the stored order for the fulfillment overlay. Absence
// is normal for orders that never saw a webhook.
func (s *ProjectionService) localOrder(ctx context.Context, id string) *order.Order {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Failed to read local order", zap.String("order_id", id), zap.Error(err))
		}
		return nil
	}
	return o
}

// filterBySearch matches the free-text query against id, email, and
// description, case-insensitively.
func filterBySearch(records []*payment.PaymentRecord, search string) []*payment.PaymentRecord {
	needle := strings.ToLower(search)
	out := records[:0:0]
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.ID), needle) ||
			strings.Contains(strings.ToLower(rec.ReceiptEmail), needle) ||
			strings.Contains(strings.ToLower(rec.Description), needle) {
			out = append(out, rec)
		}
	}
	return out
}
