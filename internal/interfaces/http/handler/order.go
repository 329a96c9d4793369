package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/storefront/backend/internal/application/reconcile"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"go.uber.org/zap"
)

// ActionDispatcher executes one admin action against an order.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, orderID string, req reconcile.ActionRequest) (*reconcile.ActionResult, error)
}

// OrderReader serves the provider-backed order read model.
type OrderReader interface {
	List(ctx context.Context, q reconcile.ListOrdersQuery) (*reconcile.OrderPage, error)
	Get(ctx context.Context, orderID string) (*reconcile.OrderView, error)
}

// OrderHandler exposes the admin order endpoints.
type OrderHandler struct {
	actions   ActionDispatcher
	projector OrderReader
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(actions ActionDispatcher, projector OrderReader) *OrderHandler {
	return &OrderHandler{actions: actions, projector: projector}
}

// RegisterRoutes registers the order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/orders", h.ListOrders)
	rg.GET("/orders/:id", h.GetOrder)
	rg.PATCH("/orders/:id", h.DispatchAction)
}

type actionRequest struct {
	Action            string `json:"action" binding:"required"`
	Reason            string `json:"reason"`
	FulfillmentStatus string `json:"fulfillmentStatus" binding:"omitempty,fulfillment_status"`
}

// bindErrorMessage keeps the 400 body specific when the rejected field is the
// fulfillment status rather than a missing or malformed action.
func bindErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "fulfillment_status" {
				return "Invalid fulfillment status"
			}
		}
	}
	return "Invalid action"
}

// DispatchAction handles PATCH /orders/:id
func (h *OrderHandler) DispatchAction(c *gin.Context) {
	log := logger.FromGin(c)
	orderID := c.Param("id")

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(err)})
		return
	}

	result, err := h.actions.Dispatch(c.Request.Context(), orderID, reconcile.ActionRequest{
		Action:            req.Action,
		Reason:            req.Reason,
		FulfillmentStatus: req.FulfillmentStatus,
	})
	if err != nil {
		h.renderActionError(c, log, orderID, req.Action, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Data,
		"message": result.Message,
	})
}

// renderActionError maps the action-path error taxonomy onto the stable
// {error: string} shape with a 400/500 split.
func (h *OrderHandler) renderActionError(c *gin.Context, log *zap.Logger, orderID, action string, err error) {
	var cardErr *payment.CardError
	var domainErr *shared.DomainError

	switch {
	case errors.Is(err, reconcile.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
	case errors.Is(err, shared.ErrNoCharge):
		c.JSON(http.StatusBadRequest, gin.H{"error": shared.ErrNoCharge.Message})
	case errors.As(err, &cardErr):
		// The provider's card-level rejection is safe to show the admin.
		c.JSON(http.StatusBadRequest, gin.H{"error": cardErr.Message})
	case errors.As(err, &domainErr) && domainErr.Code == "INVALID_INPUT":
		c.JSON(http.StatusBadRequest, gin.H{"error": domainErr.Message})
	default:
		log.Error("Order action failed",
			zap.String("order_id", orderID),
			zap.String("action", action),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process order action"})
	}
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	log := logger.FromGin(c)
	orderID := c.Param("id")

	view, err := h.projector.Get(c.Request.Context(), orderID)
	if err != nil {
		log.Error("Failed to fetch order details",
			zap.String("order_id", orderID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order details"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": view})
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	log := logger.FromGin(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.projector.List(c.Request.Context(), reconcile.ListOrdersQuery{
		Page:   page,
		Limit:  limit,
		Status: c.Query("status"),
		Search: c.Query("search"),
	})
	if err != nil {
		log.Error("Failed to fetch orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, result)
}
