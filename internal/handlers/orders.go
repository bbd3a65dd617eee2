package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront_back_end/internal/apperr"
	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/orders"
)

type OrdersHandler struct {
	orders orders.Store
}

func NewOrdersHandler(store orders.Store) *OrdersHandler {
	return &OrdersHandler{orders: store}
}

// GET /api/orders?limit=N, newest first.
func (h *OrdersHandler) ListMine(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	limit := orders.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > orders.DefaultListLimit {
			fail(c, apperr.Validation("limit must be between 1 and %d", orders.DefaultListLimit))
			return
		}
		limit = n
	}

	list, err := h.orders.ListByUser(c.Request.Context(), identity.UserID, limit)
	if err != nil {
		fail(c, apperr.Persistence(err, "could not list orders"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}

// GET /api/orders/:id, for the owner or staff with orders.view.
func (h *OrdersHandler) Get(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.Validation("invalid order id"))
		return
	}

	order, err := h.orders.Get(c.Request.Context(), id)
	if errors.Is(err, orders.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		fail(c, apperr.Persistence(err, "could not read order"))
		return
	}

	// Someone else's order is reported as missing.
	if order.UserID != identity.UserID && !identity.Can(auth.CapOrdersView) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}
