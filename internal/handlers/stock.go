package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/apperr"
	"storefront_back_end/internal/stock"
)

// StockHandler lets operators read and overwrite stock counters.
type StockHandler struct {
	ledger stock.Ledger
}

func NewStockHandler(ledger stock.Ledger) *StockHandler {
	return &StockHandler{ledger: ledger}
}

// GET /api/admin/stock/:productId
func (h *StockHandler) Get(c *gin.Context) {
	level, err := h.ledger.Level(c.Request.Context(), c.Param("productId"))
	if errors.Is(err, stock.ErrUnknownProduct) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no stock recorded for this product"})
		return
	}
	if err != nil {
		fail(c, apperr.Persistence(err, "could not read stock"))
		return
	}
	c.JSON(http.StatusOK, level)
}

type setStockRequest struct {
	Quantity *int64 `json:"quantity" binding:"required"`
}

// PUT /api/admin/stock/:productId
func (h *StockHandler) Set(c *gin.Context) {
	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("quantity is required"))
		return
	}
	if *req.Quantity < 0 {
		fail(c, apperr.Validation("quantity must not be negative"))
		return
	}

	productID := c.Param("productId")
	if err := h.ledger.Set(c.Request.Context(), productID, *req.Quantity); err != nil {
		fail(c, apperr.Persistence(err, "could not write stock"))
		return
	}
	log.Printf("📦 Stock of %s set to %d by %s", productID, *req.Quantity, c.GetString("user_id"))

	level, err := h.ledger.Level(c.Request.Context(), productID)
	if err != nil {
		fail(c, apperr.Persistence(err, "could not read stock"))
		return
	}
	c.JSON(http.StatusOK, level)
}
