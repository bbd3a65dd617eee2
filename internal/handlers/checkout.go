package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront_back_end/internal/apperr"
	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/models"
)

type CheckoutHandler struct {
	svc *checkout.Service
}

func NewCheckoutHandler(svc *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type checkoutItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Images   []string        `json:"images"`
}

type createSessionRequest struct {
	CartItems []checkoutItem `json:"cartItems"`
}

// CreateCheckoutSession answers POST /functions/v1/create-checkout-session.
// Every failure is reported as 400 {error}.
func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	lines := make([]models.CartLine, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		line := models.CartLine{
			ProductID: item.ID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
		}
		if len(item.Images) > 0 {
			line.ImageRef = item.Images[0]
		}
		lines = append(lines, line)
	}

	result, err := h.svc.Initiator.Start(c.Request.Context(), checkout.StartRequest{
		Token: auth.BearerToken(c.GetHeader("Authorization")),
		Lines: lines,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionUrl": result.SessionURL,
		"orderId":    result.OrderID,
	})
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
	OrderID   string `json:"order_id"`
}

// VerifyStripeSession answers POST /functions/v1/verify-stripe-session.
func (h *CheckoutHandler) VerifyStripeSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	summary, err := h.svc.Verifier.Verify(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orderDetails": summary})
}

// Finalize answers POST /api/checkout/finalize, called by the success page.
// The query string of the success URL is accepted as a fallback.
func (h *CheckoutHandler) Finalize(c *gin.Context) {
	var req sessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": checkout.StateError, "error": "invalid request body"})
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = c.Query("session_id")
	}
	if req.OrderID == "" {
		req.OrderID = c.Query("order_id")
	}

	outcome := h.svc.Finalizer.Finalize(c.Request.Context(), checkout.FinalizeRequest{
		Token:     auth.BearerToken(c.GetHeader("Authorization")),
		SessionID: req.SessionID,
		OrderID:   req.OrderID,
	})
	if outcome.Err != nil {
		c.JSON(apperr.HTTPStatus(outcome.Err), gin.H{
			"status": outcome.State,
			"error":  outcome.Err.Error(),
			"kind":   apperr.KindOf(outcome.Err),
		})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Cancel answers POST /api/checkout/cancel, called by the cancel page.
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req sessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, apperr.Validation("invalid request body"))
			return
		}
	}
	if req.OrderID == "" {
		req.OrderID = c.Query("order_id")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		fail(c, apperr.Validation("order_id is required"))
		return
	}

	order, err := h.svc.Canceller.Cancel(c.Request.Context(), identity, req.OrderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
