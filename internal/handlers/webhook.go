package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"storefront_back_end/internal/apperr"
	"storefront_back_end/internal/models"
)

const maxWebhookBytes = int64(65536)

// SessionSettler applies processor notifications to orders.
type SessionSettler interface {
	SettleSession(ctx context.Context, sessionID string) (*models.Order, error)
	CancelExpired(ctx context.Context, orderID string) error
}

type WebhookHandler struct {
	settler SessionSettler
	secret  string
}

// NewWebhookHandler verifies signatures with secret. An empty secret
// accepts unsigned payloads, for local testing only.
func NewWebhookHandler(settler SessionSettler, secret string) *WebhookHandler {
	return &WebhookHandler{settler: settler, secret: secret}
}

// StripeWebhook answers POST /api/stripe/webhook. Failures the processor
// should retry are answered with 500.
func (h *WebhookHandler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Webhook payload unreadable:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}

	var event stripe.Event
	if h.secret == "" {
		log.Println("⚠️ No STRIPE_WEBHOOK_SECRET, accepting unsigned event")
		if err := json.Unmarshal(payload, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
			return
		}
	} else {
		event, err = webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			log.Println("❌ Invalid Stripe signature:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
	}

	log.Printf("📥 Stripe event received: %s", event.Type)
	if err := h.handle(c.Request.Context(), event); err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindUpstream, apperr.KindPersistence, apperr.KindInternal:
			log.Printf("❌ Event %s failed, asking for a retry: %s", event.ID, apperr.Describe(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		log.Printf("⚠️ Event %s not applied: %s", event.ID, apperr.Describe(err))
	}
	c.Status(http.StatusOK)
}

func (h *WebhookHandler) handle(ctx context.Context, event stripe.Event) error {
	switch string(event.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return apperr.Validation("invalid checkout session payload")
		}
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			log.Printf("ℹ️ Session %s completed without payment (%s)", session.ID, session.PaymentStatus)
			return nil
		}
		order, err := h.settler.SettleSession(ctx, session.ID)
		if err != nil {
			return err
		}
		log.Printf("💳 Order %s settled from webhook", order.ID)
		return nil

	case "checkout.session.expired":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return apperr.Validation("invalid checkout session payload")
		}
		orderID := session.Metadata["order_id"]
		if orderID == "" {
			orderID = session.ClientReferenceID
		}
		if orderID == "" {
			log.Printf("⚠️ Expired session %s carries no order id", session.ID)
			return nil
		}
		return h.settler.CancelExpired(ctx, orderID)
	}

	log.Printf("ℹ️ Event ignored: %s", event.Type)
	return nil
}
