package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront_back_end/internal/models"
)

type Type string

const (
	OrderCreated   Type = "order.created"
	OrderPaid      Type = "order.paid"
	OrderCancelled Type = "order.cancelled"
)

// Event is an order lifecycle notification published for downstream
// consumers. Delivery is best effort.
type Event struct {
	EventID   uuid.UUID          `json:"event_id"`
	Type      Type               `json:"type"`
	OrderID   uuid.UUID          `json:"order_id"`
	UserID    string             `json:"user_id"`
	Status    models.OrderStatus `json:"status"`
	Total     decimal.Decimal    `json:"total"`
	Currency  string             `json:"currency"`
	SessionID string             `json:"session_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

func FromOrder(t Type, order *models.Order, at time.Time) Event {
	return Event{
		EventID:   uuid.New(),
		Type:      t,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Total:     order.Total,
		Currency:  order.Currency,
		SessionID: order.SessionID,
		CreatedAt: at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
