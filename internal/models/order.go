package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions lists the statuses reachable from each status. There is no
// way back: a paid order is never pending again.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped},
}

// CanTransitionTo reports whether s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Status    OrderStatus     `json:"status"`
	SessionID string          `json:"session_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Items     []OrderItem     `json:"items"`
}

type OrderItem struct {
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price_at_purchase"`
}

// ItemsTotal sums the line totals of the order items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// StockLines returns the quantities to hold in the stock ledger.
func (o *Order) StockLines() []StockLine {
	lines := make([]StockLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// Validate checks the creation invariants of an order.
func (o *Order) Validate() error {
	if o.UserID == "" {
		return errors.New("order has no user")
	}
	if len(o.Items) == 0 {
		return errors.New("order has no items")
	}
	if !o.Status.Valid() {
		return fmt.Errorf("unknown order status %q", o.Status)
	}
	if o.Total.IsNegative() {
		return errors.New("order total is negative")
	}
	for _, it := range o.Items {
		if it.Quantity < 1 {
			return fmt.Errorf("item %s has quantity %d", it.ProductID, it.Quantity)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("item %s has a negative price", it.ProductID)
		}
	}
	if !o.ItemsTotal().Equal(o.Total) {
		return fmt.Errorf("order total %s does not match items total %s", o.Total, o.ItemsTotal())
	}
	return nil
}

// NewPendingOrder builds a pending order from priced cart lines.
func NewPendingOrder(userID, currency string, lines []CartLine, now time.Time) *Order {
	order := &Order{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  currency,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, l := range lines {
		order.Items = append(order.Items, OrderItem{
			OrderID:   order.ID,
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	order.Total = order.ItemsTotal()
	return order
}
