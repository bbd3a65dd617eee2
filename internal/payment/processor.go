package payment

import (
	"context"
	"errors"

	"storefront_back_end/internal/models"
)

// ErrSessionCompleted is returned when expiring a session that was already paid.
var ErrSessionCompleted = errors.New("payment session already completed")

// ErrSessionNotFound is returned when the processor does not know the session.
var ErrSessionNotFound = errors.New("payment session not found")

// Processor is the hosted-checkout side of the payment provider.
type Processor interface {
	CreateSession(ctx context.Context, req SessionRequest) (*models.PaymentSession, error)
	GetSession(ctx context.Context, sessionID string) (*models.PaymentSession, error)
	ExpireSession(ctx context.Context, sessionID string) error
}

// SessionRequest describes a hosted checkout for one order. Amounts are in
// minor units.
type SessionRequest struct {
	OrderID       string
	UserID        string
	CustomerEmail string
	Currency      string
	Lines         []LineItem
	SuccessURL    string
	CancelURL     string
}

type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
	ImageURL   string
}

// AmountTotal returns the sum of all lines in minor units.
func (r SessionRequest) AmountTotal() int64 {
	var total int64
	for _, l := range r.Lines {
		total += l.UnitAmount * l.Quantity
	}
	return total
}
