package checkout

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"

	"storefront_back_end/internal/apperr"
	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/payment"
)

// Canceller abandons a pending checkout on the shopper's request.
type Canceller struct {
	rt *runtime
}

// Cancel expires the payment session of a pending order, cancels the order
// and releases its stock. Cancelling a cancelled order is a no-op.
func (c *Canceller) Cancel(ctx context.Context, identity auth.Identity, orderID string) (*models.Order, error) {
	deps := c.rt.deps

	id, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return nil, apperr.Validation("invalid order id %q", orderID)
	}
	order, err := deps.Orders.Get(ctx, id)
	if errors.Is(err, orders.ErrOrderNotFound) {
		return nil, apperr.Validation("order %s not found", orderID)
	}
	if err != nil {
		return nil, apperr.Persistence(err, "could not read order")
	}
	if order.UserID != identity.UserID && !identity.Can(auth.CapOrdersEdit) {
		return nil, apperr.Auth(nil, "order %s belongs to another user", orderID)
	}

	switch order.Status {
	case models.StatusCancelled:
		return order, nil
	case models.StatusPaid, models.StatusShipped:
		return nil, apperr.Validation("order %s is already paid", orderID)
	}

	if order.SessionID != "" {
		err := deps.Processor.ExpireSession(ctx, order.SessionID)
		switch {
		case errors.Is(err, payment.ErrSessionCompleted):
			return nil, apperr.Validation("order %s is already paid", orderID)
		case errors.Is(err, payment.ErrSessionNotFound):
			log.Printf("⚠️ Session %s of order %s unknown to the processor", order.SessionID, order.ID)
		case err != nil:
			return nil, apperr.Upstream(err, "could not close payment session")
		}
	}

	if err := c.rt.cancelAndRelease(ctx, order); err != nil {
		if errors.Is(err, orders.ErrInvalidTransition) {
			return nil, apperr.Validation("order %s is already paid", orderID)
		}
		return nil, apperr.Persistence(err, "could not cancel order")
	}
	return order, nil
}
