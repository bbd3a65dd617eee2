package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"storefront_back_end/internal/models"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Store persists orders and their items.
type Store interface {
	// Create writes a new order with all of its items.
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Order, error)
	AttachSession(ctx context.Context, id uuid.UUID, sessionID string) error
	// Transition moves the order to status to. changed is false when the
	// order already had that status.
	Transition(ctx context.Context, id uuid.UUID, to models.OrderStatus) (changed bool, err error)
}

const DefaultListLimit = 50

func transitionError(from, to models.OrderStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// checkTransition returns (false, nil) for a same-status no-op.
func checkTransition(from, to models.OrderStatus) (bool, error) {
	if from == to {
		return false, nil
	}
	if !from.CanTransitionTo(to) {
		return false, transitionError(from, to)
	}
	return true, nil
}
