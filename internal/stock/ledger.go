package stock

import (
	"context"
	"fmt"

	"storefront_back_end/internal/models"
)

// Ledger tracks available quantities. Stock is taken under a reservation
// ID so that retries of the same checkout never take it twice.
type Ledger interface {
	// Reserve takes every line or none. applied is false when the
	// reservation was already held.
	Reserve(ctx context.Context, reservationID string, lines []models.StockLine) (applied bool, err error)
	// Release puts a held reservation back. released is false when there
	// was nothing to put back.
	Release(ctx context.Context, reservationID string) (released bool, err error)
	Level(ctx context.Context, productID string) (models.StockLevel, error)
	Set(ctx context.Context, productID string, quantity int64) error
}

func normalize(lines []models.StockLine) ([]models.StockLine, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: nothing to reserve", ErrInvalidQuantity)
	}
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, fmt.Errorf("%w: empty product id", ErrInvalidQuantity)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: %d for product %s", ErrInvalidQuantity, l.Quantity, l.ProductID)
		}
	}
	return models.MergeStockLines(lines), nil
}
