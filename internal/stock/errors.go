package stock

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

// ShortageError names the product that could not be covered.
type ShortageError struct {
	ProductID string
	Requested int64
	Available int64
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }

// UnknownProductError names a product that has no stock counter.
type UnknownProductError struct {
	ProductID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("no stock recorded for product %s", e.ProductID)
}

func (e *UnknownProductError) Unwrap() error { return ErrUnknownProduct }
