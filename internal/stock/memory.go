package stock

import (
	"context"
	"sync"

	"storefront_back_end/internal/models"
)

// MemoryLedger is an in-process Ledger for tools and tests.
type MemoryLedger struct {
	mu           sync.Mutex
	levels       map[string]int64
	reservations map[string][]models.StockLine
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		levels:       make(map[string]int64),
		reservations: make(map[string][]models.StockLine),
	}
}

func (m *MemoryLedger) Reserve(_ context.Context, reservationID string, lines []models.StockLine) (bool, error) {
	merged, err := normalize(lines)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.reservations[reservationID]; held {
		return false, nil
	}

	// First pass: every line must be covered before anything is taken.
	for _, line := range merged {
		have, ok := m.levels[line.ProductID]
		if !ok {
			return false, &UnknownProductError{ProductID: line.ProductID}
		}
		if have < int64(line.Quantity) {
			return false, &ShortageError{ProductID: line.ProductID, Requested: int64(line.Quantity), Available: have}
		}
	}

	for _, line := range merged {
		m.levels[line.ProductID] -= int64(line.Quantity)
	}
	m.reservations[reservationID] = merged
	return true, nil
}

func (m *MemoryLedger) Release(_ context.Context, reservationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	held, ok := m.reservations[reservationID]
	if !ok {
		return false, nil
	}
	for _, line := range held {
		m.levels[line.ProductID] += int64(line.Quantity)
	}
	delete(m.reservations, reservationID)
	return true, nil
}

func (m *MemoryLedger) Level(_ context.Context, productID string) (models.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.levels[productID]
	if !ok {
		return models.StockLevel{}, &UnknownProductError{ProductID: productID}
	}
	return models.StockLevel{ProductID: productID, Quantity: n}, nil
}

func (m *MemoryLedger) Set(_ context.Context, productID string, quantity int64) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[productID] = quantity
	return nil
}
