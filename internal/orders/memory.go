package orders

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront_back_end/internal/models"
)

// MemoryStore keeps orders in process. Callers always get copies.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*models.Order
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[uuid.UUID]*models.Order), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, order *models.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = clone(order)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return clone(o), nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			list = append(list, *clone(o))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *MemoryStore) AttachSession(_ context.Context, id uuid.UUID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.SessionID = sessionID
	o.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Transition(_ context.Context, id uuid.UUID, to models.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, ErrOrderNotFound
	}
	changed, err := checkTransition(o.Status, to)
	if err != nil || !changed {
		return false, err
	}
	o.Status = to
	o.UpdatedAt = s.now()
	return true, nil
}

func clone(o *models.Order) *models.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}
