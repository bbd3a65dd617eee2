package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"storefront_back_end/internal/models"
)

// maxCASAttempts bounds the read/compare-and-set loop of Transition.
const maxCASAttempts = 3

// ScyllaStore writes orders to the orders keyspace. Amounts are stored in
// cents. Status changes go through lightweight transactions so two
// finalizations of the same order cannot both apply.
type ScyllaStore struct {
	session *gocql.Session
	now     func() time.Time
}

func NewScyllaStore(session *gocql.Session) *ScyllaStore {
	return &ScyllaStore{session: session, now: time.Now}
}

func (s *ScyllaStore) Create(ctx context.Context, order *models.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}
	id := gocql.UUID(order.ID)

	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO orders (order_id, user_id, total_cents, currency, status, session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, order.UserID, models.ToMinorUnits(order.Total, order.Currency), order.Currency, string(order.Status),
		order.SessionID, order.CreatedAt, order.UpdatedAt)
	batch.Query(`INSERT INTO orders_by_user (user_id, created_at, order_id) VALUES (?, ?, ?)`,
		order.UserID, order.CreatedAt, id)
	for _, it := range order.Items {
		batch.Query(`INSERT INTO order_items (order_id, product_id, name, quantity, unit_price_cents) VALUES (?, ?, ?, ?, ?)`,
			id, it.ProductID, it.Name, it.Quantity, models.ToMinorUnits(it.UnitPrice, order.Currency))
	}

	if err := s.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}

func (s *ScyllaStore) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var (
		userID, currency, status, sessionID string
		totalCents                          int64
		createdAt, updatedAt                time.Time
	)
	err := s.session.Query(`SELECT user_id, total_cents, currency, status, session_id, created_at, updated_at
		FROM orders WHERE order_id = ?`, gocql.UUID(id)).
		WithContext(ctx).
		Scan(&userID, &totalCents, &currency, &status, &sessionID, &createdAt, &updatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order %s: %w", id, err)
	}

	order := &models.Order{
		ID:        id,
		UserID:    userID,
		Total:     models.FromMinorUnits(totalCents, currency),
		Currency:  currency,
		Status:    models.OrderStatus(status),
		SessionID: sessionID,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	iter := s.session.Query(`SELECT product_id, name, quantity, unit_price_cents FROM order_items WHERE order_id = ?`,
		gocql.UUID(id)).WithContext(ctx).Iter()
	var (
		productID, name string
		quantity        int
		unitCents       int64
	)
	for iter.Scan(&productID, &name, &quantity, &unitCents) {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:   id,
			ProductID: productID,
			Name:      name,
			Quantity:  quantity,
			UnitPrice: models.FromMinorUnits(unitCents, currency),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("select items of order %s: %w", id, err)
	}
	return order, nil
}

func (s *ScyllaStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var ids []uuid.UUID
	iter := s.session.Query(`SELECT order_id FROM orders_by_user WHERE user_id = ? LIMIT ?`, userID, limit).
		WithContext(ctx).Iter()
	var id gocql.UUID
	for iter.Scan(&id) {
		ids = append(ids, uuid.UUID(id))
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list orders of %s: %w", userID, err)
	}

	list := make([]models.Order, len(ids))
	missing := make([]bool, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, oid := range ids {
		g.Go(func() error {
			o, err := s.Get(gctx, oid)
			if errors.Is(err, ErrOrderNotFound) {
				log.Printf("⚠️ Order index points at missing order %s", oid)
				mu.Lock()
				missing[i] = true
				mu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}
			list[i] = *o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := list[:0]
	for i, o := range list {
		if !missing[i] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *ScyllaStore) AttachSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	applied, err := s.session.Query(`UPDATE orders SET session_id = ?, updated_at = ? WHERE order_id = ? IF EXISTS`,
		sessionID, s.now(), gocql.UUID(id)).
		WithContext(ctx).
		MapScanCAS(map[string]any{})
	if err != nil {
		return fmt.Errorf("attach session to order %s: %w", id, err)
	}
	if !applied {
		return ErrOrderNotFound
	}
	return nil
}

func (s *ScyllaStore) Transition(ctx context.Context, id uuid.UUID, to models.OrderStatus) (bool, error) {
	current, err := s.status(ctx, id)
	if err != nil {
		return false, err
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		changed, err := checkTransition(current, to)
		if err != nil || !changed {
			return false, err
		}

		var actual string
		applied, err := s.session.Query(`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ? IF status = ?`,
			string(to), s.now(), gocql.UUID(id), string(current)).
			WithContext(ctx).
			ScanCAS(&actual)
		if err != nil {
			return false, fmt.Errorf("update status of order %s: %w", id, err)
		}
		if applied {
			return true, nil
		}
		if actual == "" {
			return false, ErrOrderNotFound
		}
		current = models.OrderStatus(actual)
	}
	return false, fmt.Errorf("update status of order %s: too much contention", id)
}

func (s *ScyllaStore) status(ctx context.Context, id uuid.UUID) (models.OrderStatus, error) {
	var status string
	err := s.session.Query(`SELECT status FROM orders WHERE order_id = ?`, gocql.UUID(id)).
		WithContext(ctx).
		Consistency(gocql.Consistency(gocql.LocalSerial)).
		Scan(&status)
	if errors.Is(err, gocql.ErrNotFound) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select status of order %s: %w", id, err)
	}
	return models.OrderStatus(status), nil
}
