package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
)

func newOrder(userID string, createdAt time.Time) *models.Order {
	return models.NewPendingOrder(userID, "usd", []models.CartLine{
		{ProductID: "p1", Name: "Mug", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
	}, createdAt)
}

func TestMemoryStore_CreateGetCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	order := newOrder("user-1", time.Now())
	require.NoError(t, store.Create(ctx, order))

	got, err := store.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, got.Items, 1)

	got.Items[0].Quantity = 99
	again, err := store.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryStore_RejectsInvalidOrder(t *testing.T) {
	store := NewMemoryStore()
	order := newOrder("user-1", time.Now())
	order.Items = nil

	assert.Error(t, store.Create(context.Background(), order))
}

func TestMemoryStore_Transition(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	order := newOrder("user-1", time.Now())
	require.NoError(t, store.Create(ctx, order))

	changed, err := store.Transition(ctx, order.ID, models.StatusPaid)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.Transition(ctx, order.ID, models.StatusPaid)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = store.Transition(ctx, order.ID, models.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = store.Transition(ctx, order.ID, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = store.Transition(ctx, uuid.New(), models.StatusPaid)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryStore_ListByUserNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	older := newOrder("user-1", base)
	newer := newOrder("user-1", base.Add(time.Hour))
	other := newOrder("user-2", base.Add(2*time.Hour))
	for _, o := range []*models.Order{older, newer, other} {
		require.NoError(t, store.Create(ctx, o))
	}

	list, err := store.ListByUser(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	list, err = store.ListByUser(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore_AttachSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	order := newOrder("user-1", time.Now())
	require.NoError(t, store.Create(ctx, order))

	require.NoError(t, store.AttachSession(ctx, order.ID, "cs_test_1"))
	got, err := store.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", got.SessionID)

	assert.ErrorIs(t, store.AttachSession(ctx, uuid.New(), "cs"), ErrOrderNotFound)
}
