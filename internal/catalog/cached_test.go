package catalog

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
)

type countingCatalog struct {
	Static
	calls [][]string
}

func (c *countingCatalog) Lookup(ctx context.Context, ids []string) (map[string]models.Product, error) {
	c.calls = append(c.calls, ids)
	return c.Static.Lookup(ctx, ids)
}

func setupCached(t *testing.T) (*Cached, *countingCatalog, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backing := &countingCatalog{Static: NewStatic(
		models.Product{ID: "p1", Name: "Mug", Price: decimal.NewFromInt(10), IsActive: true},
		models.Product{ID: "p2", Name: "Tee", Price: decimal.RequireFromString("19.99"), IsActive: true},
	)}
	return NewCached(backing, client), backing, mr
}

func TestCached_FillsAndServesFromRedis(t *testing.T) {
	cached, backing, mr := setupCached(t)
	ctx := context.Background()

	found, err := cached.Lookup(ctx, []string{"p1", "p2", "p1"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.True(t, mr.Exists("product:p1"))
	require.Len(t, backing.calls, 1)
	assert.ElementsMatch(t, []string{"p1", "p2"}, backing.calls[0])

	found, err = cached.Lookup(ctx, []string{"p1", "p2"})
	require.NoError(t, err)
	assert.True(t, found["p2"].Price.Equal(decimal.RequireFromString("19.99")))
	assert.Len(t, backing.calls, 1)
}

func TestCached_UnknownProductsAreAbsent(t *testing.T) {
	cached, _, mr := setupCached(t)

	found, err := cached.Lookup(context.Background(), []string{"ghost"})
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.False(t, mr.Exists("product:ghost"))
}

func TestCached_Invalidate(t *testing.T) {
	cached, backing, _ := setupCached(t)
	ctx := context.Background()

	_, err := cached.Lookup(ctx, []string{"p1"})
	require.NoError(t, err)
	require.NoError(t, cached.Invalidate(ctx, "p1"))

	_, err = cached.Lookup(ctx, []string{"p1"})
	require.NoError(t, err)
	assert.Len(t, backing.calls, 2)
}

func TestCached_RedisDownFallsThrough(t *testing.T) {
	cached, backing, mr := setupCached(t)
	mr.Close()

	found, err := cached.Lookup(context.Background(), []string{"p1"})
	require.NoError(t, err)
	assert.Contains(t, found, "p1")
	assert.Len(t, backing.calls, 1)
}
