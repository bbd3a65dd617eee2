package catalog

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/models"
)

const ProductCacheTTL = 10 * time.Minute

// Cached fronts a Catalog with Redis entries under product:<id>. Redis
// failures fall through to the backing catalog.
type Cached struct {
	next   Catalog
	client redis.UniversalClient
	ttl    time.Duration
}

func NewCached(next Catalog, client redis.UniversalClient) *Cached {
	return &Cached{next: next, client: client, ttl: ProductCacheTTL}
}

func (c *Cached) Lookup(ctx context.Context, productIDs []string) (map[string]models.Product, error) {
	ids := unique(productIDs)
	found := make(map[string]models.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}

	var missing []string
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		log.Printf("⚠️ Product cache unavailable: %v", err)
		missing = ids
	} else {
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var p models.Product
			if err := json.Unmarshal([]byte(s), &p); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			found[ids[i]] = p
		}
	}

	if len(missing) == 0 {
		return found, nil
	}

	fresh, err := c.next.Lookup(ctx, missing)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	for id, p := range fresh {
		found[id] = p
		if data, err := json.Marshal(p); err == nil {
			pipe.Set(ctx, productKey(id), data, c.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("⚠️ Product cache write failed: %v", err)
	}
	return found, nil
}

// Invalidate drops cached entries after a catalog edit.
func (c *Cached) Invalidate(ctx context.Context, productIDs ...string) error {
	if len(productIDs) == 0 {
		return nil
	}
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = productKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}

func productKey(id string) string {
	return "product:" + id
}
