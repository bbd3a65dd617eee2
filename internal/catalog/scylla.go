package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"storefront_back_end/internal/models"
)

const lookupConcurrency = 8

// ScyllaCatalog reads products from the products keyspace, one partition
// read per product, fanned out over a bounded group.
type ScyllaCatalog struct {
	session *gocql.Session
}

func NewScyllaCatalog(session *gocql.Session) *ScyllaCatalog {
	return &ScyllaCatalog{session: session}
}

func (c *ScyllaCatalog) Lookup(ctx context.Context, productIDs []string) (map[string]models.Product, error) {
	var (
		mu    sync.Mutex
		found = make(map[string]models.Product, len(productIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)

	for _, id := range unique(productIDs) {
		g.Go(func() error {
			p, ok, err := c.get(gctx, id)
			if err != nil || !ok {
				return err
			}
			mu.Lock()
			found[id] = p
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

func (c *ScyllaCatalog) get(ctx context.Context, id string) (models.Product, bool, error) {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return models.Product{}, false, nil
	}

	var (
		name      string
		price     float64
		imageURLs []string
		isActive  bool
	)
	err = c.session.Query(`SELECT name, price, image_urls, is_active FROM products WHERE product_id = ?`, uid).
		WithContext(ctx).
		Scan(&name, &price, &imageURLs, &isActive)
	if errors.Is(err, gocql.ErrNotFound) {
		return models.Product{}, false, nil
	}
	if err != nil {
		return models.Product{}, false, fmt.Errorf("select product %s: %w", id, err)
	}

	return models.Product{
		ID:        id,
		Name:      name,
		Price:     decimal.NewFromFloat(price).Round(2),
		ImageURLs: imageURLs,
		IsActive:  isActive,
	}, true, nil
}
