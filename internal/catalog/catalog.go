package catalog

import (
	"context"

	"storefront_back_end/internal/models"
)

// Catalog looks up authoritative product data. Products that do not exist
// are absent from the result; they are not an error.
type Catalog interface {
	Lookup(ctx context.Context, productIDs []string) (map[string]models.Product, error)
}

// Static serves a fixed product list.
type Static map[string]models.Product

func NewStatic(products ...models.Product) Static {
	s := make(Static, len(products))
	for _, p := range products {
		s[p.ID] = p
	}
	return s
}

func (s Static) Lookup(_ context.Context, productIDs []string) (map[string]models.Product, error) {
	found := make(map[string]models.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := s[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
