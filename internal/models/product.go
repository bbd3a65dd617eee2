package models

import "github.com/shopspring/decimal"

// Product is the catalog's authoritative view of an item for sale.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURLs []string        `json:"image_urls"`
	IsActive  bool            `json:"is_active"`
}

// ImageRef returns the first image of the product, if any.
func (p Product) ImageRef() string {
	if len(p.ImageURLs) > 0 {
		return p.ImageURLs[0]
	}
	return ""
}
