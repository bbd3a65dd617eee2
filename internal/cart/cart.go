package cart

import (
	"errors"
	"slices"

	"github.com/shopspring/decimal"

	"storefront_back_end/internal/models"
)

var ErrLineNotFound = errors.New("cart line not found")

// Cart is a shopper's pending selection, one line per product.
type Cart struct {
	Lines []models.CartLine `json:"items"`
}

// Add puts a line in the cart; an existing line for the same product has
// its quantity increased instead.
func (c *Cart) Add(line models.CartLine) {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == line.ProductID {
			c.Lines[i].Quantity += line.Quantity
			return
		}
	}
	c.Lines = append(c.Lines, line)
}

// UpdateQuantity sets the quantity of a line. A quantity below 1 removes it.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	i := c.index(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	if quantity < 1 {
		c.Lines = slices.Delete(c.Lines, i, i+1)
		return nil
	}
	c.Lines[i].Quantity = quantity
	return nil
}

func (c *Cart) Remove(productID string) {
	if i := c.index(productID); i >= 0 {
		c.Lines = slices.Delete(c.Lines, i, i+1)
	}
}

func (c *Cart) Clear() {
	c.Lines = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Count returns the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Total() decimal.Decimal {
	return models.CartTotal(c.Lines)
}

// Snapshot returns a copy of the lines that later cart edits cannot touch.
func (c *Cart) Snapshot() []models.CartLine {
	return slices.Clone(c.Lines)
}

func (c *Cart) index(productID string) int {
	return slices.IndexFunc(c.Lines, func(l models.CartLine) bool {
		return l.ProductID == productID
	})
}
