package models

// StockLevel is the available quantity of a product.
type StockLevel struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// StockLine is a quantity of one product to take from the ledger.
type StockLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// MergeStockLines sums quantities per product, keeping first-seen order.
func MergeStockLines(lines []StockLine) []StockLine {
	index := make(map[string]int, len(lines))
	merged := make([]StockLine, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}
