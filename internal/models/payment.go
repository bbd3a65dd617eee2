package models

import "github.com/shopspring/decimal"

type PaymentStatus string

const (
	PaymentOpen   PaymentStatus = "open"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// PaymentSession is the processor's view of a hosted checkout. It is
// never written by this service, only fetched by ID.
type PaymentSession struct {
	ID          string          `json:"id"`
	URL         string          `json:"url,omitempty"`
	Status      PaymentStatus   `json:"status"`
	RawStatus   string          `json:"raw_status,omitempty"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	Currency    string          `json:"currency"`
	Email       string          `json:"email,omitempty"`
	OrderID     string          `json:"order_id,omitempty"`
	Lines       []PaymentLine   `json:"lines,omitempty"`
}

type PaymentLine struct {
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}
