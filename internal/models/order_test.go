package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPaid, StatusShipped, true},
		{StatusPaid, StatusPending, false},
		{StatusPaid, StatusCancelled, false},
		{StatusCancelled, StatusPaid, false},
		{StatusShipped, StatusPaid, false},
		{StatusPending, StatusShipped, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNewPendingOrder(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	lines := []CartLine{
		{ProductID: "p1", Name: "Mug", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
		{ProductID: "p2", Name: "Tee", UnitPrice: decimal.RequireFromString("19.99"), Quantity: 1},
	}

	order := NewPendingOrder("user-1", "usd", lines, now)

	require.NoError(t, order.Validate())
	assert.Equal(t, StatusPending, order.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("39.99")))
	assert.Len(t, order.Items, 2)
	assert.Equal(t, order.ID, order.Items[0].OrderID)
	assert.Equal(t, now, order.CreatedAt)
}

func TestOrderValidate_TotalMismatch(t *testing.T) {
	order := NewPendingOrder("user-1", "usd", []CartLine{
		{ProductID: "p1", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
	}, time.Now())
	order.Total = decimal.NewFromInt(15)

	assert.Error(t, order.Validate())
}

func TestOrderValidate_EmptyItems(t *testing.T) {
	order := &Order{UserID: "u", Status: StatusPending}
	assert.Error(t, order.Validate())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.99"), "usd"))
	assert.Equal(t, int64(2000), ToMinorUnits(decimal.NewFromInt(20), "eur"))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.RequireFromString("0.005"), "usd"))
	assert.True(t, FromMinorUnits(1999, "usd").Equal(decimal.RequireFromString("19.99")))
}

func TestMinorUnits_ZeroDecimalCurrency(t *testing.T) {
	assert.Equal(t, int32(0), CurrencyExponent("JPY"))
	assert.Equal(t, int64(10), ToMinorUnits(decimal.NewFromInt(10), "jpy"))
	assert.Equal(t, int64(1500), ToMinorUnits(decimal.NewFromInt(1500), "krw"))
	assert.True(t, FromMinorUnits(10, "jpy").Equal(decimal.NewFromInt(10)))
	assert.True(t, RoundToCurrency(decimal.RequireFromString("10.5"), "jpy").Equal(decimal.NewFromInt(11)))
}

func TestMinorUnits_ThreeDecimalCurrency(t *testing.T) {
	assert.Equal(t, int32(3), CurrencyExponent("kwd"))
	assert.Equal(t, int64(1250), ToMinorUnits(decimal.RequireFromString("1.25"), "kwd"))
	assert.True(t, FromMinorUnits(1250, "kwd").Equal(decimal.RequireFromString("1.25")))
}

func TestMergeStockLines(t *testing.T) {
	merged := MergeStockLines([]StockLine{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 3},
		{ProductID: "p1", Quantity: 2},
	})

	assert.Equal(t, []StockLine{{ProductID: "p1", Quantity: 3}, {ProductID: "p2", Quantity: 3}}, merged)
}

func TestCartLineJSON_PriceAsNumber(t *testing.T) {
	var line CartLine
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p1","name":"Mug","price":10.5,"quantity":2}`), &line))
	assert.True(t, line.Subtotal().Equal(decimal.NewFromInt(21)))

	out, err := json.Marshal(line)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"price":10.5`)
}
