package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices leave the API as JSON numbers, the way the storefront sends them.
	decimal.MarshalJSONWithoutQuotes = true
}

// Currencies whose smallest unit is not a hundredth, per Stripe's list.
var (
	zeroDecimalCurrencies = map[string]bool{
		"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
		"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
		"vuv": true, "xaf": true, "xof": true, "xpf": true,
	}
	threeDecimalCurrencies = map[string]bool{
		"bhd": true, "jod": true, "kwd": true, "omr": true, "tnd": true,
	}
)

// CurrencyExponent is the number of decimals between a currency's major
// and minor unit: 2 for usd, 0 for jpy, 3 for kwd.
func CurrencyExponent(currency string) int32 {
	c := strings.ToLower(currency)
	switch {
	case zeroDecimalCurrencies[c]:
		return 0
	case threeDecimalCurrencies[c]:
		return 3
	default:
		return 2
	}
}

// RoundToCurrency rounds an amount to the smallest unit the currency can
// charge, half away from zero.
func RoundToCurrency(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(CurrencyExponent(currency))
}

// ToMinorUnits converts an amount to the currency's smallest unit,
// rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(CurrencyExponent(currency)).Round(0).IntPart()
}

// FromMinorUnits converts an amount in the currency's smallest unit back to
// a decimal amount.
func FromMinorUnits(units int64, currency string) decimal.Decimal {
	return decimal.New(units, -CurrencyExponent(currency))
}
