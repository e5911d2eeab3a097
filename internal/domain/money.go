package domain

import (
	"github.com/shopspring/decimal"
)

const (
	// AmountPlaces is the number of fractional digits persisted for amounts
	AmountPlaces int32 = 4
	// RatePlaces is the number of fractional digits persisted for exchange rates
	RatePlaces int32 = 6
)

// Tolerance is the magnitude below which a remaining balance counts as zero
var Tolerance = decimal.New(1, -6)

// RoundAmount rounds an amount for persistence or display
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// RoundRate rounds an exchange rate for persistence or display
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePlaces)
}

// IsZeroBalance reports whether |d| is below Tolerance
func IsZeroBalance(d decimal.Decimal) bool {
	return d.Abs().LessThan(Tolerance)
}

// ClampBalance returns zero for balances within Tolerance of zero and d otherwise
func ClampBalance(d decimal.Decimal) decimal.Decimal {
	if IsZeroBalance(d) {
		return decimal.Zero
	}
	return d
}

// IsOpen reports whether a remaining balance is strictly positive beyond Tolerance
func IsOpen(d decimal.Decimal) bool {
	return !IsZeroBalance(d) && d.IsPositive()
}
