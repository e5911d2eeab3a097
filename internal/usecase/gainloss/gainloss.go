// Package gainloss computes realised and unrealised foreign-exchange gain/loss.
// All functions are pure; results are signed local-currency amounts where a
// positive value is a gain to the party and a negative value a loss.
package gainloss

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fxledger-backend/internal/domain"
)

// Kind selects which open balance is being valued
type Kind string

const (
	KindInvoice Kind = "invoice" // open invoice balance
	KindAdvance Kind = "advance" // open settlement balance (prepayment)
)

// Policy selects the sign convention for unrealised gain/loss
type Policy string

const (
	// PolicySideAware values open balances with the same sign convention as
	// realised gain/loss: sale-side balances gain when the closing rate rises,
	// purchase-side balances lose.
	PolicySideAware Policy = "side-aware"

	// PolicyGeneric applies one formula per kind regardless of side:
	// invoice = rem x (closing - book), advance = rem x (book - closing).
	PolicyGeneric Policy = "generic"
)

// ParsePolicy converts a configuration value to a Policy; empty selects PolicySideAware
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicySideAware:
		return PolicySideAware, nil
	case PolicyGeneric:
		return PolicyGeneric, nil
	}
	return "", fmt.Errorf("%w: unknown unrealised policy %q", domain.ErrInvalidInput, s)
}

// Realised returns the gain/loss locked in by matching matched base units of an
// invoice booked at invoiceRate against a settlement booked at settlementRate.
//
//	sale:     matched x (settlementRate - invoiceRate)
//	purchase: matched x (invoiceRate - settlementRate)
func Realised(matched, invoiceRate, settlementRate decimal.Decimal, side domain.Side) decimal.Decimal {
	if side == domain.SidePurchase {
		return matched.Mul(invoiceRate.Sub(settlementRate))
	}
	return matched.Mul(settlementRate.Sub(invoiceRate))
}

// UnrealisedInput describes an open balance to value
type UnrealisedInput struct {
	Remaining   decimal.Decimal
	BookRate    decimal.Decimal
	ClosingRate decimal.Decimal
	Kind        Kind
	Side        domain.Side
	Override    *decimal.Decimal // alternate invoice rate for an advance; wins over ClosingRate
	Policy      Policy
}

// Unrealised values an open balance against a closing rate.
// Returns domain.ErrUndefinedRate when a rate needed for the computation is not positive.
func Unrealised(in UnrealisedInput) (decimal.Decimal, error) {
	if !in.BookRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: book rate %s", domain.ErrUndefinedRate, in.BookRate.String())
	}

	if in.Kind == KindAdvance && in.Override != nil {
		if !in.Override.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: override rate %s", domain.ErrUndefinedRate, in.Override.String())
		}
		if in.Policy == PolicyGeneric || in.Side == domain.SidePurchase {
			return in.Remaining.Mul(in.Override.Sub(in.BookRate)), nil
		}
		return in.Remaining.Mul(in.BookRate.Sub(*in.Override)), nil
	}

	if !in.ClosingRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: closing rate %s", domain.ErrUndefinedRate, in.ClosingRate.String())
	}

	rising := in.ClosingRate.Sub(in.BookRate) // gain per unit when the balance is an asset
	switch in.Kind {
	case KindInvoice:
		if in.Policy != PolicyGeneric && in.Side == domain.SidePurchase {
			return in.Remaining.Mul(rising.Neg()), nil
		}
		return in.Remaining.Mul(rising), nil
	case KindAdvance:
		if in.Policy != PolicyGeneric && in.Side == domain.SidePurchase {
			return in.Remaining.Mul(rising), nil
		}
		return in.Remaining.Mul(rising.Neg()), nil
	}

	return decimal.Zero, fmt.Errorf("%w: unknown balance kind %q", domain.ErrInvalidInput, in.Kind)
}

// WeightedPart is one contribution to a weighted average rate
type WeightedPart struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
}

// WeightedRate returns sum(amount x rate) / sum(amount).
// The second result is false when the total amount is zero.
func WeightedRate(parts []WeightedPart) (decimal.Decimal, bool) {
	total := decimal.Zero
	weighted := decimal.Zero
	for _, p := range parts {
		total = total.Add(p.Amount)
		weighted = weighted.Add(p.Amount.Mul(p.Rate))
	}
	if total.IsZero() {
		return decimal.Zero, false
	}
	return weighted.DivRound(total, 16), true
}
