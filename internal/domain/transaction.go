package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// VoucherType represents the category of a foreign-currency voucher
type VoucherType string

const (
	VoucherTypeSale     VoucherType = "sale"
	VoucherTypePurchase VoucherType = "purchase"
	VoucherTypeReceipt  VoucherType = "receipt"
	VoucherTypePayment  VoucherType = "payment"
)

// Valid reports whether the voucher type is one of the four known categories
func (v VoucherType) Valid() bool {
	switch v {
	case VoucherTypeSale, VoucherTypePurchase, VoucherTypeReceipt, VoucherTypePayment:
		return true
	}
	return false
}

// Counterpart returns the invoice type a settlement may be matched against
// (receipt -> sale, payment -> purchase) and the empty type for invoices.
func (v VoucherType) Counterpart() VoucherType {
	switch v {
	case VoucherTypeReceipt:
		return VoucherTypeSale
	case VoucherTypePayment:
		return VoucherTypePurchase
	}
	return ""
}

// Direction is the ledger column a voucher is posted to
type Direction string

const (
	DirectionDebit  Direction = "Dr"
	DirectionCredit Direction = "Cr"
)

// Side groups vouchers by the economic relationship they belong to.
// Sales and receipts are customer-side, purchases and payments supplier-side.
type Side string

const (
	SideSale     Side = "sale"
	SidePurchase Side = "purchase"
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrencyCode checks that code is a 3-letter uppercase ISO 4217 code
func ValidateCurrencyCode(code string) error {
	if !currencyCodePattern.MatchString(code) {
		return fmt.Errorf("%w: invalid currency code %q", ErrInvalidInput, code)
	}
	return nil
}

// Transaction is a foreign-currency voucher of one party.
// BaseAmount is denominated in BaseCurrency (the foreign currency); LocalAmount
// is its value in LocalCurrency at ExchangeRate.
type Transaction struct {
	ID            int64 // insertion id; breaks ties between vouchers on the same date
	Party         Party
	VoucherType   VoucherType
	VoucherNo     string
	Date          time.Time
	BaseCurrency  string
	LocalCurrency string
	BaseAmount    decimal.Decimal
	ExchangeRate  decimal.Decimal
	LocalAmount   decimal.Decimal
	ClosingRate   *decimal.Decimal // manual override, optional
	Remarks       string

	// Maintained by the matching engine only.
	SettledAmount   decimal.Decimal
	RemainingAmount decimal.Decimal
	SettlementRate  *decimal.Decimal // weighted settlement rate, set once an invoice is fully matched
}

// IsInvoice reports whether the voucher opens a foreign-currency exposure
func (t *Transaction) IsInvoice() bool {
	return t.VoucherType == VoucherTypeSale || t.VoucherType == VoucherTypePurchase
}

// IsSettlement reports whether the voucher reduces a foreign-currency exposure
func (t *Transaction) IsSettlement() bool {
	return t.VoucherType == VoucherTypeReceipt || t.VoucherType == VoucherTypePayment
}

// Direction returns the ledger column: sale and payment are debits, purchase and receipt credits
func (t *Transaction) Direction() Direction {
	if t.VoucherType == VoucherTypeSale || t.VoucherType == VoucherTypePayment {
		return DirectionDebit
	}
	return DirectionCredit
}

// Side returns SideSale for sales and receipts and SidePurchase for purchases and payments
func (t *Transaction) Side() Side {
	if t.VoucherType == VoucherTypeSale || t.VoucherType == VoucherTypeReceipt {
		return SideSale
	}
	return SidePurchase
}

// Bucket returns the matching bucket the transaction belongs to
func (t *Transaction) Bucket() BucketKey {
	return BucketKey{Party: t.Party, BaseCurrency: t.BaseCurrency}
}

// ResetSettlement clears engine-owned state back to "nothing matched"
func (t *Transaction) ResetSettlement() {
	t.SettledAmount = decimal.Zero
	t.RemainingAmount = t.BaseAmount
	t.SettlementRate = nil
}

// Validate ensures the transaction adheres to domain rules
// Returns an error wrapping ErrInvalidInput if validation fails
func (t *Transaction) Validate() error {
	if err := t.Party.Validate(); err != nil {
		return err
	}
	if !t.VoucherType.Valid() {
		return fmt.Errorf("%w: unknown voucher type %q", ErrInvalidInput, t.VoucherType)
	}
	if t.VoucherNo == "" {
		return fmt.Errorf("%w: voucher number cannot be empty", ErrInvalidInput)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: transaction date is required", ErrInvalidInput)
	}
	if err := ValidateCurrencyCode(t.BaseCurrency); err != nil {
		return err
	}
	if err := ValidateCurrencyCode(t.LocalCurrency); err != nil {
		return err
	}
	if t.BaseCurrency == t.LocalCurrency {
		return fmt.Errorf("%w: base and local currency must differ", ErrInvalidInput)
	}
	if !t.BaseAmount.IsPositive() {
		return fmt.Errorf("%w: base amount must be positive", ErrInvalidInput)
	}
	if !t.ExchangeRate.IsPositive() {
		return fmt.Errorf("%w: exchange rate must be positive", ErrInvalidInput)
	}

	// Local amount is optional on input; when present it must agree with base x rate
	if !t.LocalAmount.IsZero() {
		expected := RoundAmount(t.BaseAmount.Mul(t.ExchangeRate))
		if !RoundAmount(t.LocalAmount).Equal(expected) {
			return fmt.Errorf("%w: local amount %s does not equal base amount x exchange rate (%s)",
				ErrInvalidInput, t.LocalAmount.String(), expected.String())
		}
	}

	if t.ClosingRate != nil && !t.ClosingRate.IsPositive() {
		return fmt.Errorf("%w: closing rate override must be positive", ErrInvalidInput)
	}

	return nil
}

// LocalValue returns BaseAmount x ExchangeRate at full precision
func (t *Transaction) LocalValue() decimal.Decimal {
	return t.BaseAmount.Mul(t.ExchangeRate)
}
