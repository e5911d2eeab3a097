package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateSource records where a rate observation or a resolved closing rate came from
type RateSource string

const (
	RateSourceManual   RateSource = "manual"   // closing-rate override on the transaction
	RateSourceMarket   RateSource = "market"   // market observation on the exact date
	RateSourceLookback RateSource = "lookback" // latest market observation before the date
	RateSourceWeighted RateSource = "weighted" // party-weighted average of the day's bookings
	RateSourceBooked   RateSource = "booked"   // the transaction's own exchange rate
)

// RateObservation is a persisted exchange rate for a currency pair on a date.
// Party is nil for market rates and set for party-weighted averages.
// This struct tracks the reference value of the foreign currency vs what was booked.
type RateObservation struct {
	ID            uuid.UUID
	BaseCurrency  string
	LocalCurrency string
	Date          time.Time
	Party         *Party
	Rate          decimal.Decimal
	Source        RateSource
}

// Validate ensures the observation can be persisted
func (o *RateObservation) Validate() error {
	if err := ValidateCurrencyCode(o.BaseCurrency); err != nil {
		return err
	}
	if err := ValidateCurrencyCode(o.LocalCurrency); err != nil {
		return err
	}
	if o.BaseCurrency == o.LocalCurrency {
		return fmt.Errorf("%w: base and local currency must differ", ErrInvalidInput)
	}
	if o.Date.IsZero() {
		return fmt.Errorf("%w: rate date is required", ErrInvalidInput)
	}
	if !o.Rate.IsPositive() {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidInput)
	}
	if o.Party != nil {
		if err := o.Party.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DateOf truncates t to its calendar date, expressed as UTC midnight
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
