// Package dto holds the JSON shapes exchanged with the transaction service
// over gRPC and Kafka, and their conversion to domain types.
// Decimals travel as strings: amounts with 4 fractional digits, rates with 6.
package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/usecase/reconcile"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// Transaction is the input record sent by the transaction service
type Transaction struct {
	ID              int64   `json:"id"`
	PartyID         int64   `json:"party_id"`
	PartyType       string  `json:"party_type"`
	VoucherType     string  `json:"voucher_type"`
	VoucherNo       string  `json:"voucher_no"`
	TransactionDate string  `json:"transaction_date"`
	BaseCurrencyID  string  `json:"base_currency_id"`
	LocalCurrencyID string  `json:"local_currency_id"`
	BaseAmount      string  `json:"base_amount"`
	ExchangeRate    string  `json:"exchange_rate"`
	LocalAmount     string  `json:"local_amount,omitempty"`
	ClosingRate     *string `json:"closing_rate,omitempty"`
	Remarks         string  `json:"remarks,omitempty"`
}

// TransactionEvent is a change notification from the transaction service
type TransactionEvent struct {
	Event       string       `json:"event"`
	Transaction Transaction  `json:"transaction"`
	Previous    *Transaction `json:"previous,omitempty"`
}

// Match is the output record of one allocation
type Match struct {
	ID                string `json:"id"`
	InvoiceID         int64  `json:"invoice_id"`
	SettlementID      int64  `json:"settlement_id"`
	MatchedBaseAmount string `json:"matched_base_amount"`
	InvoiceRate       string `json:"invoice_rate"`
	SettlementRate    string `json:"settlement_rate"`
	RealisedGainLoss  string `json:"realised_gain_loss"`
	Sequence          int    `json:"sequence"`
}

// BucketRebuilt is published after a bucket rebuild commits
type BucketRebuilt struct {
	PartyType     string `json:"party_type"`
	PartyID       int64  `json:"party_id"`
	BaseCurrency  string `json:"base_currency"`
	Transactions  int    `json:"transactions"`
	Matches       int    `json:"matches"`
	OpenAdvances  int    `json:"open_advances"`
	RealisedTotal string `json:"realised_total"`
	RebuiltAt     string `json:"rebuilt_at"`
}

// Amount formats an amount with 4 fractional digits
func Amount(d decimal.Decimal) string {
	return d.StringFixed(domain.AmountPlaces)
}

// Rate formats a rate with 6 fractional digits
func Rate(d decimal.Decimal) string {
	return d.StringFixed(domain.RatePlaces)
}

// ToDomain parses the record and validates it.
// All failures wrap domain.ErrInvalidInput.
func (t Transaction) ToDomain() (domain.Transaction, error) {
	tx := domain.Transaction{
		ID:            t.ID,
		Party:         domain.Party{Type: domain.PartyType(t.PartyType), ID: t.PartyID},
		VoucherType:   domain.VoucherType(t.VoucherType),
		VoucherNo:     t.VoucherNo,
		BaseCurrency:  t.BaseCurrencyID,
		LocalCurrency: t.LocalCurrencyID,
		Remarks:       t.Remarks,
	}

	if t.ID <= 0 {
		return tx, fmt.Errorf("%w: transaction id must be positive", domain.ErrInvalidInput)
	}

	date, err := time.Parse(DateLayout, t.TransactionDate)
	if err != nil {
		return tx, fmt.Errorf("%w: invalid transaction_date %q", domain.ErrInvalidInput, t.TransactionDate)
	}
	tx.Date = date

	if tx.BaseAmount, err = parseDecimal("base_amount", t.BaseAmount); err != nil {
		return tx, err
	}
	if tx.ExchangeRate, err = parseDecimal("exchange_rate", t.ExchangeRate); err != nil {
		return tx, err
	}
	if t.LocalAmount != "" {
		if tx.LocalAmount, err = parseDecimal("local_amount", t.LocalAmount); err != nil {
			return tx, err
		}
	}
	if t.ClosingRate != nil && *t.ClosingRate != "" {
		rate, err := parseDecimal("closing_rate", *t.ClosingRate)
		if err != nil {
			return tx, err
		}
		tx.ClosingRate = &rate
	}

	if err := tx.Validate(); err != nil {
		return tx, err
	}
	tx.ResetSettlement()

	return tx, nil
}

// FromTransaction converts a domain transaction to its wire record
func FromTransaction(tx domain.Transaction) Transaction {
	out := Transaction{
		ID:              tx.ID,
		PartyID:         tx.Party.ID,
		PartyType:       string(tx.Party.Type),
		VoucherType:     string(tx.VoucherType),
		VoucherNo:       tx.VoucherNo,
		TransactionDate: tx.Date.Format(DateLayout),
		BaseCurrencyID:  tx.BaseCurrency,
		LocalCurrencyID: tx.LocalCurrency,
		BaseAmount:      Amount(tx.BaseAmount),
		ExchangeRate:    Rate(tx.ExchangeRate),
		LocalAmount:     Amount(tx.LocalAmount),
		Remarks:         tx.Remarks,
	}
	if tx.ClosingRate != nil {
		rate := Rate(*tx.ClosingRate)
		out.ClosingRate = &rate
	}
	return out
}

// ToDomain converts the notification to a reconcile event
func (e TransactionEvent) ToDomain() (reconcile.TransactionEvent, error) {
	evt := reconcile.TransactionEvent{Kind: reconcile.EventKind(e.Event)}

	tx, err := e.Transaction.ToDomain()
	if err != nil {
		return evt, err
	}
	evt.Transaction = tx

	if e.Previous != nil {
		prev, err := e.Previous.ToDomain()
		if err != nil {
			return evt, fmt.Errorf("previous: %w", err)
		}
		evt.Previous = &prev
	}

	return evt, nil
}

// FromMatch converts a domain match to its wire record
func FromMatch(m domain.Match) Match {
	return Match{
		ID:                m.ID.String(),
		InvoiceID:         m.InvoiceID,
		SettlementID:      m.SettlementID,
		MatchedBaseAmount: Amount(m.MatchedAmount),
		InvoiceRate:       Rate(m.InvoiceRate),
		SettlementRate:    Rate(m.SettlementRate),
		RealisedGainLoss:  Amount(m.RealisedGainLoss),
		Sequence:          m.Sequence,
	}
}

// FromBucketRebuilt converts the domain event to its wire record
func FromBucketRebuilt(evt domain.BucketRebuilt) BucketRebuilt {
	return BucketRebuilt{
		PartyType:     string(evt.Bucket.Party.Type),
		PartyID:       evt.Bucket.Party.ID,
		BaseCurrency:  evt.Bucket.BaseCurrency,
		Transactions:  evt.Transactions,
		Matches:       evt.Matches,
		OpenAdvances:  evt.OpenAdvances,
		RealisedTotal: Amount(evt.RealisedTotal),
		RebuiltAt:     evt.RebuiltAt.UTC().Format(time.RFC3339Nano),
	}
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidInput, field, s)
	}
	return d, nil
}
