package domain

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// matchNamespace seeds the name-based ids of matches so that re-running the
// allocation over an unchanged bucket reproduces the same ids.
var matchNamespace = uuid.MustParse("6f1c2a0e-3b7d-5e4f-9a8b-1c2d3e4f5a6b")

// Match links a portion of one invoice to one settlement
type Match struct {
	ID               uuid.UUID
	Bucket           BucketKey
	InvoiceID        int64
	SettlementID     int64
	MatchedAmount    decimal.Decimal // base currency, always positive
	InvoiceRate      decimal.Decimal
	SettlementRate   decimal.Decimal
	RealisedGainLoss decimal.Decimal // local currency, positive = gain
	Sequence         int             // creation order within the allocation pass
}

// MatchID derives the deterministic id of the match between invoiceID and settlementID
func MatchID(invoiceID, settlementID int64) uuid.UUID {
	name := strconv.FormatInt(invoiceID, 10) + ":" + strconv.FormatInt(settlementID, 10)
	return uuid.NewSHA1(matchNamespace, []byte(name))
}

// Validate ensures the match adheres to domain rules
func (m *Match) Validate() error {
	if m.InvoiceID == 0 || m.SettlementID == 0 {
		return fmt.Errorf("%w: match must reference an invoice and a settlement", ErrInvalidInput)
	}
	if m.InvoiceID == m.SettlementID {
		return fmt.Errorf("%w: match cannot pair a transaction with itself", ErrInvalidInput)
	}
	if !m.MatchedAmount.IsPositive() {
		return fmt.Errorf("%w: matched amount must be positive", ErrInvalidInput)
	}
	if !m.InvoiceRate.IsPositive() || !m.SettlementRate.IsPositive() {
		return fmt.Errorf("%w: match rates must be positive", ErrInvalidInput)
	}
	return nil
}
