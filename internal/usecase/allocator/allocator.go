package allocator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/usecase/gainloss"
)

// Allocation is the result of one FIFO pass over a bucket
type Allocation struct {
	Bucket       domain.BucketKey
	Matches      []domain.Match
	Transactions []domain.Transaction // updated copies, in input order

	index map[int64]int
}

// Balance returns the remaining base amount of transaction id after the pass
func (a *Allocation) Balance(id int64) (decimal.Decimal, bool) {
	i, ok := a.index[id]
	if !ok {
		return decimal.Zero, false
	}
	return a.Transactions[i].RemainingAmount, true
}

// Advances returns the settlements left with an open balance, ordered by (date, id)
func (a *Allocation) Advances() []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range a.Transactions {
		if tx.IsSettlement() && domain.IsOpen(tx.RemainingAmount) {
			out = append(out, tx)
		}
	}
	sortChronological(out)
	return out
}

// RealisedTotal returns the sum of realised gain/loss over all matches
func (a *Allocation) RealisedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, m := range a.Matches {
		total = total.Add(m.RealisedGainLoss)
	}
	return total
}

// Allocate runs FIFO matching over every transaction of one bucket.
// Logic:
//  1. Reset every transaction to nothing matched
//  2. Split into invoices and settlements, each sorted by (date, id)
//  3. For each settlement, walk invoices in order and apply min(remaining) to
//     each complementary invoice dated on or before the settlement
//  4. Fix the weighted settlement rate of every invoice that reaches zero
//
// The input slice is not modified.
func Allocate(bucket []domain.Transaction) (*Allocation, error) {
	if len(bucket) == 0 {
		return &Allocation{index: map[int64]int{}}, nil
	}

	key := bucket[0].Bucket()
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBucket, err)
	}

	txs := make([]domain.Transaction, len(bucket))
	copy(txs, bucket)

	index := make(map[int64]int, len(txs))
	for i := range txs {
		if txs[i].Bucket() != key {
			return nil, fmt.Errorf("%w: transaction %d belongs to %s, not %s",
				domain.ErrInvalidBucket, txs[i].ID, txs[i].Bucket(), key)
		}
		if err := txs[i].Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", txs[i].ID, err)
		}
		if _, dup := index[txs[i].ID]; dup {
			return nil, fmt.Errorf("%w: duplicate transaction id %d", domain.ErrInvalidBucket, txs[i].ID)
		}
		index[txs[i].ID] = i
		txs[i].ResetSettlement()
	}

	var invoices, settlements []*domain.Transaction
	for i := range txs {
		if txs[i].IsInvoice() {
			invoices = append(invoices, &txs[i])
		} else {
			settlements = append(settlements, &txs[i])
		}
	}
	sortChronologicalPtr(invoices)
	sortChronologicalPtr(settlements)

	parts := make(map[int64][]gainloss.WeightedPart)
	var matches []domain.Match

	for _, s := range settlements {
		want := s.VoucherType.Counterpart()
		settledOn := domain.DateOf(s.Date)

		for _, inv := range invoices {
			if !domain.IsOpen(s.RemainingAmount) {
				break
			}
			if inv.VoucherType != want {
				continue
			}
			// invoices are sorted, so every later one is dated after the settlement too
			if domain.DateOf(inv.Date).After(settledOn) {
				break
			}
			if !domain.IsOpen(inv.RemainingAmount) {
				continue
			}

			apply := decimal.Min(s.RemainingAmount, inv.RemainingAmount)

			matches = append(matches, domain.Match{
				ID:               domain.MatchID(inv.ID, s.ID),
				Bucket:           key,
				InvoiceID:        inv.ID,
				SettlementID:     s.ID,
				MatchedAmount:    apply,
				InvoiceRate:      inv.ExchangeRate,
				SettlementRate:   s.ExchangeRate,
				RealisedGainLoss: gainloss.Realised(apply, inv.ExchangeRate, s.ExchangeRate, inv.Side()),
				Sequence:         len(matches) + 1,
			})

			settle(inv, apply)
			settle(s, apply)

			parts[inv.ID] = append(parts[inv.ID], gainloss.WeightedPart{Amount: apply, Rate: s.ExchangeRate})
			if inv.RemainingAmount.IsZero() {
				if rate, ok := gainloss.WeightedRate(parts[inv.ID]); ok {
					inv.SettlementRate = &rate
				}
			}
		}
	}

	return &Allocation{
		Bucket:       key,
		Matches:      matches,
		Transactions: txs,
		index:        index,
	}, nil
}

// settle moves amount from remaining to settled, clamping drift to zero
func settle(tx *domain.Transaction, amount decimal.Decimal) {
	tx.RemainingAmount = domain.ClampBalance(tx.RemainingAmount.Sub(amount))
	tx.SettledAmount = tx.BaseAmount.Sub(tx.RemainingAmount)
}

func less(a, b *domain.Transaction) bool {
	da, db := domain.DateOf(a.Date), domain.DateOf(b.Date)
	if !da.Equal(db) {
		return da.Before(db)
	}
	return a.ID < b.ID
}

func sortChronological(txs []domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return less(&txs[i], &txs[j])
	})
}

func sortChronologicalPtr(txs []*domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return less(txs[i], txs[j])
	})
}
