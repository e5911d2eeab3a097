package allocator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/fxledger-backend/internal/domain"
)

var customer = domain.Customer(7)

func day(n int) time.Time {
	return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC)
}

func tx(id int64, vt domain.VoucherType, date time.Time, amount, rate string) domain.Transaction {
	return domain.Transaction{
		ID:            id,
		Party:         customer,
		VoucherType:   vt,
		VoucherNo:     string(vt) + "-" + decimal.NewFromInt(id).String(),
		Date:          date,
		BaseCurrency:  "USD",
		LocalCurrency: "INR",
		BaseAmount:    decimal.RequireFromString(amount),
		ExchangeRate:  decimal.RequireFromString(rate),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func balance(t *testing.T, a *Allocation, id int64) decimal.Decimal {
	t.Helper()
	b, ok := a.Balance(id)
	require.True(t, ok, "transaction %d missing from allocation", id)
	return b
}

func TestAllocate_ReceiptExceedsSale(t *testing.T) {
	// S1 1000 @ 89 then R1 1100 @ 89.2: 1000 matched, 100 left as an advance
	bucket := []domain.Transaction{
		tx(1, domain.VoucherTypeSale, day(1), "1000", "89"),
		tx(2, domain.VoucherTypeReceipt, day(2), "1100", "89.2"),
	}

	a, err := Allocate(bucket)
	require.NoError(t, err)
	require.Len(t, a.Matches, 1)

	m := a.Matches[0]
	assert.Equal(t, int64(1), m.InvoiceID)
	assert.Equal(t, int64(2), m.SettlementID)
	assert.True(t, m.MatchedAmount.Equal(dec("1000")))
	assert.True(t, m.RealisedGainLoss.Equal(dec("200")), "realised = %s", m.RealisedGainLoss)
	assert.Equal(t, 1, m.Sequence)
	assert.Equal(t, domain.MatchID(1, 2), m.ID)

	assert.True(t, balance(t, a, 1).IsZero())
	assert.True(t, balance(t, a, 2).Equal(dec("100")))

	advances := a.Advances()
	require.Len(t, advances, 1)
	assert.Equal(t, int64(2), advances[0].ID)

	// Fully matched invoice carries the weighted settlement rate
	require.NotNil(t, a.Transactions[0].SettlementRate)
	assert.True(t, a.Transactions[0].SettlementRate.Equal(dec("89.2")))
	assert.Nil(t, a.Transactions[1].SettlementRate)
}

func TestAllocate_PaymentExceedsPurchase(t *testing.T) {
	bucket := []domain.Transaction{
		tx(1, domain.VoucherTypePurchase, day(1), "1000", "90"),
		tx(2, domain.VoucherTypePayment, day(2), "1100", "89.2"),
	}

	a, err := Allocate(bucket)
	require.NoError(t, err)
	require.Len(t, a.Matches, 1)
	assert.True(t, a.Matches[0].RealisedGainLoss.Equal(dec("800")), "realised = %s", a.Matches[0].RealisedGainLoss)
	assert.True(t, balance(t, a, 2).Equal(dec("100")))
	assert.True(t, a.RealisedTotal().Equal(dec("800")))
}

func TestAllocate_FIFOPrecedence(t *testing.T) {
	bucket := []domain.Transaction{
		tx(3, domain.VoucherTypeSale, day(2), "300", "81"),
		tx(1, domain.VoucherTypeSale, day(1), "500", "80"),
		tx(4, domain.VoucherTypeReceipt, day(5), "600", "82"),
	}

	a, err := Allocate(bucket)
	require.NoError(t, err)
	require.Len(t, a.Matches, 2)

	// Oldest invoice first, then the next one with what is left
	assert.Equal(t, int64(1), a.Matches[0].InvoiceID)
	assert.True(t, a.Matches[0].MatchedAmount.Equal(dec("500")))
	assert.Equal(t, int64(3), a.Matches[1].InvoiceID)
	assert.True(t, a.Matches[1].MatchedAmount.Equal(dec("100")))

	assert.True(t, balance(t, a, 1).IsZero())
	assert.True(t, balance(t, a, 3).Equal(dec("200")))
	assert.True(t, balance(t, a, 4).IsZero())
	assert.Empty(t, a.Advances())
}

func TestAllocate_SameDateTieBreakByID(t *testing.T) {
	bucket := []domain.Transaction{
		tx(9, domain.VoucherTypeSale, day(1), "100", "80"),
		tx(2, domain.VoucherTypeSale, day(1), "100", "80"),
		tx(10, domain.VoucherTypeReceipt, day(1), "100", "81"),
	}

	a, err := Allocate(bucket)
	require.NoError(t, err)
	require.Len(t, a.Matches, 1)
	assert.Equal(t, int64(2), a.Matches[0].InvoiceID)
}

func TestAllocate_TypePairing(t *testing.T) {
	// A receipt never settles a purchase, a payment never settles a sale
	bucket := []domain.Transaction{
		tx(1, domain.VoucherTypePurchase, day(1), "100", "80"),
		tx(2, domain.VoucherTypeSale, day(2), "100", "80"),
		tx(3, domain.VoucherTypeReceipt, day(3), "150", "81"),
		tx(4, domain.VoucherTypePayment, day(4), "50", "79"),
	}

	a, err := Allocate(bucket)
	require.NoError(t, err)
	require.Len(t, a.Matches, 2)

	assert.Equal(t, int64(2), a.Matches[0].InvoiceID)
	assert.Equal(t, int64(3), a.Matches[0].SettlementID)
	assert.Equal(t, int64(1), a.Matches[1].InvoiceID)
	assert.Equal(t, int64(4), a.Matches[1].SettlementID)

	assert.True(t, balance(t, a, 3).Equal(dec("50")))
	assert.True(t, balance(t, a, 1).Equal(dec("50")))
}

func TestAllocate_NoForwardApplication(t *testing.T) {
	// The receipt predates the invoice so it stays an open advance
	bucket := []domain.Transaction{
		tx(1, domain.VoucherTypeReceipt, day(1), "100", "81"),
		tx(2, domain.VoucherTypeSale, day(5), "100", "80"),
	}

	a, err := Allocate(bucket)
	require.NoError(t, err)
	assert.Empty(t, a.Matches)
	assert.True(t, balance(t, a, 1).Equal(dec("100")))
	assert.True(t, balance(t, a, 2).Equal(dec("100")))

	// A backdated invoice can still consume the advance
	bucket = append(bucket, tx(3, domain.VoucherTypeSale, day(1), "40", "80.5"))
	a, err = Allocate(bucket)
	require.NoError(t, err)
	require.Len(t, a.Matches, 1)
	assert.Equal(t, int64(3), a.Matches[0].InvoiceID)
	assert.True(t, balance(t, a, 1).Equal(dec("60")))
}

func TestAllocate_WeightedSettlementRate(t *testing.T) {
	bucket := []domain.Transaction{
		tx(1, domain.VoucherTypeSale, day(1), "1000", "80"),
		tx(2, domain.VoucherTypeReceipt, day(2), "600", "82"),
		tx(3, domain.VoucherTypeReceipt, day(3), "400", "84"),
	}

	a, err := Allocate(bucket)
	require.NoError(t, err)
	require.Len(t, a.Matches, 2)

	inv := a.Transactions[0]
	require.NotNil(t, inv.SettlementRate)
	assert.True(t, inv.SettlementRate.Equal(dec("82.8")), "weighted rate = %s", inv.SettlementRate)
	assert.True(t, inv.SettledAmount.Equal(dec("1000")))

	// 600 x 2 + 400 x 4
	assert.True(t, a.RealisedTotal().Equal(dec("2800")))
}

func TestAllocate_SubToleranceRemainderCloses(t *testing.T) {
	tests := []struct {
		name          string
		invoiceAmount string
		receiptAmount string
		wantSettled   string
	}{
		{"invoice drift", "1000.0000005", "1000", "1000.0000005"},
		{"receipt drift", "1000", "1000.0000005", "1000"},
		{"both within tolerance of each other", "250.0000009", "250.0000001", "250.0000009"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket := []domain.Transaction{
				tx(1, domain.VoucherTypeSale, day(1), tt.invoiceAmount, "80"),
				tx(2, domain.VoucherTypeReceipt, day(2), tt.receiptAmount, "82"),
			}

			a, err := Allocate(bucket)
			require.NoError(t, err)
			require.Len(t, a.Matches, 1)

			inv := a.Transactions[0]
			assert.True(t, balance(t, a, 1).IsZero(), "invoice balance = %s", balance(t, a, 1))
			assert.False(t, domain.IsOpen(inv.RemainingAmount))
			assert.True(t, inv.SettledAmount.Equal(dec(tt.wantSettled)), "settled = %s", inv.SettledAmount)
			require.NotNil(t, inv.SettlementRate)
			assert.True(t, inv.SettlementRate.Equal(dec("82")), "settlement rate = %s", inv.SettlementRate)

			assert.True(t, balance(t, a, 2).IsZero(), "receipt balance = %s", balance(t, a, 2))
			assert.Empty(t, a.Advances())
		})
	}
}

func TestAllocate_PartiallyMatchedInvoiceHasNoSettlementRate(t *testing.T) {
	bucket := []domain.Transaction{
		tx(1, domain.VoucherTypeSale, day(1), "1000", "80"),
		tx(2, domain.VoucherTypeReceipt, day(2), "600", "82"),
	}

	a, err := Allocate(bucket)
	require.NoError(t, err)
	assert.Nil(t, a.Transactions[0].SettlementRate)
	assert.True(t, a.Transactions[0].RemainingAmount.Equal(dec("400")))
}

func TestAllocate_ResetsStaleState(t *testing.T) {
	stale := tx(1, domain.VoucherTypeSale, day(1), "100", "80")
	stale.SettledAmount = dec("100")
	stale.RemainingAmount = decimal.Zero
	rate := dec("99")
	stale.SettlementRate = &rate

	input := []domain.Transaction{stale}
	a, err := Allocate(input)
	require.NoError(t, err)

	assert.True(t, a.Transactions[0].RemainingAmount.Equal(dec("100")))
	assert.True(t, a.Transactions[0].SettledAmount.IsZero())
	assert.Nil(t, a.Transactions[0].SettlementRate)

	// The caller's slice is untouched
	assert.True(t, input[0].RemainingAmount.IsZero())
	assert.NotNil(t, input[0].SettlementRate)
}

func TestAllocate_InvalidBucket(t *testing.T) {
	other := tx(2, domain.VoucherTypeReceipt, day(2), "100", "80")
	other.Party = domain.Supplier(7)

	tests := []struct {
		name   string
		bucket []domain.Transaction
	}{
		{
			name:   "mixed parties",
			bucket: []domain.Transaction{tx(1, domain.VoucherTypeSale, day(1), "100", "80"), other},
		},
		{
			name: "mixed currencies",
			bucket: func() []domain.Transaction {
				eur := tx(2, domain.VoucherTypeReceipt, day(2), "100", "90")
				eur.BaseCurrency = "EUR"
				return []domain.Transaction{tx(1, domain.VoucherTypeSale, day(1), "100", "80"), eur}
			}(),
		},
		{
			name: "duplicate ids",
			bucket: []domain.Transaction{
				tx(1, domain.VoucherTypeSale, day(1), "100", "80"),
				tx(1, domain.VoucherTypeReceipt, day(2), "100", "80"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Allocate(tt.bucket)
			assert.ErrorIs(t, err, domain.ErrInvalidBucket)
		})
	}
}

func TestAllocate_InvalidTransaction(t *testing.T) {
	bad := tx(1, domain.VoucherTypeSale, day(1), "100", "80")
	bad.ExchangeRate = decimal.Zero

	_, err := Allocate([]domain.Transaction{bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAllocate_Empty(t *testing.T) {
	a, err := Allocate(nil)
	require.NoError(t, err)
	assert.Empty(t, a.Matches)
	assert.Empty(t, a.Advances())
}

// randomBucket builds a mixed bucket with colliding dates and fractional amounts
func randomBucket(r *rand.Rand, n int) []domain.Transaction {
	types := []domain.VoucherType{
		domain.VoucherTypeSale, domain.VoucherTypePurchase,
		domain.VoucherTypeReceipt, domain.VoucherTypePayment,
	}
	out := make([]domain.Transaction, 0, n)
	for i := 0; i < n; i++ {
		amount := decimal.New(int64(r.Intn(500000)+1), -3)
		rate := decimal.New(int64(r.Intn(2000)+8000), -2)
		t := tx(int64(i+1), types[r.Intn(len(types))], day(r.Intn(10)+1), amount.String(), rate.String())
		out = append(out, t)
	}
	return out
}

func TestAllocate_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		bucket := randomBucket(r, 25)

		a, err := Allocate(bucket)
		require.NoError(t, err)

		byID := make(map[int64]domain.Transaction, len(a.Transactions))
		matched := make(map[int64]decimal.Decimal)
		for _, tr := range a.Transactions {
			byID[tr.ID] = tr
		}
		for _, m := range a.Matches {
			inv, set := byID[m.InvoiceID], byID[m.SettlementID]

			assert.True(t, m.MatchedAmount.IsPositive())
			assert.Equal(t, set.VoucherType.Counterpart(), inv.VoucherType, "type pairing")
			assert.False(t, inv.Date.After(set.Date), "no forward application")

			matched[m.InvoiceID] = matched[m.InvoiceID].Add(m.MatchedAmount)
			matched[m.SettlementID] = matched[m.SettlementID].Add(m.MatchedAmount)
		}

		// Conservation
		for _, tr := range a.Transactions {
			assert.True(t, tr.BaseAmount.Equal(tr.RemainingAmount.Add(matched[tr.ID])),
				"round %d tx %d: %s != %s + %s", round, tr.ID, tr.BaseAmount, tr.RemainingAmount, matched[tr.ID])
			assert.False(t, tr.RemainingAmount.IsNegative())
		}

		// FIFO precedence: when a settlement touched invoice B, every older eligible invoice A was already closed
		for _, m := range a.Matches {
			set := byID[m.SettlementID]
			b := byID[m.InvoiceID]
			for _, tr := range a.Transactions {
				if tr.VoucherType != b.VoucherType || tr.Date.After(set.Date) {
					continue
				}
				if less(&tr, &b) {
					assert.True(t, tr.RemainingAmount.IsZero(),
						"round %d: invoice %d still open while later invoice %d was settled", round, tr.ID, b.ID)
				}
			}
		}

		// Idempotence and order independence
		shuffled := make([]domain.Transaction, len(bucket))
		copy(shuffled, bucket)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		again, err := Allocate(a.Transactions)
		require.NoError(t, err)
		reordered, err := Allocate(shuffled)
		require.NoError(t, err)

		assertSameMatches(t, a.Matches, again.Matches)
		assertSameMatches(t, a.Matches, reordered.Matches)
		for _, tr := range a.Transactions {
			assert.True(t, balance(t, reordered, tr.ID).Equal(tr.RemainingAmount))
		}
	}
}

func assertSameMatches(t *testing.T, want, got []domain.Match) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].InvoiceID, got[i].InvoiceID)
		assert.Equal(t, want[i].SettlementID, got[i].SettlementID)
		assert.Equal(t, want[i].Sequence, got[i].Sequence)
		assert.True(t, want[i].MatchedAmount.Equal(got[i].MatchedAmount))
		assert.True(t, want[i].RealisedGainLoss.Equal(got[i].RealisedGainLoss))
	}
}
