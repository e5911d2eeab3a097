package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTransaction() Transaction {
	return Transaction{
		ID:            1,
		Party:         Customer(7),
		VoucherType:   VoucherTypeSale,
		VoucherNo:     "S-0001",
		Date:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		BaseCurrency:  "USD",
		LocalCurrency: "INR",
		BaseAmount:    decimal.NewFromInt(1000),
		ExchangeRate:  decimal.NewFromInt(89),
		LocalAmount:   decimal.NewFromInt(89000),
	}
}

func TestTransaction_Validate(t *testing.T) {
	zero := decimal.Zero

	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "Valid sale should pass",
			mutate:  func(tx *Transaction) {},
			wantErr: false,
		},
		{
			name:    "Missing local amount is accepted",
			mutate:  func(tx *Transaction) { tx.LocalAmount = decimal.Zero },
			wantErr: false,
		},
		{
			name:    "Unknown voucher type should fail",
			mutate:  func(tx *Transaction) { tx.VoucherType = "journal" },
			wantErr: true,
			errMsg:  "unknown voucher type",
		},
		{
			name:    "Unknown party type should fail",
			mutate:  func(tx *Transaction) { tx.Party = Party{Type: "employee", ID: 1} },
			wantErr: true,
			errMsg:  "unknown party type",
		},
		{
			name:    "Missing party id should fail",
			mutate:  func(tx *Transaction) { tx.Party = Supplier(0) },
			wantErr: true,
			errMsg:  "party id must be positive",
		},
		{
			name:    "Empty voucher number should fail",
			mutate:  func(tx *Transaction) { tx.VoucherNo = "" },
			wantErr: true,
			errMsg:  "voucher number cannot be empty",
		},
		{
			name:    "Zero date should fail",
			mutate:  func(tx *Transaction) { tx.Date = time.Time{} },
			wantErr: true,
			errMsg:  "transaction date is required",
		},
		{
			name:    "Lowercase currency should fail",
			mutate:  func(tx *Transaction) { tx.BaseCurrency = "usd" },
			wantErr: true,
			errMsg:  "invalid currency code",
		},
		{
			name:    "Same base and local currency should fail",
			mutate:  func(tx *Transaction) { tx.LocalCurrency = "USD" },
			wantErr: true,
			errMsg:  "base and local currency must differ",
		},
		{
			name:    "Zero base amount should fail",
			mutate:  func(tx *Transaction) { tx.BaseAmount = decimal.Zero },
			wantErr: true,
			errMsg:  "base amount must be positive",
		},
		{
			name:    "Negative exchange rate should fail",
			mutate:  func(tx *Transaction) { tx.ExchangeRate = decimal.NewFromInt(-1) },
			wantErr: true,
			errMsg:  "exchange rate must be positive",
		},
		{
			name:    "Inconsistent local amount should fail",
			mutate:  func(tx *Transaction) { tx.LocalAmount = decimal.NewFromInt(1) },
			wantErr: true,
			errMsg:  "does not equal base amount x exchange rate",
		},
		{
			name:    "Zero closing rate override should fail",
			mutate:  func(tx *Transaction) { tx.ClosingRate = &zero },
			wantErr: true,
			errMsg:  "closing rate override must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)

			err := tx.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransaction_Classification(t *testing.T) {
	tests := []struct {
		voucher     VoucherType
		invoice     bool
		direction   Direction
		side        Side
		counterpart VoucherType
	}{
		{VoucherTypeSale, true, DirectionDebit, SideSale, ""},
		{VoucherTypePurchase, true, DirectionCredit, SidePurchase, ""},
		{VoucherTypeReceipt, false, DirectionCredit, SideSale, VoucherTypeSale},
		{VoucherTypePayment, false, DirectionDebit, SidePurchase, VoucherTypePurchase},
	}

	for _, tt := range tests {
		t.Run(string(tt.voucher), func(t *testing.T) {
			tx := Transaction{VoucherType: tt.voucher}
			assert.Equal(t, tt.invoice, tx.IsInvoice())
			assert.Equal(t, !tt.invoice, tx.IsSettlement())
			assert.Equal(t, tt.direction, tx.Direction())
			assert.Equal(t, tt.side, tx.Side())
			assert.Equal(t, tt.counterpart, tt.voucher.Counterpart())
		})
	}
}

func TestTransaction_ResetSettlement(t *testing.T) {
	tx := validTransaction()
	rate := decimal.NewFromInt(90)
	tx.SettledAmount = decimal.NewFromInt(400)
	tx.RemainingAmount = decimal.NewFromInt(600)
	tx.SettlementRate = &rate

	tx.ResetSettlement()

	assert.True(t, tx.SettledAmount.IsZero())
	assert.True(t, tx.RemainingAmount.Equal(tx.BaseAmount))
	assert.Nil(t, tx.SettlementRate)
}

func TestBucketKey(t *testing.T) {
	tx := validTransaction()
	key := tx.Bucket()

	require.NoError(t, key.Validate())
	assert.Equal(t, "customer:7/USD", key.String())
	assert.Equal(t, []int64{1}, TransactionIDs([]Transaction{tx}))
}
