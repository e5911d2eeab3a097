package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMatchID_IsDeterministic(t *testing.T) {
	assert.Equal(t, MatchID(1, 2), MatchID(1, 2))
	assert.NotEqual(t, MatchID(1, 2), MatchID(2, 1))
	assert.NotEqual(t, MatchID(1, 2), MatchID(1, 3))
}

func TestMatch_Validate(t *testing.T) {
	valid := Match{
		InvoiceID:      1,
		SettlementID:   2,
		MatchedAmount:  decimal.NewFromInt(100),
		InvoiceRate:    decimal.NewFromInt(80),
		SettlementRate: decimal.NewFromInt(82),
	}
	assert.NoError(t, valid.Validate())

	self := valid
	self.SettlementID = 1
	assert.ErrorIs(t, self.Validate(), ErrInvalidInput)

	empty := valid
	empty.MatchedAmount = decimal.Zero
	assert.ErrorContains(t, empty.Validate(), "matched amount must be positive")
}

func TestBalanceTolerance(t *testing.T) {
	tests := []struct {
		name   string
		value  decimal.Decimal
		isZero bool
		isOpen bool
	}{
		{"exact zero", decimal.Zero, true, false},
		{"below tolerance", decimal.New(5, -7), true, false},
		{"negative below tolerance", decimal.New(-5, -7), true, false},
		{"at tolerance", decimal.New(1, -6), false, true},
		{"open balance", decimal.NewFromInt(100), false, true},
		{"overdrawn", decimal.NewFromInt(-1), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isZero, IsZeroBalance(tt.value))
			assert.Equal(t, tt.isOpen, IsOpen(tt.value))
			if tt.isZero {
				assert.True(t, ClampBalance(tt.value).IsZero())
			} else {
				assert.True(t, ClampBalance(tt.value).Equal(tt.value))
			}
		})
	}
}

func TestRounding(t *testing.T) {
	assert.Equal(t, "1.2346", RoundAmount(decimal.RequireFromString("1.23456")).String())
	assert.Equal(t, "89.123457", RoundRate(decimal.RequireFromString("89.1234567")).String())
}
