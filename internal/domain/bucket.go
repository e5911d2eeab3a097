package domain

import (
	"fmt"
)

// BucketKey identifies the unit of matching: all transactions of one party
// restricted to one base currency.
type BucketKey struct {
	Party        Party
	BaseCurrency string
}

// Validate ensures the bucket key references a valid party and currency
func (k BucketKey) Validate() error {
	if err := k.Party.Validate(); err != nil {
		return err
	}
	return ValidateCurrencyCode(k.BaseCurrency)
}

// String renders the key as "customer:42/USD"
func (k BucketKey) String() string {
	return fmt.Sprintf("%s/%s", k.Party, k.BaseCurrency)
}

// TransactionIDs returns the ids of the given transactions in order.
// Used to give log lines and errors full bucket context.
func TransactionIDs(txs []Transaction) []int64 {
	ids := make([]int64, 0, len(txs))
	for i := range txs {
		ids = append(ids, txs[i].ID)
	}
	return ids
}
