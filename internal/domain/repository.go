package domain

import (
	"context"
	"time"
)

// TransactionFilter narrows the transactions read for reporting.
// Nil/empty fields do not filter.
type TransactionFilter struct {
	PartyType    *PartyType
	PartyID      *int64
	BaseCurrency string
	From         *time.Time
	To           *time.Time
	IDs          []int64
}

// TransactionRepository defines the interface for transaction persistence operations.
// Creating and deleting transactions belongs to the external transaction service;
// this core only reads them and writes back settlement state.
type TransactionRepository interface {
	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id int64) (*Transaction, error)

	// ListBucket retrieves all transactions of a bucket ordered by (date, id)
	ListBucket(ctx context.Context, key BucketKey) ([]Transaction, error)

	// ListBucketKeys returns every bucket that has at least one transaction
	ListBucketKeys(ctx context.Context) ([]BucketKey, error)

	// List retrieves transactions matching the filter ordered by (date, id)
	List(ctx context.Context, filter TransactionFilter) ([]Transaction, error)

	// ListByPartyOnDate retrieves a party's transactions for one currency pair on one date
	ListByPartyOnDate(ctx context.Context, party Party, baseCurrency, localCurrency string, date time.Time) ([]Transaction, error)

	// SaveBalances writes settled/remaining amounts and settlement rates back
	SaveBalances(ctx context.Context, txs []Transaction) error
}

// MatchRepository defines the interface for match persistence operations
type MatchRepository interface {
	// DeleteByBucket removes every match of the bucket
	DeleteByBucket(ctx context.Context, key BucketKey) error

	// CreateBatch inserts matches in the given order
	CreateBatch(ctx context.Context, matches []Match) error

	// ListByTransactionIDs retrieves matches where any of ids is the invoice or the settlement
	ListByTransactionIDs(ctx context.Context, ids []int64) ([]Match, error)
}

// RateRepository defines the interface for rate observation persistence operations
type RateRepository interface {
	// FindExact retrieves the observation for the pair on date.
	// A nil party selects market observations.
	FindExact(ctx context.Context, baseCurrency, localCurrency string, date time.Time, party *Party) (*RateObservation, error)

	// FindLatestOnOrBefore retrieves the most recent market observation dated on or before date
	FindLatestOnOrBefore(ctx context.Context, baseCurrency, localCurrency string, date time.Time) (*RateObservation, error)

	// Upsert inserts the observation or replaces the rate of the one with the same key
	Upsert(ctx context.Context, obs *RateObservation) error
}

// PartyRepository resolves party references to display data
type PartyRepository interface {
	// Lookup retrieves the party; returns ErrNotFound for unknown references
	Lookup(ctx context.Context, party Party) (*PartyInfo, error)
}

// Store groups the repositories that take part in one unit of work
type Store interface {
	Transactions() TransactionRepository
	Matches() MatchRepository
	Rates() RateRepository
}

// UnitOfWork runs fn against a Store whose writes commit together or not at all.
// Readers outside the unit never observe a partial result.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
