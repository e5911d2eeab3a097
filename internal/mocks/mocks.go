// Package mocks provides testify mocks of the domain ports for usecase tests.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/simaogato/fxledger-backend/internal/domain"
)

// TransactionRepository is a mock implementation of domain.TransactionRepository
type TransactionRepository struct {
	mock.Mock
}

func (m *TransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *TransactionRepository) ListBucket(ctx context.Context, key domain.BucketKey) ([]domain.Transaction, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *TransactionRepository) ListBucketKeys(ctx context.Context) ([]domain.BucketKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BucketKey), args.Error(1)
}

func (m *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *TransactionRepository) ListByPartyOnDate(ctx context.Context, party domain.Party, baseCurrency, localCurrency string, date time.Time) ([]domain.Transaction, error) {
	args := m.Called(ctx, party, baseCurrency, localCurrency, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *TransactionRepository) SaveBalances(ctx context.Context, txs []domain.Transaction) error {
	args := m.Called(ctx, txs)
	return args.Error(0)
}

// MatchRepository is a mock implementation of domain.MatchRepository
type MatchRepository struct {
	mock.Mock
}

func (m *MatchRepository) DeleteByBucket(ctx context.Context, key domain.BucketKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MatchRepository) CreateBatch(ctx context.Context, matches []domain.Match) error {
	args := m.Called(ctx, matches)
	return args.Error(0)
}

func (m *MatchRepository) ListByTransactionIDs(ctx context.Context, ids []int64) ([]domain.Match, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Match), args.Error(1)
}

// RateRepository is a mock implementation of domain.RateRepository
type RateRepository struct {
	mock.Mock
}

func (m *RateRepository) FindExact(ctx context.Context, baseCurrency, localCurrency string, date time.Time, party *domain.Party) (*domain.RateObservation, error) {
	args := m.Called(ctx, baseCurrency, localCurrency, date, party)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateObservation), args.Error(1)
}

func (m *RateRepository) FindLatestOnOrBefore(ctx context.Context, baseCurrency, localCurrency string, date time.Time) (*domain.RateObservation, error) {
	args := m.Called(ctx, baseCurrency, localCurrency, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateObservation), args.Error(1)
}

func (m *RateRepository) Upsert(ctx context.Context, obs *domain.RateObservation) error {
	args := m.Called(ctx, obs)
	return args.Error(0)
}

// PartyRepository is a mock implementation of domain.PartyRepository
type PartyRepository struct {
	mock.Mock
}

func (m *PartyRepository) Lookup(ctx context.Context, party domain.Party) (*domain.PartyInfo, error) {
	args := m.Called(ctx, party)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PartyInfo), args.Error(1)
}

// EventPublisher is a mock implementation of domain.EventPublisher
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) PublishBucketRebuilt(ctx context.Context, evt domain.BucketRebuilt) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

// Store bundles mock repositories behind domain.Store
type Store struct {
	TransactionRepo *TransactionRepository
	MatchRepo       *MatchRepository
	RateRepo        *RateRepository
}

// NewStore returns a Store with fresh mocks
func NewStore() *Store {
	return &Store{
		TransactionRepo: new(TransactionRepository),
		MatchRepo:       new(MatchRepository),
		RateRepo:        new(RateRepository),
	}
}

func (s *Store) Transactions() domain.TransactionRepository { return s.TransactionRepo }
func (s *Store) Matches() domain.MatchRepository            { return s.MatchRepo }
func (s *Store) Rates() domain.RateRepository               { return s.RateRepo }

// UnitOfWork runs fn directly against Store and records how the unit ended.
// It does not roll anything back; tests assert on Committed and RolledBack.
type UnitOfWork struct {
	Store      *Store
	Committed  int
	RolledBack int

	mu sync.Mutex
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, store domain.Store) error) error {
	err := fn(ctx, u.Store)

	u.mu.Lock()
	defer u.mu.Unlock()
	if err != nil {
		u.RolledBack++
		return err
	}
	u.Committed++
	return nil
}
