package rates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/usecase/gainloss"
)

// Resolution is a closing rate together with the rule that produced it
type Resolution struct {
	Rate   decimal.Decimal
	Source domain.RateSource
}

// RateService resolves closing rates for open balances and records market rates
type RateService struct {
	RateRepo        domain.RateRepository
	TransactionRepo domain.TransactionRepository
}

// NewRateService creates a new RateService instance
func NewRateService(rateRepo domain.RateRepository, transactionRepo domain.TransactionRepository) *RateService {
	return &RateService{
		RateRepo:        rateRepo,
		TransactionRepo: transactionRepo,
	}
}

// ClosingRate returns the rate used to value the open balance of tx.
// Logic (first hit wins):
//  1. Manual closing rate on the transaction
//  2. Market observation on the transaction date
//  3. Latest market observation before the transaction date
//  4. Base-amount weighted average of the party's bookings on that date,
//     read from the cache first and cached on a miss
//  5. The transaction's own exchange rate
//
// A missing observation falls through to the next rule; any other repository error is returned.
func (s *RateService) ClosingRate(ctx context.Context, tx domain.Transaction) (Resolution, error) {
	if tx.ClosingRate != nil && tx.ClosingRate.IsPositive() {
		return Resolution{Rate: *tx.ClosingRate, Source: domain.RateSourceManual}, nil
	}

	date := domain.DateOf(tx.Date)

	obs, err := s.RateRepo.FindExact(ctx, tx.BaseCurrency, tx.LocalCurrency, date, nil)
	if hit, err := usable(obs, err); err != nil {
		return Resolution{}, fmt.Errorf("failed to find market rate: %w", err)
	} else if hit {
		return Resolution{Rate: obs.Rate, Source: domain.RateSourceMarket}, nil
	}

	obs, err = s.RateRepo.FindLatestOnOrBefore(ctx, tx.BaseCurrency, tx.LocalCurrency, date)
	if hit, err := usable(obs, err); err != nil {
		return Resolution{}, fmt.Errorf("failed to find lookback rate: %w", err)
	} else if hit {
		return Resolution{Rate: obs.Rate, Source: domain.RateSourceLookback}, nil
	}

	rate, ok, err := s.partyWeighted(ctx, tx.Party, tx.BaseCurrency, tx.LocalCurrency, date)
	if err != nil {
		return Resolution{}, err
	}
	if ok {
		return Resolution{Rate: rate, Source: domain.RateSourceWeighted}, nil
	}

	return Resolution{Rate: tx.ExchangeRate, Source: domain.RateSourceBooked}, nil
}

// partyWeighted returns the cached party-weighted rate of the pair on date, or
// averages the party's bookings and caches the result on a miss
func (s *RateService) partyWeighted(ctx context.Context, party domain.Party, base, local string, date time.Time) (decimal.Decimal, bool, error) {
	cached, err := s.RateRepo.FindExact(ctx, base, local, date, &party)
	if hit, err := usable(cached, err); err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to find cached weighted rate: %w", err)
	} else if hit {
		return cached.Rate, true, nil
	}

	txs, err := s.TransactionRepo.ListByPartyOnDate(ctx, party, base, local, date)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return decimal.Zero, false, fmt.Errorf("failed to list party transactions: %w", err)
	}

	obs, ok := weightedObservation(party, base, local, date, txs)
	if !ok {
		return decimal.Zero, false, nil
	}
	if err := s.RateRepo.Upsert(ctx, obs); err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to cache weighted rate: %w", err)
	}

	return obs.Rate, true, nil
}

type weightedKey struct {
	party domain.Party
	base  string
	local string
	date  time.Time
}

// WeightedObservations derives one party-weighted observation per
// (party, base, local, date) group of txs, ordered by date then currency pair.
// A bucket rebuild stores them so cached weighted rates follow every change
// to the party's bookings.
func WeightedObservations(txs []domain.Transaction) []*domain.RateObservation {
	groups := make(map[weightedKey][]domain.Transaction)
	var keys []weightedKey
	for _, tx := range txs {
		k := weightedKey{party: tx.Party, base: tx.BaseCurrency, local: tx.LocalCurrency, date: domain.DateOf(tx.Date)}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], tx)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		if a.party != b.party {
			return a.party.String() < b.party.String()
		}
		if a.base != b.base {
			return a.base < b.base
		}
		return a.local < b.local
	})

	out := make([]*domain.RateObservation, 0, len(keys))
	for _, k := range keys {
		if obs, ok := weightedObservation(k.party, k.base, k.local, k.date, groups[k]); ok {
			out = append(out, obs)
		}
	}
	return out
}

// weightedObservation is the base-amount weighted average of txs as a cacheable observation
func weightedObservation(party domain.Party, base, local string, date time.Time, txs []domain.Transaction) (*domain.RateObservation, bool) {
	parts := make([]gainloss.WeightedPart, 0, len(txs))
	for _, t := range txs {
		if !t.ExchangeRate.IsPositive() {
			continue
		}
		parts = append(parts, gainloss.WeightedPart{Amount: t.BaseAmount, Rate: t.ExchangeRate})
	}

	rate, ok := gainloss.WeightedRate(parts)
	if !ok {
		return nil, false
	}

	p := party
	return &domain.RateObservation{
		ID:            uuid.New(),
		BaseCurrency:  base,
		LocalCurrency: local,
		Date:          date,
		Party:         &p,
		Rate:          rate,
		Source:        domain.RateSourceWeighted,
	}, true
}

// usable reports whether a lookup produced a positive rate; ErrNotFound is a miss
func usable(obs *domain.RateObservation, err error) (bool, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return obs != nil && obs.Rate.IsPositive(), nil
}

// RecordMarketRateInput is a market rate published for a currency pair on a date
type RecordMarketRateInput struct {
	BaseCurrency  string
	LocalCurrency string
	Date          time.Time
	Rate          decimal.Decimal
}

// RecordMarketRate stores a market observation; recording the same pair and date again replaces the rate
func (s *RateService) RecordMarketRate(ctx context.Context, input RecordMarketRateInput) (*domain.RateObservation, error) {
	obs := &domain.RateObservation{
		ID:            uuid.New(),
		BaseCurrency:  input.BaseCurrency,
		LocalCurrency: input.LocalCurrency,
		Date:          domain.DateOf(input.Date),
		Rate:          input.Rate,
		Source:        domain.RateSourceMarket,
	}
	if err := obs.Validate(); err != nil {
		return nil, err
	}

	if err := s.RateRepo.Upsert(ctx, obs); err != nil {
		return nil, err
	}

	return obs, nil
}
