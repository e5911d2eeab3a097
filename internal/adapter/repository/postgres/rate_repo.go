package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fxledger-backend/internal/domain"
)

// rateRepository implements domain.RateRepository
type rateRepository struct {
	q querier
}

// NewRateRepository creates a new rate observation repository
func NewRateRepository(db *DB) domain.RateRepository {
	return &rateRepository{q: db}
}

const rateColumns = `id, base_currency_id, local_currency_id, rate_date, party_type, party_id, rate, source`

// FindExact retrieves the observation for the pair on date.
// A nil party selects market observations.
func (r *rateRepository) FindExact(ctx context.Context, baseCurrency, localCurrency string, date time.Time, party *domain.Party) (*domain.RateObservation, error) {
	if party == nil {
		query := `
			SELECT ` + rateColumns + `
			FROM rate_observations
			WHERE base_currency_id = $1 AND local_currency_id = $2 AND rate_date = $3
			  AND party_type IS NULL AND party_id IS NULL
		`
		return r.one(ctx, query, baseCurrency, localCurrency, domain.DateOf(date))
	}

	query := `
		SELECT ` + rateColumns + `
		FROM rate_observations
		WHERE base_currency_id = $1 AND local_currency_id = $2 AND rate_date = $3
		  AND party_type = $4 AND party_id = $5
	`
	return r.one(ctx, query, baseCurrency, localCurrency, domain.DateOf(date), string(party.Type), party.ID)
}

// FindLatestOnOrBefore retrieves the most recent market observation dated on or before date
func (r *rateRepository) FindLatestOnOrBefore(ctx context.Context, baseCurrency, localCurrency string, date time.Time) (*domain.RateObservation, error) {
	query := `
		SELECT ` + rateColumns + `
		FROM rate_observations
		WHERE base_currency_id = $1 AND local_currency_id = $2 AND rate_date <= $3
		  AND party_type IS NULL AND party_id IS NULL
		ORDER BY rate_date DESC
		LIMIT 1
	`
	return r.one(ctx, query, baseCurrency, localCurrency, domain.DateOf(date))
}

// Upsert inserts the observation or replaces the rate of the one with the same key.
// obs.ID is set to the id of the stored row.
func (r *rateRepository) Upsert(ctx context.Context, obs *domain.RateObservation) error {
	if err := obs.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO rate_observations (` + rateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (base_currency_id, local_currency_id, rate_date, (COALESCE(party_type, '')), (COALESCE(party_id, 0)))
		DO UPDATE SET rate = EXCLUDED.rate, source = EXCLUDED.source
		RETURNING id
	`

	var partyType sql.NullString
	var partyID sql.NullInt64
	if obs.Party != nil {
		partyType = sql.NullString{String: string(obs.Party.Type), Valid: true}
		partyID = sql.NullInt64{Int64: obs.Party.ID, Valid: true}
	}

	err := r.q.QueryRowContext(ctx, query,
		obs.ID,
		obs.BaseCurrency,
		obs.LocalCurrency,
		domain.DateOf(obs.Date),
		partyType,
		partyID,
		domain.RoundRate(obs.Rate).String(),
		string(obs.Source),
	).Scan(&obs.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert rate observation: %w", err)
	}

	return nil
}

func (r *rateRepository) one(ctx context.Context, query string, args ...any) (*domain.RateObservation, error) {
	var obs domain.RateObservation
	var partyType sql.NullString
	var partyID sql.NullInt64
	var rateStr, source string

	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&obs.ID,
		&obs.BaseCurrency,
		&obs.LocalCurrency,
		&obs.Date,
		&partyType,
		&partyID,
		&rateStr,
		&source,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rate observation: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rate observation: %w", err)
	}

	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate: %w", err)
	}
	obs.Rate = rate
	obs.Source = domain.RateSource(source)
	obs.Date = domain.DateOf(obs.Date)

	if partyType.Valid && partyID.Valid {
		obs.Party = &domain.Party{Type: domain.PartyType(partyType.String), ID: partyID.Int64}
	}

	return &obs, nil
}
