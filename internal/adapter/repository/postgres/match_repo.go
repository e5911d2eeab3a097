package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/simaogato/fxledger-backend/internal/domain"
)

// matchRepository implements domain.MatchRepository
type matchRepository struct {
	q querier
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *DB) domain.MatchRepository {
	return &matchRepository{q: db}
}

// DeleteByBucket removes every match of the bucket.
// It first takes a transaction-scoped advisory lock on the bucket, so a second
// rebuild of the same bucket waits until this one commits or rolls back.
func (r *matchRepository) DeleteByBucket(ctx context.Context, key domain.BucketKey) error {
	if _, err := r.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String()); err != nil {
		return fmt.Errorf("failed to lock bucket %s: %w", key, err)
	}

	query := `
		DELETE FROM fx_matches
		WHERE party_type = $1 AND party_id = $2 AND base_currency_id = $3
	`

	if _, err := r.q.ExecContext(ctx, query, string(key.Party.Type), key.Party.ID, key.BaseCurrency); err != nil {
		return fmt.Errorf("failed to delete matches of bucket %s: %w", key, err)
	}

	return nil
}

// CreateBatch inserts matches in the given order
func (r *matchRepository) CreateBatch(ctx context.Context, matches []domain.Match) error {
	query := `
		INSERT INTO fx_matches (
			id, party_type, party_id, base_currency_id, invoice_id, settlement_id,
			matched_base_amount, invoice_rate, settlement_rate, realised_gain_loss, sequence
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, m := range matches {
		if err := m.Validate(); err != nil {
			return err
		}

		_, err := r.q.ExecContext(ctx, query,
			m.ID,
			string(m.Bucket.Party.Type),
			m.Bucket.Party.ID,
			m.Bucket.BaseCurrency,
			m.InvoiceID,
			m.SettlementID,
			domain.RoundAmount(m.MatchedAmount).String(),
			domain.RoundRate(m.InvoiceRate).String(),
			domain.RoundRate(m.SettlementRate).String(),
			domain.RoundAmount(m.RealisedGainLoss).String(),
			m.Sequence,
		)
		if err != nil {
			return fmt.Errorf("failed to insert match %d/%d: %w", m.InvoiceID, m.SettlementID, err)
		}
	}

	return nil
}

// ListByTransactionIDs retrieves matches where any of ids is the invoice or the settlement
func (r *matchRepository) ListByTransactionIDs(ctx context.Context, ids []int64) ([]domain.Match, error) {
	query := `
		SELECT id, party_type, party_id, base_currency_id, invoice_id, settlement_id,
		       matched_base_amount, invoice_rate, settlement_rate, realised_gain_loss, sequence
		FROM fx_matches
		WHERE invoice_id = ANY($1) OR settlement_id = ANY($1)
		ORDER BY party_type, party_id, base_currency_id, sequence
	`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var m domain.Match
		var partyType string
		var matchedStr, invoiceRateStr, settlementRateStr, realisedStr string

		err := rows.Scan(
			&m.ID,
			&partyType,
			&m.Bucket.Party.ID,
			&m.Bucket.BaseCurrency,
			&m.InvoiceID,
			&m.SettlementID,
			&matchedStr,
			&invoiceRateStr,
			&settlementRateStr,
			&realisedStr,
			&m.Sequence,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Bucket.Party.Type = domain.PartyType(partyType)

		if m.MatchedAmount, err = decimal.NewFromString(matchedStr); err != nil {
			return nil, fmt.Errorf("failed to parse matched_base_amount: %w", err)
		}
		if m.InvoiceRate, err = decimal.NewFromString(invoiceRateStr); err != nil {
			return nil, fmt.Errorf("failed to parse invoice_rate: %w", err)
		}
		if m.SettlementRate, err = decimal.NewFromString(settlementRateStr); err != nil {
			return nil, fmt.Errorf("failed to parse settlement_rate: %w", err)
		}
		if m.RealisedGainLoss, err = decimal.NewFromString(realisedStr); err != nil {
			return nil, fmt.Errorf("failed to parse realised_gain_loss: %w", err)
		}

		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}
