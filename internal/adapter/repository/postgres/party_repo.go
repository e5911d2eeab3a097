package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/fxledger-backend/internal/domain"
)

// partyRepository implements domain.PartyRepository
type partyRepository struct {
	q querier
}

// NewPartyRepository creates a new party repository
func NewPartyRepository(db *DB) domain.PartyRepository {
	return &partyRepository{q: db}
}

// Lookup retrieves the display data of a customer or supplier
func (r *partyRepository) Lookup(ctx context.Context, party domain.Party) (*domain.PartyInfo, error) {
	query := `
		SELECT name
		FROM parties
		WHERE party_type = $1 AND id = $2
	`

	info := domain.PartyInfo{Party: party}
	err := r.q.QueryRowContext(ctx, query, string(party.Type), party.ID).Scan(&info.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("party %s: %w", party, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up party: %w", err)
	}

	return &info, nil
}
