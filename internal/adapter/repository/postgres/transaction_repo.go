package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/simaogato/fxledger-backend/internal/domain"
)

const transactionColumns = `
	id, party_type, party_id, voucher_type, voucher_no, transaction_date,
	base_currency_id, local_currency_id, base_amount, exchange_rate, local_amount,
	closing_rate, remarks, settled_amount, remaining_amount, settlement_rate`

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	q querier
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{q: db}
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	tx, err := scanTransaction(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}

	return tx, nil
}

// ListBucket retrieves all transactions of a bucket ordered by (date, id)
func (r *transactionRepository) ListBucket(ctx context.Context, key domain.BucketKey) ([]domain.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE party_type = $1 AND party_id = $2 AND base_currency_id = $3
		ORDER BY transaction_date ASC, id ASC
	`

	return r.list(ctx, query, string(key.Party.Type), key.Party.ID, key.BaseCurrency)
}

// ListBucketKeys returns every bucket that has at least one transaction
func (r *transactionRepository) ListBucketKeys(ctx context.Context) ([]domain.BucketKey, error) {
	query := `
		SELECT DISTINCT party_type, party_id, base_currency_id
		FROM transactions
		ORDER BY party_type, party_id, base_currency_id
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bucket keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.BucketKey
	for rows.Next() {
		var key domain.BucketKey
		var partyType string
		if err := rows.Scan(&partyType, &key.Party.ID, &key.BaseCurrency); err != nil {
			return nil, fmt.Errorf("failed to scan bucket key: %w", err)
		}
		key.Party.Type = domain.PartyType(partyType)
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bucket keys: %w", err)
	}

	return keys, nil
}

// List retrieves transactions matching the filter ordered by (date, id)
func (r *transactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.PartyType != nil {
		add("party_type = $%d", string(*filter.PartyType))
	}
	if filter.PartyID != nil {
		add("party_id = $%d", *filter.PartyID)
	}
	if filter.BaseCurrency != "" {
		add("base_currency_id = $%d", filter.BaseCurrency)
	}
	if filter.From != nil {
		add("transaction_date >= $%d", domain.DateOf(*filter.From))
	}
	if filter.To != nil {
		add("transaction_date <= $%d", domain.DateOf(*filter.To))
	}
	if len(filter.IDs) > 0 {
		add("id = ANY($%d)", pq.Array(filter.IDs))
	}

	query := `SELECT` + transactionColumns + `
		FROM transactions`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\t\tORDER BY transaction_date ASC, id ASC"

	return r.list(ctx, query, args...)
}

// ListByPartyOnDate retrieves a party's transactions for one currency pair on one date
func (r *transactionRepository) ListByPartyOnDate(ctx context.Context, party domain.Party, baseCurrency, localCurrency string, date time.Time) ([]domain.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE party_type = $1 AND party_id = $2
		  AND base_currency_id = $3 AND local_currency_id = $4
		  AND transaction_date = $5
		ORDER BY id ASC
	`

	return r.list(ctx, query, string(party.Type), party.ID, baseCurrency, localCurrency, domain.DateOf(date))
}

// SaveBalances writes settled/remaining amounts and settlement rates back
func (r *transactionRepository) SaveBalances(ctx context.Context, txs []domain.Transaction) error {
	query := `
		UPDATE transactions
		SET settled_amount = $2, remaining_amount = $3, settlement_rate = $4
		WHERE id = $1
	`

	for _, tx := range txs {
		var settlementRate interface{}
		if tx.SettlementRate != nil {
			settlementRate = domain.RoundRate(*tx.SettlementRate).String()
		}

		res, err := r.q.ExecContext(ctx, query,
			tx.ID,
			domain.RoundAmount(tx.SettledAmount).String(),
			domain.RoundAmount(tx.RemainingAmount).String(),
			settlementRate,
		)
		if err != nil {
			return fmt.Errorf("failed to save balances of transaction %d: %w", tx.ID, err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("transaction %d: %w", tx.ID, domain.ErrNotFound)
		}
	}

	return nil
}

func (r *transactionRepository) list(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var partyType, voucherType string
	var baseAmountStr, exchangeRateStr, localAmountStr, settledStr, remainingStr string
	var closingRate, settlementRate sql.NullString

	err := row.Scan(
		&tx.ID,
		&partyType,
		&tx.Party.ID,
		&voucherType,
		&tx.VoucherNo,
		&tx.Date,
		&tx.BaseCurrency,
		&tx.LocalCurrency,
		&baseAmountStr,
		&exchangeRateStr,
		&localAmountStr,
		&closingRate,
		&tx.Remarks,
		&settledStr,
		&remainingStr,
		&settlementRate,
	)
	if err != nil {
		return nil, err
	}

	tx.Party.Type = domain.PartyType(partyType)
	tx.VoucherType = domain.VoucherType(voucherType)
	tx.Date = domain.DateOf(tx.Date)

	decimals := []struct {
		name string
		src  string
		dst  *decimal.Decimal
	}{
		{"base_amount", baseAmountStr, &tx.BaseAmount},
		{"exchange_rate", exchangeRateStr, &tx.ExchangeRate},
		{"local_amount", localAmountStr, &tx.LocalAmount},
		{"settled_amount", settledStr, &tx.SettledAmount},
		{"remaining_amount", remainingStr, &tx.RemainingAmount},
	}
	for _, d := range decimals {
		v, err := decimal.NewFromString(d.src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	if tx.ClosingRate, err = parseNullDecimal(closingRate); err != nil {
		return nil, fmt.Errorf("failed to parse closing_rate: %w", err)
	}
	if tx.SettlementRate, err = parseNullDecimal(settlementRate); err != nil {
		return nil, fmt.Errorf("failed to parse settlement_rate: %w", err)
	}

	return &tx, nil
}

func parseNullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	v, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
