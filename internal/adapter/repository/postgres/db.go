package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/simaogato/fxledger-backend/internal/domain"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=fxledger sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx so repositories run
// unchanged inside or outside a unit of work
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// store implements domain.Store over one querier
type store struct {
	q querier
}

func (s *store) Transactions() domain.TransactionRepository { return &transactionRepository{q: s.q} }
func (s *store) Matches() domain.MatchRepository            { return &matchRepository{q: s.q} }
func (s *store) Rates() domain.RateRepository               { return &rateRepository{q: s.q} }

// unitOfWork implements domain.UnitOfWork with one database transaction per call
type unitOfWork struct {
	db *DB
}

// NewUnitOfWork creates a unit of work backed by db
func NewUnitOfWork(db *DB) domain.UnitOfWork {
	return &unitOfWork{db: db}
}

// Do runs fn inside a database transaction.
// If fn returns an error the transaction is rolled back; otherwise it is committed.
func (u *unitOfWork) Do(ctx context.Context, fn func(ctx context.Context, store domain.Store) error) error {
	dbTx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(ctx, &store{q: dbTx}); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
