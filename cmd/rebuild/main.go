// Command rebuild recomputes the matches of every bucket, or of the buckets
// selected by the flags, against the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/simaogato/fxledger-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/fxledger-backend/internal/config"
	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/logger"
	"github.com/simaogato/fxledger-backend/internal/usecase/reconcile"
)

var (
	partyType = flag.String("party-type", "", "Only rebuild buckets of this party type (customer or supplier)")
	partyID   = flag.Int64("party-id", 0, "Only rebuild buckets of this party id")
	currency  = flag.String("currency", "", "Only rebuild buckets of this base currency")
	workers   = flag.Int("workers", 0, "Concurrent rebuilds (default REBUILD_WORKERS)")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if *workers <= 0 {
		*workers = cfg.RebuildWorkers
	}

	sel := selector{
		PartyType: domain.PartyType(*partyType),
		PartyID:   *partyID,
		Currency:  *currency,
	}
	if err := sel.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid flags")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, sel, *workers, log); err != nil {
		log.Error().Err(err).Msg("rebuild finished with failures")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, sel selector, workers int, log zerolog.Logger) error {
	db, err := postgres.NewDB(cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	keys, err := postgres.NewTransactionRepository(db).ListBucketKeys(ctx)
	if err != nil {
		return err
	}
	keys = sel.Filter(keys)
	log.Info().Int("buckets", len(keys)).Int("workers", workers).Msg("rebuilding buckets")

	service := reconcile.NewReconcileService(postgres.NewUnitOfWork(db), nil, nil, log)

	results, err := service.RebuildAll(ctx, keys, workers)

	rebuilt, matches := 0, 0
	for _, r := range results {
		if r != nil {
			rebuilt++
			matches += len(r.Matches)
		}
	}
	log.Info().
		Int("rebuilt", rebuilt).
		Int("failed", len(keys)-rebuilt).
		Int("matches", matches).
		Msg("rebuild complete")

	return err
}

// selector narrows the bucket keys to rebuild. Zero fields select everything.
type selector struct {
	PartyType domain.PartyType
	PartyID   int64
	Currency  string
}

// Validate checks the flag values that were supplied
func (s selector) Validate() error {
	if s.PartyType != "" && !s.PartyType.Valid() {
		return fmt.Errorf("%w: unknown party type %q", domain.ErrInvalidInput, s.PartyType)
	}
	if s.PartyID < 0 {
		return fmt.Errorf("%w: party id must be positive", domain.ErrInvalidInput)
	}
	if s.PartyID > 0 && s.PartyType == "" {
		return fmt.Errorf("%w: -party-id requires -party-type", domain.ErrInvalidInput)
	}
	if s.Currency != "" {
		return domain.ValidateCurrencyCode(s.Currency)
	}
	return nil
}

// Filter returns the keys matching every set field, preserving order
func (s selector) Filter(keys []domain.BucketKey) []domain.BucketKey {
	out := make([]domain.BucketKey, 0, len(keys))
	for _, k := range keys {
		if s.PartyType != "" && k.Party.Type != s.PartyType {
			continue
		}
		if s.PartyID != 0 && k.Party.ID != s.PartyID {
			continue
		}
		if s.Currency != "" && k.BaseCurrency != s.Currency {
			continue
		}
		out = append(out, k)
	}
	return out
}
