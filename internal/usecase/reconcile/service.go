package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/logger"
	"github.com/simaogato/fxledger-backend/internal/usecase/allocator"
	"github.com/simaogato/fxledger-backend/internal/usecase/rates"
)

// Observer is notified after every bucket rebuild attempt
type Observer interface {
	ObserveRebuild(key domain.BucketKey, result *RebuildResult, elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveRebuild(domain.BucketKey, *RebuildResult, time.Duration, error) {}

// RebuildResult is the committed outcome of one bucket rebuild
type RebuildResult struct {
	Bucket        domain.BucketKey
	Matches       []domain.Match
	Transactions  []domain.Transaction
	OpenAdvances  int
	RealisedTotal decimal.Decimal
	RebuiltAt     time.Time
}

// Event converts the result to the event published downstream
func (r *RebuildResult) Event() domain.BucketRebuilt {
	return domain.BucketRebuilt{
		Bucket:        r.Bucket,
		Transactions:  len(r.Transactions),
		Matches:       len(r.Matches),
		OpenAdvances:  r.OpenAdvances,
		RealisedTotal: r.RealisedTotal,
		RebuiltAt:     r.RebuiltAt,
	}
}

// ReconcileService turns transaction changes into bucket rebuilds
type ReconcileService struct {
	UoW       domain.UnitOfWork
	Publisher domain.EventPublisher
	Observer  Observer
	Logger    zerolog.Logger

	now func() time.Time
}

// NewReconcileService creates a new ReconcileService instance.
// publisher and observer may be nil.
func NewReconcileService(uow domain.UnitOfWork, publisher domain.EventPublisher, observer Observer, log zerolog.Logger) *ReconcileService {
	if observer == nil {
		observer = noopObserver{}
	}
	return &ReconcileService{
		UoW:       uow,
		Publisher: publisher,
		Observer:  observer,
		Logger:    log,
		now:       time.Now,
	}
}

// EventKind names the change made to a transaction by the transaction service
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// TransactionEvent is a transaction change notification.
// Previous is the state before an update, when the sender knows it.
type TransactionEvent struct {
	Kind        EventKind
	Transaction domain.Transaction
	Previous    *domain.Transaction
}

// Handle dispatches a change notification to the matching trigger
func (s *ReconcileService) Handle(ctx context.Context, evt TransactionEvent) (*RebuildResult, error) {
	switch evt.Kind {
	case EventCreated:
		return s.OnTransactionCreated(ctx, evt.Transaction)
	case EventUpdated:
		return s.OnTransactionUpdated(ctx, evt.Previous, evt.Transaction)
	case EventDeleted:
		return s.OnTransactionDeleted(ctx, evt.Transaction)
	}
	return nil, fmt.Errorf("%w: unknown event %q", domain.ErrInvalidInput, evt.Kind)
}

// OnTransactionCreated rebuilds the bucket a new transaction entered
func (s *ReconcileService) OnTransactionCreated(ctx context.Context, tx domain.Transaction) (*RebuildResult, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return s.RebuildBucket(ctx, tx.Bucket())
}

// OnTransactionUpdated rebuilds the bucket of the amended transaction.
// When before is known and the amendment moved the transaction to another
// party or currency, the bucket it left is rebuilt first.
func (s *ReconcileService) OnTransactionUpdated(ctx context.Context, before *domain.Transaction, after domain.Transaction) (*RebuildResult, error) {
	if err := after.Validate(); err != nil {
		return nil, err
	}

	if before != nil && before.Bucket() != after.Bucket() {
		if _, err := s.RebuildBucket(ctx, before.Bucket()); err != nil {
			return nil, err
		}
	}

	return s.RebuildBucket(ctx, after.Bucket())
}

// OnTransactionDeleted rebuilds the bucket a transaction was removed from
func (s *ReconcileService) OnTransactionDeleted(ctx context.Context, tx domain.Transaction) (*RebuildResult, error) {
	return s.RebuildBucket(ctx, tx.Bucket())
}

// RebuildBucket deletes every match of the bucket and re-runs FIFO over its transactions.
// Logic (one unit of work):
//  1. Delete the bucket's matches
//  2. Load the bucket's transactions in (date, id) order
//  3. Allocate
//  4. Insert the new matches and write balances back
//  5. Refresh the cached party-weighted rate of every booking date
//
// Any failure rolls the whole bucket back and is returned wrapping domain.ErrRebuildFailed.
func (s *ReconcileService) RebuildBucket(ctx context.Context, key domain.BucketKey) (*RebuildResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	log := logger.WithBucket(logger.FromContext(ctx, s.Logger), string(key.Party.Type), key.Party.ID, key.BaseCurrency)
	start := time.Now()

	var txIDs []int64
	var result *RebuildResult

	err := s.UoW.Do(ctx, func(ctx context.Context, store domain.Store) error {
		if err := store.Matches().DeleteByBucket(ctx, key); err != nil {
			return err
		}

		txs, err := store.Transactions().ListBucket(ctx, key)
		if err != nil {
			return err
		}
		txIDs = domain.TransactionIDs(txs)

		alloc, err := allocator.Allocate(txs)
		if err != nil {
			return err
		}

		if len(alloc.Matches) > 0 {
			if err := store.Matches().CreateBatch(ctx, alloc.Matches); err != nil {
				return err
			}
		}
		if len(alloc.Transactions) > 0 {
			if err := store.Transactions().SaveBalances(ctx, alloc.Transactions); err != nil {
				return err
			}
		}
		for _, obs := range rates.WeightedObservations(alloc.Transactions) {
			if err := store.Rates().Upsert(ctx, obs); err != nil {
				return fmt.Errorf("failed to refresh weighted rate: %w", err)
			}
		}

		result = &RebuildResult{
			Bucket:        key,
			Matches:       alloc.Matches,
			Transactions:  alloc.Transactions,
			OpenAdvances:  len(alloc.Advances()),
			RealisedTotal: alloc.RealisedTotal(),
		}
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Ints64("transaction_ids", txIDs).
			Dur("elapsed", elapsed).
			Msg("bucket rebuild rolled back")
		s.Observer.ObserveRebuild(key, nil, elapsed, err)
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrRebuildFailed, key, err)
	}

	result.RebuiltAt = s.now()
	s.Observer.ObserveRebuild(key, result, elapsed, nil)

	log.Info().
		Int("transactions", len(result.Transactions)).
		Int("matches", len(result.Matches)).
		Int("open_advances", result.OpenAdvances).
		Str("realised_total", result.RealisedTotal.StringFixed(domain.AmountPlaces)).
		Dur("elapsed", elapsed).
		Msg("bucket rebuilt")

	if s.Publisher != nil {
		// The commit is authoritative; a lost event is repaired by the next rebuild
		if err := s.Publisher.PublishBucketRebuilt(ctx, result.Event()); err != nil {
			log.Warn().Err(err).Msg("failed to publish bucket rebuilt event")
		}
	}

	return result, nil
}

// RebuildAll rebuilds independent buckets concurrently with at most workers in flight.
// Each bucket is rebuilt sequentially in its own unit of work. Results are returned
// in the order of keys; buckets that failed have a nil entry and the first error is returned
// once every started rebuild has finished.
func (s *ReconcileService) RebuildAll(ctx context.Context, keys []domain.BucketKey, workers int) ([]*RebuildResult, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]*RebuildResult, len(keys))

	var g errgroup.Group
	g.SetLimit(workers)

	for i, key := range keys {
		g.Go(func() error {
			res, err := s.RebuildBucket(ctx, key)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
