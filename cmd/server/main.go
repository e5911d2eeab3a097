package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcadapter "github.com/simaogato/fxledger-backend/internal/adapter/grpc"
	"github.com/simaogato/fxledger-backend/internal/adapter/kafka"
	"github.com/simaogato/fxledger-backend/internal/adapter/metrics"
	"github.com/simaogato/fxledger-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/fxledger-backend/internal/config"
	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/logger"
	"github.com/simaogato/fxledger-backend/internal/usecase/gainloss"
	"github.com/simaogato/fxledger-backend/internal/usecase/ledger"
	"github.com/simaogato/fxledger-backend/internal/usecase/rates"
	"github.com/simaogato/fxledger-backend/internal/usecase/reconcile"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("fxledger stopped with error")
	}
	log.Info().Msg("fxledger stopped")
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	policy, err := gainloss.ParsePolicy(cfg.UnrealisedPolicy)
	if err != nil {
		return err
	}

	// 1. Setup Database (retry while Postgres starts up)
	dsn := cfg.DB.DSN()
	db, err := connect(ctx, dsn, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(dsn); err != nil {
		return err
	}
	log.Info().Msg("database migrated")

	// 2. Initialize Repositories (Postgres)
	transactionRepo := postgres.NewTransactionRepository(db)
	matchRepo := postgres.NewMatchRepository(db)
	rateRepo := postgres.NewRateRepository(db)
	partyRepo := postgres.NewPartyRepository(db)
	uow := postgres.NewUnitOfWork(db)

	// 3. Initialize Services (Use Cases)
	registry := metrics.NewRegistry()
	rebuildMetrics := metrics.NewRebuildMetrics(registry)

	var publisher domain.EventPublisher
	if cfg.Kafka.Enabled() {
		kafkaPublisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.RebuiltTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	rateService := rates.NewRateService(rateRepo, transactionRepo)
	reconcileService := reconcile.NewReconcileService(uow, publisher, rebuildMetrics, log)
	ledgerService := ledger.NewLedgerService(transactionRepo, matchRepo, partyRepo, rateService, policy)

	// 4. gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(cfg.APIToken)),
	)
	grpcadapter.RegisterReconciliationServiceServer(grpcServer,
		grpcadapter.NewServer(reconcileService, ledgerService, rateService, transactionRepo))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	// 5. Metrics and health HTTP server
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHTTPHandler(db, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", grpcAddr).Msg("gRPC server listening")
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// 6. Kafka consumer of transaction changes
	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TransactionsTopic, cfg.Kafka.GroupID,
			reconcileService, log)
		defer consumer.Close()

		g.Go(func() error {
			return consumer.Start(gctx)
		})
	} else {
		log.Warn().Msg("KAFKA_BROKERS not set, transaction events are accepted over gRPC only")
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down gracefully")

		healthServer.Shutdown()
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// connect opens the database, retrying with exponential backoff until ctx ends
func connect(ctx context.Context, dsn string, log zerolog.Logger) (*postgres.DB, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute

	var db *postgres.DB
	err := backoff.RetryNotify(func() error {
		var err error
		db, err = postgres.NewDB(dsn)
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("database not ready")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info().Msg("connected to database")
	return db, nil
}
