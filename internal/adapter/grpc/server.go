package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/simaogato/fxledger-backend/internal/adapter/dto"
	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/usecase/gainloss"
	"github.com/simaogato/fxledger-backend/internal/usecase/ledger"
	"github.com/simaogato/fxledger-backend/internal/usecase/rates"
	"github.com/simaogato/fxledger-backend/internal/usecase/reconcile"
)

// Reconciler runs bucket rebuilds
type Reconciler interface {
	Handle(ctx context.Context, evt reconcile.TransactionEvent) (*reconcile.RebuildResult, error)
	RebuildBucket(ctx context.Context, key domain.BucketKey) (*reconcile.RebuildResult, error)
}

// LedgerBuilder projects ledgers
type LedgerBuilder interface {
	BuildLedger(ctx context.Context, filter ledger.Filter) (*ledger.Ledger, error)
}

// RateKeeper resolves closing rates and records market rates
type RateKeeper interface {
	ClosingRate(ctx context.Context, tx domain.Transaction) (rates.Resolution, error)
	RecordMarketRate(ctx context.Context, input rates.RecordMarketRateInput) (*domain.RateObservation, error)
}

// Server implements the ReconciliationService gRPC server
type Server struct {
	UnimplementedReconciliationServiceServer

	Reconciler      Reconciler
	LedgerService   LedgerBuilder
	RateService     RateKeeper
	TransactionRepo domain.TransactionRepository
}

// NewServer creates a new gRPC server instance
func NewServer(
	reconciler Reconciler,
	ledgerService LedgerBuilder,
	rateService RateKeeper,
	transactionRepo domain.TransactionRepository,
) *Server {
	return &Server{
		Reconciler:      reconciler,
		LedgerService:   ledgerService,
		RateService:     rateService,
		TransactionRepo: transactionRepo,
	}
}

// NotifyTransaction handles the NotifyTransaction RPC
func (s *Server) NotifyTransaction(ctx context.Context, req *NotifyTransactionRequest) (*RebuildResponse, error) {
	evt, err := dto.TransactionEvent{
		Event:       req.Event,
		Transaction: req.Transaction,
		Previous:    req.Previous,
	}.ToDomain()
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.Reconciler.Handle(ctx, evt)
	if err != nil {
		return nil, mapError(err)
	}

	return rebuildToResponse(result), nil
}

// RebuildBucket handles the RebuildBucket RPC
func (s *Server) RebuildBucket(ctx context.Context, req *RebuildBucketRequest) (*RebuildResponse, error) {
	key := domain.BucketKey{
		Party:        domain.Party{Type: domain.PartyType(req.PartyType), ID: req.PartyID},
		BaseCurrency: req.BaseCurrency,
	}
	if err := key.Validate(); err != nil {
		return nil, mapError(err)
	}

	result, err := s.Reconciler.RebuildBucket(ctx, key)
	if err != nil {
		return nil, mapError(err)
	}

	return rebuildToResponse(result), nil
}

// BuildLedger handles the BuildLedger RPC
func (s *Server) BuildLedger(ctx context.Context, req *BuildLedgerRequest) (*BuildLedgerResponse, error) {
	filter := ledger.Filter{
		PartyID:    req.PartyID,
		CurrencyID: req.CurrencyID,
		AllowedIDs: req.TransactionIDs,
	}

	if req.PartyType != "" {
		partyType := domain.PartyType(req.PartyType)
		if !partyType.Valid() {
			return nil, status.Errorf(codes.InvalidArgument, "invalid party_type %q", req.PartyType)
		}
		filter.PartyType = &partyType
	}

	var err error
	if filter.From, err = parseOptionalDate("from_date", req.FromDate); err != nil {
		return nil, err
	}
	if filter.To, err = parseOptionalDate("to_date", req.ToDate); err != nil {
		return nil, err
	}

	if len(req.AdvanceRateOverrides) > 0 {
		filter.AdvanceRateOverrides = make(map[int64]decimal.Decimal, len(req.AdvanceRateOverrides))
		for id, raw := range req.AdvanceRateOverrides {
			rate, err := decimal.NewFromString(raw)
			if err != nil || !rate.IsPositive() {
				return nil, status.Errorf(codes.InvalidArgument, "invalid advance rate override for %d: %q", id, raw)
			}
			filter.AdvanceRateOverrides[id] = rate
		}
	}

	if req.Policy != "" {
		policy, err := gainloss.ParsePolicy(req.Policy)
		if err != nil {
			return nil, mapError(err)
		}
		filter.Policy = policy
	}

	result, err := s.LedgerService.BuildLedger(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}

	rows := make([]LedgerRow, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, ledgerRowToResponse(row))
	}

	return &BuildLedgerResponse{
		Rows:   rows,
		Totals: ledgerTotalsToResponse(result.Totals),
	}, nil
}

// ResolveClosingRate handles the ResolveClosingRate RPC
func (s *Server) ResolveClosingRate(ctx context.Context, req *ResolveClosingRateRequest) (*ResolveClosingRateResponse, error) {
	if req.TransactionID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "transaction_id must be positive")
	}

	tx, err := s.TransactionRepo.GetByID(ctx, req.TransactionID)
	if err != nil {
		return nil, mapError(err)
	}

	resolution, err := s.RateService.ClosingRate(ctx, *tx)
	if err != nil {
		return nil, mapError(err)
	}

	return &ResolveClosingRateResponse{
		TransactionID: tx.ID,
		Rate:          dto.Rate(resolution.Rate),
		Source:        string(resolution.Source),
	}, nil
}

// RecordMarketRate handles the RecordMarketRate RPC
func (s *Server) RecordMarketRate(ctx context.Context, req *RecordMarketRateRequest) (*RecordMarketRateResponse, error) {
	date, err := time.Parse(dto.DateLayout, req.RateDate)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid rate_date format: %v", err)
	}

	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid rate format: %v", err)
	}

	obs, err := s.RateService.RecordMarketRate(ctx, rates.RecordMarketRateInput{
		BaseCurrency:  req.BaseCurrencyID,
		LocalCurrency: req.LocalCurrencyID,
		Date:          date,
		Rate:          rate,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &RecordMarketRateResponse{
		ObservationID: obs.ID.String(),
		Rate:          dto.Rate(obs.Rate),
		RecordedAt:    timestamppb.Now(),
	}, nil
}

func parseOptionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse(dto.DateLayout, raw)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", field, err)
	}
	return &date, nil
}

// rebuildToResponse converts a rebuild result to its response message
func rebuildToResponse(result *reconcile.RebuildResult) *RebuildResponse {
	matches := make([]dto.Match, 0, len(result.Matches))
	for _, m := range result.Matches {
		matches = append(matches, dto.FromMatch(m))
	}

	return &RebuildResponse{
		PartyType:     string(result.Bucket.Party.Type),
		PartyID:       result.Bucket.Party.ID,
		BaseCurrency:  result.Bucket.BaseCurrency,
		Transactions:  len(result.Transactions),
		Matches:       matches,
		OpenAdvances:  result.OpenAdvances,
		RealisedTotal: dto.Amount(result.RealisedTotal),
		RebuiltAt:     timestamppb.New(result.RebuiltAt),
	}
}

func ledgerRowToResponse(row ledger.Row) LedgerRow {
	return LedgerRow{
		TransactionID:       row.TransactionID,
		Date:                row.Date.Format(dto.DateLayout),
		Particulars:         row.Particulars,
		VoucherType:         string(row.VoucherType),
		VoucherNo:           row.VoucherNo,
		BaseCurrency:        row.BaseCurrency,
		ExchangeRate:        dto.Rate(row.ExchangeRate),
		BaseDebit:           dto.Amount(row.BaseDebit),
		BaseCredit:          dto.Amount(row.BaseCredit),
		LocalDebit:          dto.Amount(row.LocalDebit),
		LocalCredit:         dto.Amount(row.LocalCredit),
		ClosingRate:         dto.Rate(row.ClosingRate),
		RateSource:          string(row.RateSource),
		Diff:                dto.Rate(row.Diff),
		Realised:            dto.Amount(row.Realised),
		Unrealised:          dto.Amount(row.Unrealised),
		RemainingBase:       dto.Amount(row.RemainingBase),
		RemainingLocalValue: dto.Amount(row.RemainingLocalValue),
		Direction:           string(row.Direction),
		RunningBaseBalance:  dto.Amount(row.RunningBaseBalance),
		RunningLocalBalance: dto.Amount(row.RunningLocalBalance),
	}
}

func ledgerTotalsToResponse(t ledger.Totals) LedgerTotals {
	byCurrency := make([]LedgerCurrencyTotals, 0, len(t.ByCurrency))
	for _, ct := range t.ByCurrency {
		byCurrency = append(byCurrency, LedgerCurrencyTotals{
			BaseCurrency: ct.BaseCurrency,
			BaseDebit:    dto.Amount(ct.BaseDebit),
			BaseCredit:   dto.Amount(ct.BaseCredit),
		})
	}

	resp := LedgerTotals{
		BaseCurrency:   t.BaseCurrency,
		ByCurrency:     byCurrency,
		LocalDebit:     dto.Amount(t.LocalDebit),
		LocalCredit:    dto.Amount(t.LocalCredit),
		RealisedGain:   dto.Amount(t.RealisedGain),
		RealisedLoss:   dto.Amount(t.RealisedLoss),
		UnrealisedGain: dto.Amount(t.UnrealisedGain),
		UnrealisedLoss: dto.Amount(t.UnrealisedLoss),
		NetRealised:    dto.Amount(t.NetRealised),
		NetUnrealised:  dto.Amount(t.NetUnrealised),
		FinalGainLoss:  dto.Amount(t.FinalGainLoss),
	}
	if t.BaseCurrency != "" {
		resp.BaseDebit = dto.Amount(t.BaseDebit)
		resp.BaseCredit = dto.Amount(t.BaseCredit)
	}
	return resp
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidBucket):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrUndefinedRate):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, domain.ErrRebuildFailed):
		return status.Errorf(codes.Unavailable, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", err.Error())
	}

	return status.Errorf(codes.Internal, "%s", err.Error())
}
