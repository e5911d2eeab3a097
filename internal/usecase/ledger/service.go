package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fxledger-backend/internal/domain"
	"github.com/simaogato/fxledger-backend/internal/usecase/gainloss"
	"github.com/simaogato/fxledger-backend/internal/usecase/rates"
)

// RateResolver resolves the closing rate of a transaction
type RateResolver interface {
	ClosingRate(ctx context.Context, tx domain.Transaction) (rates.Resolution, error)
}

// Filter selects the transactions of a ledger. Nil/empty fields do not filter.
type Filter struct {
	PartyID    *int64
	PartyType  *domain.PartyType
	CurrencyID string
	From       *time.Time
	To         *time.Time
	AllowedIDs []int64

	// AdvanceRateOverrides maps settlement ids to an alternate invoice rate
	AdvanceRateOverrides map[int64]decimal.Decimal
	Policy               gainloss.Policy // empty selects the service default
}

// Row is one ledger line. Amounts are rounded to 4 places and rates to 6.
type Row struct {
	TransactionID       int64
	Date                time.Time
	Particulars         string
	VoucherType         domain.VoucherType
	VoucherNo           string
	BaseCurrency        string
	ExchangeRate        decimal.Decimal
	BaseDebit           decimal.Decimal
	BaseCredit          decimal.Decimal
	LocalDebit          decimal.Decimal
	LocalCredit         decimal.Decimal
	ClosingRate         decimal.Decimal
	RateSource          domain.RateSource
	Diff                decimal.Decimal
	Realised            decimal.Decimal
	Unrealised          decimal.Decimal
	RemainingBase       decimal.Decimal
	RemainingLocalValue decimal.Decimal
	Direction           domain.Direction // side of the open balance; empty when fully matched

	// Running balances accumulate within the row's bucket only
	RunningBaseBalance  decimal.Decimal
	RunningLocalBalance decimal.Decimal
}

// CurrencyTotals are the base-column sums of the rows in one base currency
type CurrencyTotals struct {
	BaseCurrency string
	BaseDebit    decimal.Decimal
	BaseCredit   decimal.Decimal
}

// Totals are sums over the emitted rows. Losses are positive magnitudes.
// BaseDebit and BaseCredit are only filled when every row shares BaseCurrency;
// ByCurrency always carries the per-currency base columns.
type Totals struct {
	BaseCurrency   string
	ByCurrency     []CurrencyTotals
	BaseDebit      decimal.Decimal
	BaseCredit     decimal.Decimal
	LocalDebit     decimal.Decimal
	LocalCredit    decimal.Decimal
	RealisedGain   decimal.Decimal
	RealisedLoss   decimal.Decimal
	UnrealisedGain decimal.Decimal
	UnrealisedLoss decimal.Decimal
	NetRealised    decimal.Decimal
	NetUnrealised  decimal.Decimal
	FinalGainLoss  decimal.Decimal
}

// Ledger is the projected report
type Ledger struct {
	Rows   []Row
	Totals Totals
}

// LedgerService projects transactions and their matches into ledger rows
type LedgerService struct {
	TransactionRepo domain.TransactionRepository
	MatchRepo       domain.MatchRepository
	PartyRepo       domain.PartyRepository
	Resolver        RateResolver
	Policy          gainloss.Policy
}

// NewLedgerService creates a new LedgerService instance
func NewLedgerService(
	transactionRepo domain.TransactionRepository,
	matchRepo domain.MatchRepository,
	partyRepo domain.PartyRepository,
	resolver RateResolver,
	policy gainloss.Policy,
) *LedgerService {
	return &LedgerService{
		TransactionRepo: transactionRepo,
		MatchRepo:       matchRepo,
		PartyRepo:       partyRepo,
		Resolver:        resolver,
		Policy:          policy,
	}
}

// BuildLedger builds one row per selected transaction in (date, id) order.
// Logic per transaction:
//  1. Place base and local amounts in the debit or credit column
//  2. Resolve the closing rate
//  3. Realised = sum of realised on matches where the transaction is the invoice
//  4. Remaining = base amount - matched amount on the transaction's own side
//  5. Unrealised on the remaining balance
//  6. Diff: weighted settlement rate - booked for a closed invoice,
//     closing - booked for an open invoice, booked - closing for a settlement
//
// Matches and transactions are never modified.
func (s *LedgerService) BuildLedger(ctx context.Context, filter Filter) (*Ledger, error) {
	policy := filter.Policy
	if policy == "" {
		policy = s.Policy
	}

	txs, err := s.TransactionRepo.List(ctx, domain.TransactionFilter{
		PartyType:    filter.PartyType,
		PartyID:      filter.PartyID,
		BaseCurrency: filter.CurrencyID,
		From:         filter.From,
		To:           filter.To,
		IDs:          filter.AllowedIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	sort.SliceStable(txs, func(i, j int) bool {
		di, dj := domain.DateOf(txs[i].Date), domain.DateOf(txs[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return txs[i].ID < txs[j].ID
	})

	var matches []domain.Match
	if len(txs) > 0 {
		matches, err = s.MatchRepo.ListByTransactionIDs(ctx, domain.TransactionIDs(txs))
		if err != nil {
			return nil, fmt.Errorf("failed to list matches: %w", err)
		}
	}
	asInvoice := make(map[int64][]domain.Match)
	asSettlement := make(map[int64][]domain.Match)
	for _, m := range matches {
		asInvoice[m.InvoiceID] = append(asInvoice[m.InvoiceID], m)
		asSettlement[m.SettlementID] = append(asSettlement[m.SettlementID], m)
	}

	names := make(map[domain.Party]string)
	ledger := &Ledger{Rows: make([]Row, 0, len(txs))}
	runningBase := make(map[domain.BucketKey]decimal.Decimal)
	runningLocal := make(map[domain.BucketKey]decimal.Decimal)

	for _, tx := range txs {
		name, err := s.partyName(ctx, names, tx.Party)
		if err != nil {
			return nil, err
		}

		res, err := s.Resolver.ClosingRate(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve closing rate of transaction %d: %w", tx.ID, err)
		}

		var own []domain.Match
		kind := gainloss.KindInvoice
		if tx.IsInvoice() {
			own = asInvoice[tx.ID]
		} else {
			own = asSettlement[tx.ID]
			kind = gainloss.KindAdvance
		}

		realised, matched := decimal.Zero, decimal.Zero
		for _, m := range own {
			matched = matched.Add(m.MatchedAmount)
			if tx.IsInvoice() {
				realised = realised.Add(m.RealisedGainLoss)
			}
		}
		remaining := domain.ClampBalance(tx.BaseAmount.Sub(matched))
		open := domain.IsOpen(remaining)

		unrealised := decimal.Zero
		if open {
			in := gainloss.UnrealisedInput{
				Remaining:   remaining,
				BookRate:    tx.ExchangeRate,
				ClosingRate: res.Rate,
				Kind:        kind,
				Side:        tx.Side(),
				Policy:      policy,
			}
			if override, ok := filter.AdvanceRateOverrides[tx.ID]; ok && kind == gainloss.KindAdvance {
				in.Override = &override
			}
			unrealised, err = gainloss.Unrealised(in)
			if err != nil {
				return nil, fmt.Errorf("transaction %d: %w", tx.ID, err)
			}
		}

		row := Row{
			TransactionID:       tx.ID,
			Date:                tx.Date,
			Particulars:         particulars(name, tx.Remarks),
			VoucherType:         tx.VoucherType,
			VoucherNo:           tx.VoucherNo,
			BaseCurrency:        tx.BaseCurrency,
			ExchangeRate:        domain.RoundRate(tx.ExchangeRate),
			BaseDebit:           decimal.Zero,
			BaseCredit:          decimal.Zero,
			LocalDebit:          decimal.Zero,
			LocalCredit:         decimal.Zero,
			ClosingRate:         domain.RoundRate(res.Rate),
			RateSource:          res.Source,
			Diff:                domain.RoundRate(diff(tx, own, remaining, res.Rate)),
			Realised:            domain.RoundAmount(realised),
			Unrealised:          domain.RoundAmount(unrealised),
			RemainingBase:       domain.RoundAmount(remaining),
			RemainingLocalValue: domain.RoundAmount(remaining.Mul(res.Rate)),
		}

		base := domain.RoundAmount(tx.BaseAmount)
		local := domain.RoundAmount(localAmount(tx))
		if tx.Direction() == domain.DirectionDebit {
			row.BaseDebit, row.LocalDebit = base, local
		} else {
			row.BaseCredit, row.LocalCredit = base, local
		}
		if open {
			row.Direction = tx.Direction()
		}

		key := tx.Bucket()
		runningBase[key] = runningBase[key].Add(row.BaseDebit).Sub(row.BaseCredit)
		runningLocal[key] = runningLocal[key].Add(row.LocalDebit).Sub(row.LocalCredit)
		row.RunningBaseBalance = runningBase[key]
		row.RunningLocalBalance = runningLocal[key]

		ledger.Rows = append(ledger.Rows, row)
	}

	ledger.Totals = totals(ledger.Rows)
	return ledger, nil
}

// partyName resolves and caches the display name of party; unknown parties render as their reference
func (s *LedgerService) partyName(ctx context.Context, cache map[domain.Party]string, party domain.Party) (string, error) {
	if name, ok := cache[party]; ok {
		return name, nil
	}

	name := party.String()
	info, err := s.PartyRepo.Lookup(ctx, party)
	switch {
	case err == nil:
		name = info.Name
	case !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("failed to look up party %s: %w", party, err)
	}

	cache[party] = name
	return name, nil
}

func particulars(name, remarks string) string {
	if remarks == "" {
		return name
	}
	return name + " - " + remarks
}

func localAmount(tx domain.Transaction) decimal.Decimal {
	if !tx.LocalAmount.IsZero() {
		return tx.LocalAmount
	}
	return tx.LocalValue()
}

// diff is a display-only rate spread
func diff(tx domain.Transaction, own []domain.Match, remaining, closing decimal.Decimal) decimal.Decimal {
	if !tx.IsInvoice() {
		return tx.ExchangeRate.Sub(closing)
	}
	if domain.IsOpen(remaining) || len(own) == 0 {
		return closing.Sub(tx.ExchangeRate)
	}

	if tx.SettlementRate != nil {
		return tx.SettlementRate.Sub(tx.ExchangeRate)
	}
	parts := make([]gainloss.WeightedPart, 0, len(own))
	for _, m := range own {
		parts = append(parts, gainloss.WeightedPart{Amount: m.MatchedAmount, Rate: m.SettlementRate})
	}
	weighted, _ := gainloss.WeightedRate(parts)
	return weighted.Sub(tx.ExchangeRate)
}

func totals(rows []Row) Totals {
	t := Totals{
		BaseDebit:      decimal.Zero,
		BaseCredit:     decimal.Zero,
		LocalDebit:     decimal.Zero,
		LocalCredit:    decimal.Zero,
		RealisedGain:   decimal.Zero,
		RealisedLoss:   decimal.Zero,
		UnrealisedGain: decimal.Zero,
		UnrealisedLoss: decimal.Zero,
	}

	byCurrency := make(map[string]*CurrencyTotals)
	for _, r := range rows {
		ct, ok := byCurrency[r.BaseCurrency]
		if !ok {
			ct = &CurrencyTotals{BaseCurrency: r.BaseCurrency, BaseDebit: decimal.Zero, BaseCredit: decimal.Zero}
			byCurrency[r.BaseCurrency] = ct
		}
		ct.BaseDebit = ct.BaseDebit.Add(r.BaseDebit)
		ct.BaseCredit = ct.BaseCredit.Add(r.BaseCredit)
		t.LocalDebit = t.LocalDebit.Add(r.LocalDebit)
		t.LocalCredit = t.LocalCredit.Add(r.LocalCredit)

		if r.Realised.IsPositive() {
			t.RealisedGain = t.RealisedGain.Add(r.Realised)
		} else {
			t.RealisedLoss = t.RealisedLoss.Add(r.Realised.Neg())
		}
		if r.Unrealised.IsPositive() {
			t.UnrealisedGain = t.UnrealisedGain.Add(r.Unrealised)
		} else {
			t.UnrealisedLoss = t.UnrealisedLoss.Add(r.Unrealised.Neg())
		}
	}

	t.ByCurrency = make([]CurrencyTotals, 0, len(byCurrency))
	for _, ct := range byCurrency {
		t.ByCurrency = append(t.ByCurrency, *ct)
	}
	sort.Slice(t.ByCurrency, func(i, j int) bool {
		return t.ByCurrency[i].BaseCurrency < t.ByCurrency[j].BaseCurrency
	})
	if len(t.ByCurrency) == 1 {
		t.BaseCurrency = t.ByCurrency[0].BaseCurrency
		t.BaseDebit = t.ByCurrency[0].BaseDebit
		t.BaseCredit = t.ByCurrency[0].BaseCredit
	}

	t.NetRealised = t.RealisedGain.Sub(t.RealisedLoss)
	t.NetUnrealised = t.UnrealisedGain.Sub(t.UnrealisedLoss)
	t.FinalGainLoss = t.NetRealised.Add(t.NetUnrealised)
	return t
}
