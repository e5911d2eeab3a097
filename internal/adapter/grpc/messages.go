package grpc

import (
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/simaogato/fxledger-backend/internal/adapter/dto"
)

// NotifyTransactionRequest reports a created, updated or deleted transaction.
// Previous carries the stored state before an update.
type NotifyTransactionRequest struct {
	Event       string           `json:"event"`
	Transaction dto.Transaction  `json:"transaction"`
	Previous    *dto.Transaction `json:"previous,omitempty"`
}

// RebuildBucketRequest selects one bucket
type RebuildBucketRequest struct {
	PartyType    string `json:"party_type"`
	PartyID      int64  `json:"party_id"`
	BaseCurrency string `json:"base_currency"`
}

// RebuildResponse is the committed outcome of a rebuild
type RebuildResponse struct {
	PartyType     string                 `json:"party_type"`
	PartyID       int64                  `json:"party_id"`
	BaseCurrency  string                 `json:"base_currency"`
	Transactions  int                    `json:"transactions"`
	Matches       []dto.Match            `json:"matches"`
	OpenAdvances  int                    `json:"open_advances"`
	RealisedTotal string                 `json:"realised_total"`
	RebuiltAt     *timestamppb.Timestamp `json:"rebuilt_at"`
}

// BuildLedgerRequest holds the ledger filters. Empty fields do not filter.
type BuildLedgerRequest struct {
	PartyType      string  `json:"party_type,omitempty"`
	PartyID        *int64  `json:"party_id,omitempty"`
	CurrencyID     string  `json:"currency_id,omitempty"`
	FromDate       string  `json:"from_date,omitempty"`
	ToDate         string  `json:"to_date,omitempty"`
	TransactionIDs []int64 `json:"transaction_ids,omitempty"`

	// AdvanceRateOverrides maps settlement ids to an alternate invoice rate
	AdvanceRateOverrides map[int64]string `json:"advance_rate_overrides,omitempty"`
	Policy               string           `json:"policy,omitempty"`
}

// LedgerRow is one ledger line
type LedgerRow struct {
	TransactionID       int64  `json:"transaction_id"`
	Date                string `json:"date"`
	Particulars         string `json:"particulars"`
	VoucherType         string `json:"voucher_type"`
	VoucherNo           string `json:"voucher_no"`
	BaseCurrency        string `json:"base_currency"`
	ExchangeRate        string `json:"exchange_rate"`
	BaseDebit           string `json:"base_debit"`
	BaseCredit          string `json:"base_credit"`
	LocalDebit          string `json:"local_debit"`
	LocalCredit         string `json:"local_credit"`
	ClosingRate         string `json:"closing_rate"`
	RateSource          string `json:"rate_source"`
	Diff                string `json:"diff"`
	Realised            string `json:"realised"`
	Unrealised          string `json:"unrealised"`
	RemainingBase       string `json:"remaining_base"`
	RemainingLocalValue string `json:"remaining_local_value"`
	Direction           string `json:"direction,omitempty"`
	RunningBaseBalance  string `json:"running_base_balance"`
	RunningLocalBalance string `json:"running_local_balance"`
}

// LedgerCurrencyTotals are the base-column sums of one base currency
type LedgerCurrencyTotals struct {
	BaseCurrency string `json:"base_currency"`
	BaseDebit    string `json:"base_debit"`
	BaseCredit   string `json:"base_credit"`
}

// LedgerTotals are sums over the returned rows. The top-level base columns
// are omitted when the rows span more than one base currency.
type LedgerTotals struct {
	BaseCurrency   string                 `json:"base_currency,omitempty"`
	ByCurrency     []LedgerCurrencyTotals `json:"by_currency"`
	BaseDebit      string                 `json:"base_debit,omitempty"`
	BaseCredit     string                 `json:"base_credit,omitempty"`
	LocalDebit     string                 `json:"local_debit"`
	LocalCredit    string                 `json:"local_credit"`
	RealisedGain   string                 `json:"realised_gain"`
	RealisedLoss   string                 `json:"realised_loss"`
	UnrealisedGain string                 `json:"unrealised_gain"`
	UnrealisedLoss string                 `json:"unrealised_loss"`
	NetRealised    string                 `json:"net_realised"`
	NetUnrealised  string                 `json:"net_unrealised"`
	FinalGainLoss  string                 `json:"final_gain_loss"`
}

// BuildLedgerResponse is the projected ledger
type BuildLedgerResponse struct {
	Rows   []LedgerRow  `json:"rows"`
	Totals LedgerTotals `json:"totals"`
}

// ResolveClosingRateRequest selects a stored transaction
type ResolveClosingRateRequest struct {
	TransactionID int64 `json:"transaction_id"`
}

// ResolveClosingRateResponse is the resolved rate and the step that produced it
type ResolveClosingRateResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Rate          string `json:"rate"`
	Source        string `json:"source"`
}

// RecordMarketRateRequest publishes a market rate for a currency pair on a date
type RecordMarketRateRequest struct {
	BaseCurrencyID  string `json:"base_currency_id"`
	LocalCurrencyID string `json:"local_currency_id"`
	RateDate        string `json:"rate_date"`
	Rate            string `json:"rate"`
}

// RecordMarketRateResponse identifies the stored observation
type RecordMarketRateResponse struct {
	ObservationID string                 `json:"observation_id"`
	Rate          string                 `json:"rate"`
	RecordedAt    *timestamppb.Timestamp `json:"recorded_at"`
}
