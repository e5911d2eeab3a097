//go:build integration

package main

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"

	"github.com/simaogato/fxledger-backend/internal/adapter/dto"
	grpcadapter "github.com/simaogato/fxledger-backend/internal/adapter/grpc"
	"github.com/simaogato/fxledger-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/fxledger-backend/internal/config"
)

// These tests run against a live server (GRPC_ADDRESS) and its database.
// They use party ids in the 9000 range and clean up after themselves.

var (
	db         *postgres.DB
	grpcConn   *grpclib.ClientConn
	grpcClient grpcadapter.ReconciliationServiceClient
	cfg        config.Config
)

func TestMain(m *testing.M) {
	cfg = config.Load()

	// 1. Connect to Database
	var err error
	db, err = postgres.NewDB(cfg.DB.DSN())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}

	// 2. Connect to gRPC Server
	grpcConn, err = grpclib.NewClient(getGRPCAddress(), grpclib.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to gRPC server: %v", err))
	}
	grpcClient = grpcadapter.NewReconciliationServiceClient(grpcConn)

	code := m.Run()

	grpcConn.Close()
	db.Close()
	os.Exit(code)
}

func getGRPCAddress() string {
	addr := os.Getenv("GRPC_ADDRESS")
	if addr == "" {
		addr = "localhost:8080"
	}
	return addr
}

func getAuthContext() context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", cfg.APIToken)
}

// seedCustomer creates the party and removes its rows when the test ends
func seedCustomer(t *testing.T, id int64, name string) {
	t.Helper()
	cleanup := func() {
		_, _ = db.Exec(`DELETE FROM transactions WHERE party_type = 'customer' AND party_id = $1`, id)
		_, _ = db.Exec(`DELETE FROM rate_observations WHERE party_type = 'customer' AND party_id = $1`, id)
		_, _ = db.Exec(`DELETE FROM parties WHERE party_type = 'customer' AND id = $1`, id)
	}
	cleanup()
	t.Cleanup(cleanup)

	_, err := db.Exec(`INSERT INTO parties (party_type, id, name) VALUES ('customer', $1, $2)`, id, name)
	require.NoError(t, err)
}

// insertVoucher stores a voucher the way the transaction service would and returns its wire record
func insertVoucher(t *testing.T, partyID int64, voucherType, no, date, amount, rate string) dto.Transaction {
	t.Helper()
	rec := dto.Transaction{
		PartyID:         partyID,
		PartyType:       "customer",
		VoucherType:     voucherType,
		VoucherNo:       no,
		TransactionDate: date,
		BaseCurrencyID:  "USD",
		LocalCurrencyID: "INR",
		BaseAmount:      amount,
		ExchangeRate:    rate,
	}
	err := db.QueryRow(`
		INSERT INTO transactions (
			party_type, party_id, voucher_type, voucher_no, transaction_date,
			base_currency_id, local_currency_id, base_amount, exchange_rate, local_amount, remaining_amount
		)
		VALUES ('customer', $1, $2, $3, $4, 'USD', 'INR', $5, $6, $5::numeric * $6::numeric, $5)
		RETURNING id`,
		partyID, voucherType, no, date, amount, rate,
	).Scan(&rec.ID)
	require.NoError(t, err)
	return rec
}

func TestHealthCheckWithoutToken(t *testing.T) {
	resp, err := healthpb.NewHealthClient(grpcConn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: grpcadapter.ServiceName})

	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

// The service descriptor carries no protobuf file descriptor, so reflection is not served
func TestServerReflectionIsNotServed(t *testing.T) {
	stream, err := reflectionpb.NewServerReflectionClient(grpcConn).ServerReflectionInfo(context.Background())
	require.NoError(t, err)

	// a rejected stream surfaces its status on Recv; Send only reports io.EOF
	_ = stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{ListServices: "*"},
	})
	_, err = stream.Recv()

	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestUnauthenticatedCallIsRejected(t *testing.T) {
	_, err := grpcClient.RebuildBucket(context.Background(), &grpcadapter.RebuildBucketRequest{
		PartyType: "customer", PartyID: 9001, BaseCurrency: "USD",
	})

	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

// TestEndToEndFlow: sale -> over-receipt -> ledger -> delete receipt
func TestEndToEndFlow(t *testing.T) {
	ctx := getAuthContext()
	seedCustomer(t, 9001, "E2E Traders")

	// Step A: a sale, then a receipt that exceeds it
	sale := insertVoucher(t, 9001, "sale", "E2E-S1", "2024-01-01", "1000", "89")
	_, err := grpcClient.NotifyTransaction(ctx, &grpcadapter.NotifyTransactionRequest{Event: "created", Transaction: sale})
	require.NoError(t, err)

	receipt := insertVoucher(t, 9001, "receipt", "E2E-R1", "2024-01-02", "1100", "89.2")
	rebuilt, err := grpcClient.NotifyTransaction(ctx, &grpcadapter.NotifyTransactionRequest{Event: "created", Transaction: receipt})
	require.NoError(t, err, "NotifyTransaction should succeed")

	require.Len(t, rebuilt.Matches, 1)
	assert.Equal(t, "1000.0000", rebuilt.Matches[0].MatchedBaseAmount)
	assert.Equal(t, "200.0000", rebuilt.Matches[0].RealisedGainLoss)
	assert.Equal(t, 1, rebuilt.OpenAdvances)

	// Step B: the advance is valued against the market rate recorded for its date
	_, err = grpcClient.RecordMarketRate(ctx, &grpcadapter.RecordMarketRateRequest{
		BaseCurrencyID: "USD", LocalCurrencyID: "INR", RateDate: "2024-01-02", Rate: "90",
	})
	require.NoError(t, err)

	resolved, err := grpcClient.ResolveClosingRate(ctx, &grpcadapter.ResolveClosingRateRequest{TransactionID: receipt.ID})
	require.NoError(t, err)
	assert.Equal(t, "90.000000", resolved.Rate)
	assert.Equal(t, "market", resolved.Source)

	partyID := int64(9001)
	ledgerResp, err := grpcClient.BuildLedger(ctx, &grpcadapter.BuildLedgerRequest{
		PartyType: "customer", PartyID: &partyID, CurrencyID: "USD",
	})
	require.NoError(t, err)
	require.Len(t, ledgerResp.Rows, 2)
	assert.Equal(t, "E2E Traders", ledgerResp.Rows[0].Particulars)
	assert.Equal(t, "100.0000", ledgerResp.Rows[1].RemainingBase)
	assert.Equal(t, "200.0000", ledgerResp.Totals.NetRealised)

	// Step C: deleting the receipt releases the sale
	_, err = db.Exec(`DELETE FROM transactions WHERE id = $1`, receipt.ID)
	require.NoError(t, err)
	rebuilt, err = grpcClient.NotifyTransaction(ctx, &grpcadapter.NotifyTransactionRequest{Event: "deleted", Transaction: receipt})
	require.NoError(t, err)
	assert.Empty(t, rebuilt.Matches)

	var remaining string
	err = db.QueryRow(`SELECT remaining_amount FROM transactions WHERE id = $1`, sale.ID).Scan(&remaining)
	require.NoError(t, err)
	assert.Equal(t, "1000.0000", remaining)
}

func TestInvalidTransactionIsRejected(t *testing.T) {
	ctx := getAuthContext()

	_, err := grpcClient.NotifyTransaction(ctx, &grpcadapter.NotifyTransactionRequest{
		Event: "created",
		Transaction: dto.Transaction{
			ID: 1, PartyID: 9002, PartyType: "customer", VoucherType: "sale", VoucherNo: "E2E-X",
			TransactionDate: "2024-01-01", BaseCurrencyID: "USD", LocalCurrencyID: "USD",
			BaseAmount: "10", ExchangeRate: "1",
		},
	})

	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
