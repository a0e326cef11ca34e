package analytics

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"cognishare/agent/internal/chain"
	"cognishare/agent/internal/ledger"
	"cognishare/agent/internal/payments"
)

var testContract = common.HexToAddress("0xC0DE000000000000000000000000000000000001")

// ledgerRPC answers the two registry view calls with canned figures.
type ledgerRPC struct {
	abi       abi.ABI
	global    ledger.GlobalStats
	authors   map[common.Address]ledger.AuthorStats
	callErr   error
	gasPrice  *big.Int
	headBlock int64
}

func newLedgerRPC(t *testing.T) *ledgerRPC {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(ledger.RegistryABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return &ledgerRPC{
		abi:       parsed,
		global:    ledger.GlobalStats{Paid: big.NewInt(0)},
		authors:   map[common.Address]ledger.AuthorStats{},
		gasPrice:  big.NewInt(5_000_000_000),
		headBlock: 42,
	}
}

func (f *ledgerRPC) ChainID(context.Context) (*big.Int, error) { return big.NewInt(338), nil }

func (f *ledgerRPC) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 0, nil }

func (f *ledgerRPC) SuggestGasPrice(context.Context) (*big.Int, error) { return f.gasPrice, nil }

func (f *ledgerRPC) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *ledgerRPC) SendTransaction(context.Context, *types.Transaction) error { return nil }

func (f *ledgerRPC) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func (f *ledgerRPC) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(f.headBlock)}, nil
}

func (f *ledgerRPC) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	switch {
	case bytes.Equal(call.Data[:4], f.abi.Methods["getGlobalStats"].ID):
		return f.abi.Methods["getGlobalStats"].Outputs.Pack(
			new(big.Int).SetUint64(f.global.Citations), f.global.Paid)
	case bytes.Equal(call.Data[:4], f.abi.Methods["getAuthorStats"].ID):
		values, err := f.abi.Methods["getAuthorStats"].Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		author := values[0].(common.Address)
		stats, ok := f.authors[author]
		if !ok {
			stats = ledger.AuthorStats{Earnings: big.NewInt(0)}
		}
		return f.abi.Methods["getAuthorStats"].Outputs.Pack(
			stats.Earnings, new(big.Int).SetUint64(stats.Citations))
	}
	return nil, errors.New("unexpected call")
}

func sessionWithOneBatch() *Session {
	s := NewSession()
	s.ObservePayment(payments.Summary{
		QueryID:   "q1",
		Kind:      payments.KindCitation,
		Mode:      payments.ModeSimulated,
		TotalPaid: centiCRO(2),
		Results: []payments.PaymentResult{
			{Wallet: walletA, Amount: centiCRO(1), OK: true},
			{Wallet: walletA, Amount: centiCRO(1), OK: true},
		},
		Timestamp: time.Now().UTC(),
	})
	return s
}

func TestSnapshotWithoutChain(t *testing.T) {
	agg := NewAggregator(sessionWithOneBatch(), nil, nil, nil)
	model := agg.Snapshot(context.Background())

	if model.SessionCitations != 2 {
		t.Fatalf("session citations = %d", model.SessionCitations)
	}
	if model.SessionPaidCRO != 0.02 {
		t.Fatalf("session paid = %v", model.SessionPaidCRO)
	}
	if model.Status != "simulated (no funds moved)" {
		t.Fatalf("status = %q", model.Status)
	}
	if model.ContractAddress != "" {
		t.Fatalf("contract address = %q, want empty", model.ContractAddress)
	}
	if model.AvgPaidPerCitation != "0.010000" {
		t.Fatalf("avg = %q", model.AvgPaidPerCitation)
	}
	if len(model.SessionTimeline) != 1 {
		t.Fatalf("timeline = %d entries", len(model.SessionTimeline))
	}
	if got := model.SessionAuthorEarnings[walletA]; got.Citations != 2 {
		t.Fatalf("session author view = %+v", got)
	}
}

func TestSnapshotAvgGuardsDivisionByZero(t *testing.T) {
	agg := NewAggregator(NewSession(), nil, nil, nil)
	model := agg.Snapshot(context.Background())
	if model.AvgPaidPerCitation != NoData {
		t.Fatalf("avg = %q, want %q", model.AvgPaidPerCitation, NoData)
	}
}

func TestSnapshotFillsOnChainFigures(t *testing.T) {
	rpc := newLedgerRPC(t)
	rpc.global = ledger.GlobalStats{Citations: 10, Paid: centiCRO(10)}
	rpc.authors[common.HexToAddress(walletA)] = ledger.AuthorStats{Earnings: centiCRO(4), Citations: 4}

	agg := NewAggregator(sessionWithOneBatch(), chain.NewClient(rpc), &testContract, nil)
	model := agg.Snapshot(context.Background())

	if model.TotalCitationsOnChain != 10 {
		t.Fatalf("on-chain citations = %d", model.TotalCitationsOnChain)
	}
	if model.TotalPaidOnChainWei != centiCRO(10).String() {
		t.Fatalf("on-chain paid = %s", model.TotalPaidOnChainWei)
	}
	if model.BlockNumber != 42 {
		t.Fatalf("block = %d", model.BlockNumber)
	}
	if model.GasPriceGwei != 5 {
		t.Fatalf("gas price = %v gwei", model.GasPriceGwei)
	}
	if model.ContractAddress != testContract.Hex() {
		t.Fatalf("contract = %s", model.ContractAddress)
	}

	// Session and on-chain figures are reported side by side, not merged.
	onChain := model.AuthorStatsOnChain[walletA]
	if onChain.Citations != 4 || onChain.EarningsWei != centiCRO(4).String() {
		t.Fatalf("on-chain author stats = %+v", onChain)
	}
	if model.SessionCitations != 2 {
		t.Fatalf("session citations overwritten: %d", model.SessionCitations)
	}
}

func TestSnapshotDegradesWhenLedgerUnreachable(t *testing.T) {
	rpc := newLedgerRPC(t)
	rpc.callErr = errors.New("connection refused")

	agg := NewAggregator(sessionWithOneBatch(), chain.NewClient(rpc), &testContract, nil)
	model := agg.Snapshot(context.Background())

	if model.Status != "ledger unreachable" {
		t.Fatalf("status = %q", model.Status)
	}
	// The session view stays available.
	if model.SessionCitations != 2 {
		t.Fatalf("session view lost: %d", model.SessionCitations)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name     string
		mode     payments.Mode
		contract *common.Address
		want     string
	}{
		{"ledger", payments.ModeLedger, &testContract, "on-chain"},
		{"idle with contract", "", &testContract, "on-chain"},
		{"direct", payments.ModeDirect, nil, "direct transfers (no on-chain accounting)"},
		{"simulated", payments.ModeSimulated, nil, "simulated (no funds moved)"},
		{"idle without contract", "", nil, "simulated (no funds moved)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusFor(tc.mode, tc.contract); got != tc.want {
				t.Fatalf("status = %q, want %q", got, tc.want)
			}
		})
	}
}
