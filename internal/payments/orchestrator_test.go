package payments

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"cognishare/agent/internal/chain"
	"cognishare/agent/internal/ledger"

	"github.com/ethereum/go-ethereum/common"
)

const (
	walletA = "0x52908400098527886E0F7030069857D2E4169EE7"
	walletB = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
	walletC = "0xde709f2102306220921060314715629080e2fb77"
)

func centiCRO(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(10_000_000_000_000_000))
}

type recordingObserver struct {
	summaries []Summary
}

func (r *recordingObserver) ObservePayment(summary Summary) {
	r.summaries = append(r.summaries, summary)
}

func TestSimulatedCitationsPayEveryOccurrence(t *testing.T) {
	o := New(Options{})
	citations := []Citation{
		{Wallet: walletA, Content: "alpha", Amount: centiCRO(1)},
		{Wallet: walletB, Content: "beta", Amount: centiCRO(1)},
		{Wallet: walletA, Content: "gamma", Amount: centiCRO(1)},
	}

	summary, err := o.PayCitations(context.Background(), citations)
	require.NoError(t, err)
	require.Equal(t, ModeSimulated, summary.Mode)
	require.Equal(t, KindCitation, summary.Kind)
	require.Equal(t, 3, summary.PaidCount())
	require.True(t, summary.Succeeded())
	require.Equal(t, centiCRO(3), summary.TotalPaid)
	require.NotEmpty(t, summary.QueryID)
	for _, result := range summary.Results {
		require.True(t, result.OK)
		require.NotEmpty(t, result.TxHash)
	}

	// The twice-cited wallet earned twice in the backing registry.
	stats := o.SimulatedRegistry().GetAuthorStats(common.HexToAddress(walletA))
	require.EqualValues(t, 2, stats.Citations)
	require.Equal(t, centiCRO(2), stats.Earnings)

	global := o.SimulatedRegistry().GetGlobalStats()
	require.EqualValues(t, 3, global.Citations)
	require.Equal(t, centiCRO(3), global.Paid)
}

func TestServiceFeesDedupeByWallet(t *testing.T) {
	o := New(Options{})
	fees := []ServiceFee{
		{ServiceName: "Market Data", Wallet: walletA, Amount: centiCRO(5)},
		{ServiceName: "Market Data", Wallet: "  " + walletA + " ", Amount: centiCRO(5)},
		{ServiceName: "Market Data", Wallet: common.HexToAddress(walletA).Hex(), Amount: centiCRO(5)},
	}

	summary, err := o.PayServiceFees(context.Background(), fees)
	require.NoError(t, err)
	require.Equal(t, KindService, summary.Kind)
	require.Equal(t, "Market Data", summary.ServiceName)
	require.Len(t, summary.Results, 1)
	require.Equal(t, centiCRO(5), summary.TotalPaid)
}

func TestInvalidLegsDoNotBlockOthers(t *testing.T) {
	o := New(Options{})
	citations := []Citation{
		{Wallet: "not-an-address", Content: "x", Amount: centiCRO(1)},
		{Wallet: walletB, Content: "y", Amount: centiCRO(1)},
		{Wallet: walletC, Content: "z", Amount: big.NewInt(0)},
	}

	summary, err := o.PayCitations(context.Background(), citations)
	require.NoError(t, err)
	require.True(t, summary.AnyFailures)
	require.Equal(t, 1, summary.PaidCount())

	require.ErrorIs(t, summary.Results[0].Err, ErrInvalidRecipient)
	require.True(t, summary.Results[1].OK)
	require.ErrorIs(t, summary.Results[2].Err, ErrInvalidAmount)
	require.Equal(t, centiCRO(1), summary.TotalPaid)
}

func TestZeroAddressRecipientRejected(t *testing.T) {
	o := New(Options{})
	summary, err := o.PayCitations(context.Background(), []Citation{
		{Wallet: "0x0000000000000000000000000000000000000000", Content: "x", Amount: centiCRO(1)},
	})
	require.NoError(t, err)
	require.ErrorIs(t, summary.Results[0].Err, ErrInvalidRecipient)
}

func TestEmptyBatchesRejected(t *testing.T) {
	o := New(Options{})
	_, err := o.PayCitations(context.Background(), nil)
	require.Error(t, err)
	_, err = o.PayServiceFees(context.Background(), nil)
	require.Error(t, err)
}

func TestObserverReceivesEveryBatch(t *testing.T) {
	obs := &recordingObserver{}
	o := New(Options{Observer: obs})

	_, err := o.PayCitations(context.Background(), []Citation{
		{Wallet: walletA, Content: "a", Amount: centiCRO(1)},
	})
	require.NoError(t, err)
	_, err = o.PayServiceFees(context.Background(), []ServiceFee{
		{ServiceName: "Market Data", Wallet: walletB, Amount: centiCRO(5)},
	})
	require.NoError(t, err)

	require.Len(t, obs.summaries, 2)
	require.Equal(t, KindCitation, obs.summaries[0].Kind)
	require.Equal(t, KindService, obs.summaries[1].Kind)
}

func TestModeWithoutChainIsSimulated(t *testing.T) {
	o := New(Options{})
	require.Equal(t, ModeSimulated, o.Mode(context.Background()))
}

func TestCancelledContextStopsRemainingLegs(t *testing.T) {
	o := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := o.PayCitations(ctx, []Citation{
		{Wallet: walletA, Content: "a", Amount: centiCRO(1)},
		{Wallet: walletB, Content: "b", Amount: centiCRO(1)},
	})
	require.NoError(t, err)
	require.True(t, summary.AnyFailures)
	for _, result := range summary.Results {
		require.False(t, result.OK)
		require.ErrorIs(t, result.Err, context.Canceled)
	}
}

func TestSignerSelfPaymentRejected(t *testing.T) {
	signer := newTestSigner(t)
	fake := newFakeChain()
	o := New(Options{Client: chain.NewClient(fake), Signer: signer})

	summary, err := o.PayCitations(context.Background(), []Citation{
		{Wallet: signer.Address().Hex(), Content: "self", Amount: centiCRO(1)},
	})
	require.NoError(t, err)
	require.ErrorIs(t, summary.Results[0].Err, ErrSelfPayment)
}

func TestSimulatedRegistrySharedAcrossBatches(t *testing.T) {
	registry := ledger.NewRegistry(ledger.NopTransferer())
	o := New(Options{Simulated: registry})

	_, err := o.PayCitations(context.Background(), []Citation{
		{Wallet: walletA, Content: "a", Amount: centiCRO(1)},
	})
	require.NoError(t, err)
	_, err = o.PayCitations(context.Background(), []Citation{
		{Wallet: walletA, Content: "b", Amount: centiCRO(1)},
	})
	require.NoError(t, err)

	require.EqualValues(t, 2, registry.GetGlobalStats().Citations)
}
