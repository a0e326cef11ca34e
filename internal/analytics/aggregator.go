package analytics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"cognishare/agent/internal/chain"
	"cognishare/agent/internal/ledger"
	"cognishare/agent/internal/payments"
)

// NoData is the sentinel for derived metrics that cannot be computed yet
// (divide-by-zero guards report it instead of failing).
const NoData = "no data"

// AuthorStatsView is the per-author on-chain figure pair in the read model.
type AuthorStatsView struct {
	EarningsWei string  `json:"earningsWei"`
	EarningsCRO float64 `json:"earningsCro"`
	Citations   uint64  `json:"citations"`
}

// SessionAuthorView mirrors AuthorStatsView for session-local observations.
type SessionAuthorView struct {
	EarningsWei string  `json:"earningsWei"`
	EarningsCRO float64 `json:"earningsCro"`
	Citations   uint64  `json:"citations"`
}

// ReadModel is the single coherent view served to the dashboard. On-chain
// figures are authoritative; session figures are the locally observed
// approximation and the two need not match.
type ReadModel struct {
	TotalCitationsOnChain uint64                       `json:"totalCitationsOnChain"`
	TotalPaidOnChainWei   string                       `json:"totalPaidOnChainWei"`
	TotalPaidOnChainCRO   float64                      `json:"totalPaidOnChainCro"`
	BlockNumber           uint64                       `json:"blockNumber"`
	GasPriceGwei          float64                      `json:"gasPriceGwei"`
	ContractAddress       string                       `json:"contractAddress"`
	Status                string                       `json:"status"`
	AuthorStatsOnChain    map[string]AuthorStatsView   `json:"authorStatsOnChain"`
	SessionCitations      uint64                       `json:"sessionCitations"`
	SessionPaidWei        string                       `json:"sessionPaidWei"`
	SessionPaidCRO        float64                      `json:"sessionPaidCro"`
	SessionTimeline       []TimelineEntry              `json:"sessionCitationTimeline"`
	SessionAuthorEarnings map[string]SessionAuthorView `json:"sessionAuthorEarnings"`
	ServiceFeeCalls       uint64                       `json:"serviceFeeCalls"`
	ServiceFeesPaidCRO    float64                      `json:"serviceFeesPaidCro"`
	AvgPaidPerCitation    string                       `json:"averagePaidPerCitationCro"`
	LastBatchMode         string                       `json:"lastBatchMode"`
	LastBatchOutcome      string                       `json:"lastBatchOutcome"`
}

// Aggregator blends authoritative ledger totals with the locally observed
// session. It never mutates orchestrator or ledger state.
type Aggregator struct {
	session  *Session
	client   *chain.Client
	contract *common.Address
	log      *slog.Logger
}

func NewAggregator(session *Session, client *chain.Client, contract *common.Address, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		session:  session,
		client:   client,
		contract: contract,
		log:      logger.With(slog.String("component", "analytics")),
	}
}

// Snapshot assembles the read model. Ledger reads are best effort: an
// unreachable contract degrades the status string, never errors out the
// whole snapshot, so the session view stays available in every mode.
func (a *Aggregator) Snapshot(ctx context.Context) ReadModel {
	citations, paid := a.session.Totals()
	serviceCalls, serviceFees := a.session.ServiceBucket()
	lastMode, lastOutcome := a.session.LastActivity()

	model := ReadModel{
		TotalPaidOnChainWei:   "0",
		AuthorStatsOnChain:    map[string]AuthorStatsView{},
		SessionCitations:      citations,
		SessionPaidWei:        paid.String(),
		SessionPaidCRO:        chain.WeiToCRO(paid),
		SessionTimeline:       a.session.Timeline(),
		SessionAuthorEarnings: map[string]SessionAuthorView{},
		ServiceFeeCalls:       serviceCalls,
		ServiceFeesPaidCRO:    chain.WeiToCRO(serviceFees),
		AvgPaidPerCitation:    NoData,
		LastBatchMode:         string(lastMode),
		LastBatchOutcome:      lastOutcome,
		Status:                statusFor(lastMode, a.contract),
	}

	for wallet, totals := range a.session.Authors() {
		model.SessionAuthorEarnings[wallet] = SessionAuthorView{
			EarningsWei: totals.EarningsWei.String(),
			EarningsCRO: chain.WeiToCRO(totals.EarningsWei),
			Citations:   totals.Citations,
		}
	}

	if citations > 0 {
		avg := chain.WeiToCRO(paid) / float64(citations)
		model.AvgPaidPerCitation = fmt.Sprintf("%.6f", avg)
	}

	if a.contract == nil || a.client == nil {
		return model
	}
	model.ContractAddress = a.contract.Hex()

	if err := a.fillOnChain(ctx, &model); err != nil {
		a.log.Warn("ledger snapshot unavailable", "err", err)
		model.Status = "ledger unreachable"
	}
	return model
}

func (a *Aggregator) fillOnChain(ctx context.Context, model *ReadModel) error {
	data, err := ledger.PackGetGlobalStats()
	if err != nil {
		return err
	}
	raw, err := a.client.Call(ctx, *a.contract, data)
	if err != nil {
		return fmt.Errorf("global stats call: %w", err)
	}
	global, err := ledger.UnpackGlobalStats(raw)
	if err != nil {
		return err
	}
	model.TotalCitationsOnChain = global.Citations
	model.TotalPaidOnChainWei = global.Paid.String()
	model.TotalPaidOnChainCRO = chain.WeiToCRO(global.Paid)

	if block, err := a.client.BlockNumber(ctx); err == nil {
		model.BlockNumber = block
	}
	if gasPrice, err := a.client.GasPrice(ctx); err == nil {
		model.GasPriceGwei = chain.WeiToGwei(gasPrice)
	}

	for wallet := range a.session.Authors() {
		if !common.IsHexAddress(wallet) {
			continue
		}
		call, err := ledger.PackGetAuthorStats(common.HexToAddress(wallet))
		if err != nil {
			continue
		}
		raw, err := a.client.Call(ctx, *a.contract, call)
		if err != nil {
			continue
		}
		stats, err := ledger.UnpackAuthorStats(raw)
		if err != nil {
			continue
		}
		model.AuthorStatsOnChain[wallet] = AuthorStatsView{
			EarningsWei: stats.Earnings.String(),
			EarningsCRO: chain.WeiToCRO(stats.Earnings),
			Citations:   stats.Citations,
		}
	}
	return nil
}

// statusFor renders the payment subsystem state the presentation layer must
// show: ledger-backed, direct transfers without on-chain accounting, or
// fully simulated. Mode degradation is never silent.
func statusFor(lastMode payments.Mode, contract *common.Address) string {
	switch {
	case lastMode == payments.ModeLedger || (lastMode == "" && contract != nil):
		return "on-chain"
	case lastMode == payments.ModeDirect:
		return "direct transfers (no on-chain accounting)"
	default:
		return "simulated (no funds moved)"
	}
}
