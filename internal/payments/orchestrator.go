package payments

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"cognishare/agent/internal/chain"
	"cognishare/agent/internal/ledger"
	"cognishare/agent/internal/observability"
)

// Observer receives every finished batch summary. The analytics session
// implements it to maintain the local timeline.
type Observer interface {
	ObservePayment(Summary)
}

// Options wires an Orchestrator. Every field except Logger may be nil /
// zero: a missing client or signer simply narrows the available modes.
type Options struct {
	Client        *chain.Client
	Signer        *chain.Signer
	Contract      *common.Address
	Simulated     *ledger.Registry
	SubmitTimeout time.Duration
	Logger        *slog.Logger
	Observer      Observer
}

// Orchestrator turns citation lists and service-fee requests into ledger or
// transfer calls. It exclusively owns the signer account for the duration of
// one batch; batches are serialised, legs within a batch run sequentially.
type Orchestrator struct {
	mu       sync.Mutex
	client   *chain.Client
	signer   *chain.Signer
	contract *common.Address
	sim      *ledger.Registry
	timeout  time.Duration
	log      *slog.Logger
	observer Observer
	metrics  *observability.PaymentMetrics
	now      func() time.Time
}

func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sim := opts.Simulated
	if sim == nil {
		sim = ledger.NewRegistry(ledger.NopTransferer())
	}
	timeout := opts.SubmitTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Orchestrator{
		client:   opts.Client,
		signer:   opts.Signer,
		contract: opts.Contract,
		sim:      sim,
		timeout:  timeout,
		log:      logger.With(slog.String("component", "payments")),
		observer: opts.Observer,
		metrics:  observability.Payments(),
		now:      time.Now,
	}
}

// SimulatedRegistry exposes the in-process ledger backing simulated mode so
// analytics can read session-local stats when nothing is deployed.
func (o *Orchestrator) SimulatedRegistry() *ledger.Registry {
	return o.sim
}

func (o *Orchestrator) payer() common.Address {
	if o.signer != nil {
		return o.signer.Address()
	}
	return common.Address{}
}

// Mode reports which execution strategy the next batch would use.
func (o *Orchestrator) Mode(ctx context.Context) Mode {
	return o.selectSubmitter(ctx).mode()
}

// selectSubmitter picks the execution strategy once per batch: a reachable
// deployed contract wins, then a configured signer with a reachable RPC,
// then simulation. A deployed contract without a signer key still selects
// ledger mode so each leg reports signer_unavailable instead of silently
// degrading.
func (o *Orchestrator) selectSubmitter(ctx context.Context) submitter {
	if o.contract != nil && o.client != nil && o.client.Reachable(ctx) {
		return &ledgerSubmitter{client: o.client, signer: o.signer, contract: *o.contract, timeout: o.timeout, log: o.log}
	}
	if o.signer != nil && o.client != nil && o.client.Reachable(ctx) {
		return &directSubmitter{client: o.client, signer: o.signer, timeout: o.timeout, log: o.log}
	}
	return &simSubmitter{registry: o.sim, payer: o.payer(), now: o.now}
}

// PayCitations executes one citation batch. Every occurrence in the input is
// paid: a wallet cited twice earns twice. Legs that fail input validation
// are reported individually and never reach the chain; they do not block the
// remaining legs.
func (o *Orchestrator) PayCitations(ctx context.Context, citations []Citation) (Summary, error) {
	if len(citations) == 0 {
		return Summary{}, fmt.Errorf("payments: empty citation list")
	}
	entries := make([]payEntry, 0, len(citations))
	for _, c := range citations {
		entries = append(entries, payEntry{wallet: c.Wallet, hash: HashContent(c.Content), amount: c.Amount})
	}
	return o.run(ctx, KindCitation, "", entries), nil
}

// PayServiceFees charges pay-per-call fees. Duplicate requests for the same
// wallet within one call collapse to exactly one charge, unlike the
// citation path.
func (o *Orchestrator) PayServiceFees(ctx context.Context, fees []ServiceFee) (Summary, error) {
	if len(fees) == 0 {
		return Summary{}, fmt.Errorf("payments: empty service fee list")
	}
	seen := map[string]bool{}
	serviceName := ""
	entries := make([]payEntry, 0, len(fees))
	for _, fee := range fees {
		wallet := strings.ToLower(strings.TrimSpace(fee.Wallet))
		if seen[wallet] {
			continue
		}
		seen[wallet] = true
		if serviceName == "" {
			serviceName = fee.ServiceName
		}
		entries = append(entries, payEntry{
			wallet: fee.Wallet,
			hash:   HashContent("Service Fee: " + fee.ServiceName),
			amount: fee.Amount,
		})
	}
	return o.run(ctx, KindService, serviceName, entries), nil
}

type payEntry struct {
	wallet string
	hash   string
	amount *big.Int
}

func (o *Orchestrator) run(ctx context.Context, kind Kind, serviceName string, entries []payEntry) Summary {
	o.mu.Lock()
	defer o.mu.Unlock()

	started := o.now()
	summary := Summary{
		QueryID:     uuid.NewString(),
		Kind:        kind,
		ServiceName: serviceName,
		TotalPaid:   big.NewInt(0),
		Results:     make([]PaymentResult, len(entries)),
		Timestamp:   started.UTC(),
	}

	payer := o.payer()
	legs := make([]leg, 0, len(entries))
	for i, entry := range entries {
		wallet := strings.TrimSpace(entry.wallet)
		switch {
		case !common.IsHexAddress(wallet):
			summary.Results[i] = PaymentResult{Wallet: entry.wallet, Amount: entry.amount, Err: ErrInvalidRecipient}
		case entry.amount == nil || entry.amount.Sign() <= 0:
			summary.Results[i] = PaymentResult{Wallet: wallet, Amount: entry.amount, Err: ErrInvalidAmount}
		case common.HexToAddress(wallet) == (common.Address{}):
			summary.Results[i] = PaymentResult{Wallet: wallet, Amount: entry.amount, Err: ErrInvalidRecipient}
		case payer != (common.Address{}) && common.HexToAddress(wallet) == payer:
			summary.Results[i] = PaymentResult{Wallet: wallet, Amount: entry.amount, Err: ErrSelfPayment}
		default:
			legs = append(legs, leg{index: i, wallet: common.HexToAddress(wallet), hash: entry.hash, amount: entry.amount})
		}
	}

	sub := o.selectSubmitter(ctx)
	summary.Mode = sub.mode()

	if len(legs) > 0 {
		for i, result := range sub.submit(ctx, legs) {
			summary.Results[legs[i].index] = result
		}
	}

	for _, result := range summary.Results {
		switch {
		case result.OK:
			summary.TotalPaid.Add(summary.TotalPaid, result.Amount)
		case result.Uncertain:
			summary.AnyUncertain = true
		default:
			summary.AnyFailures = true
		}
	}

	o.record(summary, o.now().Sub(started))
	return summary
}

func (o *Orchestrator) record(summary Summary, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case summary.AnyUncertain && !summary.AnyFailures:
		outcome = "uncertain"
	case summary.AnyFailures && summary.PaidCount() > 0:
		outcome = "partial"
	case summary.AnyFailures:
		outcome = "failed"
	}
	mode := string(summary.Mode)
	o.metrics.Batches.WithLabelValues(mode, outcome).Inc()
	for _, result := range summary.Results {
		legOutcome := "ok"
		switch {
		case result.Uncertain:
			legOutcome = "uncertain"
		case !result.OK:
			legOutcome = KindOf(result.Err)
		}
		o.metrics.Legs.WithLabelValues(mode, legOutcome).Inc()
	}
	o.metrics.Duration.WithLabelValues(mode).Observe(elapsed.Seconds())

	o.log.Info("payment batch finished",
		"query_id", summary.QueryID,
		"kind", string(summary.Kind),
		"mode", mode,
		"outcome", outcome,
		"legs", len(summary.Results),
		"paid", summary.PaidCount(),
		"total_wei", summary.TotalPaid.String(),
	)

	if o.observer != nil {
		o.observer.ObservePayment(summary)
	}
}
