package payments

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"cognishare/agent/internal/chain"
	"cognishare/agent/internal/ledger"
)

// Gas limits mirror the deployed protocol's fixed budgets: a plain value
// transfer, a single payCitation call, and a per-recipient allowance for
// batch calls.
const (
	gasTransfer    = 21_000
	gasPayCitation = 150_000
	gasBatchBase   = 100_000
	gasBatchPerLeg = 120_000
)

type leg struct {
	index  int
	wallet common.Address
	hash   string
	amount *big.Int
}

// submitter executes one batch of validated legs under a single Mode. The
// ledger variant folds all legs into one transaction; the others walk legs
// sequentially because every outgoing transfer shares the signer's nonce
// sequence.
type submitter interface {
	mode() Mode
	submit(ctx context.Context, legs []leg) []PaymentResult
}

func failAll(legs []leg, err error) []PaymentResult {
	results := make([]PaymentResult, len(legs))
	for i, l := range legs {
		results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, Err: err}
	}
	return results
}

func uncertainAll(legs []leg, txHash string, err error) []PaymentResult {
	results := make([]PaymentResult, len(legs))
	for i, l := range legs {
		results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, Uncertain: true, TxHash: txHash, Err: err}
	}
	return results
}

// ledgerSubmitter pays through the deployed registry contract: one
// payCitation call for a single leg, one batchPayCitations call otherwise.
type ledgerSubmitter struct {
	client   *chain.Client
	signer   *chain.Signer
	contract common.Address
	timeout  time.Duration
	log      *slog.Logger
}

func (s *ledgerSubmitter) mode() Mode { return ModeLedger }

func (s *ledgerSubmitter) submit(ctx context.Context, legs []leg) []PaymentResult {
	if s.signer == nil {
		return failAll(legs, ErrSignerUnavailable)
	}

	value := big.NewInt(0)
	items := make([]ledger.CitationItem, 0, len(legs))
	for _, l := range legs {
		items = append(items, ledger.CitationItem{Author: l.wallet, ContentHash: l.hash, Amount: l.amount})
		value.Add(value, l.amount)
	}

	var (
		data []byte
		err  error
		gas  uint64
	)
	if len(items) == 1 {
		data, err = ledger.PackPayCitation(items[0].Author, items[0].ContentHash)
		gas = gasPayCitation
	} else {
		data, err = ledger.PackBatchPayCitations(items)
		gas = gasBatchBase + gasBatchPerLeg*uint64(len(items))
	}
	if err != nil {
		return failAll(legs, classifySubmitErr(err))
	}

	nonce, err := s.client.PendingNonce(ctx, s.signer.Address())
	if err != nil {
		return failAll(legs, classifySubmitErr(err))
	}
	gasPrice, err := s.client.GasPrice(ctx)
	if err != nil {
		return failAll(legs, classifySubmitErr(err))
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &s.contract,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := s.signer.SignTx(tx)
	if err != nil {
		return failAll(legs, classifySubmitErr(err))
	}
	if err := s.client.Send(ctx, signed); err != nil {
		return failAll(legs, classifySubmitErr(err))
	}
	txHash := signed.Hash()
	s.log.Info("ledger batch broadcast", "tx", txHash.Hex(), "legs", len(legs), "value_wei", value.String())

	receipt, err := s.client.WaitMined(ctx, txHash, s.timeout)
	if err != nil {
		// Broadcast but unconfirmed: every leg is in limbo, not failed.
		return uncertainAll(legs, txHash.Hex(), classifySubmitErr(err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return failAll(legs, ErrTransferRejected)
	}

	failures, decodeErr := ledger.DecodeFailedPayments(receipt.Logs, s.contract)
	if decodeErr != nil {
		s.log.Warn("receipt decode failed, assuming all legs paid", "tx", txHash.Hex(), "err", decodeErr)
	}

	// Match PaymentFailed events back to legs by author+amount, consuming
	// one event per failed leg.
	remaining := make([]ledger.FailedPayment, len(failures))
	copy(remaining, failures)
	results := make([]PaymentResult, len(legs))
	for i, l := range legs {
		failed := false
		for j, f := range remaining {
			if f.Author == l.wallet && f.Amount.Cmp(l.amount) == 0 {
				failed = true
				remaining = append(remaining[:j], remaining[j+1:]...)
				break
			}
		}
		if failed {
			results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, TxHash: txHash.Hex(), Err: ErrTransferRejected}
			continue
		}
		results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, OK: true, TxHash: txHash.Hex()}
	}
	return results
}

// directSubmitter loops plain value transfers when no contract is deployed
// but a signer key exists. No on-chain accounting happens in this mode.
type directSubmitter struct {
	client  *chain.Client
	signer  *chain.Signer
	timeout time.Duration
	log     *slog.Logger
}

func (s *directSubmitter) mode() Mode { return ModeDirect }

func (s *directSubmitter) submit(ctx context.Context, legs []leg) []PaymentResult {
	results := make([]PaymentResult, len(legs))

	nonce, err := s.client.PendingNonce(ctx, s.signer.Address())
	if err != nil {
		return failAll(legs, classifySubmitErr(err))
	}
	gasPrice, err := s.client.GasPrice(ctx)
	if err != nil {
		return failAll(legs, classifySubmitErr(err))
	}

	for i, l := range legs {
		if ctx.Err() != nil {
			// Query-level cancellation stops starting new legs; broadcast
			// ones were already accounted above.
			for j := i; j < len(legs); j++ {
				results[j] = PaymentResult{Wallet: legs[j].wallet.Hex(), Amount: legs[j].amount, Err: ctx.Err()}
			}
			return results
		}
		to := l.wallet
		tx := types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    l.amount,
			Gas:      gasTransfer,
			GasPrice: gasPrice,
		})
		signed, err := s.signer.SignTx(tx)
		if err != nil {
			results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, Err: classifySubmitErr(err)}
			continue
		}
		if err := s.client.Send(ctx, signed); err != nil {
			// Rejected before acceptance: the nonce was not consumed.
			results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, Err: classifySubmitErr(err)}
			continue
		}
		nonce++
		txHash := signed.Hash()
		receipt, err := s.client.WaitMined(ctx, txHash, s.timeout)
		switch {
		case err != nil:
			results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, Uncertain: true, TxHash: txHash.Hex(), Err: classifySubmitErr(err)}
		case receipt.Status != types.ReceiptStatusSuccessful:
			results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, TxHash: txHash.Hex(), Err: ErrTransferRejected}
		default:
			results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, OK: true, TxHash: txHash.Hex()}
			s.log.Info("direct transfer confirmed", "tx", txHash.Hex(), "wallet", l.wallet.Hex(), "amount_wei", l.amount.String())
		}
	}
	return results
}

// simSubmitter runs legs against the in-process registry so session
// analytics stay coherent while no real funds move.
type simSubmitter struct {
	registry *ledger.Registry
	payer    common.Address
	now      func() time.Time
}

func (s *simSubmitter) mode() Mode { return ModeSimulated }

func (s *simSubmitter) submit(ctx context.Context, legs []leg) []PaymentResult {
	results := make([]PaymentResult, len(legs))
	for i, l := range legs {
		if ctx.Err() != nil {
			for j := i; j < len(legs); j++ {
				results[j] = PaymentResult{Wallet: legs[j].wallet.Hex(), Amount: legs[j].amount, Err: ctx.Err()}
			}
			return results
		}
		if _, err := s.registry.PayCitation(s.payer, l.wallet, l.hash, l.amount); err != nil {
			results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, Err: classifyLedgerErr(err)}
			continue
		}
		results[i] = PaymentResult{Wallet: l.wallet.Hex(), Amount: l.amount, OK: true, TxHash: syntheticTxHash(l.wallet, s.now())}
	}
	return results
}
