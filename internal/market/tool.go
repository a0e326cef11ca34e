package market

import (
	"context"
	"log/slog"
	"math/big"

	"cognishare/agent/internal/payments"
)

// FeePayer is the slice of the payment orchestrator the tool needs.
type FeePayer interface {
	PayServiceFees(ctx context.Context, fees []payments.ServiceFee) (payments.Summary, error)
}

// Tool answers market-data queries and charges a flat service fee per call.
type Tool struct {
	client *Client
	payer  FeePayer
	wallet string
	fee    *big.Int
	log    *slog.Logger
}

func NewTool(client *Client, payer FeePayer, serviceWallet string, feeWei *big.Int, log *slog.Logger) *Tool {
	if log == nil {
		log = slog.Default()
	}
	return &Tool{
		client: client,
		payer:  payer,
		wallet: serviceWallet,
		fee:    new(big.Int).Set(feeWei),
		log:    log,
	}
}

// Result carries the quote together with the fee payment outcome.
type Result struct {
	Quote      Quote
	FeeSummary payments.Summary
}

// Lookup charges the service fee and then fetches the quote. A failed fee
// payment does not block the lookup; the caller can inspect FeeSummary.
func (t *Tool) Lookup(ctx context.Context, symbol string) (Result, error) {
	summary, err := t.payer.PayServiceFees(ctx, []payments.ServiceFee{{
		ServiceName: "Market Data",
		Wallet:      t.wallet,
		Amount:      new(big.Int).Set(t.fee),
	}})
	if err != nil {
		t.log.Warn("service fee payment errored", "service", "Market Data", "err", err)
	} else if !summary.Succeeded() {
		t.log.Warn("service fee payment did not complete", "service", "Market Data", "mode", summary.Mode)
	}

	quote, err := t.client.GetPrice(ctx, symbol)
	if err != nil {
		return Result{FeeSummary: summary}, err
	}
	return Result{Quote: quote, FeeSummary: summary}, nil
}
