package payments

import (
	"context"
	"errors"

	"cognishare/agent/internal/chain"
	"cognishare/agent/internal/ledger"
)

// Error kinds for one payment leg. Input-shape errors are raised before any
// transfer is attempted; ErrNetworkTimeout is an uncertain outcome, never a
// confirmed failure.
var (
	ErrInvalidRecipient  = errors.New("payments: invalid recipient wallet")
	ErrInvalidAmount     = errors.New("payments: amount must be positive")
	ErrSelfPayment       = errors.New("payments: recipient equals payer")
	ErrSignerUnavailable = errors.New("payments: no signer key configured")
	ErrTransferRejected  = errors.New("payments: transfer rejected by chain")
	ErrNetworkTimeout    = errors.New("payments: network timeout, outcome uncertain")
	ErrValueMismatch     = errors.New("payments: batch value mismatch")
)

// KindOf maps a leg error to its stable taxonomy label for logs, metrics and
// the read model.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRecipient):
		return "invalid_recipient"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrSelfPayment):
		return "self_payment"
	case errors.Is(err, ErrSignerUnavailable):
		return "signer_unavailable"
	case errors.Is(err, ErrNetworkTimeout):
		return "network_timeout"
	case errors.Is(err, ErrValueMismatch):
		return "value_mismatch"
	case errors.Is(err, ErrTransferRejected):
		return "transfer_rejected"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "aborted"
	default:
		return "error"
	}
}

// classifySubmitErr folds lower-layer failures into the taxonomy. Receipt
// timeouts and context deadlines are ambiguous; everything else on the
// submission path means the chain did not take the transfer.
func classifySubmitErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chain.ErrReceiptTimeout), errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrNetworkTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return errors.Join(ErrTransferRejected, err)
	}
}

// classifyLedgerErr maps registry precondition failures onto the shared
// taxonomy so simulated mode reports the same kinds as a live contract.
func classifyLedgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInvalidAmount):
		return errors.Join(ErrInvalidAmount, err)
	case errors.Is(err, ledger.ErrZeroAddress), errors.Is(err, ledger.ErrEmptyContent):
		return errors.Join(ErrInvalidRecipient, err)
	case errors.Is(err, ledger.ErrSelfPayment):
		return errors.Join(ErrSelfPayment, err)
	case errors.Is(err, ledger.ErrValueMismatch):
		return errors.Join(ErrValueMismatch, err)
	default:
		return errors.Join(ErrTransferRejected, err)
	}
}
