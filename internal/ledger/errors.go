package ledger

import "errors"

var (
	ErrInvalidAmount  = errors.New("ledger: amount must be positive")
	ErrZeroAddress    = errors.New("ledger: zero address recipient")
	ErrSelfPayment    = errors.New("ledger: payer cannot cite itself")
	ErrEmptyContent   = errors.New("ledger: empty content hash")
	ErrValueMismatch  = errors.New("ledger: supplied value does not match amount sum")
	ErrEmptyBatch     = errors.New("ledger: empty batch")
	ErrTransferFailed = errors.New("ledger: transfer failed")
)
