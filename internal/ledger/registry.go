package ledger

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Transferer moves funds out of the registry to a recipient wallet. The
// production deployment performs a native value transfer; tests and simulated
// mode plug in in-memory implementations.
type Transferer interface {
	Transfer(to common.Address, amount *big.Int) error
}

// TransfererFunc adapts a function to the Transferer interface.
type TransfererFunc func(to common.Address, amount *big.Int) error

func (f TransfererFunc) Transfer(to common.Address, amount *big.Int) error {
	return f(to, amount)
}

// NopTransferer accepts every transfer without moving funds. Simulated mode
// runs the registry on top of it.
func NopTransferer() Transferer {
	return TransfererFunc(func(common.Address, *big.Int) error { return nil })
}

// Registry implements the CogniShareRegistry contract semantics natively.
// It is the canonical reference for the deployed contract's behaviour, the
// backing store for simulated mode, and the fixture the payment tests run
// against.
//
// Ordering note: the deployed contract performs the external transfer before
// updating its counters. Here counters are staged first and committed only on
// transfer success (checks-effects-interactions); the externally observable
// behaviour is identical because state mutates under one lock and a failed
// transfer leaves no trace for the single-citation path.
type Registry struct {
	mu       sync.Mutex
	transfer Transferer
	now      func() time.Time

	// balance tracks value handed to the registry that has not been paid
	// out; failed batch legs accumulate here.
	balance   *big.Int
	global    GlobalStats
	authors   map[common.Address]*AuthorStats
	citations []CitationRecord
	failures  []FailedPayment
}

func NewRegistry(t Transferer) *Registry {
	if t == nil {
		t = NopTransferer()
	}
	return &Registry{
		transfer: t,
		now:      time.Now,
		balance:  big.NewInt(0),
		global:   GlobalStats{Paid: big.NewInt(0)},
		authors:  map[common.Address]*AuthorStats{},
	}
}

func validateItem(payer common.Address, item CitationItem) error {
	if item.Amount == nil || item.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if item.Author == (common.Address{}) {
		return ErrZeroAddress
	}
	if item.Author == payer {
		return ErrSelfPayment
	}
	if item.ContentHash == "" {
		return ErrEmptyContent
	}
	return nil
}

// PayCitation pays a single author atomically: either the transfer succeeds
// and the counters plus a CitationRecord are committed, or the call fails
// with no state change at all.
func (r *Registry) PayCitation(payer, author common.Address, contentHash string, amount *big.Int) (CitationRecord, error) {
	item := CitationItem{Author: author, ContentHash: contentHash, Amount: amount}
	if err := validateItem(payer, item); err != nil {
		return CitationRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.transfer.Transfer(author, amount); err != nil {
		return CitationRecord{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	record := r.commit(payer, item)
	return record, nil
}

// BatchPayCitations pays every item independently. Item-shape violations and
// a value sum mismatch reject the whole batch before any transfer; after
// that, a failed transfer for one item records a FailedPayment and the loop
// continues, so the maximum number of authors gets paid per call. Funds for
// failed items stay in the registry balance.
func (r *Registry) BatchPayCitations(payer common.Address, items []CitationItem, value *big.Int) (BatchReceipt, error) {
	if len(items) == 0 {
		return BatchReceipt{}, ErrEmptyBatch
	}
	sum := big.NewInt(0)
	for _, item := range items {
		if err := validateItem(payer, item); err != nil {
			return BatchReceipt{}, err
		}
		sum.Add(sum, item.Amount)
	}
	if value == nil || sum.Cmp(value) != 0 {
		return BatchReceipt{}, ErrValueMismatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.balance.Add(r.balance, value)

	var receipt BatchReceipt
	for _, item := range items {
		if err := r.transfer.Transfer(item.Author, item.Amount); err != nil {
			failure := FailedPayment{Author: item.Author, Amount: new(big.Int).Set(item.Amount)}
			r.failures = append(r.failures, failure)
			receipt.Failures = append(receipt.Failures, failure)
			continue
		}
		r.balance.Sub(r.balance, item.Amount)
		receipt.Citations = append(receipt.Citations, r.commit(payer, item))
	}
	return receipt, nil
}

// commit applies the counter updates and appends the citation record. Caller
// holds the lock and has already moved the funds.
func (r *Registry) commit(payer common.Address, item CitationItem) CitationRecord {
	stats, ok := r.authors[item.Author]
	if !ok {
		stats = &AuthorStats{Earnings: big.NewInt(0)}
		r.authors[item.Author] = stats
	}
	stats.Earnings.Add(stats.Earnings, item.Amount)
	stats.Citations++
	r.global.Citations++
	r.global.Paid.Add(r.global.Paid, item.Amount)

	record := CitationRecord{
		Payer:       payer,
		Author:      item.Author,
		ContentHash: item.ContentHash,
		Amount:      new(big.Int).Set(item.Amount),
		Timestamp:   r.now().UTC(),
	}
	r.citations = append(r.citations, record)
	return record
}

// GetAuthorStats returns the accumulated stats for an author wallet. Unknown
// authors report zero values.
func (r *Registry) GetAuthorStats(author common.Address) AuthorStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.authors[author]
	if !ok {
		return AuthorStats{Earnings: big.NewInt(0)}
	}
	return stats.Clone()
}

// GetGlobalStats returns the contract-wide counters.
func (r *Registry) GetGlobalStats() GlobalStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.global.Clone()
}

// Balance reports value held by the registry that was never paid out
// (accumulated failed batch legs).
func (r *Registry) Balance() *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return new(big.Int).Set(r.balance)
}

// Citations returns a copy of the emitted citation records, oldest first.
func (r *Registry) Citations() []CitationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CitationRecord, len(r.citations))
	copy(out, r.citations)
	return out
}

// Failures returns a copy of the recorded failed payments, oldest first.
func (r *Registry) Failures() []FailedPayment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FailedPayment, len(r.failures))
	copy(out, r.failures)
	return out
}

// SetClock overrides the timestamp source. Tests only.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if now != nil {
		r.now = now
	}
}
