package ledger

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CitationRecord is the immutable record emitted for every successful
// citation payment. All monetary values are wei-style integers.
type CitationRecord struct {
	Payer       common.Address
	Author      common.Address
	ContentHash string
	Amount      *big.Int
	Timestamp   time.Time
}

// AuthorStats accumulates lifetime earnings per author wallet. Counters only
// ever increase; a stats entry is never deleted.
type AuthorStats struct {
	Earnings  *big.Int
	Citations uint64
}

// Clone returns a deep copy so callers cannot alias registry-owned state.
func (s AuthorStats) Clone() AuthorStats {
	clone := AuthorStats{Citations: s.Citations, Earnings: big.NewInt(0)}
	if s.Earnings != nil {
		clone.Earnings = new(big.Int).Set(s.Earnings)
	}
	return clone
}

// GlobalStats mirrors the contract-wide counters. Invariant:
// Paid == sum of all AuthorStats.Earnings and Citations == sum of all
// AuthorStats.Citations after every call.
type GlobalStats struct {
	Citations uint64
	Paid      *big.Int
}

func (s GlobalStats) Clone() GlobalStats {
	clone := GlobalStats{Citations: s.Citations, Paid: big.NewInt(0)}
	if s.Paid != nil {
		clone.Paid = new(big.Int).Set(s.Paid)
	}
	return clone
}

// FailedPayment records a batch leg whose transfer did not complete. The
// funds for the leg remain in the contract balance with no recorded
// recipient; there is deliberately no withdrawal path for them.
type FailedPayment struct {
	Author common.Address
	Amount *big.Int
}

// CitationItem is one leg of a batch payment. The wire ABI keeps the original
// three parallel arrays; internally a single record sequence removes the
// length-mismatch error class.
type CitationItem struct {
	Author      common.Address
	ContentHash string
	Amount      *big.Int
}

// BatchReceipt summarises one BatchPayCitations call.
type BatchReceipt struct {
	Citations []CitationRecord
	Failures  []FailedPayment
}
