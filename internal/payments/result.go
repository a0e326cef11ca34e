package payments

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Mode is the execution strategy chosen once per payment batch.
type Mode string

const (
	ModeLedger    Mode = "ledger"
	ModeDirect    Mode = "direct"
	ModeSimulated Mode = "simulated"
)

// Kind distinguishes citation payouts from pay-per-call service fees; the
// two flows share machinery but feed separate analytics buckets.
type Kind string

const (
	KindCitation Kind = "citation"
	KindService  Kind = "service"
)

// Citation is one retrieval hit owed a payment. The same wallet may appear
// multiple times in a query; every occurrence is paid.
type Citation struct {
	Wallet  string
	Content string
	Amount  *big.Int
}

// ServiceFee is a pay-per-call charge to a fixed provider wallet. Duplicate
// requests for the same wallet within one call collapse to a single charge.
type ServiceFee struct {
	ServiceName string
	Wallet      string
	Amount      *big.Int
}

// PaymentResult reports the outcome for one recipient leg. Uncertain legs
// were broadcast but not confirmed within the bounded wait: the transfer may
// still land, so they are neither success nor failure.
type PaymentResult struct {
	Wallet    string
	Amount    *big.Int
	OK        bool
	Uncertain bool
	TxHash    string
	Err       error
}

// Summary is the per-query aggregation handed to the caller and the
// analytics session.
type Summary struct {
	QueryID      string
	Kind         Kind
	ServiceName  string
	Mode         Mode
	TotalPaid    *big.Int
	Results      []PaymentResult
	AnyFailures  bool
	AnyUncertain bool
	Timestamp    time.Time
}

// Succeeded reports whether every leg either confirmed or, for simulated
// mode, was accepted.
func (s Summary) Succeeded() bool {
	return !s.AnyFailures && !s.AnyUncertain
}

// PaidCount returns the number of confirmed legs.
func (s Summary) PaidCount() int {
	n := 0
	for _, r := range s.Results {
		if r.OK {
			n++
		}
	}
	return n
}

// HashContent derives the content hash recorded with a citation. Matches the
// original protocol encoding: 0x-prefixed truncated sha256 of the cited text.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "0x" + hex.EncodeToString(sum[:])[:32]
}

// syntheticTxHash produces a deterministic-looking pseudo hash for simulated
// payments, mirroring the shape of a real transaction hash.
func syntheticTxHash(wallet common.Address, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%d", wallet.Hex(), at.UnixNano())))
	return "0x" + hex.EncodeToString(sum[:])
}
