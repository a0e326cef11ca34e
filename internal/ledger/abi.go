package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// RegistryABI is the stable external surface of the deployed
// CogniShareRegistry contract. It must stay bit-exact so the orchestrator
// remains compatible with every existing deployment.
const RegistryABI = `[
  {"type":"function","name":"payCitation","stateMutability":"payable","inputs":[{"name":"author","type":"address"},{"name":"contentHash","type":"string"}],"outputs":[]},
  {"type":"function","name":"batchPayCitations","stateMutability":"payable","inputs":[{"name":"authors","type":"address[]"},{"name":"contentHashes","type":"string[]"},{"name":"amounts","type":"uint256[]"}],"outputs":[]},
  {"type":"function","name":"getAuthorStats","stateMutability":"view","inputs":[{"name":"author","type":"address"}],"outputs":[{"name":"earnings","type":"uint256"},{"name":"citations","type":"uint256"}]},
  {"type":"function","name":"getGlobalStats","stateMutability":"view","inputs":[],"outputs":[{"name":"citations","type":"uint256"},{"name":"paid","type":"uint256"}]},
  {"type":"event","name":"Citation","anonymous":false,"inputs":[{"name":"payer","type":"address","indexed":false},{"name":"author","type":"address","indexed":false},{"name":"contentHash","type":"string","indexed":false},{"name":"amount","type":"uint256","indexed":false},{"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"PaymentFailed","anonymous":false,"inputs":[{"name":"author","type":"address","indexed":false},{"name":"amount","type":"uint256","indexed":false}]}
]`

var registryABI = mustParseABI(RegistryABI)

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("ledger: parse registry abi: %v", err))
	}
	return parsed
}

// CitationTopic and PaymentFailedTopic are the keccak topic hashes used to
// pick registry events out of transaction receipts.
var (
	CitationTopic      = registryABI.Events["Citation"].ID
	PaymentFailedTopic = registryABI.Events["PaymentFailed"].ID
)

func PackPayCitation(author common.Address, contentHash string) ([]byte, error) {
	return registryABI.Pack("payCitation", author, contentHash)
}

// PackBatchPayCitations flattens the item records back into the contract's
// three parallel arrays for the wire call.
func PackBatchPayCitations(items []CitationItem) ([]byte, error) {
	authors := make([]common.Address, 0, len(items))
	hashes := make([]string, 0, len(items))
	amounts := make([]*big.Int, 0, len(items))
	for _, item := range items {
		authors = append(authors, item.Author)
		hashes = append(hashes, item.ContentHash)
		amounts = append(amounts, item.Amount)
	}
	return registryABI.Pack("batchPayCitations", authors, hashes, amounts)
}

func PackGetAuthorStats(author common.Address) ([]byte, error) {
	return registryABI.Pack("getAuthorStats", author)
}

func PackGetGlobalStats() ([]byte, error) {
	return registryABI.Pack("getGlobalStats")
}

func UnpackAuthorStats(data []byte) (AuthorStats, error) {
	values, err := registryABI.Unpack("getAuthorStats", data)
	if err != nil {
		return AuthorStats{}, fmt.Errorf("ledger: unpack author stats: %w", err)
	}
	if len(values) != 2 {
		return AuthorStats{}, fmt.Errorf("ledger: author stats arity %d", len(values))
	}
	earnings, ok1 := values[0].(*big.Int)
	citations, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 {
		return AuthorStats{}, fmt.Errorf("ledger: author stats types")
	}
	return AuthorStats{Earnings: earnings, Citations: citations.Uint64()}, nil
}

func UnpackGlobalStats(data []byte) (GlobalStats, error) {
	values, err := registryABI.Unpack("getGlobalStats", data)
	if err != nil {
		return GlobalStats{}, fmt.Errorf("ledger: unpack global stats: %w", err)
	}
	if len(values) != 2 {
		return GlobalStats{}, fmt.Errorf("ledger: global stats arity %d", len(values))
	}
	citations, ok1 := values[0].(*big.Int)
	paid, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 {
		return GlobalStats{}, fmt.Errorf("ledger: global stats types")
	}
	return GlobalStats{Citations: citations.Uint64(), Paid: paid}, nil
}

// DecodeFailedPayments extracts PaymentFailed events from a receipt's logs.
// Events of other contracts or other shapes are skipped.
func DecodeFailedPayments(logs []*types.Log, contract common.Address) ([]FailedPayment, error) {
	var failures []FailedPayment
	for _, entry := range logs {
		if entry == nil || entry.Address != contract {
			continue
		}
		if len(entry.Topics) == 0 || entry.Topics[0] != PaymentFailedTopic {
			continue
		}
		values, err := registryABI.Unpack("PaymentFailed", entry.Data)
		if err != nil {
			return nil, fmt.Errorf("ledger: decode PaymentFailed: %w", err)
		}
		if len(values) != 2 {
			continue
		}
		author, ok1 := values[0].(common.Address)
		amount, ok2 := values[1].(*big.Int)
		if !ok1 || !ok2 {
			continue
		}
		failures = append(failures, FailedPayment{Author: author, Amount: amount})
	}
	return failures, nil
}
