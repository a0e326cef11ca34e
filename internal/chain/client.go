package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrReceiptTimeout marks the ambiguous outcome of a broadcast transaction
// whose receipt did not appear within the bounded wait. The transfer may
// still land; callers must not treat this as either success or failure.
var ErrReceiptTimeout = errors.New("chain: timed out waiting for receipt")

// RPC is the subset of the Ethereum JSON-RPC surface the payment core uses.
// ethclient.Client satisfies it; tests plug in fakes.
type RPC interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client wraps an EVM RPC endpoint with the calls the orchestrator and
// analytics need.
type Client struct {
	rpc      RPC
	pollTick time.Duration
}

// Dial connects to an EVM RPC endpoint.
func Dial(endpoint string) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("chain rpc endpoint required")
	}
	rpc, err := ethclient.Dial(trimmed)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", trimmed, err)
	}
	return NewClient(rpc), nil
}

func NewClient(rpc RPC) *Client {
	return &Client{rpc: rpc, pollTick: 2 * time.Second}
}

// Reachable reports whether the endpoint answers a basic query.
func (c *Client) Reachable(ctx context.Context) bool {
	_, err := c.rpc.ChainID(ctx)
	return err == nil
}

// PendingNonce returns the next usable nonce including queued transactions,
// so consecutive batch legs never collide.
func (c *Client) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	return c.rpc.PendingNonceAt(ctx, account)
}

func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.rpc.SuggestGasPrice(ctx)
}

func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.rpc.BalanceAt(ctx, account, nil)
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	header, err := c.rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	if header == nil || header.Number == nil {
		return 0, fmt.Errorf("chain: head header unavailable")
	}
	return header.Number.Uint64(), nil
}

func (c *Client) Send(ctx context.Context, tx *types.Transaction) error {
	return c.rpc.SendTransaction(ctx, tx)
}

// Call performs a read-only contract call against the latest block.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.rpc.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// WaitMined polls for the receipt of a broadcast transaction until the
// timeout elapses. A missing receipt at the deadline yields
// ErrReceiptTimeout; context cancellation propagates as-is.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	deadline := time.Now().Add(timeout)
	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrReceiptTimeout, txHash.Hex())
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollTick):
		}
	}
}

// SetPollInterval overrides the receipt poll cadence. Tests only.
func (c *Client) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollTick = d
	}
}

// ExplorerTxURL renders a block-explorer link for a transaction hash.
func ExplorerTxURL(base, txHash string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" || txHash == "" {
		return ""
	}
	return base + "/tx/" + txHash
}
