package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"cognishare/agent/internal/keys"
)

// Signer owns the outgoing account for one process. All transaction
// submission within a payment batch goes through the same signer
// sequentially, so the account nonce stays strictly increasing.
type Signer struct {
	priv    *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

func NewSigner(key keys.StoredKey, chainID int64) (*Signer, error) {
	privHex := strings.TrimPrefix(strings.TrimSpace(key.PrivKeyHex), "0x")
	if privHex == "" {
		return nil, fmt.Errorf("signer key missing private material")
	}
	priv, err := crypto.HexToECDSA(privHex)
	if err != nil {
		return nil, fmt.Errorf("load signer key: %w", err)
	}
	return &Signer{
		priv:    priv,
		address: crypto.PubkeyToAddress(priv.PublicKey),
		chainID: big.NewInt(chainID),
	}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// SignTx signs with the EIP-155 replay-protected signer for the configured
// chain.
func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.priv)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	return signed, nil
}
