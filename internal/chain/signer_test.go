package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"cognishare/agent/internal/keys"
)

func TestSignerRoundTrip(t *testing.T) {
	key, err := keys.Generate("test")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := NewSigner(key, 338)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if signer.Address().Hex() != key.Address {
		t.Fatalf("address = %s, want %s", signer.Address().Hex(), key.Address)
	}
	if signer.ChainID().Int64() != 338 {
		t.Fatalf("chain id = %d, want 338", signer.ChainID().Int64())
	}

	to := common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    1,
		To:       &to,
		Value:    big.NewInt(1),
		Gas:      21_000,
		GasPrice: big.NewInt(5_000_000_000),
	})
	signed, err := signer.SignTx(tx)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(338)), signed)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if from != signer.Address() {
		t.Fatalf("recovered sender %s, want %s", from, signer.Address())
	}
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	if _, err := NewSigner(keys.StoredKey{PrivKeyHex: "zz"}, 338); err == nil {
		t.Fatal("bad key accepted")
	}
	if _, err := NewSigner(keys.StoredKey{}, 338); err == nil {
		t.Fatal("empty key accepted")
	}
}
