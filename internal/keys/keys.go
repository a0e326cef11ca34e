package keys

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

type StoredKey struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	PubKeyHex  string `json:"pubkey_hex"`
	PrivKeyHex string `json:"privkey_hex"`
	CreatedAt  string `json:"created_at"`
}

func EnsureKey(path, name string) (StoredKey, bool, error) {
	if key, err := Load(path); err == nil {
		return key, false, nil
	}
	key, err := Generate(name)
	if err != nil {
		return StoredKey{}, false, err
	}
	if err := Save(path, key); err != nil {
		return StoredKey{}, false, err
	}
	return key, true, nil
}

func Generate(name string) (StoredKey, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return StoredKey{}, err
	}
	addr := crypto.PubkeyToAddress(priv.PublicKey)

	return StoredKey{
		Name:       name,
		Address:    addr.Hex(),
		PubKeyHex:  hex.EncodeToString(crypto.FromECDSAPub(&priv.PublicKey)),
		PrivKeyHex: hex.EncodeToString(crypto.FromECDSA(priv)),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// FromPrivateKeyHex builds a StoredKey from a raw hex private key, as handed
// over via the SIGNER_KEY environment override.
func FromPrivateKeyHex(name, privHex string) (StoredKey, error) {
	privHex = strings.TrimPrefix(strings.TrimSpace(privHex), "0x")
	priv, err := crypto.HexToECDSA(privHex)
	if err != nil {
		return StoredKey{}, fmt.Errorf("invalid private key: %w", err)
	}
	return StoredKey{
		Name:       name,
		Address:    crypto.PubkeyToAddress(priv.PublicKey).Hex(),
		PubKeyHex:  hex.EncodeToString(crypto.FromECDSAPub(&priv.PublicKey)),
		PrivKeyHex: privHex,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func Save(path string, key StoredKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	bz, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bz, 0o600)
}

func Load(path string) (StoredKey, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return StoredKey{}, err
	}
	var key StoredKey
	if err := json.Unmarshal(bz, &key); err != nil {
		return StoredKey{}, err
	}
	if key.Address == "" {
		return StoredKey{}, fmt.Errorf("invalid key file: missing address")
	}
	return key, nil
}

func DefaultSignerKeyPath(base string) string {
	return filepath.Join(base, "signer.json")
}
