package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Descriptor is the persisted deployment record written by the contract
// deployment tooling (contract_data.json). Its presence and parseability is
// the only signal used to decide whether ledger mode is available.
type Descriptor struct {
	Address string          `json:"address"`
	ABI     json.RawMessage `json:"abi"`
	TxHash  string          `json:"tx_hash"`
	ChainID int64           `json:"chain_id,omitempty"`
	Network string          `json:"network,omitempty"`
}

// LoadDescriptor reads and validates a deployment descriptor. A missing file
// is not an error condition worth wrapping loudly; callers treat any failure
// as "no ledger deployed".
func LoadDescriptor(path string) (Descriptor, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, err
	}
	var desc Descriptor
	if err := json.Unmarshal(bz, &desc); err != nil {
		return Descriptor{}, fmt.Errorf("parse contract descriptor: %w", err)
	}
	if !common.IsHexAddress(strings.TrimSpace(desc.Address)) {
		return Descriptor{}, fmt.Errorf("contract descriptor: invalid address %q", desc.Address)
	}
	return desc, nil
}

func (d Descriptor) ContractAddress() common.Address {
	return common.HexToAddress(strings.TrimSpace(d.Address))
}
