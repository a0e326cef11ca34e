package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// CROToWei converts a CRO amount expressed as a float (the unit used at the
// API boundary) into wei. Conversion happens once at the edge; everything
// past it works on integers.
func CROToWei(cro float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(cro), big.NewFloat(params.Ether)).Int(nil)
	return wei
}

// WeiToCRO renders wei as a CRO float for display.
func WeiToCRO(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether)).Float64()
	return out
}

// WeiToGwei renders a gas price in gwei for display.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.GWei)).Float64()
	return out
}
