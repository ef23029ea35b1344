package univ2

import "math/big"

// V2 fee constants: 0.3% = 997/1000.
var (
	feeMul = big.NewInt(997)
	feeDen = big.NewInt(1000)
)

// GetAmountOut computes the off-chain V2 swap result:
// amountOut = (amountIn*997 * reserveOut) / (reserveIn*1000 + amountIn*997)
// Returns ok=false on empty reserves or a zero denominator.
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, bool) {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return big.NewInt(0), false
	}

	ainFee := new(big.Int).Mul(amountIn, feeMul)
	num := new(big.Int).Mul(ainFee, reserveOut)
	den := new(big.Int).Mul(reserveIn, feeDen)
	den.Add(den, ainFee)
	if den.Sign() == 0 {
		return big.NewInt(0), false
	}
	return new(big.Int).Quo(num, den), true
}

// PriceImpactPercent reports how far the executed rate falls below the spot
// rate, in percent. The spot output is amountIn*reserveOut/reserveIn, so the
// pool fee is included in the reported impact.
func PriceImpactPercent(amountIn, amountOut, reserveIn, reserveOut *big.Int) *big.Float {
	if reserveIn.Sign() <= 0 || amountIn.Sign() <= 0 {
		return big.NewFloat(0)
	}
	spot := new(big.Int).Mul(amountIn, reserveOut)
	spot.Quo(spot, reserveIn)
	if spot.Sign() <= 0 {
		return big.NewFloat(0)
	}

	spotF := new(big.Float).SetInt(spot)
	outF := new(big.Float).SetInt(amountOut)
	ratio := new(big.Float).Quo(outF, spotF)
	impact := new(big.Float).Sub(big.NewFloat(1), ratio)
	return impact.Mul(impact, big.NewFloat(100))
}
