package blockchain

import (
	"math"
	"math/big"
)

// progressCeiling keeps the estimate below 100 until a nonce is actually found
const progressCeiling = 95.0

// ExpectedAttempts is the mean number of hashes needed to find difficulty
// leading zero hex characters: 16^difficulty.
func ExpectedAttempts(difficulty int) *big.Int {
	if difficulty <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Exp(big.NewInt(16), big.NewInt(int64(difficulty)), nil)
}

// EstimateProgress converts the current nonce into a percentage for display.
// Half the expected attempts counts as 100%, capped at progressCeiling.
func EstimateProgress(nonce uint64, difficulty int) float64 {
	expected, _ := new(big.Float).SetInt(ExpectedAttempts(difficulty)).Float64()
	half := expected * 0.5
	if half <= 0 {
		return progressCeiling
	}
	pct := float64(nonce) / half * 100
	return math.Min(pct, progressCeiling)
}
