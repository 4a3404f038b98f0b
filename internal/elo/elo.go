package elo

import "math"

// DefaultK is the K-factor used for all ladder matches.
const DefaultK = 32

// ComputeUpdate applies the standard ELO formula to two ratings and returns
// the new ratings plus the delta applied to player A. The delta for player B
// is newB - ratingB; for equal ratings the two deltas mirror each other.
func ComputeUpdate(ratingA, ratingB int, aWon bool, k int) (newA, newB, deltaA int) {
	expectedA := 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
	expectedB := 1.0 - expectedA

	actualA := 0.0
	actualB := 1.0
	if aWon {
		actualA = 1.0
		actualB = 0.0
	}

	newA = ratingA + int(math.Round(float64(k)*(actualA-expectedA)))
	newB = ratingB + int(math.Round(float64(k)*(actualB-expectedB)))
	return newA, newB, newA - ratingA
}
