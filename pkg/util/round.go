package util

import "math"

// Round2 rounds to 2 decimals (money amounts and profit).
func Round2(v float64) float64 { return roundTo(v, 100) }

// Round4 rounds to 4 decimals (prices).
func Round4(v float64) float64 { return roundTo(v, 10000) }

// Round6 rounds to 6 decimals (asset units).
func Round6(v float64) float64 { return roundTo(v, 1000000) }

func roundTo(v, scale float64) float64 {
	if !IsFinite(v) {
		return v
	}
	return math.Round(v*scale) / scale
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
