package models

import "math"

// HorizonMetrics are walk-forward accuracy metrics for one horizon model,
// computed over the trailing window of realized targets. Fields may be NaN
// when the window is degenerate; convert with Finite before serializing.
type HorizonMetrics struct {
	MAE  float64
	MSE  float64
	RMSE float64
	R2   float64
}

// UndefinedMetrics is the all-NaN value reported when a model was reused
// without revalidation or no realized targets exist yet.
func UndefinedMetrics() HorizonMetrics {
	nan := math.NaN()
	return HorizonMetrics{MAE: nan, MSE: nan, RMSE: nan, R2: nan}
}
