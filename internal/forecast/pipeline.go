package forecast

import (
	"fmt"
	"math"
	"sort"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/util"
)

// Pipeline is the fitted regression model: per-column median imputation,
// standardization, and a boosted tree ensemble. The ensemble regresses the
// horizon delta over the row close rather than the absolute target, and
// Predict adds the close back, so trending prices project past the training
// range instead of saturating at the highest seen close.
type Pipeline struct {
	Medians  []float64 `json:"medians"`
	Means    []float64 `json:"means"`
	Stds     []float64 `json:"stds"`
	CloseCol int       `json:"close_col"`
	Model    *Ensemble `json:"model"`
}

// FitPipeline fits imputation and scaling statistics on X, then trains the
// ensemble on the standardized rows against the delta target y[i] minus the
// row close.
func FitPipeline(X [][]float64, y []float64, closeCol int, params TrainParams) (*Pipeline, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d targets", models.ErrTrainingFailure, len(X), len(y))
	}

	p := &Pipeline{
		Medians:  columnMedians(X),
		CloseCol: closeCol,
	}
	p.Means, p.Stds = columnMoments(X, p.Medians)

	scaled := make([][]float64, len(X))
	delta := make([]float64, len(y))
	for i, row := range X {
		scaled[i] = p.transform(row)
		delta[i] = y[i] - row[closeCol]
		if !util.IsFinite(delta[i]) {
			return nil, fmt.Errorf("%w: non-finite target at row %d", models.ErrTrainingFailure, i)
		}
	}

	p.Model = TrainEnsemble(scaled, delta, params)
	return p, nil
}

// Predict returns the forecast close for one raw feature row.
func (p *Pipeline) Predict(row []float64) float64 {
	base := row[p.CloseCol]
	if !util.IsFinite(base) {
		base = p.Medians[p.CloseCol]
	}
	return base + p.Model.Predict(p.transform(row))
}

// PredictBatch applies Predict across rows.
func (p *Pipeline) PredictBatch(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = p.Predict(row)
	}
	return out
}

// transform imputes non-finite cells with the column median and
// standardizes by the fitted mean and deviation.
func (p *Pipeline) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if !util.IsFinite(v) {
			v = p.Medians[j]
		}
		out[j] = (v - p.Means[j]) / p.Stds[j]
	}
	return out
}

func columnMedians(X [][]float64) []float64 {
	cols := len(X[0])
	medians := make([]float64, cols)
	vals := make([]float64, 0, len(X))
	for j := 0; j < cols; j++ {
		vals = vals[:0]
		for _, row := range X {
			if util.IsFinite(row[j]) {
				vals = append(vals, row[j])
			}
		}
		if len(vals) == 0 {
			medians[j] = 0
			continue
		}
		sort.Float64s(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 1 {
			medians[j] = vals[mid]
		} else {
			medians[j] = (vals[mid-1] + vals[mid]) / 2
		}
	}
	return medians
}

// columnMoments computes per-column mean and standard deviation after
// median imputation. Constant columns get a unit deviation so
// standardization never divides by zero.
func columnMoments(X [][]float64, medians []float64) (means, stds []float64) {
	cols := len(X[0])
	n := float64(len(X))
	means = make([]float64, cols)
	stds = make([]float64, cols)

	for j := 0; j < cols; j++ {
		sum := 0.0
		for _, row := range X {
			v := row[j]
			if !util.IsFinite(v) {
				v = medians[j]
			}
			sum += v
		}
		means[j] = sum / n

		varSum := 0.0
		for _, row := range X {
			v := row[j]
			if !util.IsFinite(v) {
				v = medians[j]
			}
			d := v - means[j]
			varSum += d * d
		}
		stds[j] = math.Sqrt(varSum / n)
		if stds[j] == 0 || !util.IsFinite(stds[j]) {
			stds[j] = 1
		}
	}
	return means, stds
}
