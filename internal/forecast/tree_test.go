package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsembleLearnsStepFunction(t *testing.T) {
	n := 200
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := -1 + 2*float64(i)/float64(n-1)
		X[i] = []float64{x}
		if x > 0 {
			y[i] = 1
		}
	}

	e := TrainEnsemble(X, y, DefaultTrainParams())
	assert.InDelta(t, 0, e.Predict([]float64{-0.5}), 0.1)
	assert.InDelta(t, 1, e.Predict([]float64{0.5}), 0.1)
}

func TestEnsembleConstantTarget(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{7, 7, 7, 7}

	e := TrainEnsemble(X, y, DefaultTrainParams())
	assert.Equal(t, 7.0, e.Base)
	assert.Empty(t, e.Trees, "zero residual stops boosting immediately")
	assert.Equal(t, 7.0, e.Predict([]float64{99}))
}

func TestEnsembleEmptyInput(t *testing.T) {
	e := TrainEnsemble(nil, nil, DefaultTrainParams())
	require.NotNil(t, e)
	assert.Equal(t, 0.0, e.Predict([]float64{1}))
}

func TestSplitCandidatesDeduplicated(t *testing.T) {
	X := [][]float64{{1}, {1}, {1}, {2}, {2}, {3}}
	edges := splitCandidates(X, 32)
	require.Len(t, edges, 1)
	for i := 1; i < len(edges[0]); i++ {
		assert.Greater(t, edges[0][i], edges[0][i-1])
	}
}
