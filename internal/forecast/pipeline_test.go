package forecast

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Three columns, close in the middle, constant horizon delta of 5.
func deltaFixture(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		c := 100.0 + float64(i)
		X[i] = []float64{float64(i % 3), c, -c}
		y[i] = c + 5
	}
	return X, y
}

func TestPipelineExtrapolatesBeyondTrainingRange(t *testing.T) {
	X, y := deltaFixture(100)
	pipe, err := FitPipeline(X, y, 1, DefaultTrainParams())
	require.NoError(t, err)

	// close 500 is far above every training close; the delta model still
	// projects close+5 instead of clamping to the training maximum.
	got := pipe.Predict([]float64{0, 500, -500})
	assert.InDelta(t, 505, got, 1)
}

func TestPipelineImputesNonFiniteCells(t *testing.T) {
	X, y := deltaFixture(100)
	pipe, err := FitPipeline(X, y, 1, DefaultTrainParams())
	require.NoError(t, err)

	got := pipe.Predict([]float64{math.NaN(), 150, math.Inf(1)})
	assert.True(t, !math.IsNaN(got) && !math.IsInf(got, 0))
	assert.InDelta(t, 155, got, 2)
}

func TestPipelineRoundTripsThroughJSON(t *testing.T) {
	X, y := deltaFixture(100)
	pipe, err := FitPipeline(X, y, 1, DefaultTrainParams())
	require.NoError(t, err)

	data, err := json.Marshal(pipe)
	require.NoError(t, err)

	var restored Pipeline
	require.NoError(t, json.Unmarshal(data, &restored))

	row := []float64{1, 130, -130}
	assert.Equal(t, pipe.Predict(row), restored.Predict(row))
}

func TestFitPipelineRejectsEmptyInput(t *testing.T) {
	_, err := FitPipeline(nil, nil, 0, DefaultTrainParams())
	assert.Error(t, err)
}

func TestColumnMomentsGuardsConstantColumns(t *testing.T) {
	X := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	medians := columnMedians(X)
	_, stds := columnMoments(X, medians)
	assert.Equal(t, 1.0, stds[0], "constant column keeps unit deviation")
	assert.Greater(t, stds[1], 0.0)
}
