package trend

import (
	"errors"
	"math"
	"testing"

	"TrendCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitPerfectLine(t *testing.T) {
	m, err := Fit(IndexPoints([]float64{10, 20}), nil)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, m.Slope, 1e-12)
	assert.InDelta(t, 10.0, m.Intercept, 1e-12)
	assert.InDelta(t, 1.0, m.FitScore, 1e-12)
	assert.InDelta(t, 30.0, m.Predict(2), 1e-12)
}

func TestFitNoisySeries(t *testing.T) {
	points := []Point{{0, 1}, {1, 3}, {2, 2}, {3, 5}, {4, 4}}
	m, err := Fit(points, nil)
	require.NoError(t, err)
	// sxy = 8, sxx = 10, mean y = 3
	assert.InDelta(t, 0.8, m.Slope, 1e-12)
	assert.InDelta(t, 1.4, m.Intercept, 1e-12)
	// ssTot = 10, ssRes = 10 - 0.8*8 = 3.6
	assert.InDelta(t, 0.64, m.FitScore, 1e-12)
}

func TestFitConstantValues(t *testing.T) {
	m, err := Fit(IndexPoints([]float64{5, 5, 5, 5}), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Slope)
	assert.Equal(t, 5.0, m.Intercept)
	assert.Equal(t, 1.0, m.FitScore)
}

func TestFitIdenticalX(t *testing.T) {
	points := []Point{{3, 1}, {3, 2}, {3, 6}}
	m, err := Fit(points, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Slope)
	assert.InDelta(t, 3.0, m.Intercept, 1e-12)
	assert.False(t, math.IsNaN(m.FitScore))
}

func TestFitDuplicateX(t *testing.T) {
	points := []Point{{0, 1}, {0, 3}, {2, 5}, {2, 7}}
	m, err := Fit(points, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.Slope, 1e-12)
	assert.InDelta(t, 2.0, m.Intercept, 1e-12)
}

func TestFitFlatTrendScoresZero(t *testing.T) {
	m, err := Fit([]Point{{0, 0}, {1, 10}, {2, 0}}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, m.Slope, 1e-12)
	assert.InDelta(t, 0.0, m.FitScore, 1e-12)
}

func TestFitInsufficientData(t *testing.T) {
	tests := []struct {
		name    string
		points  []Point
		weights []float64
	}{
		{name: "empty", points: nil},
		{name: "single point", points: []Point{{0, 1}}},
		{name: "misaligned weights", points: []Point{{0, 1}, {1, 2}}, weights: []float64{1}},
		{name: "zero weights", points: []Point{{0, 1}, {1, 2}}, weights: []float64{0, 0}},
		{name: "negative weight", points: []Point{{0, 1}, {1, 2}}, weights: []float64{1, -1}},
		{name: "nan weight", points: []Point{{0, 1}, {1, 2}}, weights: []float64{1, math.NaN()}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Fit(tc.points, tc.weights)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInsufficientData))
			var ide *models.InsufficientDataError
			assert.True(t, errors.As(err, &ide))
		})
	}
}

func TestFitOverflowIsNumericDegeneracy(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{name: "slope overflows", points: []Point{{0, -1e308}, {1, 1e308}}},
		{name: "mean overflows", points: []Point{{0, 1e308}, {1, 1e308}, {2, 1e308}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Fit(tc.points, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrNumericDegeneracy))
			assert.False(t, errors.Is(err, models.ErrInsufficientData))
		})
	}
}

func TestFitDoesNotMutateInput(t *testing.T) {
	points := []Point{{0, 4}, {1, 2}, {2, 9}}
	weights := []float64{1, 0.5, 2}
	pc := append([]Point(nil), points...)
	wc := append([]float64(nil), weights...)
	_, err := Fit(points, weights)
	require.NoError(t, err)
	assert.Equal(t, pc, points)
	assert.Equal(t, wc, weights)
}

func TestFitUnitWeightsMatchUnweighted(t *testing.T) {
	points := []Point{{0, 3}, {1, 8}, {2, 4}, {3, 11}}
	a, err := Fit(points, nil)
	require.NoError(t, err)
	b, err := Fit(points, []float64{1, 1, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, a.Slope, b.Slope, 1e-12)
	assert.InDelta(t, a.Intercept, b.Intercept, 1e-12)
	assert.InDelta(t, a.FitScore, b.FitScore, 1e-12)
}
