package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit_PerfectLine(t *testing.T) {
	res, err := Fit([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, FitOptions{})
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.Slope, 1e-9)
	assert.InDelta(t, 0.0, res.Intercept, 1e-9)
	assert.InDelta(t, 1.0, res.RSquared, 1e-9)
	assert.InDelta(t, 0.0, res.PValue, 1e-9)
	assert.Equal(t, 4, res.N)
	assert.False(t, res.LogY)
}

func TestFit_NoisyLine(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 5, 4, 5}

	res, err := Fit(x, y, FitOptions{})
	require.NoError(t, err)

	// slope = Sxy/Sxx = 6/10, intercept = 4 - 0.6*3
	assert.InDelta(t, 0.6, res.Slope, 1e-12)
	assert.InDelta(t, 2.2, res.Intercept, 1e-12)
	// SSE = 2.4, SST = 6
	assert.InDelta(t, 0.6, res.RSquared, 1e-12)
	// se = sqrt(2.4/3/10), t = 2.1213, df = 3
	assert.InDelta(t, math.Sqrt(0.08), res.StdErr, 1e-12)
	assert.InDelta(t, 0.124, res.PValue, 1e-3)
}

func TestFit_LogY(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 10, 100, 1000}

	res, err := Fit(x, y, FitOptions{LogY: true})
	require.NoError(t, err)
	assert.True(t, res.LogY)
	assert.InDelta(t, 1.0, res.Slope, 1e-9)
	assert.InDelta(t, 0.0, res.Intercept, 1e-9)
	assert.InDelta(t, 1.0, res.RSquared, 1e-9)
}

func TestFit_TwoPointsHasNoPValue(t *testing.T) {
	res, err := Fit([]float64{0, 1}, []float64{1, 3}, FitOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Slope, 1e-12)
	assert.True(t, math.IsNaN(res.PValue))
}

func TestFit_Errors(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
		opts FitOptions
		want error
	}{
		{"length mismatch", []float64{1, 2, 3}, []float64{1, 2}, FitOptions{}, ErrInsufficientData},
		{"single point", []float64{1}, []float64{1}, FitOptions{}, ErrInsufficientData},
		{"nan", []float64{1, 2, 3}, []float64{1, math.NaN(), 3}, FitOptions{}, ErrInsufficientData},
		{"constant x", []float64{2, 2, 2}, []float64{1, 2, 3}, FitOptions{}, ErrDegenerateInput},
		{"log of zero", []float64{1, 2, 3}, []float64{1, 0, 3}, FitOptions{LogY: true}, ErrDomain},
		{"log of negative", []float64{1, 2, 3}, []float64{1, 2, -3}, FitOptions{LogY: true}, ErrDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Fit(tt.x, tt.y, tt.opts)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFitColumns_DropsIncompleteRows(t *testing.T) {
	nan := math.NaN()
	x := []float64{1, 2, nan, 3, 4}
	y := []float64{2, 4, 5, nan, 8}

	res, err := FitColumns(x, y, FitOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.N)
	assert.InDelta(t, 2.0, res.Slope, 1e-9)

	_, err = FitColumns([]float64{1}, []float64{1, 2}, FitOptions{})
	assert.ErrorIs(t, err, ErrInsufficientData)
}
