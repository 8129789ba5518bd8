package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativeOnset(t *testing.T) {
	tests := []struct {
		name     string
		series   []float64
		ratio    float64
		want     int
		baseline float64
	}{
		{"step after flat start", []float64{10, 10, 10, 20}, 0.05, 3, 10},
		{"first point never fires", []float64{100, 1, 1}, 0.05, -1, 0},
		{"equal to threshold does not fire", []float64{10, 10.5}, 0.05, -1, 0},
		{"running mean grows", []float64{10, 20, 16, 30}, 0.1, 1, 10},
		{"nan skipped", []float64{10, math.NaN(), 10, 12}, 0.1, 3, 10},
		{"empty", nil, 0.05, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelativeOnset(tt.series, tt.ratio)
			assert.Equal(t, tt.want, got.Index)
			assert.Equal(t, tt.want >= 0, got.Found)
			if got.Found {
				assert.InDelta(t, tt.baseline, got.Baseline, 1e-12)
				assert.Equal(t, tt.series[tt.want], got.Value)
			}
		})
	}
}

func TestAbsoluteOnset(t *testing.T) {
	got := AbsoluteOnset([]float64{1, 2, 3, 9, 2}, 5)
	assert.True(t, got.Found)
	assert.Equal(t, 3, got.Index)
	assert.Equal(t, 9.0, got.Value)
	assert.Equal(t, 5.0, got.Baseline)

	got = AbsoluteOnset([]float64{1, 5, 2}, 5)
	assert.False(t, got.Found)
	assert.Equal(t, -1, got.Index)
}

func TestDetect(t *testing.T) {
	mode, err := ParseOnsetMode(" Relative ")
	require.NoError(t, err)
	assert.Equal(t, OnsetRelative, mode)

	got, err := Detect([]float64{10, 10, 10, 20}, mode, 0.05)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Index)

	got, err = Detect([]float64{1, 2, 3, 9, 2}, OnsetAbsolute, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Index)

	_, err = ParseOnsetMode("sideways")
	assert.Error(t, err)
	_, err = Detect(nil, OnsetMode("sideways"), 0)
	assert.Error(t, err)
}

func TestDetectColumn_DropsEmptyCells(t *testing.T) {
	nan := math.NaN()
	values := []float64{10, nan, 10, 10, 20}
	frames := []int{1, 2, 3, 4, 5}

	got, err := DetectColumn(values, frames, OnsetRelative, 0.05)
	require.NoError(t, err)
	require.True(t, got.Found)
	assert.Equal(t, 3, got.Position)
	assert.Equal(t, 5, got.Frame)

	got, err = DetectColumn(values, frames, OnsetAbsolute, 50)
	require.NoError(t, err)
	assert.False(t, got.Found)
	assert.Equal(t, -1, got.Frame)
}
