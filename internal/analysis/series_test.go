package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/roi-trends/internal/series"
)

func TestSmoothSeries(t *testing.T) {
	ts := series.New(series.B)
	nan := math.NaN()
	for i := 1; i <= 6; i++ {
		v := float64(10 * i)
		outside := series.Tuple{FrameIndex: i, ROIIndex: 2, R: nan, G: nan, B: nan, H: nan, S: nan, V: nan, Intensity: nan}
		require.NoError(t, ts.Append(series.Frame{Index: i}, []series.Tuple{
			{FrameIndex: i, ROIIndex: 1, R: v, G: v, B: v, H: v / 2, S: v, V: v, Intensity: v},
			outside,
		}))
	}

	smoothed, err := SmoothSeries(ts, DefaultSmoothOptions())
	require.NoError(t, err)

	for _, c := range series.Channels {
		got := smoothed.Get(1, c)
		require.Len(t, got, 6, "channel %s", c)
		want := ts.Values(1, c)
		for i := range want {
			assert.InDelta(t, want[i], got[i], 1e-9)
		}

		outside := smoothed.Get(2, c)
		require.Len(t, outside, 6)
		for _, v := range outside {
			assert.True(t, math.IsNaN(v))
		}
	}

	_, err = SmoothSeries(ts, SmoothOptions{Fraction: 0})
	assert.ErrorIs(t, err, ErrInvalidBandwidth)
}
