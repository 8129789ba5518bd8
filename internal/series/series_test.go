package series

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tuple(frame, roi int, v float64) Tuple {
	return Tuple{FrameIndex: frame, ROIIndex: roi, R: v, G: v, B: v, H: v, S: v, V: v, Intensity: v}
}

func TestParseChannel(t *testing.T) {
	for in, want := range map[string]Channel{
		"blue": B, "B": B, "red": R, "g": G, "hue": H, "s": S, "value": V, "intensity": Intensity,
	} {
		got, err := ParseChannel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseChannel("alpha")
	assert.Error(t, err)
}

func TestTuple_Value(t *testing.T) {
	tp := Tuple{R: 1, G: 2, B: 3, H: 4, S: 5, V: 6, Intensity: 7}
	assert.Equal(t, 1.0, tp.Value(R))
	assert.Equal(t, 3.0, tp.Value(B))
	assert.Equal(t, 4.0, tp.Value(H))
	assert.Equal(t, 7.0, tp.Value(Intensity))
	assert.True(t, math.IsNaN(tp.Value(Channel(99))))
}

func TestTimeSeries_AppendKeepsOrderAndSkips(t *testing.T) {
	ts := New(B)

	require.NoError(t, ts.Append(Frame{Index: 1}, []Tuple{tuple(1, 1, 10), tuple(1, 2, 20)}))
	ts.Observe(2) // frame 2 failed to load
	require.NoError(t, ts.Append(Frame{Index: 3}, []Tuple{tuple(3, 1, 11), tuple(3, 2, 21)}))

	assert.Equal(t, 2, ts.Len())
	assert.Equal(t, 3, ts.FramesSeen())
	assert.Equal(t, []int{1, 2}, ts.ROIs())
	assert.Equal(t, 4, ts.TupleCount())
	assert.Equal(t, []float64{10, 11}, ts.Values(1, Intensity))
	assert.Equal(t, []int{1, 3}, ts.FrameIndices(2))

	aligned := ts.Aligned(1, ts.Values(1, R))
	require.Len(t, aligned, 3)
	assert.Equal(t, 10.0, aligned[0])
	assert.True(t, math.IsNaN(aligned[1]))
	assert.Equal(t, 11.0, aligned[2])
}

func TestTimeSeries_AppendRejectsOutOfOrder(t *testing.T) {
	ts := New(B)
	require.NoError(t, ts.Append(Frame{Index: 2}, []Tuple{tuple(2, 1, 1)}))

	assert.Error(t, ts.Append(Frame{Index: 2}, nil))
	assert.Error(t, ts.Append(Frame{Index: 1}, nil))
	assert.Error(t, ts.Append(Frame{Index: 3}, []Tuple{tuple(4, 1, 1)}))
	assert.Equal(t, 1, ts.Len())
}
