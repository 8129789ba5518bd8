package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultFraction is the share of points in each local fit.
const DefaultFraction = 0.3

// DefaultIterations is the number of robustifying passes after the first fit.
const DefaultIterations = 3

// SmoothOptions configures LOESS smoothing.
type SmoothOptions struct {
	// Fraction is the share of points used in each local fit, in (0, 1].
	Fraction float64 `json:"fraction" yaml:"fraction"`

	// Iterations is the number of bisquare reweighting passes. Zero gives a
	// plain locally weighted linear fit.
	Iterations int `json:"iterations" yaml:"iterations"`
}

// DefaultSmoothOptions returns fraction 0.3 with three robustifying passes.
func DefaultSmoothOptions() SmoothOptions {
	return SmoothOptions{Fraction: DefaultFraction, Iterations: DefaultIterations}
}

// Smooth applies a plain LOESS pass (no robustifying iterations).
func Smooth(series []float64, fraction float64) ([]float64, error) {
	return SmoothWith(series, SmoothOptions{Fraction: fraction})
}

// SmoothWith applies LOESS over the index positions of series.
//
// For every position i, the k = floor(Fraction*N) nearest positions (at
// least 2, at most N) are weighted with a tricube kernel of their distance to
// i, scaled by the distance to the farthest of them, and a weighted straight
// line is evaluated at i. When the local fit is undefined the input value is
// kept.
//
// Series with fewer than 3 points are returned unchanged (as a copy). NaN
// values must be removed first; see SmoothFinite.
func SmoothWith(series []float64, opts SmoothOptions) ([]float64, error) {
	if !(opts.Fraction > 0 && opts.Fraction <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidBandwidth, opts.Fraction)
	}
	if opts.Iterations < 0 {
		return nil, fmt.Errorf("robustifying iterations must not be negative, got %d", opts.Iterations)
	}
	out := make([]float64, len(series))
	copy(out, series)
	if len(series) < 3 {
		return out, nil
	}

	x := make([]float64, len(series))
	for i := range x {
		x[i] = float64(i)
	}
	return loess(x, series, opts), nil
}

// SmoothFinite smooths only the finite entries of series, using their
// original positions as x. NaN and infinite entries stay as they are.
//
// This is how gaps (skipped frames, ROIs outside the frame) are carried
// through smoothing without being treated as zeros.
func SmoothFinite(series []float64, opts SmoothOptions) ([]float64, error) {
	if !(opts.Fraction > 0 && opts.Fraction <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidBandwidth, opts.Fraction)
	}

	var xs, ys []float64
	var pos []int
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, v)
		pos = append(pos, i)
	}

	out := make([]float64, len(series))
	copy(out, series)
	if len(ys) < 3 {
		return out, nil
	}
	if opts.Iterations < 0 {
		return nil, fmt.Errorf("robustifying iterations must not be negative, got %d", opts.Iterations)
	}

	fitted := loess(xs, ys, opts)
	for j, i := range pos {
		out[i] = fitted[j]
	}
	return out, nil
}

// loess runs the smoother over sorted x. len(x) == len(y) >= 3.
func loess(x, y []float64, opts SmoothOptions) []float64 {
	n := len(x)
	k := int(opts.Fraction*float64(n) + 1e-10)
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}

	fitted := make([]float64, n)
	robust := make([]float64, n)
	for i := range robust {
		robust[i] = 1
	}
	weights := make([]float64, k)

	for iter := 0; iter <= opts.Iterations; iter++ {
		left := 0
		for i := 0; i < n; i++ {
			// Slide the k-point window toward i while that shrinks the radius.
			for left+k < n && x[i]-x[left] > x[left+k]-x[i] {
				left++
			}
			right := left + k - 1
			radius := math.Max(x[i]-x[left], x[right]-x[i])

			fitted[i] = localFit(x[left:right+1], y[left:right+1], robust[left:right+1], weights, x[i], radius, y[i])
		}

		if iter == opts.Iterations {
			break
		}
		if !updateRobustness(y, fitted, robust) {
			break
		}
	}
	return fitted
}

// localFit evaluates a weighted straight line at x0. fallback is returned when
// the weights vanish.
func localFit(x, y, robust, weights []float64, x0, radius, fallback float64) float64 {
	var sumW float64
	for j := range x {
		w := 1.0
		if radius > 0 {
			w = tricube(math.Abs(x[j]-x0) / radius)
		}
		w *= robust[j]
		weights[j] = w
		sumW += w
	}
	if sumW <= 0 {
		return fallback
	}

	var meanX, meanY float64
	for j := range x {
		meanX += weights[j] * x[j]
		meanY += weights[j] * y[j]
	}
	meanX /= sumW
	meanY /= sumW

	var sxx, sxy float64
	for j := range x {
		dx := x[j] - meanX
		sxx += weights[j] * dx * dx
		sxy += weights[j] * dx * (y[j] - meanY)
	}

	// Spread too small for a slope: fall back to the weighted mean.
	if sxx <= 1e-12*radius*radius {
		return meanY
	}
	return meanY + sxy/sxx*(x0-meanX)
}

// updateRobustness sets bisquare weights from the residuals of the last pass.
// It reports false when the residuals are already zero and further passes
// would not change the fit.
func updateRobustness(y, fitted, robust []float64) bool {
	abs := make([]float64, len(y))
	for i := range y {
		abs[i] = math.Abs(y[i] - fitted[i])
	}
	sorted := make([]float64, len(abs))
	copy(sorted, abs)
	sort.Float64s(sorted)
	m := median(sorted)
	if m == 0 {
		return false
	}

	scale := 6 * m
	for i, r := range abs {
		robust[i] = bisquare(r / scale)
	}
	return true
}

// median of an ascending slice; even lengths average the two middle values.
func median(sorted []float64) float64 {
	m := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if n := len(sorted); n%2 == 0 {
		m = (m + sorted[n/2]) / 2
	}
	return m
}

func tricube(u float64) float64 {
	if u >= 1 {
		return 0
	}
	t := 1 - u*u*u
	return t * t * t
}

func bisquare(u float64) float64 {
	if u >= 1 {
		return 0
	}
	t := 1 - u*u
	return t * t
}
