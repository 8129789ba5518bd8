package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FitOptions configures a regression.
type FitOptions struct {
	// LogY fits log10(y) against x.
	LogY bool `json:"log_y"`
}

// Result is an ordinary least squares fit of y = Intercept + Slope*x.
type Result struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`

	// PValue is the two-sided p-value of the slope under a Student-t test
	// with N-2 degrees of freedom. It is NaN when N == 2.
	PValue float64 `json:"p_value"`

	StdErr float64 `json:"std_err"`
	N      int     `json:"n"`
	LogY   bool    `json:"log_y"`
}

// Fit computes an ordinary least squares line through (x, y).
//
// Errors:
//   - ErrInsufficientData: lengths differ, fewer than 2 points, or NaN inputs.
//   - ErrDegenerateInput: every x is equal.
//   - ErrDomain: LogY with any y <= 0. The fit is not attempted.
func Fit(x, y []float64, opts FitOptions) (*Result, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: x has %d values, y has %d", ErrInsufficientData, len(x), len(y))
	}
	n := len(x)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInsufficientData, n)
	}
	for i := range x {
		if !finite(x[i]) || !finite(y[i]) {
			return nil, fmt.Errorf("%w: non-finite value at position %d", ErrInsufficientData, i)
		}
	}

	ys := y
	if opts.LogY {
		ys = make([]float64, n)
		for i, v := range y {
			if v <= 0 {
				return nil, fmt.Errorf("%w: y[%d] = %v", ErrDomain, i, v)
			}
			ys[i] = math.Log10(v)
		}
	}

	if stat.Variance(x, nil) == 0 {
		return nil, ErrDegenerateInput
	}

	intercept, slope := stat.LinearRegression(x, ys, nil, false)
	r2 := stat.RSquared(x, ys, nil, intercept, slope)

	res := &Result{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  r2,
		N:         n,
		LogY:      opts.LogY,
		PValue:    math.NaN(),
		StdErr:    math.NaN(),
	}
	if n > 2 {
		res.StdErr, res.PValue = slopeSignificance(x, ys, intercept, slope)
	}
	return res, nil
}

// slopeSignificance returns the standard error of the slope and its
// two-sided p-value against the null hypothesis slope == 0.
func slopeSignificance(x, y []float64, intercept, slope float64) (se, p float64) {
	n := float64(len(x))
	meanX := stat.Mean(x, nil)

	var sse, sxx float64
	for i := range x {
		r := y[i] - (intercept + slope*x[i])
		sse += r * r
		dx := x[i] - meanX
		sxx += dx * dx
	}

	df := n - 2
	se = math.Sqrt(sse / df / sxx)
	if se == 0 {
		// Perfect fit.
		return 0, 0
	}

	t := slope / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.Survival(math.Abs(t))
	return se, p
}
