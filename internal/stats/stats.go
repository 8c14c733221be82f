// Package stats wraps the gonum statistics primitives with the guard
// behavior the analysis services rely on: empty input is an error, and
// numeric degeneracy (zero variance, singular design) never produces NaN.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/healthpulse/healthpulse-go/internal/utils"
)

// Mean returns the arithmetic mean of xs. Callers must guard against
// empty input; an EmptyInputError is returned otherwise.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, utils.NewEmptyInputError("mean of empty series")
	}
	return stat.Mean(xs, nil), nil
}

// WeightedMean returns sum(x*w)/sum(w) over paired values and weights.
func WeightedMean(xs, weights []float64) (float64, error) {
	if len(xs) == 0 || len(xs) != len(weights) {
		return 0, utils.NewEmptyInputError("weighted mean needs matched non-empty series")
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return 0, utils.NewDegenerateInputErrorf("weighted mean with zero total weight")
	}
	return stat.Mean(xs, weights), nil
}

// Pearson computes the Pearson correlation coefficient of two equal-length
// series with at least two points. A zero-variance series yields 0 rather
// than dividing by zero.
func Pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// LinearRegression fits y = intercept + slope*x by ordinary least squares.
// A singular design (all xs identical) returns a DegenerateInputError;
// callers treat that as "trend undeterminable".
func LinearRegression(xs, ys []float64) (slope, intercept float64, err error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return 0, 0, utils.NewEmptyInputError("regression needs matched non-empty series")
	}
	if stat.Variance(xs, nil) == 0 {
		return 0, 0, utils.NewDegenerateInputErrorf("singular design: all %d x values identical", len(xs))
	}
	intercept, slope = stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		return 0, 0, utils.NewDegenerateInputErrorf("regression produced non-finite coefficients")
	}
	return slope, intercept, nil
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ClampScore bounds an integer score to the [0,100] surface contract.
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
