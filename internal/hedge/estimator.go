// Package hedge estimates the time-varying hedge ratio between the two legs
// of a pair. PriceA is regressed on PriceB.
package hedge

import (
	"math"

	"pairs_go/internal/domain"
)

// Estimate is the regression result at one index.
type Estimate struct {
	Slope     float64
	Intercept float64
}

// Estimator produces an estimate for point i given the whole aligned series.
// Implementations may hold state that advances with i; callers must request
// indices in increasing order and create a new Estimator for every pass.
type Estimator interface {
	Estimate(i int, points []domain.AlignedPoint) Estimate
}

// New returns a fresh estimator for method. window only applies to OLS.
func New(method domain.Method, window int) (Estimator, error) {
	switch method {
	case domain.MethodOLS:
		if window <= 0 {
			return nil, domain.NewParamsError("window", "ols window must be positive, got %d", window)
		}
		return NewOLS(window), nil
	case domain.MethodKalman:
		return NewKalman(), nil
	default:
		return nil, domain.NewParamsError("method", "unknown method %q", method)
	}
}

// Ratio is the hedge ratio used downstream: the slope, or 1 when the slope
// is zero or NaN.
func Ratio(e Estimate) float64 {
	if e.Slope == 0 || math.IsNaN(e.Slope) {
		return 1
	}
	return e.Slope
}
