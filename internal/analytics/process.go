package analytics

import (
	"pairs_go/internal/domain"
	"pairs_go/internal/hedge"
)

// Process runs one full pass: resample, estimate the hedge ratio per point,
// then compute spread and rolling z-score. Parameters are validated first.
// Each call builds its own estimator, so passes never share filter state.
func Process(ticksA, ticksB []domain.Tick, p Params) ([]domain.AnalyticsPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	aligned, err := Resample(ticksA, ticksB, p.IntervalMS, p.MinLiquidity)
	if err != nil {
		return nil, err
	}
	return Compute(aligned, p)
}

// Compute derives analytics points from an already aligned series.
func Compute(aligned []domain.AlignedPoint, p Params) ([]domain.AnalyticsPoint, error) {
	est, err := hedge.New(p.Method, p.Window)
	if err != nil {
		return nil, err
	}

	zWindow := p.EffectiveZWindow()
	out := make([]domain.AnalyticsPoint, len(aligned))
	spreads := make([]float64, len(aligned))

	for i, pt := range aligned {
		ratio := hedge.Ratio(est.Estimate(i, aligned))
		spread := pt.PriceA - ratio*pt.PriceB
		spreads[i] = spread

		lo := i + 1 - zWindow
		if lo < 0 {
			lo = 0
		}
		window := spreads[lo : i+1]
		mean := Mean(window)
		std := SampleStdDev(window, mean)

		out[i] = domain.AnalyticsPoint{
			Timestamp:  pt.Timestamp,
			PriceA:     pt.PriceA,
			PriceB:     pt.PriceB,
			HedgeRatio: ratio,
			Spread:     spread,
			ZScore:     ZScore(spread, mean, std),
		}
	}
	return out, nil
}

// Breach evaluates the alert condition on the latest point of series.
func Breach(series []domain.AnalyticsPoint, threshold float64) (domain.Bound, float64, bool) {
	if len(series) == 0 {
		return "", 0, false
	}
	z := series[len(series)-1].ZScore
	bound, ok := domain.CheckBreach(z, threshold)
	return bound, z, ok
}
