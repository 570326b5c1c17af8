package hedge

import "pairs_go/internal/domain"

// OLS is a trailing-window least squares fit. It keeps no state between calls.
type OLS struct {
	window int
}

func NewOLS(window int) *OLS {
	return &OLS{window: window}
}

// Estimate fits over the last min(i+1, window) points ending at i.
// A window with zero variance in PriceB yields slope 0.
func (o *OLS) Estimate(i int, points []domain.AlignedPoint) Estimate {
	if i < 0 || i >= len(points) {
		return Estimate{}
	}
	start := i + 1 - o.window
	if start < 0 {
		start = 0
	}
	return fit(points[start : i+1])
}

func fit(pts []domain.AlignedPoint) Estimate {
	n := float64(len(pts))
	if n == 0 {
		return Estimate{}
	}

	var sumX, sumY float64
	for _, p := range pts {
		sumX += p.PriceB
		sumY += p.PriceA
	}
	meanX := sumX / n
	meanY := sumY / n

	var num, den float64
	for _, p := range pts {
		dx := p.PriceB - meanX
		num += dx * (p.PriceA - meanY)
		den += dx * dx
	}

	slope := 0.0
	if den != 0 {
		slope = num / den
	}
	return Estimate{Slope: slope, Intercept: meanY - slope*meanX}
}
