package analytics

import (
	"sort"

	"pairs_go/internal/domain"
)

// filterTicks drops non-finite ticks and, when minLiquidity > 0, ticks whose
// quantity is below it. The result is stably sorted by timestamp.
func filterTicks(ticks []domain.Tick, minLiquidity float64) []domain.Tick {
	out := make([]domain.Tick, 0, len(ticks))
	for _, t := range ticks {
		if !t.IsFinite() {
			continue
		}
		if minLiquidity > 0 && t.Quantity < minLiquidity {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// Resample aligns two tick streams onto a common grid of step intervalMS,
// forward-filling each side. Both sides start out holding their first price.
// If either side is empty after filtering the result is empty.
func Resample(ticksA, ticksB []domain.Tick, intervalMS int64, minLiquidity float64) ([]domain.AlignedPoint, error) {
	if intervalMS <= 0 {
		return nil, domain.NewParamsError("interval_ms", "must be positive, got %d", intervalMS)
	}

	a := filterTicks(ticksA, minLiquidity)
	b := filterTicks(ticksB, minLiquidity)
	if len(a) == 0 || len(b) == 0 {
		return []domain.AlignedPoint{}, nil
	}

	start := min(a[0].Timestamp, b[0].Timestamp)
	end := max(a[len(a)-1].Timestamp, b[len(b)-1].Timestamp)

	points := make([]domain.AlignedPoint, 0, (end-start)/intervalMS+1)
	lastA, lastB := a[0].Price, b[0].Price
	ia, ib := 0, 0

	for t := start; t <= end; t += intervalMS {
		for ia < len(a) && a[ia].Timestamp <= t {
			lastA = a[ia].Price
			ia++
		}
		for ib < len(b) && b[ib].Timestamp <= t {
			lastB = b[ib].Price
			ib++
		}
		points = append(points, domain.AlignedPoint{
			Timestamp: t,
			PriceA:    lastA,
			PriceB:    lastB,
		})
	}
	return points, nil
}
