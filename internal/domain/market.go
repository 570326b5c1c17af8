package domain

import (
	"strings"
	"time"
)

// AlignedPoint is one step of the common sampling grid.
// PriceA/PriceB hold the last observed price of each leg at or before Timestamp.
type AlignedPoint struct {
	Timestamp int64   `json:"timestamp"`
	PriceA    float64 `json:"price_a"`
	PriceB    float64 `json:"price_b"`
}

// AnalyticsPoint extends AlignedPoint with the estimated hedge ratio,
// the resulting spread and its rolling z-score.
// Points are appended in timestamp order and never revised.
type AnalyticsPoint struct {
	Timestamp  int64   `json:"timestamp"`
	PriceA     float64 `json:"price_a"`
	PriceB     float64 `json:"price_b"`
	HedgeRatio float64 `json:"hedge_ratio"`
	Spread     float64 `json:"spread"`
	ZScore     float64 `json:"z_score"`
}

// Time returns the point timestamp as UTC time.
func (p AnalyticsPoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// Method selects the hedge-ratio estimation strategy.
type Method string

const (
	MethodOLS    Method = "OLS"
	MethodKalman Method = "KALMAN"
)

// ParseMethod accepts "ols"/"kalman" in any case.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToUpper(strings.TrimSpace(s))) {
	case MethodOLS:
		return MethodOLS, nil
	case MethodKalman:
		return MethodKalman, nil
	default:
		return "", NewParamsError("method", "unknown regression method %q", s)
	}
}

// Sampling interval presets (milliseconds).
const (
	IntervalOneSecond   int64 = 1000
	IntervalOneMinute   int64 = 60000
	IntervalFiveMinutes int64 = 300000
)

// Report is the output of one full recompute pass.
// Seq increases monotonically per pass; consumers keep the highest Seq seen.
type Report struct {
	Seq        uint64           `json:"seq"`
	SymbolA    string           `json:"symbol_a"`
	SymbolB    string           `json:"symbol_b"`
	Method     Method           `json:"method"`
	Points     []AnalyticsPoint `json:"points"`
	Result     TradeResult      `json:"result"`
	Trades     []Trade          `json:"trades"`
	TicksA     int              `json:"ticks_a"`
	TicksB     int              `json:"ticks_b"`
	ComputedAt time.Time        `json:"computed_at"`
}

// Last returns the most recent point, if any.
func (r *Report) Last() (AnalyticsPoint, bool) {
	if r == nil || len(r.Points) == 0 {
		return AnalyticsPoint{}, false
	}
	return r.Points[len(r.Points)-1], true
}
