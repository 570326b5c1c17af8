// Package analytics turns two raw tick streams into an aligned
// spread / hedge ratio / z-score series.
package analytics

import (
	"math"

	"pairs_go/internal/domain"
)

// Params controls one pipeline pass.
type Params struct {
	IntervalMS     int64         `json:"interval_ms"`
	Window         int           `json:"window"`
	ZWindow        int           `json:"z_window"` // 0 = same as Window
	Method         domain.Method `json:"method"`
	MinLiquidity   float64       `json:"min_liquidity"` // 0 = disabled
	EntryThreshold float64       `json:"entry_threshold"`
	ExitThreshold  float64       `json:"exit_threshold"`
}

// DefaultParams returns 1s sampling, a 20 point OLS window and 2.0/0.0 thresholds.
func DefaultParams() Params {
	return Params{
		IntervalMS:     domain.IntervalOneSecond,
		Window:         20,
		Method:         domain.MethodOLS,
		EntryThreshold: 2.0,
		ExitThreshold:  0.0,
	}
}

// EffectiveZWindow returns the z-score window length.
func (p Params) EffectiveZWindow() int {
	if p.ZWindow > 0 {
		return p.ZWindow
	}
	return p.Window
}

// Validate checks ranges. Failures are *domain.ParamsError keyed by the
// JSON field name.
func (p Params) Validate() error {
	if p.IntervalMS <= 0 {
		return domain.NewParamsError("interval_ms", "must be positive, got %d", p.IntervalMS)
	}
	if p.Window <= 0 {
		return domain.NewParamsError("window", "must be positive, got %d", p.Window)
	}
	if p.ZWindow < 0 {
		return domain.NewParamsError("z_window", "must not be negative, got %d", p.ZWindow)
	}
	if p.MinLiquidity < 0 || !isFinite(p.MinLiquidity) {
		return domain.NewParamsError("min_liquidity", "must be a non-negative number, got %v", p.MinLiquidity)
	}
	if p.Method != domain.MethodOLS && p.Method != domain.MethodKalman {
		return domain.NewParamsError("method", "unknown method %q", p.Method)
	}
	if !isFinite(p.EntryThreshold) {
		return domain.NewParamsError("entry_threshold", "must be finite")
	}
	if !isFinite(p.ExitThreshold) {
		return domain.NewParamsError("exit_threshold", "must be finite")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
