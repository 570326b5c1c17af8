package strategy

import (
	"math"
	"testing"

	"pairs_go/internal/domain"
)

func series(zs, spreads []float64) []domain.AnalyticsPoint {
	pts := make([]domain.AnalyticsPoint, len(zs))
	for i := range zs {
		pts[i] = domain.AnalyticsPoint{Timestamp: int64(i) * 1000, ZScore: zs[i], Spread: spreads[i]}
	}
	return pts
}

func TestMeanReversion_Scenario(t *testing.T) {
	pts := series(
		[]float64{0, 0.5, 2.1, 1.0, -0.1, -2.2, 0.0},
		[]float64{1, 1, 1, 1, 1, 1, 1},
	)

	res, trades := NewMeanReversion(DefaultEntryThreshold, DefaultExitThreshold).RunLedger(pts)

	if res.TotalTrades != 2 {
		t.Fatalf("TotalTrades = %d, want 2", res.TotalTrades)
	}
	if res.TotalPnL != 0 || res.WinningTrades != 0 || res.WinRate != 0 {
		t.Errorf("result = %+v, want zero pnl and win rate", res)
	}
	if res.Status != domain.StatusFlat {
		t.Errorf("Status = %q, want flat", res.Status)
	}

	want := []struct {
		side        domain.PositionSide
		entry, exit int
	}{
		{domain.ShortSpread, 2, 4},
		{domain.LongSpread, 5, 6},
	}
	for i, w := range want {
		tr := trades[i]
		if tr.Side != w.side || tr.EntryIndex != w.entry || tr.ExitIndex != w.exit {
			t.Errorf("trade %d = %+v, want %v %d->%d", i, tr, w.side, w.entry, w.exit)
		}
	}
}

func TestMeanReversion_PnL(t *testing.T) {
	tests := []struct {
		name      string
		zs        []float64
		spreads   []float64
		wantPnL   float64
		wantWins  int
		wantTrade int
	}{
		{
			name:      "short profits when spread falls",
			zs:        []float64{2.5, 1.0, -0.2},
			spreads:   []float64{10, 8, 7},
			wantPnL:   3,
			wantWins:  1,
			wantTrade: 1,
		},
		{
			name:      "long loses when spread falls further",
			zs:        []float64{-2.5, -1.0, 0.3},
			spreads:   []float64{10, 9, 8},
			wantPnL:   -2,
			wantWins:  0,
			wantTrade: 1,
		},
		{
			name:      "exit exactly at threshold",
			zs:        []float64{2.01, 0},
			spreads:   []float64{5, 4},
			wantPnL:   1,
			wantWins:  1,
			wantTrade: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewMeanReversion(2, 0).Run(series(tt.zs, tt.spreads))
			if math.Abs(res.TotalPnL-tt.wantPnL) > 1e-12 {
				t.Errorf("TotalPnL = %v, want %v", res.TotalPnL, tt.wantPnL)
			}
			if res.WinningTrades != tt.wantWins || res.TotalTrades != tt.wantTrade {
				t.Errorf("wins/trades = %d/%d, want %d/%d", res.WinningTrades, res.TotalTrades, tt.wantWins, tt.wantTrade)
			}
		})
	}
}

func TestMeanReversion_EntryIsStrict(t *testing.T) {
	res := NewMeanReversion(2, 0).Run(series([]float64{2.0, -2.0, 0}, []float64{1, 1, 1}))
	if res.TotalTrades != 0 || res.Status != domain.StatusFlat {
		t.Errorf("z equal to entry must not open a position: %+v", res)
	}
}

func TestMeanReversion_OpenPositionAtEnd(t *testing.T) {
	pts := series([]float64{0, 2.5, 1.5}, []float64{3, 4, 2})
	res := NewMeanReversion(2, 0).Run(pts)

	if res.Status != domain.StatusActive {
		t.Errorf("Status = %q, want active", res.Status)
	}
	if res.TotalTrades != 0 || res.TotalPnL != 0 {
		t.Errorf("open position must not be counted: %+v", res)
	}
}

func TestMeanReversion_WinRate(t *testing.T) {
	pts := series(
		[]float64{2.5, 0, -2.5, 0, 3, -1, -3, 1},
		[]float64{10, 9, 5, 4, 6, 7, 2, 6},
	)
	res := NewMeanReversion(2, 0).Run(pts)

	// short 10->9 win, long 5->4 loss, short 6->7 loss, long 2->6 win
	if res.TotalTrades != 4 || res.WinningTrades != 2 {
		t.Fatalf("trades = %d wins = %d", res.TotalTrades, res.WinningTrades)
	}
	if res.WinRate != 50 {
		t.Errorf("WinRate = %v, want 50", res.WinRate)
	}
	if res.TotalPnL != 3 {
		t.Errorf("TotalPnL = %v, want 3", res.TotalPnL)
	}
}

func TestMeanReversion_Deterministic(t *testing.T) {
	pts := series(
		[]float64{0.3, 2.2, 1.1, -0.4, -2.6, -1.7, 0.2, 2.9},
		[]float64{1.2, 3.4, 2.2, 0.9, -1.5, -0.8, 0.6, 2.4},
	)
	m := NewMeanReversion(2, 0)
	first := m.Run(pts)
	second := m.Run(pts)
	if first != second {
		t.Errorf("runs differ: %+v vs %+v", first, second)
	}
	if NewMeanReversion(2, 0).Run(pts) != first {
		t.Error("fresh machine differs from reused machine")
	}
}

func TestMeanReversion_Empty(t *testing.T) {
	res := NewMeanReversion(2, 0).Run(nil)
	want := domain.TradeResult{Status: domain.StatusFlat}
	if res != want {
		t.Errorf("Run(nil) = %+v, want %+v", res, want)
	}
}

func TestMeanReversion_Step(t *testing.T) {
	m := NewMeanReversion(2, 0.5)

	if _, ok := m.Step(0, domain.AnalyticsPoint{ZScore: 1}); ok {
		t.Error("no transition expected inside band")
	}
	act, ok := m.Step(1, domain.AnalyticsPoint{ZScore: -2.1, Spread: 4})
	if !ok || act.Type != ActionEnterLong {
		t.Fatalf("expected ENTER_LONG, got %v %v", act.Type, ok)
	}
	if _, ok := m.Step(2, domain.AnalyticsPoint{ZScore: -0.6}); ok {
		t.Error("long should hold while z < -exit")
	}
	act, ok = m.Step(3, domain.AnalyticsPoint{ZScore: -0.5, Spread: 5})
	if !ok || act.Type != ActionExit || act.PnL != 1 {
		t.Errorf("expected EXIT with pnl 1, got %+v", act)
	}
	if m.Position().IsOpen() {
		t.Error("position should be flat after exit")
	}
}

func BenchmarkMeanReversion_Run(b *testing.B) {
	pts := make([]domain.AnalyticsPoint, 10_000)
	for i := range pts {
		x := float64(i)
		pts[i] = domain.AnalyticsPoint{ZScore: 3 * math.Sin(x/17), Spread: math.Cos(x / 17)}
	}
	m := NewMeanReversion(2, 0)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		m.Run(pts)
	}
}
