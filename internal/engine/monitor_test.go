package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pairs_go/internal/analytics"
	"pairs_go/internal/domain"
	"pairs_go/internal/event"
)

func newTestMonitor(t *testing.T, onReport func(*domain.Report)) *Monitor {
	t.Helper()
	m, err := NewMonitor(Config{
		SymbolA:           "BTCUSDT",
		SymbolB:           "ethusdt",
		BufferSize:        100,
		InboxSize:         16,
		RecomputeInterval: 10 * time.Millisecond,
		Params:            analytics.DefaultParams(),
		DumpPath:          filepath.Join(t.TempDir(), "dump.json"),
	}, onReport)
	if err != nil {
		t.Fatalf("NewMonitor failed: %v", err)
	}
	return m
}

func tickEvent(symbol string, ts int64, price float64) *event.TickEvent {
	return &event.TickEvent{Tick: domain.Tick{Symbol: symbol, Price: price, Quantity: 1, Timestamp: ts}}
}

func TestNewMonitor_Validation(t *testing.T) {
	bad := analytics.DefaultParams()
	bad.Window = 0

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"same symbols", Config{SymbolA: "btcusdt", SymbolB: "BTCUSDT", Params: analytics.DefaultParams()}, domain.ErrInvalidSymbol},
		{"missing symbol", Config{SymbolA: "btcusdt", Params: analytics.DefaultParams()}, domain.ErrInvalidSymbol},
		{"bad params", Config{SymbolA: "btcusdt", SymbolB: "ethusdt", Params: bad}, domain.ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMonitor(tt.cfg, nil); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMonitor_RecomputeProducesSequencedReports(t *testing.T) {
	var reports []*domain.Report
	m := newTestMonitor(t, func(r *domain.Report) { reports = append(reports, r) })

	m.processEvent(tickEvent("btcusdt", 0, 100))
	m.processEvent(tickEvent("ETHUSDT", 500, 50))
	m.processEvent(tickEvent("btcusdt", 2000, 101))
	m.processEvent(tickEvent("dogeusdt", 2000, 1)) // not part of the pair

	if !m.dirty {
		t.Fatal("monitor should be dirty after ticks")
	}
	m.recompute()
	m.processEvent(tickEvent("ethusdt", 3000, 51))
	m.recompute()

	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	if reports[0].Seq != 1 || reports[1].Seq != 2 {
		t.Errorf("seqs = %d,%d, want 1,2", reports[0].Seq, reports[1].Seq)
	}
	if reports[0].TicksA != 2 || reports[0].TicksB != 1 {
		t.Errorf("tick counts = %d/%d, want 2/1", reports[0].TicksA, reports[0].TicksB)
	}
	if len(reports[0].Points) != 3 || len(reports[1].Points) != 4 {
		t.Errorf("points = %d,%d, want 3,4", len(reports[0].Points), len(reports[1].Points))
	}

	st := m.Status()
	if st.LastSeq != 2 || st.LastPriceB != 51 {
		t.Errorf("status = %+v", st)
	}
}

func TestMonitor_ParamsEvent(t *testing.T) {
	var last *domain.Report
	m := newTestMonitor(t, func(r *domain.Report) { last = r })
	m.processEvent(tickEvent("btcusdt", 0, 100))
	m.processEvent(tickEvent("ethusdt", 0, 50))
	m.processEvent(tickEvent("btcusdt", 60_000, 110))
	m.recompute()

	p := analytics.DefaultParams()
	p.IntervalMS = domain.IntervalOneMinute
	p.Method = domain.MethodKalman
	m.processEvent(&event.ParamsEvent{Params: p})
	if !m.dirty {
		t.Fatal("params change should mark dirty")
	}
	m.recompute()

	if last.Method != domain.MethodKalman || len(last.Points) != 2 {
		t.Errorf("report after params change = method %s, %d points", last.Method, len(last.Points))
	}
}

func TestMonitor_BatchAndRollingCap(t *testing.T) {
	m := newTestMonitor(t, nil)

	batch := make([]domain.Tick, 0, 150)
	for i := 0; i < 150; i++ {
		batch = append(batch, domain.Tick{Symbol: "btcusdt", Price: float64(i), Quantity: 1, Timestamp: int64(i)})
	}
	m.processEvent(&event.BatchEvent{Ticks: batch})

	if m.bufA.Len() != 100 {
		t.Errorf("buffer len = %d, want cap 100", m.bufA.Len())
	}
	first := m.bufA.Snapshot()[0]
	if first.Price != 50 {
		t.Errorf("oldest tick price = %v, want 50", first.Price)
	}
}

func TestMonitor_PairSwitchClearsBuffers(t *testing.T) {
	var last *domain.Report
	m := newTestMonitor(t, func(r *domain.Report) { last = r })

	m.processEvent(tickEvent("btcusdt", 0, 100))
	m.processEvent(tickEvent("ethusdt", 0, 50))
	m.processEvent(tickEvent("btcusdt", 1000, 101))
	m.recompute()
	if last == nil || last.Seq != 1 || len(last.Points) == 0 {
		t.Fatalf("first report = %+v", last)
	}

	m.processEvent(&event.PairEvent{SymbolA: "solusdt", SymbolB: "avaxusdt"})
	if m.bufA.Len() != 0 || m.bufB.Len() != 0 {
		t.Fatalf("buffers = %d/%d after switch, want empty", m.bufA.Len(), m.bufB.Len())
	}
	if !m.dirty {
		t.Error("pair switch should mark dirty")
	}

	m.processEvent(tickEvent("btcusdt", 2000, 102)) // late tick from the old stream
	m.processEvent(tickEvent("SOLUSDT", 2000, 20))
	if m.bufA.Len() != 1 || m.bufB.Len() != 0 {
		t.Errorf("buffers = %d/%d, want 1/0", m.bufA.Len(), m.bufB.Len())
	}

	m.recompute()
	if last.SymbolA != "solusdt" || last.SymbolB != "avaxusdt" {
		t.Errorf("report pair = %s/%s", last.SymbolA, last.SymbolB)
	}
	if last.Seq != 2 || last.TicksA != 1 || last.TicksB != 0 || len(last.Points) != 0 {
		t.Errorf("report after switch = seq %d ticks %d/%d points %d", last.Seq, last.TicksA, last.TicksB, len(last.Points))
	}

	st := m.Status()
	if st.SymbolA != "solusdt" || st.SymbolB != "avaxusdt" || st.LastPriceB != 0 {
		t.Errorf("status = %+v", st)
	}
	if a, b := m.Symbols(); a != "solusdt" || b != "avaxusdt" {
		t.Errorf("Symbols() = %s/%s", a, b)
	}
}

func TestMonitor_SetPairRejectsInvalid(t *testing.T) {
	m := newTestMonitor(t, nil)
	for _, pair := range [][2]string{{"solusdt", "SOLUSDT"}, {"", "ethusdt"}} {
		if err := m.SetPair(context.Background(), pair[0], pair[1]); !errors.Is(err, domain.ErrInvalidSymbol) {
			t.Errorf("SetPair(%q, %q) = %v, want ErrInvalidSymbol", pair[0], pair[1], err)
		}
	}
	if len(m.inbox) != 0 {
		t.Error("rejected pair must not reach the loop")
	}

	if err := m.SetPair(context.Background(), "SOLUSDT", "avaxusdt"); err != nil {
		t.Fatal(err)
	}
	ev := <-m.inbox
	pe, ok := ev.(*event.PairEvent)
	if !ok || pe.SymbolA != "solusdt" || pe.SymbolB != "avaxusdt" {
		t.Errorf("queued event = %#v", ev)
	}
}

func TestMonitor_RunLoop(t *testing.T) {
	reports := make(chan *domain.Report, 8)
	m := newTestMonitor(t, func(r *domain.Report) { reports <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	m.Ingest(domain.Tick{Symbol: "btcusdt", Price: 100, Quantity: 1, Timestamp: 1000})
	m.Ingest(domain.Tick{Symbol: "ethusdt", Price: 50, Quantity: 1, Timestamp: 1000})

	// A pass may run between the two ingests; wait for one that saw both legs.
	deadline := time.After(2 * time.Second)
	for got := false; !got; {
		select {
		case r := <-reports:
			got = len(r.Points) == 1
		case <-deadline:
			t.Fatal("timed out waiting for report")
		}
	}

	bad := analytics.DefaultParams()
	bad.IntervalMS = 0
	if err := m.SetParams(ctx, bad); !errors.Is(err, domain.ErrInvalidParams) {
		t.Errorf("SetParams(bad) = %v, want ErrInvalidParams", err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if m.Status().Running {
		t.Error("status should report stopped")
	}
}

func TestMonitor_BackfillRespectsContext(t *testing.T) {
	m, err := NewMonitor(Config{
		SymbolA:   "btcusdt",
		SymbolB:   "ethusdt",
		InboxSize: 1,
		Params:    analytics.DefaultParams(),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Backfill(ctx, nil); err != nil {
		t.Fatalf("first backfill should fit in the inbox: %v", err)
	}
	cancel()
	if err := m.Backfill(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMonitor_DumpState(t *testing.T) {
	m := newTestMonitor(t, nil)
	m.processEvent(tickEvent("btcusdt", 0, 100))

	path := filepath.Join(t.TempDir(), "state.json")
	m.DumpState(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("dump not written: %v", err)
	}
	var got struct {
		NextSeq uint64 `json:"next_seq"`
		TicksA  int    `json:"ticks_a"`
		Dirty   bool   `json:"dirty"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.NextSeq != 1 || got.TicksA != 1 || !got.Dirty {
		t.Errorf("dump = %+v", got)
	}
}

func BenchmarkMonitor_Recompute(b *testing.B) {
	m, _ := NewMonitor(Config{
		SymbolA:    "btcusdt",
		SymbolB:    "ethusdt",
		BufferSize: DefaultBufferSize,
		Params:     analytics.DefaultParams(),
	}, nil)
	for i := 0; i < DefaultBufferSize; i++ {
		ts := int64(i) * 250
		m.push(domain.Tick{Symbol: "btcusdt", Price: 100 + float64(i%50), Quantity: 1, Timestamp: ts})
		m.push(domain.Tick{Symbol: "ethusdt", Price: 50 + float64(i%30), Quantity: 1, Timestamp: ts})
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		m.recompute()
	}
}
