package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"pairs_go/internal/analytics"
	"pairs_go/internal/domain"
	"pairs_go/internal/event"
	"pairs_go/internal/infra"
	"pairs_go/internal/strategy"
)

// Config configures a Monitor.
type Config struct {
	SymbolA           string
	SymbolB           string
	BufferSize        int
	InboxSize         int
	RecomputeInterval time.Duration
	Params            analytics.Params
	DumpPath          string
}

// Status is a read-only view of the monitor for external callers.
type Status struct {
	SymbolA      string           `json:"symbol_a"`
	SymbolB      string           `json:"symbol_b"`
	TicksA       int              `json:"ticks_a"`
	TicksB       int              `json:"ticks_b"`
	LastPriceA   float64          `json:"last_price_a"`
	LastPriceB   float64          `json:"last_price_b"`
	Params       analytics.Params `json:"params"`
	LastSeq      uint64           `json:"last_seq"`
	LastComputed time.Time        `json:"last_computed"`
	Running      bool             `json:"running"`
}

// Monitor owns the two tick buffers and recomputes the analytics series
// on a fixed cadence whenever ticks or parameters changed.
// All mutation happens on the Run goroutine; other goroutines talk to it
// through the inbox.
type Monitor struct {
	inbox    chan event.Event
	symbolA  string
	symbolB  string
	bufA     *TickBuffer
	bufB     *TickBuffer
	params   analytics.Params
	interval time.Duration
	dumpPath string

	dirty   bool
	nextSeq uint64

	// Boundary: receives every computed report
	onReport func(*domain.Report)

	mu     sync.RWMutex // guards status only
	status Status
}

// NewMonitor creates a monitor for the configured pair.
func NewMonitor(cfg Config, onReport func(*domain.Report)) (*Monitor, error) {
	symA, symB, err := normalizePair(cfg.SymbolA, cfg.SymbolB)
	if err != nil {
		return nil, err
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 4096
	}
	if cfg.RecomputeInterval <= 0 {
		cfg.RecomputeInterval = time.Second
	}
	if cfg.DumpPath == "" {
		cfg.DumpPath = "panic_dump.json"
	}

	m := &Monitor{
		inbox:    make(chan event.Event, cfg.InboxSize),
		symbolA:  symA,
		symbolB:  symB,
		bufA:     NewTickBuffer(cfg.BufferSize),
		bufB:     NewTickBuffer(cfg.BufferSize),
		params:   cfg.Params,
		interval: cfg.RecomputeInterval,
		dumpPath: cfg.DumpPath,
		nextSeq:  1,
		onReport: onReport,
	}
	m.status = Status{SymbolA: symA, SymbolB: symB, Params: cfg.Params}
	return m, nil
}

// Symbols returns the normalized pair currently monitored.
func (m *Monitor) Symbols() (string, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.SymbolA, m.status.SymbolB
}

func normalizePair(a, b string) (string, string, error) {
	symA := domain.NormalizeSymbol(a)
	symB := domain.NormalizeSymbol(b)
	if symA == "" || symB == "" || symA == symB {
		return "", "", fmt.Errorf("%w: pair %q/%q", domain.ErrInvalidSymbol, a, b)
	}
	return symA, symB, nil
}

// Ingest enqueues a live tick without blocking. Ticks are dropped when the
// inbox is full.
func (m *Monitor) Ingest(t domain.Tick) {
	ev := event.AcquireTickEvent()
	ev.Tick = t
	select {
	case m.inbox <- ev:
	default:
		event.ReleaseTickEvent(ev)
		infra.GlobalMetrics.RecordDrop()
	}
}

// Backfill enqueues historical ticks, blocking until accepted or ctx is done.
func (m *Monitor) Backfill(ctx context.Context, ticks []domain.Tick) error {
	select {
	case m.inbox <- &event.BatchEvent{Ticks: ticks}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetParams replaces the pipeline parameters. Invalid params are rejected
// before they reach the loop.
func (m *Monitor) SetParams(ctx context.Context, p analytics.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	select {
	case m.inbox <- &event.ParamsEvent{Params: p}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetPair switches the monitored instruments. Ticks buffered for the old
// pair are discarded and the next pass publishes a report for the new one.
func (m *Monitor) SetPair(ctx context.Context, symbolA, symbolB string) error {
	symA, symB, err := normalizePair(symbolA, symbolB)
	if err != nil {
		return err
	}
	select {
	case m.inbox <- &event.PairEvent{SymbolA: symA, SymbolB: symB}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the main loop. This MUST be run in a single goroutine.
func (m *Monitor) Run(ctx context.Context) {
	slog.Info("Monitor started",
		slog.String("symbol_a", m.symbolA),
		slog.String("symbol_b", m.symbolB),
		slog.Duration("interval", m.interval),
	)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			m.DumpState(m.dumpPath)
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	m.setRunning(true)
	defer m.setRunning(false)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Monitor stopping...")
			return
		case ev := <-m.inbox:
			m.processEvent(ev)
		case <-ticker.C:
			if m.dirty {
				m.recompute()
			}
		}
	}
}

func (m *Monitor) processEvent(ev event.Event) {
	switch e := ev.(type) {
	case *event.TickEvent:
		m.push(e.Tick)
		event.ReleaseTickEvent(e)
	case *event.BatchEvent:
		for _, t := range e.Ticks {
			m.push(t)
		}
		slog.Info("Backfill applied", slog.Int("ticks", len(e.Ticks)))
	case *event.ParamsEvent:
		m.params = e.Params
		m.dirty = true
		slog.Info("Parameters updated", slog.Any("params", e.Params))
	case *event.PairEvent:
		m.switchPair(e.SymbolA, e.SymbolB)
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}
}

func (m *Monitor) push(t domain.Tick) {
	switch domain.NormalizeSymbol(t.Symbol) {
	case m.symbolA:
		m.bufA.Push(t)
	case m.symbolB:
		m.bufB.Push(t)
	default:
		infra.GlobalMetrics.RecordDrop()
		return
	}
	infra.GlobalMetrics.RecordTick()
	m.dirty = true
}

func (m *Monitor) switchPair(symA, symB string) {
	m.symbolA, m.symbolB = symA, symB
	m.bufA.Reset()
	m.bufB.Reset()
	m.dirty = true

	m.mu.Lock()
	m.status.SymbolA, m.status.SymbolB = symA, symB
	m.status.TicksA, m.status.TicksB = 0, 0
	m.status.LastPriceA, m.status.LastPriceB = 0, 0
	m.mu.Unlock()

	slog.Info("Pair switched", slog.String("symbol_a", symA), slog.String("symbol_b", symB))
}

// recompute runs one full pass over copies of both buffers.
func (m *Monitor) recompute() {
	start := time.Now()
	ticksA := m.bufA.Snapshot()
	ticksB := m.bufB.Snapshot()
	m.dirty = false

	points, err := analytics.Process(ticksA, ticksB, m.params)
	if err != nil {
		infra.GlobalMetrics.RecordError()
		slog.Error("Analytics pass failed", slog.Any("error", err))
		return
	}

	result, trades := strategy.NewMeanReversion(m.params.EntryThreshold, m.params.ExitThreshold).RunLedger(points)

	report := &domain.Report{
		Seq:        m.nextSeq,
		SymbolA:    m.symbolA,
		SymbolB:    m.symbolB,
		Method:     m.params.Method,
		Points:     points,
		Result:     result,
		Trades:     trades,
		TicksA:     len(ticksA),
		TicksB:     len(ticksB),
		ComputedAt: time.Now().UTC(),
	}
	m.nextSeq++

	infra.GlobalMetrics.RecordRecompute(time.Since(start), len(points))
	m.updateStatus(report)

	slog.Debug("Analytics recomputed",
		slog.Uint64("seq", report.Seq),
		slog.Int("points", len(points)),
		slog.Int("trades", result.TotalTrades),
		slog.Duration("took", time.Since(start)),
	)

	if m.onReport != nil {
		m.onReport(report)
	}
}

func (m *Monitor) updateStatus(r *domain.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.TicksA = r.TicksA
	m.status.TicksB = r.TicksB
	if t, ok := m.bufA.Last(); ok {
		m.status.LastPriceA = t.Price
	}
	if t, ok := m.bufB.Last(); ok {
		m.status.LastPriceB = t.Price
	}
	m.status.Params = m.params
	m.status.LastSeq = r.Seq
	m.status.LastComputed = r.ComputedAt
}

func (m *Monitor) setRunning(running bool) {
	m.mu.Lock()
	m.status.Running = running
	m.mu.Unlock()
}

// Status returns a copy of the monitor status (external read).
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// DumpState writes the internal state to a file (for post-mortem).
func (m *Monitor) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	lastA, _ := m.bufA.Last()
	lastB, _ := m.bufB.Last()
	data := struct {
		NextSeq uint64           `json:"next_seq"`
		Params  analytics.Params `json:"params"`
		Dirty   bool             `json:"dirty"`
		TicksA  int              `json:"ticks_a"`
		TicksB  int              `json:"ticks_b"`
		LastA   domain.Tick      `json:"last_a"`
		LastB   domain.Tick      `json:"last_b"`
	}{
		NextSeq: m.nextSeq,
		Params:  m.params,
		Dirty:   m.dirty,
		TicksA:  m.bufA.Len(),
		TicksB:  m.bufB.Len(),
		LastA:   lastA,
		LastB:   lastB,
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
