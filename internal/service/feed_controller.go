package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"pairs_go/internal/domain"
	"pairs_go/internal/infra"
)

// FeedEngine is the side of the recompute loop the live feed drives.
type FeedEngine interface {
	domain.TickSink
	Symbols() (string, string)
	SetPair(ctx context.Context, symbolA, symbolB string) error
	Backfill(ctx context.Context, ticks []domain.Tick) error
}

// WorkerFactory builds a stream worker delivering ticks for symbols to sink.
type WorkerFactory func(symbols []string, sink domain.TickSink) domain.ExchangeWorker

// FeedOptions configures optional FeedController behavior.
type FeedOptions struct {
	History       domain.TradeHistoryProvider // nil disables backfill
	BackfillLimit int
	Repo          domain.SettingsRepository // nil disables pair persistence
	OnPairChange  func(symbolA, symbolB string)
}

// FeedController owns the exchange worker lifecycle: start and stop of
// collection, and switching the monitored pair at runtime. Ticks reach the
// engine only while collecting.
type FeedController struct {
	engine    FeedEngine
	newWorker WorkerFactory
	opts      FeedOptions

	mu      sync.Mutex
	base    context.Context // set while Run is active
	worker  domain.ExchangeWorker
	symbolA string
	symbolB string

	collecting atomic.Bool
	generation atomic.Uint64 // bumped on every stop; stale backfills are discarded
	wg         sync.WaitGroup
}

// NewFeedController starts from the engine's current pair.
func NewFeedController(engine FeedEngine, newWorker WorkerFactory, opts FeedOptions) *FeedController {
	a, b := engine.Symbols()
	return &FeedController{
		engine:    engine,
		newWorker: newWorker,
		opts:      opts,
		symbolA:   a,
		symbolB:   b,
	}
}

// Run starts collecting and blocks until ctx is done, then stops the feed
// and waits for pending backfills.
func (f *FeedController) Run(ctx context.Context) error {
	f.mu.Lock()
	f.base = ctx
	err := f.startLocked()
	if err != nil {
		f.base = nil
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}

	<-ctx.Done()

	f.mu.Lock()
	f.stopLocked()
	f.base = nil
	f.mu.Unlock()
	f.wg.Wait()
	return nil
}

// Ingest forwards a live tick to the engine while collecting.
func (f *FeedController) Ingest(t domain.Tick) {
	if !f.collecting.Load() {
		infra.GlobalMetrics.RecordDrop()
		return
	}
	f.engine.Ingest(t)
}

// Start resumes collection. It is a no-op while already collecting.
func (f *FeedController) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.base == nil {
		return domain.ErrFeedStopped
	}
	if f.worker != nil {
		return nil
	}
	return f.startLocked()
}

// Stop pauses collection. Buffered ticks stay in the engine.
func (f *FeedController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
}

// Collecting reports whether live ticks are being accepted.
func (f *FeedController) Collecting() bool {
	return f.collecting.Load()
}

// IsConnected reports whether the current worker holds a live stream.
func (f *FeedController) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.worker != nil && f.worker.IsConnected()
}

// Pair returns the monitored pair.
func (f *FeedController) Pair() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.symbolA, f.symbolB
}

// SwitchPair replaces the monitored pair. The running worker is stopped,
// the engine buffers are reset and, if collection was active, a worker for
// the new streams is started.
func (f *FeedController) SwitchPair(ctx context.Context, symbolA, symbolB string) error {
	symA := domain.NormalizeSymbol(symbolA)
	symB := domain.NormalizeSymbol(symbolB)
	if symA == "" || symB == "" || symA == symB {
		return fmt.Errorf("%w: pair %q/%q", domain.ErrInvalidSymbol, symbolA, symbolB)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if symA == f.symbolA && symB == f.symbolB {
		return nil
	}

	wasCollecting := f.worker != nil
	f.stopLocked()

	if err := f.engine.SetPair(ctx, symA, symB); err != nil {
		if wasCollecting && f.base != nil {
			if rerr := f.startLocked(); rerr != nil {
				slog.Error("Failed to resume feed", slog.Any("error", rerr))
			}
		}
		return fmt.Errorf("switch pair: %w", err)
	}
	f.symbolA, f.symbolB = symA, symB
	slog.Info("Monitored pair changed", slog.String("symbol_a", symA), slog.String("symbol_b", symB))

	var persistErr error
	if f.opts.Repo != nil {
		if err := SavePair(f.opts.Repo, symA, symB); err != nil {
			infra.GlobalMetrics.RecordError()
			persistErr = fmt.Errorf("persist pair: %w", err)
		}
	}
	if f.opts.OnPairChange != nil {
		f.opts.OnPairChange(symA, symB)
	}

	if wasCollecting && f.base != nil {
		if err := f.startLocked(); err != nil {
			return err
		}
	}
	return persistErr
}

func (f *FeedController) startLocked() error {
	symbols := []string{f.symbolA, f.symbolB}
	w := f.newWorker(symbols, f)

	f.collecting.Store(true)
	if err := w.Connect(f.base); err != nil {
		f.collecting.Store(false)
		return err
	}
	f.worker = w
	slog.Info("Feed started", slog.String("symbol_a", f.symbolA), slog.String("symbol_b", f.symbolB))

	if f.opts.History != nil && f.opts.BackfillLimit > 0 {
		ctx, gen := f.base, f.generation.Load()
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.backfill(ctx, gen, symbols)
		}()
	}
	return nil
}

func (f *FeedController) stopLocked() {
	f.collecting.Store(false)
	f.generation.Add(1)
	if f.worker == nil {
		return
	}
	f.worker.Disconnect()
	f.worker = nil
	slog.Info("Feed stopped")
}

// backfill seeds the engine from recent REST trades. Failures are logged
// and the live stream continues regardless.
func (f *FeedController) backfill(ctx context.Context, gen uint64, symbols []string) {
	for _, sym := range symbols {
		ticks, err := f.opts.History.RecentTrades(ctx, sym, f.opts.BackfillLimit)
		if err != nil {
			infra.GlobalMetrics.RecordError()
			slog.Warn("Backfill failed", slog.String("symbol", sym), slog.Any("error", err))
			continue
		}
		if f.generation.Load() != gen {
			return
		}
		if err := f.engine.Backfill(ctx, ticks); err != nil {
			return
		}
		slog.Info("Backfill loaded", slog.String("symbol", sym), slog.Int("ticks", len(ticks)))
	}
}
