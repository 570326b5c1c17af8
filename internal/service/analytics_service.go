package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pairs_go/internal/analytics"
	"pairs_go/internal/domain"
	"pairs_go/internal/infra"
)

// ParamsApplier forwards parameter changes to the recompute loop.
type ParamsApplier interface {
	SetParams(ctx context.Context, p analytics.Params) error
}

// AnalyticsService holds the newest report, the alert log and the active
// parameters. It is the read side for the API.
type AnalyticsService struct {
	// updateMu serializes UpdateParams so the engine, the service and the
	// store always end up holding the same parameter set.
	updateMu sync.Mutex

	mu      sync.RWMutex
	latest  *domain.Report
	params  analytics.Params
	alerts  *domain.AlertLog
	repo    domain.SettingsRepository
	applier ParamsApplier
	now     func() time.Time
}

// NewAnalyticsService creates the service. repo may be nil, in which case
// parameter changes are not persisted.
func NewAnalyticsService(params analytics.Params, alerts *domain.AlertLog, repo domain.SettingsRepository) *AnalyticsService {
	if alerts == nil {
		alerts = domain.NewAlertLog(0, 0)
	}
	return &AnalyticsService{
		params: params,
		alerts: alerts,
		repo:   repo,
		now:    time.Now,
	}
}

// AttachApplier wires the recompute loop once it exists.
func (s *AnalyticsService) AttachApplier(a ParamsApplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applier = a
}

// Publish stores r if it is newer than the current report and evaluates
// the breach alert on its last point. Stale reports are ignored.
func (s *AnalyticsService) Publish(r *domain.Report) bool {
	if r == nil {
		return false
	}

	s.mu.Lock()
	if s.latest != nil && r.Seq <= s.latest.Seq {
		s.mu.Unlock()
		return false
	}
	s.latest = r
	threshold := s.params.EntryThreshold
	s.mu.Unlock()

	if _, z, ok := analytics.Breach(r.Points, threshold); ok {
		if a, stored := s.alerts.Record(z, threshold, s.now()); stored {
			infra.GlobalMetrics.RecordAlert()
			slog.Warn("Z-score alert", slog.String("message", a.Message), slog.Uint64("seq", r.Seq))
		}
	}
	return true
}

// Latest returns the newest report.
func (s *AnalyticsService) Latest() (*domain.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Backtest returns the trade summary and ledger of the newest report.
func (s *AnalyticsService) Backtest() (domain.TradeResult, []domain.Trade) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return domain.TradeResult{Status: domain.StatusFlat}, []domain.Trade{}
	}
	trades := make([]domain.Trade, len(s.latest.Trades))
	copy(trades, s.latest.Trades)
	return s.latest.Result, trades
}

// Alerts returns the alert log, oldest first.
func (s *AnalyticsService) Alerts() []domain.Alert {
	return s.alerts.List()
}

// ClearAlerts empties the alert log.
func (s *AnalyticsService) ClearAlerts() {
	s.alerts.Clear()
}

// Params returns the active parameters.
func (s *AnalyticsService) Params() analytics.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// UpdateParams validates p, hands it to the recompute loop and persists it.
// Concurrent calls are applied one at a time, in full.
func (s *AnalyticsService) UpdateParams(ctx context.Context, p analytics.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	s.mu.RLock()
	applier, repo := s.applier, s.repo
	s.mu.RUnlock()

	if applier != nil {
		if err := applier.SetParams(ctx, p); err != nil {
			return fmt.Errorf("apply params: %w", err)
		}
	}

	s.mu.Lock()
	s.params = p
	s.mu.Unlock()

	if repo != nil {
		if err := SaveParams(repo, p); err != nil {
			infra.GlobalMetrics.RecordError()
			return fmt.Errorf("persist params: %w", err)
		}
	}
	slog.Info("Parameters changed",
		slog.Int64("interval_ms", p.IntervalMS),
		slog.Int("window", p.Window),
		slog.String("method", string(p.Method)),
	)
	return nil
}
