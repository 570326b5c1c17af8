package infra

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry exposes m on a dedicated Prometheus registry.
func NewRegistry(m *Metrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	counter := func(name, help string, f func() uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: "pairs", Name: name, Help: help},
			func() float64 { return float64(f()) },
		)
	}
	gauge := func(name, help string, f func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: "pairs", Name: name, Help: help},
			f,
		)
	}

	reg.MustRegister(
		counter("ticks_ingested_total", "Ticks accepted into the rolling buffers", m.ticksIngested.Load),
		counter("ticks_dropped_total", "Ticks dropped before buffering", m.ticksDropped.Load),
		counter("recomputes_total", "Completed analytics passes", m.recomputes.Load),
		counter("alerts_total", "Z-score alerts stored", m.alertsRaised.Load),
		counter("reconnects_total", "Websocket reconnect attempts", m.reconnects.Load),
		counter("errors_total", "Errors observed", m.errorsTotal.Load),
		gauge("active_connections", "Open websocket connections", func() float64 {
			return float64(m.activeConnections.Load())
		}),
		gauge("series_length", "Points in the latest analytics series", func() float64 {
			return float64(m.lastSeriesLen.Load())
		}),
		gauge("recompute_avg_seconds", "Average analytics pass latency", func() float64 {
			return time.Duration(m.Snapshot().AvgRecomputeNs).Seconds()
		}),
	)
	return reg
}

// ServeMetrics serves /metrics on addr until ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Metrics server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
