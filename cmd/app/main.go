package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pairs_go/internal/api"
	"pairs_go/internal/app"
	"pairs_go/internal/domain"
	"pairs_go/internal/engine"
	"pairs_go/internal/event"
	"pairs_go/internal/infra"
	"pairs_go/internal/infra/binance"
	"pairs_go/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()
	cfg := bootstrap.Config

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, bootstrap); err != nil {
		slog.Error("Pairs monitor stopped with error", slog.Any("error", err))
		bootstrap.Close()
		os.Exit(1)
	}
	slog.Info("Shut down gracefully", slog.String("app", cfg.App.Name))
}

func run(ctx context.Context, b *app.Bootstrap) error {
	cfg := b.Config

	// 3. Pprof Server (localhost only)
	if cfg.Server.PprofAddr != "" {
		go func() {
			slog.Info("Pprof server started", slog.String("addr", cfg.Server.PprofAddr))
			if err := http.ListenAndServe(cfg.Server.PprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 4. Service & Monitor
	params, err := b.Params()
	if err != nil {
		return err
	}
	alerts := domain.NewAlertLog(cfg.Alerts.Capacity, cfg.Alerts.DedupWindow)
	svc := service.NewAnalyticsService(params, alerts, b.Storage)

	symA, symB := b.Pair()
	event.Warmup(cfg.Binance.BufferSize / 10)
	monitor, err := engine.NewMonitor(engine.Config{
		SymbolA:           symA,
		SymbolB:           symB,
		BufferSize:        cfg.Binance.BufferSize,
		RecomputeInterval: cfg.Pipeline.RecomputeInterval,
		Params:            params,
		DumpPath:          "panic_dump.json",
	}, func(r *domain.Report) { svc.Publish(r) })
	if err != nil {
		return err
	}
	svc.AttachApplier(monitor)

	// 5. Background Asset Sync
	go b.SyncAssets(ctx, symA, symB)

	// 6. Live feed: REST backfill, then the Binance stream
	wsOpts := binance.Options{
		WSURL:            cfg.Binance.WSURL,
		HandshakeTimeout: cfg.Binance.HandshakeTimeout,
		ReadTimeout:      cfg.Binance.ReadTimeout,
		MaxBackoff:       cfg.Binance.MaxBackoff,
	}
	feed := service.NewFeedController(monitor,
		func(symbols []string, sink domain.TickSink) domain.ExchangeWorker {
			return binance.NewWorker(symbols, sink, wsOpts)
		},
		service.FeedOptions{
			History:       binance.NewRestClient(cfg.Binance.RestURL),
			BackfillLimit: cfg.Binance.BackfillLimit,
			Repo:          b.Storage,
			OnPairChange: func(a, bb string) {
				svc.ClearAlerts()
				go b.SyncAssets(ctx, a, bb)
			},
		})

	g, gctx := errgroup.WithContext(ctx)

	// Hotpath loop
	g.Go(func() error {
		monitor.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return feed.Run(gctx)
	})

	// 7. HTTP API
	g.Go(func() error {
		return serveAPI(gctx, cfg, api.NewHandler(svc, monitor, feed, b.Storage))
	})

	// 8. Metrics
	if cfg.Server.MetricsAddr != "" {
		g.Go(func() error {
			return infra.ServeMetrics(gctx, cfg.Server.MetricsAddr, infra.NewRegistry(infra.GlobalMetrics))
		})
	}

	slog.InfoContext(ctx, "Pairs monitor fully operational. Press Ctrl+C to exit.")
	return g.Wait()
}

func serveAPI(ctx context.Context, cfg *infra.Config, h *api.Handler) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.WithCORS(api.NewRouter(h), cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("API server listening", slog.String("addr", cfg.Server.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
