package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pairs_go/internal/analytics"
	"pairs_go/internal/domain"
	"pairs_go/internal/infra"
	"pairs_go/internal/infra/storage"
	"pairs_go/internal/service"

	"golang.org/x/sync/errgroup"
)

// maxIconDownloads bounds concurrent icon fetches during asset sync
const maxIconDownloads = 4

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Downloader *infra.IconDownloader
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and opens the settings store
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("Bootstrapping pairs monitor",
		slog.String("symbol_a", cfg.Binance.SymbolA),
		slog.String("symbol_b", cfg.Binance.SymbolB),
	)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("Database initialized")

	// 4. Initialize Icon Downloader
	if cfg.Storage.IconDir != "" {
		downloader, err := infra.NewIconDownloader(cfg.Storage.IconDir, "")
		if err != nil {
			return err
		}
		b.Downloader = downloader
		slog.Info("Icon downloader ready", slog.String("dir", cfg.Storage.IconDir))
	}

	return nil
}

// Params resolves the startup pipeline parameters: config values with
// any stored overrides on top. A broken stored set falls back to config.
func (b *Bootstrap) Params() (analytics.Params, error) {
	base, err := b.Config.PipelineParams()
	if err != nil {
		return analytics.Params{}, err
	}
	if b.Storage == nil {
		return base, nil
	}

	p, err := service.LoadParams(b.Storage, base)
	if err != nil {
		slog.Warn("Discarding stored parameters", slog.Any("error", err))
		if err := service.ClearParams(b.Storage); err != nil {
			slog.Error("Failed to clear stored parameters", slog.Any("error", err))
		}
		return base, nil
	}
	return p, nil
}

// Pair resolves the startup pair: the last pair switched to at runtime,
// else the configured one.
func (b *Bootstrap) Pair() (string, string) {
	symA, symB := b.Config.Symbols()
	if b.Storage == nil {
		return symA, symB
	}
	a, bb, ok, err := service.LoadPair(b.Storage)
	if err != nil {
		slog.Warn("Ignoring stored pair", slog.Any("error", err))
		return symA, symB
	}
	if !ok {
		return symA, symB
	}
	return a, bb
}

// SyncAssets upserts the pair's base assets and caches their icons.
// Failures are logged per asset and never abort startup.
func (b *Bootstrap) SyncAssets(ctx context.Context, symA, symB string) {
	slog.Info("Starting asset synchronization", slog.String("symbol_a", symA), slog.String("symbol_b", symB))

	instruments := map[string]string{
		domain.BaseAsset(symA): symA,
		domain.BaseAsset(symB): symB,
	}

	keep := make([]string, 0, len(instruments))
	for asset := range instruments {
		keep = append(keep, asset)
	}
	if err := b.Storage.DeactivateAllExcept(keep...); err != nil {
		slog.Warn("Failed to deactivate stale coins", slog.Any("error", err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxIconDownloads)
	for asset, instrument := range instruments {
		g.Go(func() error {
			b.syncAsset(gctx, asset, instrument)
			return nil
		})
	}
	g.Wait()

	slog.Info("Asset synchronization completed", slog.Int("assets", len(instruments)))
}

func (b *Bootstrap) syncAsset(ctx context.Context, asset, instrument string) {
	coin := &domain.CoinInfo{
		Symbol:     asset,
		Instrument: instrument,
		Name:       strings.ToUpper(asset),
		IsActive:   true,
		UpdatedAt:  time.Now(),
	}
	if existing, _ := b.Storage.GetCoin(asset); existing != nil {
		coin.IconPath = existing.IconPath
		coin.LastSyncedAt = existing.LastSyncedAt
		coin.CreatedAt = existing.CreatedAt
	}

	if err := b.Storage.UpsertCoin(coin); err != nil {
		slog.Error("Failed to upsert coin", slog.String("asset", asset), slog.Any("error", err))
		return
	}

	if b.Downloader == nil || ctx.Err() != nil {
		return
	}
	path, err := b.Downloader.DownloadIcon(ctx, asset)
	if err != nil {
		slog.Warn("Failed to download icon", slog.String("asset", asset), slog.Any("error", err))
		return
	}
	coin.IconPath = path
	coin.LastSyncedAt = time.Now()
	if err := b.Storage.UpsertCoin(coin); err != nil {
		slog.Error("Failed to update coin icon", slog.String("asset", asset), slog.Any("error", err))
	}
}

// Close releases resources opened by Initialize
func (b *Bootstrap) Close() error {
	if b.Storage == nil {
		return nil
	}
	if err := b.Storage.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
