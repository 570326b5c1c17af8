package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pairs_go/internal/domain"
	"pairs_go/internal/service"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	yaml := `
binance:
  symbol_a: SOLUSDT
  symbol_b: avaxusdt
pipeline:
  window: 30
storage:
  path: ` + filepath.Join(dir, "pairs.db") + `
  icon_dir: ""
logging:
  level: warn
  file: ""
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newBootstrap(t *testing.T) *Bootstrap {
	t.Helper()
	dir := t.TempDir()
	b := NewBootstrap()
	if err := b.Initialize(writeConfig(t, dir)); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestInitialize(t *testing.T) {
	b := newBootstrap(t)
	if b.Storage == nil {
		t.Fatal("storage not opened")
	}
	if b.Downloader != nil {
		t.Error("downloader should be disabled with an empty icon dir")
	}
	a, bb := b.Config.Symbols()
	if a != "solusdt" || bb != "avaxusdt" {
		t.Errorf("symbols = %s/%s", a, bb)
	}
}

func TestInitialize_MissingConfig(t *testing.T) {
	b := NewBootstrap()
	if err := b.Initialize(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestParams_StoredOverridesConfig(t *testing.T) {
	b := newBootstrap(t)

	p, err := b.Params()
	if err != nil {
		t.Fatal(err)
	}
	if p.Window != 30 || p.Method != domain.MethodOLS {
		t.Fatalf("config params = %+v", p)
	}

	stored := p
	stored.Window = 60
	stored.Method = domain.MethodKalman
	if err := service.SaveParams(b.Storage, stored); err != nil {
		t.Fatal(err)
	}

	p, err = b.Params()
	if err != nil {
		t.Fatal(err)
	}
	if p != stored {
		t.Errorf("Params() = %+v, want %+v", p, stored)
	}
}

func TestParams_BrokenStoredSetFallsBack(t *testing.T) {
	b := newBootstrap(t)
	if err := b.Storage.SaveConfig("pipeline.window", "-3"); err != nil {
		t.Fatal(err)
	}

	p, err := b.Params()
	if err != nil {
		t.Fatal(err)
	}
	want, _ := b.Config.PipelineParams()
	if p != want {
		t.Errorf("Params() = %+v, want config %+v", p, want)
	}

	stored, err := b.Storage.LoadConfigMap()
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := stored["pipeline.window"]; ok {
		t.Errorf("broken row should be cleared, still %q", v)
	}
}

func TestPair_StoredOverridesConfig(t *testing.T) {
	b := newBootstrap(t)
	if a, bb := b.Pair(); a != "solusdt" || bb != "avaxusdt" {
		t.Fatalf("Pair() = %s/%s, want config pair", a, bb)
	}

	if err := service.SavePair(b.Storage, "btcusdt", "ethusdt"); err != nil {
		t.Fatal(err)
	}
	if a, bb := b.Pair(); a != "btcusdt" || bb != "ethusdt" {
		t.Errorf("Pair() = %s/%s, want stored pair", a, bb)
	}
}

func TestSyncAssets(t *testing.T) {
	b := newBootstrap(t)
	if err := b.Storage.UpsertCoin(&domain.CoinInfo{Symbol: "btc", IsActive: true}); err != nil {
		t.Fatal(err)
	}

	b.SyncAssets(context.Background(), "solusdt", "avaxusdt")

	active, err := b.Storage.ActiveCoins()
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("active coins = %+v", active)
	}
	if active[0].Symbol != "avax" || active[0].Instrument != "avaxusdt" || active[0].Name != "AVAX" {
		t.Errorf("unexpected coin %+v", active[0])
	}
	if active[1].Symbol != "sol" {
		t.Errorf("unexpected coin %+v", active[1])
	}

	btc, _ := b.Storage.GetCoin("btc")
	if btc == nil || btc.IsActive {
		t.Errorf("stale coin should be deactivated: %+v", btc)
	}
}
