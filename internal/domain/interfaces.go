package domain

import "context"

// ExchangeWorker defines the interface for exchange WebSocket connectors
type ExchangeWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}

// TickSink receives ticks from a feed. Implementations must not block for long.
type TickSink interface {
	Ingest(t Tick)
}

// TradeHistoryProvider fetches recent trades for backfilling buffers
type TradeHistoryProvider interface {
	RecentTrades(ctx context.Context, symbol string, limit int) ([]Tick, error)
}

// SettingsRepository persists user settings (key/value) and coin metadata
type SettingsRepository interface {
	SaveConfig(key, value string) error
	LoadConfigMap() (map[string]string, error)
	DeleteConfig(key string) error
	UpsertCoin(coin *CoinInfo) error
	GetCoin(symbol string) (*CoinInfo, error)
}
