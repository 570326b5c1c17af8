package domain

import (
	"time"
)

// CoinInfo represents metadata for one leg's base asset
type CoinInfo struct {
	Symbol       string    `gorm:"primaryKey" json:"symbol"` // base asset, e.g. "btc"
	Instrument   string    `json:"instrument"`               // traded symbol, e.g. "btcusdt"
	Name         string    `json:"name"`
	IconPath     string    `json:"icon_path"`
	IsActive     bool      `json:"is_active" gorm:"index"` // currently monitored
	LastSyncedAt time.Time `json:"last_synced_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AppConfig represents user-specific configuration (Key-Value)
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
