package domain

import (
	"math"
	"strings"
)

// Tick is a single trade print from an exchange stream.
// Timestamp is the exchange trade time in Unix milliseconds.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
	Timestamp int64   `json:"timestamp"`
}

// IsFinite reports whether price and quantity are usable numbers.
// Ticks failing this check are skipped before resampling so NaN never
// reaches the windowed statistics.
func (t Tick) IsFinite() bool {
	return !math.IsNaN(t.Price) && !math.IsInf(t.Price, 0) &&
		!math.IsNaN(t.Quantity) && !math.IsInf(t.Quantity, 0)
}

// NormalizeSymbol lower-cases and trims a stream symbol ("BTCUSDT " -> "btcusdt").
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}

// BaseAsset strips a known quote suffix from a pair symbol ("btcusdt" -> "btc").
func BaseAsset(symbol string) string {
	s := NormalizeSymbol(symbol)
	for _, quote := range []string{"usdt", "usdc", "busd", "fdusd", "btc", "eth"} {
		if len(s) > len(quote) && strings.HasSuffix(s, quote) {
			return strings.TrimSuffix(s, quote)
		}
	}
	return s
}
