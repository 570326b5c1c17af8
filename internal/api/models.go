package api

import (
	"pairs_go/internal/analytics"
	"pairs_go/internal/domain"
	"pairs_go/internal/engine"
	"pairs_go/internal/infra"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a single error
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// AnalyticsResponse is returned by GET /api/v1/analytics
type AnalyticsResponse struct {
	SymbolA string                  `json:"symbol_a"`
	SymbolB string                  `json:"symbol_b"`
	Seq     uint64                  `json:"seq"`
	Count   int                     `json:"count"`
	Latest  *domain.AnalyticsPoint  `json:"latest,omitempty"`
	Points  []domain.AnalyticsPoint `json:"points"`
}

// BacktestResponse is returned by GET /api/v1/backtest
type BacktestResponse struct {
	Result domain.TradeResult `json:"result"`
	Trades []domain.Trade     `json:"trades"`
}

// AlertsResponse is returned by GET /api/v1/alerts
type AlertsResponse struct {
	Count  int            `json:"count"`
	Alerts []domain.Alert `json:"alerts"`
}

// ParamsResponse is returned by GET and PUT /api/v1/params
type ParamsResponse struct {
	Params analytics.Params `json:"params"`
}

// PairRequest is the body of PUT /api/v1/pair
type PairRequest struct {
	SymbolA string `json:"symbol_a" binding:"required"`
	SymbolB string `json:"symbol_b" binding:"required"`
}

// PairResponse is returned by the pair and collect routes
type PairResponse struct {
	SymbolA    string `json:"symbol_a"`
	SymbolB    string `json:"symbol_b"`
	Collecting bool   `json:"collecting"`
}

// StatusResponse is returned by GET /api/v1/status
type StatusResponse struct {
	Monitor    engine.Status         `json:"monitor"`
	Connected  bool                  `json:"connected"`
	Collecting bool                  `json:"collecting"`
	Coins      []domain.CoinInfo     `json:"coins,omitempty"`
	Metrics    infra.MetricsSnapshot `json:"metrics"`
}
