package binance

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pairs_go/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultUserAgent is sent on websocket and REST requests
const DefaultUserAgent = "pairs-monitor/1.0 (+https://github.com)"

// streamEnvelope wraps every combined-stream payload.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// tradeEvent is the <symbol>@trade payload.
type tradeEvent struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// restTrade is one row of GET /fapi/v1/trades.
type restTrade struct {
	ID           int64  `json:"id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	QuoteQty     string `json:"quoteQty"`
	Time         int64  `json:"time"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

// errNotTrade marks a well-formed message that is not a trade event.
var errNotTrade = errors.New("not a trade event")

// ParseTradeMessage decodes a combined-stream trade message into a tick.
// The symbol is lower-cased and the trade time is used as the timestamp.
func ParseTradeMessage(msg []byte) (domain.Tick, error) {
	var env streamEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return domain.Tick{}, err
	}
	if len(env.Data) == 0 {
		return domain.Tick{}, errNotTrade
	}

	var ev tradeEvent
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		return domain.Tick{}, err
	}
	if ev.EventType != "trade" {
		return domain.Tick{}, errNotTrade
	}

	symbol := ev.Symbol
	if symbol == "" {
		symbol, _, _ = strings.Cut(env.Stream, "@")
	}
	return toTick(symbol, ev.Price, ev.Quantity, ev.TradeTime)
}

func toTick(symbol, price, qty string, ts int64) (domain.Tick, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("invalid price %q: %w", price, err)
	}
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("invalid quantity %q: %w", qty, err)
	}
	return domain.Tick{
		Symbol:    domain.NormalizeSymbol(symbol),
		Price:     p.InexactFloat64(),
		Quantity:  q.InexactFloat64(),
		Timestamp: ts,
	}, nil
}

// StreamURL builds the combined trade stream URL for symbols,
// e.g. wss://fstream.binance.com/stream?streams=btcusdt@trade/ethusdt@trade.
func StreamURL(base string, symbols []string) string {
	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = domain.NormalizeSymbol(s) + "@trade"
	}
	return strings.TrimRight(base, "/?") + "?streams=" + strings.Join(streams, "/")
}
