package domain

// PositionSide is the spread position held by the backtest.
type PositionSide int

const (
	Flat PositionSide = iota
	ShortSpread
	LongSpread
)

// String returns the string representation of PositionSide
func (s PositionSide) String() string {
	switch s {
	case Flat:
		return "FLAT"
	case ShortSpread:
		return "SHORT_SPREAD"
	case LongSpread:
		return "LONG_SPREAD"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the side by name in JSON.
func (s PositionSide) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Position is the single live position of a backtest run.
// EntryPrice is the spread value at entry and is meaningless while Flat.
type Position struct {
	Side       PositionSide
	EntryPrice float64
}

// IsOpen checks if the position is holding a spread.
func (p Position) IsOpen() bool {
	return p.Side != Flat
}

const (
	StatusActive = "active"
	StatusFlat   = "flat"
)

// TradeResult summarizes one backtest pass.
type TradeResult struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	TotalPnL      float64 `json:"total_pnl"`
	WinRate       float64 `json:"win_rate"` // percent, 0 when no trades
	Status        string  `json:"status"`   // "active" or "flat"
}

// Trade is one closed round trip of the backtest.
type Trade struct {
	Side        PositionSide `json:"side"`
	EntryIndex  int          `json:"entry_index"`
	ExitIndex   int          `json:"exit_index"`
	EntryTime   int64        `json:"entry_time"`
	ExitTime    int64        `json:"exit_time"`
	EntrySpread float64      `json:"entry_spread"`
	ExitSpread  float64      `json:"exit_spread"`
	PnL         float64      `json:"pnl"`
}
