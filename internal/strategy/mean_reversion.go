package strategy

import (
	"pairs_go/internal/domain"
)

const (
	DefaultEntryThreshold = 2.0
	DefaultExitThreshold  = 0.0
)

// MeanReversion shorts the spread above +Entry and buys it below -Entry,
// closing when the z-score returns to Exit (short) or -Exit (long).
// One position at a time. Open positions are never force-closed.
type MeanReversion struct {
	Entry float64
	Exit  float64

	pos        domain.Position
	entryIndex int
	entryTime  int64
}

// NewMeanReversion creates a flat state machine.
func NewMeanReversion(entry, exit float64) *MeanReversion {
	return &MeanReversion{Entry: entry, Exit: exit}
}

// Position returns the currently held position.
func (m *MeanReversion) Position() domain.Position {
	return m.pos
}

// Reset returns the machine to Flat.
func (m *MeanReversion) Reset() {
	m.pos = domain.Position{}
	m.entryIndex = 0
	m.entryTime = 0
}

// Step evaluates one point and reports the transition taken, if any.
func (m *MeanReversion) Step(i int, p domain.AnalyticsPoint) (Action, bool) {
	act := Action{Index: i, Timestamp: p.Timestamp, Spread: p.Spread, ZScore: p.ZScore}

	switch m.pos.Side {
	case domain.Flat:
		switch {
		case p.ZScore > m.Entry:
			m.open(domain.ShortSpread, i, p)
			act.Type = ActionEnterShort
		case p.ZScore < -m.Entry:
			m.open(domain.LongSpread, i, p)
			act.Type = ActionEnterLong
		default:
			return Action{}, false
		}

	case domain.ShortSpread:
		if p.ZScore > m.Exit {
			return Action{}, false
		}
		act.Type = ActionExit
		act.PnL = m.pos.EntryPrice - p.Spread
		m.pos = domain.Position{}

	case domain.LongSpread:
		if p.ZScore < -m.Exit {
			return Action{}, false
		}
		act.Type = ActionExit
		act.PnL = p.Spread - m.pos.EntryPrice
		m.pos = domain.Position{}
	}
	return act, true
}

func (m *MeanReversion) open(side domain.PositionSide, i int, p domain.AnalyticsPoint) {
	m.pos = domain.Position{Side: side, EntryPrice: p.Spread}
	m.entryIndex = i
	m.entryTime = p.Timestamp
}

// Run backtests the whole series from Flat.
func (m *MeanReversion) Run(points []domain.AnalyticsPoint) domain.TradeResult {
	res, _ := m.RunLedger(points)
	return res
}

// RunLedger is Run plus the list of closed trades.
func (m *MeanReversion) RunLedger(points []domain.AnalyticsPoint) (domain.TradeResult, []domain.Trade) {
	m.Reset()

	var (
		res    domain.TradeResult
		trades []domain.Trade
	)
	for i, p := range points {
		side, entryIdx, entryTime, entrySpread := m.pos.Side, m.entryIndex, m.entryTime, m.pos.EntryPrice

		act, ok := m.Step(i, p)
		if !ok || act.Type != ActionExit {
			continue
		}
		res.TotalTrades++
		res.TotalPnL += act.PnL
		if act.PnL > 0 {
			res.WinningTrades++
		}
		trades = append(trades, domain.Trade{
			Side:        side,
			EntryIndex:  entryIdx,
			ExitIndex:   i,
			EntryTime:   entryTime,
			ExitTime:    p.Timestamp,
			EntrySpread: entrySpread,
			ExitSpread:  p.Spread,
			PnL:         act.PnL,
		})
	}

	if res.TotalTrades > 0 {
		res.WinRate = float64(res.WinningTrades) / float64(res.TotalTrades) * 100
	}
	res.Status = domain.StatusFlat
	if m.pos.IsOpen() {
		res.Status = domain.StatusActive
	}
	return res, trades
}
