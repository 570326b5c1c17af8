package strategy

import (
	"pairs_go/internal/domain"
)

// ActionType defines the type of position change
type ActionType int

const (
	ActionEnterShort ActionType = iota + 1
	ActionEnterLong
	ActionExit
)

// String returns the string representation of ActionType
func (a ActionType) String() string {
	switch a {
	case ActionEnterShort:
		return "ENTER_SHORT"
	case ActionEnterLong:
		return "ENTER_LONG"
	case ActionExit:
		return "EXIT"
	default:
		return "UNKNOWN"
	}
}

// Action represents a position change decided at one point
type Action struct {
	Type      ActionType
	Index     int
	Timestamp int64
	Spread    float64
	ZScore    float64
	PnL       float64 // realized, only set on ActionExit
}

// Strategy consumes an analytics series point by point.
// Step is called in series order; Reset returns it to Flat.
type Strategy interface {
	Step(i int, p domain.AnalyticsPoint) (Action, bool)
	Position() domain.Position
	Reset()
}
