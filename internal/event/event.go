// Package event defines the messages accepted by the monitor inbox.
package event

import (
	"pairs_go/internal/analytics"
	"pairs_go/internal/domain"
)

// Type identifies an event kind.
type Type int

const (
	TypeTick Type = iota + 1
	TypeBatch
	TypeParams
	TypePair
)

func (t Type) String() string {
	switch t {
	case TypeTick:
		return "TICK"
	case TypeBatch:
		return "BATCH"
	case TypeParams:
		return "PARAMS"
	case TypePair:
		return "PAIR"
	default:
		return "UNKNOWN"
	}
}

// Event is anything the monitor loop consumes.
type Event interface {
	GetType() Type
}

// TickEvent carries one live trade.
type TickEvent struct {
	Tick domain.Tick
}

func (*TickEvent) GetType() Type { return TypeTick }

// BatchEvent carries backfilled trades for one or both legs.
type BatchEvent struct {
	Ticks []domain.Tick
}

func (*BatchEvent) GetType() Type { return TypeBatch }

// ParamsEvent replaces the pipeline parameters.
type ParamsEvent struct {
	Params analytics.Params
}

func (*ParamsEvent) GetType() Type { return TypeParams }

// PairEvent switches the monitored instruments. Both buffers are cleared.
type PairEvent struct {
	SymbolA string
	SymbolB string
}

func (*PairEvent) GetType() Type { return TypePair }
