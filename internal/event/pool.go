package event

import (
	"sync"

	"pairs_go/internal/domain"
)

// Tick events arrive at feed rate; pooling keeps the ingest path allocation free.
//
// Usage:
//
//	ev := AcquireTickEvent()
//	ev.Tick = t
//	// ... hand to the monitor, which releases it after buffering ...
//	ReleaseTickEvent(ev)
var tickPool = sync.Pool{
	New: func() interface{} {
		return &TickEvent{}
	},
}

// AcquireTickEvent gets a TickEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireTickEvent() *TickEvent {
	return tickPool.Get().(*TickEvent)
}

// ReleaseTickEvent returns a TickEvent to the pool after zeroing it.
func ReleaseTickEvent(ev *TickEvent) {
	if ev == nil {
		return
	}
	ev.Tick = domain.Tick{}
	tickPool.Put(ev)
}

// Warmup pre-allocates tick events to reduce GC pressure at startup.
func Warmup(n int) {
	evs := make([]*TickEvent, 0, n)
	for i := 0; i < n; i++ {
		evs = append(evs, AcquireTickEvent())
	}
	for _, ev := range evs {
		ReleaseTickEvent(ev)
	}
}
