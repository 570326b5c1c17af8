package engine

import "pairs_go/internal/domain"

// DefaultBufferSize is the per-symbol tick capacity.
const DefaultBufferSize = 10_000

// TickBuffer is a fixed-capacity ring of ticks. When full, the oldest tick
// is overwritten. Not safe for concurrent use; the monitor loop owns it.
type TickBuffer struct {
	ticks []domain.Tick
	head  int // next write position
	count int
}

func NewTickBuffer(capacity int) *TickBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &TickBuffer{ticks: make([]domain.Tick, capacity)}
}

// Push appends t, evicting the oldest tick when full.
func (b *TickBuffer) Push(t domain.Tick) {
	b.ticks[b.head] = t
	b.head = (b.head + 1) % len(b.ticks)
	if b.count < len(b.ticks) {
		b.count++
	}
}

// Len returns the number of buffered ticks.
func (b *TickBuffer) Len() int {
	return b.count
}

// Cap returns the buffer capacity.
func (b *TickBuffer) Cap() int {
	return len(b.ticks)
}

// Snapshot copies the buffered ticks in insertion order.
func (b *TickBuffer) Snapshot() []domain.Tick {
	out := make([]domain.Tick, b.count)
	start := (b.head - b.count + len(b.ticks)) % len(b.ticks)
	n := copy(out, b.ticks[start:min(start+b.count, len(b.ticks))])
	copy(out[n:], b.ticks[:b.count-n])
	return out
}

// Last returns the most recently pushed tick.
func (b *TickBuffer) Last() (domain.Tick, bool) {
	if b.count == 0 {
		return domain.Tick{}, false
	}
	return b.ticks[(b.head-1+len(b.ticks))%len(b.ticks)], true
}

// Reset drops every buffered tick and keeps the capacity.
func (b *TickBuffer) Reset() {
	clear(b.ticks)
	b.head = 0
	b.count = 0
}
