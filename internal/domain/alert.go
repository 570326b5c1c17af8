package domain

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Bound identifies which side of the band was breached.
type Bound string

const (
	BoundUpper Bound = "Upper"
	BoundLower Bound = "Lower"
)

// Alert is a single z-score breach record.
type Alert struct {
	ID        string    `json:"id"`
	Bound     Bound     `json:"bound"`
	ZScore    float64   `json:"z_score"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckBreach reports whether |z| exceeds threshold and on which side.
// The comparison is strict, a z-score equal to the threshold does not breach.
func CheckBreach(z, threshold float64) (Bound, bool) {
	if math.IsNaN(z) || math.Abs(z) <= threshold {
		return "", false
	}
	if z > 0 {
		return BoundUpper, true
	}
	return BoundLower, true
}

// BreachMessage formats the alert text, e.g. "Upper Bound Breach: Z-Score 2.345".
func BreachMessage(bound Bound, z float64) string {
	return fmt.Sprintf("%s Bound Breach: Z-Score %.3f", bound, z)
}

const (
	DefaultAlertDedupWindow = 2 * time.Second
	DefaultAlertCapacity    = 200
)

// AlertLog is an append-only, capped list of breach alerts.
// An alert whose message equals the last entry's message is dropped
// when it arrives within the dedup window.
type AlertLog struct {
	mu       sync.RWMutex
	entries  []Alert
	capacity int
	window   time.Duration
}

// NewAlertLog creates an alert log. Non-positive arguments fall back to defaults.
func NewAlertLog(capacity int, window time.Duration) *AlertLog {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	if window <= 0 {
		window = DefaultAlertDedupWindow
	}
	return &AlertLog{
		entries:  make([]Alert, 0, capacity),
		capacity: capacity,
		window:   window,
	}
}

// Record appends an alert for z if it breaches threshold.
// Returns the stored alert and true, or false when nothing was recorded.
func (l *AlertLog) Record(z, threshold float64, now time.Time) (Alert, bool) {
	bound, ok := CheckBreach(z, threshold)
	if !ok {
		return Alert{}, false
	}
	msg := BreachMessage(bound, z)

	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.entries); n > 0 {
		last := l.entries[n-1]
		if last.Message == msg && now.Sub(last.Timestamp) < l.window {
			return Alert{}, false
		}
	}

	a := Alert{
		ID:        uuid.NewString(),
		Bound:     bound,
		ZScore:    z,
		Message:   msg,
		Timestamp: now,
	}
	if len(l.entries) >= l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, a)
	return a, true
}

// List returns a copy of the entries, oldest first.
func (l *AlertLog) List() []Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Alert, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of stored alerts.
func (l *AlertLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear drops all entries.
func (l *AlertLog) Clear() {
	l.mu.Lock()
	l.entries = l.entries[:0]
	l.mu.Unlock()
}
