// Package clock provides the injectable notion of "today" used by schedule
// queries. Query code never calls time.Now directly; it asks a Clock, which
// lets tests and the jump-to-date feature pin the current day.
package clock

import (
	"sync"
	"time"

	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// Clock provides the current civil day.
type Clock interface {
	Today() time.Time
}

// Real reads the wall clock.
type Real struct{}

// Today returns the current calendar day.
func (Real) Today() time.Time {
	return timeutil.StartOfDay(time.Now())
}

// Fixed always returns the same day.
type Fixed struct {
	T time.Time
}

// Today returns the fixed day.
func (f Fixed) Today() time.Time {
	return timeutil.StartOfDay(f.T)
}

// NewFixed returns a Clock pinned to t.
func NewFixed(t time.Time) Clock {
	return Fixed{T: t}
}

// Override is a Clock whose day can be pinned and released at runtime.
// When no day is pinned it defers to its base clock.
// It is the only shared mutable state the query layer reads.
type Override struct {
	mu     sync.RWMutex
	base   Clock
	pinned *time.Time
}

// NewOverride wraps base. A nil base means the wall clock.
func NewOverride(base Clock) *Override {
	if base == nil {
		base = Real{}
	}
	return &Override{base: base}
}

// Today returns the pinned day if set, otherwise the base clock's day.
func (o *Override) Today() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.pinned != nil {
		return *o.pinned
	}
	return o.base.Today()
}

// Set pins today to the day of t.
func (o *Override) Set(t time.Time) {
	day := timeutil.StartOfDay(t)
	o.mu.Lock()
	o.pinned = &day
	o.mu.Unlock()
}

// Reset releases the pinned day.
func (o *Override) Reset() {
	o.mu.Lock()
	o.pinned = nil
	o.mu.Unlock()
}

// IsPinned reports whether a day is currently pinned.
func (o *Override) IsPinned() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pinned != nil
}
