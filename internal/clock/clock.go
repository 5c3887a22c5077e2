// Package clock supplies the vault's timestamps in unix milliseconds.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in unix milliseconds.
type Clock interface {
	Now() int64
}

// System reads the wall clock.
type System struct{}

// Now implements Clock.
func (System) Now() int64 {
	return time.Now().UnixMilli()
}

// Monotonic wraps a Clock so that reads never go backwards.
// A source reading earlier than the last returned value yields that value again.
type Monotonic struct {
	mu     sync.Mutex
	source Clock
	last   int64
}

// NewMonotonic wraps source. A nil source uses System.
func NewMonotonic(source Clock) *Monotonic {
	if source == nil {
		source = System{}
	}
	return &Monotonic{source: source}
}

// Now implements Clock.
func (m *Monotonic) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.source.Now()
	if now < m.last {
		return m.last
	}
	m.last = now
	return now
}

// Manual is a Clock set by hand.
type Manual struct {
	mu  sync.Mutex
	now int64
}

// NewManual creates a Manual clock reading now.
func NewManual(now int64) *Manual {
	return &Manual{now: now}
}

// Now implements Clock.
func (m *Manual) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to now.
func (m *Manual) Set(now int64) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d.Milliseconds()
	m.mu.Unlock()
}
