// Package clock provides a testable time source for save timestamps, load
// settle delays and tick pacing.
package clock

import (
	"sync"
	"time"
)

// Clock is an interface for getting the current time.
type Clock interface {
	Now() time.Time
}

// Real is the production clock -- uses system time.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a controllable clock for tests. It is safe for concurrent use.
type Mock struct {
	mu      sync.Mutex
	current time.Time
}

// NewMock creates a Mock clock set to the given time.
func NewMock(t time.Time) *Mock {
	if t.IsZero() {
		t = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Mock{current: t}
}

// Now returns the mock clock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set sets the mock clock to an absolute time.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// Advance moves the clock forward by the given duration.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}

// Ticker measures the time elapsed between successive calls to Tick.
// The first Tick after construction or Reset reports zero.
type Ticker struct {
	clk  Clock
	last time.Time
}

// NewTicker returns a Ticker reading from clk. A nil clk uses Real.
func NewTicker(clk Clock) *Ticker {
	if clk == nil {
		clk = Real{}
	}
	return &Ticker{clk: clk}
}

// Tick returns the time elapsed since the previous Tick.
func (t *Ticker) Tick() time.Duration {
	now := t.clk.Now()
	if t.last.IsZero() {
		t.last = now
		return 0
	}
	d := now.Sub(t.last)
	t.last = now
	if d < 0 {
		return 0
	}
	return d
}

// Reset forgets the previous tick.
func (t *Ticker) Reset() { t.last = time.Time{} }
