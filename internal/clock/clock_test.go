package clock_test

import (
	"testing"
	"time"

	"github.com/AndrewDonelson/savestate/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestMockClock_Set(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clk.Set(ts)
	assert.Equal(t, ts, clk.Now())
}

func TestMockClock_Advance(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	before := clk.Now()
	clk.Advance(10 * time.Second)
	assert.Equal(t, 10*time.Second, clk.Now().Sub(before))
}

func TestRealClock(t *testing.T) {
	clk := clock.Real{}
	before := time.Now()
	got := clk.Now()
	after := time.Now()
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestTicker_FirstTickIsZero(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	tk := clock.NewTicker(clk)
	assert.Equal(t, time.Duration(0), tk.Tick())
}

func TestTicker_ReportsElapsed(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	tk := clock.NewTicker(clk)
	tk.Tick()
	clk.Advance(16 * time.Millisecond)
	assert.Equal(t, 16*time.Millisecond, tk.Tick())
	clk.Advance(33 * time.Millisecond)
	assert.Equal(t, 33*time.Millisecond, tk.Tick())
}

func TestTicker_ClockGoingBackwardsIsZero(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	tk := clock.NewTicker(clk)
	tk.Tick()
	clk.Advance(-time.Second)
	assert.Equal(t, time.Duration(0), tk.Tick())
}

func TestTicker_Reset(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	tk := clock.NewTicker(clk)
	tk.Tick()
	clk.Advance(time.Second)
	tk.Reset()
	assert.Equal(t, time.Duration(0), tk.Tick())
}

func TestTicker_NilClockUsesReal(t *testing.T) {
	tk := clock.NewTicker(nil)
	assert.Equal(t, time.Duration(0), tk.Tick())
	assert.GreaterOrEqual(t, tk.Tick(), time.Duration(0))
}
