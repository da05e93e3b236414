package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerFiresAtPeriod(t *testing.T) {
	var ticks atomic.Int64
	w := New().Start(10*time.Millisecond, func() { ticks.Add(1) })
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ticks.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", ticks.Load())
	}
}

func TestNoTicksAfterStop(t *testing.T) {
	var ticks atomic.Int64
	w := New().Start(5*time.Millisecond, func() { ticks.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	w.Stop()
	frozen := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	if ticks.Load() != frozen {
		t.Fatalf("tick fired after Stop returned: %d -> %d", frozen, ticks.Load())
	}
}

func TestStopTwiceIsSafe(t *testing.T) {
	w := New().Start(time.Hour, func() {})
	w.Stop()
	w.Stop()
}
