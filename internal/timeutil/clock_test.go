package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClockSince(t *testing.T) {
	clock := RealClock{}
	start := time.Now().Add(-time.Second)
	if got := clock.Since(start); got < time.Second {
		t.Errorf("Since() = %v, expected at least 1s", got)
	}
}

func TestRealClockTicker(t *testing.T) {
	clock := RealClock{}
	ticker := clock.NewTicker(time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire within 1s")
	}
}

func TestMockClockNowAndSet(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := NewMockClock(base)

	if got := clock.Now(); !got.Equal(base) {
		t.Errorf("Now() = %v, want %v", got, base)
	}

	later := base.Add(time.Hour)
	clock.Set(later)
	if got := clock.Now(); !got.Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", got, later)
	}
}

func TestMockClockSince(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := NewMockClock(base)
	clock.Advance(5 * time.Second)

	if got := clock.Since(base); got != 5*time.Second {
		t.Errorf("Since() = %v, want 5s", got)
	}
}

func TestMockClockAdvanceFiresTicker(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := NewMockClock(base)
	ticker := clock.NewTicker(time.Second)

	clock.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired before its interval elapsed")
	default:
	}

	clock.Advance(600 * time.Millisecond)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after interval elapsed")
	}
}

func TestMockTickerStop(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := NewMockClock(base)
	ticker := clock.NewTicker(time.Second)
	ticker.Stop()

	clock.Advance(2 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestMockTickerTrigger(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := NewMockClock(base)
	ticker := clock.NewTicker(time.Hour).(*MockTicker)

	ticker.Trigger(base)
	select {
	case got := <-ticker.C():
		if !got.Equal(base) {
			t.Errorf("tick time = %v, want %v", got, base)
		}
	default:
		t.Fatal("Trigger did not deliver a tick")
	}
}
