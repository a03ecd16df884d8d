package clock

import (
	"math"
	"testing"
	"time"
)

// fakeClock advances by a fixed amount per call
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) advance(d time.Duration) time.Time {
	f.now = f.now.Add(d)
	return f.now
}

func newTestTap() (*TapTempo, *fakeClock) {
	fc := &fakeClock{now: time.Unix(1000, 0)}
	t := NewTapTempo()
	t.now = func() time.Time { return fc.now }
	return t, fc
}

func TestTapTempoEstimate(t *testing.T) {
	tap, fc := newTestTap()

	// 4 taps at exactly 500ms intervals = 120 BPM
	for i := 0; i < 4; i++ {
		if i > 0 {
			fc.advance(500 * time.Millisecond)
		}
		bpm, ok := tap.Tap()
		if i == 0 {
			if ok {
				t.Fatalf("estimate after 1 tap: got %v, want none", bpm)
			}
			continue
		}
		if !ok {
			t.Fatalf("no estimate after %d taps", i+1)
		}
		if math.Abs(bpm-120) > 0.5 {
			t.Errorf("tap %d: bpm = %v, want 120 +/- 0.5", i+1, bpm)
		}
	}

	// A tap after a 3 second gap discards the history
	fc.advance(3 * time.Second)
	if bpm, ok := tap.Tap(); ok {
		t.Errorf("estimate right after timeout reset: got %v, want none", bpm)
	}
	if tap.Count() != 1 {
		t.Errorf("count after reset = %d, want 1", tap.Count())
	}

	// Two more taps rebuild the estimate
	fc.advance(600 * time.Millisecond)
	bpm, ok := tap.Tap()
	if !ok {
		t.Fatal("no estimate after 2 taps post-reset")
	}
	if math.Abs(bpm-100) > 0.5 {
		t.Errorf("bpm = %v, want 100 +/- 0.5", bpm)
	}
}

func TestTapTempoWindowSlides(t *testing.T) {
	tap, fc := newTestTap()

	// Fill the window at 120 BPM, then speed up to 200 BPM. After enough
	// taps the slow ones fall out of the window entirely.
	for i := 0; i < 4; i++ {
		tap.Tap()
		fc.advance(500 * time.Millisecond)
	}
	var bpm float64
	for i := 0; i < 4; i++ {
		fc.advance(300 * time.Millisecond)
		bpm, _ = tap.Tap()
	}
	if math.Abs(bpm-200) > 0.5 {
		t.Errorf("bpm = %v, want 200 +/- 0.5", bpm)
	}
	if tap.Count() != tapCapacity {
		t.Errorf("count = %d, want %d", tap.Count(), tapCapacity)
	}
}

func TestTapTempoClamped(t *testing.T) {
	tap, fc := newTestTap()

	tap.Tap()
	fc.advance(10 * time.Millisecond) // 6000 BPM raw
	bpm, ok := tap.Tap()
	if !ok || bpm != MaxBPM {
		t.Errorf("fast taps: bpm = %v ok = %v, want %v", bpm, ok, MaxBPM)
	}

	tap.Reset()
	if tap.Count() != 0 {
		t.Errorf("count after reset = %d, want 0", tap.Count())
	}

	tap.Tap()
	fc.advance(1900 * time.Millisecond) // ~31.6 BPM, inside the timeout
	if bpm, ok = tap.Tap(); !ok || math.Abs(bpm-31.58) > 0.1 {
		t.Errorf("slow taps: bpm = %v ok = %v, want ~31.58", bpm, ok)
	}
}
