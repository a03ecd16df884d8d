package clock

import "time"

const (
	tapCapacity = 4
	tapTimeout  = 2 * time.Second
)

// TapTempo estimates a tempo from a rolling window of tap timestamps.
// It keeps the most recent taps (up to tapCapacity) and averages the
// intervals between them. A gap longer than tapTimeout starts a fresh
// window, so a stale tap from minutes ago never skews the estimate.
type TapTempo struct {
	taps []time.Time
	now  func() time.Time // injectable for tests
}

// NewTapTempo creates an estimator using the wall clock.
func NewTapTempo() *TapTempo {
	return &TapTempo{now: time.Now}
}

// Tap records a tap and returns the current estimate in BPM.
// ok is false until at least two taps are in the window.
func (t *TapTempo) Tap() (bpm float64, ok bool) {
	now := t.now()

	if n := len(t.taps); n > 0 && now.Sub(t.taps[n-1]) > tapTimeout {
		t.taps = t.taps[:0]
	}

	t.taps = append(t.taps, now)
	if len(t.taps) > tapCapacity {
		t.taps = t.taps[1:]
	}

	return t.estimate()
}

func (t *TapTempo) estimate() (float64, bool) {
	if len(t.taps) < 2 {
		return 0, false
	}
	span := t.taps[len(t.taps)-1].Sub(t.taps[0])
	mean := span.Seconds() / float64(len(t.taps)-1)
	return clampBPM(60 / mean), true
}

// Reset clears the tap history.
func (t *TapTempo) Reset() {
	t.taps = t.taps[:0]
}

// Count returns how many taps are in the window (for UI feedback).
func (t *TapTempo) Count() int {
	return len(t.taps)
}
