package clock

import (
	"runtime"
	"sync"
	"time"

	"go-pulse/debug"
	"go-pulse/midilink"
)

// Transport is the playing/stopped state, independent of whether pulses
// are actively being generated (see Mode).
type Transport int

const (
	TransportStopped Transport = iota
	TransportPlaying
)

func (t Transport) String() string {
	if t == TransportPlaying {
		return "playing"
	}
	return "stopped"
}

// Mode controls how the pulse source is tied to the transport.
type Mode int

const (
	// ModeAuto starts and stops the pulse source with the transport.
	ModeAuto Mode = iota
	// ModeManual leaves the pulse source entirely to StartClock/StopClock.
	ModeManual
	// ModeAlways expects the pulse source to run continuously; the caller
	// starts it once and transport commands never touch it.
	ModeAlways
)

// Tempo bounds. Out-of-range values are clamped, never rejected.
const (
	MinBPM = 20.0
	MaxBPM = 300.0
)

// PPQNValues are the supported pulse resolutions.
var PPQNValues = [...]int{4, 24, 48, 96}

// Pulse is the payload handed to the tick listener, one per clock pulse.
// It carries everything a consumer needs so the listener never has to call
// back into the engine.
type Pulse struct {
	Ticks     int64 // pulses since the last Start
	PPQN      int
	Transport Transport
}

// Engine generates a periodic MIDI clock pulse at 60/(bpm*ppqn) seconds,
// drives the transport state machine, and emits timing protocol messages
// to the output link.
//
// The pulse source runs on its own goroutine. All mutable state is guarded
// by one mutex, held across the whole of every command and every pulse,
// including the listener invocation - so listeners run once per pulse, in
// pulse order, never concurrently. Listeners must be fast and must not call
// back into the engine.
type Engine struct {
	mu sync.Mutex

	out midilink.Sender

	bpm       float64
	ppqn      int
	transport Transport
	mode      Mode
	recording bool

	ticks int64 // pulses since last Start

	ticker *time.Ticker
	stop   chan struct{}

	tap *TapTempo

	tickFunc      func(Pulse)
	transportFunc func(Transport)
}

// New creates a stopped engine at 120 BPM, 24 PPQN, auto clock mode.
func New(out midilink.Sender) *Engine {
	if out == nil {
		out = midilink.Discard
	}
	return &Engine{
		out:  out,
		bpm:  120,
		ppqn: 24,
		mode: ModeAuto,
		tap:  NewTapTempo(),
	}
}

// SetTickFunc registers the per-pulse listener. It is invoked on the pulse
// goroutine with the engine lock held; keep it short and non-blocking.
func (e *Engine) SetTickFunc(f func(Pulse)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickFunc = f
}

// SetTransportFunc registers a listener for transport changes. Same
// contract as SetTickFunc: called with the engine lock held.
func (e *Engine) SetTransportFunc(f func(Transport)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transportFunc = f
}

// SetOutput replaces the output link (e.g. after the user picks a port).
func (e *Engine) SetOutput(out midilink.Sender) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if out == nil {
		out = midilink.Discard
	}
	e.out = out
}

// SetBPM sets the tempo, clamped to [MinBPM, MaxBPM]. If the pulse source
// is running, its existing ticker is rescheduled to the new interval
// starting now - no missed-pulse backlog, no burst.
func (e *Engine) SetBPM(bpm float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bpm = clampBPM(bpm)
	e.rescheduleLocked()
}

// SetPPQN sets the pulse resolution, snapped to the nearest supported
// value, and reschedules the running ticker like SetBPM.
func (e *Engine) SetPPQN(ppqn int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ppqn = snapPPQN(ppqn)
	e.rescheduleLocked()
}

// SetMode sets the clock mode. Switching modes never starts or stops the
// pulse source by itself.
func (e *Engine) SetMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = m
}

// SetRecording toggles the recording flag. Recording is orthogonal to the
// transport; it does not affect pulse generation.
func (e *Engine) SetRecording(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recording = on
}

// BPM returns the effective (clamped) tempo.
func (e *Engine) BPM() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bpm
}

// PPQN returns the effective pulse resolution.
func (e *Engine) PPQN() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ppqn
}

// Mode returns the clock mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Recording reports the recording flag.
func (e *Engine) Recording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recording
}

// Transport returns the current transport state.
func (e *Engine) Transport() Transport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transport
}

// ClockRunning reports whether the pulse source is active.
func (e *Engine) ClockRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticker != nil
}

// Ticks returns the pulse count since the last Start.
func (e *Engine) Ticks() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// IntervalMs returns the pulse interval in milliseconds: 60000/(bpm*ppqn).
func (e *Engine) IntervalMs() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return 60000 / (e.bpm * float64(e.ppqn))
}

// Start begins playback from pulse zero: resets the counters, emits a
// Start message, and (in ModeAuto) starts the pulse source. No-op while
// already playing.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.transport == TransportPlaying {
		return
	}
	e.ticks = 0
	e.transport = TransportPlaying
	e.emitLocked(midilink.Event{Type: midilink.Start})
	if e.mode == ModeAuto {
		e.startClockLocked()
	}
	e.notifyTransportLocked()
}

// Stop halts playback: emits a Stop message and (in ModeAuto) cancels the
// pulse source. Counters are kept so Continue can resume. No-op while
// already stopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.transport == TransportStopped {
		return
	}
	if e.mode == ModeAuto {
		e.stopClockLocked()
	}
	e.transport = TransportStopped
	e.emitLocked(midilink.Event{Type: midilink.Stop})
	e.notifyTransportLocked()
}

// Continue resumes playback from the current position without resetting
// counters. No-op while already playing.
func (e *Engine) Continue() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.transport == TransportPlaying {
		return
	}
	e.transport = TransportPlaying
	e.emitLocked(midilink.Event{Type: midilink.Continue})
	if e.mode == ModeAuto && e.ticker == nil {
		e.startClockLocked()
	}
	e.notifyTransportLocked()
}

// TogglePlayback flips between Start and Stop.
func (e *Engine) TogglePlayback() {
	if e.Transport() == TransportPlaying {
		e.Stop()
	} else {
		e.Start()
	}
}

// StartClock starts the pulse source independently of the transport
// (ModeManual/ModeAlways). No-op if already running.
func (e *Engine) StartClock() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startClockLocked()
}

// StopClock cancels the pulse source. Once it returns, no further pulse
// will be observed: a pulse already in flight detects the cancellation
// and aborts before emitting anything.
func (e *Engine) StopClock() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopClockLocked()
}

// ToggleClock flips the pulse source on or off.
func (e *Engine) ToggleClock() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ticker != nil {
		e.stopClockLocked()
	} else {
		e.startClockLocked()
	}
}

// SetPosition moves the song position to the given MIDI beat (ppqn/4
// pulses per beat) and emits a position-locate message. It does not start
// playback.
func (e *Engine) SetPosition(beat int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if beat < 0 {
		beat = 0
	}
	e.ticks = int64(beat) * int64(e.ppqn/4)
	e.emitLocked(midilink.Event{Type: midilink.PositionLocate, Beat: uint16(beat) & 0x3FFF})
}

// Rewind moves the song position back to beat zero.
func (e *Engine) Rewind() {
	e.SetPosition(0)
}

// Beat returns the current song position in MIDI beats.
func (e *Engine) Beat() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(e.ticks / int64(e.ppqn/4))
}

// Tap records a tap-tempo tap. When at least two taps are in the window it
// returns the estimate; with autoApply it also writes the estimate into
// the tempo (clamping and rescheduling like SetBPM).
func (e *Engine) Tap(autoApply bool) (bpm float64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bpm, ok = e.tap.Tap()
	if ok && autoApply {
		e.bpm = clampBPM(bpm)
		e.rescheduleLocked()
	}
	return bpm, ok
}

// TapCount returns the number of taps in the estimator window.
func (e *Engine) TapCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tap.Count()
}

// intervalLocked computes the pulse interval from the cached tempo.
func (e *Engine) intervalLocked() time.Duration {
	return time.Duration(float64(time.Minute) / (e.bpm * float64(e.ppqn)))
}

// rescheduleLocked points the running ticker at the current interval.
// Ticker.Reset drops any pending tick, so a tempo change never causes a
// burst of queued pulses or a double-fire.
func (e *Engine) rescheduleLocked() {
	if e.ticker != nil {
		e.ticker.Reset(e.intervalLocked())
	}
}

func (e *Engine) startClockLocked() {
	if e.ticker != nil {
		return
	}
	e.ticker = time.NewTicker(e.intervalLocked())
	e.stop = make(chan struct{})
	go e.run(e.ticker, e.stop)
	debug.Log("clock", "pulse source started bpm=%.1f ppqn=%d", e.bpm, e.ppqn)
}

func (e *Engine) stopClockLocked() {
	if e.ticker == nil {
		return
	}
	e.ticker.Stop()
	close(e.stop)
	e.ticker = nil
	e.stop = nil
	debug.Log("clock", "pulse source stopped")
}

// run is the dedicated pulse goroutine. It owns no state; every pulse goes
// through the engine lock.
func (e *Engine) run(ticker *time.Ticker, stop chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.pulse(stop)
		}
	}
}

// pulse handles one tick of the pulse source. The stop channel identifies
// the generation this pulse belongs to: if the source was cancelled or
// replaced between the ticker firing and the lock being acquired, the
// pulse aborts without emitting.
func (e *Engine) pulse(stop chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stop != stop {
		return
	}

	e.ticks++
	e.emitLocked(midilink.Event{Type: midilink.TimingPulse})
	debug.LogEvery(96, "clock", "tick=%d transport=%s", e.ticks, e.transport)

	if e.tickFunc != nil {
		e.tickFunc(Pulse{Ticks: e.ticks, PPQN: e.ppqn, Transport: e.transport})
	}
}

// emitLocked sends a protocol message, best-effort. A failed send is
// logged and otherwise ignored - the clock keeps ticking even if nothing
// is listening.
func (e *Engine) emitLocked(ev midilink.Event) {
	if err := e.out.Send(ev); err != nil {
		debug.Log("clock", "send %s failed: %v", ev, err)
	}
}

func (e *Engine) notifyTransportLocked() {
	if e.transportFunc != nil {
		e.transportFunc(e.transport)
	}
}

func clampBPM(bpm float64) float64 {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// snapPPQN returns the supported resolution closest to the requested one.
func snapPPQN(ppqn int) int {
	best := PPQNValues[0]
	for _, v := range PPQNValues[1:] {
		if abs(ppqn-v) < abs(ppqn-best) {
			best = v
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
