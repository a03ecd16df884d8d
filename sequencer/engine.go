package sequencer

import (
	"math"
	"sync"

	"go-pulse/clock"
	"go-pulse/debug"
	"go-pulse/midilink"
)

// pendingOff is a note-off waiting for its target step to come around.
type pendingOff struct {
	step    int
	note    uint8
	channel uint8 // wire channel 0-15
}

// Engine turns clock pulses into timed note-on/note-off sends for the
// active pattern, respecting per-track mute/solo and channel.
//
// The per-pulse work runs synchronously on the clock's pulse goroutine
// (the clock serializes pulses, and a step boundary is O(notes per step)).
// Transport commands may arrive from the UI goroutine, so all engine state
// sits behind one mutex. Commands never hold that mutex while calling into
// the clock - the clock's listeners run under the clock's own lock, and
// holding both in opposite orders would deadlock.
type Engine struct {
	mu sync.Mutex

	clk *clock.Engine
	out midilink.Sender

	pattern   *Pattern
	step      int
	tickCount int // pulses since the last step boundary
	pending   []pendingOff
	velocity  VelocityCurve

	// UpdateChan receives a signal whenever the playhead moves (for UI
	// refresh). Non-blocking sends; a slow UI just coalesces updates.
	UpdateChan chan struct{}
}

// New creates a playback engine wired to the clock's tick and transport
// notifications.
func New(clk *clock.Engine, out midilink.Sender) *Engine {
	if out == nil {
		out = midilink.Discard
	}
	e := &Engine{
		clk:        clk,
		out:        out,
		velocity:   CurveLinear,
		UpdateChan: make(chan struct{}, 1),
	}
	clk.SetTickFunc(e.handlePulse)
	clk.SetTransportFunc(e.handleTransport)
	return e
}

// SetOutput replaces the output link.
func (e *Engine) SetOutput(out midilink.Sender) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if out == nil {
		out = midilink.Discard
	}
	e.out = out
}

// SetVelocityCurve sets the shaping curve applied to note velocities
// before volume scaling. Unknown names keep the current curve.
func (e *Engine) SetVelocityCurve(name string) {
	curve, ok := Curves[name]
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.velocity = curve
}

// CurrentStep returns the playhead position within the active pattern.
func (e *Engine) CurrentStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// Pattern returns the active pattern snapshot (nil if none).
func (e *Engine) Pattern() *Pattern {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pattern
}

// Play makes the pattern active from step zero and starts the clock.
func (e *Engine) Play(p *Pattern) {
	e.mu.Lock()
	e.flushLocked()
	e.pattern = p
	e.step = 0
	e.tickCount = 0
	e.mu.Unlock()

	e.clk.Start()
	e.notifyUpdate()
}

// Stop sends all-notes-off, stops the clock, and resets the playhead.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.flushLocked()
	e.step = 0
	e.tickCount = 0
	e.mu.Unlock()

	e.clk.Stop()
	e.notifyUpdate()
}

// Pause sends all-notes-off and stops the clock but keeps the playhead,
// so Resume continues from where it left off.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.flushLocked()
	e.mu.Unlock()

	e.clk.Stop()
}

// Resume continues playback from the current playhead position.
func (e *Engine) Resume() {
	e.clk.Continue()
}

// SwitchPattern replaces the active pattern. With QuantizeNone the switch
// is immediate and the playhead keeps its step index into the new pattern.
// Beat/bar quantization is not implemented; those requests degrade to an
// immediate switch (logged so the degradation is visible).
func (e *Engine) SwitchPattern(p *Pattern, q LaunchQuantize) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if q != QuantizeNone {
		debug.Log("playback", "quantize %q not implemented, switching immediately", q)
	}
	e.pattern = p
}

// ToggleMute flips a track's mute flag on the active pattern. Mute/solo
// flags are the one part of a pattern touched after hand-off, so the
// mutation happens under the engine lock, never racing a step boundary.
func (e *Engine) ToggleMute(track int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pattern == nil || track < 0 || track >= len(e.pattern.Tracks) {
		return
	}
	e.pattern.Tracks[track].Muted = !e.pattern.Tracks[track].Muted
}

// ToggleSolo flips a track's solo flag on the active pattern.
func (e *Engine) ToggleSolo(track int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pattern == nil || track < 0 || track >= len(e.pattern.Tracks) {
		return
	}
	e.pattern.Tracks[track].Solo = !e.pattern.Tracks[track].Solo
}

// handlePulse is the clock tick listener. It runs on the pulse goroutine,
// serialized by the clock, so step-boundary processing never interleaves
// with itself.
func (e *Engine) handlePulse(p clock.Pulse) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pattern == nil || p.Transport != clock.TransportPlaying {
		return
	}

	ticksPerStep := p.PPQN / 4 // 16th-note steps
	if ticksPerStep < 1 {
		ticksPerStep = 1
	}

	e.tickCount++
	if e.tickCount < ticksPerStep {
		return
	}
	e.tickCount = 0
	e.stepBoundaryLocked()
	e.notifyUpdate()
}

// stepBoundaryLocked performs one step transition in the fixed order:
// note-offs due at the current step, then note-ons, then advance. Offs
// before ons means a note lasting exactly one step is released on the same
// pulse its back-to-back repeat is struck - no gap, no overlap.
func (e *Engine) stepBoundaryLocked() {
	pat := e.pattern

	// Note-off phase
	kept := e.pending[:0]
	for _, off := range e.pending {
		if off.step == e.step {
			e.send(midilink.Event{Type: midilink.NoteOff, Channel: off.channel, Note: off.note})
		} else {
			kept = append(kept, off)
		}
	}
	e.pending = kept

	// Note-on phase
	anySolo := pat.AnySolo()
	for _, track := range pat.Tracks {
		if !track.ShouldPlay(anySolo) {
			continue
		}
		for _, n := range track.Notes {
			if n.Step != e.step {
				continue
			}
			if n.Step < 0 || n.Step >= pat.StepCount {
				// Producers should never hand us these; skip rather
				// than let a stray index desync the grid.
				continue
			}
			note := mapNote(track.NoteMap, n.Note)
			vel := scaleVelocity(e.velocity(n.Velocity), track.Volume)
			ch := track.Channel - 1
			e.send(midilink.Event{Type: midilink.NoteOn, Channel: ch, Note: note, Velocity: vel})
			e.pending = append(e.pending, pendingOff{
				step:    (e.step + int(n.Duration)) % pat.StepCount,
				note:    note,
				channel: ch,
			})
		}
	}

	// Advance
	e.step = (e.step + 1) % pat.StepCount
}

// handleTransport is the clock's transport listener. On stop it releases
// anything still sounding; the playhead is left alone so an external stop
// behaves like Pause (explicit Stop resets it).
func (e *Engine) handleTransport(t clock.Transport) {
	if t != clock.TransportStopped {
		return
	}
	e.mu.Lock()
	e.flushLocked()
	e.mu.Unlock()
}

// flushLocked sends a note-off for every pending note and clears the set.
func (e *Engine) flushLocked() {
	for _, off := range e.pending {
		e.send(midilink.Event{Type: midilink.NoteOff, Channel: off.channel, Note: off.note})
	}
	e.pending = e.pending[:0]
}

// send is best-effort: a failed send is logged and playback carries on.
// Engine state never depends on whether a message reached the device.
func (e *Engine) send(ev midilink.Event) {
	if err := e.out.Send(ev); err != nil {
		debug.Log("playback", "send %s failed: %v", ev, err)
	}
}

func (e *Engine) notifyUpdate() {
	select {
	case e.UpdateChan <- struct{}{}:
	default:
	}
}

// scaleVelocity applies track volume and pins the result to the legal
// note-on range.
func scaleVelocity(vel uint8, volume float64) uint8 {
	v := math.Round(float64(vel) * volume)
	if v < 1 {
		v = 1
	}
	if v > 127 {
		v = 127
	}
	return uint8(v)
}
