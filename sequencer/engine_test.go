package sequencer

import (
	"errors"
	"sync"
	"testing"

	"go-pulse/clock"
	"go-pulse/midilink"
)

// captureSink records sent events (and can simulate an unplugged device).
type captureSink struct {
	mu     sync.Mutex
	events []midilink.Event
	fail   bool
}

func (c *captureSink) Send(ev midilink.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("device unplugged")
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *captureSink) notes() []midilink.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []midilink.Event
	for _, ev := range c.events {
		if ev.Type == midilink.NoteOn || ev.Type == midilink.NoteOff {
			out = append(out, ev)
		}
	}
	return out
}

func (c *captureSink) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// newTestEngine wires a playback engine to a clock whose pulse source is
// kept off (ModeManual); tests drive ticks by hand through handlePulse.
func newTestEngine() (*Engine, *captureSink) {
	sink := &captureSink{}
	clk := clock.New(nil)
	clk.SetMode(clock.ModeManual)
	return New(clk, sink), sink
}

// tick feeds n pulses at the given resolution with the transport playing.
func tick(e *Engine, ppqn int, n int) {
	for i := 0; i < n; i++ {
		e.handlePulse(clock.Pulse{PPQN: ppqn, Transport: clock.TransportPlaying})
	}
}

func onePattern(stepCount int, notes ...StepNote) *Pattern {
	return &Pattern{
		Name:      "test",
		StepCount: stepCount,
		Tracks:    []*Track{{Channel: 1, Volume: 1, Notes: notes}},
	}
}

func TestStepLifecycle(t *testing.T) {
	e, sink := newTestEngine()
	pat := onePattern(4, StepNote{Step: 0, Note: 60, Velocity: 100, Duration: 1})
	e.Play(pat)

	const ppqn = 24
	const ticksPerStep = ppqn / 4

	// Nothing until the first step boundary
	tick(e, ppqn, ticksPerStep-1)
	if got := sink.notes(); len(got) != 0 {
		t.Fatalf("events before first boundary: %v", got)
	}

	// Boundary 1: step 0 processed, note-on fires, playhead moves to 1
	tick(e, ppqn, 1)
	want := midilink.Event{Type: midilink.NoteOn, Channel: 0, Note: 60, Velocity: 100}
	if got := sink.notes(); len(got) != 1 || got[0] != want {
		t.Fatalf("first boundary events = %v, want [%v]", got, want)
	}
	if got := e.CurrentStep(); got != 1 {
		t.Errorf("step after first boundary = %d, want 1", got)
	}

	// Boundary 2: the one-step note is released at step 1
	tick(e, ppqn, ticksPerStep)
	got := sink.notes()
	if len(got) != 2 || got[1].Type != midilink.NoteOff || got[1].Note != 60 {
		t.Fatalf("second boundary events = %v, want trailing note-off 60", got)
	}

	// Playhead cycles 0 -> 1 -> 2 -> 3 -> 0
	for i, wantStep := range []int{3, 0, 1} {
		tick(e, ppqn, ticksPerStep)
		if got := e.CurrentStep(); got != wantStep {
			t.Errorf("cycle %d: step = %d, want %d", i, got, wantStep)
		}
	}
}

func TestBackToBackNotesOffBeforeOn(t *testing.T) {
	e, sink := newTestEngine()
	pat := onePattern(4,
		StepNote{Step: 0, Note: 60, Velocity: 100, Duration: 1},
		StepNote{Step: 1, Note: 60, Velocity: 100, Duration: 1},
	)
	e.Play(pat)

	tick(e, 4, 2) // ppqn 4: every pulse is a boundary
	got := sink.notes()
	wantTypes := []midilink.EventType{midilink.NoteOn, midilink.NoteOff, midilink.NoteOn}
	if len(got) != len(wantTypes) {
		t.Fatalf("events = %v, want %d note events", got, len(wantTypes))
	}
	for i, wt := range wantTypes {
		if got[i].Type != wt {
			t.Errorf("event %d = %v, want type %d (off-before-on ordering)", i, got[i], wt)
		}
	}
}

func TestNoteDurationSpansSteps(t *testing.T) {
	e, sink := newTestEngine()
	pat := onePattern(8, StepNote{Step: 0, Note: 72, Velocity: 90, Duration: 2.5})
	e.Play(pat)

	// floor(2.5) = 2 steps: on at boundary 1, off at boundary 3
	tick(e, 4, 2)
	if got := sink.notes(); len(got) != 1 {
		t.Fatalf("after 2 boundaries: %v, want note-on only", got)
	}
	tick(e, 4, 1)
	got := sink.notes()
	if len(got) != 2 || got[1].Type != midilink.NoteOff {
		t.Fatalf("after 3 boundaries: %v, want note-off", got)
	}
}

func TestMutedTrackIsSilent(t *testing.T) {
	e, sink := newTestEngine()
	pat := onePattern(4, StepNote{Step: 0, Note: 60, Velocity: 100, Duration: 1})
	pat.Tracks[0].Muted = true
	e.Play(pat)

	tick(e, 24, 24*4)
	if got := sink.notes(); len(got) != 0 {
		t.Errorf("muted track produced events: %v", got)
	}
}

func TestSoloSilencesOtherTracks(t *testing.T) {
	e, sink := newTestEngine()
	pat := &Pattern{
		Name:      "solo",
		StepCount: 4,
		Tracks: []*Track{
			{Channel: 1, Volume: 1, Notes: []StepNote{{Step: 0, Note: 60, Velocity: 100, Duration: 1}}},
			{Channel: 2, Volume: 1, Solo: true, Notes: []StepNote{{Step: 0, Note: 64, Velocity: 100, Duration: 1}}},
		},
	}
	e.Play(pat)

	tick(e, 4, 1)
	got := sink.notes()
	if len(got) != 1 || got[0].Note != 64 || got[0].Channel != 1 {
		t.Errorf("soloed playback = %v, want only note 64 on wire channel 1", got)
	}
}

func TestVelocityScaledByVolume(t *testing.T) {
	e, sink := newTestEngine()
	pat := onePattern(4, StepNote{Step: 0, Note: 60, Velocity: 100, Duration: 1})
	pat.Tracks[0].Volume = 0.5
	e.Play(pat)

	tick(e, 4, 1)
	got := sink.notes()
	if len(got) != 1 || got[0].Velocity != 50 {
		t.Errorf("events = %v, want note-on velocity 50", got)
	}
}

func TestNoteMapApplied(t *testing.T) {
	e, sink := newTestEngine()
	pat := onePattern(4, StepNote{Step: 0, Note: 0, Velocity: 100, Duration: 1})
	pat.Tracks[0].NoteMap = "gm"
	e.Play(pat)

	tick(e, 4, 2)
	got := sink.notes()
	if len(got) != 2 || got[0].Note != 36 || got[1].Note != 36 {
		t.Errorf("events = %v, want slot 0 mapped to GM kick (36) on both on and off", got)
	}
}

func TestStopFlushesPendingAndResets(t *testing.T) {
	e, sink := newTestEngine()
	pat := onePattern(8, StepNote{Step: 0, Note: 60, Velocity: 100, Duration: 4})
	e.Play(pat)

	tick(e, 4, 1) // note-on pending until step 4
	sink.flush()

	e.Stop()
	got := sink.notes()
	if len(got) != 1 || got[0].Type != midilink.NoteOff || got[0].Note != 60 {
		t.Fatalf("Stop events = %v, want exactly one note-off 60", got)
	}
	if e.CurrentStep() != 0 {
		t.Errorf("step after Stop = %d, want 0", e.CurrentStep())
	}

	// Pending set is cleared: further ticks owe nothing for the old note
	sink.flush()
	e.Play(pat)
	tick(e, 4, 1)
	if got := sink.notes(); len(got) != 1 || got[0].Type != midilink.NoteOn {
		t.Errorf("replay events = %v, want a fresh note-on only", got)
	}
}

func TestPauseKeepsStep(t *testing.T) {
	e, sink := newTestEngine()
	pat := onePattern(8, StepNote{Step: 0, Note: 60, Velocity: 100, Duration: 1})
	e.Play(pat)

	tick(e, 4, 3)
	e.Pause()
	if got := e.CurrentStep(); got != 3 {
		t.Errorf("step after Pause = %d, want 3", got)
	}
	// All-notes-off on pause: nothing left sounding
	notes := sink.notes()
	last := notes[len(notes)-1]
	if last.Type != midilink.NoteOff {
		t.Errorf("last event after Pause = %v, want note-off", last)
	}

	e.Resume()
	tick(e, 4, 1)
	if got := e.CurrentStep(); got != 4 {
		t.Errorf("step after Resume+tick = %d, want 4", got)
	}
}

func TestSwitchPatternImmediate(t *testing.T) {
	e, sink := newTestEngine()
	p1 := onePattern(4, StepNote{Step: 1, Note: 60, Velocity: 100, Duration: 1})
	p2 := onePattern(8, StepNote{Step: 1, Note: 72, Velocity: 100, Duration: 1})
	e.Play(p1)

	tick(e, 4, 1) // step 0 processed, playhead now at 1
	e.SwitchPattern(p2, QuantizeNone)
	if got := e.CurrentStep(); got != 1 {
		t.Fatalf("step after switch = %d, want 1 (preserved)", got)
	}

	tick(e, 4, 1)
	got := sink.notes()
	if len(got) != 1 || got[0].Note != 72 {
		t.Errorf("post-switch events = %v, want p2's note 72", got)
	}
	if e.Pattern() != p2 {
		t.Error("active pattern is not p2")
	}
}

func TestSwitchPatternQuantizeDegradesToImmediate(t *testing.T) {
	e, _ := newTestEngine()
	p1 := onePattern(4)
	p2 := onePattern(4)
	e.Play(p1)

	// Beat/bar quantize is documented to fall back to an immediate switch
	e.SwitchPattern(p2, QuantizeBar)
	if e.Pattern() != p2 {
		t.Error("quantized switch did not apply")
	}
}

func TestOutOfRangeStepIgnored(t *testing.T) {
	e, sink := newTestEngine()
	pat := onePattern(4, StepNote{Step: 10, Note: 60, Velocity: 100, Duration: 1})
	e.Play(pat)

	tick(e, 4, 8) // two full cycles
	if got := sink.notes(); len(got) != 0 {
		t.Errorf("out-of-range note produced events: %v", got)
	}
}

func TestIgnoresTicksWhileStoppedOrEmpty(t *testing.T) {
	e, sink := newTestEngine()

	// No active pattern
	tick(e, 4, 8)
	if got := e.CurrentStep(); got != 0 {
		t.Errorf("step advanced with no pattern: %d", got)
	}

	// Transport not playing
	e.Play(onePattern(4, StepNote{Step: 0, Note: 60, Velocity: 100, Duration: 1}))
	for i := 0; i < 8; i++ {
		e.handlePulse(clock.Pulse{PPQN: 4, Transport: clock.TransportStopped})
	}
	if got := sink.notes(); len(got) != 0 {
		t.Errorf("stopped transport produced events: %v", got)
	}
}

func TestSendFailuresDoNotStall(t *testing.T) {
	e, sink := newTestEngine()
	sink.fail = true
	e.Play(onePattern(4, StepNote{Step: 0, Note: 60, Velocity: 100, Duration: 1}))

	tick(e, 4, 5)
	if got := e.CurrentStep(); got != 1 {
		t.Errorf("step = %d, want 1 (stepping must survive send failures)", got)
	}
}

func TestTicksPerStepFloorsAtOne(t *testing.T) {
	e, _ := newTestEngine()
	e.Play(onePattern(4))

	// PPQN below 4 would make ppqn/4 zero; the engine must still step.
	for i := 0; i < 3; i++ {
		e.handlePulse(clock.Pulse{PPQN: 2, Transport: clock.TransportPlaying})
	}
	if got := e.CurrentStep(); got != 3 {
		t.Errorf("step = %d, want 3 (one step per pulse)", got)
	}
}
