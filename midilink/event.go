package midilink

import "fmt"

// Event types
type EventType uint8

const (
	TimingPulse EventType = iota
	Start
	Stop
	Continue
	PositionLocate
	NoteOn
	NoteOff
)

// Event is a single protocol message for the output link.
// Only the fields relevant to the Type are meaningful.
type Event struct {
	Type     EventType
	Beat     uint16 // PositionLocate: song position in MIDI beats (14-bit)
	Channel  uint8  // NoteOn/NoteOff: wire channel 0-15
	Note     uint8  // NoteOn/NoteOff: 0-127
	Velocity uint8  // NoteOn: 1-127
}

func (e Event) String() string {
	switch e.Type {
	case TimingPulse:
		return "pulse"
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Continue:
		return "continue"
	case PositionLocate:
		return fmt.Sprintf("spp beat=%d", e.Beat)
	case NoteOn:
		return fmt.Sprintf("noteon ch=%d note=%d vel=%d", e.Channel+1, e.Note, e.Velocity)
	case NoteOff:
		return fmt.Sprintf("noteoff ch=%d note=%d", e.Channel+1, e.Note)
	}
	return fmt.Sprintf("unknown(%d)", e.Type)
}

// Sender is a best-effort sink for protocol messages. A send may fail at
// any time (device unplugged); callers are expected to log and move on.
type Sender interface {
	Send(Event) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(Event) error

func (f SenderFunc) Send(ev Event) error { return f(ev) }

// Discard swallows every event. Useful as a default before a port is chosen.
var Discard Sender = SenderFunc(func(Event) error { return nil })
