package midilink

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Port is a Sender backed by a named MIDI output port. The port is opened
// lazily on first send and re-opened after a disconnect, so a Port created
// before the device is plugged in still works once it appears.
type Port struct {
	name string

	mu   sync.Mutex
	send func(gomidi.Message) error
}

// NewPort creates a sender for the named output port. No I/O happens until
// the first Send.
func NewPort(name string) *Port {
	return &Port{name: name}
}

// Name returns the port name this sender targets.
func (p *Port) Name() string { return p.name }

// Send maps the event to a MIDI message and writes it to the port.
func (p *Port) Send(ev Event) error {
	sender, err := p.sender()
	if err != nil {
		return err
	}

	var msg gomidi.Message
	switch ev.Type {
	case TimingPulse:
		msg = gomidi.TimingClock()
	case Start:
		msg = gomidi.Start()
	case Stop:
		msg = gomidi.Stop()
	case Continue:
		msg = gomidi.Continue()
	case PositionLocate:
		msg = gomidi.SPP(ev.Beat & 0x3FFF)
	case NoteOn:
		msg = gomidi.NoteOn(ev.Channel, ev.Note, ev.Velocity)
	case NoteOff:
		msg = gomidi.NoteOff(ev.Channel, ev.Note)
	default:
		return fmt.Errorf("unknown event type %d", ev.Type)
	}

	if err := sender(msg); err != nil {
		// Drop the cached sender so the next call re-opens the port.
		p.mu.Lock()
		p.send = nil
		p.mu.Unlock()
		return fmt.Errorf("send to %q: %w", p.name, err)
	}
	return nil
}

// sender returns the cached gomidi sender, opening the port if needed.
func (p *Port) sender() (func(gomidi.Message) error, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.send != nil {
		return p.send, nil
	}

	for _, port := range gomidi.GetOutPorts() {
		if port.String() == p.name {
			send, err := gomidi.SendTo(port)
			if err != nil {
				return nil, fmt.Errorf("open %q: %w", p.name, err)
			}
			p.send = send
			return send, nil
		}
	}
	return nil, fmt.Errorf("output port %q not found", p.name)
}

// Close releases the cached port handle. The Port remains usable; the next
// Send re-opens.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.send = nil
	return nil
}

// OutPortNames lists the currently available MIDI output port names.
func OutPortNames() []string {
	var names []string
	for _, port := range gomidi.GetOutPorts() {
		names = append(names, port.String())
	}
	return names
}
