package midilink

import (
	"context"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// PortEvent is emitted when an output port appears or disappears
type PortEvent struct {
	Type PortEventType
	Name string
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

// DeviceManager handles hot-plug detection of MIDI output ports
type DeviceManager struct {
	known    map[string]bool
	mu       sync.RWMutex
	events   chan PortEvent
	pollRate time.Duration
}

// NewDeviceManager creates a new device manager
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{
		known:    make(map[string]bool),
		events:   make(chan PortEvent, 16),
		pollRate: time.Second,
	}
}

// Events returns a channel of port connect/disconnect events
func (dm *DeviceManager) Events() <-chan PortEvent {
	return dm.events
}

// Ports returns a snapshot of the currently known output port names
func (dm *DeviceManager) Ports() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	names := make([]string, 0, len(dm.known))
	for name := range dm.known {
		names = append(names, name)
	}
	return names
}

// Has reports whether the named port is currently available
func (dm *DeviceManager) Has(name string) bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.known[name]
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan()

	for {
		select {
		case <-ctx.Done():
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	// Enumerate ports with a timeout (CoreMIDI can hang)
	ch := make(chan []string, 1)
	go func() {
		var names []string
		for _, port := range gomidi.GetOutPorts() {
			names = append(names, port.String())
		}
		ch <- names
	}()

	var names []string
	select {
	case names = <-ch:
	case <-time.After(3 * time.Second):
		// MIDI subsystem is hung - skip this scan
		return
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}

	dm.mu.Lock()
	var added, removed []string
	for name := range seen {
		if !dm.known[name] {
			dm.known[name] = true
			added = append(added, name)
		}
	}
	for name := range dm.known {
		if !seen[name] {
			delete(dm.known, name)
			removed = append(removed, name)
		}
	}
	dm.mu.Unlock()

	for _, name := range added {
		dm.emit(PortEvent{Type: PortConnected, Name: name})
	}
	for _, name := range removed {
		dm.emit(PortEvent{Type: PortDisconnected, Name: name})
	}
}

func (dm *DeviceManager) emit(ev PortEvent) {
	select {
	case dm.events <- ev:
	default:
		// Drop if nobody is draining - hot-plug events are advisory
	}
}
