// midicheck is a small diagnostic tool for the MIDI output path: list
// ports, fire a test note, or run a burst of clock pulses at a tempo -
// useful for checking an instrument's sync settings without starting the
// full app.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go-pulse/midilink"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "note":
		testNote()
	case "clock":
		testClock()
	case "poll":
		pollPorts()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("midicheck - MIDI output diagnostics")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                 - List MIDI output ports")
	fmt.Println("  note <port>          - Send a test note (middle C, ch 1)")
	fmt.Println("  clock <port> [bpm]   - Send 4 beats of clock pulses")
	fmt.Println("  poll                 - Watch ports connect/disconnect")
}

func listPorts() {
	names := midilink.OutPortNames()
	if len(names) == 0 {
		fmt.Println("No MIDI output ports found")
		return
	}
	fmt.Println("=== MIDI Output Ports ===")
	for i, name := range names {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

func testNote() {
	if len(os.Args) < 3 {
		usage()
		return
	}
	port := midilink.NewPort(os.Args[2])

	fmt.Printf("Sending middle C to %q...\n", port.Name())
	if err := port.Send(midilink.Event{Type: midilink.NoteOn, Channel: 0, Note: 60, Velocity: 100}); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	time.Sleep(300 * time.Millisecond)
	if err := port.Send(midilink.Event{Type: midilink.NoteOff, Channel: 0, Note: 60}); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func testClock() {
	if len(os.Args) < 3 {
		usage()
		return
	}
	port := midilink.NewPort(os.Args[2])

	bpm := 120.0
	if len(os.Args) > 3 {
		if v, err := strconv.ParseFloat(os.Args[3], 64); err == nil {
			bpm = v
		}
	}

	const ppqn = 24
	interval := time.Duration(float64(time.Minute) / (bpm * ppqn))
	fmt.Printf("Sending 4 beats of clock at %.1f bpm (%v/pulse) to %q...\n", bpm, interval, port.Name())

	if err := port.Send(midilink.Event{Type: midilink.Start}); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; i < 4*ppqn; i++ {
		<-ticker.C
		if err := port.Send(midilink.Event{Type: midilink.TimingPulse}); err != nil {
			fmt.Printf("Error at pulse %d: %v\n", i, err)
			return
		}
	}
	port.Send(midilink.Event{Type: midilink.Stop})
	fmt.Println("OK")
}

func pollPorts() {
	fmt.Println("Watching for port changes (ctrl+c to quit)...")

	dm := midilink.NewDeviceManager()
	go dm.Run(context.Background())

	for ev := range dm.Events() {
		switch ev.Type {
		case midilink.PortConnected:
			fmt.Printf("+ %s\n", ev.Name)
		case midilink.PortDisconnected:
			fmt.Printf("- %s\n", ev.Name)
		}
	}
}
