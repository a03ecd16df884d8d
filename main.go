package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"go-pulse/clock"
	"go-pulse/config"
	"go-pulse/debug"
	"go-pulse/midilink"
	"go-pulse/sequencer"
	"go-pulse/store"
	"go-pulse/theme"
	"go-pulse/tui"
)

func main() {
	if os.Getenv("GO_PULSE_DEBUG") != "" {
		debug.Enable()
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	th := theme.New(theme.Default())

	// Output link. Starts on the discard sink; the TUI swaps in a real
	// port once one is connected.
	var out midilink.Sender = midilink.Discard
	if cfg.Output.PortName != "" && cfg.Output.AutoConnect {
		out = midilink.NewPort(cfg.Output.PortName)
	}

	// Clock + playback engines
	clk := clock.New(out)
	clk.SetBPM(cfg.Clock.Tempo)
	clk.SetPPQN(cfg.Clock.PPQN)
	clk.SetMode(parseMode(cfg.Clock.Mode))

	pb := sequencer.New(clk, out)
	pb.SetVelocityCurve(cfg.UI.VelocityCurve)

	// ModeAlways keeps pulses flowing regardless of transport; the
	// composition root is responsible for starting the source once.
	if clk.Mode() == clock.ModeAlways {
		clk.StartClock()
	}

	// Pattern bank: last saved snapshot, or a demo bank
	bank := loadBank(cfg)

	// MIDI port hot-plug detection
	deviceMgr := midilink.NewDeviceManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go deviceMgr.Run(ctx)

	fmt.Println("go-pulse")
	fmt.Println("Connect a MIDI instrument any time - it'll be detected automatically")
	fmt.Println("")

	m := tui.NewModel(clk, pb, deviceMgr, bank, th)
	m.OnConnect = func(name string) {
		port := midilink.NewPort(name)
		clk.SetOutput(port)
		pb.SetOutput(port)
		cfg.Output.PortName = name
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Persist last settings
	cfg.Clock.Tempo = clk.BPM()
	cfg.Clock.PPQN = clk.PPQN()
	cfg.Save()
}

func parseMode(s string) clock.Mode {
	switch s {
	case "manual":
		return clock.ModeManual
	case "always":
		return clock.ModeAlways
	default:
		return clock.ModeAuto
	}
}

func loadBank(cfg *config.Config) *sequencer.BankSet {
	if cfg.UI.LastBank != "" {
		if bank, err := store.Load(cfg.UI.LastBank); err == nil {
			return bank
		}
	}
	return demoBank()
}

// demoBank gives the app something to play out of the box: a four-on-the-
// floor drum pattern and a bassline.
func demoBank() *sequencer.BankSet {
	bank := sequencer.NewBankSet("demo")

	drums := &sequencer.Pattern{
		ID:          "demo-drums",
		Name:        "demo drums",
		Color:       [3]uint8{238, 142, 72},
		StepCount:   16,
		BeatsPerBar: 4,
		Tracks: []*sequencer.Track{
			{
				Channel: 10,
				Volume:  1,
				NoteMap: "gm",
				Notes: []sequencer.StepNote{
					{Step: 0, Note: 0, Velocity: 110, Duration: 1},
					{Step: 4, Note: 0, Velocity: 100, Duration: 1},
					{Step: 8, Note: 0, Velocity: 110, Duration: 1},
					{Step: 12, Note: 0, Velocity: 100, Duration: 1},
					{Step: 4, Note: 1, Velocity: 105, Duration: 1},
					{Step: 12, Note: 1, Velocity: 105, Duration: 1},
					{Step: 2, Note: 2, Velocity: 70, Duration: 1},
					{Step: 6, Note: 2, Velocity: 70, Duration: 1},
					{Step: 10, Note: 2, Velocity: 70, Duration: 1},
					{Step: 14, Note: 3, Velocity: 80, Duration: 1},
				},
			},
		},
	}

	bass := &sequencer.Pattern{
		ID:          "demo-bass",
		Name:        "demo bass",
		Color:       [3]uint8{120, 62, 110},
		StepCount:   16,
		BeatsPerBar: 4,
		Tracks: []*sequencer.Track{
			{
				Channel: 1,
				Volume:  0.9,
				Notes: []sequencer.StepNote{
					{Step: 0, Note: 36, Velocity: 100, Duration: 2},
					{Step: 6, Note: 36, Velocity: 85, Duration: 1},
					{Step: 8, Note: 43, Velocity: 95, Duration: 2},
					{Step: 14, Note: 41, Velocity: 90, Duration: 2},
				},
			},
		},
	}

	bank.Save(0, 0, drums)
	bank.Save(0, 1, bass)
	return bank
}
