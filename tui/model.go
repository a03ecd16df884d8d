package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-pulse/clock"
	"go-pulse/midilink"
	"go-pulse/sequencer"
	"go-pulse/theme"
)

type Model struct {
	Clock     *clock.Engine
	Playback  *sequencer.Engine
	DeviceMgr *midilink.DeviceManager
	Bank      *sequencer.BankSet
	Theme     *theme.Theme

	portName  string // connected output port ("" = none)
	bankIdx   int    // bank 0-3
	slotIdx   int    // slot cursor within the bank
	trackIdx  int    // track cursor within the active pattern
	lastTap   string // tap feedback line
	quitting  bool
	OnConnect func(name string) // wire the chosen port into the engines
}

type UpdateMsg struct{}

type PortEventMsg midilink.PortEvent

func NewModel(clk *clock.Engine, pb *sequencer.Engine, dm *midilink.DeviceManager, bank *sequencer.BankSet, th *theme.Theme) Model {
	return Model{
		Clock:     clk,
		Playback:  pb,
		DeviceMgr: dm,
		Bank:      bank,
		Theme:     th,
	}
}

func ListenForUpdates(pb *sequencer.Engine) tea.Cmd {
	return func() tea.Msg {
		<-pb.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForPorts(dm *midilink.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event := <-dm.Events()
		return PortEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Playback),
		ListenForPorts(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Playback.Stop()
			return m, tea.Quit

		case " ", "space":
			if m.Clock.Transport() == clock.TransportPlaying {
				m.Playback.Stop()
			} else if p := m.Playback.Pattern(); p != nil {
				m.Playback.Play(p)
			} else if p := m.Bank.At(m.bankIdx, m.slotIdx); p != nil {
				m.Playback.Play(p)
			}

		case "p":
			if m.Clock.Transport() == clock.TransportPlaying {
				m.Playback.Pause()
			} else {
				m.Playback.Resume()
			}

		case "t":
			if bpm, ok := m.Clock.Tap(true); ok {
				m.lastTap = fmt.Sprintf("tap: %.1f bpm", bpm)
			} else {
				m.lastTap = fmt.Sprintf("tap: %d/2", m.Clock.TapCount())
			}

		case "+", "=":
			m.Clock.SetBPM(m.Clock.BPM() + 5)

		case "-", "_":
			m.Clock.SetBPM(m.Clock.BPM() - 5)

		case "o":
			m.Clock.SetPPQN(nextPPQN(m.Clock.PPQN()))

		case "r":
			m.Clock.Rewind()

		case "b":
			m.bankIdx = (m.bankIdx + 1) % sequencer.NumBanks

		case "j":
			m.slotIdx = (m.slotIdx + 1) % sequencer.PatternsPerBank

		case "k":
			m.slotIdx = (m.slotIdx + sequencer.PatternsPerBank - 1) % sequencer.PatternsPerBank

		case "enter":
			if p := m.Bank.At(m.bankIdx, m.slotIdx); p != nil {
				switch {
				case m.Clock.Transport() != clock.TransportPlaying:
					m.Playback.Play(p)
				case p == m.Playback.Pattern() && p.TriggerMode == sequencer.TriggerToggle:
					m.Playback.Stop()
				default:
					m.Playback.SwitchPattern(p, p.Quantize)
				}
			}

		case "h":
			if m.trackIdx > 0 {
				m.trackIdx--
			}

		case "l":
			if p := m.Playback.Pattern(); p != nil && m.trackIdx < len(p.Tracks)-1 {
				m.trackIdx++
			}

		case "m":
			m.Playback.ToggleMute(m.trackIdx)

		case "s":
			m.Playback.ToggleSolo(m.trackIdx)
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Playback)

	case PortEventMsg:
		event := midilink.PortEvent(msg)
		if event.Type == midilink.PortConnected && m.portName == "" && m.OnConnect != nil {
			m.portName = event.Name
			m.OnConnect(event.Name)
		} else if event.Type == midilink.PortDisconnected && event.Name == m.portName {
			m.portName = ""
		}
		return m, ListenForPorts(m.DeviceMgr)
	}

	return m, nil
}

func nextPPQN(cur int) int {
	for i, v := range clock.PPQNValues {
		if v == cur {
			return clock.PPQNValues[(i+1)%len(clock.PPQNValues)]
		}
	}
	return clock.PPQNValues[0]
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	activeStyle := lipgloss.NewStyle().Foreground(m.Theme.Active())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	transport := "STOP"
	if m.Clock.Transport() == clock.TransportPlaying {
		transport = "PLAY"
	}

	port := warnStyle.Render("no port")
	if m.portName != "" {
		port = dimStyle.Render(m.portName)
	}

	header := headerStyle.Render(fmt.Sprintf("go-pulse  %s  %5.1fbpm  %dppqn  beat:%03d", transport, m.Clock.BPM(), m.Clock.PPQN(), m.Clock.Beat())) + "  " + port

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(m.viewBank(dimStyle, activeStyle))
	out.WriteString("\n")
	out.WriteString(m.viewPattern(dimStyle, activeStyle))
	out.WriteString("\n")
	if m.lastTap != "" {
		out.WriteString(dimStyle.Render(m.lastTap))
		out.WriteString("\n")
	}
	out.WriteString(dimStyle.Render("space:play/stop p:pause t:tap +/-:tempo o:ppqn r:rewind b:bank j/k:slot enter:launch h/l:track m:mute s:solo q:quit"))
	return out.String()
}

// viewBank renders the slot row for the current bank.
func (m Model) viewBank(dim, active lipgloss.Style) string {
	var out strings.Builder
	out.WriteString(dim.Render(fmt.Sprintf("bank %c: ", 'A'+m.bankIdx)))

	playing := m.Playback.Pattern()
	for slot := 0; slot < sequencer.PatternsPerBank; slot++ {
		p := m.Bank.At(m.bankIdx, slot)
		sym := string(m.Theme.Symbols.SlotEmpty)
		style := dim
		if p != nil {
			sym = string(m.Theme.Symbols.SlotFull)
			style = lipgloss.NewStyle().Foreground(theme.PatternColor(p.Color))
			if p == playing {
				style = active
			}
		}
		if slot == m.slotIdx {
			out.WriteString(style.Render("[" + sym + "]"))
		} else {
			out.WriteString(style.Render(" " + sym + " "))
		}
	}
	out.WriteString("\n")
	return out.String()
}

// viewPattern renders the active pattern's step grid with the playhead.
func (m Model) viewPattern(dim, active lipgloss.Style) string {
	p := m.Playback.Pattern()
	if p == nil {
		return dim.Render("no pattern loaded - pick a slot and press enter") + "\n"
	}

	step := m.Playback.CurrentStep()
	anySolo := p.AnySolo()

	var out strings.Builder
	out.WriteString(dim.Render(fmt.Sprintf("%s  %d steps\n", p.Name, p.StepCount)))

	for ti, track := range p.Tracks {
		// Track label with mute/solo flags
		flag := " "
		if track.Muted {
			flag = "M"
		} else if track.Solo {
			flag = "S"
		}
		label := fmt.Sprintf("ch%02d %s ", track.Channel, flag)
		if ti == m.trackIdx {
			out.WriteString(active.Render(label))
		} else {
			out.WriteString(dim.Render(label))
		}

		notes := make(map[int]bool, len(track.Notes))
		for _, n := range track.Notes {
			notes[n.Step] = true
		}

		for s := 0; s < p.StepCount; s++ {
			sym := m.Theme.Symbols.StepEmpty
			style := dim
			if notes[s] {
				sym = m.Theme.Symbols.StepActive
				if track.ShouldPlay(anySolo) {
					style = active
				}
			}
			if s == step {
				sym = m.Theme.Symbols.StepPlayhead
				style = active
			}
			out.WriteString(style.Render(string(sym)))
			if (s+1)%4 == 0 {
				out.WriteString(" ")
			}
		}
		out.WriteString("\n")
	}
	return out.String()
}
