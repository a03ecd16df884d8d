package sequencer

import "fmt"

// Pattern size limits
const (
	MinSteps = 1
	MaxSteps = 64
)

// TriggerMode controls how a pattern responds to its launch pad
type TriggerMode string

const (
	TriggerOneShot   TriggerMode = "oneshot"
	TriggerToggle    TriggerMode = "toggle"
	TriggerMomentary TriggerMode = "momentary"
)

// LaunchQuantize is the policy for when a pattern switch takes effect
type LaunchQuantize string

const (
	QuantizeNone LaunchQuantize = ""
	QuantizeBeat LaunchQuantize = "beat"
	QuantizeBar  LaunchQuantize = "bar"
)

// StepNote is a single note placed on a sequencer step.
type StepNote struct {
	Step     int     `json:"step"`
	Note     uint8   `json:"note"`     // 0-127
	Velocity uint8   `json:"velocity"` // 1-127
	Duration float64 `json:"duration"` // in steps, fractional allowed
}

// Track is one voice of a pattern: a channel plus its notes.
type Track struct {
	Channel uint8      `json:"channel"` // 1-16 (wire is channel-1)
	Notes   []StepNote `json:"notes"`
	Muted   bool       `json:"muted"`
	Solo    bool       `json:"solo"`
	Volume  float64    `json:"volume"`            // 0-1
	NoteMap string     `json:"noteMap,omitempty"` // named mapping table, "" = none
}

// ShouldPlay reports whether this track sounds given the pattern-wide solo
// state: not muted, and either nothing is soloed or this track is.
func (t *Track) ShouldPlay(anySolo bool) bool {
	if t.Muted {
		return false
	}
	return !anySolo || t.Solo
}

// Pattern is a complete step-sequence: a grid of tracks over StepCount
// 16th-note steps. The playback engine treats patterns as read-only
// snapshots; switching patterns replaces the whole value.
type Pattern struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Color     [3]uint8 `json:"color"`
	StepCount int      `json:"stepCount"` // 1-64
	Tracks    []*Track `json:"tracks"`

	Swing       float64        `json:"swing"` // 0-1, reserved (not yet scheduled)
	TriggerMode TriggerMode    `json:"triggerMode,omitempty"`
	Quantize    LaunchQuantize `json:"launchQuantize,omitempty"`
	BeatsPerBar int            `json:"beatsPerBar,omitempty"`
}

// AnySolo reports whether any track in the pattern is soloed.
func (p *Pattern) AnySolo() bool {
	for _, t := range p.Tracks {
		if t.Solo {
			return true
		}
	}
	return false
}

// Validate checks the pattern's value ranges. Producers are expected to
// hand the engine valid patterns; the engine itself only ignores
// out-of-range steps rather than failing mid-playback.
func (p *Pattern) Validate() error {
	if p.StepCount < MinSteps || p.StepCount > MaxSteps {
		return fmt.Errorf("pattern %q: stepCount %d out of range [%d,%d]", p.Name, p.StepCount, MinSteps, MaxSteps)
	}
	if p.Swing < 0 || p.Swing > 1 {
		return fmt.Errorf("pattern %q: swing %v out of range [0,1]", p.Name, p.Swing)
	}
	for i, t := range p.Tracks {
		if t.Channel < 1 || t.Channel > 16 {
			return fmt.Errorf("pattern %q track %d: channel %d out of range [1,16]", p.Name, i, t.Channel)
		}
		if t.Volume < 0 || t.Volume > 1 {
			return fmt.Errorf("pattern %q track %d: volume %v out of range [0,1]", p.Name, i, t.Volume)
		}
		for j, n := range t.Notes {
			if n.Step < 0 || n.Step >= p.StepCount {
				return fmt.Errorf("pattern %q track %d note %d: step %d out of range [0,%d)", p.Name, i, j, n.Step, p.StepCount)
			}
			if n.Note > 127 {
				return fmt.Errorf("pattern %q track %d note %d: note %d out of range [0,127]", p.Name, i, j, n.Note)
			}
			if n.Velocity < 1 || n.Velocity > 127 {
				return fmt.Errorf("pattern %q track %d note %d: velocity %d out of range [1,127]", p.Name, i, j, n.Velocity)
			}
			if n.Duration <= 0 {
				return fmt.Errorf("pattern %q track %d note %d: duration %v must be positive", p.Name, i, j, n.Duration)
			}
		}
	}
	return nil
}

// NewPattern creates an empty pattern with one track on channel 1.
func NewPattern(name string, stepCount int) *Pattern {
	if stepCount < MinSteps {
		stepCount = MinSteps
	}
	if stepCount > MaxSteps {
		stepCount = MaxSteps
	}
	return &Pattern{
		Name:        name,
		StepCount:   stepCount,
		Tracks:      []*Track{{Channel: 1, Volume: 1}},
		BeatsPerBar: 4,
	}
}
