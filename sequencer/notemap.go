package sequencer

// NoteMap maps the 16 low note slots (0-15) to the note numbers a
// particular instrument expects. Notes 16+ pass through unchanged, so
// melodic tracks can share a channel with a mapped drum track.
type NoteMap struct {
	Name  string
	Notes [16]uint8
}

// Apply translates a note through the map.
func (m *NoteMap) Apply(note uint8) uint8 {
	if note < 16 {
		return m.Notes[note]
	}
	return note
}

// Slot layout for the tables below:
// 0: Kick
// 1: Snare
// 2: Closed HH
// 3: Open HH
// 4: Low Tom
// 5: Mid Tom
// 6: High Tom
// 7: Crash
// 8: Ride
// 9: Clap
// 10: Rimshot
// 11: Cowbell
// 12: Clave
// 13: Maracas
// 14: Low Conga
// 15: High Conga

// Maps contains the built-in note mapping tables
var Maps = map[string]NoteMap{
	"gm": {
		Name: "General MIDI",
		Notes: [16]uint8{
			36, // Kick
			38, // Snare
			42, // Closed HH
			46, // Open HH
			41, // Low Tom
			43, // Mid Tom
			45, // High Tom
			49, // Crash
			51, // Ride
			39, // Clap
			37, // Rimshot
			56, // Cowbell
			75, // Clave
			70, // Maracas
			64, // Low Conga
			63, // High Conga
		},
	},
	"rd8": {
		Name: "Behringer RD-8",
		Notes: [16]uint8{
			36, // Kick (BD)
			40, // Snare (SD) - note: RD-8 uses 40, not 38!
			42, // Closed HH (CH)
			46, // Open HH (OH)
			45, // Low Tom (LT)
			48, // Mid Tom (MT)
			50, // High Tom (HT)
			49, // Crash (CY)
			51, // Ride (RC)
			39, // Clap (CP)
			37, // Rimshot (RS)
			56, // Cowbell (CB)
			75, // Clave
			70, // Maracas
			64, // Low Conga
			63, // High Conga
		},
	},
}

// mapNote applies a track's named map, passing through when the name is
// unknown or empty.
func mapNote(mapName string, note uint8) uint8 {
	if mapName == "" {
		return note
	}
	m, ok := Maps[mapName]
	if !ok {
		return note
	}
	return m.Apply(note)
}
