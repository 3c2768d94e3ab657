// Package tracker holds the canonical song model the decoder's output is
// converted into, the form a playback or editor component consumes.
package tracker

import (
	"fmt"
	"strings"

	"github.com/QEStudios/FurnaceModuleReader/parser/furnace"
)

// Canonical note sentinels.
const (
	NoteNone         = -1
	NoteOff          = -2
	NoteRelease      = -3
	NoteMacroRelease = -4
)

// One canonical pattern cell.
type Cell struct {
	Note   int // 0-11 within the octave, or a sentinel above.
	Octave int

	Instrument int // -1 when absent.
	Volume     int // -1 when absent.

	Effects []Effect
}

// One canonical effect.
type Effect struct {
	Type  uint8
	Value uint8
}

// One order slot's rows: Rows[row][channel].
type PatternSlot struct {
	Rows [][]Cell
}

// A canonical song: one subsong flattened into a slot-by-row-by-channel grid.
type Song struct {
	Name   string
	Author string

	Tempo int // Derived from tick rate and virtual tempo.
	Speed int // Ticks per row.

	Channels   int
	PatternLen int

	Grid []PatternSlot // One entry per order slot.
}

// A converted instrument. The type is always concrete: "standard" placeholder
// types are remapped to the chip the instrument is actually used on.
type Instrument struct {
	Name string
	Type furnace.InstrumentType

	SampleIndices []int
	WaveIndices   []int
}

// ChipInfo describes one chip of the source module for import metadata.
type ChipInfo struct {
	ID       furnace.ChipID
	Name     string
	Channels int
}

// Import metadata: what the source looked like before conversion.
type Metadata struct {
	OriginalChannels    int
	OriginalPatterns    int
	OriginalInstruments int

	Chips   []ChipInfo
	Compat  *furnace.CompatFlags
	Grooves [][]uint8
}

// ImportResult is the full conversion output: the primary subsong's canonical
// song, converted instruments, any additional subsongs keyed by index, and
// import metadata.
type ImportResult struct {
	Song        *Song
	Instruments []Instrument

	// Additional subsongs (index >= 1), present only when the module has
	// more than one.
	ExtraSongs map[int]*Song

	Metadata Metadata
}

// Summary returns a short human-readable description of the import.
func (r *ImportResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q by %s: %d channel(s), %d order(s) of %d row(s), tempo %d speed %d",
		r.Song.Name, r.Song.Author, r.Song.Channels, len(r.Song.Grid),
		r.Song.PatternLen, r.Song.Tempo, r.Song.Speed)
	fmt.Fprintf(&b, ", %d instrument(s)", len(r.Instruments))
	if len(r.ExtraSongs) > 0 {
		fmt.Fprintf(&b, ", %d extra subsong(s)", len(r.ExtraSongs))
	}
	for _, chip := range r.Metadata.Chips {
		fmt.Fprintf(&b, "\n  chip: %s (%d channels)", chip.Name, chip.Channels)
	}
	return b.String()
}

func emptyCell() Cell {
	return Cell{Note: NoteNone, Instrument: -1, Volume: -1}
}
