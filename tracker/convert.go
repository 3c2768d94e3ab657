package tracker

import (
	"fmt"
	"math"

	"github.com/QEStudios/FurnaceModuleReader/parser/furnace"
)

// DeriveTempo converts a tick rate and virtual tempo ratio into the canonical
// tempo value. 60 Hz at the neutral 150/150 ratio comes out as tempo 150.
func DeriveTempo(tickRate float64, virtN, virtD uint16) int {
	if virtD == 0 {
		virtN, virtD = 150, 150
	}
	return int(math.Round(2.5 * tickRate * float64(virtN) / float64(virtD)))
}

// Convert turns a decoded module into the canonical import result: converted
// instruments, one flattened grid per subsong, and import metadata. The
// module is only read, never mutated.
func Convert(mod *furnace.Module) (*ImportResult, error) {
	if len(mod.SubSongs) == 0 {
		return nil, fmt.Errorf("module has no subsongs")
	}

	chipByChannel := channelChips(mod)

	result := &ImportResult{
		Metadata: Metadata{
			OriginalChannels:    mod.TotalChannels,
			OriginalPatterns:    len(mod.Patterns),
			OriginalInstruments: len(mod.Instruments),
			Compat:              mod.Compat,
			Grooves:             mod.Grooves,
		},
	}
	for _, chip := range mod.Chips {
		result.Metadata.Chips = append(result.Metadata.Chips, ChipInfo{
			ID:       chip.ID,
			Name:     chip.ID.Name(),
			Channels: chip.Channels,
		})
	}

	result.Song = assembleGrid(mod, 0, chipByChannel)
	if len(mod.SubSongs) > 1 {
		result.ExtraSongs = make(map[int]*Song, len(mod.SubSongs)-1)
		for i := 1; i < len(mod.SubSongs); i++ {
			result.ExtraSongs[i] = assembleGrid(mod, i, chipByChannel)
		}
	}

	result.Instruments = convertInstruments(mod, chipByChannel)
	return result, nil
}

// channelChips expands the module's chip list into a per-channel chip id.
func channelChips(mod *furnace.Module) []furnace.ChipID {
	chips := make([]furnace.ChipID, 0, mod.TotalChannels)
	for _, chip := range mod.Chips {
		for i := 0; i < chip.Channels; i++ {
			chips = append(chips, chip.ID)
		}
	}
	return chips
}

// assembleGrid resolves one subsong's order table into a flattened
// slot-by-row-by-channel grid. Missing patterns yield empty cells.
func assembleGrid(mod *furnace.Module, subsong int, chipByChannel []furnace.ChipID) *Song {
	ss := mod.SubSongs[subsong]
	channels := mod.TotalChannels

	song := &Song{
		Name:       songName(mod, ss),
		Author:     mod.Author,
		Tempo:      DeriveTempo(float64(ss.TickRate), ss.VirtTempoN, ss.VirtTempoD),
		Speed:      int(ss.Speed1),
		Channels:   channels,
		PatternLen: ss.PatLen,
	}

	for slot := 0; slot < ss.OrdersLen; slot++ {
		grid := PatternSlot{Rows: make([][]Cell, ss.PatLen)}
		for row := range grid.Rows {
			cells := make([]Cell, channels)
			for ch := range cells {
				cells[ch] = emptyCell()
			}
			grid.Rows[row] = cells
		}

		for ch := 0; ch < channels; ch++ {
			if ch >= len(ss.Orders) || slot >= len(ss.Orders[ch]) {
				continue
			}
			patIdx := int(ss.Orders[ch][slot])
			pat := mod.Patterns[furnace.PatternKey{SubSong: subsong, Channel: ch, Index: patIdx}]
			if pat == nil {
				continue
			}
			sample := chipByChannel[ch].SamplePlayback()
			for row := 0; row < ss.PatLen && row < len(pat.Cells); row++ {
				grid.Rows[row][ch] = convertCell(pat.Cells[row], sample)
			}
		}
		song.Grid = append(song.Grid, grid)
	}
	return song
}

// songName composes the display name the way the editor titles imports.
func songName(mod *furnace.Module, ss *furnace.SubSong) string {
	name := mod.Name
	if ss.Name != "" {
		if name != "" {
			name += " - "
		}
		name += ss.Name
	}
	return name
}

// convertCell translates one decoded cell into the canonical model.
func convertCell(src furnace.Cell, samplePlayback bool) Cell {
	cell := emptyCell()

	switch src.Note {
	case furnace.NoteNone:
		// Leave empty.
	case furnace.NoteOff:
		cell.Note = NoteOff
	case furnace.NoteRelease:
		cell.Note = NoteRelease
	case furnace.NoteMacroRelease:
		cell.Note = NoteMacroRelease
	default:
		cell.Note = int(src.Note)
		cell.Octave = translateOctave(src.Octave, samplePlayback)
	}

	cell.Instrument = int(src.Instrument)
	cell.Volume = int(src.Volume)

	for _, fx := range src.Effects {
		if fx.Type < 0 {
			continue
		}
		value := uint8(0)
		if fx.Value >= 0 {
			value = uint8(fx.Value)
		}
		cell.Effects = append(cell.Effects, translateEffect(uint8(fx.Type), value))
	}
	return cell
}

// convertInstruments converts the instrument list, remapping the generic
// "standard" type to the chip each instrument is actually used on.
func convertInstruments(mod *furnace.Module, chipByChannel []furnace.ChipID) []Instrument {
	out := make([]Instrument, 0, len(mod.Instruments))
	for idx, ins := range mod.Instruments {
		conv := Instrument{
			Name:          ins.Name,
			Type:          ins.Type,
			SampleIndices: ins.SampleIndices,
			WaveIndices:   ins.WaveIndices,
		}
		if ins.Type == furnace.InsTypeStandard {
			conv.Type = remapStandardType(mod, idx, chipByChannel)
		}
		out = append(out, conv)
	}
	return out
}

// remapStandardType scans every pattern for channels the instrument appears
// on, tallies the chip of each, and adopts the majority chip's default type.
// Ties break toward the first-seen chip; instruments never referenced fall
// back to the song's primary chip. This is a heuristic inherited from the
// reference behavior: an instrument shared across chips keeps whichever chip
// wins the tally.
func remapStandardType(mod *furnace.Module, insIdx int, chipByChannel []furnace.ChipID) furnace.InstrumentType {
	counts := make(map[furnace.ChipID]int)
	var order []furnace.ChipID

	// Walk the grid (not the pattern map) so the first-seen tie-break is
	// deterministic.
	for ssIdx, ss := range mod.SubSongs {
		for ch := 0; ch < len(ss.Orders) && ch < len(chipByChannel); ch++ {
			chip := chipByChannel[ch]
			for _, patIdx := range ss.Orders[ch] {
				pat := mod.Patterns[furnace.PatternKey{SubSong: ssIdx, Channel: ch, Index: int(patIdx)}]
				if pat == nil {
					continue
				}
				for _, cell := range pat.Cells {
					if int(cell.Instrument) != insIdx {
						continue
					}
					if counts[chip] == 0 {
						order = append(order, chip)
					}
					counts[chip]++
				}
			}
		}
	}

	if len(order) == 0 {
		if len(mod.Chips) == 0 {
			return furnace.InsTypeStandard
		}
		return mod.Chips[0].ID.DefaultInstrumentType()
	}

	best := order[0]
	for _, chip := range order[1:] {
		if counts[chip] > counts[best] {
			best = chip
		}
	}
	return best.DefaultInstrumentType()
}
