package furnace

import "fmt"

// New-scheme raw note sentinels.
const (
	rawNoteOff          = 180
	rawNoteRelease      = 181
	rawNoteMacroRelease = 182
)

// Old-scheme note sentinels.
const (
	oldNoteOff          = 100
	oldNoteRelease      = 101
	oldNoteMacroRelease = 102
)

// The new scheme stores notes as a single byte looked up in fixed 180-entry
// tables: a rolling 12-note pattern with the octave as a signed byte, where
// values >= 250 wrap around to negative octaves.
var (
	newFormatNotes   [180]uint8
	newFormatOctaves [180]uint8
)

func init() {
	for v := 0; v < 180; v++ {
		newFormatNotes[v] = uint8(v % 12)
		newFormatOctaves[v] = uint8(v/12 - 5) // Two's-complement wrap for octaves below 0.
	}
}

// decodePattern dispatches between the dense legacy scheme and the sparse
// bitmask/run-length scheme. The scheme is chosen once per pattern from the
// block magic, never re-detected per row.
func (d *Decoder) decodePattern() (*Pattern, error) {
	magic, err := d.c.readMagic(4)
	if err != nil {
		return nil, err
	}
	switch magic {
	case "PATN":
		return d.decodeNewPattern()
	case "PATR":
		return d.decodeOldPattern()
	default:
		return nil, fmt.Errorf("%w: bad pattern magic %q", ErrInvalidHeader, magic)
	}
}

// subSongFor bounds-checks a pattern's subsong/channel reference.
func (d *Decoder) subSongFor(subsong, channel int) (*SubSong, error) {
	if subsong >= len(d.module.SubSongs) {
		return nil, fmt.Errorf("pattern references subsong %d of %d", subsong, len(d.module.SubSongs))
	}
	if channel >= d.module.TotalChannels {
		return nil, fmt.Errorf("pattern references channel %d of %d", channel, d.module.TotalChannels)
	}
	return d.module.SubSongs[subsong], nil
}

// emptyCells allocates a full pattern's worth of empty rows. Early pattern
// termination must still yield patLen cells.
func emptyCells(patLen int) []Cell {
	cells := make([]Cell, patLen)
	for i := range cells {
		cells[i] = emptyCell()
	}
	return cells
}

// decodeNewPattern decodes a "PATN" block: a presence-bitmask stream with
// skip runs and an early end marker.
func (d *Decoder) decodeNewPattern() (*Pattern, error) {
	c := d.c
	if _, err := c.readU32(); err != nil { // Block size, unused.
		return nil, err
	}

	subsong, err := c.readU8()
	if err != nil {
		return nil, err
	}
	channel, err := c.readU8()
	if err != nil {
		return nil, err
	}
	index, err := c.readU16()
	if err != nil {
		return nil, err
	}
	name, err := c.readString()
	if err != nil {
		return nil, err
	}

	ss, err := d.subSongFor(int(subsong), int(channel))
	if err != nil {
		return nil, err
	}

	pat := &Pattern{
		SubSong: int(subsong),
		Channel: int(channel),
		Index:   int(index),
		Name:    name,
		Cells:   emptyCells(ss.PatLen),
	}

	// From here on the pattern's identity is known, so failures return the
	// pattern along with the error and the caller can keep a placeholder.
	row := 0
	for row < ss.PatLen {
		cmd, err := c.readU8()
		if err != nil {
			return pat, err
		}
		if cmd == 0xff {
			break // End of pattern; the remaining rows stay empty.
		}
		if cmd&0x80 != 0 {
			row += int(cmd&0x7f) + 2
			continue
		}
		if cmd == 0 {
			row++
			continue
		}

		cell, err := d.decodeSparseCell(cmd)
		if err != nil {
			return pat, err
		}
		pat.Cells[row] = cell
		row++
	}
	return pat, nil
}

// Presence bits of a sparse cell command byte.
const (
	presNote     = 1 << 0
	presIns      = 1 << 1
	presVolume   = 1 << 2
	presFx0Type  = 1 << 3
	presFx0Value = 1 << 4
	presFx13Mask = 1 << 5 // An extra mask byte for effects 1-3 follows.
	presFx47Mask = 1 << 6 // An extra mask byte for effects 4-7 follows.
)

// decodeSparseCell reads one present-field cell. The command byte's low bits
// say which of note/instrument/volume/effect-0 are present; two optional
// extension mask bytes add effects 1-3 and 4-7 at two bits per slot
// (type present, value present).
func (d *Decoder) decodeSparseCell(cmd uint8) (Cell, error) {
	c := d.c
	cell := emptyCell()

	// Effect slot presence: [slot] -> (type present, value present).
	var fxType, fxValue [8]bool
	fxType[0] = cmd&presFx0Type != 0
	fxValue[0] = cmd&presFx0Value != 0

	if cmd&presFx13Mask != 0 {
		mask, err := c.readU8()
		if err != nil {
			return cell, err
		}
		for slot := 1; slot <= 3; slot++ {
			fxType[slot] = mask&(1<<uint(2*(slot-1))) != 0
			fxValue[slot] = mask&(1<<uint(2*(slot-1)+1)) != 0
		}
	}
	if cmd&presFx47Mask != 0 {
		mask, err := c.readU8()
		if err != nil {
			return cell, err
		}
		for slot := 4; slot <= 7; slot++ {
			fxType[slot] = mask&(1<<uint(2*(slot-4))) != 0
			fxValue[slot] = mask&(1<<uint(2*(slot-4)+1)) != 0
		}
	}

	if cmd&presNote != 0 {
		raw, err := c.readU8()
		if err != nil {
			return cell, err
		}
		switch {
		case raw == rawNoteOff:
			cell.Note = NoteOff
		case raw == rawNoteRelease:
			cell.Note = NoteRelease
		case raw == rawNoteMacroRelease:
			cell.Note = NoteMacroRelease
		case raw < 180:
			cell.Note = int16(newFormatNotes[raw])
			cell.Octave = int8(newFormatOctaves[raw])
		default:
			d.addWarning("note value %d out of range, treating as empty", raw)
		}
	}
	if cmd&presIns != 0 {
		v, err := c.readU8()
		if err != nil {
			return cell, err
		}
		cell.Instrument = int16(v)
	}
	if cmd&presVolume != 0 {
		v, err := c.readU8()
		if err != nil {
			return cell, err
		}
		cell.Volume = int16(v)
	}

	var effects [8]EffectPair
	for i := range effects {
		effects[i] = EffectPair{Type: -1, Value: -1}
	}
	used := 0
	for slot := 0; slot < 8; slot++ {
		if fxType[slot] {
			v, err := c.readU8()
			if err != nil {
				return cell, err
			}
			effects[slot].Type = int16(v)
			used = slot + 1
		}
		if fxValue[slot] {
			// An orphan value byte (value present without type) is still
			// consumed to keep the stream in sync.
			v, err := c.readU8()
			if err != nil {
				return cell, err
			}
			effects[slot].Value = int16(v)
			used = slot + 1
		}
	}
	if used > 0 {
		cell.Effects = append(cell.Effects, effects[:used]...)
	}
	return cell, nil
}

// decodeOldPattern decodes a "PATR" block: a dense grid of fixed-width
// fields, one full row set per pattern regardless of content.
func (d *Decoder) decodeOldPattern() (*Pattern, error) {
	c := d.c
	if _, err := c.readU32(); err != nil { // Block size, unused.
		return nil, err
	}

	channel, err := c.readU16()
	if err != nil {
		return nil, err
	}
	index, err := c.readU16()
	if err != nil {
		return nil, err
	}
	subsong, err := c.readU16()
	if err != nil {
		return nil, err
	}
	c.skip(2) // Reserved.

	ss, err := d.subSongFor(int(subsong), int(channel))
	if err != nil {
		return nil, err
	}

	pat := &Pattern{
		SubSong: int(subsong),
		Channel: int(channel),
		Index:   int(index),
		Cells:   emptyCells(ss.PatLen),
	}

	fxColumns := 1
	if int(channel) < len(ss.EffectColumns) {
		fxColumns = int(ss.EffectColumns[channel])
	}

	for row := 0; row < ss.PatLen; row++ {
		cell, err := d.decodeDenseCell(fxColumns)
		if err != nil {
			return pat, err
		}
		pat.Cells[row] = cell
	}
	return pat, nil
}

// decodeDenseCell reads one legacy row: note, octave, instrument and volume
// as 16-bit fields, then exactly fxColumns effect pairs.
func (d *Decoder) decodeDenseCell(fxColumns int) (Cell, error) {
	c := d.c
	cell := emptyCell()

	note, err := c.readU16()
	if err != nil {
		return cell, err
	}
	octave, err := c.readU16()
	if err != nil {
		return cell, err
	}
	ins, err := c.readI16()
	if err != nil {
		return cell, err
	}
	vol, err := c.readI16()
	if err != nil {
		return cell, err
	}

	oct := int(octave)
	if oct >= 128 {
		oct -= 256 // Octaves were stored as a byte value widened without sign.
	}

	switch {
	case note == 0 && octave == 0:
		// No note on this row.
	case note == oldNoteOff:
		cell.Note = NoteOff
	case note == oldNoteRelease:
		cell.Note = NoteRelease
	case note == oldNoteMacroRelease:
		cell.Note = NoteMacroRelease
	case note == 12:
		// Legacy carry-over: "C of the next octave".
		cell.Note = 0
		cell.Octave = int8(oct + 1)
	case note < 12:
		cell.Note = int16(note)
		cell.Octave = int8(oct)
	default:
		d.addWarning("old note value %d out of range, treating as empty", note)
	}

	cell.Instrument = ins
	cell.Volume = vol

	for i := 0; i < fxColumns; i++ {
		fxType, err := c.readI16()
		if err != nil {
			return cell, err
		}
		fxValue, err := c.readI16()
		if err != nil {
			return cell, err
		}
		cell.Effects = append(cell.Effects, EffectPair{Type: fxType, Value: fxValue})
	}
	return cell, nil
}
