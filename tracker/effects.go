package tracker

// The canonical effect space follows the classic tracker convention: a
// 0x00-0x0F base page with 0x0E as the nibble-addressed extended page.
// Source codes without a table entry pass through unchanged; downstream can
// choose to ignore codes it doesn't implement, but the converter never drops
// them.
var effectMap = map[uint8]uint8{
	0x00: 0x00, // Arpeggio.
	0x01: 0x01, // Portamento up.
	0x02: 0x02, // Portamento down.
	0x03: 0x03, // Tone portamento.
	0x04: 0x04, // Vibrato.
	0x07: 0x07, // Tremolo.
	0x08: 0x08, // Panning.
	0x09: 0x0f, // Set ticks-per-row (first speed).
	0x0a: 0x0a, // Volume slide.
	0x0b: 0x0b, // Jump to order.
	0x0c: 0x0c, // Retrigger.
	0x0d: 0x0d, // Jump to next pattern.
	0x0f: 0x0f, // Set speed.
	0x80: 0x08, // Set panning (linear).
}

// Extended effect sub-range of the source space. These split into the
// canonical extended page, keyed by sub-command in the value's high nibble.
const (
	extRangeLo = 0xe0
	extRangeHi = 0xef

	extendedEffect = 0x0e
)

// translateEffect maps one source effect pair onto the canonical space.
func translateEffect(srcType, srcValue uint8) Effect {
	if srcType >= extRangeLo && srcType <= extRangeHi {
		// 0xEx vv -> 0x0E (x << 4 | low nibble of vv).
		return Effect{
			Type:  extendedEffect,
			Value: (srcType&0x0f)<<4 | srcValue&0x0f,
		}
	}
	if mapped, ok := effectMap[srcType]; ok {
		return Effect{Type: mapped, Value: srcValue}
	}
	return Effect{Type: srcType, Value: srcValue}
}

// Sample-playback chips number their octaves two lower than they sound;
// chip-synth channels use native numbering. Applying this to the wrong family
// silently shifts every note by two octaves.
const sampleOctaveOffset = 2

// translateOctave converts a stored octave for a note played on the given
// chip family.
func translateOctave(octave int8, samplePlayback bool) int {
	if samplePlayback {
		return int(octave) + sampleOctaveOffset
	}
	return int(octave)
}
