package tracker

import (
	"testing"

	"github.com/QEStudios/FurnaceModuleReader/parser/furnace"
)

func TestDeriveTempo(t *testing.T) {
	cases := []struct {
		hz           float64
		virtN, virtD uint16
		want         int
	}{
		{60, 150, 150, 150},
		{50, 150, 150, 125},
		{60, 200, 100, 300},
		{60, 0, 0, 150}, // Zero denominator falls back to the neutral ratio.
	}
	for _, tc := range cases {
		if got := DeriveTempo(tc.hz, tc.virtN, tc.virtD); got != tc.want {
			t.Errorf("DeriveTempo(%v, %d, %d) = %d, want %d", tc.hz, tc.virtN, tc.virtD, got, tc.want)
		}
	}
}

func TestTranslateEffect(t *testing.T) {
	cases := []struct {
		srcType, srcValue uint8
		want              Effect
	}{
		// The 0xEx range folds into the extended page.
		{0xe5, 0x34, Effect{Type: 0x0e, Value: 0x54}},
		{0xec, 0x03, Effect{Type: 0x0e, Value: 0xc3}},
		// Ticks-per-row moves to the speed slot.
		{0x09, 0x06, Effect{Type: 0x0f, Value: 0x06}},
		// Linear panning lands on the panning effect.
		{0x80, 0x40, Effect{Type: 0x08, Value: 0x40}},
		// Identity-mapped and unmapped codes pass through.
		{0x0b, 0x02, Effect{Type: 0x0b, Value: 0x02}},
		{0x1d, 0x99, Effect{Type: 0x1d, Value: 0x99}},
	}
	for _, tc := range cases {
		if got := translateEffect(tc.srcType, tc.srcValue); got != tc.want {
			t.Errorf("translateEffect(%#02x, %#02x) = %+v, want %+v",
				tc.srcType, tc.srcValue, got, tc.want)
		}
	}
}

func TestTranslateOctave(t *testing.T) {
	if got := translateOctave(3, false); got != 3 {
		t.Errorf("synth octave = %d, want 3", got)
	}
	if got := translateOctave(3, true); got != 5 {
		t.Errorf("sample octave = %d, want 5", got)
	}
	if got := translateOctave(-1, true); got != 1 {
		t.Errorf("sample octave from -1 = %d, want 1", got)
	}
}

// fcell builds a source cell with furnace's absence conventions.
func fcell(note int16, octave int8, ins, vol int16, effects ...furnace.EffectPair) furnace.Cell {
	return furnace.Cell{
		Note:       note,
		Octave:     octave,
		Instrument: ins,
		Volume:     vol,
		Effects:    effects,
	}
}

// testModule builds a two-chip module: a C64 (channels 0-2) and an Amiga
// (channels 3-6), two subsongs, and a handful of patterns chosen to exercise
// grid assembly, octave translation and the standard-type remap.
func testModule() *furnace.Module {
	mod := &furnace.Module{
		Name:          "mod",
		Author:        "nobody",
		TotalChannels: 7,
		Chips: []furnace.ChipSetup{
			{ID: furnace.ChipC64New, Channels: 3},
			{ID: furnace.ChipAmiga, Channels: 4},
		},
		Patterns: make(map[furnace.PatternKey]*furnace.Pattern),
	}

	orders := func(n int) [][]uint8 {
		o := make([][]uint8, 7)
		for ch := range o {
			o[ch] = make([]uint8, n)
		}
		return o
	}
	mod.SubSongs = []*furnace.SubSong{
		{
			TickRate:   60,
			VirtTempoN: 150,
			VirtTempoD: 150,
			Speed1:     6,
			PatLen:     3,
			OrdersLen:  1,
			Orders:     orders(1),
		},
		{
			Name:       "second",
			TickRate:   50,
			VirtTempoN: 150,
			VirtTempoD: 150,
			Speed1:     3,
			PatLen:     1,
			OrdersLen:  1,
			Orders:     orders(1),
		},
	}

	// Channel 0 (C64): a note with effects, then instrument 3, then a
	// note-off row.
	mod.Patterns[furnace.PatternKey{SubSong: 0, Channel: 0, Index: 0}] = &furnace.Pattern{
		Cells: []furnace.Cell{
			fcell(5, 3, 0, 15,
				furnace.EffectPair{Type: 0xe5, Value: 0x34},
				furnace.EffectPair{Type: 0x00, Value: -1},
				furnace.EffectPair{Type: -1, Value: 0x42}),
			fcell(furnace.NoteNone, 0, 3, -1),
			fcell(furnace.NoteOff, 0, -1, -1),
		},
	}
	// Channel 3 (Amiga): instrument 0 twice so it wins the remap tally, and
	// instrument 3 once to force the first-seen tie-break.
	mod.Patterns[furnace.PatternKey{SubSong: 0, Channel: 3, Index: 0}] = &furnace.Pattern{
		Cells: []furnace.Cell{
			fcell(0, 2, 0, -1),
			fcell(furnace.NoteNone, 0, 0, -1),
			fcell(furnace.NoteNone, 0, 3, -1),
		},
	}

	mod.Instruments = []*furnace.Instrument{
		{Name: "mostly amiga", Type: furnace.InsTypeStandard},
		{Name: "never used", Type: furnace.InsTypeStandard},
		{Name: "already typed", Type: furnace.InsTypeGB},
		{Name: "tied", Type: furnace.InsTypeStandard},
	}
	return mod
}

func TestConvert(t *testing.T) {
	result, err := Convert(testModule())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	song := result.Song

	if song.Name != "mod" || song.Tempo != 150 || song.Speed != 6 {
		t.Errorf("song = %q tempo %d speed %d", song.Name, song.Tempo, song.Speed)
	}
	if song.Channels != 7 || song.PatternLen != 3 || len(song.Grid) != 1 {
		t.Fatalf("grid shape = %d channels, %d rows, %d slots",
			song.Channels, song.PatternLen, len(song.Grid))
	}

	rows := song.Grid[0].Rows
	// C64 channel: octave passes through unchanged.
	c := rows[0][0]
	if c.Note != 5 || c.Octave != 3 || c.Instrument != 0 || c.Volume != 15 {
		t.Errorf("cell (0,0) = %+v", c)
	}
	// The 0xE5 effect folds into the extended page, the typeless pair is
	// dropped, and the valueless pair gets value 0.
	if len(c.Effects) != 2 {
		t.Fatalf("cell (0,0) effects = %+v, want 2", c.Effects)
	}
	if c.Effects[0] != (Effect{Type: 0x0e, Value: 0x54}) {
		t.Errorf("effect 0 = %+v", c.Effects[0])
	}
	if c.Effects[1] != (Effect{Type: 0x00, Value: 0}) {
		t.Errorf("effect 1 = %+v, want arpeggio with value 0", c.Effects[1])
	}
	if rows[2][0].Note != NoteOff {
		t.Errorf("cell (2,0) note = %d, want NoteOff", rows[2][0].Note)
	}

	// Amiga channel: the sample octave offset applies.
	if c := rows[0][3]; c.Note != 0 || c.Octave != 4 {
		t.Errorf("cell (0,3) = %+v, want C-4 after the sample octave offset", c)
	}

	// Channels without a pattern come out empty, not missing.
	if c := rows[0][1]; c.Note != NoteNone || c.Instrument != -1 || c.Volume != -1 {
		t.Errorf("cell (0,1) = %+v, want empty", c)
	}

	// Subsong 1 surfaces as an extra song with a composed name.
	extra, ok := result.ExtraSongs[1]
	if !ok {
		t.Fatal("extra subsong 1 missing")
	}
	if extra.Name != "mod - second" || extra.Tempo != 125 || extra.Speed != 3 {
		t.Errorf("extra song = %q tempo %d speed %d", extra.Name, extra.Tempo, extra.Speed)
	}

	if result.Metadata.OriginalChannels != 7 || len(result.Metadata.Chips) != 2 {
		t.Errorf("metadata = %+v", result.Metadata)
	}
}

func TestConvertRemapsStandardInstruments(t *testing.T) {
	result, err := Convert(testModule())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(result.Instruments) != 4 {
		t.Fatalf("got %d instruments, want 4", len(result.Instruments))
	}

	// Used twice on the Amiga, once on the C64: the majority chip wins.
	if got := result.Instruments[0].Type; got != furnace.InsTypeAmiga {
		t.Errorf("instrument 0 type = %v, want Amiga", got)
	}
	// Never referenced: falls back to the first chip.
	if got := result.Instruments[1].Type; got != furnace.InsTypeC64 {
		t.Errorf("instrument 1 type = %v, want C64 fallback", got)
	}
	// Non-standard types are left alone.
	if got := result.Instruments[2].Type; got != furnace.InsTypeGB {
		t.Errorf("instrument 2 type = %v, want GB unchanged", got)
	}
	// One use on each chip: the tie breaks toward the first-seen chip, and
	// channels scan in order, so the C64 wins.
	if got := result.Instruments[3].Type; got != furnace.InsTypeC64 {
		t.Errorf("instrument 3 type = %v, want C64 by tie-break", got)
	}
}

func TestConvertRejectsEmptyModule(t *testing.T) {
	if _, err := Convert(&furnace.Module{}); err == nil {
		t.Fatal("expected an error for a module with no subsongs")
	}
}
