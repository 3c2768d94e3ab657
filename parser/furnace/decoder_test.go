package furnace

import (
	"bytes"
	"errors"
	"io"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// fixtureWriter builds little-endian binary fixtures for decoder tests.
type fixtureWriter struct {
	buf []byte
}

func newFixtureWriter() *fixtureWriter { return &fixtureWriter{} }

func (w *fixtureWriter) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *fixtureWriter) u16(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

func (w *fixtureWriter) u32(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (w *fixtureWriter) i32(v int32) { w.u32(uint32(v)) }

func (w *fixtureWriter) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *fixtureWriter) bytes(b ...byte) { w.buf = append(w.buf, b...) }

func (w *fixtureWriter) magic(s string) { w.buf = append(w.buf, s...) }

func (w *fixtureWriter) str(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// reserve32 writes a placeholder word and returns its offset for patch32.
func (w *fixtureWriter) reserve32() int {
	off := len(w.buf)
	w.u32(0)
	return off
}

func (w *fixtureWriter) patch32(off int, v uint32) {
	w.buf[off] = byte(v)
	w.buf[off+1] = byte(v >> 8)
	w.buf[off+2] = byte(v >> 16)
	w.buf[off+3] = byte(v >> 24)
}

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func hasWarning(warnings []Warning, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w.Message, substr) {
			return true
		}
	}
	return false
}

// buildNewModule assembles a complete pointer-directory ("INF2") module with
// one Game Boy chip, one subsong, one instrument, one wavetable, one sample,
// one pattern, compat flags, a comment and a groove table.
func buildNewModule(version uint16) []byte {
	w := newFixtureWriter()
	w.magic(moduleMagic)
	w.u16(version)
	w.u16(0) // Reserved.
	infoPtr := w.reserve32()

	songOff := len(w.buf)
	w.magic("SONG")
	w.u32(0) // Block size, unused by the decoder.
	w.u8(1)  // Time base.
	w.u8(6)  // Speed 1.
	w.u8(6)  // Speed 2.
	w.u8(1)  // Arp speed.
	w.f32(60)
	w.u16(4) // Pattern length.
	w.u16(2) // Orders length.
	w.u8(4)  // Highlight A.
	w.u8(16) // Highlight B.
	w.u16(150)
	w.u16(150)
	w.str("main")
	w.str("") // Subsong comment.
	w.bytes(0, 1) // Orders, channel 0 then the rest.
	w.bytes(0, 0)
	w.bytes(0, 0)
	w.bytes(0, 0)
	w.bytes(1, 1, 1, 1)             // Effect columns.
	w.bytes(0, 0, 0, 0, 0, 0, 0, 0) // Shown/collapsed display state.
	for i := 0; i < 8; i++ {
		w.str("") // Channel names and short names.
	}

	insOff := len(w.buf)
	w.magic("INS2")
	insSize := w.reserve32()
	insBody := len(w.buf)
	w.u16(version)
	w.u16(uint16(InsTypeGB))
	w.magic(featName)
	w.u16(5)
	w.str("lead")
	w.magic(featGB)
	w.u16(4)
	w.bytes(15, 1, 2, 64)
	w.magic(featMacros)
	w.u16(14)
	w.u16(8) // Macro header length.
	// Code, length, loop, release, mode, type, delay, speed.
	w.bytes(MacroCodeVolume, 3, 0xff, 0xff, 0, 0, 0, 1)
	w.bytes(15, 10, 5)
	w.u8(macroListEnd)
	w.magic("ZZ") // Unknown feature, must be skipped by its declared length.
	w.u16(3)
	w.bytes(1, 2, 3)
	w.magic(featEnd)
	w.patch32(insSize, uint32(len(w.buf)-insBody))

	waveOff := len(w.buf)
	w.magic("WAVE")
	w.u32(0)
	w.str("square")
	w.u32(4)  // Width.
	w.u32(0)  // Reserved.
	w.u32(16) // Height.
	w.i32(0)
	w.i32(15)
	w.i32(0)
	w.i32(15)

	smpOff := len(w.buf)
	w.magic("SMP2")
	w.u32(0)
	w.str("kick")
	w.u32(4)    // Length.
	w.u32(8000) // Compat rate.
	w.u32(8363) // C-4 rate.
	w.u8(8)     // Depth.
	w.u8(0)     // Loop direction.
	w.bytes(0, 0)
	w.i32(-1)
	w.i32(-1)
	w.bytes(0x10, 0x20, 0x30, 0x40)

	patOff := len(w.buf)
	w.magic("PATN")
	w.u32(0)
	w.u8(0) // Subsong.
	w.u8(0) // Channel.
	w.u16(0)
	w.str("")
	w.bytes(presNote|presIns, 65, 0, 0xff)

	flagOff := len(w.buf)
	w.magic("FLAG")
	w.u32(10)
	w.bytes(1, 1, 0, 0, 0, 0, 0, 0, 0, 0)

	cmntOff := len(w.buf)
	w.magic("CMNT")
	w.u32(0)
	w.str("made for testing")

	grvOff := len(w.buf)
	w.magic("GRVS")
	w.u32(0)
	w.u8(3)
	w.bytes(6, 3, 3)

	w.patch32(infoPtr, uint32(len(w.buf)))
	w.magic("INF2")
	w.u32(0)
	w.str("Test Module")
	w.str("nobody")
	w.str("Game Boy")
	w.str("")
	w.f32(440)
	w.f32(1)
	w.u8(1) // Chip count.
	w.bytes(uint8(ChipGB))
	w.bytes(0x40) // Chip volume.
	w.bytes(0)    // Chip panning.
	w.u32(1)      // Patchbay connections.
	w.u32(1<<20 | 2<<8 | 0xff)

	dir := func(typ uint8, ptrs ...int) {
		w.u8(typ)
		w.u32(uint32(len(ptrs)))
		for _, p := range ptrs {
			w.u32(uint32(p))
		}
	}
	dir(elementSubSong, songOff)
	dir(elementInstrument, insOff)
	dir(elementWavetable, waveOff)
	dir(elementSample, smpOff)
	dir(elementPattern, patOff)
	dir(elementCompat, flagOff)
	dir(elementComment, cmntOff)
	dir(elementGroove, grvOff)
	dir(0x7f, 0, 0) // Unknown element type, must be skipped.
	w.u8(elementEnd)

	return w.buf
}

func TestDecodeNewFormat(t *testing.T) {
	result, err := NewDecoder(buildNewModule(250), discardLogger()).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	mod := result.Module

	if mod.Version != 250 {
		t.Errorf("version = %d, want 250", mod.Version)
	}
	if mod.Name != "Test Module" || mod.Author != "nobody" || mod.SystemName != "Game Boy" {
		t.Errorf("metadata = %q/%q/%q", mod.Name, mod.Author, mod.SystemName)
	}
	if mod.TuningA4 != 440 || mod.MasterVolume != 1 {
		t.Errorf("tuning/volume = %f/%f", mod.TuningA4, mod.MasterVolume)
	}

	if len(mod.Chips) != 1 || mod.Chips[0].ID != ChipGB || mod.Chips[0].Channels != 4 {
		t.Fatalf("chips = %+v, want one Game Boy with 4 channels", mod.Chips)
	}
	if mod.TotalChannels != 4 {
		t.Errorf("total channels = %d, want 4", mod.TotalChannels)
	}

	if len(mod.Patchbay) != 1 {
		t.Fatalf("patchbay = %+v, want one connection", mod.Patchbay)
	}
	if pb := mod.Patchbay[0]; pb.Source != 1 || pb.Dest != 2 || pb.Level != 0xff {
		t.Errorf("patchbay connection = %+v, want 1 -> 2 at level 0xff", pb)
	}

	if len(mod.SubSongs) != 1 {
		t.Fatalf("got %d subsongs, want 1", len(mod.SubSongs))
	}
	ss := mod.SubSongs[0]
	if ss.Name != "main" || ss.TickRate != 60 || ss.PatLen != 4 || ss.OrdersLen != 2 {
		t.Errorf("subsong = %+v", ss)
	}
	if ss.VirtTempoN != 150 || ss.VirtTempoD != 150 {
		t.Errorf("virtual tempo = %d/%d, want 150/150", ss.VirtTempoN, ss.VirtTempoD)
	}
	if len(ss.Orders) != 4 || ss.Orders[0][1] != 1 {
		t.Errorf("orders = %+v", ss.Orders)
	}

	if len(mod.Instruments) != 1 {
		t.Fatalf("got %d instruments, want 1", len(mod.Instruments))
	}
	ins := mod.Instruments[0]
	if ins.Name != "lead" || ins.Type != InsTypeGB || ins.Broken {
		t.Errorf("instrument = %+v", ins)
	}
	if ins.GB == nil || ins.GB.Volume != 15 || ins.GB.SoundLen != 64 {
		t.Errorf("GB params = %+v", ins.GB)
	}
	if len(ins.Macros) != 1 {
		t.Fatalf("macros = %+v, want one", ins.Macros)
	}
	m := ins.Macros[0]
	if m.Code != MacroCodeVolume || m.Speed != 1 {
		t.Errorf("macro header = %+v", m)
	}
	if len(m.Values) != 3 || m.Values[0] != 15 || m.Values[2] != 5 {
		t.Errorf("macro values = %v, want [15 10 5]", m.Values)
	}
	if !hasWarning(result.Warnings, `unknown instrument feature "ZZ"`) {
		t.Errorf("missing unknown-feature warning, got %v", result.Warnings)
	}

	if len(mod.Wavetables) != 1 {
		t.Fatalf("got %d wavetables, want 1", len(mod.Wavetables))
	}
	wt := mod.Wavetables[0]
	if wt.Name != "square" || wt.Width != 4 || wt.Height != 16 || wt.Data[1] != 15 {
		t.Errorf("wavetable = %+v", wt)
	}

	if len(mod.Samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(mod.Samples))
	}
	s := mod.Samples[0]
	if s.Name != "kick" || s.Length != 4 || s.Depth != 8 || s.C4Rate != 8363 {
		t.Errorf("sample = %+v", s)
	}
	if len(s.Data8) != 4 || s.Data8[3] != 0x40 {
		t.Errorf("sample data = %v", s.Data8)
	}

	pat := mod.Patterns[PatternKey{SubSong: 0, Channel: 0, Index: 0}]
	if pat == nil {
		t.Fatal("pattern (0,0,0) missing")
	}
	if c := pat.Cells[0]; c.Note != 5 || c.Octave != 0 || c.Instrument != 0 {
		t.Errorf("pattern cell 0 = %+v, want F-0 instrument 0", c)
	}

	if mod.Compat == nil || !mod.Compat.LimitSlides || !mod.Compat.LinearPitch {
		t.Errorf("compat flags = %+v", mod.Compat)
	}
	if mod.Comment != "made for testing" {
		t.Errorf("comment = %q", mod.Comment)
	}
	if len(mod.Grooves) != 1 || !bytes.Equal(mod.Grooves[0], []byte{6, 3, 3}) {
		t.Errorf("grooves = %v", mod.Grooves)
	}

	if !hasWarning(result.Warnings, "unknown element type 0x7f") {
		t.Errorf("missing unknown-element warning, got %v", result.Warnings)
	}
}

// buildOldModule assembles a fixed-layout ("INFO") module with one C64 chip.
// The second instrument pointer targets the file header, so it must decode to
// a placeholder without taking the rest of the module down with it. The one
// real instrument has no waveform enabled, exercising the waveform repair.
func buildOldModule() []byte {
	w := newFixtureWriter()
	w.magic(moduleMagic)
	w.u16(100)
	w.u16(0) // Reserved.
	infoPtr := w.reserve32()
	w.patch32(infoPtr, uint32(len(w.buf)))

	w.magic("INFO")
	w.u32(0) // Block size, unused by the decoder.
	w.u8(1)  // Time base.
	w.u8(6)  // Speed 1.
	w.u8(6)  // Speed 2.
	w.u8(1)  // Arp speed.
	w.f32(50)
	w.u16(2) // Pattern length.
	w.u16(1) // Orders length.
	w.u8(4)  // Highlight A.
	w.u8(16) // Highlight B.
	w.u16(2) // Instruments.
	w.u16(0) // Wavetables.
	w.u16(1) // Samples.
	w.u32(1) // Patterns.

	chipIDs := make([]byte, 32)
	chipIDs[0] = uint8(ChipC64New)
	w.bytes(chipIDs...)
	w.bytes(make([]byte, 32)...)   // Chip volumes.
	w.bytes(make([]byte, 32)...)   // Chip pans.
	w.bytes(make([]byte, 32*4)...) // Chip flag words.

	w.str("Old Module")
	w.str("nobody")
	w.f32(440)

	compat := make([]byte, 20)
	compat[0] = 1 // Limit slides.
	w.bytes(compat...)

	instPtr := w.reserve32()
	w.u32(0) // Corrupt: points at the file header.
	samplePtr := w.reserve32()
	patPtr := w.reserve32()

	w.bytes(0) // Orders, channel 0.
	w.bytes(0)
	w.bytes(0)
	w.bytes(1, 1, 1)          // Effect columns.
	w.bytes(0, 0, 0, 0, 0, 0) // Shown/collapsed display state.
	for i := 0; i < 6; i++ {
		w.str("") // Channel names and short names.
	}
	w.str("no comment")
	w.f32(1)

	w.patch32(instPtr, uint32(len(w.buf)))
	w.magic("INST")
	w.u32(0) // Size 0: record ends where decoding stops.
	w.u16(100)
	w.u8(uint8(InsTypeC64))
	w.u8(0) // Reserved.
	w.str("bass")
	w.bytes(0, 0, 0, 0, 4, 0) // FM header.
	w.bytes(0, 0)             // Reserved.
	for op := 0; op < 4; op++ {
		w.bytes(make([]byte, 32)...)
	}
	w.bytes(0, 0, 0, 0)          // Game Boy block.
	w.bytes(make([]byte, 24)...) // C64 block: no waveform, duty 0.
	w.u16(0)                     // Amiga initial sample.
	w.bytes(make([]byte, 14)...)
	w.bytes(0, 0, 0, 1)             // Macro lengths: only the waveform macro.
	w.bytes(0xff, 0xff, 0xff, 0xff) // Macro loops.
	w.u8(0)                         // Arp mode.
	w.i32(2)                        // Waveform macro value: saw.

	w.patch32(samplePtr, uint32(len(w.buf)))
	w.magic("SMPL")
	w.u32(0)
	w.str("snare")
	w.u32(2)    // Length.
	w.u32(8000) // Rate.
	w.u16(0)    // Pitch.
	w.u16(64)   // Volume.
	w.u8(8)     // Depth.
	w.u8(0)     // Reserved.
	w.bytes(0x7f, 0x80)

	w.patch32(patPtr, uint32(len(w.buf)))
	w.magic("PATR")
	w.u32(0)
	w.u16(0) // Channel.
	w.u16(0) // Index.
	w.u16(0) // Subsong.
	w.u16(0) // Reserved.
	// Note, octave, instrument, volume, effect type, effect value.
	w.u16(5)
	w.u16(4)
	w.u16(0)
	w.u16(15)
	w.u16(0xffff)
	w.u16(0xffff)
	w.u16(0)
	w.u16(0)
	w.u16(0xffff)
	w.u16(0xffff)
	w.u16(0xffff)
	w.u16(0xffff)

	return w.buf
}

func TestDecodeOldFormat(t *testing.T) {
	result, err := NewDecoder(buildOldModule(), discardLogger()).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	mod := result.Module

	if mod.Name != "Old Module" || mod.Version != 100 {
		t.Errorf("name/version = %q/%d", mod.Name, mod.Version)
	}
	if len(mod.Chips) != 1 || mod.Chips[0].ID != ChipC64New || mod.TotalChannels != 3 {
		t.Fatalf("chips = %+v, total %d", mod.Chips, mod.TotalChannels)
	}
	if len(mod.SubSongs) != 1 {
		t.Fatalf("got %d subsongs, want 1", len(mod.SubSongs))
	}
	ss := mod.SubSongs[0]
	if ss.TickRate != 50 || ss.PatLen != 2 || ss.OrdersLen != 1 {
		t.Errorf("subsong = %+v", ss)
	}
	// Files without a virtual tempo field play at the neutral ratio.
	if ss.VirtTempoN != 150 || ss.VirtTempoD != 150 {
		t.Errorf("virtual tempo = %d/%d, want 150/150", ss.VirtTempoN, ss.VirtTempoD)
	}

	if mod.Compat == nil || !mod.Compat.LimitSlides || mod.Compat.LinearPitch {
		t.Errorf("compat flags = %+v", mod.Compat)
	}

	if len(mod.Instruments) != 2 {
		t.Fatalf("got %d instruments, want 2", len(mod.Instruments))
	}
	good := mod.Instruments[0]
	if good.Name != "bass" || good.Type != InsTypeC64 || good.Broken {
		t.Errorf("instrument 0 = %+v", good)
	}
	// No waveform bits were set; the repair infers saw from the macro.
	if good.C64 == nil || !good.C64.SawOn || good.C64.PulseOn {
		t.Errorf("C64 waveform = %+v, want saw inferred from macro", good.C64)
	}
	if !hasWarning(result.Warnings, "waveform inferred from macro") {
		t.Errorf("missing waveform repair warning, got %v", result.Warnings)
	}

	// The corrupt pointer degrades to a placeholder instead of failing the
	// decode, and everything after it still comes through.
	bad := mod.Instruments[1]
	if !bad.Broken || bad.Name != "Error" {
		t.Errorf("instrument 1 = %+v, want broken placeholder", bad)
	}
	if !hasWarning(result.Warnings, "instrument 1 failed to decode") {
		t.Errorf("missing instrument failure warning, got %v", result.Warnings)
	}
	if len(mod.Samples) != 1 || mod.Samples[0].Name != "snare" {
		t.Fatalf("samples = %+v", mod.Samples)
	}
	if mod.Samples[0].Depth != 8 || len(mod.Samples[0].Data8) != 2 {
		t.Errorf("sample = %+v", mod.Samples[0])
	}

	pat := mod.Patterns[PatternKey{SubSong: 0, Channel: 0, Index: 0}]
	if pat == nil {
		t.Fatal("pattern (0,0,0) missing")
	}
	if c := pat.Cells[0]; c.Note != 5 || c.Octave != 4 || c.Volume != 15 {
		t.Errorf("pattern cell 0 = %+v", c)
	}
	// Dense rows keep their absent effect pairs; only the note fields empty.
	if c := pat.Cells[1]; c.Note != NoteNone || c.Instrument != -1 || c.Volume != -1 {
		t.Errorf("pattern cell 1 = %+v, want empty note fields", pat.Cells[1])
	}
}

func TestInstrumentSampleMap(t *testing.T) {
	w := newFixtureWriter()
	w.magic("INS2")
	size := w.reserve32()
	body := len(w.buf)
	w.u16(250)
	w.u16(uint16(InsTypeAmiga))
	w.magic(featSampleMap)
	w.u16(4 + 120*6)
	w.u16(7) // Initial sample.
	w.u8(3)  // Use note map and sample.
	w.u8(0)  // Wave length.
	for n := 0; n < 120; n++ {
		w.i32(int32(8363 + n))
		// Samples 2 and 5 referenced, 5 only in the middle range.
		if n >= 40 && n < 80 {
			w.u16(5)
		} else {
			w.u16(2)
		}
	}
	w.magic(featEnd)
	w.patch32(size, uint32(len(w.buf)-body))

	d := &Decoder{c: newCursor(w.buf), logger: discardLogger()}
	ins, err := d.decodeInstrument()
	if err != nil {
		t.Fatalf("decodeInstrument: %v", err)
	}

	am := ins.Amiga
	if am == nil {
		t.Fatal("sample map feature did not produce Amiga params")
	}
	if am.InitSample != 7 || !am.UseNoteMap || !am.UseSample || am.UseWave {
		t.Errorf("sample map header = %+v", am)
	}
	if len(am.NoteMap) != 120 || len(am.NoteFreq) != 120 {
		t.Fatalf("note map sizes = %d/%d, want 120/120", len(am.NoteMap), len(am.NoteFreq))
	}
	if am.NoteMap[0] != 2 || am.NoteMap[40] != 5 || am.NoteMap[119] != 2 {
		t.Errorf("note map = [%d ... %d ... %d], want [2 ... 5 ... 2]",
			am.NoteMap[0], am.NoteMap[40], am.NoteMap[119])
	}
	if am.NoteFreq[119] != 8363+119 {
		t.Errorf("note freq 119 = %d, want %d", am.NoteFreq[119], 8363+119)
	}
	// Every distinct referenced sample, in first-seen order, exactly once.
	if len(ins.SampleIndices) != 2 || ins.SampleIndices[0] != 2 || ins.SampleIndices[1] != 5 {
		t.Errorf("sample indices = %v, want [2 5]", ins.SampleIndices)
	}
}

func TestOversizedDeclaredCounts(t *testing.T) {
	// Declared element counts are untrusted: a wavetable claiming ~4 billion
	// entries in a tiny buffer must degrade to the placeholder, not allocate.
	w := newFixtureWriter()
	w.magic("WAVE")
	w.u32(0)
	w.str("huge")
	w.u32(0xffffff00) // Width far beyond the buffer.
	w.u32(0)
	w.u32(16)

	d := &Decoder{c: newCursor(w.buf), logger: discardLogger()}
	d.decodeWavetableList([]int{0})
	if len(d.module.Wavetables) != 1 || d.module.Wavetables[0].Name != "Error" {
		t.Fatalf("wavetables = %+v, want one placeholder", d.module.Wavetables)
	}
	if !hasWarning(d.warnings, "wavetable 0 failed to decode") {
		t.Errorf("missing wavetable failure warning, got %v", d.warnings)
	}

	// Same for a 16-bit sample with an absurd length.
	w = newFixtureWriter()
	w.magic("SMP2")
	w.u32(0)
	w.str("huge")
	w.u32(0xffffff00) // Length.
	w.u32(8000)
	w.u32(8363)
	w.u8(16)
	w.u8(0)
	w.bytes(0, 0)
	w.i32(-1)
	w.i32(-1)

	d = &Decoder{c: newCursor(w.buf), logger: discardLogger()}
	d.decodeSampleList([]int{0})
	if len(d.module.Samples) != 1 || d.module.Samples[0].Name != "Error" {
		t.Fatalf("samples = %+v, want one placeholder", d.module.Samples)
	}

	// A directory entry declaring more pointers than the file holds fails as
	// a truncated read rather than allocating for the declared count.
	if _, err := readPointers(newCursor([]byte{1, 2, 3}), 1<<30); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestCorruptPatternBecomesEmptyPlaceholder(t *testing.T) {
	// The stream announces a note and then ends. The pattern's identity was
	// already read, so it stays in the table as an empty placeholder.
	d := patternDecoder(patn(0, 0, presNote), 4, 1)
	d.decodePatternList([]int{0})

	if !hasWarning(d.warnings, "pattern 0 failed to decode") {
		t.Errorf("missing pattern failure warning, got %v", d.warnings)
	}
	pat := d.module.Patterns[PatternKey{SubSong: 0, Channel: 0, Index: 0}]
	if pat == nil {
		t.Fatal("corrupt pattern missing from the table")
	}
	if len(pat.Cells) != 4 {
		t.Fatalf("placeholder has %d cells, want 4", len(pat.Cells))
	}
	for row, c := range pat.Cells {
		if !cellIsEmpty(c) {
			t.Errorf("row %d = %+v, want empty", row, c)
		}
	}
}

func TestDecodeZlibCompressed(t *testing.T) {
	raw := buildNewModule(250)
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("compress: %v", err)
	}

	result, err := NewDecoder(compressed.Bytes(), discardLogger()).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if result.Module.Name != "Test Module" {
		t.Errorf("name = %q after inflate", result.Module.Name)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	data := []byte("this is definitely not a module.")
	_, err := NewDecoder(data, discardLogger()).Decode()
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
	var decErr *DecodeError
	if !errors.As(err, &decErr) || decErr.Stage != "header" {
		t.Errorf("expected a header-stage DecodeError, got %#v", err)
	}
}

func TestDecodeNewerVersionWarns(t *testing.T) {
	result, err := NewDecoder(buildNewModule(300), discardLogger()).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !hasWarning(result.Warnings, "newer") {
		t.Errorf("missing newer-version warning, got %v", result.Warnings)
	}
	if result.Module.Name != "Test Module" {
		t.Errorf("best-effort decode failed, name = %q", result.Module.Name)
	}
}

func TestDecoderSingleUse(t *testing.T) {
	d := NewDecoder(buildNewModule(250), discardLogger())
	if _, err := d.Decode(); err != nil {
		t.Fatalf("first Decode: %v", err)
	}
	if _, err := d.Decode(); err == nil {
		t.Fatal("second Decode should fail")
	}
}
