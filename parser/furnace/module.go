package furnace

// A decoded module. This is the top-level decode result: one immutable
// snapshot of everything in the file. Nothing mutates it after Decode returns.
type Module struct {
	Name       string
	Author     string
	SystemName string
	Category   string

	Version  uint16  // Format version of the file that was decoded.
	TuningA4 float32 // The frequency that A4 maps to (usually 440 Hz).

	MasterVolume float32

	// The sound chips used by the song, in channel order.
	Chips []ChipSetup

	// Total channel count across all chips. Always equals the sum of the
	// per-chip channel counts.
	TotalChannels int

	SubSongs    []*SubSong
	Instruments []*Instrument
	Wavetables  []*Wavetable
	Samples     []*Sample

	// Patterns keyed by (subsong, channel, pattern index). Old-format files
	// only ever populate subsong 0.
	Patterns map[PatternKey]*Pattern

	Comment string

	Compat   *CompatFlags
	Grooves  [][]uint8
	Patchbay []PatchbayConnection
}

// One chip instance in the song's chip list.
type ChipSetup struct {
	ID       ChipID
	Channels int
	Volume   int8
	Panning  int8
}

// PatternKey addresses one decoded pattern: one channel's rows for one
// pattern slot of one subsong.
type PatternKey struct {
	SubSong int
	Channel int
	Index   int
}

// A single subsong inside the module. Old-format files have exactly one.
type SubSong struct {
	Name    string
	Comment string

	TimeBase uint8
	Speed1   uint8 // Ticks per row on even rows.
	Speed2   uint8 // Ticks per row on odd rows.
	ArpSpeed uint8
	TickRate float32 // Engine tick rate in Hz.

	PatLen    int // Rows per pattern.
	OrdersLen int // Entries in each channel's order list.

	HighlightA uint8
	HighlightB uint8

	// Virtual tempo multiplier applied on top of the tick rate.
	VirtTempoN uint16
	VirtTempoD uint16

	// Orders[channel][slot] is the pattern index played in that order slot.
	// Every channel's list has exactly OrdersLen entries.
	Orders [][]uint8

	// Extra effect columns per channel (1..8 total columns).
	EffectColumns []uint8

	ChannelNames      []string
	ChannelShortNames []string
}

// A decoded instrument.
type Instrument struct {
	Name string
	Type InstrumentType

	FM     *FMParams
	Macros []Macro

	// Sample and wavetable indices referenced by this instrument.
	SampleIndices []int
	WaveIndices   []int

	// At most one of these chip-specific blocks is set for new-format
	// instruments. Old-format records carry GB, C64 and Amiga unconditionally
	// (a quirk of the fixed layout, see decodeOldInstrument).
	GB    *GBParams
	C64   *C64Params
	SNES  *SNESParams
	N163  *N163Params
	FDS   *FDSParams
	Amiga *AmigaParams

	// Chip blocks we don't decode structurally, preserved for lossless
	// re-emission by downstream consumers.
	RawFeatures []RawFeature

	// The full byte span this instrument was decoded from.
	RawData []byte

	// Set when the instrument failed to decode and was replaced by a
	// placeholder.
	Broken bool
}

// A feature block kept as raw bytes.
type RawFeature struct {
	Code string
	Data []byte
}

// FM operator configuration.
type FMParams struct {
	Algorithm  uint8
	Feedback   uint8
	FMS        uint8
	AMS        uint8
	OpCount    uint8
	OPLLPreset uint8
	Ops        [4]FMOperator
}

type FMOperator struct {
	AM     uint8
	AR     uint8
	DR     uint8
	Mult   uint8
	RR     uint8
	SL     uint8
	TL     uint8
	DT2    uint8
	RS     uint8
	DT     uint8
	D2R    uint8
	SSGEnv uint8
}

// Game Boy envelope parameters.
type GBParams struct {
	Volume    uint8
	Direction uint8
	Length    uint8
	SoundLen  uint8
}

// C64 SID parameters.
type C64Params struct {
	TriOn   bool
	SawOn   bool
	PulseOn bool
	NoiseOn bool

	Attack  uint8
	Decay   uint8
	Sustain uint8
	Release uint8
	Duty    uint16

	RingMod bool
	OscSync bool

	ToFilter    bool
	InitFilter  bool
	VolIsCutoff bool
	Resonance   uint8
	LowPass     bool
	BandPass    bool
	HighPass    bool
	Ch3Off      bool
	Cutoff      uint16
}

// SNES envelope/gain parameters.
type SNESParams struct {
	UseEnv   bool
	SusMode  uint8
	Attack   uint8
	Decay    uint8
	Sustain  uint8
	Release  uint8
	GainMode uint8
	Gain     uint8
}

// Namco 163 wave setup.
type N163Params struct {
	Wave     int32
	WavePos  uint8
	WaveLen  uint8
	WaveMode uint8
}

// FDS modulation setup.
type FDSParams struct {
	ModSpeed  int32
	ModDepth  int32
	InitTable bool
	ModTable  [32]int8
}

// Amiga / generic sample mapping.
type AmigaParams struct {
	InitSample int
	UseNoteMap bool
	UseSample  bool
	UseWave    bool
	WaveLen    uint8

	// NoteMap[n] is the sample index played for note n (120 entries when
	// UseNoteMap is set, nil otherwise).
	NoteMap  []int16
	NoteFreq []int32
}

// Macro playback word sizes, from bits 6-7 of the macro type byte.
type MacroWordSize uint8

const (
	MacroWordU8 MacroWordSize = iota
	MacroWordI8
	MacroWordI16
	MacroWordI32
)

// One decoded macro sequence.
type Macro struct {
	Code    uint8 // Target parameter (volume, arpeggio, duty, ...).
	Length  uint8
	Loop    uint8
	Release uint8
	Mode    uint8
	Type    uint8 // Raw type byte; word size in bits 6-7, open flag in bit 0.
	Delay   uint8
	Speed   uint8

	// Decoded values, exactly Length entries.
	Values []int32
}

// WordSize returns the element width/signedness encoded in the type byte.
func (m Macro) WordSize() MacroWordSize {
	return MacroWordSize(m.Type >> 6)
}

// Open reports whether the macro uses an open (released) loop.
func (m Macro) Open() bool {
	return m.Type&1 != 0
}

// Common macro codes.
const (
	MacroCodeVolume uint8 = 0
	MacroCodeArp    uint8 = 1
	MacroCodeDuty   uint8 = 2
	MacroCodeWave   uint8 = 3
)

// A decoded pattern: one channel's row sequence for one pattern slot.
type Pattern struct {
	SubSong int
	Channel int
	Index   int
	Name    string

	// Exactly patLen cells, even when the stored stream ends early.
	Cells []Cell
}

// Note sentinels used in Cell.Note.
const (
	NoteNone         = -1
	NoteOff          = 200
	NoteRelease      = 201
	NoteMacroRelease = 202
)

// One row of one channel.
type Cell struct {
	Note   int16 // 0-11 within the octave, or a sentinel above.
	Octave int8

	Instrument int16 // -1 when absent.
	Volume     int16 // -1 when absent.

	// Up to 8 effect pairs; -1 marks an absent type or value.
	Effects []EffectPair
}

type EffectPair struct {
	Type  int16
	Value int16
}

// emptyCell is the canonical "nothing on this row" cell.
func emptyCell() Cell {
	return Cell{Note: NoteNone, Instrument: -1, Volume: -1}
}

// A decoded sample.
type Sample struct {
	Name       string
	Length     int // Sample count.
	CompatRate int
	C4Rate     int
	Depth      uint8 // 8 or 16.
	LoopStart  int
	LoopEnd    int
	LoopDir    uint8

	Data8  []uint8 // Set when Depth == 8.
	Data16 []int16 // Set when Depth == 16.
}

// A decoded wavetable.
type Wavetable struct {
	Name   string
	Width  int
	Height int
	Data   []int32
}

// Song-wide legacy behavior toggles. Raw keeps the full undecoded snapshot so
// later flags survive a decode/re-emit cycle.
type CompatFlags struct {
	LimitSlides         bool
	LinearPitch         bool
	LoopModality        uint8
	ProperNoiseLayout   bool
	WaveDutyIsVolume    bool
	ResetMacroOnPorta   bool
	LegacyVolumeSlides  bool
	CompatibleArpeggio  bool
	NoteOffResetsSlides bool
	TargetResetsSlides  bool

	Raw []byte
}

// One inter-chip audio routing connection.
type PatchbayConnection struct {
	Source uint16 // Source port.
	Dest   uint16 // Destination port.
	Level  uint8  // Mix level.
}
