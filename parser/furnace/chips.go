package furnace

// ChipID is the format's sound chip identifier byte.
type ChipID uint8

// Chip identifiers recognized by the decoder. The format defines many more;
// unknown ids still decode (with a warning and a guessed channel count) so a
// song using a newer chip doesn't lose everything else.
const (
	ChipGenesis ChipID = 0x02
	ChipSMS     ChipID = 0x03
	ChipGB      ChipID = 0x04
	ChipPCE     ChipID = 0x05
	ChipNES     ChipID = 0x06
	ChipC64New  ChipID = 0x07 // 8580 SID
	ChipC64Old  ChipID = 0x47 // 6581 SID
	ChipAY      ChipID = 0x80
	ChipAmiga   ChipID = 0x81
	ChipYM2151  ChipID = 0x82
	ChipYM2612  ChipID = 0x83
	ChipTIA     ChipID = 0x84
	ChipVIC20   ChipID = 0x85
	ChipSNES    ChipID = 0x87
	ChipVRC6    ChipID = 0x88
	ChipOPLL    ChipID = 0x89
	ChipFDS     ChipID = 0x8a
	ChipMMC5    ChipID = 0x8b
	ChipN163    ChipID = 0x8c
	ChipSAA     ChipID = 0x97
	ChipPOKEY   ChipID = 0x9d
)

// InstrumentType is the instrument's declared type code.
type InstrumentType uint16

const (
	InsTypeStandard InstrumentType = 0 // Generic placeholder, remapped on import.
	InsTypeFM       InstrumentType = 1
	InsTypeGB       InstrumentType = 2
	InsTypeC64      InstrumentType = 3
	InsTypeAmiga    InstrumentType = 4
	InsTypePCE      InstrumentType = 5
	InsTypeAY       InstrumentType = 6
	InsTypeTIA      InstrumentType = 8
	InsTypeSAA      InstrumentType = 9
	InsTypeVIC      InstrumentType = 10
	InsTypeVRC6     InstrumentType = 12
	InsTypeOPLL     InstrumentType = 13
	InsTypeFDS      InstrumentType = 15
	InsTypeN163     InstrumentType = 17
	InsTypePOKEY    InstrumentType = 20
	InsTypeSNES     InstrumentType = 29
)

type chipInfo struct {
	name     string
	channels int
	// Default instrument type for channels of this chip, used when remapping
	// "standard" instruments.
	insType InstrumentType
	// Sample-playback chips; notes on these channels use the shifted octave
	// numbering on import.
	samplePlayback bool
}

var chipTable = map[ChipID]chipInfo{
	ChipGenesis: {"Sega Genesis", 10, InsTypeFM, false},
	ChipSMS:     {"TI SN76489", 4, InsTypeStandard, false},
	ChipGB:      {"Game Boy", 4, InsTypeGB, false},
	ChipPCE:     {"PC Engine", 6, InsTypePCE, false},
	ChipNES:     {"NES", 5, InsTypeStandard, false},
	ChipC64New:  {"C64 (8580)", 3, InsTypeC64, false},
	ChipC64Old:  {"C64 (6581)", 3, InsTypeC64, false},
	ChipAY:      {"AY-3-8910", 3, InsTypeAY, false},
	ChipAmiga:   {"Amiga", 4, InsTypeAmiga, true},
	ChipYM2151:  {"YM2151", 8, InsTypeFM, false},
	ChipYM2612:  {"YM2612", 6, InsTypeFM, false},
	ChipTIA:     {"Atari TIA", 2, InsTypeTIA, false},
	ChipVIC20:   {"VIC-20", 4, InsTypeVIC, false},
	ChipSNES:    {"SNES", 8, InsTypeSNES, true},
	ChipVRC6:    {"VRC6", 3, InsTypeVRC6, false},
	ChipOPLL:    {"YM2413 (OPLL)", 9, InsTypeOPLL, false},
	ChipFDS:     {"Famicom Disk System", 6, InsTypeFDS, false},
	ChipMMC5:    {"MMC5", 3, InsTypeStandard, false},
	ChipN163:    {"Namco 163", 8, InsTypeN163, false},
	ChipSAA:     {"SAA1099", 6, InsTypeSAA, false},
	ChipPOKEY:   {"POKEY", 4, InsTypePOKEY, false},
}

// Unknown chips are assumed to have this many channels; the warning carries
// the real fix (add the chip to chipTable).
const unknownChipChannels = 4

// Name returns a display name for the chip.
func (id ChipID) Name() string {
	if info, ok := chipTable[id]; ok {
		return info.name
	}
	return "Unknown"
}

// ChannelCount returns how many channels the chip contributes.
func (id ChipID) ChannelCount() int {
	if info, ok := chipTable[id]; ok {
		return info.channels
	}
	return unknownChipChannels
}

// DefaultInstrumentType returns the concrete instrument type for channels of
// this chip.
func (id ChipID) DefaultInstrumentType() InstrumentType {
	if info, ok := chipTable[id]; ok {
		return info.insType
	}
	return InsTypeStandard
}

// SamplePlayback reports whether the chip plays samples rather than
// synthesizing, which changes the octave numbering on import.
func (id ChipID) SamplePlayback() bool {
	if info, ok := chipTable[id]; ok {
		return info.samplePlayback
	}
	return false
}
