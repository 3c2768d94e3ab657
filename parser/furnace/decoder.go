package furnace

import (
	"fmt"
	"log"
)

// The 16 bytes every module starts with.
const moduleMagic = "-Furnace module-"

const (
	// Files at or above this version use the pointer-directory container
	// ("INF2"); older files use the fixed layout ("INFO").
	newFormatVersion = 240

	// The newest version this decoder was written against. Newer files decode
	// best-effort with a warning; the format is forward-extensible by design.
	newestKnownVersion = 255
)

// Element directory entry types (new format).
const (
	elementEnd        = 0x00
	elementSubSong    = 0x01
	elementChipFlags  = 0x02
	elementAssetDir   = 0x03
	elementInstrument = 0x04
	elementWavetable  = 0x05
	elementSample     = 0x06
	elementPattern    = 0x07
	elementCompat     = 0x08
	elementComment    = 0x09
	elementGroove     = 0x0a
)

// Decoder decodes one module from one byte buffer. A Decoder can only be used
// once; concurrent decodes need separate Decoders.
type Decoder struct {
	c      *cursor
	logger *log.Logger

	module Module

	// Collect any warnings whilst decoding.
	warnings []Warning

	// Whether or not the decoder has already been used.
	used bool
}

// DecodeResult bundles the decoded module with the non-fatal warnings that
// were collected along the way.
type DecodeResult struct {
	Module   *Module
	Warnings []Warning
}

// NewDecoder creates a decoder for a raw (possibly zlib-compressed) module
// buffer. The logger is used for progress/warning output; nil means the
// default logger.
func NewDecoder(data []byte, logger *log.Logger) *Decoder {
	if logger == nil {
		logger = log.Default()
	}
	return &Decoder{
		c:      newCursor(data),
		logger: logger,
	}
}

// addWarning adds to the list of warnings encountered while decoding.
func (d *Decoder) addWarning(format string, args ...any) {
	d.warnings = append(d.warnings, Warning{
		Offset:  d.c.pos(),
		Message: fmt.Sprintf(format, args...),
	})
}

// fatalf wraps an error with the failing stage and current offset.
func (d *Decoder) fatalf(stage string, err error) *DecodeError {
	return &DecodeError{Stage: stage, Offset: d.c.pos(), Err: err}
}

// Decode decodes the whole module. The returned module is immutable; errors
// are fatal container-level failures only, since per-asset failures degrade
// to placeholder entries plus warnings.
func (d *Decoder) Decode() (*DecodeResult, error) {
	if d.used {
		return nil, fmt.Errorf("decoder already used")
	}
	d.used = true

	raw, err := decompress(d.c.data)
	if err != nil {
		return nil, d.fatalf("decompress", err)
	}
	d.c = newCursor(raw)

	magic, err := d.c.readMagic(len(moduleMagic))
	if err != nil {
		return nil, d.fatalf("header", err)
	}
	if magic != moduleMagic {
		return nil, d.fatalf("header", fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, magic))
	}

	version, err := d.c.readU16()
	if err != nil {
		return nil, d.fatalf("header", err)
	}
	d.module.Version = version
	d.c.skip(2) // Reserved.

	if version > newestKnownVersion {
		d.addWarning("format version %d is newer than %d, decoding best-effort", version, newestKnownVersion)
	}

	infoPtr, err := d.c.readU32()
	if err != nil {
		return nil, d.fatalf("header", err)
	}
	d.c.seek(int(infoPtr))

	d.module.Patterns = make(map[PatternKey]*Pattern)

	if version >= newFormatVersion {
		err = d.decodeNewFormat()
	} else {
		err = d.decodeOldFormat()
	}
	if err != nil {
		return nil, err
	}

	if len(d.warnings) > 0 {
		d.logger.Printf("%d warning(s) produced while decoding:", len(d.warnings))
		for _, w := range d.warnings {
			d.logger.Printf("  %v", w)
		}
	}

	return &DecodeResult{
		Module:   &d.module,
		Warnings: d.warnings,
	}, nil
}

// readChipList turns raw chip id bytes into the module's chip setups and
// derives the total channel count.
func (d *Decoder) readChipList(ids []uint8, vols, pans []int8) {
	for i, id := range ids {
		if id == 0 {
			break
		}
		chip := ChipID(id)
		if _, known := chipTable[chip]; !known {
			d.addWarning("unknown chip id 0x%02x, assuming %d channels", id, unknownChipChannels)
		}
		setup := ChipSetup{
			ID:       chip,
			Channels: chip.ChannelCount(),
		}
		if i < len(vols) {
			setup.Volume = vols[i]
		}
		if i < len(pans) {
			setup.Panning = pans[i]
		}
		d.module.Chips = append(d.module.Chips, setup)
		d.module.TotalChannels += setup.Channels
	}
}

// decodeOldFormat decodes the fixed-layout "INFO" container (version < 240).
func (d *Decoder) decodeOldFormat() error {
	c := d.c
	magic, err := c.readMagic(4)
	if err != nil {
		return d.fatalf("song info", err)
	}
	if magic != "INFO" {
		return d.fatalf("song info", fmt.Errorf("%w: expected INFO, got %q", ErrInvalidHeader, magic))
	}
	if _, err := c.readU32(); err != nil { // Block size, unused.
		return d.fatalf("song info", err)
	}

	ss := &SubSong{
		// Files predating the virtual tempo model play at the neutral ratio.
		VirtTempoN: 150,
		VirtTempoD: 150,
	}

	var fixed struct {
		timeBase, speed1, speed2, arpSpeed uint8
		tickRate                           float32
		patLen, ordersLen                  uint16
		highlightA, highlightB             uint8
		instCount, waveCount, sampleCount  uint16
		patCount                           uint32
	}
	if err := readAll(c,
		&fixed.timeBase, &fixed.speed1, &fixed.speed2, &fixed.arpSpeed,
		&fixed.tickRate,
		&fixed.patLen, &fixed.ordersLen,
		&fixed.highlightA, &fixed.highlightB,
		&fixed.instCount, &fixed.waveCount, &fixed.sampleCount,
		&fixed.patCount,
	); err != nil {
		return d.fatalf("song info", err)
	}

	ss.TimeBase = fixed.timeBase
	ss.Speed1 = fixed.speed1
	ss.Speed2 = fixed.speed2
	ss.ArpSpeed = fixed.arpSpeed
	ss.TickRate = fixed.tickRate
	ss.PatLen = int(fixed.patLen)
	ss.OrdersLen = int(fixed.ordersLen)
	ss.HighlightA = fixed.highlightA
	ss.HighlightB = fixed.highlightB

	// Chip table: 32 id slots, then volumes, pans, and flags for each slot.
	chipIDs, err := c.readBytes(32)
	if err != nil {
		return d.fatalf("chip table", err)
	}
	chipVols := make([]int8, 32)
	chipPans := make([]int8, 32)
	for i := range chipVols {
		if chipVols[i], err = c.readI8(); err != nil {
			return d.fatalf("chip table", err)
		}
	}
	for i := range chipPans {
		if chipPans[i], err = c.readI8(); err != nil {
			return d.fatalf("chip table", err)
		}
	}
	c.skip(32 * 4) // Per-chip flag words, unused here.
	d.readChipList(chipIDs, chipVols, chipPans)

	if d.module.Name, err = c.readString(); err != nil {
		return d.fatalf("song info", err)
	}
	if d.module.Author, err = c.readString(); err != nil {
		return d.fatalf("song info", err)
	}
	if d.module.TuningA4, err = c.readF32(); err != nil {
		return d.fatalf("song info", err)
	}

	// Old files embed the compatibility flags right in the song info.
	compatBytes, err := c.readBytes(20)
	if err != nil {
		return d.fatalf("song info", err)
	}
	d.module.Compat = decodeCompatBytes(compatBytes)

	instPtrs, err := readPointers(c, int(fixed.instCount))
	if err != nil {
		return d.fatalf("instrument pointers", err)
	}
	wavePtrs, err := readPointers(c, int(fixed.waveCount))
	if err != nil {
		return d.fatalf("wavetable pointers", err)
	}
	samplePtrs, err := readPointers(c, int(fixed.sampleCount))
	if err != nil {
		return d.fatalf("sample pointers", err)
	}
	patPtrs, err := readPointers(c, int(fixed.patCount))
	if err != nil {
		return d.fatalf("pattern pointers", err)
	}

	if err := d.readOrdersAndChannels(ss); err != nil {
		return err
	}

	if d.module.Comment, err = c.readString(); err != nil {
		return d.fatalf("song info", err)
	}
	if d.module.MasterVolume, err = c.readF32(); err != nil {
		return d.fatalf("song info", err)
	}

	d.module.SubSongs = []*SubSong{ss}

	d.decodeInstrumentList(instPtrs)
	d.decodeWavetableList(wavePtrs)
	d.decodeSampleList(samplePtrs)
	d.decodePatternList(patPtrs)
	return nil
}

// readOrdersAndChannels reads the per-channel order lists, effect column
// counts and channel names shared by both song info layouts.
func (d *Decoder) readOrdersAndChannels(ss *SubSong) error {
	c := d.c
	channels := d.module.TotalChannels

	ss.Orders = make([][]uint8, channels)
	for ch := 0; ch < channels; ch++ {
		ord, err := c.readBytes(ss.OrdersLen)
		if err != nil {
			return d.fatalf("order table", err)
		}
		ss.Orders[ch] = ord
	}

	ss.EffectColumns = make([]uint8, channels)
	for ch := 0; ch < channels; ch++ {
		n, err := c.readU8()
		if err != nil {
			return d.fatalf("effect columns", err)
		}
		if n < 1 || n > 8 {
			d.addWarning("channel %d has %d effect columns, clamping", ch, n)
			n = min(max(n, 1), 8)
		}
		ss.EffectColumns[ch] = n
	}

	// Shown/collapsed display state, not part of the song data.
	c.skip(2 * channels)

	ss.ChannelNames = make([]string, channels)
	ss.ChannelShortNames = make([]string, channels)
	for ch := 0; ch < channels; ch++ {
		name, err := c.readString()
		if err != nil {
			return d.fatalf("channel names", err)
		}
		ss.ChannelNames[ch] = name
	}
	for ch := 0; ch < channels; ch++ {
		name, err := c.readString()
		if err != nil {
			return d.fatalf("channel names", err)
		}
		ss.ChannelShortNames[ch] = name
	}
	return nil
}

// decodeNewFormat decodes the pointer-directory "INF2" container.
func (d *Decoder) decodeNewFormat() error {
	c := d.c
	magic, err := c.readMagic(4)
	if err != nil {
		return d.fatalf("song info", err)
	}
	if magic != "INF2" {
		return d.fatalf("song info", fmt.Errorf("%w: expected INF2, got %q", ErrInvalidHeader, magic))
	}
	if _, err := c.readU32(); err != nil { // Block size, unused.
		return d.fatalf("song info", err)
	}

	if d.module.Name, err = c.readString(); err != nil {
		return d.fatalf("song info", err)
	}
	if d.module.Author, err = c.readString(); err != nil {
		return d.fatalf("song info", err)
	}
	if d.module.SystemName, err = c.readString(); err != nil {
		return d.fatalf("song info", err)
	}
	if d.module.Category, err = c.readString(); err != nil {
		return d.fatalf("song info", err)
	}
	if d.module.TuningA4, err = c.readF32(); err != nil {
		return d.fatalf("song info", err)
	}
	if d.module.MasterVolume, err = c.readF32(); err != nil {
		return d.fatalf("song info", err)
	}

	chipCount, err := c.readU8()
	if err != nil {
		return d.fatalf("chip table", err)
	}
	chipIDs, err := c.readBytes(int(chipCount))
	if err != nil {
		return d.fatalf("chip table", err)
	}
	chipVols := make([]int8, chipCount)
	chipPans := make([]int8, chipCount)
	for i := range chipVols {
		if chipVols[i], err = c.readI8(); err != nil {
			return d.fatalf("chip table", err)
		}
	}
	for i := range chipPans {
		if chipPans[i], err = c.readI8(); err != nil {
			return d.fatalf("chip table", err)
		}
	}
	d.readChipList(chipIDs, chipVols, chipPans)

	if err := d.decodePatchbay(); err != nil {
		return err
	}

	dir, err := d.walkElementDirectory()
	if err != nil {
		return err
	}

	for _, ptr := range dir.subSongs {
		c.seek(ptr)
		ss, err := d.decodeSubSong()
		if err != nil {
			return err
		}
		d.module.SubSongs = append(d.module.SubSongs, ss)
	}
	if len(d.module.SubSongs) == 0 {
		return d.fatalf("subsongs", fmt.Errorf("%w: no subsong blocks in directory", ErrInvalidHeader))
	}

	d.decodeInstrumentList(dir.instruments)
	d.decodeWavetableList(dir.wavetables)
	d.decodeSampleList(dir.samples)
	d.decodePatternList(dir.patterns)

	if dir.compat >= 0 {
		c.seek(dir.compat)
		if err := d.decodeCompatBlock(); err != nil {
			d.addWarning("compatibility flags failed to decode: %v", err)
		}
	}
	if dir.comment >= 0 {
		c.seek(dir.comment)
		if err := d.decodeCommentBlock(); err != nil {
			d.addWarning("song comment failed to decode: %v", err)
		}
	}
	for i, ptr := range dir.grooves {
		c.seek(ptr)
		if err := d.decodeGrooveBlock(); err != nil {
			d.addWarning("groove table %d failed to decode: %v", i, err)
		}
	}
	return nil
}

// Pointer lists collected from the element directory.
type elementDirectory struct {
	subSongs    []int
	instruments []int
	wavetables  []int
	samples     []int
	patterns    []int
	grooves     []int
	compat      int
	comment     int
}

// walkElementDirectory consumes (type, count, pointer[count]) groups until the
// end marker. Unknown element types are read generically and discarded: the
// uniform shape is what makes later format revisions safe to ignore.
func (d *Decoder) walkElementDirectory() (*elementDirectory, error) {
	c := d.c
	dir := &elementDirectory{compat: -1, comment: -1}
	for {
		elType, err := c.readU8()
		if err != nil {
			return nil, d.fatalf("element directory", err)
		}
		if elType == elementEnd {
			return dir, nil
		}
		count, err := c.readU32()
		if err != nil {
			return nil, d.fatalf("element directory", err)
		}
		ptrs, err := readPointers(c, int(count))
		if err != nil {
			return nil, d.fatalf("element directory", err)
		}

		switch elType {
		case elementSubSong:
			dir.subSongs = append(dir.subSongs, ptrs...)
		case elementChipFlags, elementAssetDir:
			// Chip flag blobs and editor asset folders carry no song data.
		case elementInstrument:
			dir.instruments = append(dir.instruments, ptrs...)
		case elementWavetable:
			dir.wavetables = append(dir.wavetables, ptrs...)
		case elementSample:
			dir.samples = append(dir.samples, ptrs...)
		case elementPattern:
			dir.patterns = append(dir.patterns, ptrs...)
		case elementCompat:
			if len(ptrs) > 0 {
				dir.compat = ptrs[0]
			}
		case elementComment:
			if len(ptrs) > 0 {
				dir.comment = ptrs[0]
			}
		case elementGroove:
			dir.grooves = append(dir.grooves, ptrs...)
		default:
			d.addWarning("unknown element type 0x%02x with %d pointer(s), skipping", elType, count)
		}
	}
}

// decodeSubSong decodes one "SONG" block.
func (d *Decoder) decodeSubSong() (*SubSong, error) {
	c := d.c
	magic, err := c.readMagic(4)
	if err != nil {
		return nil, d.fatalf("subsong", err)
	}
	if magic != "SONG" {
		return nil, d.fatalf("subsong", fmt.Errorf("%w: expected SONG, got %q", ErrInvalidHeader, magic))
	}
	if _, err := c.readU32(); err != nil { // Block size, unused.
		return nil, d.fatalf("subsong", err)
	}

	ss := &SubSong{}
	var fixed struct {
		timeBase, speed1, speed2, arpSpeed uint8
		tickRate                           float32
		patLen, ordersLen                  uint16
		highlightA, highlightB             uint8
		virtTempoN, virtTempoD             uint16
	}
	if err := readAll(c,
		&fixed.timeBase, &fixed.speed1, &fixed.speed2, &fixed.arpSpeed,
		&fixed.tickRate,
		&fixed.patLen, &fixed.ordersLen,
		&fixed.highlightA, &fixed.highlightB,
		&fixed.virtTempoN, &fixed.virtTempoD,
	); err != nil {
		return nil, d.fatalf("subsong", err)
	}

	ss.TimeBase = fixed.timeBase
	ss.Speed1 = fixed.speed1
	ss.Speed2 = fixed.speed2
	ss.ArpSpeed = fixed.arpSpeed
	ss.TickRate = fixed.tickRate
	ss.PatLen = int(fixed.patLen)
	ss.OrdersLen = int(fixed.ordersLen)
	ss.HighlightA = fixed.highlightA
	ss.HighlightB = fixed.highlightB
	ss.VirtTempoN = fixed.virtTempoN
	ss.VirtTempoD = fixed.virtTempoD
	if ss.VirtTempoD == 0 {
		d.addWarning("virtual tempo denominator is 0, using 150/150")
		ss.VirtTempoN, ss.VirtTempoD = 150, 150
	}

	if ss.Name, err = c.readString(); err != nil {
		return nil, d.fatalf("subsong", err)
	}
	if ss.Comment, err = c.readString(); err != nil {
		return nil, d.fatalf("subsong", err)
	}

	if err := d.readOrdersAndChannels(ss); err != nil {
		return nil, err
	}
	return ss, nil
}

// decodePatchbay reads the inter-chip routing table from the song info block.
// Each connection is one packed word: source port in bits 31-20, destination
// port in bits 19-8, mix level in bits 7-0.
func (d *Decoder) decodePatchbay() error {
	c := d.c
	count, err := c.readU32()
	if err != nil {
		return d.fatalf("patchbay", err)
	}
	for i := uint32(0); i < count; i++ {
		packed, err := c.readU32()
		if err != nil {
			return d.fatalf("patchbay", err)
		}
		d.module.Patchbay = append(d.module.Patchbay, PatchbayConnection{
			Source: uint16(packed >> 20),
			Dest:   uint16((packed >> 8) & 0xfff),
			Level:  uint8(packed),
		})
	}
	return nil
}

// decodeInstrumentList decodes every instrument pointer, isolating failures:
// one corrupt instrument becomes a placeholder instead of aborting the song.
func (d *Decoder) decodeInstrumentList(ptrs []int) {
	for i, ptr := range ptrs {
		d.c.seek(ptr)
		ins, err := d.decodeInstrument()
		if err != nil {
			d.addWarning("instrument %d failed to decode: %v", i, err)
			ins = &Instrument{Name: "Error", Broken: true}
		}
		d.module.Instruments = append(d.module.Instruments, ins)
	}
}

func (d *Decoder) decodeWavetableList(ptrs []int) {
	for i, ptr := range ptrs {
		d.c.seek(ptr)
		wt, err := d.decodeWavetable()
		if err != nil {
			d.addWarning("wavetable %d failed to decode: %v", i, err)
			wt = &Wavetable{Name: "Error"}
		}
		d.module.Wavetables = append(d.module.Wavetables, wt)
	}
}

func (d *Decoder) decodeSampleList(ptrs []int) {
	for i, ptr := range ptrs {
		d.c.seek(ptr)
		s, err := d.decodeSample()
		if err != nil {
			d.addWarning("sample %d failed to decode: %v", i, err)
			s = &Sample{Name: "Error", Depth: 8}
		}
		d.module.Samples = append(d.module.Samples, s)
	}
}

// decodePatternList decodes every pattern pointer. A pattern that fails after
// its identity is known degrades to an empty placeholder under its key; one
// that fails before that is only a warning since there is no key to keep.
func (d *Decoder) decodePatternList(ptrs []int) {
	for i, ptr := range ptrs {
		d.c.seek(ptr)
		pat, err := d.decodePattern()
		if err != nil {
			d.addWarning("pattern %d failed to decode: %v", i, err)
			if pat == nil {
				continue
			}
			pat.Cells = emptyCells(len(pat.Cells))
		}
		d.module.Patterns[PatternKey{pat.SubSong, pat.Channel, pat.Index}] = pat
	}
}

// readPointers reads count absolute file offsets. The count is untrusted, so
// it is clamped against the remaining bytes before anything is allocated.
func readPointers(c *cursor, count int) ([]int, error) {
	if err := c.need(count * 4); err != nil {
		return nil, err
	}
	ptrs := make([]int, 0, count)
	for i := 0; i < count; i++ {
		p, err := c.readU32()
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, int(p))
	}
	return ptrs, nil
}

// readAll reads a sequence of fixed-width fields in order. Supported pointer
// types cover every field width the fixed layouts use.
func readAll(c *cursor, fields ...any) error {
	for _, f := range fields {
		var err error
		switch v := f.(type) {
		case *uint8:
			*v, err = c.readU8()
		case *int8:
			*v, err = c.readI8()
		case *uint16:
			*v, err = c.readU16()
		case *int16:
			*v, err = c.readI16()
		case *uint32:
			*v, err = c.readU32()
		case *int32:
			*v, err = c.readI32()
		case *float32:
			*v, err = c.readF32()
		default:
			err = fmt.Errorf("readAll: unsupported field type %T", f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
