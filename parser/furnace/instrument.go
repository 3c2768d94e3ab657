package furnace

import (
	"fmt"
)

// Instrument feature tags (new format). Two bytes each; a feature's length is
// always declared, so unrecognized tags are skippable by construction.
const (
	featEnd       = "EN"
	featName      = "NA"
	featFM        = "FM"
	featMacros    = "MA"
	featSampleMap = "SM"
	featSampList  = "SL" // 8-bit count sample index list.
	featSampList2 = "S2" // 16-bit count sample index list.
	featWaveList  = "WL" // 8-bit count wavetable index list.
	featWaveList2 = "W2" // 16-bit count wavetable index list.
	featGB        = "GB"
	featC64       = "64"
	featSNES      = "SN"
	featN163      = "N1"
	featFDS       = "FD"
)

// Chip features we keep as raw bytes for lossless re-emission instead of
// decoding structurally.
var rawFeatureTags = map[string]bool{
	"ES": true, // ES5506
	"SU": true, // Sound Unit
	"X1": true, // X1-010
	"LD": true, // OPLL drums
	"MP": true, // MultiPCM
}

// decodeInstrument dispatches between the old fixed-layout record and the new
// self-describing feature-block record based on the block magic.
func (d *Decoder) decodeInstrument() (*Instrument, error) {
	start := d.c.pos()
	magic, err := d.c.readMagic(4)
	if err != nil {
		return nil, err
	}
	switch magic {
	case "INST":
		return d.decodeOldInstrument(start)
	case "INS2", "FINS":
		return d.decodeNewInstrument(start, magic)
	default:
		return nil, fmt.Errorf("%w: bad instrument magic %q", ErrInvalidHeader, magic)
	}
}

// decodeNewInstrument decodes the feature-block record. "INS2" carries an
// explicit block size; "FINS" does not and ends at its end tag.
func (d *Decoder) decodeNewInstrument(start int, magic string) (*Instrument, error) {
	c := d.c
	blockSize := 0
	if magic == "INS2" {
		size, err := c.readU32()
		if err != nil {
			return nil, err
		}
		blockSize = int(size)
	}

	ins := &Instrument{}
	if _, err := c.readU16(); err != nil { // Instrument format version.
		return nil, err
	}
	typ, err := c.readU16()
	if err != nil {
		return nil, err
	}
	ins.Type = InstrumentType(typ)

	for {
		tag, err := c.readMagic(2)
		if err != nil {
			return nil, err
		}
		if tag == featEnd {
			break
		}
		length, err := c.readU16()
		if err != nil {
			return nil, err
		}
		// Every feature branch is followed by this unconditional seek, so a
		// feature that is unknown or only partially decoded can never
		// desynchronize the cursor.
		featureEnd := c.pos() + int(length)
		if err := d.decodeFeature(ins, tag, int(length)); err != nil {
			return nil, fmt.Errorf("feature %q: %w", tag, err)
		}
		c.seek(featureEnd)
	}

	end := c.pos()
	if blockSize > 0 {
		end = start + 8 + blockSize
	}
	if end > c.size() {
		end = c.size()
	}
	ins.RawData = append([]byte(nil), c.data[start:end]...)
	return ins, nil
}

// decodeFeature decodes one recognized feature. The caller seeks to the
// feature's declared end afterwards regardless of what happens here.
func (d *Decoder) decodeFeature(ins *Instrument, tag string, length int) error {
	c := d.c
	switch tag {
	case featName:
		name, err := c.readString()
		if err != nil {
			return err
		}
		ins.Name = name

	case featFM:
		fm := &FMParams{}
		if err := readAll(c, &fm.OpCount, &fm.Algorithm, &fm.Feedback, &fm.FMS, &fm.AMS, &fm.OPLLPreset); err != nil {
			return err
		}
		for op := 0; op < 4; op++ {
			o := &fm.Ops[op]
			if err := readAll(c, &o.AM, &o.AR, &o.DR, &o.Mult, &o.RR, &o.SL,
				&o.TL, &o.DT2, &o.RS, &o.DT, &o.D2R, &o.SSGEnv); err != nil {
				return err
			}
		}
		ins.FM = fm

	case featMacros:
		macros, err := d.decodeMacros(c.pos() + length)
		if err != nil {
			return err
		}
		ins.Macros = macros

	case featSampleMap:
		return d.decodeSampleMap(ins)

	case featSampList:
		list, err := readIndexList8(c)
		if err != nil {
			return err
		}
		ins.SampleIndices = list
	case featSampList2:
		list, err := readIndexList16(c)
		if err != nil {
			return err
		}
		ins.SampleIndices = list
	case featWaveList:
		list, err := readIndexList8(c)
		if err != nil {
			return err
		}
		ins.WaveIndices = list
	case featWaveList2:
		list, err := readIndexList16(c)
		if err != nil {
			return err
		}
		ins.WaveIndices = list

	case featGB:
		gb := &GBParams{}
		if err := readAll(c, &gb.Volume, &gb.Direction, &gb.Length, &gb.SoundLen); err != nil {
			return err
		}
		ins.GB = gb

	case featC64:
		return d.decodeC64Feature(ins)

	case featSNES:
		sn := &SNESParams{}
		flags, err := c.readU8()
		if err != nil {
			return err
		}
		sn.UseEnv = flags&1 != 0
		sn.SusMode = (flags >> 1) & 3
		if err := readAll(c, &sn.Attack, &sn.Decay, &sn.Sustain, &sn.Release,
			&sn.GainMode, &sn.Gain); err != nil {
			return err
		}
		ins.SNES = sn

	case featN163:
		n := &N163Params{}
		if err := readAll(c, &n.Wave, &n.WavePos, &n.WaveLen, &n.WaveMode); err != nil {
			return err
		}
		ins.N163 = n

	case featFDS:
		fd := &FDSParams{}
		if err := readAll(c, &fd.ModSpeed, &fd.ModDepth); err != nil {
			return err
		}
		initTable, err := c.readU8()
		if err != nil {
			return err
		}
		fd.InitTable = initTable != 0
		table, err := c.readBytes(32)
		if err != nil {
			return err
		}
		for i, b := range table {
			fd.ModTable[i] = int8(b)
		}
		ins.FDS = fd

	default:
		if rawFeatureTags[tag] {
			data, err := c.readBytes(length)
			if err != nil {
				return err
			}
			ins.RawFeatures = append(ins.RawFeatures, RawFeature{Code: tag, Data: data})
		} else {
			d.addWarning("unknown instrument feature %q (%d bytes), skipping", tag, length)
		}
	}
	return nil
}

// decodeSampleMap decodes the "SM" feature: initial sample, usage flags, and
// the optional 120-entry note map.
func (d *Decoder) decodeSampleMap(ins *Instrument) error {
	c := d.c
	initSample, err := c.readU16()
	if err != nil {
		return err
	}
	flags, err := c.readU8()
	if err != nil {
		return err
	}
	waveLen, err := c.readU8()
	if err != nil {
		return err
	}

	am := &AmigaParams{
		InitSample: int(initSample),
		UseNoteMap: flags&1 != 0,
		UseSample:  flags&2 != 0,
		UseWave:    flags&4 != 0,
		WaveLen:    waveLen,
	}

	if am.UseNoteMap {
		am.NoteFreq = make([]int32, 120)
		am.NoteMap = make([]int16, 120)
		seen := make(map[int16]bool)
		for n := 0; n < 120; n++ {
			freq, err := c.readI32()
			if err != nil {
				return err
			}
			smp, err := c.readI16()
			if err != nil {
				return err
			}
			am.NoteFreq[n] = freq
			am.NoteMap[n] = smp
			// Collect every distinct referenced sample.
			if smp >= 0 && !seen[smp] {
				seen[smp] = true
				ins.SampleIndices = append(ins.SampleIndices, int(smp))
			}
		}
	} else if am.UseSample {
		ins.SampleIndices = append(ins.SampleIndices, am.InitSample)
	}

	ins.Amiga = am
	return nil
}

// decodeC64Feature decodes the "64" feature block.
func (d *Decoder) decodeC64Feature(ins *Instrument) error {
	c := d.c
	c64 := &C64Params{}

	wave, err := c.readU8()
	if err != nil {
		return err
	}
	c64.TriOn = wave&1 != 0
	c64.SawOn = wave&2 != 0
	c64.PulseOn = wave&4 != 0
	c64.NoiseOn = wave&8 != 0
	c64.RingMod = wave&16 != 0
	c64.OscSync = wave&32 != 0

	ad, err := c.readU8()
	if err != nil {
		return err
	}
	sr, err := c.readU8()
	if err != nil {
		return err
	}
	c64.Attack = ad >> 4
	c64.Decay = ad & 0xf
	c64.Sustain = sr >> 4
	c64.Release = sr & 0xf

	if c64.Duty, err = c.readU16(); err != nil {
		return err
	}

	filter, err := c.readU8()
	if err != nil {
		return err
	}
	c64.ToFilter = filter&1 != 0
	c64.InitFilter = filter&2 != 0
	c64.VolIsCutoff = filter&4 != 0
	c64.LowPass = filter&8 != 0
	c64.BandPass = filter&16 != 0
	c64.HighPass = filter&32 != 0
	c64.Ch3Off = filter&64 != 0

	if c64.Resonance, err = c.readU8(); err != nil {
		return err
	}
	if c64.Cutoff, err = c.readU16(); err != nil {
		return err
	}

	ins.C64 = c64
	return nil
}

func readIndexList8(c *cursor) ([]int, error) {
	count, err := c.readU8()
	if err != nil {
		return nil, err
	}
	list := make([]int, 0, count)
	for i := 0; i < int(count); i++ {
		v, err := c.readU8()
		if err != nil {
			return nil, err
		}
		list = append(list, int(v))
	}
	return list, nil
}

func readIndexList16(c *cursor) ([]int, error) {
	count, err := c.readU16()
	if err != nil {
		return nil, err
	}
	list := make([]int, 0, count)
	for i := 0; i < int(count); i++ {
		v, err := c.readU16()
		if err != nil {
			return nil, err
		}
		list = append(list, int(v))
	}
	return list, nil
}

// decodeOldInstrument decodes the fixed-layout record. Every chip's parameter
// block is present at a fixed offset for every instrument regardless of its
// declared type; all of them must be read unconditionally or every following
// instrument desynchronizes. This is a quirk of the legacy format, not a
// pattern to imitate.
func (d *Decoder) decodeOldInstrument(start int) (*Instrument, error) {
	c := d.c
	size, err := c.readU32()
	if err != nil {
		return nil, err
	}

	ins := &Instrument{}
	if _, err := c.readU16(); err != nil { // Instrument format version.
		return nil, err
	}
	typ, err := c.readU8()
	if err != nil {
		return nil, err
	}
	ins.Type = InstrumentType(typ)
	c.skip(1) // Reserved.

	if ins.Name, err = c.readString(); err != nil {
		return nil, err
	}

	// FM block: 8 header bytes + 4 operators of 32 bytes each.
	fm := &FMParams{}
	if err := readAll(c, &fm.Algorithm, &fm.Feedback, &fm.FMS, &fm.AMS,
		&fm.OpCount, &fm.OPLLPreset); err != nil {
		return nil, err
	}
	c.skip(2) // Reserved.
	for op := 0; op < 4; op++ {
		o := &fm.Ops[op]
		if err := readAll(c, &o.AM, &o.AR, &o.DR, &o.Mult, &o.RR, &o.SL,
			&o.TL, &o.DT2, &o.RS, &o.DT, &o.D2R, &o.SSGEnv); err != nil {
			return nil, err
		}
		c.skip(20) // Reserved operator bytes.
	}
	ins.FM = fm

	// Game Boy block: 4 bytes.
	gb := &GBParams{}
	if err := readAll(c, &gb.Volume, &gb.Direction, &gb.Length, &gb.SoundLen); err != nil {
		return nil, err
	}
	ins.GB = gb

	// C64 block: 24 bytes.
	c64, err := d.decodeOldC64Block()
	if err != nil {
		return nil, err
	}
	ins.C64 = c64

	// Amiga block: 16 bytes.
	initSample, err := c.readU16()
	if err != nil {
		return nil, err
	}
	c.skip(14) // Reserved.
	ins.Amiga = &AmigaParams{InitSample: int(initSample), UseSample: true}
	if ins.Type == InsTypeAmiga {
		ins.SampleIndices = append(ins.SampleIndices, int(initSample))
	}

	// Macro headers, then the value arrays. Old macro values are 32-bit.
	var lens [4]uint8
	var loops [4]int8
	for i := range lens {
		if lens[i], err = c.readU8(); err != nil {
			return nil, err
		}
	}
	for i := range loops {
		if loops[i], err = c.readI8(); err != nil {
			return nil, err
		}
	}
	arpMode, err := c.readU8()
	if err != nil {
		return nil, err
	}

	for i, code := range []uint8{MacroCodeVolume, MacroCodeArp, MacroCodeDuty, MacroCodeWave} {
		m := Macro{
			Code:   code,
			Length: lens[i],
			Loop:   uint8(loops[i]),
			Type:   uint8(MacroWordI32) << 6,
		}
		if code == MacroCodeArp {
			m.Mode = arpMode
		}
		m.Values = make([]int32, lens[i])
		for j := range m.Values {
			if m.Values[j], err = c.readI32(); err != nil {
				return nil, err
			}
		}
		ins.Macros = append(ins.Macros, m)
	}

	if ins.Type == InsTypeC64 {
		d.repairC64Waveform(ins)
	}

	end := start + 8 + int(size)
	if size == 0 || end > c.size() {
		end = c.pos()
	}
	ins.RawData = append([]byte(nil), c.data[start:end]...)
	return ins, nil
}

// decodeOldC64Block reads the 24-byte legacy C64 sub-layout.
func (d *Decoder) decodeOldC64Block() (*C64Params, error) {
	c := d.c
	c64 := &C64Params{}
	var b [4]uint8

	for i := range b {
		v, err := c.readU8()
		if err != nil {
			return nil, err
		}
		b[i] = v
	}
	c64.TriOn = b[0] != 0
	c64.SawOn = b[1] != 0
	c64.PulseOn = b[2] != 0
	c64.NoiseOn = b[3] != 0

	if err := readAll(c, &c64.Attack, &c64.Decay, &c64.Sustain, &c64.Release); err != nil {
		return nil, err
	}
	duty, err := c.readU16()
	if err != nil {
		return nil, err
	}
	c64.Duty = duty

	for i := range b {
		v, err := c.readU8()
		if err != nil {
			return nil, err
		}
		b[i] = v
	}
	c64.RingMod = b[0] != 0
	c64.OscSync = b[1] != 0
	c64.ToFilter = b[2] != 0
	c64.InitFilter = b[3] != 0

	var volIsCutoff, res uint8
	if err := readAll(c, &volIsCutoff, &res); err != nil {
		return nil, err
	}
	c64.VolIsCutoff = volIsCutoff != 0
	c64.Resonance = res

	for i := range b {
		v, err := c.readU8()
		if err != nil {
			return nil, err
		}
		b[i] = v
	}
	c64.LowPass = b[0] != 0
	c64.BandPass = b[1] != 0
	c64.HighPass = b[2] != 0
	c64.Ch3Off = b[3] != 0

	cutoff, err := c.readU16()
	if err != nil {
		return nil, err
	}
	c64.Cutoff = cutoff
	c.skip(2) // Reserved.
	return c64, nil
}

// repairC64Waveform compensates for a known legacy encoder ambiguity: some
// old files store C64 instruments with no waveform enabled at all. Infer the
// intended waveform from the first value of the waveform macro, else from a
// non-default pulse width, else assume pulse.
func (d *Decoder) repairC64Waveform(ins *Instrument) {
	c64 := ins.C64
	if c64 == nil || c64.TriOn || c64.SawOn || c64.PulseOn || c64.NoiseOn {
		return
	}

	for _, m := range ins.Macros {
		if m.Code != MacroCodeWave || len(m.Values) == 0 {
			continue
		}
		first := m.Values[0]
		c64.TriOn = first&1 != 0
		c64.SawOn = first&2 != 0
		c64.PulseOn = first&4 != 0
		c64.NoiseOn = first&8 != 0
		if c64.TriOn || c64.SawOn || c64.PulseOn || c64.NoiseOn {
			d.addWarning("instrument %q: waveform inferred from macro", ins.Name)
			return
		}
		break
	}

	// A pulse width was set, so pulse must have been intended.
	c64.PulseOn = true
	if c64.Duty != 0 {
		d.addWarning("instrument %q: waveform inferred from pulse width", ins.Name)
	} else {
		d.addWarning("instrument %q: no waveform enabled, defaulting to pulse", ins.Name)
	}
}
