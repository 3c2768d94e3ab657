package furnace

import "fmt"

// Versions below this always store sample data as 16-bit words regardless of
// the declared depth.
const sampleDepthVersion = 58

// decodeSample dispatches between the old and new sample block layouts.
func (d *Decoder) decodeSample() (*Sample, error) {
	c := d.c
	magic, err := c.readMagic(4)
	if err != nil {
		return nil, err
	}
	switch magic {
	case "SMP2":
		return d.decodeNewSample()
	case "SMPL":
		return d.decodeOldSample()
	default:
		return nil, fmt.Errorf("%w: bad sample magic %q", ErrInvalidHeader, magic)
	}
}

func (d *Decoder) decodeNewSample() (*Sample, error) {
	c := d.c
	if _, err := c.readU32(); err != nil { // Block size, unused.
		return nil, err
	}

	s := &Sample{}
	var err error
	if s.Name, err = c.readString(); err != nil {
		return nil, err
	}

	var length, compatRate, c4Rate uint32
	var depth, loopDir uint8
	var loopStart, loopEnd int32
	if err := readAll(c, &length, &compatRate, &c4Rate, &depth, &loopDir); err != nil {
		return nil, err
	}
	c.skip(2) // Reserved.
	if err := readAll(c, &loopStart, &loopEnd); err != nil {
		return nil, err
	}

	s.Length = int(length)
	s.CompatRate = int(compatRate)
	s.C4Rate = int(c4Rate)
	s.Depth = depth
	s.LoopDir = loopDir
	s.LoopStart = int(loopStart)
	s.LoopEnd = int(loopEnd)

	return s, d.readSampleData(s)
}

func (d *Decoder) decodeOldSample() (*Sample, error) {
	c := d.c
	if _, err := c.readU32(); err != nil { // Block size, unused.
		return nil, err
	}

	s := &Sample{}
	var err error
	if s.Name, err = c.readString(); err != nil {
		return nil, err
	}

	var length, rate uint32
	var pitch, volume uint16
	var depth uint8
	if err := readAll(c, &length, &rate, &pitch, &volume, &depth); err != nil {
		return nil, err
	}
	c.skip(1) // Reserved.

	s.Length = int(length)
	s.CompatRate = int(rate)
	s.C4Rate = int(rate)
	s.Depth = depth
	s.LoopStart = -1
	s.LoopEnd = -1

	if d.module.Version < sampleDepthVersion {
		// Early files wrote 16-bit words no matter what the depth byte says.
		s.Depth = 16
	}
	return s, d.readSampleData(s)
}

// readSampleData reads the PCM array sized by the sample's depth.
func (d *Decoder) readSampleData(s *Sample) error {
	c := d.c
	switch s.Depth {
	case 8:
		data, err := c.readBytes(s.Length)
		if err != nil {
			return err
		}
		s.Data8 = data
	case 16:
		// Clamp before allocating: the declared length is untrusted, and a
		// huge count must fail like any other truncated read instead of
		// taking the process down.
		if err := c.need(s.Length * 2); err != nil {
			return err
		}
		s.Data16 = make([]int16, s.Length)
		for i := range s.Data16 {
			v, err := c.readI16()
			if err != nil {
				return err
			}
			s.Data16[i] = v
		}
	default:
		return fmt.Errorf("unsupported sample depth %d", s.Depth)
	}
	return nil
}

// decodeWavetable decodes a "WAVE" block, shared by both container formats.
func (d *Decoder) decodeWavetable() (*Wavetable, error) {
	c := d.c
	magic, err := c.readMagic(4)
	if err != nil {
		return nil, err
	}
	if magic != "WAVE" {
		return nil, fmt.Errorf("%w: bad wavetable magic %q", ErrInvalidHeader, magic)
	}
	if _, err := c.readU32(); err != nil { // Block size, unused.
		return nil, err
	}

	wt := &Wavetable{}
	if wt.Name, err = c.readString(); err != nil {
		return nil, err
	}

	var width, height uint32
	if err := readAll(c, &width); err != nil {
		return nil, err
	}
	c.skip(4) // Reserved.
	if err := readAll(c, &height); err != nil {
		return nil, err
	}
	wt.Width = int(width)
	wt.Height = int(height)

	// Clamp the untrusted width against the remaining bytes before
	// allocating.
	if err := c.need(wt.Width * 4); err != nil {
		return nil, err
	}
	wt.Data = make([]int32, wt.Width)
	for i := range wt.Data {
		if wt.Data[i], err = c.readI32(); err != nil {
			return nil, err
		}
	}
	return wt, nil
}
