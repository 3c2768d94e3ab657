package furnace

import "fmt"

// decodeCompatBytes decodes the legacy-behavior toggles from their flag
// bytes. Only the first bytes have assigned meanings; the full snapshot is
// kept raw so flags added by later revisions survive.
func decodeCompatBytes(raw []byte) *CompatFlags {
	at := func(i int) uint8 {
		if i < len(raw) {
			return raw[i]
		}
		return 0
	}
	return &CompatFlags{
		LimitSlides:         at(0) != 0,
		LinearPitch:         at(1) != 0,
		LoopModality:        at(2),
		ProperNoiseLayout:   at(3) != 0,
		WaveDutyIsVolume:    at(4) != 0,
		ResetMacroOnPorta:   at(5) != 0,
		LegacyVolumeSlides:  at(6) != 0,
		CompatibleArpeggio:  at(7) != 0,
		NoteOffResetsSlides: at(8) != 0,
		TargetResetsSlides:  at(9) != 0,
		Raw:                 append([]byte(nil), raw...),
	}
}

// decodeCompatBlock decodes a new-format "FLAG" block.
func (d *Decoder) decodeCompatBlock() error {
	c := d.c
	magic, err := c.readMagic(4)
	if err != nil {
		return err
	}
	if magic != "FLAG" {
		return fmt.Errorf("%w: bad compat flags magic %q", ErrInvalidHeader, magic)
	}
	size, err := c.readU32()
	if err != nil {
		return err
	}
	raw, err := c.readBytes(int(size))
	if err != nil {
		return err
	}
	d.module.Compat = decodeCompatBytes(raw)
	return nil
}

// decodeCommentBlock decodes the "CMNT" song comment block.
func (d *Decoder) decodeCommentBlock() error {
	c := d.c
	magic, err := c.readMagic(4)
	if err != nil {
		return err
	}
	if magic != "CMNT" {
		return fmt.Errorf("%w: bad comment magic %q", ErrInvalidHeader, magic)
	}
	if _, err := c.readU32(); err != nil { // Block size, unused.
		return err
	}
	comment, err := c.readString()
	if err != nil {
		return err
	}
	d.module.Comment = comment
	return nil
}

// decodeGrooveBlock decodes one "GRVS" groove table: a cyclic sequence of
// per-row tick counts.
func (d *Decoder) decodeGrooveBlock() error {
	c := d.c
	magic, err := c.readMagic(4)
	if err != nil {
		return err
	}
	if magic != "GRVS" {
		return fmt.Errorf("%w: bad groove magic %q", ErrInvalidHeader, magic)
	}
	if _, err := c.readU32(); err != nil { // Block size, unused.
		return err
	}
	length, err := c.readU8()
	if err != nil {
		return err
	}
	ticks, err := c.readBytes(int(length))
	if err != nil {
		return err
	}
	d.module.Grooves = append(d.module.Grooves, ticks)
	return nil
}
