package furnace

import "fmt"

// End-of-macro-list marker.
const macroListEnd = 0xff

// decodeMacros decodes the macro block of a feature-format instrument. The
// block declares a per-macro header length once; headers wider than the eight
// fields read here are tolerated by seeking to the declared header end. The
// blockEnd bound stops a corrupt length byte from running past the feature.
func (d *Decoder) decodeMacros(blockEnd int) ([]Macro, error) {
	c := d.c
	headerLen, err := c.readU16()
	if err != nil {
		return nil, err
	}
	if headerLen < 8 {
		return nil, fmt.Errorf("macro header length %d is below the 8 known fields", headerLen)
	}

	var macros []Macro
	for c.pos() < blockEnd {
		code, err := c.readU8()
		if err != nil {
			return nil, err
		}
		if code == macroListEnd {
			break
		}

		headerEnd := c.pos() - 1 + int(headerLen)
		m := Macro{Code: code}
		if err := readAll(c, &m.Length, &m.Loop, &m.Release, &m.Mode,
			&m.Type, &m.Delay, &m.Speed); err != nil {
			return nil, err
		}
		c.seek(headerEnd)

		m.Values = make([]int32, m.Length)
		for i := range m.Values {
			switch m.WordSize() {
			case MacroWordU8:
				v, err := c.readU8()
				if err != nil {
					return nil, err
				}
				m.Values[i] = int32(v)
			case MacroWordI8:
				v, err := c.readI8()
				if err != nil {
					return nil, err
				}
				m.Values[i] = int32(v)
			case MacroWordI16:
				v, err := c.readI16()
				if err != nil {
					return nil, err
				}
				m.Values[i] = int32(v)
			case MacroWordI32:
				v, err := c.readI32()
				if err != nil {
					return nil, err
				}
				m.Values[i] = v
			}
		}
		macros = append(macros, m)
	}
	return macros, nil
}
