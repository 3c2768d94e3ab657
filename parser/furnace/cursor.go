package furnace

import (
	"encoding/binary"
	"fmt"
	"math"
)

// A cursor over the raw module bytes. All multi-byte reads are little-endian.
// Every other part of the decoder goes through this type; nothing else is
// allowed to hold a raw offset across calls.
type cursor struct {
	data []byte
	off  int
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

// pos returns the current byte offset.
func (c *cursor) pos() int {
	return c.off
}

// size returns the total length of the underlying buffer.
func (c *cursor) size() int {
	return len(c.data)
}

// isEOF reports whether the cursor has reached (or passed) the end of the buffer.
func (c *cursor) isEOF() bool {
	return c.off >= len(c.data)
}

// seek repositions the cursor to an absolute offset.
// Seeking past the end is legal; the next read will fail instead.
func (c *cursor) seek(off int) {
	c.off = off
}

// skip moves the cursor forward (or backward, for negative n) relative to the
// current position.
func (c *cursor) skip(n int) {
	c.off += n
}

// need checks that n more bytes are available at the current position.
func (c *cursor) need(n int) error {
	if c.off < 0 || n < 0 || c.off+n > len(c.data) {
		return fmt.Errorf("%w at offset %d (need %d bytes, have %d)",
			ErrUnexpectedEOF, c.off, n, len(c.data)-c.off)
	}
	return nil
}

func (c *cursor) readU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.data[c.off]
	c.off++
	return v, nil
}

func (c *cursor) readI8() (int8, error) {
	v, err := c.readU8()
	return int8(v), err
}

func (c *cursor) readU16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.data[c.off:])
	c.off += 2
	return v, nil
}

func (c *cursor) readI16() (int16, error) {
	v, err := c.readU16()
	return int16(v), err
}

func (c *cursor) readU32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.data[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) readI32() (int32, error) {
	v, err := c.readU32()
	return int32(v), err
}

func (c *cursor) readF32() (float32, error) {
	v, err := c.readU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// readBytes returns a copy of the next n bytes.
func (c *cursor) readBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, c.data[c.off:c.off+n])
	c.off += n
	return b, nil
}

// readMagic reads the next n bytes as an ASCII tag for comparison.
func (c *cursor) readMagic(n int) (string, error) {
	if err := c.need(n); err != nil {
		return "", err
	}
	s := string(c.data[c.off : c.off+n])
	c.off += n
	return s, nil
}

// readString reads a null-terminated string. Every text field in the format
// is stored this way.
func (c *cursor) readString() (string, error) {
	start := c.off
	for {
		if c.off >= len(c.data) {
			c.off = start
			return "", fmt.Errorf("%w at offset %d (unterminated string)", ErrUnexpectedEOF, start)
		}
		if c.data[c.off] == 0 {
			s := string(c.data[start:c.off])
			c.off++
			return s, nil
		}
		c.off++
	}
}
