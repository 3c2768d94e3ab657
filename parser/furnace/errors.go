package furnace

import (
	"errors"
	"fmt"
)

// Fatal decode failures. Anything else the decoder can recover from is either
// a Warning or a per-asset placeholder.
var (
	// ErrInvalidHeader means the file doesn't start with the module magic, or
	// the song info block magic doesn't match the dispatched format.
	ErrInvalidHeader = errors.New("invalid module header")

	// ErrCorruptArchive means the file carried the zlib marker but couldn't
	// be inflated.
	ErrCorruptArchive = errors.New("corrupt compressed module")

	// ErrUnexpectedEOF means the buffer ended inside a mandatory field.
	ErrUnexpectedEOF = errors.New("unexpected end of module data")
)

// DecodeError is the structured failure returned from the public entry point.
// Stage names the part of the file being decoded when the failure happened.
type DecodeError struct {
	Stage  string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s (offset %d): %v", e.Stage, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Small struct for non-fatal warnings.
type Warning struct {
	Offset  int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("offset %d: %s", w.Offset, w.Message)
}
