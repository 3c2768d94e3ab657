package furnace

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// zlib streams start with 0x78 (deflate, 32K window). Furnace writes its
// modules through zlib by default, but uncompressed files exist too.
const zlibMarker = 0x78

// decompress inflates a zlib-wrapped module and passes raw buffers through
// unchanged. A marked stream that fails to inflate is fatal.
func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] != zlibMarker {
		return data, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	return out, nil
}
