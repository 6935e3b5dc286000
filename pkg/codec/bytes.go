package codec

import (
	"bytes"
	"fmt"
)

// Slice returns a copy of the n bytes of buf starting at off.
func Slice(buf []byte, off, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("codec: negative length %d", n)
	}
	if off < 0 || len(buf)-off < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, off, len(buf)-off)
	}
	out := make([]byte, n)
	copy(out, buf[off:off+n])
	return out, nil
}

// Remaining returns the number of bytes between off and the end of buf.
func Remaining(buf []byte, off int) int {
	if off >= len(buf) {
		return 0
	}
	return len(buf) - off
}

// IndexByte returns the position of the first c at or after off, relative
// to off, or -1 when buf holds no such byte.
func IndexByte(buf []byte, off int, c byte) int {
	if off < 0 || off >= len(buf) {
		return -1
	}
	return bytes.IndexByte(buf[off:], c)
}

// HasPrefix reports whether buf holds prefix at off. A prefix running past
// the end of buf never matches.
func HasPrefix(buf []byte, off int, prefix []byte) bool {
	if off < 0 || off > len(buf) {
		return len(prefix) == 0
	}
	return bytes.HasPrefix(buf[off:], prefix)
}
