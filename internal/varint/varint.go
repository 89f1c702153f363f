// Package varint provides the LEB128 variable-width integer codec used to
// encode record sizes, bucket lengths, and header fields throughout the
// chunk encoding core. It is a thin, explicitly named wrapper around
// encoding/binary's Uvarint/PutUvarint, the same primitives pebble uses
// directly in leveldb/version_edit.go and internal/manifest/version_edit.go
// rather than reaching for a third-party varint library — there is no
// varint package anywhere in the example corpus, because LEB128 is exactly
// what the standard library already implements.
package varint

import (
	"encoding/binary"
	"io"

	"github.com/dyu/riegeli/internal/base"
)

// MaxLen32 is the maximum number of bytes produced by PutUint32.
const MaxLen32 = 5

// MaxLen64 is the maximum number of bytes produced by PutUint64.
const MaxLen64 = binary.MaxVarintLen64

// PutUint64 appends the LEB128 encoding of v to dst and returns the
// resulting slice.
func PutUint64(dst []byte, v uint64) []byte {
	var buf [MaxLen64]byte
	n := binary.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}

// PutUint32 appends the LEB128 encoding of v to dst and returns the
// resulting slice.
func PutUint32(dst []byte, v uint32) []byte {
	return PutUint64(dst, uint64(v))
}

// Uint64 decodes a LEB128-encoded uint64 from the front of src, returning
// the value and the number of bytes consumed. n is 0 if src does not
// contain a complete, valid varint and -n is the number of bytes that would
// be needed to determine that the varint is invalid (too long), matching
// binary.Uvarint's contract.
func Uint64(src []byte) (v uint64, n int) {
	return binary.Uvarint(src)
}

// Uint32 decodes a LEB128-encoded value from the front of src, as Uint64,
// additionally failing (n == 0) if the decoded value overflows uint32.
func Uint32(src []byte) (v uint32, n int) {
	u, n := binary.Uvarint(src)
	if n <= 0 || u > uint64(^uint32(0)) {
		return 0, 0
	}
	return uint32(u), n
}

// ReadUint64 reads one LEB128-encoded uint64 from r, returning a
// base.CorruptionErrorf on a truncated or overlong encoding and io.EOF only
// when r yields no bytes at all before the first read.
func ReadUint64(r io.ByteReader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		if err == io.EOF {
			return 0, err
		}
		return 0, base.CorruptionErrorf("invalid varint: %v", err)
	}
	return v, nil
}
