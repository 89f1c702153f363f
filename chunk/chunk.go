// Package chunk implements the chunk header: the magic, chunk-type byte,
// record count, decoded data size, and checksum that frame one chunk's
// compressed streams, independent of which codec (simple or transpose)
// produced them. It is grounded on pebble's sstable/block Trailer/Handle
// (magic-free, varint-framed, checksummed) and record/record.go's
// CRC-checked chunk framing, generalized from one block to one
// self-describing chunk.
package chunk

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/dyu/riegeli/internal/base"
	"github.com/dyu/riegeli/internal/crc"
	"github.com/dyu/riegeli/internal/varint"
)

// Type identifies which codec produced a chunk's streams.
type Type byte

const (
	// Simple chunks store a sizes stream and a values stream.
	Simple Type = 0
	// Transpose chunks store a header stream and compressed buckets.
	Transpose Type = 1
	// FileSignature is reserved for the outer file-framing layer.
	FileSignature Type = 0xff
	// Padding is reserved for the outer file-framing layer.
	Padding Type = 0xfe
)

func (t Type) String() string {
	switch t {
	case Simple:
		return "simple"
	case Transpose:
		return "transpose"
	case FileSignature:
		return "file_signature"
	case Padding:
		return "padding"
	default:
		return "unknown"
	}
}

// ChecksumType selects which algorithm protects a chunk's data payload,
// mirroring pebble's sstable/block Checksummer (ChecksumTypeCRC32c /
// ChecksumTypeXXHash64): CRC32C is the default everywhere else in this
// package (header framing always uses it), while XXHash64 is offered as a
// faster alternative for large payloads that callers may opt into.
type ChecksumType byte

const (
	CRC32C   ChecksumType = 0
	XXHash64 ChecksumType = 1
)

func (t ChecksumType) String() string {
	switch t {
	case CRC32C:
		return "crc32c"
	case XXHash64:
		return "xxhash64"
	default:
		return "unknown"
	}
}

// ComputeChecksum returns the checksum of data under typ, zero-extended to
// 64 bits when typ is CRC32C.
func ComputeChecksum(typ ChecksumType, data []byte) uint64 {
	switch typ {
	case XXHash64:
		return xxhash.Sum64(data)
	default:
		return uint64(crc.New(data).Value())
	}
}

// magic identifies the start of a chunk header so that a reader can
// distinguish a well-formed header from garbage before trusting its
// length fields, the same role pebble's block Trailer magic plays.
const magic uint64 = 0x72696567656c6900 // "riegeli\0" read as big-endian bytes

// Header precedes a chunk's compressed data. Its encoded size varies with
// the three varints (see HeaderSize): magic (8 bytes) + type (1 byte) + varint(num_records) +
// varint(decoded_data_size) + varint(data_len) + data checksum type
// (1 byte) + data checksum (8 bytes) + header checksum (4 bytes, CRC-32C
// of everything preceding it).
type Header struct {
	Type             Type
	NumRecords       uint64
	DecodedDataSize  uint64
	DataLen          uint64
	DataChecksumType ChecksumType
	DataChecksum     uint64
}

// Encode appends the encoded header to dst and returns the result.
func (h Header) Encode(dst []byte) []byte {
	start := len(dst)
	var magicBuf [8]byte
	binary.BigEndian.PutUint64(magicBuf[:], magic)
	dst = append(dst, magicBuf[:]...)
	dst = append(dst, byte(h.Type))
	dst = varint.PutUint64(dst, h.NumRecords)
	dst = varint.PutUint64(dst, h.DecodedDataSize)
	dst = varint.PutUint64(dst, h.DataLen)
	dst = append(dst, byte(h.DataChecksumType))
	var checksumBuf [8]byte
	binary.LittleEndian.PutUint64(checksumBuf[:], h.DataChecksum)
	dst = append(dst, checksumBuf[:]...)
	sum := crc.New(dst[start:])
	var sumBuf [4]byte
	binary.LittleEndian.PutUint32(sumBuf[:], sum.Value())
	dst = append(dst, sumBuf[:]...)
	return dst
}

// Decode parses a Header from the front of src, returning the header and
// the number of bytes consumed.
func Decode(src []byte) (Header, int, error) {
	if len(src) < 9 {
		return Header{}, 0, base.CorruptionErrorf("riegeli: chunk header truncated before type byte")
	}
	if binary.BigEndian.Uint64(src) != magic {
		return Header{}, 0, base.CorruptionErrorf("riegeli: chunk header has invalid magic")
	}
	typ := Type(src[8])
	pos := 9
	numRecords, n := varint.Uint64(src[pos:])
	if n <= 0 {
		return Header{}, 0, base.CorruptionErrorf("riegeli: chunk header has invalid num_records varint")
	}
	pos += n
	decodedDataSize, n := varint.Uint64(src[pos:])
	if n <= 0 {
		return Header{}, 0, base.CorruptionErrorf("riegeli: chunk header has invalid decoded_data_size varint")
	}
	pos += n
	dataLen, n := varint.Uint64(src[pos:])
	if n <= 0 {
		return Header{}, 0, base.CorruptionErrorf("riegeli: chunk header has invalid data_len varint")
	}
	pos += n
	if len(src) < pos+1+8 {
		return Header{}, 0, base.CorruptionErrorf("riegeli: chunk header truncated before data checksum")
	}
	dataChecksumType := ChecksumType(src[pos])
	pos++
	dataChecksum := binary.LittleEndian.Uint64(src[pos : pos+8])
	pos += 8
	if len(src) < pos+4 {
		return Header{}, 0, base.CorruptionErrorf("riegeli: chunk header truncated before checksum")
	}
	want := binary.LittleEndian.Uint32(src[pos : pos+4])
	got := crc.New(src[:pos]).Value()
	if want != got {
		return Header{}, 0, base.CorruptionErrorf("riegeli: chunk header checksum mismatch: got %#x, want %#x", got, want)
	}
	pos += 4
	return Header{
		Type:             typ,
		NumRecords:       numRecords,
		DecodedDataSize:  decodedDataSize,
		DataLen:          dataLen,
		DataChecksumType: dataChecksumType,
		DataChecksum:     dataChecksum,
	}, pos, nil
}

// EncodeChunk frames data (an EncodedChunk's Data, as produced by a
// chunkenc.Encoder) behind a Header, computing its data checksum under
// checksumType.
func EncodeChunk(typ Type, checksumType ChecksumType, numRecords, decodedDataSize uint64, data []byte) []byte {
	h := Header{
		Type:             typ,
		NumRecords:       numRecords,
		DecodedDataSize:  decodedDataSize,
		DataLen:          uint64(len(data)),
		DataChecksumType: checksumType,
		DataChecksum:     ComputeChecksum(checksumType, data),
	}
	out := h.Encode(make([]byte, 0, HeaderSize(h)+len(data)))
	return append(out, data...)
}

// DecodeChunk parses a Header from the front of src, verifies the data
// checksum, and returns the header along with the data bytes it frames.
func DecodeChunk(src []byte) (Header, []byte, error) {
	h, n, err := Decode(src)
	if err != nil {
		return Header{}, nil, err
	}
	if uint64(len(src)-n) < h.DataLen {
		return Header{}, nil, base.CorruptionErrorf("riegeli: chunk truncated: declares %d data bytes, has %d", h.DataLen, len(src)-n)
	}
	data := src[n : n+int(h.DataLen)]
	got := ComputeChecksum(h.DataChecksumType, data)
	if got != h.DataChecksum {
		return Header{}, nil, base.CorruptionErrorf("riegeli: chunk data checksum mismatch: got %#x, want %#x", got, h.DataChecksum)
	}
	return h, data, nil
}

// HeaderSize returns the number of bytes Header.Encode will append for the
// given header, without materializing it — used by callers sizing a
// destination buffer up front.
func HeaderSize(h Header) int {
	var buf [8 + 1 + 3*varint.MaxLen64 + 1 + 8 + 4]byte
	return len(h.Encode(buf[:0]))
}
