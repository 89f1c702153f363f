// Package chunkenc implements the simple and transpose chunk codecs (spec
// §4.4–§4.6): encoders that turn a batch of records into a chunk's
// compressed data streams, and decoders that reverse the process, with
// optional field-level projection on the transpose side.
package chunkenc

import "github.com/dyu/riegeli/compress"

// Encoder is the common contract both SimpleEncoder and TransposeEncoder
// satisfy, mirroring the original ChunkEncoder base class's virtual
// interface (AddRecord(s), num_records, EncodeAndClose, GetChunkType).
type Encoder interface {
	// AddRecord appends one record.
	AddRecord(record []byte) error
	// AddRecords appends multiple records already concatenated in
	// records, with limits giving each record's end offset within
	// records (limits must be sorted and limits[len(limits)-1] ==
	// len(records)), supplementing the original's AddRecord-at-a-time
	// interface with its batch AddRecords entry point (spec-full §5.1).
	AddRecords(records []byte, limits []int) error
	// NumRecords returns the number of records added so far.
	NumRecords() uint64
	// EncodeAndClose finalizes the chunk into dst, filling in the total
	// record count and decoded (pre-compression) data size. On success
	// the encoder is closed afterward; on failure it is left failed but
	// not closed.
	EncodeAndClose(dst *EncodedChunk) error
	// Reset returns the encoder to empty so it can encode another chunk.
	Reset()
}

// EncodedChunk is the encoder's output: enough information for the
// chunk-header layer (package chunk) to frame it, plus the raw compressed
// payload bytes.
type EncodedChunk struct {
	NumRecords      uint64
	DecodedDataSize uint64
	Data            []byte
}

// DecoderOptions configures a SimpleDecoder or TransposeDecoder.
type DecoderOptions struct {
	// SkipErrors causes per-record parse failures to be recovered locally
	// (incrementing SkippedRecords and advancing past the bad record)
	// instead of poisoning the whole decoder (spec §7, spec-full §5.2).
	// Only meaningful for TransposeDecoder, which is the only codec that
	// parses record bytes as protobuf; SimpleDecoder never interprets
	// record contents and so never has a record-level parse failure to
	// skip.
	SkipErrors bool
	// FieldFilter selects which fields to reconstruct; the zero value is
	// the empty Filter (excludes everything), so callers that want
	// everything must pass All() explicitly.
	FieldFilter Filter
}

// EncoderOptions configures a SimpleEncoder or TransposeEncoder.
type EncoderOptions struct {
	Compression compress.Options
	// SizeHint is the expected decoded data size, passed to the
	// values-stream compressor as its size hint (spec §4.3 size_hint); no
	// compression backend reads it, so it does not change the window.
	SizeHint uint64
}
