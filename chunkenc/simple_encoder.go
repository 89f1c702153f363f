package chunkenc

import (
	"github.com/dyu/riegeli/compress"
	"github.com/dyu/riegeli/internal/base"
	"github.com/dyu/riegeli/internal/chain"
	"github.com/dyu/riegeli/internal/varint"
)

// SimpleEncoder implements the sizes-stream-then-values-stream chunk
// format (spec §4.4), grounded on
// _examples/original_source/riegeli/chunk_encoding/simple_encoder.cc:
// every AddRecord writes a varint length into the sizes stream and the
// record bytes into the values stream; EncodeAndClose compresses both
// streams independently and concatenates
// [compression_type][varint(len(sizes))][sizes][values].
type SimpleEncoder struct {
	base.Object
	opts             EncoderOptions
	numRecords       uint64
	sizesCompressor  *compress.Compressor
	valuesCompressor *compress.Compressor
}

// NewSimpleEncoder returns an empty encoder configured by opts.
func NewSimpleEncoder(opts EncoderOptions) *SimpleEncoder {
	e := &SimpleEncoder{opts: opts}
	e.sizesCompressor = compress.NewCompressor(opts.Compression, 0)
	e.valuesCompressor = compress.NewCompressor(opts.Compression, opts.SizeHint)
	return e
}

// NumRecords returns the number of records added so far.
func (e *SimpleEncoder) NumRecords() uint64 { return e.numRecords }

// Reset returns the encoder to empty so it can encode another chunk.
func (e *SimpleEncoder) Reset() {
	e.MarkHealthy()
	e.numRecords = 0
	e.sizesCompressor.Reset()
	e.valuesCompressor.Reset()
}

// AddRecord appends one record.
func (e *SimpleEncoder) AddRecord(record []byte) error {
	if !e.Healthy() {
		return e.Err()
	}
	if e.numRecords == ^uint64(0) {
		e.Fail("riegeli: too many records")
		return e.Err()
	}
	if err := e.sizesCompressor.Writer().WriteVarint(uint64(len(record))); err != nil {
		e.FailWith("sizes stream", &e.sizesCompressor.Writer().Object)
		return e.Err()
	}
	if _, err := e.valuesCompressor.Writer().Write(record); err != nil {
		e.FailWith("values stream", &e.valuesCompressor.Writer().Object)
		return e.Err()
	}
	e.numRecords++
	return nil
}

// AddRecords appends multiple records already concatenated in records,
// with limits giving each record's end offset.
func (e *SimpleEncoder) AddRecords(records []byte, limits []int) error {
	if !e.Healthy() {
		return e.Err()
	}
	if len(limits) > 0 && limits[len(limits)-1] != len(records) {
		return base.CorruptionErrorf("riegeli: AddRecords: record end positions do not match concatenated record values")
	}
	if uint64(len(limits)) > ^uint64(0)-e.numRecords {
		e.Fail("riegeli: too many records")
		return e.Err()
	}
	start := 0
	for _, limit := range limits {
		if limit < start || limit > len(records) {
			return base.CorruptionErrorf("riegeli: AddRecords: record end positions not sorted")
		}
		if err := e.sizesCompressor.Writer().WriteVarint(uint64(limit - start)); err != nil {
			e.FailWith("sizes stream", &e.sizesCompressor.Writer().Object)
			return e.Err()
		}
		start = limit
	}
	if _, err := e.valuesCompressor.Writer().Write(records); err != nil {
		e.FailWith("values stream", &e.valuesCompressor.Writer().Object)
		return e.Err()
	}
	e.numRecords += uint64(len(limits))
	return nil
}

// EncodeAndClose finalizes the chunk: [compression_type]
// [varint(len(compressed_sizes))][compressed_sizes][compressed_values].
func (e *SimpleEncoder) EncodeAndClose(dst *EncodedChunk) error {
	if !e.Healthy() {
		return e.Err()
	}
	decodedDataSize := uint64(e.valuesCompressor.Writer().Pos())

	var out chain.Chain
	out.Append([]byte{byte(e.opts.Compression.Algorithm)})

	var sizesOut chain.Chain
	if err := e.sizesCompressor.EncodeAndClose(&sizesOut); err != nil {
		e.Fail("%v", err)
		return e.Err()
	}
	var lenBuf [varint.MaxLen64]byte
	out.Append(varint.PutUint64(lenBuf[:0], uint64(sizesOut.Size())))
	out.AppendChain(&sizesOut)

	if err := e.valuesCompressor.EncodeAndClose(&out); err != nil {
		e.Fail("%v", err)
		return e.Err()
	}

	dst.NumRecords = e.numRecords
	dst.DecodedDataSize = decodedDataSize
	dst.Data = out.Bytes()

	e.Close(nil)
	return e.Err()
}
