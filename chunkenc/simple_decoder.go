package chunkenc

import (
	"github.com/dyu/riegeli/compress"
	"github.com/dyu/riegeli/internal/base"
	"github.com/dyu/riegeli/internal/chain"
	"github.com/dyu/riegeli/internal/varint"
	"github.com/dyu/riegeli/iostream"
)

// SimpleDecoder reverses SimpleEncoder (spec §4.4): it reads the
// compression-type byte, decompresses the sizes stream into a limits
// vector of record end-offsets, decompresses the values stream, and
// serves ReadRecord/SetIndex against those two structures. The field
// filter is ignored entirely here, matching the original: the simple
// format has no field-level knowledge to project on.
type SimpleDecoder struct {
	base.Object
	limits       []int
	valuesChain  chain.Chain
	valuesReader *iostream.ChainReader
	index        uint64
}

// NewSimpleDecoder returns an empty decoder; call Reset to parse a chunk.
func NewSimpleDecoder() *SimpleDecoder {
	d := &SimpleDecoder{}
	d.valuesReader = iostream.NewChainReader(&d.valuesChain)
	return d
}

// Reset parses data (a simple-format chunk payload as produced by
// SimpleEncoder.EncodeAndClose) and positions the decoder at record 0.
func (d *SimpleDecoder) Reset(data []byte, numRecords, decodedDataSize uint64) error {
	d.MarkHealthy()
	d.limits = nil
	d.valuesChain.Clear()
	d.index = 0

	if len(data) < 1 {
		return d.fail(base.CorruptionErrorf("riegeli: simple chunk truncated before compression type"))
	}
	algorithm := compress.Algorithm(data[0])
	sizesLen, n := varint.Uint64(data[1:])
	if n <= 0 {
		return d.fail(base.CorruptionErrorf("riegeli: simple chunk has invalid sizes length"))
	}
	pos := 1 + n
	if uint64(len(data)-pos) < sizesLen {
		return d.fail(base.CorruptionErrorf("riegeli: simple chunk truncated within sizes stream"))
	}
	sizesCompressed := data[pos : pos+int(sizesLen)]
	valuesCompressed := data[pos+int(sizesLen):]

	sizesDec := compress.NewDecompressor(algorithm)
	sizesData, err := sizesDec.Decompress(sizesCompressed)
	if err != nil {
		return d.fail(base.CorruptionErrorf("riegeli: simple chunk sizes stream: %v", err))
	}
	valuesDec := compress.NewDecompressor(algorithm)
	valuesData, err := valuesDec.Decompress(valuesCompressed)
	if err != nil {
		return d.fail(base.CorruptionErrorf("riegeli: simple chunk values stream: %v", err))
	}

	limits := make([]int, 0, numRecords)
	total := 0
	rest := sizesData
	for len(rest) > 0 {
		size, n := varint.Uint64(rest)
		if n <= 0 {
			return d.fail(base.CorruptionErrorf("riegeli: simple chunk sizes stream has an invalid varint"))
		}
		rest = rest[n:]
		total += int(size)
		limits = append(limits, total)
	}
	if uint64(len(limits)) != numRecords {
		return d.fail(base.CorruptionErrorf("riegeli: simple chunk declares %d records but sizes stream has %d", numRecords, len(limits)))
	}
	if total != len(valuesData) || uint64(total) != decodedDataSize {
		return d.fail(base.CorruptionErrorf("riegeli: simple chunk sizes/values mismatch: sizes total %d, values length %d, declared %d", total, len(valuesData), decodedDataSize))
	}

	d.limits = limits
	d.valuesChain.AppendOwned(valuesData)
	d.valuesReader = iostream.NewChainReader(&d.valuesChain)
	return nil
}

func (d *SimpleDecoder) fail(err error) error {
	d.Fail("%v", err)
	return d.Err()
}

// NumRecords returns the number of records in the decoded chunk.
func (d *SimpleDecoder) NumRecords() uint64 { return uint64(len(d.limits)) }

// Index returns the index of the next record ReadRecord will return.
func (d *SimpleDecoder) Index() uint64 { return d.index }

// SkippedRecords always reports 0: the simple decoder never parses
// record contents, so it has nothing to skip (spec-full §5.4 carries this
// counter on TransposeDecoder instead).
func (d *SimpleDecoder) SkippedRecords() uint64 { return 0 }

// SetIndex repositions ReadRecord at index, clamped to NumRecords().
func (d *SimpleDecoder) SetIndex(index uint64) {
	if index > uint64(len(d.limits)) {
		index = uint64(len(d.limits))
	}
	d.index = index
	start := 0
	if index > 0 {
		start = d.limits[index-1]
	}
	if err := d.valuesReader.Seek(int64(start)); err != nil {
		panic(err)
	}
}

// ReadRecord returns the next record, or ok == false when the chunk ends.
func (d *SimpleDecoder) ReadRecord() (record []byte, ok bool, err error) {
	if !d.Healthy() {
		return nil, false, d.Err()
	}
	if d.index == uint64(len(d.limits)) {
		return nil, false, nil
	}
	start := int(d.valuesReader.Pos())
	limit := d.limits[d.index]
	d.index++
	record, err = d.valuesReader.ReadN(limit - start)
	if err != nil {
		return nil, false, d.fail(base.CorruptionErrorf("riegeli: simple chunk values stream ended early: %v", err))
	}
	return record, true, nil
}
