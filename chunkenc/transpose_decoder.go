package chunkenc

import (
	"github.com/dyu/riegeli/compress"
	"github.com/dyu/riegeli/internal/base"
	"github.com/dyu/riegeli/internal/chain"
	"github.com/dyu/riegeli/internal/varint"
	"github.com/dyu/riegeli/iostream"
)

// TransposeDecoder reverses TransposeEncoder: it parses the header
// (buffer lengths, node graph, per-record start indices), decompresses
// the single bucket holding every buffer's bytes, resolves each node's
// suppressed flag against opts.FieldFilter, and replays the state
// machine per record through a BackwardWriter to reassemble each
// record's bytes in original field order.
type TransposeDecoder struct {
	base.Object
	opts DecoderOptions

	nodes        []node
	recordStarts []int
	buffers      [][]byte
	cursors      []int
	nonProtoID   int

	index   uint64
	numRecs uint64
	skipped uint64
}

// NewTransposeDecoder returns an empty decoder; call Reset to parse a
// chunk.
func NewTransposeDecoder() *TransposeDecoder {
	return &TransposeDecoder{}
}

type headerReader struct {
	data []byte
	pos  int
}

func (r *headerReader) varint() (uint64, error) {
	v, n := varint.Uint64(r.data[r.pos:])
	if n <= 0 {
		return 0, base.CorruptionErrorf("riegeli: transpose header has an invalid varint")
	}
	r.pos += n
	return v, nil
}

func (r *headerReader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, base.CorruptionErrorf("riegeli: transpose header truncated")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// Reset parses data (a transpose-format chunk payload as produced by
// TransposeEncoder.EncodeAndClose) and positions the decoder at record 0.
func (d *TransposeDecoder) Reset(data []byte, numRecords, decodedDataSize uint64, opts DecoderOptions) error {
	d.MarkHealthy()
	d.opts = opts
	d.index = 0
	d.skipped = 0

	r := &headerReader{data: data}
	numBuffers, err := r.varint()
	if err != nil {
		return d.fail(err)
	}
	bufferLens := make([]int, numBuffers)
	for i := range bufferLens {
		if _, err := r.varint(); err != nil { // bucket_index, unused
			return d.fail(err)
		}
		n, err := r.varint()
		if err != nil {
			return d.fail(err)
		}
		bufferLens[i] = int(n)
	}
	nonProtoPlusOne, err := r.varint()
	if err != nil {
		return d.fail(err)
	}
	d.nonProtoID = int(nonProtoPlusOne) - 1

	numNodes, err := r.varint()
	if err != nil {
		return d.fail(err)
	}
	nodes := make([]node, numNodes)
	for i := range nodes {
		kindByte, err := r.byte()
		if err != nil {
			return d.fail(err)
		}
		pathLen, err := r.varint()
		if err != nil {
			return d.fail(err)
		}
		path := make([]uint32, pathLen)
		for j := range path {
			f, err := r.varint()
			if err != nil {
				return d.fail(err)
			}
			path[j] = uint32(f)
		}
		wireType, err := r.varint()
		if err != nil {
			return d.fail(err)
		}
		bufIDPlusOne, err := r.varint()
		if err != nil {
			return d.fail(err)
		}
		nextPlusOne, err := r.varint()
		if err != nil {
			return d.fail(err)
		}
		nodes[i] = node{
			kind:     nodeKind(kindByte),
			path:     path,
			wireType: uint32(wireType),
			bufferID: int(bufIDPlusOne) - 1,
			next:     int(nextPlusOne) - 1,
		}
	}
	if err := checkNoImplicitLoop(nodes); err != nil {
		return d.fail(err)
	}
	resolveSuppressed(nodes, opts.FieldFilter)
	d.nodes = nodes

	numRecs64, err := r.varint()
	if err != nil {
		return d.fail(err)
	}
	recordStarts := make([]int, numRecs64)
	for i := range recordStarts {
		s, err := r.varint()
		if err != nil {
			return d.fail(err)
		}
		if int(s)-1 < -1 || int(s)-1 >= len(nodes) {
			return d.fail(base.CorruptionErrorf("riegeli: transpose record start index out of range"))
		}
		recordStarts[i] = int(s) - 1
	}
	if uint64(len(recordStarts)) != numRecords {
		return d.fail(base.CorruptionErrorf("riegeli: transpose chunk declares %d records but header has %d", numRecords, len(recordStarts)))
	}
	d.recordStarts = recordStarts
	d.numRecs = numRecords

	algorithm, err := r.byte()
	if err != nil {
		return d.fail(err)
	}
	dec := compress.NewDecompressor(compress.Algorithm(algorithm))
	plain, err := dec.Decompress(data[r.pos:])
	if err != nil {
		return d.fail(base.CorruptionErrorf("riegeli: transpose bucket: %v", err))
	}
	total := 0
	for _, n := range bufferLens {
		total += n
	}
	if total != len(plain) {
		return d.fail(base.CorruptionErrorf("riegeli: transpose bucket length mismatch: buffers sum to %d, decompressed %d", total, len(plain)))
	}
	buffers := make([][]byte, numBuffers)
	off := 0
	for i, n := range bufferLens {
		buffers[i] = plain[off : off+n]
		off += n
	}
	d.buffers = buffers
	d.cursors = make([]int, numBuffers)

	return nil
}

func (d *TransposeDecoder) fail(err error) error {
	d.Fail("%v", err)
	return d.Err()
}

// NumRecords returns the number of records in the decoded chunk.
func (d *TransposeDecoder) NumRecords() uint64 { return d.numRecs }

// Index returns the index of the next record ReadRecord will return.
func (d *TransposeDecoder) Index() uint64 { return d.index }

// SkippedRecords reports how many records ReadRecord has silently
// skipped past because they failed to replay and opts.SkipErrors was set
// (spec-full §5.2).
func (d *TransposeDecoder) SkippedRecords() uint64 { return d.skipped }

// SetIndex repositions ReadRecord at index, clamped to NumRecords().
// Column buffers are read sequentially, so the records between the
// current position (or record 0, when moving backward) and index are
// replayed and discarded to bring every buffer cursor into place.
func (d *TransposeDecoder) SetIndex(index uint64) {
	if index > d.numRecs {
		index = d.numRecs
	}
	if !d.Healthy() {
		d.index = index
		return
	}
	if index < d.index {
		for i := range d.cursors {
			d.cursors[i] = 0
		}
		d.index = 0
	}
	for d.index < index {
		i := d.index
		d.index++
		if _, err := d.replay(d.recordStarts[i]); err != nil && !d.opts.SkipErrors {
			d.fail(base.CorruptionErrorf("riegeli: transpose record %d: %v", i, err))
			return
		}
	}
}

// ReadRecord returns the next record, or ok == false when the chunk ends.
// When opts.SkipErrors is set, a record whose state machine fails to
// replay is skipped (counted in SkippedRecords) rather than failing the
// whole decoder.
func (d *TransposeDecoder) ReadRecord() (record []byte, ok bool, err error) {
	if !d.Healthy() {
		return nil, false, d.Err()
	}
	for d.index < d.numRecs {
		i := d.index
		d.index++
		rec, rerr := d.replay(d.recordStarts[i])
		if rerr != nil {
			if d.opts.SkipErrors {
				d.skipped++
				continue
			}
			return nil, false, d.fail(base.CorruptionErrorf("riegeli: transpose record %d: %v", i, rerr))
		}
		return rec, true, nil
	}
	return nil, false, nil
}

type submessageFrame struct {
	pos int64
	tag []byte
}

// replay runs the state machine starting at nodeIdx and returns the
// reassembled record bytes.
func (d *TransposeDecoder) replay(nodeIdx int) ([]byte, error) {
	var rec chain.Chain
	bw := iostream.NewBackwardWriter(&rec)
	var stack []submessageFrame

	idx := nodeIdx
	for {
		if idx < 0 || idx >= len(d.nodes) {
			return nil, base.CorruptionErrorf("node index out of range")
		}
		n := d.nodes[idx]
		switch n.kind {
		case nodeCopyTagAndVarint:
			if !n.suppressed {
				raw, err := readVarintRaw(d.buffers[n.bufferID], &d.cursors[n.bufferID])
				if err != nil {
					return nil, err
				}
				if _, err := bw.Write(raw); err != nil {
					return nil, err
				}
				if _, err := bw.Write(n.tag()); err != nil {
					return nil, err
				}
			}
			idx = n.next
		case nodeCopyTagAndFixed:
			if !n.suppressed {
				width := 4
				if n.wireType == wireFixed64 {
					width = 8
				}
				raw, err := readFixed(d.buffers[n.bufferID], &d.cursors[n.bufferID], width)
				if err != nil {
					return nil, err
				}
				if _, err := bw.Write(raw); err != nil {
					return nil, err
				}
				if _, err := bw.Write(n.tag()); err != nil {
					return nil, err
				}
			}
			idx = n.next
		case nodeCopyTagAndBytes:
			if !n.suppressed {
				raw, err := readLengthDelimitedRaw(d.buffers[n.bufferID], &d.cursors[n.bufferID])
				if err != nil {
					return nil, err
				}
				if _, err := bw.Write(raw); err != nil {
					return nil, err
				}
				if _, err := bw.Write(n.tag()); err != nil {
					return nil, err
				}
			}
			idx = n.next
		// replay visits a record's events in reverse of their original
		// order (see TransposeEncoder.buildChain), so for any one
		// submessage its EndSubmessage node is reached before its body
		// and its StartSubmessage node is reached after: EndSubmessage
		// pushes the position to measure from, and StartSubmessage pops
		// it once the body's bytes have been written, computing the
		// submessage's length.
		case nodeEndSubmessage:
			if !n.suppressed {
				stack = append(stack, submessageFrame{pos: bw.Pos(), tag: n.tag()})
			}
			idx = n.next
		case nodeStartSubmessage:
			if !n.suppressed {
				if len(stack) == 0 {
					return nil, base.CorruptionErrorf("unbalanced submessage start")
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				length := bw.Pos() - top.pos
				if err := bw.WriteVarint(uint64(length)); err != nil {
					return nil, err
				}
				if _, err := bw.Write(top.tag); err != nil {
					return nil, err
				}
			}
			idx = n.next
		case nodeNonProtoRecord:
			raw, err := readLengthDelimitedBody(d.buffers[n.bufferID], &d.cursors[n.bufferID])
			if err != nil {
				return nil, err
			}
			if _, err := bw.Write(raw); err != nil {
				return nil, err
			}
			idx = n.next
		case nodeEndOfRecord:
			if len(stack) != 0 {
				return nil, base.CorruptionErrorf("unbalanced submessage at end of record")
			}
			return rec.Bytes(), nil
		default:
			return nil, base.CorruptionErrorf("unknown transpose node kind")
		}
	}
}

func readVarintRaw(buf []byte, cursor *int) ([]byte, error) {
	_, n := varint.Uint64(buf[*cursor:])
	if n <= 0 {
		return nil, base.CorruptionErrorf("transpose buffer ended within a varint")
	}
	start := *cursor
	*cursor += n
	return buf[start:*cursor], nil
}

func readFixed(buf []byte, cursor *int, width int) ([]byte, error) {
	if len(buf)-*cursor < width {
		return nil, base.CorruptionErrorf("transpose buffer ended within a fixed-width value")
	}
	start := *cursor
	*cursor += width
	return buf[start:*cursor], nil
}

// readLengthDelimitedRaw returns the stored varint(len)+body unit as one
// slice, suitable for writing verbatim after the value's own tag.
func readLengthDelimitedRaw(buf []byte, cursor *int) ([]byte, error) {
	length, n := varint.Uint64(buf[*cursor:])
	if n <= 0 {
		return nil, base.CorruptionErrorf("transpose buffer ended within a length prefix")
	}
	start := *cursor
	if uint64(len(buf)-*cursor-n) < length {
		return nil, base.CorruptionErrorf("transpose buffer ended within a length-delimited value")
	}
	*cursor += n + int(length)
	return buf[start:*cursor], nil
}

// readLengthDelimitedBody is like readLengthDelimitedRaw but returns only
// the body, for non-proto records which are copied without a tag.
func readLengthDelimitedBody(buf []byte, cursor *int) ([]byte, error) {
	length, n := varint.Uint64(buf[*cursor:])
	if n <= 0 {
		return nil, base.CorruptionErrorf("transpose buffer ended within a length prefix")
	}
	if uint64(len(buf)-*cursor-n) < length {
		return nil, base.CorruptionErrorf("transpose buffer ended within a length-delimited value")
	}
	*cursor += n
	start := *cursor
	*cursor += int(length)
	return buf[start:*cursor], nil
}

// resolveSuppressed computes, for every node, whether its field path
// survives filter, setting node.suppressed accordingly (spec §4.6 / §7:
// an excluded submessage is elided wholesale, not merely emptied).
func resolveSuppressed(nodes []node, filter Filter) {
	for i := range nodes {
		n := &nodes[i]
		switch n.kind {
		case nodeNonProtoRecord, nodeEndOfRecord:
			n.suppressed = false
		case nodeStartSubmessage, nodeEndSubmessage:
			sub := walkFilter(filter, n.path)
			n.suppressed = sub.IsNone()
		default:
			parent := walkFilter(filter, n.path[:len(n.path)-1])
			n.suppressed = !parent.Includes(n.path[len(n.path)-1])
		}
	}
}

func walkFilter(f Filter, path []uint32) Filter {
	for _, field := range path {
		f = f.Sub(field)
	}
	return f
}

// checkNoImplicitLoop rejects a node graph containing a cycle reachable
// through purely structural (non-data-consuming) nodes only: such a
// cycle would make the decoder loop forever without ever terminating a
// record (spec §7's implicit-loop rejection).
func checkNoImplicitLoop(nodes []node) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]byte, len(nodes))
	isStructural := func(i int) bool {
		return i >= 0 && i < len(nodes) && (nodes[i].kind == nodeStartSubmessage || nodes[i].kind == nodeEndSubmessage)
	}
	var visit func(i int) error
	visit = func(i int) error {
		color[i] = gray
		next := nodes[i].next
		if isStructural(next) {
			switch color[next] {
			case gray:
				return base.CorruptionErrorf("riegeli: transpose state machine has an implicit loop")
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[i] = black
		return nil
	}
	for i := range nodes {
		if isStructural(i) && color[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}
