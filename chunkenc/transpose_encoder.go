package chunkenc

import (
	"fmt"

	"github.com/dyu/riegeli/compress"
	"github.com/dyu/riegeli/internal/base"
	"github.com/dyu/riegeli/internal/chain"
	"github.com/dyu/riegeli/internal/varint"
)

// TransposeEncoder implements the transpose chunk format (spec §4.5): each
// record is parsed as protobuf wire format, its fields are routed into
// per-column buffers keyed by field path, and the control flow needed to
// reassemble each record is recorded as a shared graph of state machine
// nodes (transpose_common.go). Grounded on
// _examples/original_source/riegeli/chunk_encoding/transpose_encoder.h's
// description of the design; the concrete node-sharing strategy (hash-
// consing node chains in each record's original field order, each new
// node pointing back to the one built for the previous field, so records
// with a common leading prefix of fields share nodes) and the on-disk
// header layout below are this package's own construction, since the
// C++ encoder's source was not available to copy from — see DESIGN.md.
//
// A record's start node is the one built for its *last* event; replay
// drives the chain through a BackwardWriter (which prepends each write
// before everything written so far), so visiting last-event-first and
// walking next pointers back to the first event reproduces the record's
// original field order. See TransposeDecoder.replay.
//
// Wire layout produced by EncodeAndClose:
//
//	varint(num_buffers)
//	num_buffers * [varint(bucket_index) varint(buffer_len)]
//	varint(nonproto_buffer_id+1)   -- 0 if no record fell back to raw bytes
//	varint(num_nodes)
//	num_nodes * [byte(kind) varint(path_len) path_len*varint(field_number)
//	             varint(wire_type) varint(buffer_id+1) varint(next+1)]
//	varint(num_records)
//	num_records * varint(start_node_index)
//	byte(compression_type)
//	<compressed concatenation of all buffers, in buffer-id order>
//
// bucket_index is always 0 in this implementation: every buffer lands in
// one bucket and is compressed together. The field is carried on the wire
// so a future version could group buffers into multiple independently
// decompressible buckets without changing the format.
type TransposeEncoder struct {
	base.Object
	opts            EncoderOptions
	numRecords      uint64
	decodedDataSize uint64

	nodes        []node
	memo         map[string]int
	endOfRecord  int
	buffers      map[string]int
	bufferData   [][]byte
	nonProtoID   int
	recordStarts []int
}

// NewTransposeEncoder returns an empty encoder configured by opts.
func NewTransposeEncoder(opts EncoderOptions) *TransposeEncoder {
	e := &TransposeEncoder{opts: opts}
	e.resetState()
	return e
}

func (e *TransposeEncoder) resetState() {
	e.nodes = []node{{kind: nodeEndOfRecord, bufferID: -1, next: -1, path: nil}}
	e.endOfRecord = 0
	e.memo = make(map[string]int)
	e.buffers = make(map[string]int)
	e.bufferData = nil
	e.nonProtoID = -1
	e.recordStarts = nil
}

// NumRecords returns the number of records added so far.
func (e *TransposeEncoder) NumRecords() uint64 { return e.numRecords }

// Reset returns the encoder to empty so it can encode another chunk.
func (e *TransposeEncoder) Reset() {
	e.MarkHealthy()
	e.numRecords = 0
	e.decodedDataSize = 0
	e.resetState()
}

// AddRecord appends one record.
func (e *TransposeEncoder) AddRecord(record []byte) error {
	if !e.Healthy() {
		return e.Err()
	}
	if e.numRecords == ^uint64(0) {
		e.Fail("riegeli: too many records")
		return e.Err()
	}
	var events []event
	if parsed, ok := parseMessage(record, 0); ok {
		events = parsed
	} else {
		events = []event{{kind: evNonProto, payload: record}}
	}
	start := e.buildChain(events)
	e.recordStarts = append(e.recordStarts, start)
	e.numRecords++
	e.decodedDataSize += uint64(len(record))
	return nil
}

// AddRecords appends multiple records already concatenated in records,
// with limits giving each record's end offset.
func (e *TransposeEncoder) AddRecords(records []byte, limits []int) error {
	if !e.Healthy() {
		return e.Err()
	}
	if len(limits) > 0 && limits[len(limits)-1] != len(records) {
		return base.CorruptionErrorf("riegeli: AddRecords: record end positions do not match concatenated record values")
	}
	start := 0
	for _, limit := range limits {
		if limit < start || limit > len(records) {
			return base.CorruptionErrorf("riegeli: AddRecords: record end positions not sorted")
		}
		if err := e.AddRecord(records[start:limit]); err != nil {
			return err
		}
		start = limit
	}
	return nil
}

// buildChain parses events into the shared node graph and returns the
// node index at which decoding this record should begin.
func (e *TransposeEncoder) buildChain(events []event) int {
	paths := make([][]uint32, len(events))
	var stack []uint32
	for i, ev := range events {
		switch ev.kind {
		case evStartSubmessage:
			stack = append(stack, ev.fieldNumber)
			paths[i] = append([]uint32(nil), stack...)
		case evEndSubmessage:
			paths[i] = append([]uint32(nil), stack...)
			stack = stack[:len(stack)-1]
		default:
			p := append(append([]uint32(nil), stack...), ev.fieldNumber)
			paths[i] = p
		}
	}

	// Walk events in their original order, chaining each new node onto the
	// one built for the previous event, so the node returned for this
	// record corresponds to its *last* event and its next pointers walk
	// back toward the first. replay drives this chain through a
	// BackwardWriter, which prepends each write before everything written
	// so far; visiting last-event-first and prepending back to the first
	// event is what reproduces the record's original field order (see
	// TransposeDecoder.replay).
	next := e.endOfRecord
	for i := 0; i < len(events); i++ {
		ev := events[i]
		bufID := -1
		var wireType uint32
		path := paths[i]
		switch ev.kind {
		case evVarintField:
			wireType = wireVarint
			bufID = e.getOrCreateBuffer(pathKey(path, wireType))
			e.bufferData[bufID] = append(e.bufferData[bufID], ev.payload...)
		case evFixed64Field:
			wireType = wireFixed64
			bufID = e.getOrCreateBuffer(pathKey(path, wireType))
			e.bufferData[bufID] = append(e.bufferData[bufID], ev.payload...)
		case evFixed32Field:
			wireType = wireFixed32
			bufID = e.getOrCreateBuffer(pathKey(path, wireType))
			e.bufferData[bufID] = append(e.bufferData[bufID], ev.payload...)
		case evLeafBytesField:
			wireType = wireBytes
			bufID = e.getOrCreateBuffer(pathKey(path, wireType))
			e.appendLengthDelimited(bufID, ev.payload)
		case evStartSubmessage, evEndSubmessage:
			wireType = wireBytes
		case evNonProto:
			if e.nonProtoID < 0 {
				e.nonProtoID = e.getOrCreateBuffer("$nonproto")
			}
			bufID = e.nonProtoID
			path = nil
			e.appendLengthDelimited(bufID, ev.payload)
		}

		kind := nodeKindFor(ev.kind)
		key := fmt.Sprintf("%d|%s|%d|%d", kind, pathKey(path, wireType), bufID, next)
		idx, ok := e.memo[key]
		if !ok {
			idx = len(e.nodes)
			e.nodes = append(e.nodes, node{
				kind:     kind,
				path:     path,
				wireType: wireType,
				bufferID: bufID,
				next:     next,
			})
			e.memo[key] = idx
		}
		next = idx
	}
	return next
}

func (e *TransposeEncoder) getOrCreateBuffer(key string) int {
	if id, ok := e.buffers[key]; ok {
		return id
	}
	id := len(e.bufferData)
	e.bufferData = append(e.bufferData, nil)
	e.buffers[key] = id
	return id
}

func (e *TransposeEncoder) appendLengthDelimited(bufID int, payload []byte) {
	var lenBuf [varint.MaxLen64]byte
	e.bufferData[bufID] = append(e.bufferData[bufID], varint.PutUint64(lenBuf[:0], uint64(len(payload)))...)
	e.bufferData[bufID] = append(e.bufferData[bufID], payload...)
}

func pathKey(path []uint32, wireType uint32) string {
	s := make([]byte, 0, len(path)*4+4)
	for _, f := range path {
		s = append(s, fmt.Sprintf("%d/", f)...)
	}
	s = append(s, fmt.Sprintf(":%d", wireType)...)
	return string(s)
}

// EncodeAndClose finalizes the chunk as described in the TransposeEncoder
// doc comment.
func (e *TransposeEncoder) EncodeAndClose(dst *EncodedChunk) error {
	if !e.Healthy() {
		return e.Err()
	}

	var header []byte
	var buf [varint.MaxLen64]byte
	header = append(header, varint.PutUint64(buf[:0], uint64(len(e.bufferData)))...)
	var plain []byte
	for _, b := range e.bufferData {
		header = append(header, varint.PutUint64(buf[:0], 0)...) // bucket_index
		header = append(header, varint.PutUint64(buf[:0], uint64(len(b)))...)
		plain = append(plain, b...)
	}
	header = append(header, varint.PutUint64(buf[:0], uint64(e.nonProtoID+1))...)

	header = append(header, varint.PutUint64(buf[:0], uint64(len(e.nodes)))...)
	for _, n := range e.nodes {
		header = append(header, byte(n.kind))
		header = append(header, varint.PutUint64(buf[:0], uint64(len(n.path)))...)
		for _, f := range n.path {
			header = append(header, varint.PutUint64(buf[:0], uint64(f))...)
		}
		header = append(header, varint.PutUint64(buf[:0], uint64(n.wireType))...)
		header = append(header, varint.PutUint64(buf[:0], uint64(n.bufferID+1))...)
		header = append(header, varint.PutUint64(buf[:0], uint64(n.next+1))...)
	}

	header = append(header, varint.PutUint64(buf[:0], uint64(len(e.recordStarts)))...)
	for _, s := range e.recordStarts {
		header = append(header, varint.PutUint64(buf[:0], uint64(s+1))...)
	}

	var out chain.Chain
	out.Append(header)
	out.Append([]byte{byte(e.opts.Compression.Algorithm)})

	bucketCompressor := compress.NewCompressor(e.opts.Compression, uint64(len(plain)))
	if _, err := bucketCompressor.Writer().Write(plain); err != nil {
		e.FailWith("transpose bucket", &bucketCompressor.Writer().Object)
		return e.Err()
	}
	if err := bucketCompressor.EncodeAndClose(&out); err != nil {
		e.Fail("%v", err)
		return e.Err()
	}

	dst.NumRecords = e.numRecords
	dst.DecodedDataSize = e.decodedDataSize
	dst.Data = out.Bytes()

	e.Close(nil)
	return e.Err()
}
