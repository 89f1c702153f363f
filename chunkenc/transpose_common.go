package chunkenc

import "github.com/dyu/riegeli/internal/varint"

// nodeKind is the transpose state machine's callback type (spec §4.6's
// callback table): what the decoder does when it reaches a node.
type nodeKind uint8

const (
	// nodeCopyTagAndVarint copies a self-delimiting varint value from a
	// buffer, then prepends the field's tag.
	nodeCopyTagAndVarint nodeKind = iota
	// nodeCopyTagAndFixed copies a fixed-width (4 or 8 byte) value from a
	// buffer, then prepends the field's tag.
	nodeCopyTagAndFixed
	// nodeCopyTagAndBytes copies a length-prefixed value from a buffer
	// (the length prefix is already part of the stored bytes), then
	// prepends the field's tag.
	nodeCopyTagAndBytes
	// nodeStartSubmessage pushes the current writer position and the
	// field's tag onto the submessage stack.
	nodeStartSubmessage
	// nodeEndSubmessage pops the submessage stack and prepends
	// tag | varint(body length).
	nodeEndSubmessage
	// nodeNonProtoRecord copies a whole record's raw bytes verbatim; used
	// when a record does not parse as a protobuf message.
	nodeNonProtoRecord
	// nodeEndOfRecord terminates traversal for the current record.
	nodeEndOfRecord
)

// node is one entry in the flat, shared state-machine graph. Nodes are
// hash-consed by (kind, path, wireType, bufferID, next) so that records
// sharing a common leading prefix of field events converge onto the same
// chain of nodes (spec §3 "Transpose state machine": nodes are shared across
// records when structurally identical). path is the chain of field
// numbers from the record root down to and including this node's own
// field (empty for NonProtoRecord/EndOfRecord, which are not subject to
// field filtering); it doubles as the node's position in the field tree
// for computing suppressed, which is filled in only on the decode side,
// once a field filter is known. The encoder leaves suppressed false
// throughout.
type node struct {
	kind       nodeKind
	path       []uint32
	wireType   uint32
	bufferID   int
	next       int
	suppressed bool
}

const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

// fieldNumber returns the field this node pertains to, or 0 for the
// path-less NonProtoRecord/EndOfRecord kinds.
func (n node) fieldNumber() uint32 {
	if len(n.path) == 0 {
		return 0
	}
	return n.path[len(n.path)-1]
}

// tag returns the varint-encoded protobuf tag byte sequence for n.
func (n node) tag() []byte {
	return varint.PutUint64(nil, uint64(n.fieldNumber())<<3|uint64(n.wireType))
}

// eventKind classifies one parsed wire-format occurrence within a record,
// the unit the transpose encoder routes into columns and nodes.
type eventKind uint8

const (
	evVarintField eventKind = iota
	evFixed64Field
	evFixed32Field
	evLeafBytesField
	evStartSubmessage
	evEndSubmessage
	evNonProto
)

// event is one step of a record's flattened parse, produced by
// parseMessage and consumed by (*TransposeEncoder).buildChain.
type event struct {
	kind        eventKind
	fieldNumber uint32
	payload     []byte
}

func nodeKindFor(k eventKind) nodeKind {
	switch k {
	case evVarintField:
		return nodeCopyTagAndVarint
	case evFixed64Field, evFixed32Field:
		return nodeCopyTagAndFixed
	case evLeafBytesField:
		return nodeCopyTagAndBytes
	case evStartSubmessage:
		return nodeStartSubmessage
	case evEndSubmessage:
		return nodeEndSubmessage
	case evNonProto:
		return nodeNonProtoRecord
	default:
		return nodeEndOfRecord
	}
}

// maxSubmessageDepth bounds the encoder's greedy recursive-descent parse
// of length-delimited fields as nested submessages, so that adversarial
// or merely deeply-nested input cannot grow the parse stack unboundedly.
const maxSubmessageDepth = 100

// parseMessage attempts to parse data as a flat sequence of protobuf wire
// events, recursing into length-delimited fields whose contents also
// parse cleanly as a nested message. It is a heuristic, not a schema-
// driven parse: a length-delimited field is treated as a submessage
// whenever its bytes happen to parse as one, and as an opaque leaf
// otherwise. This is safe for round-tripping (decode replay never parses:
// it re-emits tags and lengths from the node graph and copies the stored
// bytes, and tags and lengths not in minimal varint form are rejected
// here so that re-emitting them reproduces the input) even though it does
// not claim to match any particular schema's intended structure.
func parseMessage(data []byte, depth int) ([]event, bool) {
	var events []event
	pos := 0
	for pos < len(data) {
		tag, n := varint.Uint32(data[pos:])
		if n <= 0 || n != len(varint.PutUint32(nil, tag)) {
			return nil, false
		}
		pos += n
		fieldNumber := tag >> 3
		wireType := tag & 7
		if fieldNumber == 0 {
			return nil, false
		}
		switch wireType {
		case wireVarint:
			_, m := varint.Uint64(data[pos:])
			if m <= 0 {
				return nil, false
			}
			events = append(events, event{kind: evVarintField, fieldNumber: fieldNumber, payload: data[pos : pos+m]})
			pos += m
		case wireFixed64:
			if pos+8 > len(data) {
				return nil, false
			}
			events = append(events, event{kind: evFixed64Field, fieldNumber: fieldNumber, payload: data[pos : pos+8]})
			pos += 8
		case wireFixed32:
			if pos+4 > len(data) {
				return nil, false
			}
			events = append(events, event{kind: evFixed32Field, fieldNumber: fieldNumber, payload: data[pos : pos+4]})
			pos += 4
		case wireBytes:
			length, m := varint.Uint64(data[pos:])
			if m <= 0 || m != len(varint.PutUint64(nil, length)) {
				return nil, false
			}
			pos += m
			if length > uint64(len(data)-pos) {
				return nil, false
			}
			body := data[pos : pos+int(length)]
			pos += int(length)
			if depth < maxSubmessageDepth {
				if subEvents, ok := parseMessage(body, depth+1); ok {
					events = append(events, event{kind: evStartSubmessage, fieldNumber: fieldNumber})
					events = append(events, subEvents...)
					events = append(events, event{kind: evEndSubmessage, fieldNumber: fieldNumber})
					continue
				}
			}
			events = append(events, event{kind: evLeafBytesField, fieldNumber: fieldNumber, payload: body})
		default:
			return nil, false
		}
	}
	return events, true
}
