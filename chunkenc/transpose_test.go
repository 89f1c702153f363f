package chunkenc

import (
	"bytes"
	"testing"

	"github.com/dyu/riegeli/internal/varint"
)

// fieldWriter is a tiny helper assembling protobuf wire bytes by hand, so
// tests don't need a real generated message type.
type fieldWriter struct {
	buf []byte
}

func (w *fieldWriter) tag(field uint32, wireType uint32) {
	w.buf = varint.PutUint64(w.buf, uint64(field)<<3|uint64(wireType))
}

func (w *fieldWriter) varint(field uint32, v uint64) {
	w.tag(field, 0)
	w.buf = varint.PutUint64(w.buf, v)
}

func (w *fieldWriter) bytes(field uint32, v []byte) {
	w.tag(field, 2)
	w.buf = varint.PutUint64(w.buf, uint64(len(v)))
	w.buf = append(w.buf, v...)
}

func (w *fieldWriter) submessage(field uint32, body []byte) {
	w.bytes(field, body)
}

func (w *fieldWriter) fixed32(field uint32, v uint32) {
	w.tag(field, 5)
	var b [4]byte
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	w.buf = append(w.buf, b[:]...)
}

func (w *fieldWriter) fixed64(field uint32, v uint64) {
	w.tag(field, 1)
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	w.buf = append(w.buf, b[:]...)
}

func encodeDecodeTranspose(t *testing.T, records [][]byte, opts DecoderOptions) [][]byte {
	t.Helper()
	enc := NewTransposeEncoder(EncoderOptions{})
	for _, r := range records {
		if err := enc.AddRecord(r); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}
	var chunk EncodedChunk
	if err := enc.EncodeAndClose(&chunk); err != nil {
		t.Fatalf("EncodeAndClose: %v", err)
	}
	dec := NewTransposeDecoder()
	if err := dec.Reset(chunk.Data, chunk.NumRecords, chunk.DecodedDataSize, opts); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	var out [][]byte
	for {
		rec, ok, err := dec.ReadRecord()
		if err != nil {
			t.Fatalf("ReadRecord: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, rec)
	}
	return out
}

func TestTransposeRoundTripFlatFields(t *testing.T) {
	var w1, w2 fieldWriter
	w1.varint(1, 42)
	w1.bytes(2, []byte("hello"))
	w2.varint(1, 43)
	w2.bytes(2, []byte("world"))

	records := [][]byte{w1.buf, w2.buf}
	got := encodeDecodeTranspose(t, records, DecoderOptions{FieldFilter: All()})
	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d", len(got), len(records))
	}
	for i := range records {
		if !bytes.Equal(got[i], records[i]) {
			t.Fatalf("record %d = %x, want %x", i, got[i], records[i])
		}
	}
}

func TestTransposeRoundTripNestedSubmessage(t *testing.T) {
	var inner fieldWriter
	inner.varint(1, 7)
	inner.fixed32(2, 0xdeadbeef)

	var outer fieldWriter
	outer.varint(1, 99)
	outer.submessage(2, inner.buf)
	outer.fixed64(3, 0x0102030405060708)

	got := encodeDecodeTranspose(t, [][]byte{outer.buf}, DecoderOptions{FieldFilter: All()})
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if !bytes.Equal(got[0], outer.buf) {
		t.Fatalf("record = %x, want %x", got[0], outer.buf)
	}
}

func TestTransposeRoundTripMixedShapes(t *testing.T) {
	var w1 fieldWriter
	w1.varint(1, 1)

	var w2 fieldWriter
	w2.varint(1, 2)
	w2.bytes(2, []byte("extra"))

	var w3 fieldWriter
	w3.varint(1, 3)

	records := [][]byte{w1.buf, w2.buf, w3.buf}
	got := encodeDecodeTranspose(t, records, DecoderOptions{FieldFilter: All()})
	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d", len(got), len(records))
	}
	for i := range records {
		if !bytes.Equal(got[i], records[i]) {
			t.Fatalf("record %d = %x, want %x", i, got[i], records[i])
		}
	}
}

func TestTransposeRoundTripNonProto(t *testing.T) {
	// Every byte has its continuation bit set, so the tag varint never
	// terminates and this is invalid wire format.
	garbage := []byte{0xff, 0xff, 0xff}
	got := encodeDecodeTranspose(t, [][]byte{garbage}, DecoderOptions{FieldFilter: All()})
	if len(got) != 1 || !bytes.Equal(got[0], garbage) {
		t.Fatalf("got %x, want %x", got, garbage)
	}
}

func TestTransposeFieldFilterElidesSubmessage(t *testing.T) {
	var inner fieldWriter
	inner.varint(1, 5)

	var outer fieldWriter
	outer.bytes(1, []byte("keep me"))
	outer.submessage(2, inner.buf)

	filter := New([]uint32{1})
	got := encodeDecodeTranspose(t, [][]byte{outer.buf}, DecoderOptions{FieldFilter: filter})
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}

	var want fieldWriter
	want.bytes(1, []byte("keep me"))
	if !bytes.Equal(got[0], want.buf) {
		t.Fatalf("filtered record = %x, want %x", got[0], want.buf)
	}
}

func TestTransposeFieldFilterKeepsNestedField(t *testing.T) {
	var inner fieldWriter
	inner.varint(1, 5)
	inner.varint(2, 6)

	var outer fieldWriter
	outer.submessage(1, inner.buf)

	filter := New([]uint32{1, 2})
	got := encodeDecodeTranspose(t, [][]byte{outer.buf}, DecoderOptions{FieldFilter: filter})
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}

	var wantInner fieldWriter
	wantInner.varint(2, 6)
	var want fieldWriter
	want.submessage(1, wantInner.buf)
	if !bytes.Equal(got[0], want.buf) {
		t.Fatalf("filtered record = %x, want %x", got[0], want.buf)
	}
}

func TestTransposeFieldFilterNoneExcludesEverything(t *testing.T) {
	var w fieldWriter
	w.varint(1, 1)
	w.bytes(2, []byte("x"))

	got := encodeDecodeTranspose(t, [][]byte{w.buf}, DecoderOptions{FieldFilter: None()})
	if len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("got %x, want an empty record", got)
	}
}

func TestTransposeAddRecordsMatchesAddRecord(t *testing.T) {
	var w1, w2 fieldWriter
	w1.varint(1, 1)
	w2.varint(1, 2)
	records := append(append([]byte{}, w1.buf...), w2.buf...)
	limits := []int{len(w1.buf), len(w1.buf) + len(w2.buf)}

	enc := NewTransposeEncoder(EncoderOptions{})
	if err := enc.AddRecords(records, limits); err != nil {
		t.Fatalf("AddRecords: %v", err)
	}
	if enc.NumRecords() != 2 {
		t.Fatalf("NumRecords() = %d, want 2", enc.NumRecords())
	}
	var chunk EncodedChunk
	if err := enc.EncodeAndClose(&chunk); err != nil {
		t.Fatalf("EncodeAndClose: %v", err)
	}
	dec := NewTransposeDecoder()
	if err := dec.Reset(chunk.Data, chunk.NumRecords, chunk.DecodedDataSize, DecoderOptions{FieldFilter: All()}); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	rec, ok, err := dec.ReadRecord()
	if err != nil || !ok || !bytes.Equal(rec, w1.buf) {
		t.Fatalf("first record = %x, ok=%v, err=%v, want %x", rec, ok, err, w1.buf)
	}
	rec, ok, err = dec.ReadRecord()
	if err != nil || !ok || !bytes.Equal(rec, w2.buf) {
		t.Fatalf("second record = %x, ok=%v, err=%v, want %x", rec, ok, err, w2.buf)
	}
}

func TestTransposeSetIndex(t *testing.T) {
	var w1, w2, w3 fieldWriter
	w1.varint(1, 1)
	w2.varint(1, 2)
	w3.varint(1, 3)
	records := [][]byte{w1.buf, w2.buf, w3.buf}

	enc := NewTransposeEncoder(EncoderOptions{})
	for _, r := range records {
		if err := enc.AddRecord(r); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}
	var chunk EncodedChunk
	if err := enc.EncodeAndClose(&chunk); err != nil {
		t.Fatalf("EncodeAndClose: %v", err)
	}
	dec := NewTransposeDecoder()
	if err := dec.Reset(chunk.Data, chunk.NumRecords, chunk.DecodedDataSize, DecoderOptions{FieldFilter: All()}); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	dec.SetIndex(2)
	rec, ok, err := dec.ReadRecord()
	if err != nil || !ok || !bytes.Equal(rec, w3.buf) {
		t.Fatalf("record at index 2 = %x, ok=%v, err=%v, want %x", rec, ok, err, w3.buf)
	}
	if _, ok, _ := dec.ReadRecord(); ok {
		t.Fatalf("expected no more records")
	}
}

func TestCheckNoImplicitLoopRejectsCycle(t *testing.T) {
	nodes := []node{
		{kind: nodeStartSubmessage, path: []uint32{1}, next: 1},
		{kind: nodeEndSubmessage, path: []uint32{1}, next: 0},
	}
	if err := checkNoImplicitLoop(nodes); err == nil {
		t.Fatalf("expected a purely structural cycle to be rejected")
	}
}

func TestCheckNoImplicitLoopAllowsDataConsumingCycleBreak(t *testing.T) {
	nodes := []node{
		{kind: nodeStartSubmessage, path: []uint32{1}, next: 1},
		{kind: nodeCopyTagAndVarint, path: []uint32{1, 2}, bufferID: 0, next: 2},
		{kind: nodeEndSubmessage, path: []uint32{1}, next: 3},
		{kind: nodeEndOfRecord, next: -1},
	}
	if err := checkNoImplicitLoop(nodes); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
}
