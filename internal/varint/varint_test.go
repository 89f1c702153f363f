package varint

import (
	"bytes"
	"testing"
)

func TestRoundTrip64(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 32, ^uint64(0)}
	for _, v := range cases {
		enc := PutUint64(nil, v)
		got, n := Uint64(enc)
		if n != len(enc) || got != v {
			t.Fatalf("PutUint64/Uint64(%d): got (%d, %d), want (%d, %d)", v, got, n, v, len(enc))
		}
	}
}

func TestUint32Overflow(t *testing.T) {
	enc := PutUint64(nil, uint64(^uint32(0))+1)
	if _, n := Uint32(enc); n != 0 {
		t.Fatalf("Uint32 should reject a value that overflows uint32")
	}
}

func TestReadUint64(t *testing.T) {
	enc := PutUint64(nil, 12345)
	v, err := ReadUint64(bytes.NewReader(enc))
	if err != nil || v != 12345 {
		t.Fatalf("ReadUint64() = (%d, %v), want (12345, nil)", v, err)
	}
}

func TestReadUint64Truncated(t *testing.T) {
	enc := PutUint64(nil, uint64(1)<<40)
	_, err := ReadUint64(bytes.NewReader(enc[:1]))
	if err == nil {
		t.Fatalf("expected an error decoding a truncated varint")
	}
}
