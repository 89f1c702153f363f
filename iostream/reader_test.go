package iostream

import (
	"bytes"
	"io"
	"testing"

	"github.com/dyu/riegeli/internal/chain"
)

func TestChainReaderReadAcrossBlocks(t *testing.T) {
	var c chain.Chain
	c.Append([]byte("abc"))
	c.Append(bytes.Repeat([]byte("d"), 600))

	r := NewChainReader(&c)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, c.Bytes()) {
		t.Fatalf("ReadAll mismatch")
	}
}

func TestChainReaderReadN(t *testing.T) {
	var c chain.Chain
	c.Append([]byte("hello world"))
	r := NewChainReader(&c)
	got, err := r.ReadN(5)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("ReadN(5) = %q", got)
	}
	rest, err := r.ReadN(6)
	if err != nil {
		t.Fatal(err)
	}
	if string(rest) != " world" {
		t.Fatalf("ReadN(6) = %q", rest)
	}
}

func TestChainReaderSeek(t *testing.T) {
	var c chain.Chain
	c.Append([]byte("abc"))
	c.Append(bytes.Repeat([]byte("d"), 600))

	r := NewChainReader(&c)
	if err := r.Seek(3); err != nil {
		t.Fatal(err)
	}
	b, err := r.ReadByte()
	if err != nil || b != 'd' {
		t.Fatalf("ReadByte() = (%q, %v), want ('d', nil)", b, err)
	}
	if r.Pos() != 4 {
		t.Fatalf("Pos() = %d, want 4", r.Pos())
	}
}

func TestChainReaderSeekOutOfRange(t *testing.T) {
	var c chain.Chain
	c.Append([]byte("abc"))
	r := NewChainReader(&c)
	if err := r.Seek(100); err == nil {
		t.Fatalf("expected Seek past the end to error")
	}
}

func TestChainReaderVarint(t *testing.T) {
	var c chain.Chain
	w := NewChainWriter(&c)
	if err := w.WriteVarint(987654321); err != nil {
		t.Fatal(err)
	}
	r := NewChainReader(&c)
	v, err := r.ReadVarint()
	if err != nil || v != 987654321 {
		t.Fatalf("ReadVarint() = (%d, %v), want (987654321, nil)", v, err)
	}
}

func TestIOReaderRead(t *testing.T) {
	src := bytes.NewReader([]byte("the quick brown fox"))
	r := NewIOReader(src)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "the quick brown fox" {
		t.Fatalf("ReadAll() = %q", got)
	}
}

func TestIOReaderReadByte(t *testing.T) {
	r := NewIOReader(bytes.NewReader([]byte("xy")))
	b, err := r.ReadByte()
	if err != nil || b != 'x' {
		t.Fatalf("ReadByte() = (%q, %v)", b, err)
	}
	b, err = r.ReadByte()
	if err != nil || b != 'y' {
		t.Fatalf("ReadByte() = (%q, %v)", b, err)
	}
	if _, err := r.ReadByte(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestIOReaderVarint(t *testing.T) {
	var buf bytes.Buffer
	w := NewIOWriter(&buf)
	if err := w.WriteVarint(42); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r := NewIOReader(&buf)
	v, err := r.ReadVarint()
	if err != nil || v != 42 {
		t.Fatalf("ReadVarint() = (%d, %v), want (42, nil)", v, err)
	}
}
