package iostream

import (
	"bytes"
	"math"
	"testing"

	"github.com/dyu/riegeli/internal/chain"
)

func TestBackwardWriterPrependsInOrder(t *testing.T) {
	var c chain.Chain
	w := NewBackwardWriter(&c)
	// Writing "world" then "hello " should leave "hello world", since each
	// call's bytes precede the previous call's bytes.
	if _, err := w.Write([]byte("world")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("hello ")); err != nil {
		t.Fatal(err)
	}
	if got, want := c.Bytes(), []byte("hello world"); !bytes.Equal(got, want) {
		t.Fatalf("Bytes() = %q, want %q", got, want)
	}
}

func TestBackwardWriterPos(t *testing.T) {
	var c chain.Chain
	w := NewBackwardWriter(&c)
	w.Write([]byte("abc"))
	if w.Pos() != 3 {
		t.Fatalf("Pos() = %d, want 3", w.Pos())
	}
}

func TestBackwardWriterWriteVarintPrepends(t *testing.T) {
	var c chain.Chain
	w := NewBackwardWriter(&c)
	if _, err := w.Write([]byte("body")); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteVarint(4); err != nil {
		t.Fatal(err)
	}
	got := c.Bytes()
	if got[0] != 4 || string(got[1:]) != "body" {
		t.Fatalf("Bytes() = %v, want length-prefixed body", got)
	}
}

func TestBackwardWriterFailed(t *testing.T) {
	var c chain.Chain
	w := NewBackwardWriter(&c)
	w.Fail("boom")
	if _, err := w.Write([]byte("x")); err == nil {
		t.Fatalf("expected write after Fail to error")
	}
}

func TestCheckPosOverflow(t *testing.T) {
	if checkPosOverflow(10, 5) {
		t.Fatalf("expected 10+5 not to overflow")
	}
	if !checkPosOverflow(math.MaxInt64-1, 2) {
		t.Fatalf("expected MaxInt64-1+2 to overflow")
	}
}
