package iostream

import (
	"github.com/dyu/riegeli/internal/base"
	"github.com/dyu/riegeli/internal/chain"
	"github.com/dyu/riegeli/internal/varint"
)

// BackwardWriter is a byte sink where each Write call's bytes end up
// immediately before, not after, the bytes written by the previous call —
// used by the transpose decoder to assemble a length-delimited submessage
// once its length becomes known only after encoding its body (spec §4.2,
// grounded on riegeli/bytes/backward_writer.h).
//
// chain.Chain.Prepend already implements exactly that "most recently
// written content ends up first" ordering, so BackwardWriter is a thin
// Object-lifecycle wrapper around a Chain rather than a reimplementation
// of riegeli's own start/cursor/limit pointer arithmetic, which Go has no
// idiomatic equivalent for.
type BackwardWriter struct {
	base.Object
	dest *chain.Chain
}

// NewBackwardWriter returns a BackwardWriter that prepends into dest.
func NewBackwardWriter(dest *chain.Chain) *BackwardWriter {
	return &BackwardWriter{dest: dest}
}

// Write prepends p so that it immediately precedes whatever was written
// (via Write or WriteChain) in the most recent previous call.
func (w *BackwardWriter) Write(p []byte) (int, error) {
	if !w.Healthy() {
		return 0, w.Err()
	}
	if checkPosOverflow(w.Pos(), int64(len(p))) {
		w.Fail("%v", base.LimitErrorf("writer position overflow"))
		return 0, w.Err()
	}
	w.dest.Prepend(p)
	return len(p), nil
}

func (w *BackwardWriter) WriteByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// WriteVarint prepends v LEB128-encoded.
func (w *BackwardWriter) WriteVarint(v uint64) error {
	var buf [varint.MaxLen64]byte
	enc := varint.PutUint64(buf[:0], v)
	_, err := w.Write(enc)
	return err
}

// WriteChain prepends the contents of c as a unit, sharing its blocks.
func (w *BackwardWriter) WriteChain(c *chain.Chain) error {
	if !w.Healthy() {
		return w.Err()
	}
	if checkPosOverflow(w.Pos(), int64(c.Size())) {
		w.Fail("%v", base.LimitErrorf("writer position overflow"))
		return w.Err()
	}
	w.dest.PrependChain(c)
	return nil
}

// Pos returns the number of bytes written so far (equivalently, the
// current size of dest).
func (w *BackwardWriter) Pos() int64 { return int64(w.dest.Size()) }

func (w *BackwardWriter) Close() error {
	w.Object.Close(nil)
	return w.Err()
}
