// Package iostream implements the forward Writer, backward-prepending
// BackwardWriter, and Reader byte-stream abstractions the simple and
// transpose codecs are built on (spec §4.2), plus the Chain-backed and
// io.Reader/io.Writer-backed implementations of each.
//
// Every implementation here embeds internal/base.Object for healthy/
// closed/failed bookkeeping. There is no virtual-dispatch fast path as in
// the original riegeli C++ (which uses raw start/cursor/limit pointers so
// that the common case of Write/Read never leaves inline code). In the Go
// translation only IOWriter and IOReader keep a private []byte buffer,
// tracked by offsets into it; ChainWriter, ChainReader and BackwardWriter
// operate on their Chain directly.
package iostream

import (
	"io"
	"math"

	"github.com/dyu/riegeli/internal/base"
	"github.com/dyu/riegeli/internal/chain"
	"github.com/dyu/riegeli/internal/varint"
)

// checkPosOverflow reports whether advancing pos by n would exceed the
// representable maximum position (spec §4.2 FailOverflow).
func checkPosOverflow(pos int64, n int64) bool {
	return n > math.MaxInt64-pos
}

// Writer is a forward byte sink. Implementations buffer internally as
// needed; Pos reports the number of bytes successfully written since
// construction.
type Writer interface {
	io.Writer
	io.ByteWriter
	// WriteChain appends the contents of c, sharing its blocks where the
	// destination supports it instead of copying.
	WriteChain(c *chain.Chain) error
	// WriteVarint writes v LEB128-encoded.
	WriteVarint(v uint64) error
	Pos() int64
	Healthy() bool
	Close() error
}

// ChainWriter is a Writer whose destination is a Chain held in memory. It
// is used for the sizes and values streams while encoding a chunk, before
// those streams are compressed into the final destination — the Go
// counterpart of riegeli/bytes/chain_writer.h, used the same way in
// simple_encoder.cc's `ChainWriter compressed_sizes_writer(&compressed_sizes)`.
type ChainWriter struct {
	base.Object
	dest *chain.Chain
	pos  int64
}

// NewChainWriter returns a Writer that appends to dest.
func NewChainWriter(dest *chain.Chain) *ChainWriter {
	return &ChainWriter{dest: dest}
}

func (w *ChainWriter) Write(p []byte) (int, error) {
	if !w.Healthy() {
		return 0, w.Err()
	}
	if checkPosOverflow(w.pos, int64(len(p))) {
		w.Fail("%v", base.LimitErrorf("writer position overflow"))
		return 0, w.Err()
	}
	w.dest.Append(p)
	w.pos += int64(len(p))
	return len(p), nil
}

func (w *ChainWriter) WriteByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func (w *ChainWriter) WriteVarint(v uint64) error {
	var buf [varint.MaxLen64]byte
	enc := varint.PutUint64(buf[:0], v)
	_, err := w.Write(enc)
	return err
}

func (w *ChainWriter) WriteChain(c *chain.Chain) error {
	if !w.Healthy() {
		return w.Err()
	}
	if checkPosOverflow(w.pos, int64(c.Size())) {
		w.Fail("%v", base.LimitErrorf("writer position overflow"))
		return w.Err()
	}
	w.dest.AppendChain(c)
	w.pos += int64(c.Size())
	return nil
}

func (w *ChainWriter) Pos() int64 { return w.pos }

func (w *ChainWriter) Close() error {
	w.Object.Close(nil)
	return w.Err()
}

// IOWriter is a Writer whose destination is an underlying io.Writer. It
// buffers writes below ioWriterBufferSize so that small writes (varints,
// chunk header fields) do not each become a separate syscall-bearing
// io.Writer.Write call.
type IOWriter struct {
	base.Object
	dest  io.Writer
	buf   []byte
	used  int
	pos   int64
}

const ioWriterBufferSize = 64 << 10

// NewIOWriter returns a Writer that flushes into dest.
func NewIOWriter(dest io.Writer) *IOWriter {
	return &IOWriter{dest: dest, buf: make([]byte, ioWriterBufferSize)}
}

func (w *IOWriter) flush() error {
	if w.used == 0 {
		return nil
	}
	n, err := w.dest.Write(w.buf[:w.used])
	w.pos += int64(n)
	w.used = 0
	if err != nil {
		w.Fail("%v", err)
		return w.Err()
	}
	return nil
}

func (w *IOWriter) Write(p []byte) (int, error) {
	if !w.Healthy() {
		return 0, w.Err()
	}
	if checkPosOverflow(w.Pos(), int64(len(p))) {
		w.Fail("%v", base.LimitErrorf("writer position overflow"))
		return 0, w.Err()
	}
	total := len(p)
	for len(p) > 0 {
		if w.used == len(w.buf) {
			if err := w.flush(); err != nil {
				return total - len(p), err
			}
		}
		if len(p) >= len(w.buf) && w.used == 0 {
			// Large write: bypass the buffer entirely.
			n, err := w.dest.Write(p)
			w.pos += int64(n)
			if err != nil {
				w.Fail("%v", err)
				return total - len(p) + n, w.Err()
			}
			p = p[n:]
			continue
		}
		n := copy(w.buf[w.used:], p)
		w.used += n
		p = p[n:]
	}
	return total, nil
}

func (w *IOWriter) WriteByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func (w *IOWriter) WriteVarint(v uint64) error {
	var buf [varint.MaxLen64]byte
	enc := varint.PutUint64(buf[:0], v)
	_, err := w.Write(enc)
	return err
}

func (w *IOWriter) WriteChain(c *chain.Chain) error {
	var err error
	c.Blocks(func(p []byte) {
		if err != nil {
			return
		}
		_, err = w.Write(p)
	})
	return err
}

func (w *IOWriter) Pos() int64 { return w.pos + int64(w.used) }

func (w *IOWriter) Close() error {
	w.Object.Close(func() { _ = w.flush() })
	return w.Err()
}
