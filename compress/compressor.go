package compress

import (
	"github.com/cockroachdb/errors"

	"github.com/dyu/riegeli/internal/chain"
	"github.com/dyu/riegeli/internal/varint"
	"github.com/dyu/riegeli/iostream"
)

// Compressor is a write-side stream that accumulates uncompressed bytes
// and, on EncodeAndClose, produces the compressed representation. It
// presents a single writer interface regardless of algorithm, matching
// pebble's sstable/block Compressor facade generalized from per-block
// compression to whole chunk streams (spec §4.3).
type Compressor struct {
	opts     Options
	sizeHint uint64
	buf      chain.Chain
	writer   *iostream.ChainWriter
}

// NewCompressor returns a Compressor configured by opts. sizeHint is the
// expected uncompressed size; it is stored on the Compressor, but no
// compression backend reads it, so it does not influence the Zstd window
// or any other setting.
func NewCompressor(opts Options, sizeHint uint64) *Compressor {
	c := &Compressor{opts: opts, sizeHint: sizeHint}
	c.writer = iostream.NewChainWriter(&c.buf)
	return c
}

// Writer returns the stream that uncompressed bytes should be written to.
func (c *Compressor) Writer() *iostream.ChainWriter { return c.writer }

// Reset discards any bytes written so far, returning the Compressor to
// empty so it can be reused for the next stream.
func (c *Compressor) Reset() {
	c.buf.Clear()
	c.writer = iostream.NewChainWriter(&c.buf)
}

// EncodeAndClose compresses the accumulated bytes and appends the result
// to dst. Algorithm None is a passthrough with no framing at all; Brotli
// and Zstd each prefix their compressed payload with varint(uncompressed
// length) so the decoder can size its destination buffer up front.
func (c *Compressor) EncodeAndClose(dst *chain.Chain) error {
	if err := c.writer.Close(); err != nil {
		return err
	}
	switch c.opts.Algorithm {
	case None:
		dst.AppendChain(&c.buf)
		return nil
	case Brotli:
		return c.encodeWith(dst, newBrotliCompressor(c.opts))
	case Zstd:
		return c.encodeWith(dst, getZstdCompressor(c.opts))
	default:
		return errors.AssertionFailedf("riegeli: unknown compression algorithm %v", c.opts.Algorithm)
	}
}

func (c *Compressor) encodeWith(dst *chain.Chain, alg algorithmCompressor) error {
	defer alg.Close()
	src := c.buf.Bytes()
	var lenBuf [varint.MaxLen64]byte
	dst.Append(varint.PutUint64(lenBuf[:0], uint64(len(src))))
	out := alg.Compress(src)
	dst.AppendOwned(out)
	return nil
}

// algorithmCompressor is the minimal per-algorithm interface EncodeAndClose
// drives; Compress returns a freshly allocated compressed buffer.
type algorithmCompressor interface {
	Compress(src []byte) []byte
	Close()
}

// Decompressor reverses Compressor for a single algorithm tag.
type Decompressor struct {
	algorithm Algorithm
}

// NewDecompressor returns a Decompressor for the given algorithm, as
// recorded by the chunk header's compression-type byte.
func NewDecompressor(algorithm Algorithm) *Decompressor {
	return &Decompressor{algorithm: algorithm}
}

// Decompress decompresses src (as produced by Compressor.EncodeAndClose)
// into a freshly allocated buffer.
func (d *Decompressor) Decompress(src []byte) ([]byte, error) {
	switch d.algorithm {
	case None:
		return append([]byte(nil), src...), nil
	case Brotli:
		return decompressWith(src, newBrotliDecompressor())
	case Zstd:
		return decompressWith(src, getZstdDecompressor())
	default:
		return nil, errors.AssertionFailedf("riegeli: unknown compression algorithm %v", d.algorithm)
	}
}

type algorithmDecompressor interface {
	DecompressInto(dst, src []byte) error
	Close()
}

func decompressWith(src []byte, alg algorithmDecompressor) ([]byte, error) {
	defer alg.Close()
	n, prefixLen := varint.Uint64(src)
	if prefixLen <= 0 {
		return nil, errors.Newf("riegeli: compressed stream has invalid length prefix")
	}
	dst := make([]byte, n)
	if err := alg.DecompressInto(dst, src[prefixLen:]); err != nil {
		return nil, err
	}
	return dst, nil
}
