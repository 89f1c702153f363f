package compress

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/cockroachdb/errors"
)

// brotliCompressor wraps andybalholm/brotli's streaming Writer behind the
// one-shot Compress/Close algorithmCompressor interface, the same
// one-shot-over-streaming adaptation pebble's zstd_nocgo.go applies to
// klauspost/compress/zstd's Encoder.
type brotliCompressor struct {
	opts Options
}

func newBrotliCompressor(opts Options) *brotliCompressor {
	return &brotliCompressor{opts: opts}
}

func (b *brotliCompressor) Compress(src []byte) []byte {
	var out bytes.Buffer
	w := brotli.NewWriterOptions(&out, brotli.WriterOptions{
		Quality: b.opts.Level,
		LGWin:   brotliLGWin(b.opts.effectiveWindowLog()),
	})
	if _, err := w.Write(src); err != nil {
		panic(errors.Wrapf(err, "riegeli: brotli compression failed"))
	}
	if err := w.Close(); err != nil {
		panic(errors.Wrapf(err, "riegeli: brotli compression failed"))
	}
	return out.Bytes()
}

func (b *brotliCompressor) Close() {}

// brotliLGWin clamps a riegeli window_log into andybalholm/brotli's
// supported LGWin range (10..24); DefaultWindowLog (-1) becomes 0, which
// the library treats as its own default.
func brotliLGWin(windowLog int) int {
	if windowLog == DefaultWindowLog {
		return 0
	}
	if windowLog > 24 {
		return 24
	}
	return windowLog
}

type brotliDecompressor struct{}

func newBrotliDecompressor() *brotliDecompressor { return &brotliDecompressor{} }

func (brotliDecompressor) DecompressInto(dst, src []byte) error {
	r := brotli.NewReader(bytes.NewReader(src))
	n, err := io.ReadFull(r, dst)
	if err != nil && err != io.ErrUnexpectedEOF {
		return errors.Wrapf(err, "riegeli: brotli decompression failed")
	}
	if n != len(dst) {
		return errors.Newf("riegeli: brotli decompression produced %d bytes, want %d", n, len(dst))
	}
	return nil
}

func (brotliDecompressor) Close() {}
