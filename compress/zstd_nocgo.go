//go:build !cgo

package compress

import (
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// zstdCompressor wraps klauspost/compress/zstd, the pure-Go zstd used
// whenever cgo is unavailable, following pebble's zstd_nocgo.go split.
type zstdCompressor struct {
	level zstd.EncoderLevel
}

func getZstdCompressor(opts Options) *zstdCompressor {
	return &zstdCompressor{level: zstd.EncoderLevelFromZstd(opts.Level)}
}

func (z *zstdCompressor) Compress(src []byte) []byte {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(z.level))
	if err != nil {
		panic(errors.Wrapf(err, "riegeli: zstd compression failed"))
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil)
}

func (z *zstdCompressor) Close() {}

type zstdDecompressor struct{}

func getZstdDecompressor() *zstdDecompressor { return &zstdDecompressor{} }

func (z *zstdDecompressor) DecompressInto(dst, src []byte) error {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return errors.Wrapf(err, "riegeli: zstd decompression failed")
	}
	defer dec.Close()
	result, err := dec.DecodeAll(src, dst[:0])
	if err != nil {
		return errors.Wrapf(err, "riegeli: zstd decompression failed")
	}
	if len(result) != len(dst) {
		return errors.Newf("riegeli: zstd decompression produced %d bytes, want %d", len(result), len(dst))
	}
	return nil
}

func (z *zstdDecompressor) Close() {}
