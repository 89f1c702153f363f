//go:build cgo

package compress

import (
	"github.com/DataDog/zstd"

	"github.com/cockroachdb/errors"
)

// zstdCompressor wraps DataDog/zstd (a cgo binding to the official
// facebook/zstd library) for builds where cgo is available, following
// pebble's zstd_cgo.go split.
type zstdCompressor struct {
	level int
	ctx   zstd.Ctx
}

func getZstdCompressor(opts Options) *zstdCompressor {
	return &zstdCompressor{level: opts.Level, ctx: zstd.NewCtx()}
}

func (z *zstdCompressor) Compress(src []byte) []byte {
	bound := zstd.CompressBound(len(src))
	out, err := z.ctx.CompressLevel(make([]byte, 0, bound), src, z.level)
	if err != nil {
		panic(errors.Wrapf(err, "riegeli: zstd compression failed"))
	}
	return out
}

func (z *zstdCompressor) Close() {}

type zstdDecompressor struct {
	ctx zstd.Ctx
}

func getZstdDecompressor() *zstdDecompressor {
	return &zstdDecompressor{ctx: zstd.NewCtx()}
}

func (z *zstdDecompressor) DecompressInto(dst, src []byte) error {
	if len(src) == 0 {
		return errors.Newf("riegeli: zstd decompression of empty input")
	}
	if _, err := z.ctx.DecompressInto(dst, src); err != nil {
		return errors.Wrapf(err, "riegeli: zstd decompression failed")
	}
	return nil
}

func (z *zstdDecompressor) Close() {}
