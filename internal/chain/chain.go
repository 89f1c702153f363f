// Package chain implements Chain, a non-contiguous byte buffer built from a
// sequence of reference-counted blocks plus small mutable head/tail blocks,
// used throughout the chunk encoding core so that appending compressed
// buckets, prepending reassembled records, and slicing decoded streams never
// requires copying already-written data (spec §4.1).
//
// There is no analogous type in the teacher's own source (pebble operates on
// flat []byte block buffers backed by sync.Pool, see sstable/block's
// Buffer), so Chain's block-growth policy is grounded on
// sstable/block/compression.go's Buffer.Append (double-until-big-enough
// growth) and its reference counting is grounded on
// internal/cache/refcnt_normal.go's atomic refcnt.
package chain

import "sync/atomic"

// maxBytesToCopy is the write size at or above which Append and Prepend
// place the bytes in a block of their own; shorter writes are copied into
// the current mutable block. This keeps the average block count low for
// small, frequent writes while keeping large payloads out of the small
// mutable block (spec §4.1).
const maxBytesToCopy = 511

// refcnt is an atomic reference count, one per block, shared by every Chain
// that holds a pointer to that block.
type refcnt int32

func (r *refcnt) init(n int32)    { atomic.StoreInt32((*int32)(r), n) }
func (r *refcnt) value() int32    { return atomic.LoadInt32((*int32)(r)) }
func (r *refcnt) acquire()        { atomic.AddInt32((*int32)(r), 1) }
func (r *refcnt) release() bool   { return atomic.AddInt32((*int32)(r), -1) == 0 }
func (r *refcnt) unique() bool    { return r.value() == 1 }

// block is one contiguous byte range of a Chain. A block is either shared
// (refs held by more than one Chain, immutable) or uniquely owned (may be
// grown in place by the Chain that holds it).
type block struct {
	buf  []byte
	refs refcnt
}

func newBlock(capacity int) *block {
	b := &block{buf: make([]byte, 0, capacity)}
	b.refs.init(1)
	return b
}

func blockFromBytes(b []byte) *block {
	nb := &block{buf: b}
	nb.refs.init(1)
	return nb
}

// Chain is a sequence of blocks whose concatenated contents form the
// logical byte sequence. The zero value is an empty Chain ready to use.
type Chain struct {
	blocks []*block
	size   int
}

// Size returns the total number of bytes in the Chain.
func (c *Chain) Size() int { return c.size }

// Empty reports whether the Chain holds no bytes.
func (c *Chain) Empty() bool { return c.size == 0 }

// Clear resets the Chain to empty, releasing references to all blocks.
func (c *Chain) Clear() {
	for _, b := range c.blocks {
		b.refs.release()
	}
	c.blocks = c.blocks[:0]
	c.size = 0
}

// Blocks calls fn once per contiguous byte range in the Chain, in order.
// fn must not retain the slice beyond the call if the Chain may be mutated
// afterward, since the tail block may still be grown in place.
func (c *Chain) Blocks(fn func(p []byte)) {
	for _, b := range c.blocks {
		if len(b.buf) > 0 {
			fn(b.buf)
		}
	}
}

// CopyTo copies the Chain's contents into dst, which must have length at
// least Size().
func (c *Chain) CopyTo(dst []byte) {
	off := 0
	c.Blocks(func(p []byte) {
		off += copy(dst[off:], p)
	})
}

// Bytes materializes the Chain's contents as a single contiguous slice. It
// always allocates; prefer Blocks/CopyTo to avoid copying when possible.
func (c *Chain) Bytes() []byte {
	out := make([]byte, c.size)
	c.CopyTo(out)
	return out
}

func (c *Chain) tail() *block {
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

func (c *Chain) head() *block {
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[0]
}

// Append adds p to the end of the Chain. Small writes are copied into the
// current mutable tail block (growing it, doubling capacity as needed,
// mirroring sstable/block.Buffer.Append); writes of maxBytesToCopy or more
// bytes are copied into a new block of their own instead. Use AppendOwned
// to add a large buffer without copying it.
func (c *Chain) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	if len(p) >= maxBytesToCopy {
		c.blocks = append(c.blocks, blockFromBytes(append([]byte(nil), p...)))
		c.size += len(p)
		return
	}
	tb := c.tail()
	if tb == nil || !tb.refs.unique() || cap(tb.buf)-len(tb.buf) < len(p) && len(tb.buf) >= maxBytesToCopy {
		// Either there is no tail block, it is shared (must not mutate it in
		// place), or it is already full-sized: start a fresh mutable block.
		nb := newBlock(growSize(0, len(p)))
		c.blocks = append(c.blocks, nb)
		tb = nb
	}
	if cap(tb.buf)-len(tb.buf) < len(p) {
		grown := make([]byte, len(tb.buf), growSize(cap(tb.buf), len(tb.buf)+len(p)))
		copy(grown, tb.buf)
		tb.buf = grown
	}
	tb.buf = append(tb.buf, p...)
	c.size += len(p)
}

// AppendOwned is like Append, but takes ownership of p (which must not be
// mutated by the caller afterward) instead of copying it, regardless of
// size. Used when the caller already holds a freshly allocated buffer (for
// example a just-compressed bucket).
func (c *Chain) AppendOwned(p []byte) {
	if len(p) == 0 {
		return
	}
	c.blocks = append(c.blocks, blockFromBytes(p))
	c.size += len(p)
}

// AppendChain appends the contents of other to c, sharing other's blocks
// (each block's refcount is incremented) rather than copying their bytes.
func (c *Chain) AppendChain(other *Chain) {
	for _, b := range other.blocks {
		b.refs.acquire()
		c.blocks = append(c.blocks, b)
	}
	c.size += other.size
}

// Prepend adds p to the front of the Chain, symmetric to Append.
func (c *Chain) Prepend(p []byte) {
	if len(p) == 0 {
		return
	}
	if len(p) >= maxBytesToCopy {
		c.blocks = append([]*block{blockFromBytes(append([]byte(nil), p...))}, c.blocks...)
		c.size += len(p)
		return
	}
	hb := c.head()
	if hb == nil || !hb.refs.unique() {
		nb := blockFromBytes(make([]byte, 0, growSize(0, len(p))))
		c.blocks = append([]*block{nb}, c.blocks...)
		hb = nb
	}
	// Prepending into a []byte means shifting existing contents to the right.
	// Spare capacity is kept only at the end of the head block's backing
	// array, so every small prepend copies the head block's current contents
	// and repeated small prepends cost time quadratic in the head block size.
	buf := hb.buf
	if cap(buf)-len(buf) < len(p) {
		grown := make([]byte, len(buf)+len(p), growSize(cap(buf), len(buf)+len(p)))
		copy(grown[len(p):], buf)
		hb.buf = grown
		copy(hb.buf, p)
	} else {
		hb.buf = hb.buf[:len(buf)+len(p)]
		copy(hb.buf[len(p):], hb.buf[:len(buf)])
		copy(hb.buf, p)
	}
	c.size += len(p)
}

// PrependChain prepends the contents of other to c, sharing its blocks.
func (c *Chain) PrependChain(other *Chain) {
	newBlocks := make([]*block, 0, len(other.blocks)+len(c.blocks))
	for _, b := range other.blocks {
		b.refs.acquire()
		newBlocks = append(newBlocks, b)
	}
	newBlocks = append(newBlocks, c.blocks...)
	c.blocks = newBlocks
	c.size += other.size
}

// NumBlocks returns the number of blocks currently backing the Chain. It is
// exposed, along with BlockAt, so that iostream.ChainReader can address
// bytes by (block, offset) without materializing the whole Chain.
func (c *Chain) NumBlocks() int { return len(c.blocks) }

// BlockAt returns the raw bytes of the i'th block. The returned slice must
// be treated as read-only: it may be shared with other Chains.
func (c *Chain) BlockAt(i int) []byte { return c.blocks[i].buf }

// growSize returns the next buffer capacity to use when growing from
// oldCap and needing to hold at least need bytes, doubling (from a minimum
// of 1024) until sufficient, following sstable/block.Buffer.Append.
func growSize(oldCap, need int) int {
	size := oldCap
	if size == 0 {
		size = 1024
	}
	for size < need {
		size *= 2
	}
	return size
}
