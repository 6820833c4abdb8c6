// Package ring provides a fixed-capacity single-producer, single-consumer
// byte FIFO.
package ring

import "sync/atomic"

// Ring is a power-of-two sized byte FIFO. Indices are monotonic and wrap via
// the mask, so Len is always wr-rd.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)
}

// New allocates a ring. size must be a power of two >= 2.
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("ring: size must be power of two >= 2")
	}
	return &Ring{buf: make([]byte, size), mask: uint32(size - 1)}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

// Cap is the fixed capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Len is the number of queued bytes.
func (r *Ring) Len() int { return int(r.wr.Load() - r.rd.Load()) }

// Space is the number of bytes that can still be pushed.
func (r *Ring) Space() int { return r.Cap() - r.Len() }

func (r *Ring) Empty() bool { return r.Len() == 0 }
func (r *Ring) Full() bool  { return r.Space() == 0 }

// Push appends b, reporting false (and dropping b) when full.
func (r *Ring) Push(b byte) bool {
	rd := r.rd.Load()
	wr := r.wr.Load()
	if wr-rd == r.size() {
		return false
	}
	r.buf[wr&r.mask] = b
	r.wr.Store(wr + 1) // release
	return true
}

// Pop removes the oldest byte.
func (r *Ring) Pop() (byte, bool) {
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	if wr == rd {
		return 0, false
	}
	b := r.buf[rd&r.mask]
	r.rd.Store(rd + 1) // release
	return b, true
}

// Reset discards all queued bytes. Only safe while neither side is active.
func (r *Ring) Reset() {
	r.rd.Store(r.wr.Load())
}
