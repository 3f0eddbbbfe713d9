// Package arena implements the bump/free-list allocator described in spec
// §4.1. Objects of a single concrete type are handed out from chunked
// backing slices; released objects return to a LIFO free-list and are
// reused before a new slot is carved from the current chunk. The whole
// pool is released en masse (spec §3 "Lifecycles") by simply letting it go
// out of scope — in a garbage-collected host this is the correct
// translation of the source project's "destroy releases every chunk"
// (see DESIGN.md for why this, specifically, stays on the standard
// library/runtime rather than a third-party pool).
package arena

// defaultChunkSize is the number of elements carved out of one backing
// slice before a new chunk is appended. Mirrors the "chunking" factor in
// the original allocator (spec §9 design notes point to bulk allocation
// as the whole point of arenas).
const defaultChunkSize = 256

// Pool is a type-homogeneous arena: every value it returns is a *T backed
// by one of its chunks. T should be a plain struct; Pool never inspects T.
type Pool[T any] struct {
	chunks    [][]T
	next      int // next free index within the last chunk
	chunkSize int
	free      []*T // LIFO free-list, restricted to this pool's fixed size class
}

// NewPool creates an arena for T. chunkSize, if zero, defaults to a
// reasonable bulk size; it need not be tuned per call site.
func NewPool[T any](chunkSize int) *Pool[T] {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Pool[T]{chunkSize: chunkSize}
}

// New returns a zero-valued *T, reusing a freed slot (LIFO, invariant 4 in
// spec §3) before bumping into fresh storage.
func (p *Pool[T]) New() *T {
	if n := len(p.free); n > 0 {
		v := p.free[n-1]
		p.free = p.free[:n-1]
		*v = *new(T)
		return v
	}
	if len(p.chunks) == 0 || p.next == len(p.chunks[len(p.chunks)-1]) {
		p.chunks = append(p.chunks, make([]T, p.chunkSize))
		p.next = 0
	}
	last := p.chunks[len(p.chunks)-1]
	v := &last[p.next]
	p.next++
	return v
}

// Release returns v to the free-list for reuse. v must have come from this
// exact pool (fixed-size-class restriction, spec §4.1).
func (p *Pool[T]) Release(v *T) {
	p.free = append(p.free, v)
}

// Transfer moves every chunk owned by p into an empty pool dst in O(1),
// mirroring the source allocator's "transfer" contract. dst must be empty.
func (p *Pool[T]) Transfer(dst *Pool[T]) {
	dst.chunks = p.chunks
	dst.next = p.next
	dst.free = p.free
	p.chunks = nil
	p.next = 0
	p.free = nil
}

// Len reports the number of live (allocated-and-not-released) objects.
func (p *Pool[T]) Len() int {
	total := 0
	for _, c := range p.chunks {
		total += len(c)
	}
	// last chunk may be only partially used
	if n := len(p.chunks); n > 0 {
		total -= len(p.chunks[n-1]) - p.next
	}
	return total - len(p.free)
}
