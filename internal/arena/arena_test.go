package arena_test

import (
	"testing"

	"github.com/vela-lang/velac/internal/arena"
)

type node struct {
	V int
}

func TestNewNeverReturnsNilAndIsZeroed(t *testing.T) {
	p := arena.NewPool[node](4)
	n := p.New()
	if n == nil {
		t.Fatalf("New() returned nil")
	}
	if n.V != 0 {
		t.Fatalf("New() should be zero-initialized, got V=%d", n.V)
	}
}

func TestReleaseReusesInLIFOOrder(t *testing.T) {
	p := arena.NewPool[node](4)
	a := p.New()
	a.V = 1
	b := p.New()
	b.V = 2

	p.Release(a)
	p.Release(b)

	// LIFO: b should come back first.
	r1 := p.New()
	if r1 != b {
		t.Fatalf("expected LIFO reuse to return b first")
	}
	r2 := p.New()
	if r2 != a {
		t.Fatalf("expected LIFO reuse to return a second")
	}
}

func TestChunkingAcrossBoundary(t *testing.T) {
	p := arena.NewPool[node](2)
	var ptrs []*node
	for i := 0; i < 10; i++ {
		v := p.New()
		v.V = i
		ptrs = append(ptrs, v)
	}
	if p.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", p.Len())
	}
	for i, v := range ptrs {
		if v.V != i {
			t.Fatalf("chunk boundary corrupted value at %d: got %d", i, v.V)
		}
	}
}

func TestTransferMovesAllChunks(t *testing.T) {
	src := arena.NewPool[node](4)
	for i := 0; i < 6; i++ {
		src.New()
	}
	dst := arena.NewPool[node](4)
	src.Transfer(dst)

	if src.Len() != 0 {
		t.Fatalf("source pool should be empty after Transfer, got Len()=%d", src.Len())
	}
	if dst.Len() != 6 {
		t.Fatalf("destination pool should own all transferred objects, got Len()=%d", dst.Len())
	}
}
