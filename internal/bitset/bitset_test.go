package bitset_test

import (
	"testing"

	"github.com/vela-lang/velac/internal/bitset"
)

func TestSetClearTest(t *testing.T) {
	s := bitset.New(10)
	if !s.Empty() {
		t.Fatalf("fresh set should be empty")
	}
	if changed := s.Set(3); !changed {
		t.Fatalf("Set(3) on a clear bit should report changed")
	}
	if !s.Test(3) {
		t.Fatalf("bit 3 should be set")
	}
	if changed := s.Set(3); changed {
		t.Fatalf("Set(3) on an already-set bit should report unchanged")
	}
	if changed := s.Clear(3); !changed {
		t.Fatalf("Clear(3) on a set bit should report changed")
	}
	if s.Test(3) {
		t.Fatalf("bit 3 should be clear after Clear")
	}
}

func TestGrowBeyondInitialCapacity(t *testing.T) {
	s := bitset.New(4)
	s.Set(200)
	if !s.Test(200) {
		t.Fatalf("setting a far-out bit should grow the backing words")
	}
	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
}

func TestUnionIntersectAndCompl(t *testing.T) {
	a := bitset.New(8)
	b := bitset.New(8)
	a.Set(1)
	a.Set(2)
	b.Set(2)
	b.Set(3)

	union := a.Clone()
	union.Union(b)
	for _, bit := range []int{1, 2, 3} {
		if !union.Test(bit) {
			t.Fatalf("union missing bit %d", bit)
		}
	}

	inter := a.Clone()
	inter.Intersect(b)
	if inter.Count() != 1 || !inter.Test(2) {
		t.Fatalf("intersect should contain only bit 2, got count=%d", inter.Count())
	}

	diff := a.Clone()
	diff.AndCompl(b)
	if diff.Count() != 1 || !diff.Test(1) {
		t.Fatalf("AndCompl should leave only bit 1")
	}
}

func TestForEachVisitsSetBitsInOrder(t *testing.T) {
	s := bitset.New(0)
	want := []int{0, 5, 64, 130}
	for _, b := range want {
		s.Set(b)
	}
	var got []int
	s.ForEach(func(bit int) { got = append(got, bit) })
	if len(got) != len(want) {
		t.Fatalf("ForEach visited %d bits, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ForEach order = %v, want %v", got, want)
		}
	}
}

func TestEqualAndReset(t *testing.T) {
	a := bitset.New(8)
	b := bitset.New(16)
	a.Set(4)
	b.Set(4)
	if !a.Equal(b) {
		t.Fatalf("sets with the same logical bits but different widths should be Equal")
	}
	b.Reset()
	if a.Equal(b) {
		t.Fatalf("Reset should clear all bits")
	}
}
