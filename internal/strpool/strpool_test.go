package strpool_test

import (
	"fmt"
	"testing"

	"github.com/vela-lang/velac/internal/strpool"
)

// TestInternIdentity covers spec §8 property 1: pointer equality of
// returned objects implies byte equality and vice versa, across any
// interning sequence over the same multiset of byte strings.
func TestInternIdentity(t *testing.T) {
	p := strpool.New()

	a := p.InternString("hello")
	b := p.InternString("hello")
	if a != b {
		t.Fatalf("re-interning identical content returned distinct objects")
	}

	c := p.InternString("world")
	if a == c {
		t.Fatalf("distinct content returned the same object")
	}
	if a.String() != "hello" || c.String() != "world" {
		t.Fatalf("unexpected round-trip text: %q %q", a.String(), c.String())
	}
}

func TestInternLenCountsDistinctOnly(t *testing.T) {
	p := strpool.New()
	for i := 0; i < 50; i++ {
		p.InternString("same")
	}
	for i := 0; i < 5; i++ {
		p.InternString(fmt.Sprintf("distinct-%d", i))
	}
	if got, want := p.Len(), 6; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
}

func TestInternEmptyAndSimilarPrefixes(t *testing.T) {
	p := strpool.New()
	empty := p.InternString("")
	empty2 := p.InternString("")
	if empty != empty2 {
		t.Fatalf("two empty-string interns diverged")
	}
	ab := p.InternString("ab")
	a := p.InternString("a")
	if ab == a {
		t.Fatalf("distinct-length strings sharing a hash bucket must not alias")
	}
}
