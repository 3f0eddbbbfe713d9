package symbols_test

import (
	"testing"

	"github.com/vela-lang/velac/internal/strpool"
	"github.com/vela-lang/velac/internal/symbols"
	"github.com/vela-lang/velac/internal/types"
)

// TestUpvalueChainCompleteness covers spec §8 property 2: for a reference
// three functions deep from the declaring scope, every intermediate
// function gets its own upvalue entry, each with index 0 (the only name
// referenced on that level).
func TestUpvalueChainCompleteness(t *testing.T) {
	strs := strpool.New()
	a := symbols.NewArena()
	x := strs.InternString("x")

	outer := a.NewFunction(nil)
	outerRoot := a.NewScope(nil, outer)
	outer.Root = outerRoot
	local := outerRoot.Declare(symbols.KindLocal, x, types.Of(types.Integer))

	mid := a.NewFunction(outer)
	midRoot := a.NewScope(outerRoot, mid)
	mid.Root = midRoot

	inner := a.NewFunction(mid)
	innerRoot := a.NewScope(midRoot, inner)
	inner.Root = innerRoot

	got := symbols.Resolve(innerRoot, x)

	if got.Kind != symbols.KindUpvalue {
		t.Fatalf("innermost reference should resolve to an upvalue, got kind %v", got.Kind)
	}
	if len(inner.Upvalues) != 1 || inner.Upvalues[0] != got {
		t.Fatalf("inner function should carry exactly one upvalue entry")
	}
	if len(mid.Upvalues) != 1 {
		t.Fatalf("intermediate function mid must also carry an upvalue entry (chain completeness), got %d", len(mid.Upvalues))
	}
	if inner.Upvalues[0].Index != 0 || mid.Upvalues[0].Index != 0 {
		t.Fatalf("upvalue indices should be dense starting at 0, got inner=%d mid=%d",
			inner.Upvalues[0].Index, mid.Upvalues[0].Index)
	}
	if inner.Upvalues[0].Target != mid.Upvalues[0] {
		t.Fatalf("inner's upvalue target should be mid's upvalue, not the original local directly")
	}
	if mid.Upvalues[0].Target != local {
		t.Fatalf("mid's upvalue target should be the original local in outer")
	}
}

// TestUpvalueDeduplicatedOnTargetIdentity ensures resolving the same name
// twice from the same inner function does not duplicate the upvalue entry.
func TestUpvalueDeduplicatedOnTargetIdentity(t *testing.T) {
	strs := strpool.New()
	a := symbols.NewArena()
	x := strs.InternString("x")

	outer := a.NewFunction(nil)
	outerRoot := a.NewScope(nil, outer)
	outer.Root = outerRoot
	outerRoot.Declare(symbols.KindLocal, x, types.Of(types.Integer))

	inner := a.NewFunction(outer)
	innerRoot := a.NewScope(outerRoot, inner)
	inner.Root = innerRoot

	first := symbols.Resolve(innerRoot, x)
	second := symbols.Resolve(innerRoot, x)
	if first != second {
		t.Fatalf("resolving the same name twice should reuse the same upvalue symbol")
	}
	if len(inner.Upvalues) != 1 {
		t.Fatalf("upvalue list should not grow on repeated resolution, got %d entries", len(inner.Upvalues))
	}
}

// TestReverseShadowing covers spec §8 property 4: when a scope contains
// multiple locals of the same name, resolution returns the last declared.
func TestReverseShadowing(t *testing.T) {
	strs := strpool.New()
	a := symbols.NewArena()
	name := strs.InternString("a")

	fn := a.NewFunction(nil)
	root := a.NewScope(nil, fn)
	fn.Root = root

	first := root.Declare(symbols.KindLocal, name, types.Of(types.Integer))
	second := root.Declare(symbols.KindLocal, name, types.Of(types.String))

	got := symbols.Resolve(root, name)
	if got != second {
		t.Fatalf("resolution should return the most recently declared local")
	}
	if got == first {
		t.Fatalf("resolution incorrectly returned the shadowed local")
	}
}

// TestUnresolvedNameYieldsSyntheticGlobal covers spec §4.4 step 5.
func TestUnresolvedNameYieldsSyntheticGlobal(t *testing.T) {
	strs := strpool.New()
	a := symbols.NewArena()
	name := strs.InternString("undeclared")

	fn := a.NewFunction(nil)
	root := a.NewScope(nil, fn)
	fn.Root = root

	got := symbols.Resolve(root, name)
	if got.Kind != symbols.KindGlobal {
		t.Fatalf("unresolved name should produce a global symbol, got kind %v", got.Kind)
	}
	if got.Type.Tag != types.Any {
		t.Fatalf("global symbols should have type any, got %v", got.Type.Tag)
	}
	if len(root.Symbols) != 0 {
		t.Fatalf("globals must never be inserted into scopes")
	}
}

// TestScopeFunctionConsistency covers spec §8 property 3.
func TestScopeFunctionConsistency(t *testing.T) {
	strs := strpool.New()
	a := symbols.NewArena()
	name := strs.InternString("v")

	fn := a.NewFunction(nil)
	root := a.NewScope(nil, fn)
	fn.Root = root
	child := a.NewScope(root, fn)

	sym := child.Declare(symbols.KindLocal, name, types.Of(types.Integer))
	for _, l := range fn.Locals {
		if l == sym && l.Scope.Function != fn {
			t.Fatalf("local's scope.function must equal the owning function")
		}
	}
}
