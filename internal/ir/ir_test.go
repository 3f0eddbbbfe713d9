package ir_test

import (
	"testing"

	"github.com/vela-lang/velac/internal/ir"
)

func newProc() *ir.Procedure {
	p := ir.NewProcedure(0, nil, nil)
	p.SetCurrent(p.NewBlock())
	return p
}

func TestRegisterAllocationReusesFreedRegistersLIFO(t *testing.T) {
	p := newProc()
	a := p.AllocTempInt()
	b := p.AllocTempInt()
	if a.Reg != 0 || b.Reg != 1 {
		t.Fatalf("expected dense 0,1 allocation, got %d,%d", a.Reg, b.Reg)
	}
	p.Release(b)
	c := p.AllocTempInt()
	if c.Reg != 1 {
		t.Fatalf("expected the just-freed register 1 to be reused, got %d", c.Reg)
	}
	d := p.AllocTempInt()
	if d.Reg != 2 {
		t.Fatalf("expected a fresh register 2 once the free-list is empty, got %d", d.Reg)
	}
}

func TestTempClassesAreIndependent(t *testing.T) {
	p := newProc()
	i := p.AllocTempInt()
	f := p.AllocTempNumber()
	a := p.AllocTempAny()
	if i.Reg != 0 || f.Reg != 0 || a.Reg != 0 {
		t.Fatalf("each temp class should allocate from its own generator starting at 0, got int=%d flt=%d any=%d", i.Reg, f.Reg, a.Reg)
	}
}

func TestTempBooleanSharesIntGenerator(t *testing.T) {
	p := newProc()
	i := p.AllocTempInt()
	b := p.AllocTempBoolean()
	if i.Reg != 0 || b.Reg != 1 {
		t.Fatalf("boolean temps should share the integer register class, got int=%d bool=%d", i.Reg, b.Reg)
	}
}

func TestHighWaterMarkTracksPeakNotCurrentCount(t *testing.T) {
	p := newProc()
	a := p.AllocTempInt()
	p.AllocTempInt()
	p.Release(a)
	if hw := p.HighWaterMark(ir.PTempInt); hw != 2 {
		t.Fatalf("expected high water mark of 2 even after a release, got %d", hw)
	}
}

func TestConstPoolDedupsEqualValuesAndIsDensePerType(t *testing.T) {
	pool := ir.NewProcedure(0, nil, nil).Consts
	i1 := pool.Int(7)
	i2 := pool.Int(8)
	i3 := pool.Int(7)
	if i1 != i3 {
		t.Fatalf("equal integer literals should share an index, got %d and %d", i1, i3)
	}
	if i2 != i1+1 {
		t.Fatalf("expected dense indices, got %d then %d", i1, i2)
	}
	if pool.NumInts() != 2 {
		t.Fatalf("expected 2 distinct ints, got %d", pool.NumInts())
	}

	f1 := pool.Float(1.5)
	if f1 != 0 {
		t.Fatalf("float indices are a separate dense sequence, expected 0, got %d", f1)
	}
}

func TestBlockLiveReflectsInstructionCount(t *testing.T) {
	p := newProc()
	b := p.NewBlock()
	if b.Live() {
		t.Fatalf("a freshly created block should not be live")
	}
	b.Emit(ir.OpRet)
	if !b.Live() {
		t.Fatalf("a block with an instruction should be live")
	}
}

func TestEmitSetsBlockBackReference(t *testing.T) {
	p := newProc()
	ins := p.Emit(ir.OpRet)
	if ins.Block != p.Current() {
		t.Fatalf("emitted instruction's Block should point back to the current block")
	}
}

func TestBreakTargetStackDiscipline(t *testing.T) {
	p := newProc()
	outer := p.NewBlock()
	inner := p.NewBlock()

	p.PushBreakTarget(outer)
	if p.BreakTarget() != outer {
		t.Fatalf("expected outer break target after first push")
	}
	p.PushBreakTarget(inner)
	if p.BreakTarget() != inner {
		t.Fatalf("expected inner break target after nested push")
	}
	p.PopBreakTarget()
	if p.BreakTarget() != outer {
		t.Fatalf("expected break target restored to outer after pop")
	}
	p.PopBreakTarget()
	if p.BreakTarget() != nil {
		t.Fatalf("expected nil break target once fully unwound")
	}
}
