package irwalk_test

import (
	"testing"

	"github.com/vela-lang/velac/internal/diagnostics"
	"github.com/vela-lang/velac/internal/ir"
	"github.com/vela-lang/velac/internal/irwalk"
	"github.com/vela-lang/velac/internal/linearizer"
	"github.com/vela-lang/velac/internal/parser"
	"github.com/vela-lang/velac/internal/strpool"
)

func lower(t *testing.T, src string) *ir.Module {
	t.Helper()
	strs := strpool.New()
	var errs []string
	sink := diagnostics.NewSink("walk.vela",
		func(string, int, string) {},
		func(msg string) { errs = append(errs, msg) })
	p := parser.New(src, sink, strs)
	fn, _, err := p.Parse()
	if err != nil {
		t.Fatalf("parse %q: %v (%v)", src, err, errs)
	}
	lz := linearizer.New(sink)
	mod, err := lz.Linearize(fn)
	if err != nil {
		t.Fatalf("linearize %q: %v", src, err)
	}
	if len(errs) != 0 {
		t.Fatalf("linearize %q: unexpected diagnostics: %v", src, errs)
	}
	return mod
}

func TestForEachProcedureAndChildVisitsClosureNesting(t *testing.T) {
	mod := lower(t, "local x = 1; return function() return x end")

	var procs int
	irwalk.ForEachProcedure(mod, func(*ir.Procedure) { procs++ })
	if procs != len(mod.All) {
		t.Fatalf("expected %d procedures visited, got %d", len(mod.All), procs)
	}

	var children int
	irwalk.ForEachChild(mod.Main, func(*ir.Procedure) { children++ })
	if children != 1 {
		t.Fatalf("expected exactly one child procedure of main, got %d", children)
	}
}

func TestForEachBlockSkipsDeadBlocks(t *testing.T) {
	mod := lower(t, "if x then return 1 else return 2 end")

	var visited int
	irwalk.ForEachBlock(mod.Main, func(b *ir.BasicBlock) {
		visited++
		if !b.Live() {
			t.Fatalf("ForEachBlock must skip blocks with zero instructions")
		}
	})
	if visited == 0 {
		t.Fatalf("expected at least one live block")
	}
}

func TestForEachInstructionArgAndTargetOrder(t *testing.T) {
	mod := lower(t, "local a:integer = 1; local b:integer = 2; return a+b")

	var sawAddii bool
	irwalk.ForEachBlock(mod.Main, func(b *ir.BasicBlock) {
		irwalk.ForEachInstruction(b, func(ins *ir.Instruction) {
			if ins.Op != ir.OpAddII {
				return
			}
			sawAddii = true
			var args int
			irwalk.ForEachArg(ins, func(*ir.Pseudo) { args++ })
			if args != 2 {
				t.Fatalf("addii should carry 2 operands, got %d", args)
			}
			var targets int
			irwalk.ForEachTarget(ins, func(*ir.Pseudo) { targets++ })
			if targets != 1 {
				t.Fatalf("addii should carry 1 target, got %d", targets)
			}
		})
	})
	if !sawAddii {
		t.Fatalf("expected an addii instruction to be visited")
	}
}
