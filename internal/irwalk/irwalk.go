// Package irwalk is astwalk's counterpart over the lowered IR: read-only
// accessor functions for procedures, blocks, instructions, and operand/
// target pseudo lists (spec §6), following the same foreach-callback shape
// grounded on the original ast_walker's dispatch style.
package irwalk

import "github.com/vela-lang/velac/internal/ir"

// ForEachProcedure calls fn for every procedure in mod, in creation order.
func ForEachProcedure(mod *ir.Module, fn func(*ir.Procedure)) {
	for _, p := range mod.All {
		fn(p)
	}
}

// ForEachChild calls fn for every procedure directly nested inside p.
func ForEachChild(p *ir.Procedure, fn func(*ir.Procedure)) {
	for _, c := range p.Children {
		fn(c)
	}
}

// ForEachBlock calls fn for every block in p, in id order, skipping blocks
// with zero instructions (spec invariant 7: "a block with zero
// instructions is logically deleted").
func ForEachBlock(p *ir.Procedure, fn func(*ir.BasicBlock)) {
	for _, b := range p.Blocks {
		if !b.Live() {
			continue
		}
		fn(b)
	}
}

// ForEachInstruction calls fn for every instruction in b, in emission
// order.
func ForEachInstruction(b *ir.BasicBlock, fn func(*ir.Instruction)) {
	for _, ins := range b.Instructions {
		fn(ins)
	}
}

// ForEachArg calls fn for every operand pseudo of ins, in append order.
func ForEachArg(ins *ir.Instruction, fn func(*ir.Pseudo)) {
	ins.Args.Each(fn)
}

// ForEachTarget calls fn for every target pseudo of ins, in append order.
func ForEachTarget(ins *ir.Instruction, fn func(*ir.Pseudo)) {
	ins.Target.Each(fn)
}
