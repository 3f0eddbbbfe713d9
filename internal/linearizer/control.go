package linearizer

import (
	"github.com/vela-lang/velac/internal/ast"
	"github.com/vela-lang/velac/internal/ir"
	"github.com/vela-lang/velac/internal/types"
)

// lowerIf lowers an if/elseif/else chain into a diamond of conditional
// branches converging on one join block (spec §4.5 "control flow lowers to
// explicit branches between basic blocks").
func (lz *Linearizer) lowerIf(proc *ir.Procedure, s *ast.If) error {
	join := proc.NewBlock()
	for _, arm := range s.Arms {
		cond, err := lz.lowerExpr(proc, arm.Cond)
		if err != nil {
			return err
		}
		thenBlk := proc.NewBlock()
		elseBlk := proc.NewBlock()
		ins := proc.Emit(ir.OpCBr)
		ins.AddArg(cond)
		ins.AddArg(ir.BlockPseudo(thenBlk))
		ins.AddArg(ir.BlockPseudo(elseBlk))

		proc.SetCurrent(thenBlk)
		if err := lz.lowerBlock(proc, arm.Body); err != nil {
			return err
		}
		lz.chainTo(proc, join)

		proc.SetCurrent(elseBlk)
	}
	if s.Else != nil {
		if err := lz.lowerBlock(proc, s.Else); err != nil {
			return err
		}
	}
	lz.chainTo(proc, join)
	proc.SetCurrent(join)
	return nil
}

// lowerWhile lowers `while COND do BODY end` as a header block testing
// COND, a body block branching back to the header, and an exit block that
// is also this loop's break target.
func (lz *Linearizer) lowerWhile(proc *ir.Procedure, s *ast.While) error {
	header := proc.NewBlock()
	body := proc.NewBlock()
	exit := proc.NewBlock()

	lz.chainTo(proc, header)
	proc.SetCurrent(header)
	cond, err := lz.lowerExpr(proc, s.Cond)
	if err != nil {
		return err
	}
	ins := proc.Emit(ir.OpCBr)
	ins.AddArg(cond)
	ins.AddArg(ir.BlockPseudo(body))
	ins.AddArg(ir.BlockPseudo(exit))

	proc.SetCurrent(body)
	proc.PushBreakTarget(exit)
	if err := lz.lowerBlock(proc, s.Body); err != nil {
		proc.PopBreakTarget()
		return err
	}
	proc.PopBreakTarget()
	lz.chainTo(proc, header)

	proc.SetCurrent(exit)
	return nil
}

// lowerRepeat lowers `repeat BODY until COND`: the body block's own
// fallthrough re-tests COND before looping (the condition may reference
// locals declared in BODY, matching the parser's repeat-scope handling).
func (lz *Linearizer) lowerRepeat(proc *ir.Procedure, s *ast.Repeat) error {
	body := proc.NewBlock()
	exit := proc.NewBlock()

	lz.chainTo(proc, body)
	proc.SetCurrent(body)
	proc.PushBreakTarget(exit)
	if err := lz.lowerBlock(proc, s.Body); err != nil {
		proc.PopBreakTarget()
		return err
	}
	proc.PopBreakTarget()

	cond, err := lz.lowerExpr(proc, s.Cond)
	if err != nil {
		return err
	}
	ins := proc.Emit(ir.OpCBr)
	ins.AddArg(cond)
	ins.AddArg(ir.BlockPseudo(exit))
	ins.AddArg(ir.BlockPseudo(body))

	proc.SetCurrent(exit)
	return nil
}

// lowerForNumeric lowers the numeric for loop's init/test/step into a
// standard three-block loop shape.
func (lz *Linearizer) lowerForNumeric(proc *ir.Procedure, s *ast.ForNumeric) error {
	start, err := lz.lowerExpr(proc, s.Start)
	if err != nil {
		return err
	}
	stop, err := lz.lowerExpr(proc, s.Stop)
	if err != nil {
		return err
	}
	var step *ir.Pseudo
	if s.Step != nil {
		step, err = lz.lowerExpr(proc, s.Step)
		if err != nil {
			return err
		}
	} else {
		step = ir.ConstantPseudo(proc.Consts.Int(1), types.Integer)
	}

	sym := lz.findLocalSymbol(proc, s.Var)
	var ivar *ir.Pseudo
	if sym != nil {
		ivar = lz.allocForSymbol(proc, sym)
	} else {
		ivar = proc.AllocTempInt()
	}
	lz.emitAssign(proc, ivar, types.Of(types.Integer), start)

	header := proc.NewBlock()
	body := proc.NewBlock()
	exit := proc.NewBlock()

	lz.chainTo(proc, header)
	proc.SetCurrent(header)
	cond := proc.AllocTempBoolean()
	ins := proc.Emit(ir.OpLeII)
	ins.AddArg(ivar)
	ins.AddArg(stop)
	ins.AddTarget(cond)
	cbr := proc.Emit(ir.OpCBr)
	cbr.AddArg(cond)
	cbr.AddArg(ir.BlockPseudo(body))
	cbr.AddArg(ir.BlockPseudo(exit))

	proc.SetCurrent(body)
	proc.PushBreakTarget(exit)
	if err := lz.lowerBlock(proc, s.Body); err != nil {
		proc.PopBreakTarget()
		return err
	}
	proc.PopBreakTarget()
	if cur := proc.Current(); cur != nil && !endsInTerminator(cur) {
		step2 := proc.Emit(ir.OpAddII)
		step2.AddArg(ivar)
		step2.AddArg(step)
		step2.AddTarget(ivar)
	}
	lz.chainTo(proc, header)

	proc.SetCurrent(exit)
	return nil
}

// lowerForIn lowers the generic for loop: the iterator/state/control triple
// is evaluated once, then each iteration calls the iterator and tests the
// first result for nil (spec's "iterator-state-control triple producer").
func (lz *Linearizer) lowerForIn(proc *ir.Procedure, s *ast.ForIn) error {
	var ctrl []*ir.Pseudo
	for _, e := range s.Exprs {
		ps, err := lz.lowerExpr(proc, e)
		if err != nil {
			return err
		}
		ctrl = append(ctrl, ps)
	}
	for len(ctrl) < 3 {
		ctrl = append(ctrl, ir.NilPseudo())
	}
	iterFn, state, control := ctrl[0], ctrl[1], ctrl[2]

	header := proc.NewBlock()
	body := proc.NewBlock()
	exit := proc.NewBlock()

	lz.chainTo(proc, header)
	proc.SetCurrent(header)

	var targets []*ir.Pseudo
	for _, name := range s.Vars {
		sym := lz.findLocalSymbol(proc, name)
		if sym == nil {
			targets = append(targets, proc.AllocTempAny())
			continue
		}
		targets = append(targets, lz.allocForSymbol(proc, sym))
	}

	call := proc.Emit(ir.OpCall)
	call.AddArg(iterFn)
	call.AddArg(state)
	call.AddArg(control)
	for _, t := range targets {
		call.AddTarget(t)
	}
	if len(targets) > 0 {
		control = targets[0]
	}

	isNil := proc.AllocTempBoolean()
	eq := proc.Emit(ir.OpEq)
	eq.AddArg(control)
	eq.AddArg(ir.NilPseudo())
	eq.AddTarget(isNil)
	cbr := proc.Emit(ir.OpCBr)
	cbr.AddArg(isNil)
	cbr.AddArg(ir.BlockPseudo(exit))
	cbr.AddArg(ir.BlockPseudo(body))

	proc.SetCurrent(body)
	proc.PushBreakTarget(exit)
	if err := lz.lowerBlock(proc, s.Body); err != nil {
		proc.PopBreakTarget()
		return err
	}
	proc.PopBreakTarget()
	lz.chainTo(proc, header)

	proc.SetCurrent(exit)
	return nil
}
