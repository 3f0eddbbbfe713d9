// Package linearizer implements spec §4.5: walking a parsed ast.FunctionExpr
// tree (with its symbols.Function scope tree already resolved) into typed
// three-address ir.Procedure/ir.BasicBlock/ir.Instruction values. Structure
// follows the teacher project's own lowering pass (a single struct carrying
// the in-progress module plus per-call helper methods grouped by AST kind,
// dispatched with a type switch rather than a visitor interface) adapted to
// this spec's fixed opcode-by-static-type selection rule instead of the
// teacher's runtime type inference.
package linearizer

import (
	"github.com/vela-lang/velac/internal/ast"
	"github.com/vela-lang/velac/internal/diagnostics"
	"github.com/vela-lang/velac/internal/ir"
	"github.com/vela-lang/velac/internal/strpool"
	"github.com/vela-lang/velac/internal/symbols"
	"github.com/vela-lang/velac/internal/types"
)

// Linearizer owns one module-wide lowering pass.
type Linearizer struct {
	sink *diagnostics.Sink
	mod  *ir.Module

	procID int
	labels map[*ir.Procedure]map[*strpool.String]*ir.BasicBlock
}

// New creates a Linearizer that reports semantic errors (label resolution
// failures) to sink.
func New(sink *diagnostics.Sink) *Linearizer {
	return &Linearizer{
		sink:   sink,
		labels: make(map[*ir.Procedure]map[*strpool.String]*ir.BasicBlock),
	}
}

// Linearize lowers the whole chunk rooted at main, returning the module of
// every procedure produced (spec §4.5 "Module is every procedure produced
// for one compile").
func (lz *Linearizer) Linearize(main *ast.FunctionExpr) (*ir.Module, error) {
	mod := &ir.Module{}
	lz.mod = mod
	mainProc := lz.lowerFunction(main, nil)
	mod.Main = mainProc
	return mod, nil
}

// endsInTerminator reports whether b's last instruction already transfers
// control away (ret/br/cbr), so lowerFunction knows whether an implicit
// return is still needed.
func endsInTerminator(b *ir.BasicBlock) bool {
	if len(b.Instructions) == 0 {
		return false
	}
	switch b.Instructions[len(b.Instructions)-1].Op {
	case ir.OpRet, ir.OpBr, ir.OpCBr:
		return true
	default:
		return false
	}
}

func (lz *Linearizer) nextProcID() int {
	id := lz.procID
	lz.procID++
	return id
}

// lowerFunction allocates a procedure for fnExpr's resolved symbols.Function
// and lowers its body, recursing into nested function expressions as they
// are encountered by lowerExpr (spec §4.5 "closures are lowered depth
// first, innermost procedures exist before op_closure references them").
func (lz *Linearizer) lowerFunction(fnExpr *ast.FunctionExpr, parent *ir.Procedure) *ir.Procedure {
	source, _ := fnExpr.Function.(*symbols.Function)
	proc := ir.NewProcedure(lz.nextProcID(), source, parent)
	lz.mod.All = append(lz.mod.All, proc)
	lz.labels[proc] = make(map[*strpool.String]*ir.BasicBlock)

	entry := proc.NewBlock()
	proc.SetCurrent(entry)

	for _, arg := range source.Args {
		lz.allocForSymbol(proc, arg)
	}

	if err := lz.lowerBlock(proc, fnExpr.Body); err != nil {
		// A semantic error (unresolved label) was already recorded on
		// sink; leave the procedure as lowered so far rather than
		// aborting the whole module (spec §4.4 failure model governs
		// parsing, not this pass).
		_ = err
	}
	endsInReturn := len(fnExpr.Body) > 0 && fnExpr.Body[len(fnExpr.Body)-1].NodeTag() == ast.StmtReturn
	if cur := proc.Current(); cur != nil && !endsInTerminator(cur) && !endsInReturn {
		// fall off the end without an explicit return: emit an implicit
		// empty return, matching the source language's own behavior.
		proc.Emit(ir.OpRet)
	}
	return proc
}

// allocForSymbol gives a local/arg symbol its pseudo-register, picking the
// generator class from its static type (spec §4.5 "Pseudo allocation").
func (lz *Linearizer) allocForSymbol(proc *ir.Procedure, sym *symbols.Symbol) *ir.Pseudo {
	var ps *ir.Pseudo
	switch sym.Type.Tag {
	case types.Integer:
		ps = proc.AllocTempInt()
	case types.Number:
		ps = proc.AllocTempNumber()
	case types.Boolean:
		ps = proc.AllocTempBoolean()
	default:
		ps = proc.AllocTempAny()
	}
	sym.Pseudo = ps.Reg
	return ir.SymbolPseudo(sym)
}

func (lz *Linearizer) labelBlock(proc *ir.Procedure, name *strpool.String) *ir.BasicBlock {
	tbl := lz.labels[proc]
	if b, ok := tbl[name]; ok {
		return b
	}
	b := proc.NewBlock()
	tbl[name] = b
	return b
}

// lowerBlock lowers a statement list in sequence. Control-transferring
// statements (return, break/goto) may leave the current block dead (no
// fallthrough); subsequent statements in the same list then lower into a
// dead block and are dropped at the end per invariant 7 ("unreachable
// blocks are logically deleted").
func (lz *Linearizer) lowerBlock(proc *ir.Procedure, body []ast.Node) error {
	for _, stmt := range body {
		if err := lz.lowerStatement(proc, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (lz *Linearizer) lowerStatement(proc *ir.Procedure, n ast.Node) error {
	switch s := n.(type) {
	case *ast.Return:
		return lz.lowerReturn(proc, s)
	case *ast.Local:
		return lz.lowerLocal(proc, s)
	case *ast.ExprStatement:
		return lz.lowerExprStatement(proc, s)
	case *ast.If:
		return lz.lowerIf(proc, s)
	case *ast.While:
		return lz.lowerWhile(proc, s)
	case *ast.Repeat:
		return lz.lowerRepeat(proc, s)
	case *ast.ForNumeric:
		return lz.lowerForNumeric(proc, s)
	case *ast.ForIn:
		return lz.lowerForIn(proc, s)
	case *ast.Do:
		return lz.lowerBlock(proc, s.Body)
	case *ast.Label:
		b := lz.labelBlock(proc, s.Name)
		lz.chainTo(proc, b)
		proc.SetCurrent(b)
		return nil
	case *ast.Goto:
		var b *ir.BasicBlock
		if s.Label.String() == ast.BreakLabel {
			b = proc.BreakTarget()
		} else {
			// Real scope-visibility check (spec §4.4 "a label can't jump into
			// the scope of a local declared after it"): parsing has already
			// finished by the time any procedure is lowered, so every label in
			// this function — including ones declared later in the same
			// block — is already in its scope's symbol list; ResolveLabel
			// walks from the goto's own scope up to the function root the
			// same way symbols.Resolve does for ordinary names.
			scope, _ := s.Scope.(*symbols.Scope)
			if _, ok := symbols.ResolveLabel(scope, s.Label); !ok {
				lz.sink.Error(diagnostics.ErrS002UnresolvedLabel, s.Line, "no visible label %q for goto", s.Label.String())
			}
			b = lz.labelBlock(proc, s.Label)
		}
		lz.emitBr(proc, b)
		proc.SetCurrent(proc.NewBlock()) // dead block for any trailing statements
		return nil
	case *ast.FunctionDecl:
		return lz.lowerFunctionDecl(proc, s)
	default:
		return nil
	}
}

// chainTo emits a fallthrough branch from the current block into next,
// unless the current block has already been terminated by a return or
// branch (spec §4.5 "every block ends in an explicit branch, call-with-
// return, or return"). An empty current block (e.g. an empty if-arm body)
// still needs this fallthrough branch — only a block that already ends in
// a terminator is skipped.
func (lz *Linearizer) chainTo(proc *ir.Procedure, next *ir.BasicBlock) {
	if cur := proc.Current(); cur != nil && !endsInTerminator(cur) {
		lz.emitBr(proc, next)
	}
}

func (lz *Linearizer) emitBr(proc *ir.Procedure, target *ir.BasicBlock) {
	ins := proc.Emit(ir.OpBr)
	ins.AddArg(ir.BlockPseudo(target))
}

func (lz *Linearizer) lowerReturn(proc *ir.Procedure, s *ast.Return) error {
	var vals []*ir.Pseudo
	for i, v := range s.Values {
		var ps *ir.Pseudo
		var err error
		if i == len(s.Values)-1 {
			// The trailing return value forwards a nested call's full range
			// uncollapsed (spec §4.5 "return passthrough"); every earlier
			// value is a single value.
			ps, err = lz.lowerExprMulti(proc, v)
		} else {
			ps, err = lz.lowerExpr(proc, v)
		}
		if err != nil {
			return err
		}
		vals = append(vals, ps)
	}
	ins := proc.Emit(ir.OpRet)
	for _, v := range vals {
		ins.AddArg(v)
	}
	proc.SetCurrent(proc.NewBlock()) // dead block: nothing follows a return in its block
	return nil
}

// lowerLocal lowers a `local` declaration. A table-literal initializer for
// a typed-array local (integer[]/number[]) is constructed directly with
// the typed-array opcodes (spec §8 scenario 6) rather than as a generic
// table followed by a coercion; every other initializer is evaluated
// left-to-right and then assigned with emitAssign's usual coercion rule.
func (lz *Linearizer) lowerLocal(proc *ir.Procedure, s *ast.Local) error {
	for i, v := range s.Vars {
		sym := lz.findLocalSymbol(proc, v.Name)
		if i >= len(s.Values) {
			if sym == nil {
				continue
			}
			target := lz.allocForSymbol(proc, sym)
			ins := proc.Emit(ir.OpMov)
			ins.AddArg(ir.NilPseudo())
			ins.AddTarget(target)
			continue
		}
		val := s.Values[i]
		if sym != nil {
			if lit, ok := val.(*ast.TableLiteral); ok {
				if _, _, elem, ok := arrayOps(sym.Type.Tag); ok {
					target := lz.allocForSymbol(proc, sym)
					if err := lz.lowerArrayLiteralInto(proc, target, lit, elem); err != nil {
						return err
					}
					continue
				}
			}
		}
		ps, err := lz.lowerExpr(proc, val)
		if err != nil {
			return err
		}
		if sym == nil {
			continue
		}
		target := lz.allocForSymbol(proc, sym)
		lz.emitAssign(proc, target, sym.Type, ps)
	}
	return nil
}

// findLocalSymbol finds the Symbol the parser declared for a local-var
// name at the current lowering point. Since the parser already resolved
// every name reference, declarations are recovered from the owning
// function's Locals list (last-declared-with-this-name wins, matching
// declaration order == lowering order within one Local statement list).
func (lz *Linearizer) findLocalSymbol(proc *ir.Procedure, name *strpool.String) *symbols.Symbol {
	for i := len(proc.Source.Locals) - 1; i >= 0; i-- {
		sym := proc.Source.Locals[i]
		if sym.Name == name && sym.Pseudo == -1 {
			return sym
		}
	}
	return nil
}

// emitAssign moves src into target, inserting the type-coercion opcode
// spec §4.5 specifies when target's static type differs from src's
// apparent numeric class (int/float cross-assignment).
func (lz *Linearizer) emitAssign(proc *ir.Procedure, target *ir.Pseudo, targetType types.T, src *ir.Pseudo) {
	op := ir.OpMov
	switch targetType.Tag {
	case types.Integer:
		if srcIsFloat(src) {
			op = ir.OpMovFI
		} else {
			op = ir.OpMovI
		}
	case types.Number:
		if srcIsInt(src) {
			op = ir.OpMovIF
		} else {
			op = ir.OpMovF
		}
	}
	ins := proc.Emit(op)
	ins.AddArg(src)
	ins.AddTarget(target)
}

func srcIsInt(ps *ir.Pseudo) bool {
	return ps.Kind == ir.PTempInt || (ps.Kind == ir.PConstant && ps.ConstType == types.Integer)
}
func srcIsFloat(ps *ir.Pseudo) bool {
	return ps.Kind == ir.PTempNumber || (ps.Kind == ir.PConstant && ps.ConstType == types.Number)
}

func (lz *Linearizer) lowerExprStatement(proc *ir.Procedure, s *ast.ExprStatement) error {
	if len(s.Lhs) == 0 {
		_, err := lz.lowerExpr(proc, s.Expr)
		return err
	}
	var vals []*ir.Pseudo
	for _, v := range s.Rhs {
		ps, err := lz.lowerExpr(proc, v)
		if err != nil {
			return err
		}
		vals = append(vals, ps)
	}
	for i, target := range s.Lhs {
		var v *ir.Pseudo
		if i < len(vals) {
			v = vals[i]
		} else {
			v = ir.NilPseudo()
		}
		if err := lz.lowerAssignTo(proc, target, v); err != nil {
			return err
		}
	}
	return nil
}

// lowerAssignTo stores v into the location named by target, which is a
// SymbolRef, FieldSelector/YIndex (bare or inside a Suffixed chain).
func (lz *Linearizer) lowerAssignTo(proc *ir.Procedure, target ast.Node, v *ir.Pseudo) error {
	switch t := target.(type) {
	case *ast.SymbolRef:
		sym, _ := t.Sym.(*symbols.Symbol)
		if sym == nil {
			return nil
		}
		if sym.Pseudo == -1 {
			lz.allocForSymbol(proc, sym)
		}
		lz.emitAssign(proc, ir.SymbolPseudo(sym), sym.Type, v)
		return nil
	case *ast.Suffixed:
		recv, err := lz.lowerExpr(proc, t.Primary)
		if err != nil {
			return err
		}
		for i, stepNode := range t.Steps {
			last := i == len(t.Steps)-1
			switch step := stepNode.(type) {
			case *ast.FieldSelector:
				if last {
					ins := proc.Emit(ir.OpTPutSKey)
					ins.AddArg(recv)
					ins.AddArg(lz.fieldKeyPseudo(proc, step.Field))
					ins.AddArg(v)
					return nil
				}
				recv = lz.lowerFieldGet(proc, recv, step.Field)
			case *ast.YIndex:
				key, err := lz.lowerExpr(proc, step.Key)
				if err != nil {
					return err
				}
				if last {
					if i == 0 {
						if _, put, _, ok := arrayOps(staticTag(t.Primary)); ok {
							ins := proc.Emit(put)
							ins.AddArg(recv)
							ins.AddArg(key)
							ins.AddArg(v)
							return nil
						}
					}
					ins := proc.Emit(ir.OpTPutIKey)
					ins.AddArg(recv)
					ins.AddArg(key)
					ins.AddArg(v)
					return nil
				}
				dst := proc.AllocTempAny()
				ins := proc.Emit(ir.OpTGetIKey)
				ins.AddArg(recv)
				ins.AddArg(key)
				ins.AddTarget(dst)
				recv = dst
			default:
				// a Call in the middle of an assignment target is
				// not a valid lvalue; nothing to emit.
			}
		}
		return nil
	default:
		return nil
	}
}

// fieldKeyPseudo builds a string-constant pseudo for a `.name` field key.
func (lz *Linearizer) fieldKeyPseudo(proc *ir.Procedure, name *strpool.String) *ir.Pseudo {
	idx := proc.Consts.Str(name)
	return ir.ConstantPseudo(idx, types.String)
}

// lowerFieldGet emits tget_skey for an intermediate `.name` step in an
// assignment-target chain, returning the resulting table pseudo.
func (lz *Linearizer) lowerFieldGet(proc *ir.Procedure, recv *ir.Pseudo, field *strpool.String) *ir.Pseudo {
	dst := proc.AllocTempAny()
	ins := proc.Emit(ir.OpTGetSKey)
	ins.AddArg(recv)
	ins.AddArg(lz.fieldKeyPseudo(proc, field))
	ins.AddTarget(dst)
	return dst
}

func (lz *Linearizer) lowerFunctionDecl(proc *ir.Procedure, s *ast.FunctionDecl) error {
	childProc := lz.lowerFunction(s.Fn, proc)
	ps := proc.AllocTempAny()
	ins := proc.Emit(ir.OpClosure)
	ins.AddArg(ir.ProcedurePseudo(childProc))
	ins.AddTarget(ps)
	return lz.lowerAssignTo(proc, s.Target, ps)
}
