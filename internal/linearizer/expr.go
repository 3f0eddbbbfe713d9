package linearizer

import (
	"github.com/vela-lang/velac/internal/ast"
	"github.com/vela-lang/velac/internal/diagnostics"
	"github.com/vela-lang/velac/internal/ir"
	"github.com/vela-lang/velac/internal/symbols"
	"github.com/vela-lang/velac/internal/types"
)

// lowerExpr lowers n to a single pseudo holding its value, emitting
// whatever instructions are needed into proc's current block.
func (lz *Linearizer) lowerExpr(proc *ir.Procedure, n ast.Node) (*ir.Pseudo, error) {
	switch e := n.(type) {
	case *ast.Literal:
		return lz.lowerLiteral(proc, e), nil
	case *ast.SymbolRef:
		return lz.lowerSymbolRef(proc, e), nil
	case *ast.Vararg:
		// The parser rejects '...' at expression position outright (spec §9
		// Open Question 1: the intended lowering is unspecified, so this is
		// unimplemented rather than guessed at), so this case is never
		// reached in practice; it stays defensive rather than allocating an
		// uninitialized pseudo for some future caller that builds an
		// ast.Vararg node directly.
		return nil, lz.sink.Error(diagnostics.ErrP004InvalidVararg, e.Line, "'...' is not supported in expression position")
	case *ast.Unary:
		return lz.lowerUnary(proc, e)
	case *ast.Binary:
		return lz.lowerBinary(proc, e)
	case *ast.TableLiteral:
		return lz.lowerTableLiteral(proc, e)
	case *ast.FunctionExpr:
		child := lz.lowerFunction(e, proc)
		dst := proc.AllocTempAny()
		ins := proc.Emit(ir.OpClosure)
		ins.AddArg(ir.ProcedurePseudo(child))
		ins.AddTarget(dst)
		return dst, nil
	case *ast.Suffixed:
		return lz.lowerSuffixed(proc, e)
	case *ast.YIndex:
		return lz.lowerYIndexRead(proc, e)
	case *ast.FieldSelector:
		return lz.lowerFieldSelectorRead(proc, e)
	case *ast.Call:
		ps, err := lz.lowerCallExpr(proc, nil, e)
		if err != nil {
			return nil, err
		}
		return lz.valueOf(proc, ps), nil
	default:
		return proc.AllocTempAny(), nil
	}
}

func (lz *Linearizer) lowerLiteral(proc *ir.Procedure, l *ast.Literal) *ir.Pseudo {
	switch l.Kind {
	case types.Nil:
		return ir.NilPseudo()
	case types.Boolean:
		if l.Bool {
			return ir.TruePseudo()
		}
		return ir.FalsePseudo()
	case types.Integer:
		return ir.ConstantPseudo(proc.Consts.Int(l.Int), types.Integer)
	case types.Number:
		return ir.ConstantPseudo(proc.Consts.Float(l.Flt), types.Number)
	case types.String:
		return ir.ConstantPseudo(proc.Consts.Str(l.Str), types.String)
	default:
		return ir.NilPseudo()
	}
}

func (lz *Linearizer) lowerSymbolRef(proc *ir.Procedure, ref *ast.SymbolRef) *ir.Pseudo {
	sym, _ := ref.Sym.(*symbols.Symbol)
	if sym == nil {
		return proc.AllocTempAny()
	}
	if sym.Kind == symbols.KindLocal && sym.Pseudo == -1 {
		lz.allocForSymbol(proc, sym)
	}
	return ir.SymbolPseudo(sym)
}

func (lz *Linearizer) lowerUnary(proc *ir.Procedure, u *ast.Unary) (*ir.Pseudo, error) {
	operand, err := lz.lowerExpr(proc, u.Operand)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case ast.UnaryNot:
		dst := proc.AllocTempBoolean()
		ins := proc.Emit(ir.OpNot)
		ins.AddArg(operand)
		ins.AddTarget(dst)
		return dst, nil
	case ast.UnaryNeg:
		if staticTag(u.Operand) == types.Integer {
			dst := proc.AllocTempInt()
			ins := proc.Emit(ir.OpUnmI)
			ins.AddArg(operand)
			ins.AddTarget(dst)
			return dst, nil
		}
		if staticTag(u.Operand) == types.Number {
			dst := proc.AllocTempNumber()
			ins := proc.Emit(ir.OpUnmF)
			ins.AddArg(operand)
			ins.AddTarget(dst)
			return dst, nil
		}
		dst := proc.AllocTempAny()
		ins := proc.Emit(ir.OpUnm)
		ins.AddArg(operand)
		ins.AddTarget(dst)
		return dst, nil
	case ast.UnaryBNot:
		if staticTag(u.Operand) == types.Integer {
			dst := proc.AllocTempInt()
			ins := proc.Emit(ir.OpBNotI)
			ins.AddArg(operand)
			ins.AddTarget(dst)
			return dst, nil
		}
		dst := proc.AllocTempAny()
		ins := proc.Emit(ir.OpBNot)
		ins.AddArg(operand)
		ins.AddTarget(dst)
		return dst, nil
	case ast.UnaryLen:
		if staticTag(u.Operand) == types.String || staticTag(u.Operand) == types.IntegerArray || staticTag(u.Operand) == types.NumberArray {
			dst := proc.AllocTempInt()
			ins := proc.Emit(ir.OpLenI)
			ins.AddArg(operand)
			ins.AddTarget(dst)
			return dst, nil
		}
		dst := proc.AllocTempAny()
		ins := proc.Emit(ir.OpLen)
		ins.AddArg(operand)
		ins.AddTarget(dst)
		return dst, nil
	case ast.UnaryCoerce:
		return lz.lowerCoerce(proc, operand, u.CoerceTo), nil
	default:
		return operand, nil
	}
}

func (lz *Linearizer) lowerCoerce(proc *ir.Procedure, src *ir.Pseudo, to types.T) *ir.Pseudo {
	var op ir.Opcode
	var dst *ir.Pseudo
	switch to.Tag {
	case types.Integer:
		op, dst = ir.OpToInt, proc.AllocTempInt()
	case types.Number:
		op, dst = ir.OpToFlt, proc.AllocTempNumber()
	case types.String:
		op, dst = ir.OpToString, proc.AllocTempAny()
	case types.Function:
		op, dst = ir.OpToClosure, proc.AllocTempAny()
	case types.IntegerArray:
		op, dst = ir.OpToIArray, proc.AllocTempAny()
	case types.NumberArray:
		op, dst = ir.OpToFArray, proc.AllocTempAny()
	case types.Table:
		op, dst = ir.OpToTable, proc.AllocTempAny()
	default:
		op, dst = ir.OpToType, proc.AllocTempAny()
	}
	ins := proc.Emit(op)
	ins.AddArg(src)
	ins.AddTarget(dst)
	return dst
}

// staticTag makes a best-effort guess at an expression's static type tag
// from what the parser already recorded (literal kind or a resolved
// symbol's declared type), used only to pick the type-specialized opcode
// variant; operands whose type cannot be determined this way fall back to
// the generic (spec §4.5 "any" / runtime-dispatched) opcode.
func staticTag(n ast.Node) types.Tag {
	switch e := n.(type) {
	case *ast.Literal:
		return e.Kind
	case *ast.SymbolRef:
		if sym, ok := e.Sym.(*symbols.Symbol); ok {
			return sym.Type.Tag
		}
	case *ast.Binary:
		_, k := selectArithOpcode(e.Op, staticTag(e.Left), staticTag(e.Right))
		return k
	case *ast.Unary:
		if e.Op == ast.UnaryCoerce {
			return e.CoerceTo.Tag
		}
		return staticTag(e.Operand)
	}
	return types.Any
}

func (lz *Linearizer) lowerBinary(proc *ir.Procedure, b *ast.Binary) (*ir.Pseudo, error) {
	if b.Op == ast.BinAnd || b.Op == ast.BinOr {
		return lz.lowerShortCircuit(proc, b)
	}
	left, err := lz.lowerExpr(proc, b.Left)
	if err != nil {
		return nil, err
	}
	right, err := lz.lowerExpr(proc, b.Right)
	if err != nil {
		return nil, err
	}
	lt, rt := staticTag(b.Left), staticTag(b.Right)
	op, dstKind := selectArithOpcode(b.Op, lt, rt)
	var dst *ir.Pseudo
	switch dstKind {
	case types.Integer:
		dst = proc.AllocTempInt()
	case types.Number:
		dst = proc.AllocTempNumber()
	case types.Boolean:
		dst = proc.AllocTempBoolean()
	default:
		dst = proc.AllocTempAny()
	}
	if b.Op == ast.BinGt || b.Op == ast.BinGe {
		left, right = right, left // a > b is b < a; a >= b is b <= a
	}
	ins := proc.Emit(op)
	ins.AddArg(left)
	ins.AddArg(right)
	ins.AddTarget(dst)
	return dst, nil
}

// lowerShortCircuit lowers 'and'/'or' with their short-circuit control flow
// rather than as plain value operators (spec precedence table lists them
// among the binary operators, but their evaluation order skips the right
// operand when the left side already determines the result).
func (lz *Linearizer) lowerShortCircuit(proc *ir.Procedure, b *ast.Binary) (*ir.Pseudo, error) {
	left, err := lz.lowerExpr(proc, b.Left)
	if err != nil {
		return nil, err
	}
	dst := proc.AllocTempAny()
	ins := proc.Emit(ir.OpMov)
	ins.AddArg(left)
	ins.AddTarget(dst)

	rhsBlk := proc.NewBlock()
	joinBlk := proc.NewBlock()
	cbr := proc.Emit(ir.OpCBr)
	cbr.AddArg(left)
	if b.Op == ast.BinAnd {
		cbr.AddArg(ir.BlockPseudo(rhsBlk))
		cbr.AddArg(ir.BlockPseudo(joinBlk))
	} else {
		cbr.AddArg(ir.BlockPseudo(joinBlk))
		cbr.AddArg(ir.BlockPseudo(rhsBlk))
	}

	proc.SetCurrent(rhsBlk)
	right, err := lz.lowerExpr(proc, b.Right)
	if err != nil {
		return nil, err
	}
	mv := proc.Emit(ir.OpMov)
	mv.AddArg(right)
	mv.AddTarget(dst)
	lz.chainTo(proc, joinBlk)

	proc.SetCurrent(joinBlk)
	return dst, nil
}

// selectArithOpcode picks the type-specialized opcode variant for a
// numeric/comparison/bitwise operator per operand static types (spec
// §4.5's opcode table: "ii"/"ff"/"fi"/"if" suffixes), falling back to the
// generic runtime-dispatched opcode when either operand's type is unknown.
func selectArithOpcode(op ast.BinaryOp, lt, rt types.Tag) (ir.Opcode, types.Tag) {
	bothInt := lt == types.Integer && rt == types.Integer
	bothNum := (lt == types.Integer || lt == types.Number) && (rt == types.Integer || rt == types.Number)
	ltFlt, rtFlt := lt == types.Number, rt == types.Number

	switch op {
	case ast.BinAdd:
		switch {
		case bothInt:
			return ir.OpAddII, types.Integer
		case ltFlt && rtFlt:
			return ir.OpAddFF, types.Number
		case ltFlt && bothNum:
			return ir.OpAddFI, types.Number
		case rtFlt && bothNum:
			return ir.OpAddIF, types.Number
		}
		return ir.OpAdd, types.Any
	case ast.BinSub:
		switch {
		case bothInt:
			return ir.OpSubII, types.Integer
		case ltFlt && rtFlt:
			return ir.OpSubFF, types.Number
		case ltFlt && bothNum:
			return ir.OpSubFI, types.Number
		case rtFlt && bothNum:
			return ir.OpSubIF, types.Number
		}
		return ir.OpSub, types.Any
	case ast.BinMul:
		switch {
		case bothInt:
			return ir.OpMulII, types.Integer
		case ltFlt && rtFlt:
			return ir.OpMulFF, types.Number
		case ltFlt && bothNum:
			return ir.OpMulFI, types.Number
		case rtFlt && bothNum:
			return ir.OpMulIF, types.Number
		}
		return ir.OpMul, types.Any
	case ast.BinDiv:
		if bothNum {
			return ir.OpDivFF, types.Number
		}
		return ir.OpDiv, types.Any
	case ast.BinIDiv:
		switch {
		case bothInt:
			return ir.OpIDivII, types.Integer
		case bothNum:
			return ir.OpIDivFF, types.Number
		}
		return ir.OpIDiv, types.Any
	case ast.BinMod:
		switch {
		case bothInt:
			return ir.OpModII, types.Integer
		case bothNum:
			return ir.OpModFF, types.Number
		}
		return ir.OpMod, types.Any
	case ast.BinPow:
		return ir.OpPow, types.Number
	case ast.BinEq:
		if bothInt {
			return ir.OpEqII, types.Boolean
		}
		if bothNum {
			return ir.OpEqFF, types.Boolean
		}
		return ir.OpEq, types.Boolean
	case ast.BinNe:
		if bothInt {
			return ir.OpEqII, types.Boolean
		}
		if bothNum {
			return ir.OpEqFF, types.Boolean
		}
		return ir.OpEq, types.Boolean
	case ast.BinLt:
		if bothInt {
			return ir.OpLtII, types.Boolean
		}
		if bothNum {
			return ir.OpLtFF, types.Boolean
		}
		return ir.OpLt, types.Boolean
	case ast.BinLe:
		if bothInt {
			return ir.OpLeII, types.Boolean
		}
		if bothNum {
			return ir.OpLeFF, types.Boolean
		}
		return ir.OpLe, types.Boolean
	case ast.BinGt:
		if bothInt {
			return ir.OpLtII, types.Boolean // a > b lowers as swapped lt
		}
		if bothNum {
			return ir.OpLtFF, types.Boolean
		}
		return ir.OpLt, types.Boolean
	case ast.BinGe:
		if bothInt {
			return ir.OpLeII, types.Boolean // a >= b lowers as swapped le
		}
		if bothNum {
			return ir.OpLeFF, types.Boolean
		}
		return ir.OpLe, types.Boolean
	case ast.BinBAnd:
		if bothInt {
			return ir.OpBAndII, types.Integer
		}
		return ir.OpBAnd, types.Any
	case ast.BinBOr:
		if bothInt {
			return ir.OpBOrII, types.Integer
		}
		return ir.OpBOr, types.Any
	case ast.BinBXor:
		if bothInt {
			return ir.OpBXorII, types.Integer
		}
		return ir.OpBXor, types.Any
	case ast.BinShl:
		if bothInt {
			return ir.OpShlII, types.Integer
		}
		return ir.OpShl, types.Any
	case ast.BinShr:
		if bothInt {
			return ir.OpShrII, types.Integer
		}
		return ir.OpShr, types.Any
	case ast.BinConcat:
		return ir.OpConcat, types.Any
	default:
		return ir.OpAdd, types.Any
	}
}

// arrayOps returns the typed-array-specialized get/put opcodes and element
// type for recvTag, per spec §4.5 "Table/array access opcodes split three
// ways based on the receiver's static type ... typed-array-specialized
// (iaget/iaput for integer-arrays, faget/faput for number-arrays)". ok is
// false for any receiver type other than the two typed arrays, telling the
// caller to fall back to the generic/table opcodes.
func arrayOps(recvTag types.Tag) (get, put ir.Opcode, elem types.Tag, ok bool) {
	switch recvTag {
	case types.IntegerArray:
		return ir.OpIAGetIKey, ir.OpIAPutIVal, types.Integer, true
	case types.NumberArray:
		return ir.OpFAGetIKey, ir.OpFAPutFVal, types.Number, true
	default:
		return "", "", types.Any, false
	}
}

// lowerArrayLiteralInto lowers a `{...}` table-literal initializer for a
// typed-array local directly into dst, emitting newiarray/newfarray plus
// one iaput_ival/faput_fval per positional field (spec §8 scenario 6:
// "local t:integer[] = {}; ... Expected: newiarray, iaput_ival for the
// store"). Keyed fields are not valid for typed arrays and are skipped.
func (lz *Linearizer) lowerArrayLiteralInto(proc *ir.Procedure, dst *ir.Pseudo, t *ast.TableLiteral, elem types.Tag) error {
	newOp := ir.OpNewIArray
	putOp := ir.OpIAPutIVal
	if elem == types.Number {
		newOp = ir.OpNewFArray
		putOp = ir.OpFAPutFVal
	}
	proc.Emit(newOp).AddTarget(dst)
	pos := int64(1)
	for _, f := range t.Fields {
		if f.Key != nil {
			continue
		}
		value, err := lz.lowerExpr(proc, f.Value)
		if err != nil {
			return err
		}
		ins := proc.Emit(putOp)
		ins.AddArg(dst)
		ins.AddArg(ir.ConstantPseudo(proc.Consts.Int(pos), types.Integer))
		ins.AddArg(value)
		pos++
	}
	return nil
}

func (lz *Linearizer) lowerTableLiteral(proc *ir.Procedure, t *ast.TableLiteral) (*ir.Pseudo, error) {
	dst := proc.AllocTempAny()
	proc.Emit(ir.OpNewTable).AddTarget(dst)
	pos := int64(0)
	for _, f := range t.Fields {
		value, err := lz.lowerExpr(proc, f.Value)
		if err != nil {
			return nil, err
		}
		if f.Key == nil {
			ins := proc.Emit(ir.OpTPutIKey)
			ins.AddArg(dst)
			ins.AddArg(ir.ConstantPseudo(proc.Consts.Int(pos), types.Integer))
			ins.AddArg(value)
			pos++
			continue
		}
		if lit, ok := f.Key.(*ast.Literal); ok && lit.Kind == types.String {
			ins := proc.Emit(ir.OpTPutSKey)
			ins.AddArg(dst)
			ins.AddArg(ir.ConstantPseudo(proc.Consts.Str(lit.Str), types.String))
			ins.AddArg(value)
			continue
		}
		key, err := lz.lowerExpr(proc, f.Key)
		if err != nil {
			return nil, err
		}
		ins := proc.Emit(ir.OpTPutIKey)
		ins.AddArg(dst)
		ins.AddArg(key)
		ins.AddArg(value)
	}
	return dst, nil
}

func (lz *Linearizer) lowerYIndexRead(proc *ir.Procedure, e *ast.YIndex) (*ir.Pseudo, error) {
	recv, err := lz.lowerExpr(proc, e.Receiver)
	if err != nil {
		return nil, err
	}
	key, err := lz.lowerExpr(proc, e.Key)
	if err != nil {
		return nil, err
	}
	if get, _, elem, ok := arrayOps(staticTag(e.Receiver)); ok {
		var dst *ir.Pseudo
		if elem == types.Integer {
			dst = proc.AllocTempInt()
		} else {
			dst = proc.AllocTempNumber()
		}
		ins := proc.Emit(get)
		ins.AddArg(recv)
		ins.AddArg(key)
		ins.AddTarget(dst)
		return dst, nil
	}
	dst := proc.AllocTempAny()
	ins := proc.Emit(ir.OpTGetIKey)
	ins.AddArg(recv)
	ins.AddArg(key)
	ins.AddTarget(dst)
	return dst, nil
}

func (lz *Linearizer) lowerFieldSelectorRead(proc *ir.Procedure, e *ast.FieldSelector) (*ir.Pseudo, error) {
	recv, err := lz.lowerExpr(proc, e.Receiver)
	if err != nil {
		return nil, err
	}
	return lz.lowerFieldGet(proc, recv, e.Field), nil
}

// lowerSuffixed walks a chain of FieldSelector/YIndex/Call steps over a
// primary expression, threading the running receiver/callee through each
// step (spec §4.5 "suffixed expressions lower left to right, each step's
// receiver is the previous step's result").
func (lz *Linearizer) lowerSuffixed(proc *ir.Procedure, s *ast.Suffixed) (*ir.Pseudo, error) {
	cur, err := lz.lowerSuffixedRaw(proc, s)
	if err != nil {
		return nil, err
	}
	return lz.valueOf(proc, cur), nil
}

// lowerSuffixedRaw lowers s like lowerSuffixed but leaves a trailing call
// step's result uncollapsed, so lowerExprMulti can forward its range pseudo
// intact (spec §4.5 "the consumer ... consumes the full range": return
// passthrough and variadic argument propagation both need the raw range of
// a chain's final call, e.g. `return obj:method()`). Every step that isn't
// the chain's last one still collapses to a single value immediately,
// since it's consumed as a receiver for the next step, never as a result.
func (lz *Linearizer) lowerSuffixedRaw(proc *ir.Procedure, s *ast.Suffixed) (*ir.Pseudo, error) {
	cur, err := lz.lowerExpr(proc, s.Primary)
	if err != nil {
		return nil, err
	}
	for i, stepNode := range s.Steps {
		last := i == len(s.Steps)-1
		switch step := stepNode.(type) {
		case *ast.FieldSelector:
			cur = lz.lowerFieldGet(proc, cur, step.Field)
		case *ast.YIndex:
			key, err := lz.lowerExpr(proc, step.Key)
			if err != nil {
				return nil, err
			}
			getOp := ir.OpTGetIKey
			var dst *ir.Pseudo
			if get, _, elem, ok := arrayOps(staticTag(s.Primary)); ok && i == 0 {
				getOp = get
				if elem == types.Integer {
					dst = proc.AllocTempInt()
				} else {
					dst = proc.AllocTempNumber()
				}
			} else {
				dst = proc.AllocTempAny()
			}
			ins := proc.Emit(getOp)
			ins.AddArg(cur)
			ins.AddArg(key)
			ins.AddTarget(dst)
			cur = dst
		case *ast.Call:
			cur, err = lz.lowerCallExpr(proc, cur, step)
			if err != nil {
				return nil, err
			}
			if !last {
				cur = lz.valueOf(proc, cur)
			}
		}
	}
	return cur, nil
}

// lowerExprMulti lowers n like lowerExpr but, when n is a call (directly or
// as the last step of a suffixed chain), returns the call's raw range
// pseudo instead of collapsing it to a single value — for the two
// full-range consumption contexts spec §4.5 names: a return statement's
// trailing value (passthrough) and a call's trailing argument (variadic
// argument propagation). Every other node kind is inherently single-valued,
// so this just delegates to lowerExpr.
func (lz *Linearizer) lowerExprMulti(proc *ir.Procedure, n ast.Node) (*ir.Pseudo, error) {
	switch e := n.(type) {
	case *ast.Call:
		return lz.lowerCallExpr(proc, nil, e)
	case *ast.Suffixed:
		return lz.lowerSuffixedRaw(proc, e)
	default:
		return lz.lowerExpr(proc, n)
	}
}

// valueOf collapses a multi-return range pseudo down to its first value via
// an explicit range-select (spec §4.5 "the consumer either selects a
// specific return via range-select or consumes the full range"). Every
// single-value expression context funnels a call's result through this.
func (lz *Linearizer) valueOf(proc *ir.Procedure, ps *ir.Pseudo) *ir.Pseudo {
	if ps.Kind != ir.PRange {
		return ps
	}
	dst := proc.AllocTempAny()
	ins := proc.Emit(ir.OpSelect)
	ins.AddArg(ir.RangeSelectPseudo(ps, 0))
	ins.AddTarget(dst)
	return dst
}

// lowerCallExpr lowers a call step. When receiver is non-nil and
// call.Method is set, this is a method call (spec §4.5 "method calls
// desugar to a regular call with the receiver prepended as the first
// argument and the callee resolved via field lookup").
func (lz *Linearizer) lowerCallExpr(proc *ir.Procedure, receiver *ir.Pseudo, call *ast.Call) (*ir.Pseudo, error) {
	var callee *ir.Pseudo
	var args []*ir.Pseudo

	if call.Method != nil {
		callee = lz.lowerFieldGet(proc, receiver, call.Method)
		args = append(args, receiver)
	} else if receiver != nil {
		callee = receiver
	} else {
		var err error
		callee, err = lz.lowerExpr(proc, call.Callee)
		if err != nil {
			return nil, err
		}
	}
	for i, a := range call.Args {
		var ps *ir.Pseudo
		var err error
		if i == len(call.Args)-1 {
			// The trailing argument forwards a nested call's full range
			// uncollapsed (spec §4.5 "variadic argument propagation"); every
			// earlier argument is a single value.
			ps, err = lz.lowerExprMulti(proc, a)
		} else {
			ps, err = lz.lowerExpr(proc, a)
		}
		if err != nil {
			return nil, err
		}
		args = append(args, ps)
	}
	// A call's result is itself a range (spec §3 "range — a contiguous
	// register range"; spec §4.5 "a call produces a range pseudo for
	// multi-return"). Callers that need exactly one value collapse it via
	// valueOf; lowerExprMulti forwards it raw for return passthrough and
	// variadic argument propagation.
	dst := proc.AllocRange()
	ins := proc.Emit(ir.OpCall)
	ins.AddArg(callee)
	for _, a := range args {
		ins.AddArg(a)
	}
	ins.AddTarget(dst)
	return dst, nil
}
