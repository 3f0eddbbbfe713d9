// Package ir implements the typed intermediate representation from spec
// §3 ("Procedure", "Basic block", "Instruction", "Pseudo") and the opcode
// table referenced throughout spec §4.5. Operand/target pseudo sequences
// use the ilist toolkit (spec §2 "operands"); basic blocks and procedures
// use plain slices, since they are append-only and never need mid-sequence
// removal the way operand lists conceptually could.
package ir

import (
	"github.com/vela-lang/velac/internal/arena"
	"github.com/vela-lang/velac/internal/ilist"
	"github.com/vela-lang/velac/internal/strpool"
	"github.com/vela-lang/velac/internal/symbols"
	"github.com/vela-lang/velac/internal/types"
)

// Opcode names every instruction shape the linearizer emits. Names mirror
// spec §4.5 exactly, including the type-specialized suffixes ("ii"/"ff"/
// "fi"/"if") and the key-type suffixes ("_ikey"/"_skey").
type Opcode string

const (
	OpMov   Opcode = "mov"
	OpMovI  Opcode = "movi"
	OpMovF  Opcode = "movf"
	OpMovIF Opcode = "movif"
	OpMovFI Opcode = "movfi"

	OpAdd   Opcode = "add"
	OpAddII Opcode = "addii"
	OpAddFF Opcode = "addff"
	OpAddFI Opcode = "addfi"
	OpAddIF Opcode = "addif"

	OpSub   Opcode = "sub"
	OpSubII Opcode = "subii"
	OpSubFF Opcode = "subff"
	OpSubFI Opcode = "subfi"
	OpSubIF Opcode = "subif"

	OpMul   Opcode = "mul"
	OpMulII Opcode = "mulii"
	OpMulFF Opcode = "mulff"
	OpMulFI Opcode = "mulfi"
	OpMulIF Opcode = "mulif"

	OpDiv   Opcode = "div"
	OpDivFF Opcode = "divff"

	OpIDiv   Opcode = "idiv"
	OpIDivII Opcode = "idivii"
	OpIDivFF Opcode = "idivff"

	OpMod   Opcode = "mod"
	OpModII Opcode = "modii"
	OpModFF Opcode = "modff"

	OpPow Opcode = "pow" // always produces number

	OpEq   Opcode = "eq"
	OpEqII Opcode = "eqii"
	OpEqFF Opcode = "eqff"
	OpLt   Opcode = "lt"
	OpLtII Opcode = "ltii"
	OpLtFF Opcode = "ltff"
	OpLe   Opcode = "le"
	OpLeII Opcode = "leii"
	OpLeFF Opcode = "leff"

	OpBAnd   Opcode = "band"
	OpBAndII Opcode = "bandii"
	OpBOr    Opcode = "bor"
	OpBOrII  Opcode = "borii"
	OpBXor   Opcode = "bxor"
	OpBXorII Opcode = "bxorii"
	OpShl    Opcode = "shl"
	OpShlII  Opcode = "shlii"
	OpShr    Opcode = "shr"
	OpShrII  Opcode = "shrii"

	OpUnm  Opcode = "unm"
	OpUnmI Opcode = "unmi"
	OpUnmF Opcode = "unmf"

	OpLen  Opcode = "len"
	OpLenI Opcode = "leni"

	OpNot   Opcode = "not"
	OpBNot  Opcode = "bnot"
	OpBNotI Opcode = "bnoti"

	OpConcat Opcode = "concat"

	OpGet Opcode = "get"
	OpPut Opcode = "put"

	OpTGetIKey Opcode = "tget_ikey"
	OpTGetSKey Opcode = "tget_skey"
	OpTPutIKey Opcode = "tput_ikey"
	OpTPutSKey Opcode = "tput_skey"

	OpNewTable  Opcode = "newtable"
	OpNewIArray Opcode = "newiarray"
	OpNewFArray Opcode = "newfarray"

	OpIAGetIKey Opcode = "iaget_ikey"
	OpIAPutIVal Opcode = "iaput_ival"
	OpFAGetIKey Opcode = "faget_ikey"
	OpFAPutFVal Opcode = "faput_fval"

	OpToInt     Opcode = "toint"
	OpToFlt     Opcode = "toflt"
	OpToString  Opcode = "tostring"
	OpToClosure Opcode = "toclosure"
	OpToIArray  Opcode = "toiarray"
	OpToFArray  Opcode = "tofarray"
	OpToTable   Opcode = "totable"
	OpToType    Opcode = "totype"

	OpClosure Opcode = "op_closure"

	OpBr  Opcode = "br"
	OpCBr Opcode = "cbr"
	OpRet Opcode = "ret"
	OpCall Opcode = "call"

	OpSelect Opcode = "select" // pick one register from a range (range-select)
)

// PseudoKind is the tag of the Pseudo variant (spec §3 "Pseudo (virtual
// operand)").
type PseudoKind int

const (
	PSymbol PseudoKind = iota
	PTempInt
	PTempNumber
	PTempBoolean
	PTempAny
	PConstant
	PProcedure
	PNil
	PTrue
	PFalse
	PBlock
	PRange
	PRangeSelect
	PStack
)

// Pseudo is the virtual operand union from spec §3. Which fields apply
// depends on Kind.
type Pseudo struct {
	Kind PseudoKind

	Sym *symbols.Symbol // PSymbol

	Reg int // PTempInt / PTempNumber / PTempBoolean / PTempAny

	ConstIdx  int       // PConstant
	ConstType types.Tag // PConstant: integer, number, or string

	Proc *Procedure // PProcedure

	Block *BasicBlock // PBlock

	RangeStart int // PRange: stack offset of the first register in the range

	RangeOf    *Pseudo // PRangeSelect: the range this selects from
	RangeIndex int     // PRangeSelect: fixed offset within the range

	StackPos int // PStack: absolute call-stack position, later passes only
}

// Instruction is one IR op: an opcode plus operand and target pseudo
// lists, with a back-reference to its owning block (spec invariant 5).
type Instruction struct {
	Op     Opcode
	Args   ilist.List[*Pseudo]
	Target ilist.List[*Pseudo]
	Block  *BasicBlock
}

// AddArg appends an operand pseudo.
func (i *Instruction) AddArg(p *Pseudo) { i.Args.PushBack(p) }

// AddTarget appends a target pseudo.
func (i *Instruction) AddTarget(p *Pseudo) { i.Target.PushBack(p) }

// Arena owns the bump/free-list pools backing every Instruction/BasicBlock
// produced while lowering one module (spec §3 "Lifecycles": IR objects are
// released the same way as AST nodes, symbols, scopes, and strings). All
// procedures in one module share a single Arena — set on the first
// (parent-less) Procedure and inherited by every procedure nested under it.
type Arena struct {
	instructions *arena.Pool[Instruction]
	blocks       *arena.Pool[BasicBlock]
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{
		instructions: arena.NewPool[Instruction](0),
		blocks:       arena.NewPool[BasicBlock](0),
	}
}

// BasicBlock is a maximal straight-line instruction sequence (spec §3).
// Per invariant 7, a block with zero instructions is logically deleted —
// callers should treat blocks whose Live() is false as unreachable rather
// than special casing nil.
type BasicBlock struct {
	ID           int
	Instructions []*Instruction

	arena *Arena
}

// Emit appends a new instruction to b and returns it.
func (b *BasicBlock) Emit(op Opcode) *Instruction {
	ins := b.arena.instructions.New()
	ins.Op, ins.Block = op, b
	b.Instructions = append(b.Instructions, ins)
	return ins
}

// Live reports whether the block has any instructions (invariant 7).
func (b *BasicBlock) Live() bool { return len(b.Instructions) > 0 }

// ConstPool holds the per-type partitioned constant pool from spec §3
// invariant 6: indices are dense per type, and equal literal values share
// one index.
type ConstPool struct {
	ints     []int64
	intIndex map[int64]int
	floats   []float64
	fltIndex map[float64]int
	strs     []*strpool.String
	strIndex map[*strpool.String]int
}

func newConstPool() *ConstPool {
	return &ConstPool{
		intIndex: make(map[int64]int),
		fltIndex: make(map[float64]int),
		strIndex: make(map[*strpool.String]int),
	}
}

// Int interns an integer literal, returning its dense index.
func (c *ConstPool) Int(v int64) int {
	if idx, ok := c.intIndex[v]; ok {
		return idx
	}
	idx := len(c.ints)
	c.ints = append(c.ints, v)
	c.intIndex[v] = idx
	return idx
}

// Float interns a floating literal.
func (c *ConstPool) Float(v float64) int {
	if idx, ok := c.fltIndex[v]; ok {
		return idx
	}
	idx := len(c.floats)
	c.floats = append(c.floats, v)
	c.fltIndex[v] = idx
	return idx
}

// Str interns a string literal (already pool-interned text).
func (c *ConstPool) Str(v *strpool.String) int {
	if idx, ok := c.strIndex[v]; ok {
		return idx
	}
	idx := len(c.strs)
	c.strs = append(c.strs, v)
	c.strIndex[v] = idx
	return idx
}

func (c *ConstPool) IntAt(i int) int64            { return c.ints[i] }
func (c *ConstPool) FloatAt(i int) float64         { return c.floats[i] }
func (c *ConstPool) StrAt(i int) *strpool.String   { return c.strs[i] }
func (c *ConstPool) NumInts() int                  { return len(c.ints) }
func (c *ConstPool) NumFloats() int                 { return len(c.floats) }
func (c *ConstPool) NumStrs() int                   { return len(c.strs) }

// regGen allocates compact, reusable register numbers per spec invariant
// 4: the most recently freed register if any (LIFO), else next++.
type regGen struct {
	next int
	free []int
}

func (g *regGen) alloc() int {
	if n := len(g.free); n > 0 {
		r := g.free[n-1]
		g.free = g.free[:n-1]
		return r
	}
	r := g.next
	g.next++
	return r
}

func (g *regGen) release(r int) {
	g.free = append(g.free, r)
}

// Procedure is the IR counterpart of a function expression (spec §3).
type Procedure struct {
	ID     int
	Source *symbols.Function
	Blocks []*BasicBlock

	current          *BasicBlock
	currentBreakTgt  *BasicBlock
	breakTargetStack []*BasicBlock

	intGen  regGen // also serves temp-boolean per spec §4.5
	fltGen  regGen
	anyGen  regGen

	stackTop int // next free stack offset for a multi-return range (spec §3 "range")

	Consts *ConstPool

	Children []*Procedure
	Parent   *Procedure

	arena *Arena
}

// NewProcedure creates a procedure for source, nested inside parent (nil
// for the top-level chunk). A parent-less procedure gets a fresh Arena;
// every procedure nested under it inherits that same Arena, so one module's
// worth of blocks and instructions come from one pool.
func NewProcedure(id int, source *symbols.Function, parent *Procedure) *Procedure {
	a := NewArena()
	if parent != nil {
		a = parent.arena
	}
	p := &Procedure{ID: id, Source: source, Consts: newConstPool(), Parent: parent, arena: a}
	if parent != nil {
		parent.Children = append(parent.Children, p)
	}
	return p
}

// NewBlock creates and appends a fresh basic block, with an id stable
// within this procedure (spec §3 "a numeric id stable within its owning
// procedure"; §5 "Basic-block ids are assigned in creation order").
func (p *Procedure) NewBlock() *BasicBlock {
	b := p.arena.blocks.New()
	b.ID, b.arena = len(p.Blocks), p.arena
	p.Blocks = append(p.Blocks, b)
	return b
}

// Current returns the currently-open block that new instructions append
// to.
func (p *Procedure) Current() *BasicBlock { return p.current }

// SetCurrent opens b as the current block.
func (p *Procedure) SetCurrent(b *BasicBlock) { p.current = b }

// Emit appends an instruction to the current block.
func (p *Procedure) Emit(op Opcode) *Instruction { return p.current.Emit(op) }

// PushBreakTarget saves the current break target and installs tgt as the
// new one, with stack discipline (spec §4.5 "saved/restored around each
// loop").
func (p *Procedure) PushBreakTarget(tgt *BasicBlock) {
	p.breakTargetStack = append(p.breakTargetStack, p.currentBreakTgt)
	p.currentBreakTgt = tgt
}

// PopBreakTarget restores the previous break target.
func (p *Procedure) PopBreakTarget() {
	n := len(p.breakTargetStack)
	p.currentBreakTgt = p.breakTargetStack[n-1]
	p.breakTargetStack = p.breakTargetStack[:n-1]
}

// BreakTarget returns the innermost loop's exit block.
func (p *Procedure) BreakTarget() *BasicBlock { return p.currentBreakTgt }

// AllocTempInt / AllocTempNumber / AllocTempAny allocate a scratch
// register of the given class (spec §4.5 "Pseudo allocation"; temp-boolean
// shares the integer generator).
func (p *Procedure) AllocTempInt() *Pseudo {
	return &Pseudo{Kind: PTempInt, Reg: p.intGen.alloc()}
}
func (p *Procedure) AllocTempBoolean() *Pseudo {
	return &Pseudo{Kind: PTempBoolean, Reg: p.intGen.alloc()}
}
func (p *Procedure) AllocTempNumber() *Pseudo {
	return &Pseudo{Kind: PTempNumber, Reg: p.fltGen.alloc()}
}
func (p *Procedure) AllocTempAny() *Pseudo {
	return &Pseudo{Kind: PTempAny, Reg: p.anyGen.alloc()}
}

// AllocRange reserves a fresh stack position for a multi-return call result
// (spec §3 "range — a contiguous register range starting at a given stack
// offset"). Unlike temp registers, a range's stack slot is never returned to
// a free-list: it lives for as long as the call's callee might still be
// writing results into it.
func (p *Procedure) AllocRange() *Pseudo {
	start := p.stackTop
	p.stackTop++
	return &Pseudo{Kind: PRange, RangeStart: start}
}

// RangeSelectPseudo builds an operand that reads one fixed value out of a
// multi-return range (spec §3 "range-select ... fixed offset within the
// range"; spec §4.5 "the consumer either selects a specific return via
// range-select or consumes the full range").
func RangeSelectPseudo(of *Pseudo, index int) *Pseudo {
	return &Pseudo{Kind: PRangeSelect, RangeOf: of, RangeIndex: index}
}

// Release returns a temp pseudo's register to its class's free-list.
func (p *Procedure) Release(ps *Pseudo) {
	switch ps.Kind {
	case PTempInt, PTempBoolean:
		p.intGen.release(ps.Reg)
	case PTempNumber:
		p.fltGen.release(ps.Reg)
	case PTempAny:
		p.anyGen.release(ps.Reg)
	}
}

// HighWaterMark reports the peak register count ever allocated in the
// given class (spec §8 property 5, "pseudo-register compactness").
func (p *Procedure) HighWaterMark(kind PseudoKind) int {
	switch kind {
	case PTempInt, PTempBoolean:
		return p.intGen.next
	case PTempNumber:
		return p.fltGen.next
	case PTempAny:
		return p.anyGen.next
	default:
		return 0
	}
}

// SymbolPseudo wraps a resolved symbol as an operand/target pseudo.
func SymbolPseudo(sym *symbols.Symbol) *Pseudo { return &Pseudo{Kind: PSymbol, Sym: sym} }

// ConstantPseudo builds a reference to constant pool slot idx of the given
// type.
func ConstantPseudo(idx int, typ types.Tag) *Pseudo {
	return &Pseudo{Kind: PConstant, ConstIdx: idx, ConstType: typ}
}

// BlockPseudo builds a jump-target operand.
func BlockPseudo(b *BasicBlock) *Pseudo { return &Pseudo{Kind: PBlock, Block: b} }

// ProcedurePseudo builds a sub-procedure reference for op_closure.
func ProcedurePseudo(p *Procedure) *Pseudo { return &Pseudo{Kind: PProcedure, Proc: p} }

var singletonNil = &Pseudo{Kind: PNil}
var singletonTrue = &Pseudo{Kind: PTrue}
var singletonFalse = &Pseudo{Kind: PFalse}

// NilPseudo, TruePseudo, FalsePseudo return the shared singleton literals.
func NilPseudo() *Pseudo   { return singletonNil }
func TruePseudo() *Pseudo  { return singletonTrue }
func FalsePseudo() *Pseudo { return singletonFalse }

// Module is every procedure produced for one compile, rooted at Main.
type Module struct {
	Main *Procedure
	All  []*Procedure
}
