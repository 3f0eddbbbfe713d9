// Package ast defines the tagged AST node from spec §3: a single Node
// type whose Tag belongs to either the STATEMENT or EXPRESSION range, with
// per-tag payloads and line numbers. Each statement/expression variant is
// its own Go struct implementing the narrow Node interface (NodeTag and
// SourceLine); there is no Accept(Visitor) method. The astwalk package
// offers foreach accessors only, no checked-downcast accessors: code that
// needs a variant's payload uses a Go type assertion or type switch, as
// the linearizer does (spec §9 "Tagged unions over inheritance").
package ast

import (
	"github.com/vela-lang/velac/internal/arena"
	"github.com/vela-lang/velac/internal/strpool"
	"github.com/vela-lang/velac/internal/types"
)

// Tag identifies the concrete shape of a Node. Values below 1000 are
// statement tags; values at or above 1000 are expression tags, matching
// spec §3's "two disjoint ranges".
type Tag int

const (
	// Statement tags.
	StmtReturn Tag = iota
	StmtGoto
	StmtLabel
	StmtDo
	StmtTestThen
	StmtIf
	StmtWhile
	StmtRepeat
	StmtForNumeric
	StmtForIn
	StmtLocal
	StmtExpression
	StmtFunctionDecl

	exprBase = 1000
)

const (
	// Expression tags.
	ExprLiteral Tag = exprBase + iota
	ExprSymbolRef
	ExprYIndex
	ExprFieldSelector
	ExprUnary
	ExprBinary
	ExprFunction
	ExprCall
	ExprSuffixed
	ExprTableLiteral
	ExprTableElementAssign
	ExprVararg
)

// IsStatement reports whether tag is in the statement range.
func (t Tag) IsStatement() bool { return t < exprBase }

// IsExpression reports whether tag is in the expression range.
func (t Tag) IsExpression() bool { return t >= exprBase }

// Node is the single type every statement and expression implements.
type Node interface {
	NodeTag() Tag
	SourceLine() int
}

// base is embedded by every concrete node to carry the tag and line
// number (spec §3 "Each node carries its source line and payload per
// tag").
type base struct {
	Tag  Tag
	Line int
}

func (b base) NodeTag() Tag    { return b.Tag }
func (b base) SourceLine() int { return b.Line }

// ---- Expressions ----------------------------------------------------

// Literal is a literal value: nil/true/false/int/float/string.
type Literal struct {
	base
	Kind  types.Tag // Nil, Boolean, Integer, Number, or String
	Bool  bool
	Int   int64
	Flt   float64
	Str   *strpool.String
}

// SymbolRef names a variable reference by identifier text; the parser
// resolves it during parsing (package symbols) and stores the resolved
// *symbols.Symbol in Sym. The Symbol itself is a separate object owned by
// the symbols arena, not part of the node.
type SymbolRef struct {
	base
	Name *strpool.String
	Sym  any // *symbols.Symbol, resolved during parsing; any avoids an import cycle
}

// YIndex is `e[e]` — indexing by an arbitrary key expression.
type YIndex struct {
	base
	Receiver Node
	Key      Node
}

// FieldSelector is `e.name` — indexing by a fixed field name.
type FieldSelector struct {
	base
	Receiver Node
	Field    *strpool.String
}

// UnaryOp enumerates the unary operators (spec §4.4 precedence table).
type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
	UnaryBNot
	UnaryLen
	UnaryCoerce // @T expr
)

type Unary struct {
	base
	Op        UnaryOp
	Operand   Node
	CoerceTo  types.T // valid only when Op == UnaryCoerce
}

// BinaryOp enumerates the binary operators (spec §4.4 precedence table).
type BinaryOp int

const (
	BinOr BinaryOp = iota
	BinAnd
	BinLt
	BinGt
	BinLe
	BinGe
	BinEq
	BinNe
	BinBOr
	BinBXor
	BinBAnd
	BinShl
	BinShr
	BinConcat
	BinAdd
	BinSub
	BinMul
	BinMod
	BinDiv
	BinIDiv
	BinPow
)

type Binary struct {
	base
	Op    BinaryOp
	Left  Node
	Right Node
}

// FunctionExpr is both an expression (a function literal) and the owner
// of the lowered procedure's source; see symbols.Function for the scope
// tree and upvalue bookkeeping spec §3 assigns to it.
type FunctionExpr struct {
	base
	Name       *strpool.String // empty for anonymous function expressions
	Args       []*strpool.String
	ArgTypes   []types.T
	IsVararg   bool
	IsMethod   bool
	Body       []Node // statement list
	Function   any    // *symbols.Function, set during parsing; any avoids an import cycle
}

// Call is a function or method call; Method is non-nil for `o:m(...)`
// syntax (spec §4.5 "Method calls desugar").
type Call struct {
	base
	Callee Node
	Method *strpool.String
	Args   []Node
}

// Suffixed chains a primary expression through selectors/index/calls,
// e.g. `a.b[c]:d(e)`. Steps are applied left to right over Primary.
type Suffixed struct {
	base
	Primary Node
	Steps   []Node // each is YIndex, FieldSelector, or Call (Receiver/Callee left nil, filled by the primary)
}

type TableField struct {
	Key   Node // nil for positional fields
	Value Node
}

type TableLiteral struct {
	base
	Fields []TableField
}

// TableElementAssign models `t[k] = v` / `t.k = v` appearing as an
// expression-statement target (spec §3 "table-element-assignment").
type TableElementAssign struct {
	base
	Target Node // YIndex, FieldSelector, or Suffixed
	Value  Node
}

// Vararg is the `...` expression node. The parser never builds one: it
// reports `...` at expression position as a syntax error, so no tree
// contains a Vararg.
type Vararg struct {
	base
}

// ---- Statements -------------------------------------------------------

type Return struct {
	base
	Values []Node
}

type Goto struct {
	base
	Label *strpool.String // "break" sentinel for break statements
	Scope any             // *symbols.Scope at the goto site, set during parsing; any avoids an import cycle; nil for break
}

type Label struct {
	base
	Name *strpool.String
}

type Do struct {
	base
	Body []Node
}

// TestThen is one arm of an if/elseif chain: `if/elseif COND then BODY`.
type TestThen struct {
	base
	Cond Node
	Body []Node
}

type If struct {
	base
	Arms []*TestThen
	Else []Node // nil if no else
}

type While struct {
	base
	Cond Node
	Body []Node
}

type Repeat struct {
	base
	Body []Node
	Cond Node
}

type ForNumeric struct {
	base
	Var   *strpool.String
	Start Node
	Stop  Node
	Step  Node // nil if omitted (defaults to 1)
	Body  []Node
}

type ForIn struct {
	base
	Vars  []*strpool.String
	Exprs []Node // the iterator-state-control triple producer
	Body  []Node
}

type LocalVar struct {
	Name     *strpool.String
	Type     types.T
	HasType  bool
}

type Local struct {
	base
	Vars   []LocalVar
	Values []Node
}

type ExprStatement struct {
	base
	// Lhs holds assignment targets when this is a (possibly multi-)
	// assignment; empty for a bare expression statement.
	Lhs  []Node
	Rhs  []Node
	Expr Node // set when Lhs is empty: a bare call expression statement
}

type FunctionDecl struct {
	base
	Target   Node // SymbolRef or Suffixed naming where the function is bound
	IsLocal  bool
	IsMethod bool
	Fn       *FunctionExpr
}

// Arena owns one fixed-size-class bump/free-list pool per concrete node
// type (spec §3 "Lifecycles": AST nodes are released the same way as
// symbols, scopes, strings, and IR objects). One Arena serves one parse;
// nothing here is safe to share across parses, matching the session-scoped,
// single-threaded model spec §5 describes. Node identity is pointer
// identity into one of these pools for the life of the parse that built it.
type Arena struct {
	literals            *arena.Pool[Literal]
	symbolRefs          *arena.Pool[SymbolRef]
	yIndexes            *arena.Pool[YIndex]
	fieldSelectors      *arena.Pool[FieldSelector]
	unaries             *arena.Pool[Unary]
	binaries            *arena.Pool[Binary]
	functionExprs       *arena.Pool[FunctionExpr]
	calls               *arena.Pool[Call]
	suffixeds           *arena.Pool[Suffixed]
	tableLiterals       *arena.Pool[TableLiteral]
	tableElementAssigns *arena.Pool[TableElementAssign]
	varargs             *arena.Pool[Vararg]
	returns             *arena.Pool[Return]
	gotos               *arena.Pool[Goto]
	labels              *arena.Pool[Label]
	dos                 *arena.Pool[Do]
	ifs                 *arena.Pool[If]
	whiles              *arena.Pool[While]
	repeats             *arena.Pool[Repeat]
	forNumerics         *arena.Pool[ForNumeric]
	forIns              *arena.Pool[ForIn]
	locals              *arena.Pool[Local]
	exprStatements      *arena.Pool[ExprStatement]
	functionDecls       *arena.Pool[FunctionDecl]
}

// NewArena creates an empty Arena, one pool per node type. Chunk sizes are
// left at arena's default; nothing here needs call-site tuning.
func NewArena() *Arena {
	return &Arena{
		literals:            arena.NewPool[Literal](0),
		symbolRefs:          arena.NewPool[SymbolRef](0),
		yIndexes:            arena.NewPool[YIndex](0),
		fieldSelectors:      arena.NewPool[FieldSelector](0),
		unaries:             arena.NewPool[Unary](0),
		binaries:            arena.NewPool[Binary](0),
		functionExprs:       arena.NewPool[FunctionExpr](0),
		calls:               arena.NewPool[Call](0),
		suffixeds:           arena.NewPool[Suffixed](0),
		tableLiterals:       arena.NewPool[TableLiteral](0),
		tableElementAssigns: arena.NewPool[TableElementAssign](0),
		varargs:             arena.NewPool[Vararg](0),
		returns:             arena.NewPool[Return](0),
		gotos:               arena.NewPool[Goto](0),
		labels:              arena.NewPool[Label](0),
		dos:                 arena.NewPool[Do](0),
		ifs:                 arena.NewPool[If](0),
		whiles:              arena.NewPool[While](0),
		repeats:             arena.NewPool[Repeat](0),
		forNumerics:         arena.NewPool[ForNumeric](0),
		forIns:              arena.NewPool[ForIn](0),
		locals:              arena.NewPool[Local](0),
		exprStatements:      arena.NewPool[ExprStatement](0),
		functionDecls:       arena.NewPool[FunctionDecl](0),
	}
}

// Constructors stamp Tag/Line so callers never forget to (spec §3
// invariant "Each node carries its source line"), and hand out their node
// from a's pool for that type rather than a fresh heap allocation.

func (a *Arena) NewLiteral(line int, kind types.Tag) *Literal {
	n := a.literals.New()
	n.base, n.Kind = base{Tag: ExprLiteral, Line: line}, kind
	return n
}
func (a *Arena) NewSymbolRef(line int, name *strpool.String) *SymbolRef {
	n := a.symbolRefs.New()
	n.base, n.Name = base{Tag: ExprSymbolRef, Line: line}, name
	return n
}
func (a *Arena) NewYIndex(line int, recv, key Node) *YIndex {
	n := a.yIndexes.New()
	n.base, n.Receiver, n.Key = base{Tag: ExprYIndex, Line: line}, recv, key
	return n
}
func (a *Arena) NewFieldSelector(line int, recv Node, field *strpool.String) *FieldSelector {
	n := a.fieldSelectors.New()
	n.base, n.Receiver, n.Field = base{Tag: ExprFieldSelector, Line: line}, recv, field
	return n
}
func (a *Arena) NewUnary(line int, op UnaryOp, operand Node) *Unary {
	n := a.unaries.New()
	n.base, n.Op, n.Operand = base{Tag: ExprUnary, Line: line}, op, operand
	return n
}
func (a *Arena) NewBinary(line int, op BinaryOp, left, right Node) *Binary {
	n := a.binaries.New()
	n.base, n.Op, n.Left, n.Right = base{Tag: ExprBinary, Line: line}, op, left, right
	return n
}
func (a *Arena) NewFunctionExpr(line int) *FunctionExpr {
	n := a.functionExprs.New()
	n.base = base{Tag: ExprFunction, Line: line}
	return n
}
func (a *Arena) NewCall(line int, callee Node, method *strpool.String, args []Node) *Call {
	n := a.calls.New()
	n.base, n.Callee, n.Method, n.Args = base{Tag: ExprCall, Line: line}, callee, method, args
	return n
}
func (a *Arena) NewSuffixed(line int, primary Node) *Suffixed {
	n := a.suffixeds.New()
	n.base, n.Primary = base{Tag: ExprSuffixed, Line: line}, primary
	return n
}
func (a *Arena) NewTableLiteral(line int) *TableLiteral {
	n := a.tableLiterals.New()
	n.base = base{Tag: ExprTableLiteral, Line: line}
	return n
}
func (a *Arena) NewTableElementAssign(line int, target, value Node) *TableElementAssign {
	n := a.tableElementAssigns.New()
	n.base, n.Target, n.Value = base{Tag: ExprTableElementAssign, Line: line}, target, value
	return n
}
func (a *Arena) NewVararg(line int) *Vararg {
	n := a.varargs.New()
	n.base = base{Tag: ExprVararg, Line: line}
	return n
}
func (a *Arena) NewReturn(line int, values []Node) *Return {
	n := a.returns.New()
	n.base, n.Values = base{Tag: StmtReturn, Line: line}, values
	return n
}
func (a *Arena) NewGoto(line int, label *strpool.String) *Goto {
	n := a.gotos.New()
	n.base, n.Label = base{Tag: StmtGoto, Line: line}, label
	return n
}
func (a *Arena) NewLabel(line int, name *strpool.String) *Label {
	n := a.labels.New()
	n.base, n.Name = base{Tag: StmtLabel, Line: line}, name
	return n
}
func (a *Arena) NewDo(line int, body []Node) *Do {
	n := a.dos.New()
	n.base, n.Body = base{Tag: StmtDo, Line: line}, body
	return n
}
func (a *Arena) NewIf(line int) *If {
	n := a.ifs.New()
	n.base = base{Tag: StmtIf, Line: line}
	return n
}
func (a *Arena) NewWhile(line int, cond Node, body []Node) *While {
	n := a.whiles.New()
	n.base, n.Cond, n.Body = base{Tag: StmtWhile, Line: line}, cond, body
	return n
}
func (a *Arena) NewRepeat(line int, body []Node, cond Node) *Repeat {
	n := a.repeats.New()
	n.base, n.Body, n.Cond = base{Tag: StmtRepeat, Line: line}, body, cond
	return n
}
func (a *Arena) NewForNumeric(line int, v *strpool.String, start, stop, step Node, body []Node) *ForNumeric {
	n := a.forNumerics.New()
	n.base, n.Var, n.Start, n.Stop, n.Step, n.Body = base{Tag: StmtForNumeric, Line: line}, v, start, stop, step, body
	return n
}
func (a *Arena) NewForIn(line int, vars []*strpool.String, exprs []Node, body []Node) *ForIn {
	n := a.forIns.New()
	n.base, n.Vars, n.Exprs, n.Body = base{Tag: StmtForIn, Line: line}, vars, exprs, body
	return n
}
func (a *Arena) NewLocal(line int, vars []LocalVar, values []Node) *Local {
	n := a.locals.New()
	n.base, n.Vars, n.Values = base{Tag: StmtLocal, Line: line}, vars, values
	return n
}
func (a *Arena) NewExprStatement(line int) *ExprStatement {
	n := a.exprStatements.New()
	n.base = base{Tag: StmtExpression, Line: line}
	return n
}
func (a *Arena) NewFunctionDecl(line int, target Node, isLocal, isMethod bool, fn *FunctionExpr) *FunctionDecl {
	n := a.functionDecls.New()
	n.base, n.Target, n.IsLocal, n.IsMethod, n.Fn = base{Tag: StmtFunctionDecl, Line: line}, target, isLocal, isMethod, fn
	return n
}

// BreakLabel is the sentinel label name a `break` statement's Goto node
// carries (spec §4.4 "break carries the sentinel label \"break\"").
const BreakLabel = "break"
