// Package symbols implements the scope/symbol/upvalue model and the
// resolution algorithm from spec §3 ("Symbol", "Scope (block scope)",
// "Function expression") and §4.4 ("Symbol resolution during parsing").
// Scopes form one tree spanning every function in the chunk: a function's
// root scope's parent is the block scope of the enclosing function that
// was open when the function literal was parsed, exactly mirroring how a
// real recursive-descent parser keeps ancestor scopes alive while parsing
// a nested function body. Resolution walks that single tree, crossing
// function boundaries and materializing upvalue chains as it goes (spec
// invariant 1, "upvalue chain completeness").
package symbols

import (
	"github.com/vela-lang/velac/internal/arena"
	"github.com/vela-lang/velac/internal/ast"
	"github.com/vela-lang/velac/internal/strpool"
	"github.com/vela-lang/velac/internal/types"
)

// Kind distinguishes the four symbol flavors spec §3 names.
type Kind int

const (
	KindLocal Kind = iota
	KindUpvalue
	KindLabel
	KindGlobal
)

// Symbol is the union described in spec §3. Which fields are meaningful
// depends on Kind: Local uses Scope/Pseudo; Upvalue uses Target/Index;
// Label uses Scope; Global uses only Name/Type.
type Symbol struct {
	Kind Kind
	Name *strpool.String
	Type types.T

	// KindLocal
	Scope  *Scope
	Pseudo int // filled in by the linearizer; -1 until allocated

	// KindUpvalue
	Target *Symbol // a local or upvalue in the immediately enclosing function
	Index  int     // dense, insertion order, within the owning function

	// KindLabel
	// Scope (above) is the label's owning scope.
}

// Scope is a lexical block scope; scopes form a tree per spec §3.
type Scope struct {
	Parent   *Scope
	Function *Function
	Symbols  []*Symbol // declaration order; lookup scans in reverse
}

// Arena owns the bump/free-list pools backing every Symbol/Scope/Function
// this package hands out (spec §3 "Lifecycles": symbols and scopes are
// released alongside AST nodes, strings, and IR objects). One Arena serves
// one parse, mirroring ast.Arena.
type Arena struct {
	symbols   *arena.Pool[Symbol]
	scopes    *arena.Pool[Scope]
	functions *arena.Pool[Function]
}

// NewArena creates an empty Arena.
func NewArena() *Arena {
	return &Arena{
		symbols:   arena.NewPool[Symbol](0),
		scopes:    arena.NewPool[Scope](0),
		functions: arena.NewPool[Function](0),
	}
}

// NewScope creates a child scope of parent within fn. parent may belong to
// a different (enclosing) Function — that's how function boundaries are
// represented in the unified scope tree; it is nil only for the
// top-level chunk's root scope.
func (a *Arena) NewScope(parent *Scope, fn *Function) *Scope {
	s := a.scopes.New()
	s.Parent, s.Function = parent, fn
	return s
}

// Declare adds a new local or label symbol to s and appends it to fn's
// aggregate locals list when it is a local (spec §3 "Function expression"
// owns "list of local symbols aggregated over all nested scopes").
// Redeclaration of the same name within one scope is permitted (spec §4.4
// "Name uniqueness"); Declare never rejects it, it simply appends.
func (s *Scope) Declare(kind Kind, name *strpool.String, typ types.T) *Symbol {
	sym := s.Function.arena.symbols.New()
	sym.Kind, sym.Name, sym.Type, sym.Scope, sym.Pseudo = kind, name, typ, s, -1
	s.Symbols = append(s.Symbols, sym)
	if kind == KindLocal {
		s.Function.Locals = append(s.Function.Locals, sym)
	}
	return sym
}

// findLocalHere scans s.Symbols in reverse-insertion order (spec invariant
// 4/property 4 "Reverse-shadowing") for a local or label named name.
func (s *Scope) findLocalHere(name *strpool.String) *Symbol {
	for i := len(s.Symbols) - 1; i >= 0; i-- {
		sym := s.Symbols[i]
		if sym.Name == name && (sym.Kind == KindLocal || sym.Kind == KindLabel) {
			return sym
		}
	}
	return nil
}

// Function is the IR-facing counterpart of ast.FunctionExpr, spec §3
// "Function expression": owns formals, locals, upvalues, children,
// statements, and its root scope.
type Function struct {
	AST      *ast.FunctionExpr
	Args     []*Symbol
	IsVararg bool
	IsMethod bool
	Locals   []*Symbol
	Upvalues []*Symbol
	Children []*Function
	Parent   *Function
	Root     *Scope

	arena *Arena
}

// NewFunction creates a function nested inside parent (nil for the
// top-level chunk). The caller is responsible for creating Root with
// a.NewScope(enclosingOpenScope, fn) so the unified scope tree stays
// connected across the function boundary.
func (a *Arena) NewFunction(parent *Function) *Function {
	fn := a.functions.New()
	fn.Parent, fn.arena = parent, a
	if parent != nil {
		parent.Children = append(parent.Children, fn)
	}
	return fn
}

// findUpvalueByName returns an existing upvalue of fn named name, if any
// (used both to avoid re-materializing a chain and to continue an
// in-progress chain discovered at this level).
func findUpvalueByName(fn *Function, name *strpool.String) *Symbol {
	for _, uv := range fn.Upvalues {
		if uv.Name == name {
			return uv
		}
	}
	return nil
}

// addUpvalue appends (or returns the existing) upvalue of fn targeting
// target, deduplicated on target identity (spec §4.4 step 3
// "deduplicated on target identity").
func addUpvalue(fn *Function, target *Symbol) *Symbol {
	for _, uv := range fn.Upvalues {
		if uv.Target == target {
			return uv
		}
	}
	uv := fn.arena.symbols.New()
	uv.Kind, uv.Name, uv.Type, uv.Target, uv.Index = KindUpvalue, target.Name, target.Type, target, len(fn.Upvalues)
	fn.Upvalues = append(fn.Upvalues, uv)
	return uv
}

// searchScopeChain walks from scope upward while scope.Function == fn,
// returning the first local/label match (spec §4.4 step 1).
func searchScopeChain(scope *Scope, fn *Function, name *strpool.String) *Symbol {
	for scope != nil && scope.Function == fn {
		if sym := scope.findLocalHere(name); sym != nil {
			return sym
		}
		scope = scope.Parent
	}
	return nil
}

// materializeChain implements spec §4.4 steps 3/4: for every function from
// userFn up to (but not including) declarerFn, ensure an upvalue entry
// exists, chained so each links to the previous level's symbol; returns
// the symbol userFn itself should reference.
func materializeChain(userFn, declarerFn *Function, found *Symbol) *Symbol {
	var chain []*Function
	for f := userFn; f != declarerFn; f = f.Parent {
		chain = append(chain, f)
	}
	// chain is innermost-first (userFn .. child-of-declarer); materialize
	// outermost-first so each level's target is already resolved.
	target := found
	for i := len(chain) - 1; i >= 0; i-- {
		target = addUpvalue(chain[i], target)
	}
	return target
}

// Resolve implements spec §4.4 "Symbol resolution during parsing" in
// full: local lookup, own-upvalue reuse, ancestor search with upvalue
// chain materialization, and the synthetic global fallback.
func Resolve(refScope *Scope, name *strpool.String) *Symbol {
	userFn := refScope.Function

	if sym := searchScopeChain(refScope, userFn, name); sym != nil {
		return sym
	}
	if uv := findUpvalueByName(userFn, name); uv != nil {
		return uv
	}

	fn := userFn.Parent
	boundary := userFn.Root.Parent
	for fn != nil {
		if sym := searchScopeChain(boundary, fn, name); sym != nil {
			return materializeChain(userFn, fn, sym)
		}
		if uv := findUpvalueByName(fn, name); uv != nil {
			return materializeChain(userFn, fn, uv)
		}
		boundary = fn.Root.Parent
		fn = fn.Parent
	}

	sym := userFn.arena.symbols.New()
	sym.Kind, sym.Name, sym.Type = KindGlobal, name, types.Of(types.Any)
	return sym
}

// DeclareLabel adds a label symbol to scope (spec §4.4 "Labels are added
// to the enclosing scope's symbol list at declaration").
func DeclareLabel(scope *Scope, name *strpool.String) *Symbol {
	return scope.Declare(KindLabel, name, types.T{})
}

// ResolveLabel looks up a label by name, searching only within the current
// function's scope chain (labels do not cross function boundaries).
func ResolveLabel(scope *Scope, name *strpool.String) (*Symbol, bool) {
	fn := scope.Function
	for s := scope; s != nil && s.Function == fn; s = s.Parent {
		for i := len(s.Symbols) - 1; i >= 0; i-- {
			if s.Symbols[i].Kind == KindLabel && s.Symbols[i].Name == name {
				return s.Symbols[i], true
			}
		}
	}
	return nil, false
}
