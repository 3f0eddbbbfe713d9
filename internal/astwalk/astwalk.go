// Package astwalk provides the read-only accessor family spec §6 exposes
// over the AST, grounded on the original ast_walker's foreach-with-
// userdata dispatch shape: one function per relationship (children,
// statements, locals, upvalues), each taking a callback instead of
// returning a slice, so callers never need to know the concrete node type
// to traverse it.
package astwalk

import (
	"github.com/vela-lang/velac/internal/ast"
	"github.com/vela-lang/velac/internal/symbols"
)

// MainFunction returns the top-level function expression's resolved
// symbols.Function, mirroring the original's raviX_ast_get_main_function.
func MainFunction(main *ast.FunctionExpr) *symbols.Function {
	fn, _ := main.Function.(*symbols.Function)
	return fn
}

// ForEachChild calls fn for every nested function expression declared
// directly inside body (not recursively), regardless of whether it
// appears as a function-statement, local-function, or anonymous function
// expression value.
func ForEachChild(body []ast.Node, fn func(*ast.FunctionExpr)) {
	for _, stmt := range body {
		walkStatementForChildren(stmt, fn)
	}
}

func walkStatementForChildren(n ast.Node, fn func(*ast.FunctionExpr)) {
	switch s := n.(type) {
	case *ast.FunctionDecl:
		fn(s.Fn)
	case *ast.Local:
		for _, v := range s.Values {
			walkExprForChildren(v, fn)
		}
	case *ast.ExprStatement:
		for _, v := range s.Rhs {
			walkExprForChildren(v, fn)
		}
		walkExprForChildren(s.Expr, fn)
	case *ast.Return:
		for _, v := range s.Values {
			walkExprForChildren(v, fn)
		}
	case *ast.Do:
		ForEachChild(s.Body, fn)
	case *ast.If:
		for _, arm := range s.Arms {
			walkExprForChildren(arm.Cond, fn)
			ForEachChild(arm.Body, fn)
		}
		ForEachChild(s.Else, fn)
	case *ast.While:
		walkExprForChildren(s.Cond, fn)
		ForEachChild(s.Body, fn)
	case *ast.Repeat:
		ForEachChild(s.Body, fn)
		walkExprForChildren(s.Cond, fn)
	case *ast.ForNumeric:
		ForEachChild(s.Body, fn)
	case *ast.ForIn:
		ForEachChild(s.Body, fn)
	}
}

func walkExprForChildren(n ast.Node, fn func(*ast.FunctionExpr)) {
	switch e := n.(type) {
	case nil:
		return
	case *ast.FunctionExpr:
		fn(e)
	case *ast.Suffixed:
		walkExprForChildren(e.Primary, fn)
		for _, step := range e.Steps {
			walkExprForChildren(step, fn)
		}
	case *ast.Call:
		for _, a := range e.Args {
			walkExprForChildren(a, fn)
		}
	case *ast.Binary:
		walkExprForChildren(e.Left, fn)
		walkExprForChildren(e.Right, fn)
	case *ast.Unary:
		walkExprForChildren(e.Operand, fn)
	case *ast.TableLiteral:
		for _, f := range e.Fields {
			walkExprForChildren(f.Value, fn)
		}
	}
}

// ForEachStatement calls fn for every top-level statement in body, in
// source order.
func ForEachStatement(body []ast.Node, fn func(ast.Node)) {
	for _, s := range body {
		fn(s)
	}
}

// ForEachLocal calls fn for every local symbol declared anywhere in f,
// aggregated over all of f's nested scopes (spec §3 "Function expression").
func ForEachLocal(f *symbols.Function, fn func(*symbols.Symbol)) {
	for _, sym := range f.Locals {
		fn(sym)
	}
}

// ForEachArgument calls fn for every formal parameter of f, in declaration
// order.
func ForEachArgument(f *symbols.Function, fn func(*symbols.Symbol)) {
	for _, sym := range f.Args {
		fn(sym)
	}
}

// ForEachUpvalue calls fn for every upvalue materialized on f, in the
// dense index order they were added (spec §4.4 "Index: dense, insertion
// order").
func ForEachUpvalue(f *symbols.Function, fn func(*symbols.Symbol)) {
	for _, sym := range f.Upvalues {
		fn(sym)
	}
}
