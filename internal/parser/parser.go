// Package parser implements spec §4.4: recursive-descent for statements,
// precedence climbing for expressions, with symbol resolution performed
// inline as each name reference is parsed (spec §4.4 "Symbol resolution
// during parsing"). Structure follows the teacher project's own parser
// package (one core Parser type plus a curToken/peekToken pair advanced by
// nextToken, per-construct parse* methods grouped by statement kind) —
// adapted from its Pratt/precedence-table-driven expression parser to this
// spec's fixed operator table (spec §4.4).
package parser

import (
	"github.com/vela-lang/velac/internal/ast"
	"github.com/vela-lang/velac/internal/diagnostics"
	"github.com/vela-lang/velac/internal/lexer"
	"github.com/vela-lang/velac/internal/strpool"
	"github.com/vela-lang/velac/internal/symbols"
	"github.com/vela-lang/velac/internal/token"
	"github.com/vela-lang/velac/internal/types"
)

// DefaultMaxLocals is the MAXVARS ceiling from spec §7 ("too many locals").
// Overridable via pkg/compiler.CompilerOptions.
const DefaultMaxLocals = 200

// DefaultMaxUserTypeName is the 255-byte ceiling from spec §7.
const DefaultMaxUserTypeName = 255

// Parser drives one parse of one source buffer into an *ast.FunctionExpr
// chunk plus its *symbols.Function tree.
type Parser struct {
	lex     *lexer.Lexer
	sink    *diagnostics.Sink
	strs    *strpool.Pool
	arena   *ast.Arena
	symbols *symbols.Arena

	cur, peek token.Token

	fn    *symbols.Function
	scope *symbols.Scope

	maxLocals       int
	maxUserTypeName int
}

// New creates a Parser over src.
func New(src string, sink *diagnostics.Sink, strs *strpool.Pool) *Parser {
	p := &Parser{
		lex:             lexer.New(src, sink),
		sink:            sink,
		strs:            strs,
		arena:           ast.NewArena(),
		symbols:         symbols.NewArena(),
		maxLocals:       DefaultMaxLocals,
		maxUserTypeName: DefaultMaxUserTypeName,
	}
	p.advance()
	p.advance()
	return p
}

// SetLimits overrides MAXVARS/user-type-name limits (wired from
// pkg/compiler.CompilerOptions).
func (p *Parser) SetLimits(maxLocals, maxUserTypeName int) {
	if maxLocals > 0 {
		p.maxLocals = maxLocals
	}
	if maxUserTypeName > 0 {
		p.maxUserTypeName = maxUserTypeName
	}
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

func (p *Parser) at(k token.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) peekAt(k token.Kind) bool { return p.peek.Kind == k }

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, p.errorf(diagnostics.ErrP001UnexpectedToken,
			"expected %s, found %s", k, p.cur.Kind)
	}
	t := p.cur
	p.advance()
	return t, nil
}

func (p *Parser) errorf(code diagnostics.Code, format string, args ...any) error {
	return p.sink.Error(code, p.cur.Line, format, args...)
}

// Parse parses the whole chunk and returns its top-level function
// expression and function-symbol tree, or the first error (spec §4.4
// "Failure model": any syntactic violation aborts the entire parse).
func (p *Parser) Parse() (*ast.FunctionExpr, *symbols.Function, error) {
	fn := p.symbols.NewFunction(nil)
	fn.IsVararg = true
	root := p.symbols.NewScope(nil, fn)
	fn.Root = root

	astFn := p.arena.NewFunctionExpr(p.cur.Line)
	astFn.IsVararg = true
	astFn.Function = fn
	fn.AST = astFn

	p.fn, p.scope = fn, root

	body, err := p.parseBlock()
	if err != nil {
		return nil, nil, err
	}
	astFn.Body = body
	if _, err := p.expect(token.EOS); err != nil {
		return nil, nil, err
	}
	return astFn, fn, nil
}

// openScope pushes a new child scope of the current one, within the same
// function, and returns the scope it replaced for closeScope.
func (p *Parser) openScope() *symbols.Scope {
	prev := p.scope
	p.scope = p.symbols.NewScope(prev, p.fn)
	return prev
}

func (p *Parser) closeScope(prev *symbols.Scope) {
	p.scope = prev
}

// blockEnd reports whether cur starts a token that terminates a block
// (used to know when to stop parsing statements).
func (p *Parser) blockEnd() bool {
	switch p.cur.Kind {
	case token.EOS, token.END, token.ELSE, token.ELSEIF, token.UNTIL:
		return true
	}
	return false
}

// parseBlock parses a statement list until a block-terminating token,
// enforcing spec §4.4 "After parsing a return, no further statements are
// accepted in the same block" (spec §8 property 8).
func (p *Parser) parseBlock() ([]ast.Node, error) {
	var stmts []ast.Node
	for !p.blockEnd() {
		if p.at(token.RETURN) {
			stmt, err := p.parseReturn()
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
			if !p.blockEnd() {
				return nil, p.errorf(diagnostics.ErrP005ReturnNotLast,
					"'return' must be the last statement in a block")
			}
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (ast.Node, error) {
	switch p.cur.Kind {
	case token.SEMI:
		p.advance()
		return nil, nil
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDo()
	case token.FOR:
		return p.parseFor()
	case token.REPEAT:
		return p.parseRepeat()
	case token.FUNCTION:
		return p.parseFunctionStatement()
	case token.LOCAL:
		return p.parseLocal()
	case token.DCOLON:
		return p.parseLabel()
	case token.BREAK:
		return p.parseBreak()
	case token.GOTO:
		return p.parseGoto()
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseDo() (ast.Node, error) {
	line := p.cur.Line
	p.advance() // 'do'
	prev := p.openScope()
	body, err := p.parseBlock()
	p.closeScope(prev)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return p.arena.NewDo(line, body), nil
}

func (p *Parser) parseIf() (ast.Node, error) {
	line := p.cur.Line
	n := p.arena.NewIf(line)
	for {
		p.advance() // 'if' or 'elseif'
		cond, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.THEN); err != nil {
			return nil, err
		}
		prev := p.openScope()
		body, err := p.parseBlock()
		p.closeScope(prev)
		if err != nil {
			return nil, err
		}
		n.Arms = append(n.Arms, &ast.TestThen{Cond: cond, Body: body})
		if p.at(token.ELSEIF) {
			continue
		}
		break
	}
	if p.at(token.ELSE) {
		p.advance()
		prev := p.openScope()
		body, err := p.parseBlock()
		p.closeScope(prev)
		if err != nil {
			return nil, err
		}
		n.Else = body
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseWhile() (ast.Node, error) {
	line := p.cur.Line
	p.advance() // 'while'
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	prev := p.openScope()
	body, err := p.parseBlock()
	p.closeScope(prev)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return p.arena.NewWhile(line, cond, body), nil
}

func (p *Parser) parseRepeat() (ast.Node, error) {
	line := p.cur.Line
	p.advance() // 'repeat'
	prev := p.openScope()
	body, err := p.parseBlock()
	if err != nil {
		p.closeScope(prev)
		return nil, err
	}
	if _, err := p.expect(token.UNTIL); err != nil {
		p.closeScope(prev)
		return nil, err
	}
	// the until-condition is evaluated in the loop body's scope (it may
	// reference locals declared in the body).
	cond, err := p.parseExpr(0)
	p.closeScope(prev)
	if err != nil {
		return nil, err
	}
	return p.arena.NewRepeat(line, body, cond), nil
}

func (p *Parser) parseFor() (ast.Node, error) {
	line := p.cur.Line
	p.advance() // 'for'
	nameTok, err := p.expect(token.NAME)
	if err != nil {
		return nil, err
	}
	first := p.strs.InternString(nameTok.Lexeme)

	if p.at(token.ASSIGN) {
		return p.parseForNumeric(line, first)
	}
	return p.parseForIn(line, first)
}

func (p *Parser) parseForNumeric(line int, name *strpool.String) (ast.Node, error) {
	p.advance() // '='
	start, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COMMA); err != nil {
		return nil, err
	}
	stop, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	var step ast.Node
	if p.at(token.COMMA) {
		p.advance()
		step, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	prev := p.openScope()
	p.scope.Declare(symbols.KindLocal, name, types.Of(types.Integer))
	body, err := p.parseBlock()
	p.closeScope(prev)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return p.arena.NewForNumeric(line, name, start, stop, step, body), nil
}

func (p *Parser) parseForIn(line int, first *strpool.String) (ast.Node, error) {
	names := []*strpool.String{first}
	for p.at(token.COMMA) {
		p.advance()
		t, err := p.expect(token.NAME)
		if err != nil {
			return nil, err
		}
		names = append(names, p.strs.InternString(t.Lexeme))
	}
	if _, err := p.expect(token.IN); err != nil {
		return nil, err
	}
	exprs, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	prev := p.openScope()
	for _, n := range names {
		p.scope.Declare(symbols.KindLocal, n, types.Of(types.Any))
	}
	body, err := p.parseBlock()
	p.closeScope(prev)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return p.arena.NewForIn(line, names, exprs, body), nil
}

func (p *Parser) parseBreak() (ast.Node, error) {
	line := p.cur.Line
	p.advance()
	return p.arena.NewGoto(line, p.strs.InternString(ast.BreakLabel)), nil
}

func (p *Parser) parseGoto() (ast.Node, error) {
	line := p.cur.Line
	p.advance()
	t, err := p.expect(token.NAME)
	if err != nil {
		return nil, err
	}
	g := p.arena.NewGoto(line, p.strs.InternString(t.Lexeme))
	g.Scope = p.scope // captured so the linearizer can run a real scope-visibility check (spec §4.4 label visibility)
	return g, nil
}

func (p *Parser) parseLabel() (ast.Node, error) {
	line := p.cur.Line
	p.advance() // '::'
	t, err := p.expect(token.NAME)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DCOLON); err != nil {
		return nil, err
	}
	name := p.strs.InternString(t.Lexeme)
	symbols.DeclareLabel(p.scope, name)
	return p.arena.NewLabel(line, name), nil
}

// parseType parses an optional ": TYPE" type annotation (spec §4.4 "Typed
// local syntax"), including the dotted userdata chain and the "[]" typed
// array suffix.
func (p *Parser) parseType() (types.T, bool, error) {
	if !p.at(token.COLON) {
		return types.T{}, false, nil
	}
	p.advance()
	t, err := p.expect(token.NAME)
	if err != nil {
		return types.T{}, false, err
	}
	if tag, ok := types.KeywordToTag[t.Lexeme]; ok {
		if (tag == types.Integer || tag == types.Number) && p.at(token.LBRACKET) && p.peekAt(token.RBRACKET) {
			p.advance()
			p.advance()
			arr, _ := types.ArrayElementTag(tag)
			return types.Of(arr), true, nil
		}
		return types.Of(tag), true, nil
	}
	name := t.Lexeme
	for p.at(token.DOT) {
		p.advance()
		part, err := p.expect(token.NAME)
		if err != nil {
			return types.T{}, false, err
		}
		name += "." + part.Lexeme
	}
	if len(name) > p.maxUserTypeName {
		return types.T{}, false, p.errorf(diagnostics.ErrS001UserTypeNameTooLong,
			"user type name %q exceeds %d bytes", name, p.maxUserTypeName)
	}
	return types.UserType(p.strs.InternString(name)), true, nil
}

func (p *Parser) parseLocal() (ast.Node, error) {
	line := p.cur.Line
	p.advance() // 'local'
	if p.at(token.FUNCTION) {
		return p.parseLocalFunction(line)
	}

	var vars []ast.LocalVar
	for {
		nameTok, err := p.expect(token.NAME)
		if err != nil {
			return nil, err
		}
		typ, has, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if !has {
			typ = types.Of(types.Any)
		}
		vars = append(vars, ast.LocalVar{Name: p.strs.InternString(nameTok.Lexeme), Type: typ, HasType: has})
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}

	var values []ast.Node
	if p.at(token.ASSIGN) {
		p.advance()
		var err error
		values, err = p.parseExprList()
		if err != nil {
			return nil, err
		}
	}

	if len(p.fn.Locals)+len(vars) > p.maxLocals {
		return nil, p.errorf(diagnostics.ErrP003TooManyLocals, "too many local variables (limit %d)", p.maxLocals)
	}
	for _, v := range vars {
		p.scope.Declare(symbols.KindLocal, v.Name, v.Type)
	}
	return p.arena.NewLocal(line, vars, values), nil
}

func (p *Parser) parseLocalFunction(line int) (ast.Node, error) {
	p.advance() // 'function'
	nameTok, err := p.expect(token.NAME)
	if err != nil {
		return nil, err
	}
	name := p.strs.InternString(nameTok.Lexeme)
	// Declared before the body is parsed so the function can recurse.
	p.scope.Declare(symbols.KindLocal, name, types.Of(types.Function))
	fnExpr, err := p.parseFunctionBody(line, false)
	if err != nil {
		return nil, err
	}
	target := p.arena.NewSymbolRef(line, name)
	return p.arena.NewFunctionDecl(line, target, true, false, fnExpr), nil
}

func (p *Parser) parseFunctionStatement() (ast.Node, error) {
	line := p.cur.Line
	p.advance() // 'function'
	target, isMethod, err := p.parseFunctionName()
	if err != nil {
		return nil, err
	}
	fnExpr, err := p.parseFunctionBody(line, isMethod)
	if err != nil {
		return nil, err
	}
	return p.arena.NewFunctionDecl(line, target, false, isMethod, fnExpr), nil
}

// parseFunctionName parses `Name{.Name}[:Name]`, resolving the leading
// identifier immediately and building a Suffixed chain of field selectors
// for the rest (spec §3 FieldSelector). A trailing ":Name" marks a method
// definition.
func (p *Parser) parseFunctionName() (ast.Node, bool, error) {
	nameTok, err := p.expect(token.NAME)
	if err != nil {
		return nil, false, err
	}
	name := p.strs.InternString(nameTok.Lexeme)
	ref := p.arena.NewSymbolRef(nameTok.Line, name)
	ref.Sym = symbols.Resolve(p.scope, name)
	var target ast.Node = ref
	isMethod := false
	for p.at(token.DOT) || p.at(token.COLON) {
		isMethod = p.at(token.COLON)
		p.advance()
		part, err := p.expect(token.NAME)
		if err != nil {
			return nil, false, err
		}
		target = p.arena.NewFieldSelector(part.Line, target, p.strs.InternString(part.Lexeme))
		if isMethod {
			break
		}
	}
	return target, isMethod, nil
}

func (p *Parser) parseFunctionBody(line int, isMethod bool) (*ast.FunctionExpr, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	parentFn, parentScope := p.fn, p.scope
	fn := p.symbols.NewFunction(parentFn)
	fn.IsMethod = isMethod
	root := p.symbols.NewScope(parentScope, fn)
	fn.Root = root
	p.fn, p.scope = fn, root

	astFn := p.arena.NewFunctionExpr(line)
	astFn.IsMethod = isMethod
	astFn.Function = fn
	fn.AST = astFn

	if isMethod {
		self := p.strs.InternString("self")
		sym := p.scope.Declare(symbols.KindLocal, self, types.Of(types.Any))
		fn.Args = append(fn.Args, sym)
		astFn.Args = append(astFn.Args, self)
		astFn.ArgTypes = append(astFn.ArgTypes, types.Of(types.Any))
	}

	for !p.at(token.RPAREN) {
		if p.at(token.ELLIPSIS) {
			p.advance()
			fn.IsVararg = true
			astFn.IsVararg = true
			break
		}
		nameTok, err := p.expect(token.NAME)
		if err != nil {
			p.fn, p.scope = parentFn, parentScope
			return nil, err
		}
		typ, has, err := p.parseType()
		if err != nil {
			p.fn, p.scope = parentFn, parentScope
			return nil, err
		}
		if !has {
			typ = types.Of(types.Any)
		}
		argName := p.strs.InternString(nameTok.Lexeme)
		sym := p.scope.Declare(symbols.KindLocal, argName, typ)
		fn.Args = append(fn.Args, sym)
		astFn.Args = append(astFn.Args, argName)
		astFn.ArgTypes = append(astFn.ArgTypes, typ)
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		p.fn, p.scope = parentFn, parentScope
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		p.fn, p.scope = parentFn, parentScope
		return nil, err
	}
	astFn.Body = body

	if _, err := p.expect(token.END); err != nil {
		p.fn, p.scope = parentFn, parentScope
		return nil, err
	}

	p.fn, p.scope = parentFn, parentScope
	return astFn, nil
}

func (p *Parser) parseReturn() (ast.Node, error) {
	line := p.cur.Line
	p.advance() // 'return'
	var values []ast.Node
	if !p.blockEnd() && !p.at(token.SEMI) {
		var err error
		values, err = p.parseExprList()
		if err != nil {
			return nil, err
		}
	}
	if p.at(token.SEMI) {
		p.advance()
	}
	return p.arena.NewReturn(line, values), nil
}

func (p *Parser) parseExprList() ([]ast.Node, error) {
	var out []ast.Node
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	out = append(out, e)
	for p.at(token.COMMA) {
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// parseExprStatement parses either a (possibly multi-target) assignment
// or a bare call expression statement (spec §4.4 "expression statement
// (which may be a multi-assignment if followed by '=')").
func (p *Parser) parseExprStatement() (ast.Node, error) {
	line := p.cur.Line
	first, err := p.parseSuffixedExpr()
	if err != nil {
		return nil, err
	}
	lhs := []ast.Node{first}
	for p.at(token.COMMA) {
		p.advance()
		e, err := p.parseSuffixedExpr()
		if err != nil {
			return nil, err
		}
		lhs = append(lhs, e)
	}
	stmt := p.arena.NewExprStatement(line)
	if p.at(token.ASSIGN) {
		p.advance()
		rhs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		stmt.Lhs = lhs
		stmt.Rhs = rhs
		return stmt, nil
	}
	if len(lhs) != 1 {
		return nil, p.errorf(diagnostics.ErrP001UnexpectedToken, "expected '=' after expression list")
	}
	stmt.Expr = lhs[0]
	return stmt, nil
}
