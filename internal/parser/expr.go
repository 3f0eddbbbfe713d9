package parser

import (
	"github.com/vela-lang/velac/internal/ast"
	"github.com/vela-lang/velac/internal/diagnostics"
	"github.com/vela-lang/velac/internal/symbols"
	"github.com/vela-lang/velac/internal/token"
	"github.com/vela-lang/velac/internal/types"
)

// binInfo is one row of the fixed precedence table (spec §4.4):
// left/right binding power, left-associative unless right < left.
type binInfo struct {
	op          ast.BinaryOp
	left, right int
}

var binTable = map[token.Kind]binInfo{
	token.OR:      {ast.BinOr, 1, 1},
	token.AND:     {ast.BinAnd, 2, 2},
	token.LT:      {ast.BinLt, 3, 3},
	token.GT:      {ast.BinGt, 3, 3},
	token.LE:      {ast.BinLe, 3, 3},
	token.GE:      {ast.BinGe, 3, 3},
	token.EQ:      {ast.BinEq, 3, 3},
	token.NE:      {ast.BinNe, 3, 3},
	token.PIPE:    {ast.BinBOr, 4, 4},
	token.TILDE:   {ast.BinBXor, 5, 5},
	token.AMP:     {ast.BinBAnd, 6, 6},
	token.SHL:     {ast.BinShl, 7, 7},
	token.SHR:     {ast.BinShr, 7, 7},
	token.CONCAT:  {ast.BinConcat, 9, 8}, // right-associative
	token.PLUS:    {ast.BinAdd, 10, 10},
	token.MINUS:   {ast.BinSub, 10, 10},
	token.STAR:    {ast.BinMul, 11, 11},
	token.PERCENT: {ast.BinMod, 11, 11},
	token.SLASH:   {ast.BinDiv, 11, 11},
	token.DSLASH:  {ast.BinIDiv, 11, 11},
	token.CARET:   {ast.BinPow, 14, 13}, // right-associative
}

// unaryPrecedence is the binding power unary operators bind their operand
// at (spec precedence table: "unary not,-,~,#,@T: —/12").
const unaryPrecedence = 12

// parseExpr implements precedence climbing following the table's Lua-style
// left/right binding powers directly (spec precedence table: pairs are
// "left/right", equal for left-associative operators, right = left-1 for
// the two right-associative operators concat and pow). limit is the
// enclosing operator's left power; an operator is consumed here only while
// its own left power is strictly greater than limit, and its operand is
// parsed by recursing with minBP set to its right power — not left+1 — so
// a right-associative operator's lower right power lets the same operator
// chain again on the right.
func (p *Parser) parseExpr(limit int) (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		info, ok := binTable[p.cur.Kind]
		if !ok || info.left <= limit {
			break
		}
		op := p.cur
		p.advance()
		right, err := p.parseExpr(info.right)
		if err != nil {
			return nil, err
		}
		left = p.arena.NewBinary(op.Line, info.op, left, right)
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Node, error) {
	line := p.cur.Line
	switch p.cur.Kind {
	case token.NOT:
		p.advance()
		operand, err := p.parseExpr(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		return p.arena.NewUnary(line, ast.UnaryNot, operand), nil
	case token.MINUS:
		p.advance()
		operand, err := p.parseExpr(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		return p.arena.NewUnary(line, ast.UnaryNeg, operand), nil
	case token.TILDE:
		p.advance()
		operand, err := p.parseExpr(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		return p.arena.NewUnary(line, ast.UnaryBNot, operand), nil
	case token.HASH:
		p.advance()
		operand, err := p.parseExpr(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		return p.arena.NewUnary(line, ast.UnaryLen, operand), nil
	case token.AT_INTEGER, token.AT_NUMBER, token.AT_INTARRAY, token.AT_NUMARRAY,
		token.AT_TABLE, token.AT_STRING, token.AT_CLOSURE:
		typ := coercionType(p.cur.Kind)
		p.advance()
		operand, err := p.parseExpr(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		u := p.arena.NewUnary(line, ast.UnaryCoerce, operand)
		u.CoerceTo = typ
		return u, nil
	default:
		return p.parseSuffixedExpr()
	}
}

func coercionType(k token.Kind) types.T {
	switch k {
	case token.AT_INTEGER:
		return types.Of(types.Integer)
	case token.AT_NUMBER:
		return types.Of(types.Number)
	case token.AT_INTARRAY:
		return types.Of(types.IntegerArray)
	case token.AT_NUMARRAY:
		return types.Of(types.NumberArray)
	case token.AT_TABLE:
		return types.Of(types.Table)
	case token.AT_STRING:
		return types.Of(types.String)
	case token.AT_CLOSURE:
		return types.Of(types.Function)
	default:
		return types.Of(types.Any)
	}
}

// parsePrimary parses a literal, symbol reference, parenthesized
// expression, table literal, function expression, or vararg marker — the
// base of a suffixed-expression chain.
func (p *Parser) parsePrimary() (ast.Node, error) {
	line := p.cur.Line
	switch p.cur.Kind {
	case token.NIL:
		p.advance()
		return p.arena.NewLiteral(line, types.Nil), nil
	case token.TRUE:
		l := p.arena.NewLiteral(line, types.Boolean)
		l.Bool = true
		p.advance()
		return l, nil
	case token.FALSE:
		l := p.arena.NewLiteral(line, types.Boolean)
		l.Bool = false
		p.advance()
		return l, nil
	case token.INT:
		l := p.arena.NewLiteral(line, types.Integer)
		l.Int = parseInt(p.cur.Lexeme)
		p.advance()
		return l, nil
	case token.FLT:
		l := p.arena.NewLiteral(line, types.Number)
		l.Flt = parseFloat(p.cur.Lexeme)
		p.advance()
		return l, nil
	case token.STRING:
		l := p.arena.NewLiteral(line, types.String)
		l.Str = p.strs.InternString(p.cur.Lexeme)
		p.advance()
		return l, nil
	case token.NAME:
		name := p.strs.InternString(p.cur.Lexeme)
		ref := p.arena.NewSymbolRef(line, name)
		ref.Sym = symbols.Resolve(p.scope, name)
		p.advance()
		return ref, nil
	case token.LPAREN:
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case token.LBRACE:
		return p.parseTableLiteral()
	case token.FUNCTION:
		p.advance()
		return p.parseFunctionBody(line, false)
	case token.ELLIPSIS:
		// '...' at expression position is recognized syntactically (it must
		// lex and parse, per spec) but always rejected: the ground-truth
		// parser treats it as an unconditional syntax error regardless of
		// vararg-function context (_examples/original_source/src/parser.c:
		// "Var args not supported"), and the intended IR lowering for it is
		// explicitly left unspecified rather than guessed at.
		p.advance()
		return nil, p.errorf(diagnostics.ErrP004InvalidVararg, "'...' is not supported in expression position")
	default:
		return nil, p.errorf(diagnostics.ErrP001UnexpectedToken, "unexpected token %s in expression", p.cur.Kind)
	}
}

// parseSuffixedExpr parses a primary followed by any number of
// `.name`, `[expr]`, `(args)`, and `:name(args)` suffixes, producing an
// ast.Suffixed chain when at least one suffix is present.
func (p *Parser) parseSuffixedExpr() (ast.Node, error) {
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	var steps []ast.Node
	for {
		line := p.cur.Line
		switch p.cur.Kind {
		case token.DOT:
			p.advance()
			t, err := p.expect(token.NAME)
			if err != nil {
				return nil, err
			}
			steps = append(steps, p.arena.NewFieldSelector(line, nil, p.strs.InternString(t.Lexeme)))
		case token.LBRACKET:
			p.advance()
			key, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			steps = append(steps, p.arena.NewYIndex(line, nil, key))
		case token.COLON:
			p.advance()
			t, err := p.expect(token.NAME)
			if err != nil {
				return nil, err
			}
			method := p.strs.InternString(t.Lexeme)
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			steps = append(steps, p.arena.NewCall(line, nil, method, args))
		case token.LPAREN, token.STRING, token.LBRACE:
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			steps = append(steps, p.arena.NewCall(line, nil, nil, args))
		default:
			if len(steps) == 0 {
				return primary, nil
			}
			s := p.arena.NewSuffixed(primary.SourceLine(), primary)
			s.Steps = steps
			return s, nil
		}
	}
}

// parseCallArgs parses `(exprlist)`, a bare string literal argument, or a
// bare table constructor argument (the three call-argument forms).
func (p *Parser) parseCallArgs() ([]ast.Node, error) {
	switch p.cur.Kind {
	case token.STRING:
		l := p.arena.NewLiteral(p.cur.Line, types.String)
		l.Str = p.strs.InternString(p.cur.Lexeme)
		p.advance()
		return []ast.Node{l}, nil
	case token.LBRACE:
		t, err := p.parseTableLiteral()
		if err != nil {
			return nil, err
		}
		return []ast.Node{t}, nil
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Node
	if !p.at(token.RPAREN) {
		var err error
		args, err = p.parseExprList()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseTableLiteral() (ast.Node, error) {
	line := p.cur.Line
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	n := p.arena.NewTableLiteral(line)
	for !p.at(token.RBRACE) {
		field, err := p.parseTableField()
		if err != nil {
			return nil, err
		}
		n.Fields = append(n.Fields, field)
		if p.at(token.COMMA) || p.at(token.SEMI) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseTableField() (ast.TableField, error) {
	if p.at(token.LBRACKET) {
		p.advance()
		key, err := p.parseExpr(0)
		if err != nil {
			return ast.TableField{}, err
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return ast.TableField{}, err
		}
		if _, err := p.expect(token.ASSIGN); err != nil {
			return ast.TableField{}, err
		}
		value, err := p.parseExpr(0)
		if err != nil {
			return ast.TableField{}, err
		}
		return ast.TableField{Key: key, Value: value}, nil
	}
	if p.at(token.NAME) && p.peekAt(token.ASSIGN) {
		nameTok := p.cur
		p.advance()
		p.advance() // '='
		key := p.arena.NewLiteral(nameTok.Line, types.String)
		key.Str = p.strs.InternString(nameTok.Lexeme)
		value, err := p.parseExpr(0)
		if err != nil {
			return ast.TableField{}, err
		}
		return ast.TableField{Key: key, Value: value}, nil
	}
	value, err := p.parseExpr(0)
	if err != nil {
		return ast.TableField{}, err
	}
	return ast.TableField{Value: value}, nil
}

func parseInt(s string) int64 {
	var v int64
	for i := 0; i < len(s); i++ {
		v = v*10 + int64(s[i]-'0')
	}
	return v
}

func parseFloat(s string) float64 {
	var intPart float64
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		intPart = intPart*10 + float64(s[i]-'0')
		i++
	}
	if i >= len(s) || s[i] != '.' {
		return parseFloatExp(s, intPart, i)
	}
	i++
	frac := 0.0
	scale := 1.0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		frac = frac*10 + float64(s[i]-'0')
		scale *= 10
		i++
	}
	return parseFloatExp(s, intPart+frac/scale, i)
}

func parseFloatExp(s string, mantissa float64, i int) float64 {
	if i >= len(s) || (s[i] != 'e' && s[i] != 'E') {
		return mantissa
	}
	i++
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	exp := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		exp = exp*10 + int(s[i]-'0')
		i++
	}
	factor := 1.0
	for k := 0; k < exp; k++ {
		factor *= 10
	}
	if neg {
		return mantissa / factor
	}
	return mantissa * factor
}
