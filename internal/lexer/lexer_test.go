package lexer_test

import (
	"testing"

	"github.com/vela-lang/velac/internal/diagnostics"
	"github.com/vela-lang/velac/internal/lexer"
	"github.com/vela-lang/velac/internal/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	var errs []string
	sink := diagnostics.NewSink("lex.vela",
		func(string, int, string) {},
		func(msg string) { errs = append(errs, msg) })
	lx := lexer.New(src, sink)
	var toks []token.Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOS {
			break
		}
	}
	if len(errs) != 0 {
		t.Fatalf("scanning %q produced diagnostics: %v", src, errs)
	}
	return toks
}

func TestKeywordsAndPunctuation(t *testing.T) {
	toks := scanAll(t, "local function if then else elseif end while do repeat until for in return break goto nil true false and or not")
	want := []token.Kind{
		token.LOCAL, token.FUNCTION, token.IF, token.THEN, token.ELSE, token.ELSEIF,
		token.END, token.WHILE, token.DO, token.REPEAT, token.UNTIL, token.FOR,
		token.IN, token.RETURN, token.BREAK, token.GOTO, token.NIL, token.TRUE,
		token.FALSE, token.AND, token.OR, token.NOT, token.EOS,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestTwoCharacterOperators(t *testing.T) {
	toks := scanAll(t, "== ~= <= >= << >> // .. :: ...")
	want := []token.Kind{
		token.EQ, token.NE, token.LE, token.GE, token.SHL, token.SHR,
		token.DSLASH, token.CONCAT, token.DCOLON, token.ELLIPSIS, token.EOS,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestTypeCoercionKeywords(t *testing.T) {
	toks := scanAll(t, "@integer @number @integer[] @number[] @table @string @closure")
	want := []token.Kind{
		token.AT_INTEGER, token.AT_NUMBER, token.AT_INTARRAY, token.AT_NUMARRAY,
		token.AT_TABLE, token.AT_STRING, token.AT_CLOSURE, token.EOS,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestIntAndFloatLiterals(t *testing.T) {
	toks := scanAll(t, "42 3.14")
	if toks[0].Kind != token.INT || toks[0].Lexeme != "42" {
		t.Fatalf("expected INT 42, got %v %q", toks[0].Kind, toks[0].Lexeme)
	}
	if toks[1].Kind != token.FLT || toks[1].Lexeme != "3.14" {
		t.Fatalf("expected FLT 3.14, got %v %q", toks[1].Kind, toks[1].Lexeme)
	}
}

func TestStringLiteralWithEscapes(t *testing.T) {
	toks := scanAll(t, `"hello\nworld"`)
	if toks[0].Kind != token.STRING {
		t.Fatalf("expected STRING, got %v", toks[0].Kind)
	}
	if toks[0].Lexeme != "hello\nworld" {
		t.Fatalf("expected unescaped lexeme %q, got %q", "hello\nworld", toks[0].Lexeme)
	}
}

func TestLineNumbersAdvanceAcrossNewlines(t *testing.T) {
	toks := scanAll(t, "a\nb\nc")
	if toks[0].Line != 1 || toks[1].Line != 2 || toks[2].Line != 3 {
		t.Fatalf("expected lines 1,2,3, got %d,%d,%d", toks[0].Line, toks[1].Line, toks[2].Line)
	}
}

func TestLineCommentsAreSkipped(t *testing.T) {
	toks := scanAll(t, "a -- this is a comment\nb")
	if toks[0].Kind != token.NAME || toks[0].Lexeme != "a" {
		t.Fatalf("expected NAME a first, got %v %q", toks[0].Kind, toks[0].Lexeme)
	}
	if toks[1].Kind != token.NAME || toks[1].Lexeme != "b" {
		t.Fatalf("comment should be skipped entirely, got %v %q", toks[1].Kind, toks[1].Lexeme)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	var errs []string
	sink := diagnostics.NewSink("lex.vela", func(string, int, string) {}, func(msg string) { errs = append(errs, msg) })
	lx := lexer.New("a b", sink)
	peeked := lx.Peek()
	if peeked.Kind != token.NAME || peeked.Lexeme != "a" {
		t.Fatalf("expected peek to see NAME a, got %v %q", peeked.Kind, peeked.Lexeme)
	}
	next := lx.Next()
	if next != peeked {
		t.Fatalf("Next() after Peek() should return the same token")
	}
	second := lx.Next()
	if second.Lexeme != "b" {
		t.Fatalf("expected second token 'b', got %q", second.Lexeme)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected diagnostics: %v", errs)
	}
}

func TestUnterminatedStringIsLexicalError(t *testing.T) {
	var errs []string
	sink := diagnostics.NewSink("lex.vela", func(string, int, string) {}, func(msg string) { errs = append(errs, msg) })
	lx := lexer.New(`"unterminated`, sink)
	for {
		tok := lx.Next()
		if tok.Kind == token.EOS {
			break
		}
	}
	if len(errs) == 0 {
		t.Fatalf("expected an unterminated-string diagnostic")
	}
}
