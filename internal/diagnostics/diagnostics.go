// Package diagnostics is the compiler's single error-reporting sink (see
// spec §4.6, §7). It accumulates the first error encountered during a
// compile session and signals callers to unwind, modeling the source
// project's non-local jump with an idiomatic Go sentinel error instead.
package diagnostics

import (
	"fmt"

	"github.com/mattn/go-isatty"
)

// Code is a closed taxonomy of diagnostic codes, mirroring spec §7's error
// classes: lexical, syntactic, semantic (at parse time).
type Code string

const (
	ErrL001InvalidChar       Code = "L001" // invalid character
	ErrL002MalformedNumber   Code = "L002" // malformed numeric literal
	ErrL003UnterminatedStr   Code = "L003" // unterminated string
	ErrL004IdentifierTooLong Code = "L004" // identifier too long

	ErrP001UnexpectedToken Code = "P001" // unexpected token
	ErrP002MissingToken    Code = "P002" // missing matching token
	ErrP003TooManyLocals   Code = "P003" // too many locals (MAXVARS)
	ErrP004InvalidVararg   Code = "P004" // invalid use of '...'
	ErrP005ReturnNotLast   Code = "P005" // return not last in block

	ErrS001UserTypeNameTooLong Code = "S001" // user-type name > 255 bytes
	ErrS002UnresolvedLabel     Code = "S002" // goto target never declared
)

// Diagnostic is one reported error, with source position embedded so the
// rendered text is self-contained (spec §7 "position information embedded
// in the text for syntactic errors").
type Diagnostic struct {
	Code     Code
	Filename string
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s [%s]", d.Filename, d.Line, d.Message, d.Code)
	}
	return fmt.Sprintf("%s: %s [%s]", d.Filename, d.Message, d.Code)
}

// ErrAborted is returned by any parser/lexer entry point once the sink has
// recorded the first hard error, standing in for the session-scoped
// non-local escape described in spec §5/§7/§9. Every recursive-descent
// production checks for it before proceeding.
var ErrAborted = fmt.Errorf("compilation aborted after first error")

// DebugFunc and ErrorFunc are the two host callbacks from spec §6.
type DebugFunc func(filename string, line int, message string)
type ErrorFunc func(message string)

// Sink collects diagnostics for one compile session and forwards them to
// the embedder's callbacks. Only the first error actually aborts the
// session (spec §4.4 "Failure model" / §7 "first hard error"); later calls
// to Error are recorded but the caller is expected to have already stopped
// after the first ErrAborted.
type Sink struct {
	Filename string
	OnDebug  DebugFunc
	OnError  ErrorFunc

	all    []Diagnostic
	failed bool
	color  bool
}

// NewSink creates a Sink for a given source file name. Its rendered
// diagnostics are not colorized; NewTTYSink below turns ANSI highlighting
// on for callers that want automatic terminal detection.
func NewSink(filename string, onDebug DebugFunc, onError ErrorFunc) *Sink {
	return &Sink{Filename: filename, OnDebug: onDebug, OnError: onError}
}

// NewTTYSink is the constructor cmd/velac uses: it colorizes rendered
// diagnostics exactly when stderr is a real terminal, the same
// isatty.IsTerminal/IsCygwinTerminal pair the teacher project uses to gate
// its own terminal-aware output.
func NewTTYSink(filename string, fd uintptr, onDebug DebugFunc, onError ErrorFunc) *Sink {
	s := NewSink(filename, onDebug, onError)
	s.color = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return s
}

// Error records a hard error at the given code/line and returns
// ErrAborted. The first call wins: subsequent diagnostics are still
// collected (via All) but Failed remains driven by the first.
func (s *Sink) Error(code Code, line int, format string, args ...any) error {
	d := Diagnostic{Code: code, Filename: s.Filename, Line: line, Message: fmt.Sprintf(format, args...)}
	s.all = append(s.all, d)
	s.failed = true
	if s.OnError != nil {
		s.OnError(s.render(d))
	}
	return ErrAborted
}

// Debug forwards a non-fatal positional note to the host's debug callback
// (spec §6 "debug(context, filename, line, message)").
func (s *Sink) Debug(line int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if s.OnDebug != nil {
		s.OnDebug(s.Filename, line, msg)
	}
}

func (s *Sink) render(d Diagnostic) string {
	if !s.color {
		return d.String()
	}
	return "\x1b[31m" + d.String() + "\x1b[0m"
}

// Failed reports whether any error has been recorded.
func (s *Sink) Failed() bool { return s.failed }

// All returns every diagnostic recorded so far, in report order.
func (s *Sink) All() []Diagnostic { return s.all }

// First returns the first recorded diagnostic, if any.
func (s *Sink) First() (Diagnostic, bool) {
	if len(s.all) == 0 {
		return Diagnostic{}, false
	}
	return s.all[0], true
}
