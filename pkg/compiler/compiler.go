// Package compiler is the host-facing compilation entry point from spec
// §6, shaped one-to-one after the original implementation's ravi_api.h
// request/result pair: a CompileRequest carrying the source buffer and
// host callbacks in, a CompileResult carrying the lowered module and
// collected diagnostics out. CompilerOptions loads from a YAML document
// (gopkg.in/yaml.v3), following the teacher project's own Config/Dep
// yaml-tagged structs in internal/ext/config.go.
package compiler

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vela-lang/velac/internal/ast"
	"github.com/vela-lang/velac/internal/diagnostics"
	"github.com/vela-lang/velac/internal/ir"
	"github.com/vela-lang/velac/internal/linearizer"
	"github.com/vela-lang/velac/internal/parser"
	"github.com/vela-lang/velac/internal/session"
	"github.com/vela-lang/velac/internal/symbols"
)

// CompilerOptions configures one compile beyond the fixed language
// grammar: two size limits (the host callbacks are set on CompileRequest,
// not here). Loaded from a
// "vela.yaml" document when present (spec §9 "embedder-tunable limits").
type CompilerOptions struct {
	MaxLocals       int `yaml:"max_locals"`
	MaxUserTypeName int `yaml:"max_user_type_name"`
}

// LoadOptions reads CompilerOptions from a YAML file, returning the zero
// value if path does not exist. A zero limit keeps the parser's default
// (parser.Parser.SetLimits ignores non-positive values).
func LoadOptions(path string) (CompilerOptions, error) {
	var opts CompilerOptions
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// CompileRequest is the compile entry point's input, mirroring
// ravi_api.h's request fields: source text, a filename for diagnostics,
// and the two host callbacks spec §6 names.
type CompileRequest struct {
	Filename string
	Source   string
	Options  CompilerOptions
	OnDebug  diagnostics.DebugFunc
	OnError  diagnostics.ErrorFunc

	// ColorFd is the file descriptor diagnostics should auto-detect TTY
	// colorization against (e.g. os.Stderr.Fd()); zero disables
	// colorization outright. See diagnostics.NewTTYSink.
	ColorFd uintptr
}

// CompileResult is the compile entry point's output: the lowered module
// (nil on failure), the resolved top-level function, and every diagnostic
// collected during the compile.
type CompileResult struct {
	SessionID   string
	Module      *ir.Module
	Main        *ast.FunctionExpr
	MainFunc    *symbols.Function
	Diagnostics []diagnostics.Diagnostic
	Failed      bool
}

// Compile runs the full pipeline — lex, parse with inline symbol
// resolution, linearize — over req.Source, returning a CompileResult that
// is always non-nil, with Failed/Diagnostics reporting what happened
// (spec §6 "the host never needs to recover from a panic; every failure
// path is a reported diagnostic").
func Compile(req CompileRequest) CompileResult {
	var sink *diagnostics.Sink
	if req.ColorFd != 0 {
		sink = diagnostics.NewTTYSink(req.Filename, req.ColorFd, req.OnDebug, req.OnError)
	} else {
		sink = diagnostics.NewSink(req.Filename, req.OnDebug, req.OnError)
	}
	sess := session.New(req.Filename, sink)

	p := parser.New(req.Source, sink, sess.Strings)
	p.SetLimits(req.Options.MaxLocals, req.Options.MaxUserTypeName)

	mainAST, mainFn, err := p.Parse()
	if err != nil {
		return CompileResult{
			SessionID:   sess.ID.String(),
			Diagnostics: sink.All(),
			Failed:      true,
		}
	}

	lz := linearizer.New(sink)
	mod, err := lz.Linearize(mainAST)
	if err != nil || sink.Failed() {
		return CompileResult{
			SessionID:   sess.ID.String(),
			Main:        mainAST,
			MainFunc:    mainFn,
			Diagnostics: sink.All(),
			Failed:      sink.Failed(),
		}
	}

	return CompileResult{
		SessionID:   sess.ID.String(),
		Module:      mod,
		Main:        mainAST,
		MainFunc:    mainFn,
		Diagnostics: sink.All(),
		Failed:      false,
	}
}
