// Package session owns the per-compile resources spec §5 says are
// single-threaded and session-scoped: the interned string pool and the
// diagnostics sink. The AST/symbol/IR arenas (internal/ast.Arena,
// internal/symbols.Arena, internal/ir.Arena) live one level down, owned by
// the single parser.Parser and linearizer.Linearizer that pkg/compiler.
// Compile creates per session — since exactly one of each exists per
// compile, their lifetime already matches the session's. One Session value
// serves exactly one compile; nothing here is safe to share across
// goroutines (spec §5 "Concurrency model: none — one session compiles one
// chunk at a time").
package session

import (
	"github.com/google/uuid"

	"github.com/vela-lang/velac/internal/diagnostics"
	"github.com/vela-lang/velac/internal/strpool"
)

// Session is the top-level handle pkg/compiler.Compile holds for the
// duration of one compile.
type Session struct {
	ID       uuid.UUID
	Strings  *strpool.Pool
	Sink     *diagnostics.Sink
	Filename string
}

// New creates a Session for compiling filename, reporting diagnostics to
// sink. The session id is a fresh UUID (spec §6 "host-visible session
// identity"); pkg/compiler hands it to the host as
// CompileResult.SessionID.
func New(filename string, sink *diagnostics.Sink) *Session {
	return &Session{
		ID:       uuid.New(),
		Strings:  strpool.New(),
		Sink:     sink,
		Filename: filename,
	}
}
