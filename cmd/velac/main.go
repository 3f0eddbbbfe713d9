// Command velac is a thin CLI wrapping pkg/compiler.Compile (spec §1 "CLI
// entry points ... deliberately out of scope" for the core, but present
// here as the ambient "real repository" surface every pack example ships
// a cmd/ for). It reads one source file, runs the pipeline, and either
// dumps the lowered IR or reports diagnostics to stderr.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vela-lang/velac/internal/ir"
	"github.com/vela-lang/velac/internal/irwalk"
	"github.com/vela-lang/velac/pkg/compiler"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("velac", flag.ContinueOnError)
	optsPath := fs.String("config", "vela.yaml", "path to compiler options file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: velac [-config vela.yaml] <source-file>")
		return 2
	}

	path := fs.Arg(0)
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "velac: %s\n", err)
		return 1
	}

	opts, err := compiler.LoadOptions(*optsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "velac: reading %s: %s\n", *optsPath, err)
		return 1
	}

	result := compiler.Compile(compiler.CompileRequest{
		Filename: path,
		Source:   string(src),
		Options:  opts,
		ColorFd:  os.Stderr.Fd(), // diagnostics colorize only when stderr is a real terminal
		OnDebug: func(filename string, line int, message string) {
			fmt.Fprintf(os.Stderr, "%s:%d: debug: %s\n", filename, line, message)
		},
		OnError: func(message string) {
			fmt.Fprintln(os.Stderr, message)
		},
	})

	if result.Failed {
		return 1
	}

	dumpModule(os.Stdout, result.Module)
	return 0
}

// dumpModule renders every procedure's basic blocks and instructions as
// plain text, in the order irwalk exposes them — a debugging aid, not a
// stable serialization format (the real consumer of *ir.Module is the
// out-of-scope code generator, spec §1).
func dumpModule(w *os.File, mod *ir.Module) {
	irwalk.ForEachProcedure(mod, func(p *ir.Procedure) {
		fmt.Fprintf(w, "procedure %d\n", p.ID)
		irwalk.ForEachBlock(p, func(b *ir.BasicBlock) {
			fmt.Fprintf(w, "  block %d\n", b.ID)
			irwalk.ForEachInstruction(b, func(ins *ir.Instruction) {
				fmt.Fprintf(w, "    %s\n", ins.Op)
			})
		})
	})
}
