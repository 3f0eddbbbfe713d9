package linearizer_test

import (
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// goldenArchives holds one txtar archive per end-to-end scenario: a
// "source.vela" file and an "opcodes.txt" file listing the expected
// opcode mnemonics, one per line, in emission order (dead blocks skipped,
// same as opcodes() in linearizer_test.go). This is the archive-per-scenario golden format
// promised alongside the table-driven tests in this package, grounded on
// the teacher's dependency on golang.org/x/tools (used there for go/packages
// introspection) — txtar is that same module's fixture format.
var goldenArchives = []string{
	`
-- source.vela --
local a:integer = 1
local b:integer = 2
return a+b
-- opcodes.txt --
movi
movi
addii
ret
`,
	`
-- source.vela --
local t:integer[] = {}
t[1] = 2
return t[1]
-- opcodes.txt --
newiarray
iaput_ival
iaget_ikey
ret
`,
}

func TestGoldenScenarios(t *testing.T) {
	for i, raw := range goldenArchives {
		ar := txtar.Parse([]byte(raw))
		var src, want string
		for _, f := range ar.Files {
			switch f.Name {
			case "source.vela":
				src = string(f.Data)
			case "opcodes.txt":
				want = string(f.Data)
			}
		}
		if src == "" || want == "" {
			t.Fatalf("archive %d: missing source.vela or opcodes.txt", i)
		}

		mod := lower(t, src)
		var gotOps []string
		for _, op := range opcodes(mod.Main) {
			gotOps = append(gotOps, string(op))
		}
		wantOps := strings.Fields(want)

		if len(gotOps) != len(wantOps) {
			t.Fatalf("archive %d: got %v, want %v", i, gotOps, wantOps)
		}
		for j := range wantOps {
			if gotOps[j] != wantOps[j] {
				t.Fatalf("archive %d: opcode %d: got %s, want %s (full: got %v want %v)",
					i, j, gotOps[j], wantOps[j], gotOps, wantOps)
			}
		}
	}
}
