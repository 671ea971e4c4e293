package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleResolvesTargets(t *testing.T) {
	p := NewProgram()
	p.MustAppend(Goto("start<<0>>"))
	p.MustAppend(Label("start<<0>>"))
	p.MustAppend(Lit(IntValue(0), "x"))
	p.MustAppend(Load(0, "x"))
	p.MustAppend(Halt())

	out := p.DisassembleWithName("main")

	for _, want := range []string{
		"; === main ===",
		"; 5 instructions, 1 labels",
		"0000      GOTO start<<0>>",
		"; -> 0002",
		"0001  LABEL start<<0>>",
		"LIT 0",
		"; x",
		"0004      HALT",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleUnresolvedTarget(t *testing.T) {
	p := NewProgram()
	p.MustAppend(Call("nowhere"))
	if got := p.DisassembleInstruction(0); !strings.Contains(got, "-> ???") {
		t.Errorf("DisassembleInstruction(0) = %q, want unresolved marker", got)
	}
	if got := p.DisassembleInstruction(1); !strings.Contains(got, "<end of code>") {
		t.Errorf("DisassembleInstruction(1) = %q", got)
	}
}
