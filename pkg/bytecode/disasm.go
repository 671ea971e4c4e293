package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header. Jump operands
// are annotated with their resolved target address.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d instructions, %d labels\n", len(p.code), len(p.labels)))
	sb.WriteString("\n")

	for addr := range p.code {
		sb.WriteString(p.DisassembleInstruction(addr))
		sb.WriteString("\n")
	}
	return sb.String()
}

// DisassembleInstruction formats the instruction at addr as a single
// listing line.
func (p *Program) DisassembleInstruction(addr int) string {
	ins, err := p.At(addr)
	if err != nil {
		return fmt.Sprintf("%04X  <end of code>", addr)
	}

	text := ins.String()
	if ins.Op.IsMarker() {
		return fmt.Sprintf("%04X  %s", addr, text)
	}
	text = "    " + text

	var note string
	switch ins.Op {
	case OpGoto, OpFalseBranch, OpCall:
		if target, err := p.Resolve(ins.Name); err == nil {
			note = fmt.Sprintf("-> %04X", target)
		} else {
			note = "-> ???"
		}
	case OpLit, OpLoad, OpStore:
		if ins.Comment != "" {
			text = strings.TrimSuffix(text, " "+ins.Comment)
			note = ins.Comment
		}
	}
	if note == "" {
		return fmt.Sprintf("%04X  %s", addr, text)
	}
	return fmt.Sprintf("%04X  %-30s ; %s", addr, text, note)
}
