package bytecode

import (
	"errors"
	"fmt"
)

// ErrUnresolvedLabel is returned when a jump target is not in the label
// table (or a switch has neither a matching case nor a default).
var ErrUnresolvedLabel = errors.New("unresolved label")

// ErrDuplicateLabel is returned by Append when a label marker reuses a name.
var ErrDuplicateLabel = errors.New("duplicate label")

type caseKey struct {
	id        int
	value     Value
	isDefault bool
}

// Program is an append-only instruction sequence with incrementally built
// label and case tables. Each marker maps to the index of the instruction
// that follows it.
type Program struct {
	code   []Instruction
	labels map[string]int
	cases  map[caseKey]int
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{
		labels: make(map[string]int),
		cases:  make(map[caseKey]int),
	}
}

// Append adds ins and records LABEL and CASE markers. It returns the index
// of the appended instruction.
func (p *Program) Append(ins Instruction) (int, error) {
	addr := len(p.code)
	switch ins.Op {
	case OpLabel:
		if _, dup := p.labels[ins.Name]; dup {
			return addr, fmt.Errorf("%w: %s", ErrDuplicateLabel, ins.Name)
		}
		p.labels[ins.Name] = addr + 1
	case OpCase:
		key := caseKey{id: ins.N, value: ins.Value, isDefault: ins.Default}
		if ins.Default {
			key.value = Value{}
		}
		if _, dup := p.cases[key]; dup {
			return addr, fmt.Errorf("%w: %s", ErrDuplicateLabel, ins)
		}
		p.cases[key] = addr + 1
	}
	p.code = append(p.code, ins)
	return addr, nil
}

// MustAppend is Append for generators that never emit duplicate markers.
func (p *Program) MustAppend(ins Instruction) int {
	addr, err := p.Append(ins)
	if err != nil {
		panic(err)
	}
	return addr
}

// Len returns the number of instructions.
func (p *Program) Len() int { return len(p.code) }

// At returns the instruction at addr.
func (p *Program) At(addr int) (Instruction, error) {
	if addr < 0 || addr >= len(p.code) {
		return Instruction{}, fmt.Errorf("address %d out of range [0,%d)", addr, len(p.code))
	}
	return p.code[addr], nil
}

// Instructions returns a copy of the instruction sequence.
func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.code))
	copy(out, p.code)
	return out
}

// Resolve returns the address recorded for label.
func (p *Program) Resolve(label string) (int, error) {
	addr, ok := p.labels[label]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnresolvedLabel, label)
	}
	return addr, nil
}

// ResolveCase returns the target of switch id for discriminant v, falling
// back to the switch's default case.
func (p *Program) ResolveCase(id int, v Value) (int, error) {
	if addr, ok := p.cases[caseKey{id: id, value: v}]; ok {
		return addr, nil
	}
	if addr, ok := p.cases[caseKey{id: id, isDefault: true}]; ok {
		return addr, nil
	}
	return 0, fmt.Errorf("%w: switch %d has no case %s and no default", ErrUnresolvedLabel, id, v.Literal())
}

// Labels returns the label table as label -> address.
func (p *Program) Labels() map[string]int {
	out := make(map[string]int, len(p.labels))
	for k, v := range p.labels {
		out[k] = v
	}
	return out
}

// LabelAt returns the name of a label marker whose target is addr, if any.
func (p *Program) LabelAt(addr int) (string, bool) {
	if addr <= 0 || addr > len(p.code) {
		return "", false
	}
	if ins := p.code[addr-1]; ins.Op == OpLabel {
		return ins.Name, true
	}
	return "", false
}

// Validate checks that every GOTO, FALSEBRANCH and CALL target resolves.
func (p *Program) Validate() error {
	for i, ins := range p.code {
		switch ins.Op {
		case OpGoto, OpFalseBranch, OpCall:
			if _, err := p.Resolve(ins.Name); err != nil {
				return fmt.Errorf("instruction %d (%s): %w", i, ins, err)
			}
		}
	}
	return nil
}
