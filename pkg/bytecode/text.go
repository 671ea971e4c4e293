package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Operators lists the BOP operator spellings the VM understands.
var Operators = []string{"+", "-", "*", "/", "|", "&", "==", "!=", "<", "<=", ">", ">="}

// IsOperator reports whether op is a BOP operator.
func IsOperator(op string) bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// WriteText writes the program in its line-oriented text form: one
// instruction per line, mnemonic followed by operands.
func (p *Program) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, ins := range p.code {
		if _, err := bw.WriteString(ins.String()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Text returns the text form as a string.
func (p *Program) Text() string {
	var sb strings.Builder
	_ = p.WriteText(&sb)
	return sb.String()
}

// LoadText reconstructs a Program from its text form. Mnemonics are
// case-insensitive; blank lines and lines starting with ';' are skipped, and
// a ';' token ends the line.
func LoadText(r io.Reader) (*Program, error) {
	p := NewProgram()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		toks, err := tokenize(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		ins, err := parseInstruction(toks)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if _, err := p.Append(ins); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseText is LoadText over a string.
func ParseText(src string) (*Program, error) {
	return LoadText(strings.NewReader(src))
}

// tokenize splits on whitespace, keeping quoted literals intact.
func tokenize(line string) ([]string, error) {
	var toks []string
	for {
		line = strings.TrimLeft(line, " \t")
		if line == "" {
			return toks, nil
		}
		switch line[0] {
		case ';':
			return toks, nil
		case '"', '\'', '`':
			q, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, fmt.Errorf("unterminated literal %s", line)
			}
			toks = append(toks, q)
			line = line[len(q):]
		default:
			end := strings.IndexAny(line, " \t")
			if end < 0 {
				end = len(line)
			}
			toks = append(toks, line[:end])
			line = line[end:]
		}
	}
}

func parseInstruction(toks []string) (Instruction, error) {
	op, ok := LookupOpcode(toks[0])
	if !ok {
		return Instruction{}, fmt.Errorf("unknown opcode %q", toks[0])
	}
	ins := Instruction{Op: op}
	args := toks[1:]
	info := GetOpcodeInfo(op)

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: missing operand", info.Name)
		}
		return nil
	}
	exact := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d operand(s), got %d", info.Name, n, len(args))
		}
		return nil
	}

	switch info.Operand {
	case OperandNone:
		if err := exact(0); err != nil {
			return ins, err
		}
	case OperandNum:
		if err := exact(1); err != nil {
			return ins, err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return ins, fmt.Errorf("%s: bad count %q", info.Name, args[0])
		}
		ins.N = n
	case OperandLabel:
		if err := exact(1); err != nil {
			return ins, err
		}
		ins.Name = args[0]
	case OperandOptLabel:
		if len(args) > 1 {
			return ins, fmt.Errorf("%s takes at most 1 operand, got %d", info.Name, len(args))
		}
		if len(args) == 1 {
			ins.Name = args[0]
		}
	case OperandValue:
		if err := need(1); err != nil {
			return ins, err
		}
		v, err := ParseLiteral(args[0])
		if err != nil {
			return ins, err
		}
		ins.Value = v
		ins.Comment = strings.Join(args[1:], " ")
	case OperandSlot:
		if err := need(1); err != nil {
			return ins, err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return ins, fmt.Errorf("%s: bad offset %q", info.Name, args[0])
		}
		ins.N = n
		ins.Comment = strings.Join(args[1:], " ")
	case OperandOperator:
		if err := exact(1); err != nil {
			return ins, err
		}
		if !IsOperator(args[0]) {
			return ins, fmt.Errorf("BOP: unknown operator %q", args[0])
		}
		ins.Name = args[0]
	case OperandToggle:
		if err := exact(1); err != nil {
			return ins, err
		}
		switch strings.ToUpper(args[0]) {
		case "ON":
			ins.N = 1
		case "OFF":
		default:
			return ins, fmt.Errorf("DUMP: want ON or OFF, got %q", args[0])
		}
	case OperandCase:
		if err := exact(2); err != nil {
			return ins, err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return ins, fmt.Errorf("CASE: bad switch id %q", args[0])
		}
		ins.N = n
		if strings.EqualFold(args[1], DefaultCase) {
			ins.Default = true
			break
		}
		v, err := ParseLiteral(args[1])
		if err != nil {
			return ins, err
		}
		ins.Value = v
	}
	return ins, nil
}
