package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/chazu/tinyvm/pkg/bytecode"
)

// factorialText is what the compiler emits for
// (func int fact (formals (decl int n)) ...) and (call write (call fact 5)).
const factorialText = `GOTO start<<1>>
LABEL Read
READ
RETURN
LABEL Write
LOAD 0 dummyFormal
WRITE
RETURN
LABEL start<<1>>
GOTO continue<<3>>
LABEL fact<<2>>
LOAD 0 n
LIT 2
BOP <
FALSEBRANCH else<<4>>
LIT 1
RETURN fact<<2>>
GOTO continue<<5>>
LABEL else<<4>>
LOAD 0 n
LOAD 0 n
LIT 1
BOP -
ARGS 1
CALL fact<<2>>
BOP *
RETURN fact<<2>>
LABEL continue<<5>>
LIT 0 gratis-return-value
RETURN fact<<2>>
LABEL continue<<3>>
LIT 5
ARGS 1
CALL fact<<2>>
ARGS 1
CALL Write
POP 1
HALT
`

const switchText = `READ
SWITCH 0
CASE 0 1
LIT 'A'
WRITE
GOTO switchend<<1>>
CASE 0 2
LIT 'B'
WRITE
GOTO switchend<<1>>
CASE 0 default
LIT 'C'
WRITE
GOTO switchend<<1>>
LABEL switchend<<1>>
HALT
`

func load(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	p, err := bytecode.ParseText(src)
	be.Err(t, err, nil)
	return p
}

func run(t *testing.T, p *bytecode.Program, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	m := New(p)
	m.SetInput(strings.NewReader(input))
	m.SetOutput(&out)
	m.SetStepLimit(10000)
	err := m.Run()
	return out.String(), err
}

func TestFactorial(t *testing.T) {
	out, err := run(t, load(t, factorialText), "")
	be.Err(t, err, nil)
	be.Equal(t, out, "120\n")
}

func TestFactorialResultOnStackBeforeWrite(t *testing.T) {
	p := load(t, factorialText)
	m := New(p)
	m.SetOutput(&bytes.Buffer{})
	for {
		ins, ok := m.Current()
		be.True(t, ok)
		if ins.Op == bytecode.OpCall && ins.Name == "Write" {
			break
		}
		be.Err(t, m.Step(), nil)
	}
	be.Equal(t, m.StackString(), "[] [120]")
	be.Equal(t, len(m.ReturnAddresses()), 0)
}

func TestSwitchDispatch(t *testing.T) {
	p := load(t, switchText)
	tests := []struct {
		input string
		want  string
	}{
		{"1\n", "A\n"},
		{"2\n", "B\n"},
		{"99\n", "C\n"},
	}
	for _, tt := range tests {
		out, err := run(t, p, tt.input)
		be.Err(t, err, nil)
		be.Equal(t, out, tt.want)
	}
}

func TestSwitchWithoutDefault(t *testing.T) {
	p := load(t, `LIT 3
SWITCH 4
CASE 4 1
HALT
`)
	_, err := run(t, p, "")
	be.Err(t, err, ErrUnresolvedLabel)
}

func TestDivision(t *testing.T) {
	out, err := run(t, load(t, "LIT 7\nLIT 2\nBOP /\nWRITE\nLIT -7\nLIT 2\nBOP /\nWRITE\nHALT\n"), "")
	be.Err(t, err, nil)
	be.Equal(t, out, "3\n-3\n")
}

func TestDivisionByZero(t *testing.T) {
	m := New(load(t, "LIT 7\nLIT 0\nBOP /\nWRITE\nHALT\n"))
	m.SetOutput(&bytes.Buffer{})
	err := m.Run()
	be.Err(t, err, ErrDivisionByZero)

	var rerr *RuntimeError
	be.True(t, errors.As(err, &rerr))
	be.Equal(t, rerr.PC, 2)
	be.Equal(t, rerr.Instruction, bytecode.Bop("/"))
	be.Equal(t, m.Running(), false)
	be.Err(t, m.Step(), ErrHalted)
}

func TestCallLeavesOneResult(t *testing.T) {
	p := load(t, `LIT 7
LIT 3
LIT 4
ARGS 2
CALL add
HALT
LABEL add
LOAD 0 a
LOAD 1 b
BOP +
RETURN add
`)
	m := New(p)
	be.Err(t, m.Run(), nil)
	be.Equal(t, m.Stack(), []bytecode.Value{bytecode.IntValue(7), bytecode.IntValue(7)})
	be.Equal(t, m.FramePointers(), []int{0})
	be.Equal(t, len(m.ReturnAddresses()), 0)
}

func TestTextRoundTripRunsTheSame(t *testing.T) {
	p := load(t, factorialText)
	again := load(t, p.Text())

	want, err := run(t, p, "")
	be.Err(t, err, nil)
	got, err := run(t, again, "")
	be.Err(t, err, nil)
	be.Equal(t, got, want)

	data, err := bytecode.MarshalProgram(p)
	be.Err(t, err, nil)
	decoded, err := bytecode.UnmarshalProgram(data)
	be.Err(t, err, nil)
	got, err = run(t, decoded, "")
	be.Err(t, err, nil)
	be.Equal(t, got, want)
}

func TestReadPromptsAndRetries(t *testing.T) {
	p := load(t, "READ\nWRITE\nREAD\nWRITE\nHALT\n")
	var out bytes.Buffer
	m := New(p)
	m.SetInput(strings.NewReader("abc\n\n 42 \n"))
	m.SetOutput(&out)
	m.SetPrompt("? ")

	err := m.Run()
	be.Err(t, err, ErrInputExhausted)
	be.Equal(t, out.String(), "? ? ? 42\n? ")
}

func TestReadLastLineWithoutNewline(t *testing.T) {
	out, err := run(t, load(t, "READ\nWRITE\nHALT\n"), "-5")
	be.Err(t, err, nil)
	be.Equal(t, out, "-5\n")
}

func TestDump(t *testing.T) {
	p := load(t, `LIT 1
ARGS 1
DUMP ON
LIT 2
LIT "s"
DUMP OFF
LIT 3
HALT
`)
	var out, dump bytes.Buffer
	m := New(p)
	m.SetOutput(&out)
	m.SetDumpOutput(&dump)
	be.Err(t, m.Run(), nil)
	be.Equal(t, dump.String(), "LIT 2\n[] [1,2]\nLIT \"s\"\n[] [1,2,\"s\"]\n")
	be.Equal(t, out.String(), "")
	be.Equal(t, m.Dumping(), false)
}

func TestRuntimeFaults(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unresolved goto", "GOTO nowhere\n", ErrUnresolvedLabel},
		{"unresolved call", "CALL nowhere\n", ErrUnresolvedLabel},
		{"bop underflow", "LIT 1\nBOP +\n", ErrStackUnderflow},
		{"write underflow", "WRITE\n", ErrStackUnderflow},
		{"pop underflow", "LIT 1\nPOP 2\n", ErrStackUnderflow},
		{"load outside frame", "LOAD 0 x\n", ErrStackUnderflow},
		{"store outside frame", "LIT 1\nSTORE 1 x\n", ErrStackUnderflow},
		{"args underflow", "ARGS 1\n", ErrStackUnderflow},
		{"return without call", "LIT 1\nRETURN\n", ErrReturnStackEmpty},
		{"run off the end", "LIT 1\n", ErrPCOutOfRange},
		{"mixed kinds", "LIT 'a'\nLIT 1\nBOP +\n", ErrOperandKind},
		{"infinite loop", "LABEL top\nGOTO top\n", ErrStepLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, load(t, tt.src), "")
			be.Err(t, err, tt.want)
		})
	}
}

func TestStepAndReset(t *testing.T) {
	m := New(load(t, "GOTO end\nLIT 1\nLABEL end\nLIT 2\nHALT\n"))
	be.Equal(t, m.PC(), 0)

	be.Err(t, m.Step(), nil)
	be.Equal(t, m.PC(), 3)
	be.Err(t, m.Step(), nil)
	be.Equal(t, m.StackString(), "[2]")
	be.Err(t, m.Step(), nil)
	be.Equal(t, m.Running(), false)
	be.Equal(t, m.Steps(), 3)
	be.Err(t, m.Run(), nil)

	m.Reset()
	be.Equal(t, m.PC(), 0)
	be.Equal(t, m.Running(), true)
	be.Equal(t, m.StackString(), "[]")
	be.Err(t, m.Run(), nil)
	top, ok := m.Top()
	be.True(t, ok)
	be.Equal(t, top, bytecode.IntValue(2))
}

func TestIndependentMachinesShareAProgram(t *testing.T) {
	p := load(t, switchText)
	var outA, outB bytes.Buffer
	a, b := New(p), New(p)
	a.SetInput(strings.NewReader("1\n"))
	a.SetOutput(&outA)
	b.SetInput(strings.NewReader("2\n"))
	b.SetOutput(&outB)

	for a.Running() || b.Running() {
		if a.Running() {
			be.Err(t, a.Step(), nil)
		}
		if b.Running() {
			be.Err(t, b.Step(), nil)
		}
	}
	be.Equal(t, outA.String(), "A\n")
	be.Equal(t, outB.String(), "B\n")
}
