package vm

import (
	"bytes"
	"testing"

	"github.com/nalgeon/be"

	"github.com/chazu/tinyvm/pkg/bytecode"
)

func newDebugger(t *testing.T, src string) (*Debugger, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	m := New(load(t, src))
	m.SetOutput(&out)
	return NewDebugger(m), &out
}

func TestDebuggerBreakpointAtLabel(t *testing.T) {
	d, out := newDebugger(t, factorialText)
	be.Err(t, d.SetBreakpointAtLabel("fact<<2>>"), nil)

	want := []bytecode.Value{bytecode.IntValue(5)}
	for n := int32(5); n >= 1; n-- {
		ev := d.Continue()
		be.Equal(t, ev.Reason, "breakpoint")
		want[0] = bytecode.IntValue(n)
		be.Equal(t, d.Variables(), want)
		be.Equal(t, len(d.VM().ReturnAddresses()), int(6-n))

		label, off := d.Where()
		be.Equal(t, label, "fact<<2>>")
		be.Equal(t, off, 0)
	}

	ev := d.Continue()
	be.Equal(t, ev.Reason, "halted")
	be.Equal(t, out.String(), "120\n")
}

func TestDebuggerStepOverAndOut(t *testing.T) {
	d, _ := newDebugger(t, `LIT 3
LIT 4
ARGS 2
CALL add
LIT 9
HALT
LABEL add
LOAD 0 a
LOAD 1 b
BOP +
RETURN add
`)
	be.Err(t, d.SetBreakpoint(3), nil)
	be.Equal(t, d.Continue().Reason, "breakpoint")

	ev := d.Resume(StepOver)
	be.Equal(t, ev.Reason, "step")
	be.Equal(t, ev.PC, 4)
	be.Equal(t, d.VM().StackString(), "[7]")

	d.VM().Reset()
	d.Continue()
	be.Equal(t, d.Resume(StepInto).PC, 7)
	be.Equal(t, d.Resume(StepInto).PC, 8)
	ev = d.Resume(StepOut)
	be.Equal(t, ev.PC, 4)
	be.Equal(t, d.VM().StackString(), "[7]")
}

func TestDebuggerBreakpointManagement(t *testing.T) {
	d, _ := newDebugger(t, "LIT 1\nLIT 2\nHALT\n")
	be.Err(t, d.SetBreakpoint(1), nil)
	be.Err(t, d.SetBreakpoint(2), nil)
	be.Err(t, d.SetBreakpoint(3), "out of range")
	be.Err(t, d.SetBreakpointAtLabel("missing"), ErrUnresolvedLabel)

	be.Err(t, d.DisableBreakpoint(1), nil)
	be.Equal(t, d.HasBreakpoint(1), false)
	ev := d.Continue()
	be.Equal(t, ev.PC, 2)

	be.Err(t, d.EnableBreakpoint(1), nil)
	be.Equal(t, d.ListBreakpoints(), []Breakpoint{{Addr: 1, Active: true}, {Addr: 2, Active: true}})

	be.Err(t, d.RemoveBreakpoint(1), nil)
	be.Err(t, d.RemoveBreakpoint(1), "no breakpoint")
	d.ClearAllBreakpoints()
	be.Equal(t, len(d.ListBreakpoints()), 0)

	be.Equal(t, d.Continue().Reason, "halted")
	be.Equal(t, d.Continue().Reason, "halted")
}

func TestDebuggerReportsErrors(t *testing.T) {
	d, _ := newDebugger(t, "LIT 1\nLIT 0\nBOP /\nHALT\n")
	ev := d.Continue()
	be.Equal(t, ev.Reason, "error")
	be.Err(t, ev.Err, ErrDivisionByZero)
}
