package vm

import (
	"fmt"
	"sort"

	"github.com/chazu/tinyvm/pkg/bytecode"
)

// StepMode says how far a debugger resume should run.
type StepMode int

const (
	StepNone StepMode = iota // run to a breakpoint or halt
	StepInto                 // one instruction
	StepOver                 // one instruction, running calls to completion
	StepOut                  // until the current function returns
)

func (m StepMode) String() string {
	switch m {
	case StepNone:
		return "continue"
	case StepInto:
		return "step"
	case StepOver:
		return "next"
	case StepOut:
		return "finish"
	}
	return fmt.Sprintf("StepMode(%d)", int(m))
}

// Breakpoint is a stop at an instruction address.
type Breakpoint struct {
	Addr   int
	Label  string // set when created by label
	Active bool
}

// StopEvent describes why a debugger resume returned.
type StopEvent struct {
	Reason string // "breakpoint", "step", "halted" or "error"
	PC     int
	Err    error
}

// Debugger drives a VM one instruction at a time with breakpoints.
type Debugger struct {
	vm          *VM
	breakpoints map[int]*Breakpoint
}

// NewDebugger wraps vm.
func NewDebugger(vm *VM) *Debugger {
	return &Debugger{vm: vm, breakpoints: make(map[int]*Breakpoint)}
}

// VM returns the machine being debugged.
func (d *Debugger) VM() *VM { return d.vm }

// ---------------------------------------------------------------------------
// Breakpoint management
// ---------------------------------------------------------------------------

// SetBreakpoint stops execution before the instruction at addr.
func (d *Debugger) SetBreakpoint(addr int) error {
	if addr < 0 || addr >= d.vm.program.Len() {
		return fmt.Errorf("address %d out of range", addr)
	}
	d.breakpoints[addr] = &Breakpoint{Addr: addr, Active: true}
	return nil
}

// SetBreakpointAtLabel stops execution at the first instruction after label.
func (d *Debugger) SetBreakpointAtLabel(label string) error {
	addr, err := d.vm.program.Resolve(label)
	if err != nil {
		return err
	}
	if err := d.SetBreakpoint(addr); err != nil {
		return fmt.Errorf("label %s: %w", label, err)
	}
	d.breakpoints[addr].Label = label
	return nil
}

// RemoveBreakpoint deletes the breakpoint at addr.
func (d *Debugger) RemoveBreakpoint(addr int) error {
	if _, ok := d.breakpoints[addr]; !ok {
		return fmt.Errorf("no breakpoint at %04X", addr)
	}
	delete(d.breakpoints, addr)
	return nil
}

// EnableBreakpoint re-arms a disabled breakpoint.
func (d *Debugger) EnableBreakpoint(addr int) error {
	bp, ok := d.breakpoints[addr]
	if !ok {
		return fmt.Errorf("no breakpoint at %04X", addr)
	}
	bp.Active = true
	return nil
}

// DisableBreakpoint keeps the breakpoint but stops honoring it.
func (d *Debugger) DisableBreakpoint(addr int) error {
	bp, ok := d.breakpoints[addr]
	if !ok {
		return fmt.Errorf("no breakpoint at %04X", addr)
	}
	bp.Active = false
	return nil
}

// ListBreakpoints returns all breakpoints by address.
func (d *Debugger) ListBreakpoints() []Breakpoint {
	out := make([]Breakpoint, 0, len(d.breakpoints))
	for _, bp := range d.breakpoints {
		out = append(out, *bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// HasBreakpoint reports whether an active breakpoint is set at addr.
func (d *Debugger) HasBreakpoint(addr int) bool {
	bp, ok := d.breakpoints[addr]
	return ok && bp.Active
}

// ClearAllBreakpoints removes all breakpoints.
func (d *Debugger) ClearAllBreakpoints() {
	d.breakpoints = make(map[int]*Breakpoint)
}

// ---------------------------------------------------------------------------
// Execution control
// ---------------------------------------------------------------------------

// Continue runs until a breakpoint, HALT or an error.
func (d *Debugger) Continue() StopEvent { return d.Resume(StepNone) }

// Resume runs according to mode. A breakpoint at the starting address does
// not stop the first instruction.
func (d *Debugger) Resume(mode StepMode) StopEvent {
	depth := len(d.vm.returns)
	first := true
	for {
		if !d.vm.running {
			return StopEvent{Reason: "halted", PC: d.vm.pc}
		}
		if !first && d.HasBreakpoint(d.vm.pc) {
			return StopEvent{Reason: "breakpoint", PC: d.vm.pc}
		}
		first = false
		if err := d.vm.Step(); err != nil {
			return StopEvent{Reason: "error", PC: d.vm.pc, Err: err}
		}
		if !d.vm.running {
			return StopEvent{Reason: "halted", PC: d.vm.pc}
		}
		switch mode {
		case StepInto:
			return StopEvent{Reason: "step", PC: d.vm.pc}
		case StepOver:
			if len(d.vm.returns) <= depth {
				return StopEvent{Reason: "step", PC: d.vm.pc}
			}
		case StepOut:
			if len(d.vm.returns) < depth {
				return StopEvent{Reason: "step", PC: d.vm.pc}
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// Variables returns the current frame's slots by offset.
func (d *Debugger) Variables() []bytecode.Value { return d.vm.Frame() }

// Where names the label most recently passed at or before the program
// counter, with the distance from it.
func (d *Debugger) Where() (string, int) {
	for addr := d.vm.pc; addr > 0; addr-- {
		if name, ok := d.vm.program.LabelAt(addr); ok {
			return name, d.vm.pc - addr
		}
	}
	return "", d.vm.pc
}
