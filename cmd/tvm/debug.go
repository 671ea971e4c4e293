package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/tinyvm/vm"
)

var errQuit = errors.New("quit")

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(s string) error {
	*l = append(*l, s)
	return nil
}

const debugHelp = `Commands:
  b <addr|label>   set a breakpoint
  d <addr>         delete a breakpoint
  enable <addr>    enable a breakpoint
  disable <addr>   disable a breakpoint
  bl               list breakpoints
  c                continue
  s                step one instruction
  n                step over calls
  f                run until the current function returns
  stack            show the runtime stack
  vars             show the current frame
  bt               show return addresses
  where            show the current position
  l [n]            list n instructions from the current position
  r                restart the program
  q                quit
`

func (a *app) debugCmd(args []string) error {
	fs := a.flags("debug", "[source|bytecode]")
	o := a.vmFlags(fs)
	var breaks stringList
	fs.Var(&breaks, "b", "Break at an address or label (repeatable)")
	if err := parse(fs, args); err != nil {
		return err
	}
	prog, err := a.loadProgram(a.sourcePath(fs))
	if err != nil {
		return err
	}

	// Commands and program input share one reader.
	in := bufio.NewReader(a.stdin)
	a.stdin = in
	m, closeInput, err := a.newVM(prog, o)
	if err != nil {
		return err
	}
	defer closeInput()

	d := vm.NewDebugger(m)
	for _, b := range breaks {
		if err := setBreakpoint(d, b); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.stdout, "tvm debugger, %d instructions (type 'help' for commands)\n", prog.Len())
	a.showPosition(d)
	for {
		fmt.Fprint(a.stdout, "(tvm) ")
		line, err := in.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				fmt.Fprintln(a.stdout)
				return nil
			}
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := a.debugCommand(d, fields); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(a.stdout, "error: %v\n", err)
		}
	}
}

func (a *app) debugCommand(d *vm.Debugger, fields []string) error {
	m := d.VM()
	arg := func() (string, error) {
		if len(fields) < 2 {
			return "", fmt.Errorf("%s needs an argument", fields[0])
		}
		return fields[1], nil
	}

	switch fields[0] {
	case "help", "h", "?":
		fmt.Fprint(a.stdout, debugHelp)
	case "q", "quit", "exit":
		return errQuit
	case "b", "break":
		s, err := arg()
		if err != nil {
			return err
		}
		return setBreakpoint(d, s)
	case "d", "delete", "enable", "disable":
		s, err := arg()
		if err != nil {
			return err
		}
		addr, err := parseAddr(s)
		if err != nil {
			return err
		}
		switch fields[0] {
		case "enable":
			return d.EnableBreakpoint(addr)
		case "disable":
			return d.DisableBreakpoint(addr)
		}
		return d.RemoveBreakpoint(addr)
	case "bl":
		for _, bp := range d.ListBreakpoints() {
			state := "on"
			if !bp.Active {
				state = "off"
			}
			fmt.Fprintf(a.stdout, "%04X %-3s %s\n", bp.Addr, state, bp.Label)
		}
	case "c", "continue":
		a.report(d, d.Continue())
	case "s", "step":
		a.report(d, d.Resume(vm.StepInto))
	case "n", "next":
		a.report(d, d.Resume(vm.StepOver))
	case "f", "finish":
		a.report(d, d.Resume(vm.StepOut))
	case "stack":
		fmt.Fprintln(a.stdout, m.StackString())
	case "vars":
		for i, v := range d.Variables() {
			fmt.Fprintf(a.stdout, "%3d: %s\n", i, v.Literal())
		}
	case "bt":
		for i := len(m.ReturnAddresses()) - 1; i >= 0; i-- {
			fmt.Fprintf(a.stdout, "%04X\n", m.ReturnAddresses()[i])
		}
	case "where":
		a.showPosition(d)
	case "l", "list":
		n := 8
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return err
			}
			n = v
		}
		prog := m.Program()
		for addr := m.PC(); addr < m.PC()+n && addr < prog.Len(); addr++ {
			marker := "  "
			if d.HasBreakpoint(addr) {
				marker = "* "
			}
			fmt.Fprintf(a.stdout, "%s%s\n", marker, prog.DisassembleInstruction(addr))
		}
	case "r", "restart":
		m.Reset()
		a.showPosition(d)
	default:
		return fmt.Errorf("unknown command %q (type 'help')", fields[0])
	}
	return nil
}

func (a *app) report(d *vm.Debugger, ev vm.StopEvent) {
	switch ev.Reason {
	case "halted":
		fmt.Fprintf(a.stdout, "halted after %d steps\n", d.VM().Steps())
	case "error":
		fmt.Fprintf(a.stdout, "%v\n", ev.Err)
	default:
		if ev.Reason == "breakpoint" {
			fmt.Fprintf(a.stdout, "breakpoint at %04X\n", ev.PC)
		}
		a.showPosition(d)
	}
}

func (a *app) showPosition(d *vm.Debugger) {
	m := d.VM()
	label, dist := d.Where()
	where := fmt.Sprintf("+%d", dist)
	if label != "" {
		where = label + where
	}
	fmt.Fprintf(a.stdout, "%s  [%s]\n", m.Program().DisassembleInstruction(m.PC()), where)
}

// setBreakpoint takes an address (decimal or 0x hex) or a label. A
// function name without its <<n>> suffix matches the generated label.
func setBreakpoint(d *vm.Debugger, s string) error {
	if addr, err := parseAddr(s); err == nil {
		return d.SetBreakpoint(addr)
	}
	labels := d.VM().Program().Labels()
	if _, ok := labels[s]; !ok {
		var matches []string
		for name := range labels {
			if strings.HasPrefix(name, s+"<<") {
				matches = append(matches, name)
			}
		}
		if len(matches) > 1 {
			sort.Strings(matches)
			return fmt.Errorf("%s is ambiguous: %s", s, strings.Join(matches, " "))
		}
		if len(matches) == 1 {
			s = matches[0]
		}
	}
	return d.SetBreakpointAtLabel(s)
}

func parseAddr(s string) (int, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return int(v), nil
}
