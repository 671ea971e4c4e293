package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/tinyvm/pkg/bytecode"
)

var log = commonlog.GetLogger("tinyvm.vm")

// DefaultStackCapacity is the initial operand stack capacity of a new VM.
const DefaultStackCapacity = 256

// VM executes one Program. States are running and halted.
type VM struct {
	program *bytecode.Program
	stack   *RuntimeStack
	returns []int
	pc      int
	running bool
	steps   int

	in      *bufio.Reader
	out     io.Writer
	dumpOut io.Writer
	prompt  string

	dump      bool
	startDump bool
	trace     bool
	stepLimit int
}

// New creates a VM positioned at the first instruction of program, reading
// from stdin and writing to stdout.
func New(program *bytecode.Program) *VM {
	return &VM{
		program: program,
		stack:   NewRuntimeStack(DefaultStackCapacity),
		running: true,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
}

// SetInput sets the reader READ takes integers from.
func (vm *VM) SetInput(r io.Reader) {
	vm.in = bufio.NewReader(r)
}

// SetOutput sets the writer WRITE prints to.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetDumpOutput sets where dump tracing goes. It defaults to the output.
func (vm *VM) SetDumpOutput(w io.Writer) {
	vm.dumpOut = w
}

// SetDump turns dump tracing on or off, as DUMP ON/OFF does. The setting
// also survives Reset.
func (vm *VM) SetDump(on bool) {
	vm.dump = on
	vm.startDump = on
}

// SetPrompt sets text written before each READ.
func (vm *VM) SetPrompt(prompt string) {
	vm.prompt = prompt
}

// SetStepLimit halts the VM with ErrStepLimit after n instructions.
// Zero means no limit.
func (vm *VM) SetStepLimit(n int) {
	vm.stepLimit = n
}

// SetTrace logs every executed instruction at debug level.
func (vm *VM) SetTrace(on bool) {
	vm.trace = on
}

// SetStackCapacity grows the operand stack's backing array to n.
func (vm *VM) SetStackCapacity(n int) {
	if n > cap(vm.stack.values) {
		values := make([]bytecode.Value, len(vm.stack.values), n)
		copy(values, vm.stack.values)
		vm.stack.values = values
	}
}

// Program returns the program being executed.
func (vm *VM) Program() *bytecode.Program { return vm.program }

// PC is the address of the next instruction to execute.
func (vm *VM) PC() int { return vm.pc }

// Running reports whether the VM has not halted.
func (vm *VM) Running() bool { return vm.running }

// Steps is the number of instructions executed since the last reset.
func (vm *VM) Steps() int { return vm.steps }

// Dumping reports whether dump tracing is on.
func (vm *VM) Dumping() bool { return vm.dump }

// Stack returns a copy of the operand stack, bottom first.
func (vm *VM) Stack() []bytecode.Value { return vm.stack.Values() }

// Top returns the value on top of the operand stack.
func (vm *VM) Top() (bytecode.Value, bool) {
	v, err := vm.stack.Peek()
	return v, err == nil
}

// FramePointers returns the frame-pointer stack, outermost first.
func (vm *VM) FramePointers() []int { return vm.stack.Frames() }

// Frame returns the values of the current frame.
func (vm *VM) Frame() []bytecode.Value { return vm.stack.Frame() }

// ReturnAddresses returns the return-address stack, oldest first.
func (vm *VM) ReturnAddresses() []int {
	out := make([]int, len(vm.returns))
	copy(out, vm.returns)
	return out
}

// StackString renders the operand stack grouped by frame.
func (vm *VM) StackString() string { return vm.stack.String() }

// Current returns the instruction at the program counter.
func (vm *VM) Current() (bytecode.Instruction, bool) {
	ins, err := vm.program.At(vm.pc)
	return ins, err == nil
}

// Reset rewinds the VM to the first instruction with empty stacks.
// Input and output are kept.
func (vm *VM) Reset() {
	vm.stack.reset()
	vm.returns = vm.returns[:0]
	vm.pc = 0
	vm.steps = 0
	vm.running = true
	vm.dump = vm.startDump
}

// Run executes until HALT or a runtime error.
func (vm *VM) Run() error {
	log.Debugf("run: %d instructions", vm.program.Len())
	for vm.running {
		if err := vm.Step(); err != nil {
			return err
		}
	}
	log.Debugf("halted after %d steps", vm.steps)
	return nil
}

// Step executes exactly one instruction. Any error halts the VM.
func (vm *VM) Step() error {
	if !vm.running {
		return ErrHalted
	}
	pc := vm.pc
	ins, err := vm.program.At(pc)
	if err != nil {
		vm.running = false
		return &RuntimeError{PC: pc, Err: fmt.Errorf("%w: %d", ErrPCOutOfRange, pc)}
	}
	if vm.stepLimit > 0 && vm.steps >= vm.stepLimit {
		vm.running = false
		return &RuntimeError{PC: pc, Instruction: ins, Err: ErrStepLimit}
	}

	if vm.trace {
		log.Debugf("%04X %-24s %s", pc, ins, vm.stack)
	}
	if err := vm.execute(ins); err != nil {
		vm.running = false
		return &RuntimeError{PC: pc, Instruction: ins, Err: err}
	}
	vm.steps++
	if vm.dump && ins.Op != bytecode.OpDump {
		vm.dumpState(ins)
	}
	vm.pc++
	return nil
}

func (vm *VM) dumpState(ins bytecode.Instruction) {
	w := vm.dumpOut
	if w == nil {
		w = vm.out
	}
	fmt.Fprintf(w, "%s\n%s\n", ins, vm.stack)
}

// jump lands on addr after the loop's post-increment.
func (vm *VM) jump(addr int) {
	vm.pc = addr - 1
}

func (vm *VM) execute(ins bytecode.Instruction) error {
	switch ins.Op {
	case bytecode.OpLabel, bytecode.OpCase:
		// markers

	case bytecode.OpGoto:
		addr, err := vm.program.Resolve(ins.Name)
		if err != nil {
			return err
		}
		vm.jump(addr)

	case bytecode.OpFalseBranch:
		cond, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if cond.Truthy() {
			return nil
		}
		addr, err := vm.program.Resolve(ins.Name)
		if err != nil {
			return err
		}
		vm.jump(addr)

	case bytecode.OpSwitch:
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		addr, err := vm.program.ResolveCase(ins.N, v)
		if err != nil {
			return err
		}
		vm.jump(addr)

	case bytecode.OpCall:
		addr, err := vm.program.Resolve(ins.Name)
		if err != nil {
			return err
		}
		vm.returns = append(vm.returns, vm.pc)
		vm.jump(addr)

	case bytecode.OpReturn:
		if len(vm.returns) == 0 {
			return ErrReturnStackEmpty
		}
		result, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if err := vm.stack.PopFrame(); err != nil {
			return err
		}
		vm.stack.Push(result)
		vm.pc = vm.returns[len(vm.returns)-1]
		vm.returns = vm.returns[:len(vm.returns)-1]

	case bytecode.OpArgs:
		return vm.stack.NewFrame(ins.N)

	case bytecode.OpHalt:
		vm.running = false

	case bytecode.OpLit:
		vm.stack.Push(ins.Value)

	case bytecode.OpLoad:
		v, err := vm.stack.Load(ins.N)
		if err != nil {
			return err
		}
		vm.stack.Push(v)

	case bytecode.OpStore:
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		return vm.stack.Store(ins.N, v)

	case bytecode.OpPop:
		return vm.stack.PopN(ins.N)

	case bytecode.OpBop:
		r, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		l, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		v, err := binaryOp(ins.Name, l, r)
		if err != nil {
			return err
		}
		vm.stack.Push(v)

	case bytecode.OpRead:
		v, err := vm.read()
		if err != nil {
			return err
		}
		vm.stack.Push(v)

	case bytecode.OpWrite:
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(vm.out, v.String()); err != nil {
			return fmt.Errorf("write: %w", err)
		}

	case bytecode.OpDump:
		vm.dump = ins.N != 0

	default:
		return fmt.Errorf("unknown opcode %s", ins.Op)
	}
	return nil
}

// read takes one integer per line, prompting and retrying on bad input.
func (vm *VM) read() (bytecode.Value, error) {
	for {
		if vm.prompt != "" {
			fmt.Fprint(vm.out, vm.prompt)
		}
		line, err := vm.in.ReadString('\n')
		if text := strings.TrimSpace(line); text != "" {
			n, perr := strconv.ParseInt(text, 10, 32)
			if perr == nil {
				return bytecode.IntValue(int32(n)), nil
			}
			log.Warningf("read: %q is not an integer", text)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return bytecode.Value{}, ErrInputExhausted
			}
			return bytecode.Value{}, fmt.Errorf("read: %w", err)
		}
	}
}
