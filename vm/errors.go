package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/tinyvm/pkg/bytecode"
)

// Runtime faults. All of them halt the VM.
var (
	ErrUnresolvedLabel  = bytecode.ErrUnresolvedLabel
	ErrStackUnderflow   = errors.New("stack underflow")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrReturnStackEmpty = errors.New("return with empty return stack")
	ErrPCOutOfRange     = errors.New("program counter out of range")
	ErrOperandKind      = errors.New("operand kind mismatch")
	ErrInputExhausted   = errors.New("input exhausted")
	ErrHalted           = errors.New("vm is halted")
	ErrStepLimit        = errors.New("step limit reached")
	ErrUnknownOperator  = errors.New("unknown operator")
)

// RuntimeError is returned by Step and Run when an instruction faults.
type RuntimeError struct {
	PC          int
	Instruction bytecode.Instruction
	Err         error
}

func (e *RuntimeError) Error() string {
	if e.Instruction == (bytecode.Instruction{}) {
		return fmt.Sprintf("runtime error at %04X: %v", e.PC, e.Err)
	}
	return fmt.Sprintf("runtime error at %04X (%s): %v", e.PC, e.Instruction, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
