package bytecode

import (
	"fmt"
	"strings"
)

// Opcode represents a bytecode instruction.
type Opcode uint8

const (
	// ========================================================================
	// Markers
	// ========================================================================

	OpLabel Opcode = iota // LABEL name: jump target marker, no effect
	OpCase                // CASE switch value|default: switch target marker

	// ========================================================================
	// Control flow
	// ========================================================================

	OpGoto        // GOTO name: unconditional jump
	OpFalseBranch // FALSEBRANCH name: pop, jump if false
	OpSwitch      // SWITCH switch: pop discriminant, jump to matching CASE
	OpCall        // CALL name: push return address, jump
	OpReturn      // RETURN [name]: pop frame keeping the result, jump back
	OpArgs        // ARGS n: new frame beneath the top n values
	OpHalt        // HALT: stop the machine

	// ========================================================================
	// Stack and variables
	// ========================================================================

	OpLit   // LIT value [comment]: push literal
	OpLoad  // LOAD offset [name]: push frame slot
	OpStore // STORE offset [name]: pop into frame slot
	OpPop   // POP n: discard n values
	OpBop   // BOP op: pop right, pop left, push result

	// ========================================================================
	// I/O and debugging
	// ========================================================================

	OpRead  // READ: push an integer from input
	OpWrite // WRITE: pop and print
	OpDump  // DUMP ON|OFF: toggle per-instruction tracing

	opcodeCount
)

// OperandKind describes what follows the opcode in an instruction.
type OperandKind uint8

const (
	OperandNone     OperandKind = iota
	OperandNum                  // integer in Instruction.N
	OperandLabel                // label in Instruction.Name
	OperandOptLabel             // optional label in Instruction.Name
	OperandValue                // literal in Instruction.Value
	OperandSlot                 // integer in Instruction.N, optional name comment
	OperandOperator             // operator spelling in Instruction.Name
	OperandToggle               // ON/OFF in Instruction.N (1/0)
	OperandCase                 // switch id in N, Value or Default
)

// VariablePop marks an opcode whose pop count is the instruction's N.
const VariablePop = -1

// OpcodeInfo provides metadata about each opcode for the loader, the
// disassembler and frame accounting in the code generator.
type OpcodeInfo struct {
	Name      string      // Mnemonic used by the text form
	StackPop  int         // Values popped (VariablePop = N)
	StackPush int         // Values pushed
	Operand   OperandKind // Operand layout
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = [opcodeCount]OpcodeInfo{
	OpLabel: {"LABEL", 0, 0, OperandLabel},
	OpCase:  {"CASE", 0, 0, OperandCase},

	OpGoto:        {"GOTO", 0, 0, OperandLabel},
	OpFalseBranch: {"FALSEBRANCH", 1, 0, OperandLabel},
	OpSwitch:      {"SWITCH", 1, 0, OperandNum},
	OpCall:        {"CALL", 0, 1, OperandLabel},
	OpReturn:      {"RETURN", 1, 0, OperandOptLabel},
	OpArgs:        {"ARGS", VariablePop, 0, OperandNum},
	OpHalt:        {"HALT", 0, 0, OperandNone},

	OpLit:   {"LIT", 0, 1, OperandValue},
	OpLoad:  {"LOAD", 0, 1, OperandSlot},
	OpStore: {"STORE", 1, 0, OperandSlot},
	OpPop:   {"POP", VariablePop, 0, OperandNum},
	OpBop:   {"BOP", 2, 1, OperandOperator},

	OpRead:  {"READ", 0, 1, OperandNone},
	OpWrite: {"WRITE", 1, 0, OperandNone},
	OpDump:  {"DUMP", 0, 0, OperandToggle},
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opcodeCount)
	for op := Opcode(0); op < opcodeCount; op++ {
		m[opcodeInfoTable[op].Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if op < opcodeCount {
		return opcodeInfoTable[op]
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// LookupOpcode finds an opcode by mnemonic, ignoring case.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[strings.ToUpper(name)]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsJump returns true if this opcode may transfer control.
func (op Opcode) IsJump() bool {
	switch op {
	case OpGoto, OpFalseBranch, OpSwitch, OpCall, OpReturn:
		return true
	}
	return false
}

// IsMarker returns true for opcodes that only mark an address.
func (op Opcode) IsMarker() bool {
	return op == OpLabel || op == OpCase
}

// AllOpcodes returns every defined opcode in numeric order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, opcodeCount)
	for op := Opcode(0); op < opcodeCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return int(opcodeCount)
}
