package bytecode

import (
	"strconv"
	"strings"
)

// DefaultCase is the CASE operand spelling of a switch's fallback target.
const DefaultCase = "default"

// Instruction is one element of a Program. Which fields are meaningful
// depends on the opcode's OperandKind.
type Instruction struct {
	Op      Opcode
	N       int    // ARGS/POP count, LOAD/STORE offset, SWITCH/CASE id, DUMP toggle
	Name    string // label name or BOP operator
	Value   Value  // LIT literal, CASE value
	Default bool   // CASE default
	Comment string // variable name or note carried by LIT/LOAD/STORE
}

// Constructors used by the code generator and tests.

func Label(name string) Instruction       { return Instruction{Op: OpLabel, Name: name} }
func Goto(name string) Instruction        { return Instruction{Op: OpGoto, Name: name} }
func FalseBranch(name string) Instruction { return Instruction{Op: OpFalseBranch, Name: name} }
func Call(name string) Instruction        { return Instruction{Op: OpCall, Name: name} }
func Return(name string) Instruction      { return Instruction{Op: OpReturn, Name: name} }
func Args(n int) Instruction              { return Instruction{Op: OpArgs, N: n} }
func Halt() Instruction                   { return Instruction{Op: OpHalt} }
func Pop(n int) Instruction               { return Instruction{Op: OpPop, N: n} }
func Bop(op string) Instruction           { return Instruction{Op: OpBop, Name: op} }
func Read() Instruction                   { return Instruction{Op: OpRead} }
func Write() Instruction                  { return Instruction{Op: OpWrite} }
func Switch(id int) Instruction           { return Instruction{Op: OpSwitch, N: id} }

func Lit(v Value, comment string) Instruction {
	return Instruction{Op: OpLit, Value: v, Comment: comment}
}

func Load(offset int, name string) Instruction {
	return Instruction{Op: OpLoad, N: offset, Comment: name}
}

func Store(offset int, name string) Instruction {
	return Instruction{Op: OpStore, N: offset, Comment: name}
}

func Case(id int, v Value) Instruction {
	return Instruction{Op: OpCase, N: id, Value: v}
}

func CaseDefault(id int) Instruction {
	return Instruction{Op: OpCase, N: id, Default: true}
}

func Dump(on bool) Instruction {
	if on {
		return Instruction{Op: OpDump, N: 1}
	}
	return Instruction{Op: OpDump}
}

// StackEffect is the net change in operand stack height caused by ins.
func (ins Instruction) StackEffect() int {
	info := GetOpcodeInfo(ins.Op)
	pop := info.StackPop
	if pop == VariablePop {
		pop = ins.N
	}
	return info.StackPush - pop
}

// String renders ins in the loader's text form.
func (ins Instruction) String() string {
	info := GetOpcodeInfo(ins.Op)
	var sb strings.Builder
	sb.WriteString(info.Name)
	switch info.Operand {
	case OperandNum:
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(ins.N))
	case OperandLabel, OperandOperator:
		sb.WriteByte(' ')
		sb.WriteString(ins.Name)
	case OperandOptLabel:
		if ins.Name != "" {
			sb.WriteByte(' ')
			sb.WriteString(ins.Name)
		}
	case OperandValue:
		sb.WriteByte(' ')
		sb.WriteString(ins.Value.Literal())
	case OperandSlot:
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(ins.N))
	case OperandToggle:
		if ins.N != 0 {
			sb.WriteString(" ON")
		} else {
			sb.WriteString(" OFF")
		}
	case OperandCase:
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(ins.N))
		sb.WriteByte(' ')
		if ins.Default {
			sb.WriteString(DefaultCase)
		} else {
			sb.WriteString(ins.Value.Literal())
		}
	}
	if ins.Comment != "" && (info.Operand == OperandValue || info.Operand == OperandSlot) {
		sb.WriteByte(' ')
		sb.WriteString(ins.Comment)
	}
	return sb.String()
}
