// Package bytecode defines the instruction set executed by the tinyvm stack
// machine and the Program container produced by the code generator.
//
// A Program is a flat, append-only list of instructions. Control flow is
// symbolic: LABEL markers name addresses and GOTO, FALSEBRANCH and CALL
// refer to them by name. Switch statements use CASE markers keyed by a
// small integer switch id and a literal value, with a per-switch default.
// Both tables are built while instructions are appended, so a Program is
// ready to execute as soon as the last instruction is in.
//
// Instruction set:
//
//	LABEL name            marker, no effect
//	CASE id value|default switch target marker, no effect
//	GOTO name             jump
//	FALSEBRANCH name      pop; jump if the value is false
//	SWITCH id             pop discriminant; jump to the matching CASE
//	CALL name             push return address; jump
//	RETURN [name]         pop result and frame; push result; jump back
//	ARGS n                open a frame beneath the top n values
//	HALT                  stop
//	LIT value [comment]   push a literal
//	LOAD offset [name]    push a frame-relative slot
//	STORE offset [name]   pop into a frame-relative slot
//	POP n                 discard n values
//	BOP op                pop right, pop left, push left op right
//	READ                  push an integer read from input
//	WRITE                 pop and print
//	DUMP ON|OFF           toggle instruction tracing
//
// Programs have two serialized forms: the line-oriented text form accepted
// by LoadText, and a canonical CBOR encoding (MarshalProgram).
package bytecode
