package hash

import "github.com/chazu/tinyvm/pkg/ast"

// ---------------------------------------------------------------------------
// Frozen tag bytes for the tree serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every cached program key.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// Node kind tags. ast.Kind values are not used directly so that reordering
// the Kind enum cannot change a hash.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Structure
	TagProgram      byte = 0x01
	TagBlock        byte = 0x02
	TagFunctionDecl byte = 0x03
	TagDecl         byte = 0x04
	TagFormals      byte = 0x05

	// Types
	TagIntType    byte = 0x08
	TagBoolType   byte = 0x09
	TagCharType   byte = 0x0A
	TagStringType byte = 0x0B

	// Statements
	TagAssign           byte = 0x10
	TagIf               byte = 0x11
	TagUnless           byte = 0x12
	TagWhile            byte = 0x13
	TagReturn           byte = 0x14
	TagSwitchStatement  byte = 0x15
	TagSwitchBlock      byte = 0x16
	TagCaseStatement    byte = 0x17
	TagDefaultStatement byte = 0x18

	// Expressions
	TagCall          byte = 0x20
	TagActualArgs    byte = 0x21
	TagIdentifier    byte = 0x22
	TagIntLiteral    byte = 0x23
	TagCharLiteral   byte = 0x24
	TagStringLiteral byte = 0x25
	TagRelOp         byte = 0x26
	TagAddOp         byte = 0x27
	TagMulOp         byte = 0x28

	// Reserved 0xFE-0xFF
)

var kindTags = map[ast.Kind]byte{
	ast.KindProgram:          TagProgram,
	ast.KindBlock:            TagBlock,
	ast.KindFunctionDecl:     TagFunctionDecl,
	ast.KindDecl:             TagDecl,
	ast.KindFormals:          TagFormals,
	ast.KindIntType:          TagIntType,
	ast.KindBoolType:         TagBoolType,
	ast.KindCharType:         TagCharType,
	ast.KindStringType:       TagStringType,
	ast.KindAssign:           TagAssign,
	ast.KindIf:               TagIf,
	ast.KindUnless:           TagUnless,
	ast.KindWhile:            TagWhile,
	ast.KindReturn:           TagReturn,
	ast.KindSwitchStatement:  TagSwitchStatement,
	ast.KindSwitchBlock:      TagSwitchBlock,
	ast.KindCaseStatement:    TagCaseStatement,
	ast.KindDefaultStatement: TagDefaultStatement,
	ast.KindCall:             TagCall,
	ast.KindActualArgs:       TagActualArgs,
	ast.KindIdentifier:       TagIdentifier,
	ast.KindIntLiteral:       TagIntLiteral,
	ast.KindCharLiteral:      TagCharLiteral,
	ast.KindStringLiteral:    TagStringLiteral,
	ast.KindRelOp:            TagRelOp,
	ast.KindAddOp:            TagAddOp,
	ast.KindMulOp:            TagMulOp,
}

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagProgram, TagBlock, TagFunctionDecl, TagDecl, TagFormals,
	TagIntType, TagBoolType, TagCharType, TagStringType,
	TagAssign, TagIf, TagUnless, TagWhile, TagReturn,
	TagSwitchStatement, TagSwitchBlock, TagCaseStatement, TagDefaultStatement,
	TagCall, TagActualArgs, TagIdentifier,
	TagIntLiteral, TagCharLiteral, TagStringLiteral,
	TagRelOp, TagAddOp, TagMulOp,
}
