package ast

import (
	"fmt"
	"strconv"
)

// Builder helpers. Each returns the id of the new node; none of them sets
// the root except Program.

// Program creates the root node wrapping block.
func (t *Tree) Program(block NodeID) NodeID {
	id := t.Add(KindProgram, "", block)
	t.SetRoot(id)
	return id
}

// Block creates a block with declarations and statements in order.
func (t *Tree) Block(items ...NodeID) NodeID {
	return t.Add(KindBlock, "", items...)
}

// TypeNode creates a primitive type node of kind k.
func (t *Tree) TypeNode(k Kind) NodeID {
	if !k.IsType() {
		panic(fmt.Sprintf("ast: %s is not a type kind", k))
	}
	return t.Add(k, "")
}

// Ident creates an identifier node.
func (t *Tree) Ident(name string) NodeID {
	return t.Add(KindIdentifier, name)
}

// Decl creates a variable declaration [type, identifier].
func (t *Tree) Decl(typ Kind, name string) NodeID {
	return t.Add(KindDecl, "", t.TypeNode(typ), t.Ident(name))
}

// Func creates a function declaration [return-type, name, formals, body].
// Each formal must be a Decl.
func (t *Tree) Func(ret Kind, name string, formals []NodeID, body NodeID) NodeID {
	f := t.Add(KindFormals, "", formals...)
	return t.Add(KindFunctionDecl, "", t.TypeNode(ret), t.Ident(name), f, body)
}

// Call creates a call [callee, actual-args].
func (t *Tree) Call(name string, args ...NodeID) NodeID {
	actuals := t.Add(KindActualArgs, "", args...)
	return t.Add(KindCall, "", t.Ident(name), actuals)
}

// If creates [condition, then-block] or [condition, then-block, else-block]
// when elseBlock is not NoNode.
func (t *Tree) If(cond, then, elseBlock NodeID) NodeID {
	if elseBlock == NoNode {
		return t.Add(KindIf, "", cond, then)
	}
	return t.Add(KindIf, "", cond, then, elseBlock)
}

// Unless creates [condition, block].
func (t *Tree) Unless(cond, block NodeID) NodeID {
	return t.Add(KindUnless, "", cond, block)
}

// While creates [condition, block].
func (t *Tree) While(cond, block NodeID) NodeID {
	return t.Add(KindWhile, "", cond, block)
}

// Return creates [expression].
func (t *Tree) Return(expr NodeID) NodeID {
	return t.Add(KindReturn, "", expr)
}

// Assign creates [identifier, expression].
func (t *Tree) Assign(name string, expr NodeID) NodeID {
	return t.Add(KindAssign, "", t.Ident(name), expr)
}

// Switch creates [identifier, switch-block] over the given case and
// default statements.
func (t *Tree) Switch(name string, cases ...NodeID) NodeID {
	block := t.Add(KindSwitchBlock, "", cases...)
	return t.Add(KindSwitchStatement, "", t.Ident(name), block)
}

// Case creates [literal, statement].
func (t *Tree) Case(literal, stmt NodeID) NodeID {
	return t.Add(KindCaseStatement, "", literal, stmt)
}

// Default creates [statement].
func (t *Tree) Default(stmt NodeID) NodeID {
	return t.Add(KindDefaultStatement, "", stmt)
}

// Int creates an integer literal.
func (t *Tree) Int(v int32) NodeID {
	return t.Add(KindIntLiteral, strconv.FormatInt(int64(v), 10))
}

// Char creates a character literal.
func (t *Tree) Char(r rune) NodeID {
	return t.Add(KindCharLiteral, string(r))
}

// Str creates a string literal.
func (t *Tree) Str(s string) NodeID {
	return t.Add(KindStringLiteral, s)
}

// BinOp creates an operator node; the kind follows from the operator.
func (t *Tree) BinOp(op string, left, right NodeID) NodeID {
	k, ok := OperatorKind(op)
	if !ok {
		panic(fmt.Sprintf("ast: unknown operator %q", op))
	}
	return t.Add(k, op, left, right)
}

// OperatorKind maps an operator spelling to its node kind.
func OperatorKind(op string) (Kind, bool) {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return KindRelOp, true
	case "+", "-", "|":
		return KindAddOp, true
	case "*", "/", "&":
		return KindMulOp, true
	}
	return 0, false
}

// TypeKindByName maps a type keyword to its type kind.
func TypeKindByName(name string) (Kind, bool) {
	switch name {
	case "int":
		return KindIntType, true
	case "bool", "boolean":
		return KindBoolType, true
	case "char":
		return KindCharType, true
	case "string":
		return KindStringType, true
	}
	return 0, false
}

// TypeName is the inverse of TypeKindByName.
func TypeName(k Kind) string {
	switch k {
	case KindIntType:
		return "int"
	case KindBoolType:
		return "bool"
	case KindCharType:
		return "char"
	case KindStringType:
		return "string"
	}
	return ""
}
