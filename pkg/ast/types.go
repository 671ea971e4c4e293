// Package ast defines the arena-backed syntax tree shared by the analyzer,
// the code generator and the tools built on top of them.
//
// Nodes live in a single slice owned by a Tree and refer to each other by
// NodeID. Children form a strict tree; decorations are non-owning NodeID
// references set during semantic analysis.
package ast

import "fmt"

// NodeID indexes a node inside its Tree.
type NodeID int32

// NoNode marks an absent child or an unset decoration.
const NoNode NodeID = -1

// Kind identifies the variant of a node.
type Kind uint8

const (
	KindProgram Kind = iota
	KindBlock
	KindFunctionDecl
	KindCall
	KindDecl
	KindIntType
	KindBoolType
	KindCharType
	KindStringType
	KindFormals
	KindActualArgs
	KindIf
	KindUnless
	KindWhile
	KindReturn
	KindSwitchStatement
	KindSwitchBlock
	KindCaseStatement
	KindDefaultStatement
	KindAssign
	KindIntLiteral
	KindCharLiteral
	KindStringLiteral
	KindIdentifier
	KindRelOp
	KindAddOp
	KindMulOp
)

var kindNames = [...]string{
	KindProgram:          "Program",
	KindBlock:            "Block",
	KindFunctionDecl:     "FunctionDecl",
	KindCall:             "Call",
	KindDecl:             "Decl",
	KindIntType:          "IntType",
	KindBoolType:         "BoolType",
	KindCharType:         "CharType",
	KindStringType:       "StringType",
	KindFormals:          "Formals",
	KindActualArgs:       "ActualArgs",
	KindIf:               "If",
	KindUnless:           "Unless",
	KindWhile:            "While",
	KindReturn:           "Return",
	KindSwitchStatement:  "SwitchStatement",
	KindSwitchBlock:      "SwitchBlock",
	KindCaseStatement:    "CaseStatement",
	KindDefaultStatement: "DefaultStatement",
	KindAssign:           "Assign",
	KindIntLiteral:       "IntLiteral",
	KindCharLiteral:      "CharLiteral",
	KindStringLiteral:    "StringLiteral",
	KindIdentifier:       "Identifier",
	KindRelOp:            "RelOp",
	KindAddOp:            "AddOp",
	KindMulOp:            "MulOp",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsType reports whether k is one of the four primitive type nodes.
func (k Kind) IsType() bool {
	return k >= KindIntType && k <= KindStringType
}

// IsLiteral reports whether k is a literal expression.
func (k Kind) IsLiteral() bool {
	return k >= KindIntLiteral && k <= KindStringLiteral
}

// IsBinaryOp reports whether k is a binary operator node.
func (k Kind) IsBinaryOp() bool {
	return k >= KindRelOp && k <= KindMulOp
}

// IsExpr reports whether a node of kind k produces a value.
func (k Kind) IsExpr() bool {
	return k == KindCall || k == KindIdentifier || k.IsLiteral() || k.IsBinaryOp()
}

// Position is a source location supplied by whoever built the tree.
// The zero value means "unknown".
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
}

// IsValid reports whether the position carries a line number.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Node is one element of the arena.
type Node struct {
	ID       NodeID
	Kind     Kind
	Symbol   string // identifier name, literal text or operator
	Children []NodeID
	Pos      Position

	// Decoration is set by semantic analysis: identifiers point at their
	// declaration, declaration identifiers at their type, expressions at
	// their result type, returns at their function.
	Decoration NodeID

	// Label is set by code generation (function entry labels, variable
	// names on declarations).
	Label string

	// Offset is the frame-relative slot assigned to a declared identifier
	// by code generation, or -1.
	Offset int
}

// Tree owns every node of one compilation unit.
type Tree struct {
	nodes      []Node
	root       NodeID
	intrinsics *Intrinsics
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{root: NoNode}
}

// Add appends a node with the given children and returns its id.
func (t *Tree) Add(kind Kind, symbol string, children ...NodeID) NodeID {
	return t.AddAt(Position{}, kind, symbol, children...)
}

// AddAt is Add with a source position.
func (t *Tree) AddAt(pos Position, kind Kind, symbol string, children ...NodeID) NodeID {
	id := NodeID(len(t.nodes))
	kids := make([]NodeID, len(children))
	copy(kids, children)
	t.nodes = append(t.nodes, Node{
		ID:         id,
		Kind:       kind,
		Symbol:     symbol,
		Children:   kids,
		Pos:        pos,
		Decoration: NoNode,
		Offset:     -1,
	})
	return id
}

// AppendChild adds child as the last child of parent.
func (t *Tree) AppendChild(parent, child NodeID) {
	n := t.Node(parent)
	n.Children = append(n.Children, child)
}

// Node returns the node for id. It panics on an id that does not belong
// to the tree.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("ast: node %d out of range (tree has %d nodes)", id, len(t.nodes)))
	}
	return &t.nodes[id]
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Root returns the root node id, or NoNode.
func (t *Tree) Root() NodeID { return t.root }

// SetRoot marks id as the tree root.
func (t *Tree) SetRoot(id NodeID) { t.root = id }

// Kind returns the kind of id.
func (t *Tree) Kind(id NodeID) Kind { return t.Node(id).Kind }

// Symbol returns the symbol text of id.
func (t *Tree) Symbol(id NodeID) string { return t.Node(id).Symbol }

// Children returns the children of id. The slice must not be modified.
func (t *Tree) Children(id NodeID) []NodeID { return t.Node(id).Children }

// Child returns the i-th (0-based) child of id, or NoNode.
func (t *Tree) Child(id NodeID, i int) NodeID {
	kids := t.Node(id).Children
	if i < 0 || i >= len(kids) {
		return NoNode
	}
	return kids[i]
}

// ChildCount returns the number of children of id.
func (t *Tree) ChildCount(id NodeID) int { return len(t.Node(id).Children) }

// Decorate sets the decoration of id.
func (t *Tree) Decorate(id, decoration NodeID) { t.Node(id).Decoration = decoration }

// Decoration returns the decoration of id, or NoNode.
func (t *Tree) Decoration(id NodeID) NodeID { return t.Node(id).Decoration }

// SetLabel records a code generation label on id.
func (t *Tree) SetLabel(id NodeID, label string) { t.Node(id).Label = label }

// Label returns the code generation label of id.
func (t *Tree) Label(id NodeID) string { return t.Node(id).Label }

// SetOffset records the frame offset of a declared identifier.
func (t *Tree) SetOffset(id NodeID, offset int) { t.Node(id).Offset = offset }

// Offset returns the frame offset of id, or -1 when unassigned.
func (t *Tree) Offset(id NodeID) int { return t.Node(id).Offset }

// Pos returns the source position of id.
func (t *Tree) Pos(id NodeID) Position { return t.Node(id).Pos }
