package compiler

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/chazu/tinyvm/pkg/ast"
	"github.com/chazu/tinyvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Codegen: decorated AST to bytecode
// ---------------------------------------------------------------------------

// Labels of the intrinsic function bodies.
const (
	ReadLabel  = "Read"
	WriteLabel = "Write"
)

// Generator emits a Program from a decorated tree. It records the
// frame-relative offset of every declared identifier on the tree (see
// ast.Tree.Offset) and the generated label of every function and
// declaration (ast.Tree.Label).
type Generator struct {
	tree   *ast.Tree
	in     *ast.Intrinsics
	prog   *bytecode.Program
	frames frameStack

	labelNum  int
	switchNum int
}

// NewGenerator creates a generator for a tree that Analyze accepted.
func NewGenerator(tree *ast.Tree) *Generator {
	return &Generator{
		tree: tree,
		in:   tree.Intrinsics(),
		prog: bytecode.NewProgram(),
	}
}

// Generate compiles an analyzed tree. It fails only with *InternalError,
// when the tree does not satisfy the analyzer's invariants.
func Generate(tree *ast.Tree) (*bytecode.Program, error) {
	return NewGenerator(tree).Run()
}

// Run generates the program.
func (g *Generator) Run() (prog *bytecode.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*InternalError); ok {
				err = ie
				return
			}
			err = &InternalError{Node: ast.NoNode, Message: fmt.Sprint(r)}
		}
	}()

	root := g.tree.Root()
	if root == ast.NoNode || g.tree.Decoration(root) != g.in.Bool {
		return nil, &InternalError{Node: root, Message: "tree has not been analyzed"}
	}
	g.visitProgram(root)
	log.Debugf("generated %d instructions", g.prog.Len())
	return g.prog, nil
}

// internal aborts generation.
func (g *Generator) internal(id ast.NodeID, format string, args ...any) {
	panic(&InternalError{Node: id, Message: fmt.Sprintf(format, args...)})
}

// emit appends ins and applies its stack effect to the current frame.
func (g *Generator) emit(ins bytecode.Instruction) {
	g.prog.MustAppend(ins)
	g.frames.top().change(ins.StackEffect())
}

// newLabel derives a program-unique label from root.
func (g *Generator) newLabel(root string) string {
	g.labelNum++
	return fmt.Sprintf("%s<<%d>>", root, g.labelNum)
}

// offsetOf returns the frame offset assigned to a declaration.
func (g *Generator) offsetOf(decl ast.NodeID) int {
	off := g.tree.Offset(g.tree.Child(decl, 1))
	if off < 0 {
		g.internal(decl, "%s has no frame offset", g.tree.Symbol(g.tree.Child(decl, 1)))
	}
	return off
}

// ---------------------------------------------------------------------------
// Program structure
// ---------------------------------------------------------------------------

// visitProgram emits
//
//	GOTO start
//	<intrinsic bodies>
//	LABEL start
//	<block>
//	HALT
func (g *Generator) visitProgram(id ast.NodeID) {
	start := g.newLabel("start")
	g.frames.open()
	g.emit(bytecode.Goto(start))
	g.genIntrinsics()
	g.emit(bytecode.Label(start))
	g.visitBlock(g.tree.Child(id, 0))
	g.emit(bytecode.Halt())
	g.frames.close()
}

// genIntrinsics emits the read and write bodies. write returns its
// argument.
func (g *Generator) genIntrinsics() {
	g.tree.SetLabel(g.in.Read, ReadLabel)
	g.frames.open()
	g.emit(bytecode.Label(ReadLabel))
	g.emit(bytecode.Read())
	g.emit(bytecode.Return(""))
	g.frames.close()

	g.tree.SetLabel(g.in.Write, WriteLabel)
	g.frames.open()
	g.emit(bytecode.Label(WriteLabel))
	formal := g.tree.Child(g.tree.Child(g.in.Write, 2), 0)
	name := g.declareFormal(formal)
	g.emit(bytecode.Load(g.offsetOf(formal), name))
	g.emit(bytecode.Write())
	g.emit(bytecode.Return(""))
	g.frames.close()
}

// visitBlock emits the block's statements followed by POP of everything
// the block left on the stack.
func (g *Generator) visitBlock(id ast.NodeID) {
	f := g.frames.top()
	f.openBlock()
	for _, child := range g.tree.Children(id) {
		g.visitStatement(child)
	}
	g.emit(bytecode.Pop(f.blocks[len(f.blocks)-1]))
	f.closeBlock()
}

func (g *Generator) visitStatement(id ast.NodeID) {
	switch g.tree.Kind(id) {
	case ast.KindBlock:
		g.visitBlock(id)
	case ast.KindDecl:
		g.visitDecl(id)
	case ast.KindFunctionDecl:
		g.visitFunction(id)
	case ast.KindAssign:
		g.visitAssign(id)
	case ast.KindIf:
		g.visitIf(id)
	case ast.KindUnless:
		g.visitUnless(id)
	case ast.KindWhile:
		g.visitWhile(id)
	case ast.KindReturn:
		g.visitReturn(id)
	case ast.KindSwitchStatement:
		g.visitSwitch(id)
	default:
		g.visitExpr(id)
	}
}

// visitDecl reserves the next frame slot for the variable.
func (g *Generator) visitDecl(id ast.NodeID) {
	ident := g.tree.Child(id, 1)
	name := g.tree.Symbol(ident)
	g.tree.SetLabel(id, name)
	g.tree.SetOffset(ident, g.frames.size())
	g.emit(bytecode.Lit(g.zeroValue(g.tree.Child(id, 0)), name))
}

// zeroValue is the initial slot value for a declared type.
func (g *Generator) zeroValue(typeNode ast.NodeID) bytecode.Value {
	switch g.tree.Kind(typeNode) {
	case ast.KindCharType:
		return bytecode.CharValue(0)
	case ast.KindStringType:
		return bytecode.StringValue("")
	default:
		return bytecode.IntValue(0)
	}
}

// declareFormal assigns a formal the next offset without emitting code;
// the caller pushed its value before ARGS.
func (g *Generator) declareFormal(decl ast.NodeID) string {
	ident := g.tree.Child(decl, 1)
	name := g.tree.Symbol(ident)
	g.tree.SetOffset(ident, g.frames.size())
	g.tree.SetLabel(decl, name)
	g.frames.top().change(1)
	return name
}

// visitFunction emits
//
//	GOTO continue
//	LABEL fn
//	<body>
//	LIT 0
//	RETURN fn
//	LABEL continue
func (g *Generator) visitFunction(id ast.NodeID) {
	name := g.tree.Symbol(g.tree.Child(id, 1))
	label := g.newLabel(name)
	g.tree.SetLabel(id, label)
	cont := g.newLabel("continue")

	g.emit(bytecode.Goto(cont))
	g.frames.open()
	g.emit(bytecode.Label(label))
	for _, formal := range g.tree.Children(g.tree.Child(id, 2)) {
		g.declareFormal(formal)
	}
	g.visitBlock(g.tree.Child(id, 3))
	g.emit(bytecode.Lit(bytecode.IntValue(0), "gratis-return-value"))
	g.emit(bytecode.Return(label))
	g.frames.close()
	g.emit(bytecode.Label(cont))
}

func (g *Generator) visitAssign(id ast.NodeID) {
	ident := g.tree.Child(id, 0)
	decl := g.tree.Decoration(ident)
	if decl == ast.NoNode {
		g.internal(id, "assignment to %s is not decorated", g.tree.Symbol(ident))
	}
	g.visitExpr(g.tree.Child(id, 1))
	g.emit(bytecode.Store(g.offsetOf(decl), g.tree.Symbol(ident)))
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func (g *Generator) visitIf(id ast.NodeID) {
	elseLabel := g.newLabel("else")
	cont := g.newLabel("continue")

	g.visitExpr(g.tree.Child(id, 0))
	g.emit(bytecode.FalseBranch(elseLabel))
	g.visitBlock(g.tree.Child(id, 1))
	g.emit(bytecode.Goto(cont))
	g.emit(bytecode.Label(elseLabel))
	if g.tree.ChildCount(id) == 3 {
		g.visitBlock(g.tree.Child(id, 2))
	}
	g.emit(bytecode.Label(cont))
}

// visitUnless runs the block when the condition is false.
func (g *Generator) visitUnless(id ast.NodeID) {
	unless := g.newLabel("unless")
	cont := g.newLabel("continue")

	g.visitExpr(g.tree.Child(id, 0))
	g.emit(bytecode.FalseBranch(unless))
	g.emit(bytecode.Goto(cont))
	g.emit(bytecode.Label(unless))
	g.visitBlock(g.tree.Child(id, 1))
	g.emit(bytecode.Label(cont))
}

func (g *Generator) visitWhile(id ast.NodeID) {
	cont := g.newLabel("continue")
	while := g.newLabel("while")

	g.emit(bytecode.Label(while))
	g.visitExpr(g.tree.Child(id, 0))
	g.emit(bytecode.FalseBranch(cont))
	g.visitBlock(g.tree.Child(id, 1))
	g.emit(bytecode.Goto(while))
	g.emit(bytecode.Label(cont))
}

func (g *Generator) visitReturn(id ast.NodeID) {
	fn := g.tree.Decoration(id)
	if fn == ast.NoNode || g.tree.Label(fn) == "" {
		g.internal(id, "return has no enclosing function")
	}
	g.visitExpr(g.tree.Child(id, 0))
	g.emit(bytecode.Return(g.tree.Label(fn)))
}

// visitSwitch emits
//
//	LOAD discriminant
//	SWITCH id
//	CASE id value      (per case)
//	<statement>
//	GOTO end
//	CASE id default    (explicit, or empty when the source has none)
//	LABEL end
//
// Each case statement is balanced with a POP so every path reaches the end
// label at the same stack height.
func (g *Generator) visitSwitch(id ast.NodeID) {
	sw := g.switchNum
	g.switchNum++
	g.tree.SetLabel(id, fmt.Sprintf("switch<<%d>>", sw))
	end := g.newLabel("switchend")

	g.visitExpr(g.tree.Child(id, 0))
	g.emit(bytecode.Switch(sw))

	hasDefault := false
	for _, c := range g.tree.Children(g.tree.Child(id, 1)) {
		var stmt ast.NodeID
		if g.tree.Kind(c) == ast.KindDefaultStatement {
			hasDefault = true
			g.emit(bytecode.CaseDefault(sw))
			stmt = g.tree.Child(c, 0)
		} else {
			g.emit(bytecode.Case(sw, g.literalValue(g.tree.Child(c, 0))))
			stmt = g.tree.Child(c, 1)
		}
		before := g.frames.size()
		g.visitStatement(stmt)
		if extra := g.frames.size() - before; extra > 0 {
			g.emit(bytecode.Pop(extra))
		}
		g.emit(bytecode.Goto(end))
	}
	if !hasDefault {
		g.emit(bytecode.CaseDefault(sw))
	}
	g.emit(bytecode.Label(end))
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// visitExpr emits code leaving the expression's value on the stack.
func (g *Generator) visitExpr(id ast.NodeID) {
	switch k := g.tree.Kind(id); k {
	case ast.KindIntLiteral, ast.KindCharLiteral, ast.KindStringLiteral:
		g.emit(bytecode.Lit(g.literalValue(id), ""))
	case ast.KindIdentifier:
		decl := g.tree.Decoration(id)
		if decl == ast.NoNode {
			g.internal(id, "identifier %s is not decorated", g.tree.Symbol(id))
		}
		g.emit(bytecode.Load(g.offsetOf(decl), g.tree.Symbol(id)))
	case ast.KindCall:
		g.visitCall(id)
	case ast.KindRelOp, ast.KindAddOp, ast.KindMulOp:
		g.visitExpr(g.tree.Child(id, 0))
		g.visitExpr(g.tree.Child(id, 1))
		g.emit(bytecode.Bop(g.tree.Symbol(id)))
	default:
		g.internal(id, "unexpected %s in expression", k)
	}
}

// visitCall pushes the actuals left to right, then ARGS n and CALL.
func (g *Generator) visitCall(id ast.NodeID) {
	ident := g.tree.Child(id, 0)
	fn := g.tree.Decoration(ident)
	if fn == ast.NoNode {
		g.internal(id, "call to %s is not decorated", g.tree.Symbol(ident))
	}
	label := g.tree.Label(fn)
	if label == "" {
		g.internal(id, "function %s has no label", g.tree.Symbol(ident))
	}
	actuals := g.tree.Children(g.tree.Child(id, 1))
	for _, arg := range actuals {
		g.visitExpr(arg)
	}
	g.emit(bytecode.Args(len(actuals)))
	g.emit(bytecode.Call(label))
}

// literalValue converts a literal node to a bytecode value.
func (g *Generator) literalValue(id ast.NodeID) bytecode.Value {
	sym := g.tree.Symbol(id)
	switch g.tree.Kind(id) {
	case ast.KindIntLiteral:
		n, err := strconv.ParseInt(sym, 10, 32)
		if err != nil {
			g.internal(id, "bad int literal %q", sym)
		}
		return bytecode.IntValue(int32(n))
	case ast.KindCharLiteral:
		r, size := utf8.DecodeRuneInString(sym)
		if size == 0 || size != len(sym) {
			g.internal(id, "bad char literal %q", sym)
		}
		return bytecode.CharValue(r)
	case ast.KindStringLiteral:
		return bytecode.StringValue(sym)
	}
	g.internal(id, "%s is not a literal", g.tree.Kind(id))
	return bytecode.Value{}
}
