package compiler

import (
	"fmt"

	"github.com/chazu/tinyvm/pkg/ast"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: name resolution and type checking
// ---------------------------------------------------------------------------

// Analyzer resolves identifiers and checks types over a Tree, decorating
// it in place:
//
//   - an Identifier naming a variable or function is decorated with its
//     Decl or FunctionDecl;
//   - the Identifier child of a Decl, the name of a FunctionDecl and its
//     return-type node are decorated with the intrinsic type Decl;
//   - every expression node is decorated with its intrinsic type Decl;
//   - a Return is decorated with its enclosing FunctionDecl;
//   - a SwitchBlock and its cases are decorated with their SwitchStatement.
//
// Types are compared by node identity against the tree's intrinsics.
// Analysis stops at the first violation.
type Analyzer struct {
	tree      *ast.Tree
	in        *ast.Intrinsics
	symtab    *SymbolTable
	functions []ast.NodeID // enclosing FunctionDecls, innermost last
}

// NewAnalyzer creates an analyzer for tree.
func NewAnalyzer(tree *ast.Tree) *Analyzer {
	return &Analyzer{
		tree:   tree,
		in:     tree.Intrinsics(),
		symtab: NewSymbolTable(),
	}
}

// Analyze decorates tree in place. It returns a *ConstraintError for the
// first violated constraint, or a plain error when the tree is malformed.
func Analyze(tree *ast.Tree) error {
	_, err := NewAnalyzer(tree).Run()
	return err
}

// Run analyzes the whole program and returns the intrinsic bool Decl on
// success.
func (a *Analyzer) Run() (ast.NodeID, error) {
	if err := a.tree.Validate(); err != nil {
		return ast.NoNode, err
	}
	log.Debugf("analyzing %d nodes", a.tree.Len())

	if err := a.analyzeIntrinsics(); err != nil {
		return ast.NoNode, err
	}
	root := a.tree.Root()
	if err := a.visitBlock(a.tree.Child(root, 0)); err != nil {
		return ast.NoNode, err
	}
	a.tree.Decorate(root, a.in.Bool)
	return a.in.Bool, nil
}

// analyzeIntrinsics constrains the built-in declarations like user code.
// Running twice over the same tree is harmless.
func (a *Analyzer) analyzeIntrinsics() error {
	for _, decl := range []ast.NodeID{a.in.Int, a.in.Bool, a.in.Char, a.in.String} {
		a.tree.Decorate(a.tree.Child(decl, 0), decl)
		a.tree.Decorate(a.tree.Child(decl, 1), decl)
	}
	for _, fn := range []ast.NodeID{a.in.Write, a.in.Read} {
		if err := a.visitFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// fail builds the error for node id.
func (a *Analyzer) fail(kind ConstraintKind, id ast.NodeID, format string, args ...any) error {
	return &ConstraintError{
		Kind:   kind,
		Node:   id,
		Pos:    a.tree.Pos(id),
		Detail: fmt.Sprintf(format, args...),
	}
}

// typeName is the source spelling of an intrinsic type Decl.
func (a *Analyzer) typeName(typ ast.NodeID) string {
	if typ == ast.NoNode {
		return "<none>"
	}
	return ast.TypeName(a.tree.Kind(a.tree.Child(typ, 0)))
}

// typeOf returns the type of a declaration: the decoration of its name.
func (a *Analyzer) typeOf(decl ast.NodeID) ast.NodeID {
	return a.tree.Decoration(a.tree.Child(decl, 1))
}

// lookup resolves an Identifier node.
func (a *Analyzer) lookup(ident ast.NodeID) (ast.NodeID, error) {
	name := a.tree.Symbol(ident)
	decl, ok := a.symtab.Lookup(name)
	if !ok {
		return ast.NoNode, a.fail(UnrecognizedIdentifier, ident, "%s is not declared", name)
	}
	return decl, nil
}

// ---------------------------------------------------------------------------
// Declarations and statements
// ---------------------------------------------------------------------------

func (a *Analyzer) visitBlock(id ast.NodeID) error {
	a.symtab.BeginScope()
	defer a.symtab.EndScope()
	for _, child := range a.tree.Children(id) {
		if err := a.visitStatement(child); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) visitStatement(id ast.NodeID) error {
	switch a.tree.Kind(id) {
	case ast.KindBlock:
		return a.visitBlock(id)
	case ast.KindDecl:
		a.visitDecl(id)
		return nil
	case ast.KindFunctionDecl:
		return a.visitFunction(id)
	case ast.KindAssign:
		return a.visitAssign(id)
	case ast.KindIf, ast.KindUnless, ast.KindWhile:
		return a.visitConditional(id)
	case ast.KindReturn:
		return a.visitReturn(id)
	case ast.KindSwitchStatement:
		return a.visitSwitch(id)
	default:
		// expression statement; the value is discarded at block exit
		_, err := a.visitExpr(id)
		return err
	}
}

func (a *Analyzer) visitDecl(id ast.NodeID) {
	typeNode := a.tree.Child(id, 0)
	ident := a.tree.Child(id, 1)
	typ := a.in.TypeDecl(a.tree.Kind(typeNode))
	a.tree.Decorate(typeNode, typ)
	a.tree.Decorate(ident, typ)
	a.symtab.Enter(a.tree.Symbol(ident), id)
}

// visitFunction enters the function name in the current scope so the body
// and later statements can call it, then constrains formals and body in a
// new scope.
func (a *Analyzer) visitFunction(id ast.NodeID) error {
	retNode := a.tree.Child(id, 0)
	name := a.tree.Child(id, 1)
	formals := a.tree.Child(id, 2)
	body := a.tree.Child(id, 3)

	ret := a.in.TypeDecl(a.tree.Kind(retNode))
	a.tree.Decorate(retNode, ret)
	a.tree.Decorate(name, ret)
	a.symtab.Enter(a.tree.Symbol(name), id)

	a.functions = append(a.functions, id)
	defer func() { a.functions = a.functions[:len(a.functions)-1] }()

	a.symtab.BeginScope()
	defer a.symtab.EndScope()
	for _, formal := range a.tree.Children(formals) {
		a.visitDecl(formal)
	}
	return a.visitBlock(body)
}

func (a *Analyzer) visitAssign(id ast.NodeID) error {
	ident := a.tree.Child(id, 0)
	decl, err := a.lookup(ident)
	if err != nil {
		return err
	}
	if a.tree.Kind(decl) != ast.KindDecl {
		return a.fail(BadAssignmentType, id, "cannot assign to function %s", a.tree.Symbol(ident))
	}
	a.tree.Decorate(ident, decl)

	want := a.typeOf(decl)
	got, err := a.visitExpr(a.tree.Child(id, 1))
	if err != nil {
		return err
	}
	if got != want {
		return a.fail(BadAssignmentType, id, "cannot assign %s to %s %s",
			a.typeName(got), a.typeName(want), a.tree.Symbol(ident))
	}
	a.tree.Decorate(id, want)
	return nil
}

// visitConditional handles If, Unless and While: a bool condition followed
// by one or two blocks.
func (a *Analyzer) visitConditional(id ast.NodeID) error {
	children := a.tree.Children(id)
	cond, err := a.visitExpr(children[0])
	if err != nil {
		return err
	}
	if cond != a.in.Bool {
		return a.fail(BadConditional, children[0], "%s condition must be bool, got %s",
			a.tree.Kind(id), a.typeName(cond))
	}
	for _, blk := range children[1:] {
		if err := a.visitBlock(blk); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) visitReturn(id ast.NodeID) error {
	if len(a.functions) == 0 {
		return a.fail(ReturnNotInFunction, id, "return outside of a function")
	}
	fn := a.functions[len(a.functions)-1]
	a.tree.Decorate(id, fn)

	want := a.typeOf(fn)
	got, err := a.visitExpr(a.tree.Child(id, 0))
	if err != nil {
		return err
	}
	if got != want {
		return a.fail(BadReturnExpr, id, "%s returns %s, got %s",
			a.tree.Symbol(a.tree.Child(fn, 1)), a.typeName(want), a.typeName(got))
	}
	return nil
}

// visitSwitch checks the discriminant and case literals. The discriminant
// must be an int or char variable; each case literal must have the same
// type, and no value (or default) may appear twice.
func (a *Analyzer) visitSwitch(id ast.NodeID) error {
	ident := a.tree.Child(id, 0)
	block := a.tree.Child(id, 1)

	decl, err := a.lookup(ident)
	if err != nil {
		return err
	}
	if a.tree.Kind(decl) != ast.KindDecl {
		return a.fail(SwitchTypeMismatch, ident, "cannot switch on function %s", a.tree.Symbol(ident))
	}
	a.tree.Decorate(ident, decl)
	typ := a.typeOf(decl)

	var literal ast.Kind
	switch typ {
	case a.in.Int:
		literal = ast.KindIntLiteral
	case a.in.Char:
		literal = ast.KindCharLiteral
	default:
		return a.fail(SwitchTypeMismatch, ident, "cannot switch on %s %s",
			a.typeName(typ), a.tree.Symbol(ident))
	}

	a.tree.Decorate(block, id)
	seen := make(map[string]bool)
	sawDefault := false
	for _, c := range a.tree.Children(block) {
		a.tree.Decorate(c, id)
		var stmt ast.NodeID
		if a.tree.Kind(c) == ast.KindDefaultStatement {
			if sawDefault {
				return a.fail(DuplicateCase, c, "switch on %s has more than one default", a.tree.Symbol(ident))
			}
			sawDefault = true
			stmt = a.tree.Child(c, 0)
		} else {
			lit := a.tree.Child(c, 0)
			if a.tree.Kind(lit) != literal {
				return a.fail(SwitchTypeMismatch, lit, "case %s does not match %s %s",
					a.tree.Kind(lit), a.typeName(typ), a.tree.Symbol(ident))
			}
			a.tree.Decorate(lit, typ)
			value := a.tree.Symbol(lit)
			if seen[value] {
				return a.fail(DuplicateCase, lit, "duplicate case %q", value)
			}
			seen[value] = true
			stmt = a.tree.Child(c, 1)
		}
		// a case body is its own scope; the generator pops what it pushes
		a.symtab.BeginScope()
		err := a.visitStatement(stmt)
		a.symtab.EndScope()
		if err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// visitExpr constrains an expression and returns its type Decl.
func (a *Analyzer) visitExpr(id ast.NodeID) (ast.NodeID, error) {
	var typ ast.NodeID
	switch k := a.tree.Kind(id); k {
	case ast.KindIntLiteral:
		typ = a.in.Int
	case ast.KindCharLiteral:
		typ = a.in.Char
	case ast.KindStringLiteral:
		typ = a.in.String
	case ast.KindIdentifier:
		decl, err := a.lookup(id)
		if err != nil {
			return ast.NoNode, err
		}
		if a.tree.Kind(decl) != ast.KindDecl {
			return ast.NoNode, a.fail(TypeMismatchInExpr, id, "function %s used as a value", a.tree.Symbol(id))
		}
		a.tree.Decorate(id, decl)
		return a.typeOf(decl), nil
	case ast.KindCall:
		return a.visitCall(id)
	case ast.KindRelOp, ast.KindAddOp, ast.KindMulOp:
		left, err := a.visitExpr(a.tree.Child(id, 0))
		if err != nil {
			return ast.NoNode, err
		}
		right, err := a.visitExpr(a.tree.Child(id, 1))
		if err != nil {
			return ast.NoNode, err
		}
		if left != right {
			return ast.NoNode, a.fail(TypeMismatchInExpr, id, "%s %s %s",
				a.typeName(left), a.tree.Symbol(id), a.typeName(right))
		}
		typ = left
		if k == ast.KindRelOp {
			typ = a.in.Bool
		}
	default:
		return ast.NoNode, a.fail(TypeMismatchInExpr, id, "%s is not an expression", k)
	}
	a.tree.Decorate(id, typ)
	return typ, nil
}

// visitCall constrains the actuals left to right, then checks them
// against the callee's formals: count first, then types.
func (a *Analyzer) visitCall(id ast.NodeID) (ast.NodeID, error) {
	ident := a.tree.Child(id, 0)
	actuals := a.tree.Children(a.tree.Child(id, 1))

	types := make([]ast.NodeID, len(actuals))
	for i, arg := range actuals {
		typ, err := a.visitExpr(arg)
		if err != nil {
			return ast.NoNode, err
		}
		types[i] = typ
	}

	fn, err := a.lookup(ident)
	if err != nil {
		return ast.NoNode, err
	}
	name := a.tree.Symbol(ident)
	if a.tree.Kind(fn) != ast.KindFunctionDecl {
		return ast.NoNode, a.fail(CallingNonFunction, id, "%s is not a function", name)
	}
	ret := a.typeOf(fn)
	a.tree.Decorate(id, ret)
	a.tree.Decorate(ident, fn)

	formals := a.tree.Children(a.tree.Child(fn, 2))
	if len(formals) != len(actuals) {
		return ast.NoNode, a.fail(NumberActualsFormalsDiffer, id, "%s takes %d argument(s), got %d",
			name, len(formals), len(actuals))
	}
	for i, formal := range formals {
		if want := a.typeOf(formal); types[i] != want {
			return ast.NoNode, a.fail(ActualFormalTypeMismatch, actuals[i], "argument %d of %s: want %s, got %s",
				i+1, name, a.typeName(want), a.typeName(types[i]))
		}
	}
	return ret, nil
}
