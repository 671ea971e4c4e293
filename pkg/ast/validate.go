package ast

import "fmt"

// arity gives the fixed child count of each kind; -1 means variadic.
// If takes 2 or 3 children and is checked separately.
var arity = map[Kind]int{
	KindProgram:          1,
	KindBlock:            -1,
	KindFunctionDecl:     4,
	KindCall:             2,
	KindDecl:             2,
	KindIntType:          0,
	KindBoolType:         0,
	KindCharType:         0,
	KindStringType:       0,
	KindFormals:          -1,
	KindActualArgs:       -1,
	KindUnless:           2,
	KindWhile:            2,
	KindReturn:           1,
	KindSwitchStatement:  2,
	KindSwitchBlock:      -1,
	KindCaseStatement:    2,
	KindDefaultStatement: 1,
	KindAssign:           2,
	KindIntLiteral:       0,
	KindCharLiteral:      0,
	KindStringLiteral:    0,
	KindIdentifier:       0,
	KindRelOp:            2,
	KindAddOp:            2,
	KindMulOp:            2,
}

// Validate checks the structural shape of the tree reachable from the
// root: one Program wrapping one Block, fixed arities, and the child kinds
// the later passes rely on. It does no name or type checking.
func (t *Tree) Validate() error {
	if t.root == NoNode {
		return fmt.Errorf("ast: tree has no root")
	}
	if k := t.Kind(t.root); k != KindProgram {
		return fmt.Errorf("ast: root is %s, want Program", k)
	}
	if t.ChildCount(t.root) != 1 || t.Kind(t.Child(t.root, 0)) != KindBlock {
		return fmt.Errorf("ast: Program must wrap exactly one Block")
	}
	return t.validate(t.root)
}

func (t *Tree) validate(id NodeID) error {
	n := t.Node(id)
	want, ok := arity[n.Kind]
	switch {
	case n.Kind == KindIf:
		if len(n.Children) != 2 && len(n.Children) != 3 {
			return t.shapeErr(id, "If takes 2 or 3 children, got %d", len(n.Children))
		}
	case !ok:
		return t.shapeErr(id, "unknown kind")
	case want >= 0 && len(n.Children) != want:
		return t.shapeErr(id, "%s takes %d children, got %d", n.Kind, want, len(n.Children))
	}

	for _, c := range n.Children {
		if c < 0 || int(c) >= len(t.nodes) {
			return t.shapeErr(id, "child %d out of range", c)
		}
	}
	if err := t.validateChildKinds(id); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := t.validate(c); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) validateChildKinds(id NodeID) error {
	n := t.Node(id)
	expect := func(i int, ok bool, what string) error {
		if !ok {
			return t.shapeErr(n.Children[i], "%s child %d must be %s", n.Kind, i, what)
		}
		return nil
	}
	kind := func(i int) Kind { return t.Kind(n.Children[i]) }

	switch n.Kind {
	case KindDecl:
		if err := expect(0, kind(0).IsType(), "a type"); err != nil {
			return err
		}
		return expect(1, kind(1) == KindIdentifier, "an Identifier")
	case KindFunctionDecl:
		if err := expect(0, kind(0).IsType(), "a type"); err != nil {
			return err
		}
		if err := expect(1, kind(1) == KindIdentifier, "an Identifier"); err != nil {
			return err
		}
		if err := expect(2, kind(2) == KindFormals, "Formals"); err != nil {
			return err
		}
		return expect(3, kind(3) == KindBlock, "a Block")
	case KindFormals:
		for i := range n.Children {
			if err := expect(i, kind(i) == KindDecl, "a Decl"); err != nil {
				return err
			}
		}
	case KindCall:
		if err := expect(0, kind(0) == KindIdentifier, "an Identifier"); err != nil {
			return err
		}
		return expect(1, kind(1) == KindActualArgs, "ActualArgs")
	case KindActualArgs:
		for i := range n.Children {
			if err := expect(i, kind(i).IsExpr(), "an expression"); err != nil {
				return err
			}
		}
	case KindAssign:
		if err := expect(0, kind(0) == KindIdentifier, "an Identifier"); err != nil {
			return err
		}
		return expect(1, kind(1).IsExpr(), "an expression")
	case KindIf, KindUnless, KindWhile:
		if err := expect(0, kind(0).IsExpr(), "an expression"); err != nil {
			return err
		}
		for i := 1; i < len(n.Children); i++ {
			if err := expect(i, kind(i) == KindBlock, "a Block"); err != nil {
				return err
			}
		}
	case KindReturn:
		return expect(0, kind(0).IsExpr(), "an expression")
	case KindSwitchStatement:
		if err := expect(0, kind(0) == KindIdentifier, "an Identifier"); err != nil {
			return err
		}
		return expect(1, kind(1) == KindSwitchBlock, "a SwitchBlock")
	case KindSwitchBlock:
		for i := range n.Children {
			k := kind(i)
			if err := expect(i, k == KindCaseStatement || k == KindDefaultStatement, "a case"); err != nil {
				return err
			}
		}
	case KindCaseStatement:
		return expect(0, kind(0).IsLiteral(), "a literal")
	case KindRelOp, KindAddOp, KindMulOp:
		if err := expect(0, kind(0).IsExpr(), "an expression"); err != nil {
			return err
		}
		return expect(1, kind(1).IsExpr(), "an expression")
	}
	return nil
}

func (t *Tree) shapeErr(id NodeID, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if pos := t.Pos(id); pos.IsValid() {
		return fmt.Errorf("ast: %s: node %d: %s", pos, id, msg)
	}
	return fmt.Errorf("ast: node %d: %s", id, msg)
}
