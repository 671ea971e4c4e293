package ast

import (
	"strings"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindProgram, "Program"},
		{KindFunctionDecl, "FunctionDecl"},
		{KindSwitchStatement, "SwitchStatement"},
		{KindMulOp, "MulOp"},
		{Kind(200), "Kind(200)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestKindPredicates(t *testing.T) {
	if !KindCharType.IsType() || KindDecl.IsType() {
		t.Error("IsType misclassifies")
	}
	if !KindStringLiteral.IsLiteral() || KindIdentifier.IsLiteral() {
		t.Error("IsLiteral misclassifies")
	}
	if !KindAddOp.IsBinaryOp() || KindAssign.IsBinaryOp() {
		t.Error("IsBinaryOp misclassifies")
	}
	for _, k := range []Kind{KindCall, KindIdentifier, KindIntLiteral, KindRelOp} {
		if !k.IsExpr() {
			t.Errorf("%s should be an expression", k)
		}
	}
	if KindBlock.IsExpr() {
		t.Error("Block is not an expression")
	}
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	tree := NewTree()
	a := tree.Ident("a")
	b := tree.Int(7)
	op := tree.BinOp("+", a, b)

	if a != 0 || b != 1 || op != 2 {
		t.Fatalf("ids = %d,%d,%d, want 0,1,2", a, b, op)
	}
	n := tree.Node(op)
	if n.Kind != KindAddOp || n.Symbol != "+" {
		t.Errorf("node = %s %q, want AddOp \"+\"", n.Kind, n.Symbol)
	}
	if n.Decoration != NoNode || n.Offset != -1 {
		t.Errorf("fresh node should be undecorated, got dec=%d offset=%d", n.Decoration, n.Offset)
	}
	if got := tree.Child(op, 1); got != b {
		t.Errorf("Child(op, 1) = %d, want %d", got, b)
	}
	if got := tree.Child(op, 5); got != NoNode {
		t.Errorf("Child out of range = %d, want NoNode", got)
	}
}

func TestAddCopiesChildren(t *testing.T) {
	tree := NewTree()
	kids := []NodeID{tree.Ident("x")}
	blk := tree.Block(kids...)
	kids[0] = 99
	if tree.Child(blk, 0) != 0 {
		t.Error("Add must not alias the caller's slice")
	}
}

func TestOperatorKind(t *testing.T) {
	tests := []struct {
		op   string
		want Kind
	}{
		{"==", KindRelOp},
		{"!=", KindRelOp},
		{">=", KindRelOp},
		{"+", KindAddOp},
		{"|", KindAddOp},
		{"/", KindMulOp},
		{"&", KindMulOp},
	}
	for _, tt := range tests {
		got, ok := OperatorKind(tt.op)
		if !ok || got != tt.want {
			t.Errorf("OperatorKind(%q) = %s,%v want %s", tt.op, got, ok, tt.want)
		}
	}
	if _, ok := OperatorKind("%"); ok {
		t.Error("% is not an operator of the language")
	}
}

func TestTypeNames(t *testing.T) {
	for _, name := range []string{"int", "bool", "char", "string"} {
		k, ok := TypeKindByName(name)
		if !ok {
			t.Fatalf("TypeKindByName(%q) failed", name)
		}
		if TypeName(k) != name {
			t.Errorf("TypeName(%s) = %q, want %q", k, TypeName(k), name)
		}
	}
}

func TestIntrinsicsBuiltOnce(t *testing.T) {
	tree := NewTree()
	in := tree.Intrinsics()
	n := tree.Len()
	if tree.Intrinsics() != in || tree.Len() != n {
		t.Fatal("Intrinsics must be built exactly once per tree")
	}
	if tree.Kind(in.Int) != KindDecl || tree.Kind(tree.Child(in.Int, 0)) != KindIntType {
		t.Error("Int intrinsic must be Decl[IntType, Identifier]")
	}
	if tree.Kind(in.Write) != KindFunctionDecl {
		t.Error("Write intrinsic must be a FunctionDecl")
	}
	formals := tree.Child(in.Write, 2)
	if tree.ChildCount(formals) != 1 {
		t.Errorf("write takes one formal, got %d", tree.ChildCount(formals))
	}
	if tree.ChildCount(tree.Child(in.Read, 2)) != 0 {
		t.Error("read takes no formals")
	}
	if in.TypeDecl(KindStringType) != in.String || in.TypeDecl(KindDecl) != NoNode {
		t.Error("TypeDecl mapping wrong")
	}
	if !in.IsIntrinsic(in.Read) || in.IsIntrinsic(NodeID(n+5)) {
		t.Error("IsIntrinsic wrong")
	}
}

func sampleProgram() *Tree {
	tree := NewTree()
	fact := tree.Func(KindIntType, "fact", []NodeID{tree.Decl(KindIntType, "n")},
		tree.Block(
			tree.If(tree.BinOp("<", tree.Ident("n"), tree.Int(2)),
				tree.Block(tree.Return(tree.Int(1))),
				tree.Block(tree.Return(tree.BinOp("*", tree.Ident("n"),
					tree.Call("fact", tree.BinOp("-", tree.Ident("n"), tree.Int(1))))))),
		))
	tree.Program(tree.Block(
		tree.Decl(KindIntType, "x"),
		fact,
		tree.Assign("x", tree.Call("write", tree.Call("fact", tree.Int(5)))),
	))
	return tree
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	if err := sampleProgram().Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestValidateRejectsMalformedTrees(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Tree)
		want  string
	}{
		{"no root", func(*Tree) {}, "no root"},
		{"root not program", func(tr *Tree) { tr.SetRoot(tr.Block()) }, "want Program"},
		{"program without block", func(tr *Tree) {
			tr.SetRoot(tr.Add(KindProgram, "", tr.Int(1)))
		}, "exactly one Block"},
		{"decl arity", func(tr *Tree) {
			tr.Program(tr.Block(tr.Add(KindDecl, "", tr.TypeNode(KindIntType))))
		}, "takes 2 children"},
		{"assign to literal", func(tr *Tree) {
			tr.Program(tr.Block(tr.Add(KindAssign, "", tr.Int(1), tr.Int(2))))
		}, "must be an Identifier"},
		{"while body not block", func(tr *Tree) {
			tr.Program(tr.Block(tr.Add(KindWhile, "", tr.Ident("b"), tr.Return(tr.Int(1)))))
		}, "must be a Block"},
		{"case label not literal", func(tr *Tree) {
			tr.Program(tr.Block(tr.Switch("x", tr.Case(tr.Ident("y"), tr.Block()))))
		}, "must be a literal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := NewTree()
			tt.build(tree)
			err := tree.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestDumpShowsDecorations(t *testing.T) {
	tree := sampleProgram()
	x := tree.Child(tree.Child(tree.Root(), 0), 0)
	ident := tree.Child(x, 1)
	tree.Decorate(ident, x)
	tree.SetOffset(ident, 0)
	tree.SetLabel(x, "x")

	out := tree.DumpString()
	for _, want := range []string{"Program", "Decl label=x", `Identifier "x"`, "offset=0", "dec="} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
