package ast

// Names of the built-in functions.
const (
	ReadName  = "read"
	WriteName = "write"
)

// Intrinsics are the synthetic declarations every program sees: one Decl
// per primitive type, whose identifier is decorated with the Decl itself,
// and the read/write functions. They live in the same arena as user code
// and are referenced, never copied.
type Intrinsics struct {
	Int    NodeID
	Bool   NodeID
	Char   NodeID
	String NodeID

	Read  NodeID // int read()
	Write NodeID // int write(int)
}

// Intrinsics returns the tree's intrinsic nodes, building them on first
// use. Each tree gets exactly one set.
func (t *Tree) Intrinsics() *Intrinsics {
	if t.intrinsics != nil {
		return t.intrinsics
	}
	in := &Intrinsics{
		Int:    t.Decl(KindIntType, "<<int>>"),
		Bool:   t.Decl(KindBoolType, "<<bool>>"),
		Char:   t.Decl(KindCharType, "<<char>>"),
		String: t.Decl(KindStringType, "<<string>>"),
	}
	in.Read = t.Func(KindIntType, ReadName, nil, t.Block())
	in.Write = t.Func(KindIntType, WriteName, []NodeID{t.Decl(KindIntType, "dummyFormal")}, t.Block())
	t.intrinsics = in
	return in
}

// TypeDecl returns the intrinsic type declaration for a type kind, or
// NoNode when k is not a type kind.
func (in *Intrinsics) TypeDecl(k Kind) NodeID {
	switch k {
	case KindIntType:
		return in.Int
	case KindBoolType:
		return in.Bool
	case KindCharType:
		return in.Char
	case KindStringType:
		return in.String
	}
	return NoNode
}

// IsIntrinsic reports whether id is one of the intrinsic declarations.
func (in *Intrinsics) IsIntrinsic(id NodeID) bool {
	switch id {
	case in.Int, in.Bool, in.Char, in.String, in.Read, in.Write:
		return true
	}
	return false
}
