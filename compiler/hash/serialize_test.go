package hash

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/chazu/tinyvm/pkg/ast"
	"github.com/chazu/tinyvm/pkg/sexpr"
)

func mustRead(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := sexpr.Read(src)
	if err != nil {
		t.Fatalf("read %q: %v", src, err)
	}
	return tree
}

func TestSerialize_Deterministic(t *testing.T) {
	tree := mustRead(t, "(program (block (decl int x) (assign x (+ x 42))))")
	data1, err := Serialize(tree)
	if err != nil {
		t.Fatal(err)
	}
	data2, _ := Serialize(tree)
	if !bytes.Equal(data1, data2) {
		t.Error("serialization is not deterministic")
	}
}

func TestSerialize_VersionPrefix(t *testing.T) {
	data, err := Serialize(mustRead(t, "(program (block))"))
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != HashVersion {
		t.Errorf("version prefix: got 0x%02X, want 0x%02X", data[0], HashVersion)
	}
	// version, program tag, 1 child, block tag, 0 children
	want := []byte{HashVersion, TagProgram, 0, 0, 0, 1, TagBlock, 0, 0, 0, 0}
	if !bytes.Equal(data, want) {
		t.Errorf("got % X, want % X", data, want)
	}
}

func TestSerialize_IntLiteral(t *testing.T) {
	tree := ast.NewTree()
	lit := tree.Int(-12345)
	tree.SetRoot(lit)

	data, err := Serialize(tree)
	if err != nil {
		t.Fatal(err)
	}
	// version(1) + tag(1) + int64(8) + child count(4) = 14
	if len(data) != 14 {
		t.Fatalf("length: got %d, want 14", len(data))
	}
	if data[1] != TagIntLiteral {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[1], TagIntLiteral)
	}
	if v := int64(binary.BigEndian.Uint64(data[2:10])); v != -12345 {
		t.Errorf("value: got %d, want -12345", v)
	}
}

func TestSerialize_StringAndChar(t *testing.T) {
	tree := ast.NewTree()
	tree.SetRoot(tree.Str("hello"))
	data, _ := Serialize(tree)
	// version(1) + tag(1) + len(4) + "hello"(5) + child count(4) = 15
	if len(data) != 15 || string(data[6:11]) != "hello" {
		t.Errorf("string literal: got % X", data)
	}

	tree = ast.NewTree()
	tree.SetRoot(tree.Char('λ'))
	data, _ = Serialize(tree)
	if r := binary.BigEndian.Uint32(data[2:6]); r != 'λ' {
		t.Errorf("char literal: got %U", r)
	}
}

func TestSerialize_NoRoot(t *testing.T) {
	if _, err := Serialize(ast.NewTree()); err == nil {
		t.Error("expected an error for a tree without a root")
	}
}

func TestHashTree_IgnoresLayoutAndAnalysis(t *testing.T) {
	a := mustRead(t, "(program (block (decl int x) (assign x 1)))")
	b := mustRead(t, "; same program\n(program\n  (block\n    (decl int x)\n    (assign x 1)))")
	b.Intrinsics()

	ha, err := HashTree(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, _ := HashTree(b)
	if ha != hb {
		t.Error("layout changed the hash")
	}
}

func TestHashTree_DifferentProgramsDiffer(t *testing.T) {
	srcs := []string{
		"(program (block (decl int x)))",
		"(program (block (decl int y)))",
		"(program (block (decl char x)))",
		"(program (block (call write 1)))",
		"(program (block (call write '1')))",
		`(program (block (call write "1")))`,
		"(program (block (call write (+ 1 2))))",
		"(program (block (call write (- 1 2))))",
		"(program (block (block) (block)))",
		"(program (block (block (block))))",
	}
	seen := make(map[string]string)
	for _, src := range srcs {
		key, err := Key(mustRead(t, src))
		if err != nil {
			t.Fatal(err)
		}
		if len(key) != 64 {
			t.Errorf("key %q is not 64 hex digits", key)
		}
		if prev, ok := seen[key]; ok {
			t.Errorf("%s and %s hash the same", prev, src)
		}
		seen[key] = src
	}
}
