package cache

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/chazu/tinyvm/compiler"
	"github.com/chazu/tinyvm/pkg/bytecode"
	"github.com/chazu/tinyvm/pkg/sexpr"
	"github.com/chazu/tinyvm/vm"
)

const program = "(program (block (decl int x) (assign x (* 6 7)) (call write x)))"

func open(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	be.Err(t, err, nil)
	t.Cleanup(func() { c.Close() })
	return c
}

func run(t *testing.T, prog *bytecode.Program) string {
	t.Helper()
	var out bytes.Buffer
	m := vm.New(prog)
	m.SetInput(strings.NewReader(""))
	m.SetOutput(&out)
	be.Err(t, m.Run(), nil)
	return out.String()
}

func TestPutGet(t *testing.T) {
	c := open(t)
	tree, err := sexpr.Read(program)
	be.Err(t, err, nil)
	prog, err := compiler.Compile(tree)
	be.Err(t, err, nil)

	be.Err(t, c.Put("k1", prog), nil)
	got, err := c.Get("k1")
	be.Err(t, err, nil)
	be.Equal(t, got.Text(), prog.Text())
	be.Equal(t, run(t, got), "42\n")

	n, err := c.Len()
	be.Err(t, err, nil)
	be.Equal(t, n, 1)
}

func TestGetMissing(t *testing.T) {
	c := open(t)
	_, err := c.Get("nope")
	be.Err(t, err, ErrNotFound)
}

func TestPutReplaces(t *testing.T) {
	c := open(t)
	first := bytecode.NewProgram()
	first.MustAppend(bytecode.Halt())
	second, err := bytecode.ParseText("LIT 1\nPOP 1\nHALT\n")
	be.Err(t, err, nil)

	be.Err(t, c.Put("k", first), nil)
	be.Err(t, c.Put("k", second), nil)
	got, err := c.Get("k")
	be.Err(t, err, nil)
	be.Equal(t, got.Len(), 3)

	n, _ := c.Len()
	be.Equal(t, n, 1)
}

func TestDelete(t *testing.T) {
	c := open(t)
	prog := bytecode.NewProgram()
	prog.MustAppend(bytecode.Halt())
	be.Err(t, c.Put("k", prog), nil)
	be.Err(t, c.Delete("k"), nil)
	be.Err(t, c.Delete("k"), nil)
	_, err := c.Get("k")
	be.Err(t, err, ErrNotFound)
}

func TestCompileHitsOnSameTree(t *testing.T) {
	c := open(t)
	tree, err := sexpr.Read(program)
	be.Err(t, err, nil)

	prog, hit, err := c.Compile(tree)
	be.Err(t, err, nil)
	be.Equal(t, hit, false)

	// same program, different layout
	again, err := sexpr.Read("(program\n  (block (decl int x)\n    (assign x (* 6 7))\n    (call write x)))")
	be.Err(t, err, nil)
	cached, hit, err := c.Compile(again)
	be.Err(t, err, nil)
	be.Equal(t, hit, true)
	be.Equal(t, cached.Text(), prog.Text())
}

func TestCompileDoesNotCacheErrors(t *testing.T) {
	c := open(t)
	tree, err := sexpr.Read("(program (block (return 1)))")
	be.Err(t, err, nil)

	_, _, err = c.Compile(tree)
	be.Err(t, err, &compiler.ConstraintError{Kind: compiler.ReturnNotInFunction})
	n, _ := c.Len()
	be.Equal(t, n, 0)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	be.Err(t, err, nil)
	prog := bytecode.NewProgram()
	prog.MustAppend(bytecode.Halt())
	be.Err(t, c.Put("k", prog), nil)
	be.Err(t, c.Close(), nil)

	c, err = Open(path)
	be.Err(t, err, nil)
	defer c.Close()
	be.Equal(t, c.Path(), path)
	_, err = c.Get("k")
	be.Err(t, err, nil)
}
