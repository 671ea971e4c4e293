package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/chazu/tinyvm/pkg/ast"
	"github.com/chazu/tinyvm/pkg/bytecode"
	"github.com/chazu/tinyvm/vm"
)

const prologue = `GOTO start<<1>>
LABEL Read
READ
RETURN
LABEL Write
LOAD 0 dummyFormal
WRITE
RETURN
LABEL start<<1>>
`

func compile(t *testing.T, body string) (*ast.Tree, *bytecode.Program) {
	t.Helper()
	tree := read(t, body)
	prog, err := Compile(tree)
	be.Err(t, err, nil)
	be.Err(t, prog.Validate(), nil)
	return tree, prog
}

// afterPrologue returns the program text following LABEL start<<1>>.
func afterPrologue(t *testing.T, prog *bytecode.Program) string {
	t.Helper()
	text := prog.Text()
	if !strings.HasPrefix(text, prologue) {
		t.Fatalf("program does not start with the intrinsic prologue:\n%s", text)
	}
	return strings.TrimPrefix(text, prologue)
}

func execute(t *testing.T, prog *bytecode.Program, input string) (string, *vm.VM) {
	t.Helper()
	var out bytes.Buffer
	m := vm.New(prog)
	m.SetInput(strings.NewReader(input))
	m.SetOutput(&out)
	m.SetStepLimit(100000)
	be.Err(t, m.Run(), nil)
	return out.String(), m
}

func TestGenerateSimpleProgram(t *testing.T) {
	_, prog := compile(t, "(decl int x) (assign x 5) (call write x)")
	be.Equal(t, prog.Text(), prologue+`LIT 0 x
LIT 5
STORE 0 x
LOAD 0 x
ARGS 1
CALL Write
POP 2
HALT
`)
}

func TestGenerateFunction(t *testing.T) {
	tree, prog := compile(t, `(func int fact (formals (decl int n))
		(block (if (< n 2) (block (return 1)) (block (return (* n (call fact (- n 1))))))))
		(call write (call fact 5))`)
	be.Equal(t, afterPrologue(t, prog), `GOTO continue<<3>>
LABEL fact<<2>>
LOAD 0 n
LIT 2
BOP <
FALSEBRANCH else<<4>>
LIT 1
RETURN fact<<2>>
POP 0
GOTO continue<<5>>
LABEL else<<4>>
LOAD 0 n
LOAD 0 n
LIT 1
BOP -
ARGS 1
CALL fact<<2>>
BOP *
RETURN fact<<2>>
POP 0
LABEL continue<<5>>
POP 0
LIT 0 gratis-return-value
RETURN fact<<2>>
LABEL continue<<3>>
LIT 5
ARGS 1
CALL fact<<2>>
ARGS 1
CALL Write
POP 1
HALT
`)

	fn := tree.Child(tree.Child(tree.Root(), 0), 0)
	be.Equal(t, tree.Label(fn), "fact<<2>>")
	in := tree.Intrinsics()
	be.Equal(t, tree.Label(in.Read), ReadLabel)
	be.Equal(t, tree.Label(in.Write), WriteLabel)

	out, m := execute(t, prog, "")
	be.Equal(t, out, "120\n")
	be.Equal(t, len(m.Stack()), 0)
}

func TestGenerateOffsets(t *testing.T) {
	tree, _ := compile(t, `(decl int a)
		(call write 1)
		(decl int b)
		(block (decl int c))
		(decl int d)
		(func int f (formals (decl int p) (decl int q)) (block (decl int r) (return r)))`)

	blk := tree.Child(tree.Root(), 0)
	offset := func(decl ast.NodeID) int { return tree.Offset(tree.Child(decl, 1)) }

	be.Equal(t, offset(tree.Child(blk, 0)), 0)
	be.Equal(t, offset(tree.Child(blk, 2)), 2)
	be.Equal(t, offset(tree.Child(tree.Child(blk, 3), 0)), 3)
	be.Equal(t, offset(tree.Child(blk, 4)), 3)

	fn := tree.Child(blk, 5)
	formals := tree.Child(fn, 2)
	be.Equal(t, offset(tree.Child(formals, 0)), 0)
	be.Equal(t, offset(tree.Child(formals, 1)), 1)
	be.Equal(t, offset(tree.Child(tree.Child(fn, 3), 0)), 2)

	be.Equal(t, tree.Label(tree.Child(blk, 0)), "a")
}

func TestGenerateSwitch(t *testing.T) {
	tree, prog := compile(t, "(decl int x) (switch x (case 1 (call write 10)) (case 2 (block)))")
	be.Equal(t, afterPrologue(t, prog), `LIT 0 x
LOAD 0 x
SWITCH 0
CASE 0 1
LIT 10
ARGS 1
CALL Write
POP 1
GOTO switchend<<2>>
CASE 0 2
POP 0
GOTO switchend<<2>>
CASE 0 default
LABEL switchend<<2>>
POP 1
HALT
`)
	sw := tree.Child(tree.Child(tree.Root(), 0), 1)
	be.Equal(t, tree.Label(sw), "switch<<0>>")
}

func TestGenerateUnless(t *testing.T) {
	_, prog := compile(t, "(decl bool b) (unless b (block (call write 1)))")
	be.Equal(t, afterPrologue(t, prog), `LIT 0 b
LOAD 0 b
FALSEBRANCH unless<<2>>
GOTO continue<<3>>
LABEL unless<<2>>
LIT 1
ARGS 1
CALL Write
POP 1
LABEL continue<<3>>
POP 1
HALT
`)
	out, _ := execute(t, prog, "")
	be.Equal(t, out, "1\n")
}

func TestGenerateWhile(t *testing.T) {
	_, prog := compile(t, "(decl int i) (while (< i 3) (block (assign i (+ i 1))))")
	be.Equal(t, afterPrologue(t, prog), `LIT 0 i
LABEL while<<3>>
LOAD 0 i
LIT 3
BOP <
FALSEBRANCH continue<<2>>
LOAD 0 i
LIT 1
BOP +
STORE 0 i
POP 0
GOTO while<<3>>
LABEL continue<<2>>
POP 1
HALT
`)
}

func TestGenerateIfWithoutElse(t *testing.T) {
	_, prog := compile(t, "(decl bool b) (if b (block))")
	be.Equal(t, afterPrologue(t, prog), `LIT 0 b
LOAD 0 b
FALSEBRANCH else<<2>>
POP 0
GOTO continue<<3>>
LABEL else<<2>>
LABEL continue<<3>>
POP 1
HALT
`)
}

func TestGenerateTypedZeroValues(t *testing.T) {
	_, prog := compile(t, "(decl char c) (decl string s) (decl bool b)")
	be.Equal(t, afterPrologue(t, prog), `LIT '\x00' c
LIT "" s
LIT 0 b
POP 3
HALT
`)
}

func TestGeneratedProgramsLeaveAnEmptyStack(t *testing.T) {
	bodies := []string{
		"(decl int x) (switch x (case 0 (call write 1)) (default (call write 2)))",
		"(decl int x) (switch x (case 5 (decl int y)) (default (block (decl int z) (call write z))))",
		"(func int f (formals (decl int a)) (block (decl int t) (assign t (* a 2)) (call write t) (return t))) (call f (call f 3))",
		"(decl int i) (while (< i 4) (block (decl int sq) (assign sq (* i i)) (call write sq) (assign i (+ i 1))))",
		"(func int noret (formals) (block (call write 7))) (call write (call noret))",
	}
	for _, body := range bodies {
		_, prog := compile(t, body)
		_, m := execute(t, prog, "")
		be.Equal(t, len(m.Stack()), 0)
		be.Equal(t, m.FramePointers(), []int{0})
	}
}

func TestGenerateRequiresAnalysis(t *testing.T) {
	_, err := Generate(read(t, "(decl int x)"))
	var ierr *InternalError
	be.True(t, errors.As(err, &ierr))
	be.True(t, strings.Contains(err.Error(), "tree has not been analyzed"))
}

func TestGenerateRecoversContractViolations(t *testing.T) {
	tree := read(t, "(decl int x) (assign x 1)")
	be.Err(t, Analyze(tree), nil)

	// strip the assignment's decoration behind the analyzer's back
	assign := tree.Child(tree.Child(tree.Root(), 0), 1)
	tree.Decorate(tree.Child(assign, 0), ast.NoNode)

	_, err := Generate(tree)
	var ierr *InternalError
	be.True(t, errors.As(err, &ierr))
	be.Equal(t, ierr.Node, assign)
	be.True(t, strings.Contains(err.Error(), "assignment to x is not decorated"))
}

func TestCompileStopsAtConstraintError(t *testing.T) {
	prog, err := Compile(read(t, "(decl int x) (decl bool y) (assign x y)"))
	be.Err(t, err, &ConstraintError{Kind: BadAssignmentType})
	be.True(t, prog == nil)
}
