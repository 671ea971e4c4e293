package compiler_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/chazu/tinyvm/compiler"
	"github.com/chazu/tinyvm/internal/casefile"
	"github.com/chazu/tinyvm/pkg/bytecode"
	"github.com/chazu/tinyvm/pkg/sexpr"
	"github.com/chazu/tinyvm/vm"
)

func TestConformance(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.md"))
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		cases, err := casefile.Load(file)
		be.Err(t, err, nil)
		for _, c := range cases {
			t.Run(filepath.Base(file)+"/"+c.Name, func(t *testing.T) {
				runCase(t, c)
			})
		}
	}
}

func runCase(t *testing.T, c casefile.Case) {
	tree, err := sexpr.Read(c.Source)
	if err != nil {
		t.Fatalf("line %d: %v", c.Line, err)
	}

	prog, err := compiler.Compile(tree)
	if err != nil {
		if c.Error == "" {
			t.Fatalf("line %d: compile: %v", c.Line, err)
		}
		be.Err(t, err, c.Error)
		return
	}
	if c.HasBytecode {
		be.Equal(t, prog.Text(), c.Bytecode)
	}

	out, err := execute(prog, c.Input)
	if c.Error != "" {
		be.Err(t, err, c.Error)
	} else {
		be.Err(t, err, nil)
	}
	if c.HasOutput {
		be.Equal(t, out, c.Output)
	}

	// the reloaded text form behaves identically
	reloaded, err := bytecode.ParseText(prog.Text())
	be.Err(t, err, nil)
	again, _ := execute(reloaded, c.Input)
	be.Equal(t, again, out)
}

func execute(prog *bytecode.Program, input string) (string, error) {
	var out bytes.Buffer
	m := vm.New(prog)
	m.SetInput(strings.NewReader(input))
	m.SetOutput(&out)
	m.SetStepLimit(1_000_000)
	err := m.Run()
	return out.String(), err
}
