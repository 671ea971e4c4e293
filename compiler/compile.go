// Package compiler is the back end of tinyvm: semantic analysis over an
// ast.Tree followed by code generation into a bytecode.Program.
package compiler

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/tinyvm/pkg/ast"
	"github.com/chazu/tinyvm/pkg/bytecode"
)

var log = commonlog.GetLogger("tinyvm.compiler")

// Compile analyzes tree and generates its program. The tree is decorated
// in place, so its Dump after Compile shows decorations, labels and frame
// offsets.
func Compile(tree *ast.Tree) (*bytecode.Program, error) {
	if err := Analyze(tree); err != nil {
		log.Debugf("analysis failed: %s", err)
		return nil, err
	}
	return Generate(tree)
}
