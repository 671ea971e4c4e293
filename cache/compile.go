package cache

import (
	"errors"

	"github.com/chazu/tinyvm/compiler"
	"github.com/chazu/tinyvm/compiler/hash"
	"github.com/chazu/tinyvm/pkg/ast"
	"github.com/chazu/tinyvm/pkg/bytecode"
)

// Compile returns the cached program for tree, compiling and storing it on
// a miss. The second result reports whether the cache was hit. Failures to
// store are logged and do not fail the compile.
func (c *Cache) Compile(tree *ast.Tree) (*bytecode.Program, bool, error) {
	key, err := hash.Key(tree)
	if err != nil {
		return nil, false, err
	}

	prog, err := c.Get(key)
	switch {
	case err == nil:
		return prog, true, nil
	case !errors.Is(err, ErrNotFound):
		log.Warningf("ignoring unreadable cache entry: %s", err)
	}

	prog, err = compiler.Compile(tree)
	if err != nil {
		return nil, false, err
	}
	if err := c.Put(key, prog); err != nil {
		log.Warningf("%s", err)
	}
	return prog, false, nil
}
