package compiler

import "github.com/chazu/tinyvm/pkg/ast"

// SymbolTable resolves names to declaration nodes during analysis. It is
// a stack of scopes; each scope maps a name to the Decl or FunctionDecl
// that introduced it. Inner scopes shadow outer ones.
type SymbolTable struct {
	scopes []map[string]ast.NodeID
}

// NewSymbolTable returns a table with one (global) scope open.
func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{}
	st.BeginScope()
	return st
}

// BeginScope opens a new innermost scope.
func (st *SymbolTable) BeginScope() {
	st.scopes = append(st.scopes, make(map[string]ast.NodeID))
}

// EndScope discards the innermost scope and every name declared in it.
func (st *SymbolTable) EndScope() {
	if len(st.scopes) == 0 {
		return
	}
	st.scopes = st.scopes[:len(st.scopes)-1]
}

// Depth returns the number of open scopes.
func (st *SymbolTable) Depth() int { return len(st.scopes) }

// Enter binds name to decl in the innermost scope, replacing any binding
// of the same name in that scope.
func (st *SymbolTable) Enter(name string, decl ast.NodeID) {
	st.scopes[len(st.scopes)-1][name] = decl
}

// Lookup finds the innermost binding of name.
func (st *SymbolTable) Lookup(name string) (ast.NodeID, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if decl, ok := st.scopes[i][name]; ok {
			return decl, true
		}
	}
	return ast.NoNode, false
}
