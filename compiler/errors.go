package compiler

import (
	"fmt"

	"github.com/chazu/tinyvm/pkg/ast"
)

// ConstraintKind classifies a semantic analysis failure.
type ConstraintKind uint8

const (
	BadAssignmentType ConstraintKind = iota
	SwitchTypeMismatch
	CallingNonFunction
	ActualFormalTypeMismatch
	NumberActualsFormalsDiffer
	TypeMismatchInExpr
	BadConditional
	ReturnNotInFunction
	BadReturnExpr
	UnrecognizedIdentifier
	DuplicateCase
)

var constraintNames = [...]string{
	BadAssignmentType:          "BadAssignmentType",
	SwitchTypeMismatch:         "SwitchTypeMismatch",
	CallingNonFunction:         "CallingNonFunction",
	ActualFormalTypeMismatch:   "ActualFormalTypeMismatch",
	NumberActualsFormalsDiffer: "NumberActualsFormalsDiffer",
	TypeMismatchInExpr:         "TypeMismatchInExpr",
	BadConditional:             "BadConditional",
	ReturnNotInFunction:        "ReturnNotInFunction",
	BadReturnExpr:              "BadReturnExpr",
	UnrecognizedIdentifier:     "UnrecognizedIdentifier",
	DuplicateCase:              "DuplicateCase",
}

func (k ConstraintKind) String() string {
	if int(k) < len(constraintNames) {
		return constraintNames[k]
	}
	return fmt.Sprintf("ConstraintKind(%d)", k)
}

// ConstraintError reports the first violated constraint found by Analyze.
// Node is the offending node; Pos is its position (or the nearest
// positioned ancestor's) when the tree carries positions.
type ConstraintError struct {
	Kind   ConstraintKind
	Node   ast.NodeID
	Pos    ast.Position
	Detail string
}

func (e *ConstraintError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Detail)
	}
	return fmt.Sprintf("node %d: %s: %s", e.Node, e.Kind, e.Detail)
}

// Is matches another *ConstraintError of the same kind, so callers can
// write errors.Is(err, &ConstraintError{Kind: BadConditional}).
func (e *ConstraintError) Is(target error) bool {
	t, ok := target.(*ConstraintError)
	return ok && t.Kind == e.Kind
}

// InternalError reports a code generator contract violation: the tree was
// not produced by a successful Analyze.
type InternalError struct {
	Node    ast.NodeID
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal compiler error at node %d: %s", e.Node, e.Message)
}
