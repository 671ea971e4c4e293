package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/tinyvm/pkg/bytecode"
)

// binaryOp applies a BOP operator. l was pushed before r.
func binaryOp(op string, l, r bytecode.Value) (bytecode.Value, error) {
	if l.Kind == bytecode.KindString || r.Kind == bytecode.KindString {
		return stringOp(op, l, r)
	}
	if l.Kind != r.Kind {
		return bytecode.Value{}, fmt.Errorf("%s %s %s: %w", l.Kind, op, r.Kind, ErrOperandKind)
	}

	arith := func(n int32) bytecode.Value { return bytecode.Value{Kind: l.Kind, Int: n} }
	switch op {
	case "+":
		return arith(l.Int + r.Int), nil
	case "-":
		return arith(l.Int - r.Int), nil
	case "*":
		return arith(l.Int * r.Int), nil
	case "/":
		if r.Int == 0 {
			return bytecode.Value{}, ErrDivisionByZero
		}
		return arith(l.Int / r.Int), nil
	case "|":
		return bytecode.BoolValue(int64(l.Int)+int64(r.Int) >= 1), nil
	case "&":
		return bytecode.BoolValue(int64(l.Int)*int64(r.Int) >= 1), nil
	}
	ok, err := compare(op, cmpInt(l.Int, r.Int))
	if err != nil {
		return bytecode.Value{}, err
	}
	return bytecode.BoolValue(ok), nil
}

func stringOp(op string, l, r bytecode.Value) (bytecode.Value, error) {
	if l.Kind != r.Kind {
		return bytecode.Value{}, fmt.Errorf("%s %s %s: %w", l.Kind, op, r.Kind, ErrOperandKind)
	}
	if op == "+" {
		return bytecode.StringValue(l.Str + r.Str), nil
	}
	ok, err := compare(op, strings.Compare(l.Str, r.Str))
	if err != nil {
		if bytecode.IsOperator(op) {
			return bytecode.Value{}, fmt.Errorf("string %s string: %w", op, ErrOperandKind)
		}
		return bytecode.Value{}, err
	}
	return bytecode.BoolValue(ok), nil
}

func cmpInt(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compare(op string, c int) (bool, error) {
	switch op {
	case "==":
		return c == 0, nil
	case "!=":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("%q: %w", op, ErrUnknownOperator)
}
