package bytecode

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ValueKind tags the payload of a Value.
type ValueKind uint8

const (
	KindInt    ValueKind = iota // 32-bit integer; booleans are 0/1
	KindChar                    // character, stored as its code point
	KindString                  // boxed string
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Value is one operand stack slot. Values are comparable and can be used
// as map keys.
type Value struct {
	Kind ValueKind
	Int  int32  // KindInt and KindChar
	Str  string // KindString
}

// IntValue returns an integer value.
func IntValue(v int32) Value { return Value{Kind: KindInt, Int: v} }

// CharValue returns a character value.
func CharValue(r rune) Value { return Value{Kind: KindChar, Int: int32(r)} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// BoolValue encodes b as 1 or 0.
func BoolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

// Truthy reports whether v counts as true for FALSEBRANCH.
func (v Value) Truthy() bool {
	if v.Kind == KindString {
		return v.Str != ""
	}
	return v.Int != 0
}

// String renders v the way WRITE prints it.
func (v Value) String() string {
	switch v.Kind {
	case KindChar:
		return string(rune(v.Int))
	case KindString:
		return v.Str
	default:
		return strconv.FormatInt(int64(v.Int), 10)
	}
}

// Literal renders v as a bytecode text token: 42, 'a' or "text".
func (v Value) Literal() string {
	switch v.Kind {
	case KindChar:
		return strconv.QuoteRune(rune(v.Int))
	case KindString:
		return strconv.Quote(v.Str)
	default:
		return strconv.FormatInt(int64(v.Int), 10)
	}
}

// ParseLiteral is the inverse of Literal.
func ParseLiteral(tok string) (Value, error) {
	if tok == "" {
		return Value{}, fmt.Errorf("empty literal")
	}
	switch tok[0] {
	case '\'':
		s, err := strconv.Unquote(tok)
		if err != nil {
			return Value{}, fmt.Errorf("bad character literal %s: %w", tok, err)
		}
		r, size := utf8.DecodeRuneInString(s)
		if size != len(s) {
			return Value{}, fmt.Errorf("bad character literal %s", tok)
		}
		return CharValue(r), nil
	case '"', '`':
		s, err := strconv.Unquote(tok)
		if err != nil {
			return Value{}, fmt.Errorf("bad string literal %s: %w", tok, err)
		}
		return StringValue(s), nil
	}
	n, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return Value{}, fmt.Errorf("bad integer literal %s: %w", tok, err)
	}
	return IntValue(int32(n)), nil
}
