// Package sexpr reads and writes tinyvm syntax trees as S-expressions.
//
// The core compiler consumes an already-built ast.Tree; this package is the
// interchange form that hands one over. Format writes the canonical text.
//
//	(program (block
//	  (decl int x)
//	  (func int twice (formals (decl int n)) (block (return (* n 2))))
//	  (assign x (call twice 21))
//	  (call write x)))
package sexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/tinyvm/pkg/ast"
)

// DatumType is the type of a Datum.
type DatumType int

const (
	DatumSymbol DatumType = iota
	DatumInt
	DatumChar
	DatumString
	DatumList
)

func (t DatumType) String() string {
	switch t {
	case DatumSymbol:
		return "symbol"
	case DatumInt:
		return "integer"
	case DatumChar:
		return "character"
	case DatumString:
		return "string"
	case DatumList:
		return "list"
	}
	return fmt.Sprintf("DatumType(%d)", int(t))
}

// Datum is one parsed S-expression.
type Datum struct {
	Type  DatumType
	Text  string   // atoms; string and char hold the unquoted value
	Items []*Datum // DatumList
	Pos   ast.Position
}

func (d *Datum) String() string {
	switch d.Type {
	case DatumString:
		return strconv.Quote(d.Text)
	case DatumChar:
		r := []rune(d.Text)
		if len(r) == 1 {
			return strconv.QuoteRune(r[0])
		}
		return "'" + d.Text + "'"
	case DatumList:
		parts := make([]string, len(d.Items))
		for i, item := range d.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return d.Text
	}
}

// Head returns the symbol at the front of a list, or "".
func (d *Datum) Head() string {
	if d.Type != DatumList || len(d.Items) == 0 || d.Items[0].Type != DatumSymbol {
		return ""
	}
	return d.Items[0].Text
}

// Parse reads exactly one datum from src.
func Parse(src string) (*Datum, error) {
	p := &parser{lex: newLexer(src)}
	p.next()
	d, err := p.datum()
	if err != nil {
		return nil, err
	}
	if p.tok.typ != tokEOF {
		return nil, p.errorf("expected end of input, got %s", p.tok)
	}
	return d, nil
}

// Error is a syntax error in S-expression input.
type Error struct {
	Pos ast.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("sexpr: %s: %s", e.Pos, e.Msg)
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) next() { p.tok = p.lex.next() }

func (p *parser) errorf(format string, args ...any) error {
	return &Error{Pos: p.tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) datum() (*Datum, error) {
	tok := p.tok
	switch tok.typ {
	case tokError:
		return nil, &Error{Pos: tok.pos, Msg: tok.text}
	case tokSymbol:
		p.next()
		return &Datum{Type: DatumSymbol, Text: tok.text, Pos: tok.pos}, nil
	case tokInt:
		p.next()
		return &Datum{Type: DatumInt, Text: tok.text, Pos: tok.pos}, nil
	case tokChar:
		p.next()
		return &Datum{Type: DatumChar, Text: tok.text, Pos: tok.pos}, nil
	case tokString:
		p.next()
		return &Datum{Type: DatumString, Text: tok.text, Pos: tok.pos}, nil
	case tokLParen:
		p.next()
		list := &Datum{Type: DatumList, Pos: tok.pos}
		for p.tok.typ != tokRParen {
			if p.tok.typ == tokEOF {
				return nil, p.errorf("unclosed list opened at %s", tok.pos)
			}
			item, err := p.datum()
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, item)
		}
		p.next()
		return list, nil
	default:
		return nil, p.errorf("unexpected %s", tok)
	}
}
