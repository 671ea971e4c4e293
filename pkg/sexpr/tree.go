package sexpr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chazu/tinyvm/pkg/ast"
)

// Read parses src as a (program ...) form and builds its tree. Node
// positions come from the source. The result passes ast.Tree.Validate.
func Read(src string) (*ast.Tree, error) {
	d, err := Parse(src)
	if err != nil {
		return nil, err
	}
	b := &builder{tree: ast.NewTree()}
	if d.Head() != "program" || len(d.Items) != 2 {
		return nil, b.errorf(d, "want (program (block ...)), got %s", d.Head())
	}
	blk, err := b.block(d.Items[1])
	if err != nil {
		return nil, err
	}
	b.tree.SetRoot(b.tree.AddAt(d.Pos, ast.KindProgram, "", blk))
	if err := b.tree.Validate(); err != nil {
		return nil, err
	}
	return b.tree, nil
}

type builder struct {
	tree *ast.Tree
}

func (b *builder) errorf(d *Datum, format string, args ...any) error {
	return &Error{Pos: d.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (b *builder) expectLen(d *Datum, min, max int) error {
	n := len(d.Items) - 1
	if n < min || n > max {
		if min == max {
			return b.errorf(d, "%s takes %d operand(s), got %d", d.Head(), min, n)
		}
		return b.errorf(d, "%s takes %d to %d operands, got %d", d.Head(), min, max, n)
	}
	return nil
}

func (b *builder) ident(d *Datum) (ast.NodeID, error) {
	if d.Type != DatumSymbol {
		return ast.NoNode, b.errorf(d, "want a name, got %s %s", d.Type, d)
	}
	return b.tree.AddAt(d.Pos, ast.KindIdentifier, d.Text), nil
}

func (b *builder) typeNode(d *Datum) (ast.NodeID, error) {
	k, ok := ast.TypeKindByName(d.Text)
	if d.Type != DatumSymbol || !ok {
		return ast.NoNode, b.errorf(d, "unknown type %s", d)
	}
	return b.tree.AddAt(d.Pos, k, ""), nil
}

func (b *builder) block(d *Datum) (ast.NodeID, error) {
	if d.Head() != "block" {
		return ast.NoNode, b.errorf(d, "want (block ...), got %s", d)
	}
	items := make([]ast.NodeID, 0, len(d.Items)-1)
	for _, item := range d.Items[1:] {
		id, err := b.statement(item)
		if err != nil {
			return ast.NoNode, err
		}
		items = append(items, id)
	}
	return b.tree.AddAt(d.Pos, ast.KindBlock, "", items...), nil
}

func (b *builder) decl(d *Datum) (ast.NodeID, error) {
	if d.Head() != "decl" {
		return ast.NoNode, b.errorf(d, "want (decl TYPE NAME), got %s", d)
	}
	if err := b.expectLen(d, 2, 2); err != nil {
		return ast.NoNode, err
	}
	typ, err := b.typeNode(d.Items[1])
	if err != nil {
		return ast.NoNode, err
	}
	name, err := b.ident(d.Items[2])
	if err != nil {
		return ast.NoNode, err
	}
	return b.tree.AddAt(d.Pos, ast.KindDecl, "", typ, name), nil
}

// statement builds any form allowed in a block.
func (b *builder) statement(d *Datum) (ast.NodeID, error) {
	switch d.Head() {
	case "block":
		return b.block(d)
	case "decl":
		return b.decl(d)
	case "func":
		return b.function(d)
	case "assign":
		if err := b.expectLen(d, 2, 2); err != nil {
			return ast.NoNode, err
		}
		name, err := b.ident(d.Items[1])
		if err != nil {
			return ast.NoNode, err
		}
		expr, err := b.expr(d.Items[2])
		if err != nil {
			return ast.NoNode, err
		}
		return b.tree.AddAt(d.Pos, ast.KindAssign, "", name, expr), nil
	case "if":
		return b.conditional(d, ast.KindIf, 2, 3)
	case "unless":
		return b.conditional(d, ast.KindUnless, 2, 2)
	case "while":
		return b.conditional(d, ast.KindWhile, 2, 2)
	case "return":
		if err := b.expectLen(d, 1, 1); err != nil {
			return ast.NoNode, err
		}
		expr, err := b.expr(d.Items[1])
		if err != nil {
			return ast.NoNode, err
		}
		return b.tree.AddAt(d.Pos, ast.KindReturn, "", expr), nil
	case "switch":
		return b.switchStatement(d)
	}
	return b.expr(d)
}

func (b *builder) function(d *Datum) (ast.NodeID, error) {
	if err := b.expectLen(d, 4, 4); err != nil {
		return ast.NoNode, err
	}
	ret, err := b.typeNode(d.Items[1])
	if err != nil {
		return ast.NoNode, err
	}
	name, err := b.ident(d.Items[2])
	if err != nil {
		return ast.NoNode, err
	}
	fd := d.Items[3]
	if fd.Head() != "formals" {
		return ast.NoNode, b.errorf(fd, "want (formals ...), got %s", fd)
	}
	formals := make([]ast.NodeID, 0, len(fd.Items)-1)
	for _, item := range fd.Items[1:] {
		id, err := b.decl(item)
		if err != nil {
			return ast.NoNode, err
		}
		formals = append(formals, id)
	}
	body, err := b.block(d.Items[4])
	if err != nil {
		return ast.NoNode, err
	}
	f := b.tree.AddAt(fd.Pos, ast.KindFormals, "", formals...)
	return b.tree.AddAt(d.Pos, ast.KindFunctionDecl, "", ret, name, f, body), nil
}

func (b *builder) conditional(d *Datum, kind ast.Kind, min, max int) (ast.NodeID, error) {
	if err := b.expectLen(d, min, max); err != nil {
		return ast.NoNode, err
	}
	cond, err := b.expr(d.Items[1])
	if err != nil {
		return ast.NoNode, err
	}
	children := []ast.NodeID{cond}
	for _, item := range d.Items[2:] {
		blk, err := b.block(item)
		if err != nil {
			return ast.NoNode, err
		}
		children = append(children, blk)
	}
	return b.tree.AddAt(d.Pos, kind, "", children...), nil
}

func (b *builder) switchStatement(d *Datum) (ast.NodeID, error) {
	if len(d.Items) < 2 {
		return ast.NoNode, b.errorf(d, "switch needs a discriminant")
	}
	name, err := b.ident(d.Items[1])
	if err != nil {
		return ast.NoNode, err
	}
	cases := make([]ast.NodeID, 0, len(d.Items)-2)
	for _, c := range d.Items[2:] {
		var id ast.NodeID
		switch c.Head() {
		case "case":
			if err := b.expectLen(c, 2, 2); err != nil {
				return ast.NoNode, err
			}
			lit, err := b.literal(c.Items[1])
			if err != nil {
				return ast.NoNode, err
			}
			stmt, err := b.statement(c.Items[2])
			if err != nil {
				return ast.NoNode, err
			}
			id = b.tree.AddAt(c.Pos, ast.KindCaseStatement, "", lit, stmt)
		case "default":
			if err := b.expectLen(c, 1, 1); err != nil {
				return ast.NoNode, err
			}
			stmt, err := b.statement(c.Items[1])
			if err != nil {
				return ast.NoNode, err
			}
			id = b.tree.AddAt(c.Pos, ast.KindDefaultStatement, "", stmt)
		default:
			return ast.NoNode, b.errorf(c, "want (case LIT STMT) or (default STMT), got %s", c)
		}
		cases = append(cases, id)
	}
	blk := b.tree.AddAt(d.Pos, ast.KindSwitchBlock, "", cases...)
	return b.tree.AddAt(d.Pos, ast.KindSwitchStatement, "", name, blk), nil
}

func (b *builder) literal(d *Datum) (ast.NodeID, error) {
	switch d.Type {
	case DatumInt:
		n, err := strconv.ParseInt(d.Text, 10, 32)
		if err != nil {
			return ast.NoNode, b.errorf(d, "integer %s out of range", d.Text)
		}
		return b.tree.AddAt(d.Pos, ast.KindIntLiteral, strconv.FormatInt(n, 10)), nil
	case DatumChar:
		if utf8.RuneCountInString(d.Text) != 1 {
			return ast.NoNode, b.errorf(d, "bad character literal %s", d)
		}
		return b.tree.AddAt(d.Pos, ast.KindCharLiteral, d.Text), nil
	case DatumString:
		return b.tree.AddAt(d.Pos, ast.KindStringLiteral, d.Text), nil
	}
	return ast.NoNode, b.errorf(d, "want a literal, got %s", d)
}

func (b *builder) expr(d *Datum) (ast.NodeID, error) {
	switch d.Type {
	case DatumSymbol:
		return b.ident(d)
	case DatumInt, DatumChar, DatumString:
		return b.literal(d)
	}
	head := d.Head()
	if head == "call" {
		if len(d.Items) < 2 {
			return ast.NoNode, b.errorf(d, "call needs a function name")
		}
		name, err := b.ident(d.Items[1])
		if err != nil {
			return ast.NoNode, err
		}
		args := make([]ast.NodeID, 0, len(d.Items)-2)
		for _, item := range d.Items[2:] {
			arg, err := b.expr(item)
			if err != nil {
				return ast.NoNode, err
			}
			args = append(args, arg)
		}
		actuals := b.tree.AddAt(d.Pos, ast.KindActualArgs, "", args...)
		return b.tree.AddAt(d.Pos, ast.KindCall, "", name, actuals), nil
	}
	if kind, ok := ast.OperatorKind(head); ok {
		if err := b.expectLen(d, 2, 2); err != nil {
			return ast.NoNode, err
		}
		left, err := b.expr(d.Items[1])
		if err != nil {
			return ast.NoNode, err
		}
		right, err := b.expr(d.Items[2])
		if err != nil {
			return ast.NoNode, err
		}
		return b.tree.AddAt(d.Pos, kind, head, left, right), nil
	}
	return ast.NoNode, b.errorf(d, "unknown form %s", d)
}

// Format renders the tree reachable from the root in the form Read
// accepts. The output is canonical: Format(Read(Format(t))) == Format(t).
func Format(tree *ast.Tree) string {
	if tree.Root() == ast.NoNode {
		return ""
	}
	var sb strings.Builder
	format(&sb, tree, tree.Root())
	return sb.String()
}

func format(sb *strings.Builder, t *ast.Tree, id ast.NodeID) {
	list := func(head string, children ...ast.NodeID) {
		sb.WriteByte('(')
		sb.WriteString(head)
		for _, c := range children {
			sb.WriteByte(' ')
			format(sb, t, c)
		}
		sb.WriteByte(')')
	}
	kids := t.Children(id)
	switch k := t.Kind(id); k {
	case ast.KindProgram:
		list("program", kids...)
	case ast.KindBlock:
		list("block", kids...)
	case ast.KindDecl:
		list("decl", kids...)
	case ast.KindIntType, ast.KindBoolType, ast.KindCharType, ast.KindStringType:
		sb.WriteString(ast.TypeName(k))
	case ast.KindFunctionDecl:
		list("func", kids...)
	case ast.KindFormals:
		list("formals", kids...)
	case ast.KindCall:
		list("call", append([]ast.NodeID{kids[0]}, t.Children(kids[1])...)...)
	case ast.KindIf:
		list("if", kids...)
	case ast.KindUnless:
		list("unless", kids...)
	case ast.KindWhile:
		list("while", kids...)
	case ast.KindReturn:
		list("return", kids...)
	case ast.KindAssign:
		list("assign", kids...)
	case ast.KindSwitchStatement:
		list("switch", append([]ast.NodeID{kids[0]}, t.Children(kids[1])...)...)
	case ast.KindCaseStatement:
		list("case", kids...)
	case ast.KindDefaultStatement:
		list("default", kids...)
	case ast.KindRelOp, ast.KindAddOp, ast.KindMulOp:
		list(t.Symbol(id), kids...)
	case ast.KindIntLiteral, ast.KindIdentifier:
		sb.WriteString(t.Symbol(id))
	case ast.KindCharLiteral:
		r, _ := utf8.DecodeRuneInString(t.Symbol(id))
		sb.WriteString(strconv.QuoteRune(r))
	case ast.KindStringLiteral:
		sb.WriteString(strconv.Quote(t.Symbol(id)))
	default:
		fmt.Fprintf(sb, "<%s>", k)
	}
}
