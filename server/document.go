package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/tinyvm/compiler"
	"github.com/chazu/tinyvm/pkg/ast"
	"github.com/chazu/tinyvm/pkg/sexpr"
)

// document is one open source file and the result of analyzing it. The
// tree keeps whatever decorations analysis made before any error.
type document struct {
	text    string
	tree    *ast.Tree
	err     error
	parents map[ast.NodeID]ast.NodeID
}

var keywords = []string{
	"program", "block", "decl", "func", "formals", "call", "assign",
	"if", "unless", "while", "return", "switch", "case", "default",
	"int", "bool", "char", "string",
}

func analyze(text string) *document {
	doc := &document{text: text}
	tree, err := sexpr.Read(text)
	if err != nil {
		doc.err = err
		return doc
	}
	doc.tree = tree
	doc.err = compiler.Analyze(tree)
	doc.parents = make(map[ast.NodeID]ast.NodeID)
	var walk func(id ast.NodeID)
	walk = func(id ast.NodeID) {
		for _, c := range tree.Children(id) {
			doc.parents[c] = id
			walk(c)
		}
	}
	walk(tree.Root())
	return doc
}

// toLSP converts a 1-based source position.
func toLSP(p ast.Position) protocol.Position {
	if !p.IsValid() {
		return protocol.Position{}
	}
	return protocol.Position{Line: protocol.UInteger(p.Line - 1), Character: protocol.UInteger(p.Column - 1)}
}

func (d *document) diagnostics() []protocol.Diagnostic {
	if d.err == nil {
		return []protocol.Diagnostic{}
	}

	var pos ast.Position
	length := 0
	var serr *sexpr.Error
	var cerr *compiler.ConstraintError
	switch {
	case errors.As(d.err, &serr):
		pos = serr.Pos
	case errors.As(d.err, &cerr):
		pos = cerr.Pos
		if d.tree != nil && cerr.Node != ast.NoNode && d.tree.Kind(cerr.Node) == ast.KindIdentifier {
			length = len(d.tree.Symbol(cerr.Node))
		}
	}

	start := toLSP(pos)
	end := start
	end.Character += protocol.UInteger(length)
	severity := protocol.DiagnosticSeverityError
	source := lspName
	return []protocol.Diagnostic{{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &severity,
		Source:   &source,
		Message:  d.err.Error(),
	}}
}

// identifierAt finds the identifier node spanning pos.
func (d *document) identifierAt(pos protocol.Position) (ast.NodeID, bool) {
	if d.tree == nil {
		return ast.NoNode, false
	}
	line := int(pos.Line) + 1
	col := int(pos.Character) + 1
	for id := ast.NodeID(0); int(id) < d.tree.Len(); id++ {
		n := d.tree.Node(id)
		if n.Kind != ast.KindIdentifier || n.Pos.Line != line {
			continue
		}
		if col >= n.Pos.Column && col < n.Pos.Column+len(n.Symbol) {
			return id, true
		}
	}
	return ast.NoNode, false
}

// declarationOf returns the Decl or FunctionDecl an identifier names.
func (d *document) declarationOf(ident ast.NodeID) (ast.NodeID, bool) {
	if parent, ok := d.parents[ident]; ok {
		switch d.tree.Kind(parent) {
		case ast.KindDecl, ast.KindFunctionDecl:
			if d.tree.Child(parent, 1) == ident {
				return parent, true
			}
		}
	}
	decl := d.tree.Decoration(ident)
	if decl == ast.NoNode {
		return ast.NoNode, false
	}
	switch d.tree.Kind(decl) {
	case ast.KindDecl, ast.KindFunctionDecl:
		return decl, true
	}
	return ast.NoNode, false
}

// signature renders a declaration the way it is written in source.
func (d *document) signature(decl ast.NodeID) string {
	t := d.tree
	typ := ast.TypeName(t.Kind(t.Child(decl, 0)))
	name := t.Symbol(t.Child(decl, 1))
	if t.Kind(decl) == ast.KindDecl {
		return typ + " " + name
	}
	var formals []string
	for _, f := range t.Children(t.Child(decl, 2)) {
		formals = append(formals, d.signature(f))
	}
	return fmt.Sprintf("%s %s(%s)", typ, name, strings.Join(formals, ", "))
}

func (d *document) hover(pos protocol.Position) *protocol.Hover {
	ident, ok := d.identifierAt(pos)
	if !ok {
		return nil
	}
	decl, ok := d.declarationOf(ident)
	if !ok {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "```\n%s\n```\n", d.signature(decl))
	switch {
	case d.tree.Intrinsics().IsIntrinsic(decl):
		b.WriteString("\nbuilt-in function\n")
	case d.tree.Kind(decl) == ast.KindFunctionDecl:
		if p := d.tree.Pos(decl); p.IsValid() {
			fmt.Fprintf(&b, "\nfunction declared at %s\n", p)
		}
	default:
		if p := d.tree.Pos(decl); p.IsValid() {
			fmt.Fprintf(&b, "\nvariable declared at %s\n", p)
		}
	}

	start := toLSP(d.tree.Pos(ident))
	end := start
	end.Character += protocol.UInteger(len(d.tree.Symbol(ident)))
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
		Range: &protocol.Range{Start: start, End: end},
	}
}

func (d *document) definition(uri protocol.DocumentUri, pos protocol.Position) []protocol.Location {
	ident, ok := d.identifierAt(pos)
	if !ok {
		return nil
	}
	decl, ok := d.declarationOf(ident)
	if !ok || d.tree.Intrinsics().IsIntrinsic(decl) {
		return nil
	}
	name := d.tree.Child(decl, 1)
	start := toLSP(d.tree.Pos(name))
	end := start
	end.Character += protocol.UInteger(len(d.tree.Symbol(name)))
	return []protocol.Location{{URI: uri, Range: protocol.Range{Start: start, End: end}}}
}

// references lists every identifier resolving to the same declaration,
// the declaring name included.
func (d *document) references(uri protocol.DocumentUri, pos protocol.Position) []protocol.Location {
	ident, ok := d.identifierAt(pos)
	if !ok {
		return nil
	}
	target, ok := d.declarationOf(ident)
	if !ok {
		return nil
	}

	var locations []protocol.Location
	for id := ast.NodeID(0); int(id) < d.tree.Len(); id++ {
		if d.tree.Kind(id) != ast.KindIdentifier || !d.tree.Pos(id).IsValid() {
			continue
		}
		if decl, ok := d.declarationOf(id); !ok || decl != target {
			continue
		}
		start := toLSP(d.tree.Pos(id))
		end := start
		end.Character += protocol.UInteger(len(d.tree.Symbol(id)))
		locations = append(locations, protocol.Location{URI: uri, Range: protocol.Range{Start: start, End: end}})
	}
	return locations
}

func (d *document) complete(pos protocol.Position) []protocol.CompletionItem {
	prefix := extractPrefix(d.text, pos)
	if prefix == "" {
		return nil
	}

	seen := make(map[string]bool)
	var items []protocol.CompletionItem
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		item := protocol.CompletionItem{Label: label, Kind: &kind}
		if detail != "" {
			item.Detail = &detail
		}
		items = append(items, item)
	}

	if d.tree != nil {
		for id := ast.NodeID(0); int(id) < d.tree.Len(); id++ {
			switch d.tree.Kind(id) {
			case ast.KindDecl:
				name := d.tree.Symbol(d.tree.Child(id, 1))
				if strings.HasPrefix(name, "<<") {
					continue
				}
				add(name, protocol.CompletionItemKindVariable, d.signature(id))
			case ast.KindFunctionDecl:
				add(d.tree.Symbol(d.tree.Child(id, 1)), protocol.CompletionItemKindFunction, d.signature(id))
			}
		}
	}
	add(ast.ReadName, protocol.CompletionItemKindFunction, "int read()")
	add(ast.WriteName, protocol.CompletionItemKindFunction, "int write(int)")
	for _, kw := range keywords {
		add(kw, protocol.CompletionItemKindKeyword, "")
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}
