package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented listing of the subtree at id: node id, kind,
// symbol, decoration, label and frame offset where set.
func (t *Tree) Dump(w io.Writer, id NodeID) error {
	return t.dump(w, id, 0)
}

// DumpString returns the Dump of the whole tree.
func (t *Tree) DumpString() string {
	if t.root == NoNode {
		return ""
	}
	var sb strings.Builder
	_ = t.Dump(&sb, t.root)
	return sb.String()
}

func (t *Tree) dump(w io.Writer, id NodeID, depth int) error {
	n := t.Node(id)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%4d: %s%s", n.ID, strings.Repeat("  ", depth), n.Kind)
	if n.Symbol != "" {
		fmt.Fprintf(&sb, " %q", n.Symbol)
	}
	if n.Decoration != NoNode {
		fmt.Fprintf(&sb, " dec=%d", n.Decoration)
	}
	if n.Label != "" {
		fmt.Fprintf(&sb, " label=%s", n.Label)
	}
	if n.Offset >= 0 {
		fmt.Fprintf(&sb, " offset=%d", n.Offset)
	}
	sb.WriteByte('\n')
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := t.dump(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
