package hash

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/chazu/tinyvm/pkg/ast"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a syntax tree.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Each node: tag byte, payload, uint32 child count, children inline
//   - Integers: big-endian int64 (8B)
//   - Characters: big-endian uint32 code point
//   - Strings: uint32 big-endian length + UTF-8 bytes
//
// Positions, decorations, labels and offsets are not serialized, so the
// bytes depend only on the program as written. Intrinsics are not reachable
// from the root and never contribute.
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of the tree
// reachable from its root.
func Serialize(tree *ast.Tree) ([]byte, error) {
	if tree.Root() == ast.NoNode {
		return nil, fmt.Errorf("hash: tree has no root")
	}
	s := &serializer{tree: tree, buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	if err := s.serializeNode(tree.Root()); err != nil {
		return nil, err
	}
	return s.buf, nil
}

type serializer struct {
	tree *ast.Tree
	buf  []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) serializeNode(id ast.NodeID) error {
	kind := s.tree.Kind(id)
	tag, ok := kindTags[kind]
	if !ok {
		return fmt.Errorf("hash: node %d: no tag for %s", id, kind)
	}
	s.writeByte(tag)

	sym := s.tree.Symbol(id)
	switch kind {
	case ast.KindIntLiteral:
		v, err := strconv.ParseInt(sym, 10, 64)
		if err != nil {
			return fmt.Errorf("hash: node %d: bad int literal %q", id, sym)
		}
		s.writeInt64(v)
	case ast.KindCharLiteral:
		r, _ := utf8.DecodeRuneInString(sym)
		s.writeUint32(uint32(r))
	case ast.KindStringLiteral, ast.KindIdentifier, ast.KindRelOp, ast.KindAddOp, ast.KindMulOp:
		s.writeString(sym)
	}

	children := s.tree.Children(id)
	s.writeUint32(uint32(len(children)))
	for _, c := range children {
		if err := s.serializeNode(c); err != nil {
			return err
		}
	}
	return nil
}
