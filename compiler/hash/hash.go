// Package hash computes content hashes of syntax trees. The compiled
// program cache is keyed by them.
package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/tinyvm/pkg/ast"
)

// HashTree computes the SHA-256 content hash of the program in tree.
//
// The hash covers a deterministic serialization of the tree's kinds,
// names, literals and shape. Two trees that differ only in source layout
// (positions) or in analysis results produce the same hash.
func HashTree(tree *ast.Tree) ([32]byte, error) {
	data, err := Serialize(tree)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Key is HashTree in lowercase hex.
func Key(tree *ast.Tree) (string, error) {
	h, err := HashTree(tree)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}
