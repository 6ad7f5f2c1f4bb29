package trie

import "crypto/sha256"

// branchNode is a two-way split on bit, the child subtrees sharing
// every bit before it and diverging at it. bit is carried on the node
// itself (rather than inferred from traversal depth) specifically so
// a branch can sit at any bit position — that is what lets leafNode
// skip materializing an internal node for every bit both siblings
// agree on.
type branchNode struct {
	bit         int
	left, right node

	hashCache  [32]byte
	hashCached bool
	dirty      bool
}

// hash is sha256(left.hash() || right.hash()).
func (b *branchNode) hash() [32]byte {
	if b.hashCached {
		return b.hashCache
	}
	h := sha256.New()
	lh := b.left.hash()
	rh := b.right.hash()
	h.Write(lh[:])
	h.Write(rh[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	b.hashCache = out
	b.hashCached = true
	return out
}
