// Package trie implements the account trie described in spec.md §4.1:
// a binary, path-compressed Merkle trie keyed by account.KeyHash, with
// three interchangeable backing-store modes (full store, snapshot
// builder, snapshot reader) built on a single immutable node
// representation.
//
// The branching and witness-placeholder design is adapted from
// wyf-ACCEPT-eth2030/pkg/trie/bintrie: an InternalNode with a fixed
// bit-depth splitting left/right children, and a HashedNode standing
// in for any subtree outside the currently loaded set. This package
// collapses the teacher's 256-wide stem group (one EIP-7864 stem holds
// 256 sibling values) down to a single Account per leaf, since the
// Kairos domain has no notion of per-account storage slots.
package trie

import "github.com/cspr-rad/kairos-sub000/account"

// node is the trie's internal, immutable node representation. Every
// mutation produces a new node; existing nodes are never modified in
// place, so a Txn can always fall back to its starting root.
type node interface {
	hash() [32]byte
}

// accessCtx threads the two side effects a traversal may need beyond
// the node graph itself: resolving a hashNode placeholder into a real
// node, and recording the pre-mutation content of every node visited
// (used by a witnessed Txn to build a Snapshot). Either field may be
// nil.
type accessCtx struct {
	resolve func(h [32]byte) (node, error)
	record  func(h [32]byte, encoded []byte)
}

// touch records n's current (pre-mutation) encoding exactly once, if a
// recorder is attached. It must be called before any traversal step
// that might lead to n being replaced by a mutated copy.
func (c *accessCtx) touch(n node) {
	if c == nil || c.record == nil {
		return
	}
	c.record(n.hash(), encodeNode(n))
}

// resolveIfHashed returns n unchanged unless it is a hashNode, in
// which case it resolves the placeholder via ctx. A hashNode with a
// nil ctx, or one ctx.resolve can't satisfy, means the traversal has
// stepped outside the loaded witness.
func resolveIfHashed(n node, ctx *accessCtx) (node, error) {
	hn, ok := n.(hashNode)
	if !ok {
		return n, nil
	}
	if ctx == nil || ctx.resolve == nil {
		return nil, &AccessError{Hash: [32]byte(hn), Err: ErrAccessOutsideSnapshot}
	}
	resolved, err := ctx.resolve([32]byte(hn))
	if err != nil {
		return nil, &AccessError{Hash: [32]byte(hn), Err: err}
	}
	return resolved, nil
}

// bitAt returns bit i (0 = most significant) of k.
func bitAt(k account.KeyHash, i int) int {
	byteIdx := i / 8
	bitIdx := 7 - uint(i%8)
	return int((k[byteIdx] >> bitIdx) & 1)
}

// firstDifferingBit returns the index of the first bit at which a and
// b differ, in [0,256). Callers must ensure a != b.
func firstDifferingBit(a, b account.KeyHash) int {
	for byteIdx := 0; byteIdx < 32; byteIdx++ {
		x := a[byteIdx] ^ b[byteIdx]
		if x == 0 {
			continue
		}
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			if x&(0x80>>uint(bitIdx)) != 0 {
				return byteIdx*8 + bitIdx
			}
		}
	}
	panic("trie: firstDifferingBit called with equal keys")
}

// anyKeyInSubtree returns the path of an arbitrary leaf reachable from
// n, resolving hashNode placeholders and recording touched nodes as
// it descends. put uses it to recover the prefix a branchNode's
// children share above its own bit, since a branchNode records only
// its own splitting bit, not that shared prefix.
func anyKeyInSubtree(n node, ctx *accessCtx) (account.KeyHash, error) {
	n, err := resolveIfHashed(n, ctx)
	if err != nil {
		return account.KeyHash{}, err
	}
	ctx.touch(n)

	switch t := n.(type) {
	case *leafNode:
		return t.path, nil
	case *branchNode:
		return anyKeyInSubtree(t.left, ctx)
	default:
		panic("trie: anyKeyInSubtree found an unexpected node type")
	}
}

// get walks n looking for key, resolving hashNode placeholders and
// recording touched nodes as it goes. It returns (nil, nil) if key is
// absent.
func get(n node, key account.KeyHash, ctx *accessCtx) (*account.Account, error) {
	n, err := resolveIfHashed(n, ctx)
	if err != nil {
		return nil, err
	}
	ctx.touch(n)

	switch t := n.(type) {
	case emptyNode:
		return nil, nil
	case *leafNode:
		if t.path == key {
			acc := t.account
			return &acc, nil
		}
		return nil, nil
	case *branchNode:
		b := bitAt(key, t.bit)
		if b == 0 {
			return get(t.left, key, ctx)
		}
		return get(t.right, key, ctx)
	default:
		panic("trie: unreachable node type in get")
	}
}

// put inserts or updates key's account, returning the new subtree
// root. It follows the same bit-branch/path-compression rules as get.
func put(n node, key account.KeyHash, acc account.Account, ctx *accessCtx) (node, error) {
	n, err := resolveIfHashed(n, ctx)
	if err != nil {
		return nil, err
	}
	ctx.touch(n)

	switch t := n.(type) {
	case emptyNode:
		return &leafNode{path: key, account: acc, dirty: true}, nil

	case *leafNode:
		if t.path == key {
			return &leafNode{path: key, account: acc, dirty: true}, nil
		}
		diffBit := firstDifferingBit(key, t.path)
		newLeaf := &leafNode{path: key, account: acc, dirty: true}
		branch := &branchNode{bit: diffBit, dirty: true}
		if bitAt(key, diffBit) == 0 {
			branch.left, branch.right = newLeaf, t
		} else {
			branch.left, branch.right = t, newLeaf
		}
		return branch, nil

	case *branchNode:
		// A branchNode only records the bit it splits on, not the
		// prefix its children share above that bit. Before descending
		// on t.bit, check key against that shared prefix: if it
		// diverges earlier, t's entire subtree belongs on one side of
		// a new branch inserted above t, at the true first-differing
		// bit — otherwise the resulting shape (and thus hash) depends
		// on the order keys were inserted in, not just the resulting
		// logical map.
		rep, err := anyKeyInSubtree(t, ctx)
		if err != nil {
			return nil, err
		}
		if key != rep {
			if diffBit := firstDifferingBit(key, rep); diffBit < t.bit {
				newLeaf := &leafNode{path: key, account: acc, dirty: true}
				branch := &branchNode{bit: diffBit, dirty: true}
				if bitAt(key, diffBit) == 0 {
					branch.left, branch.right = newLeaf, t
				} else {
					branch.left, branch.right = t, newLeaf
				}
				return branch, nil
			}
		}

		b := bitAt(key, t.bit)
		newBranch := &branchNode{bit: t.bit, left: t.left, right: t.right, dirty: true}
		if b == 0 {
			child, err := put(t.left, key, acc, ctx)
			if err != nil {
				return nil, err
			}
			newBranch.left = child
		} else {
			child, err := put(t.right, key, acc, ctx)
			if err != nil {
				return nil, err
			}
			newBranch.right = child
		}
		return newBranch, nil

	default:
		panic("trie: unreachable node type in put")
	}
}
