package trie

import (
	"crypto/sha256"

	"github.com/cspr-rad/kairos-sub000/account"
)

// leafNode is a terminal node holding a single account, reached once
// its path has been uniquely distinguished from all its siblings by
// the chain of branchNode bit tests above it. Storing the full
// 256-bit path (rather than only the unconsumed suffix) means a leaf
// can be matched by straight equality, which is what gives this trie
// its path compression: no intermediate branchNode is ever
// materialized for a run of bits both the old and new key agree on.
type leafNode struct {
	path    account.KeyHash
	account account.Account

	hashCache  [32]byte
	hashCached bool
	dirty      bool
}

// hash is sha256(path || portable_hash(account)), per §4.1/§9: the
// account's PubKey is deliberately excluded, see account.Account's
// PortableHash doc comment.
func (l *leafNode) hash() [32]byte {
	if l.hashCached {
		return l.hashCache
	}
	h := sha256.New()
	h.Write(l.path[:])
	ph := l.account.PortableHash()
	h.Write(ph[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	l.hashCache = out
	l.hashCached = true
	return out
}
