// Package account defines the Kairos account model: public keys, the
// sha256-derived KeyHash used as the trie lookup key, and the Account
// value itself.
package account

import (
	"crypto/sha256"
	"encoding/binary"
)

// PublicKey is an opaque, variable-length public key (20-65 bytes
// typical for the secp256k1/Ed25519 keys Casper supports). Equality is
// by bytes.
type PublicKey []byte

// Equal reports whether two public keys hold the same bytes.
func (pk PublicKey) Equal(other PublicKey) bool {
	if len(pk) != len(other) {
		return false
	}
	for i := range pk {
		if pk[i] != other[i] {
			return false
		}
	}
	return true
}

// KeyHash is the 256-bit sha256 digest of a PublicKey, used as the
// trie's lookup key. The system's security assumption (see
// DESIGN.md) is a second-preimage assumption on SHA-256: the trie
// itself never re-derives or re-checks this mapping.
type KeyHash [32]byte

// Hash derives the KeyHash for a public key.
func Hash(pk PublicKey) KeyHash {
	return KeyHash(sha256.Sum256(pk))
}

// IsZero reports whether h is the zero KeyHash.
func (h KeyHash) IsZero() bool {
	return h == KeyHash{}
}

// Account is the value stored at a KeyHash in the account trie.
//
// PubKey is carried on the account (not just its hash) so that callers
// loading an account by KeyHash can detect a second-preimage collision
// by comparing against the PublicKey they expected to find there. This
// follows the original implementation's choice (account_trie.rs) of
// storing the key and checking it on load, one of the two options
// documented in spec.md's security-assumption note: it is a defensive
// check on the host, not a circuit constraint — PortableHash
// deliberately excludes PubKey so that the authenticated leaf hash
// stays cheap to recompute inside the guest.
type Account struct {
	PubKey  PublicKey
	Balance uint64
	Nonce   uint64
}

// New creates a zero-balance, zero-nonce account for pk. Accounts are
// created lazily on first credit and never deleted (I4).
func New(pk PublicKey) Account {
	return Account{PubKey: pk}
}

// PortableHash returns the fixed, endianness-defined byte layout of
// (balance, nonce) that the server and the guest must both compute
// identically. It does not include PubKey: see the Account doc
// comment.
func (a Account) PortableHash() [16]byte {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], a.Balance)
	binary.LittleEndian.PutUint64(buf[8:16], a.Nonce)
	return buf
}

// CheckedAdd adds delta to the balance, returning ok=false on overflow
// (I1). The account is not mutated on overflow.
func (a *Account) CheckedAdd(delta uint64) bool {
	sum := a.Balance + delta
	if sum < a.Balance {
		return false
	}
	a.Balance = sum
	return true
}

// CheckedSub subtracts delta from the balance, returning ok=false on
// underflow (I1). The account is not mutated on underflow.
func (a *Account) CheckedSub(delta uint64) bool {
	if delta > a.Balance {
		return false
	}
	a.Balance -= delta
	return true
}

// WillOverflowAdd reports whether adding delta to balance would
// overflow, without mutating anything. Used by the executor's
// prechecks (§4.2 step 5) so a failing transaction never partially
// mutates state.
func WillOverflowAdd(balance, delta uint64) bool {
	return balance+delta < balance
}
