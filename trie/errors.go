package trie

import (
	"errors"
	"fmt"
)

// ErrAccessOutsideSnapshot is returned when a snapshot-reader
// traversal needs a node whose hash was never recorded in the
// snapshot's witness — the guest's one hard, unconditional failure
// mode (§4.1c, §4.4).
var ErrAccessOutsideSnapshot = errors.New("trie: access outside snapshot witness")

// ErrHashMismatch is returned when a resolved node's re-computed hash
// does not match the hash it was stored under, signalling a corrupted
// store or a tampered snapshot.
var ErrHashMismatch = errors.New("trie: resolved node hash mismatch")

// AccessError reports which hash a failed resolution was for.
type AccessError struct {
	Hash [32]byte
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("trie: node %x: %v", e.Hash, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
