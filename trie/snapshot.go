package trie

import (
	"fmt"
)

// Snapshot is the minimal replayable witness spec.md §4.1b/§4.3
// describes: the pre-batch root plus the encoding of every node a
// prechecked run of the batch touched. It is the payload a
// ProofInputs carries across the server/guest boundary.
type Snapshot struct {
	Root  [32]byte
	Nodes map[[32]byte][]byte
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	nodes := make(map[[32]byte][]byte, len(s.Nodes))
	for h, v := range s.Nodes {
		nodes[h] = append([]byte(nil), v...)
	}
	return &Snapshot{Root: s.Root, Nodes: nodes}
}

// SnapshotReader is the guest-side backing store of spec.md §4.1c: a
// read-only view over exactly the nodes a Snapshot recorded. Any
// traversal that needs a node outside that set fails hard with
// ErrAccessOutsideSnapshot — there is no fallback resolver, by design.
type SnapshotReader struct {
	snapshot *Snapshot
}

// NewSnapshotReader wraps snap for guest replay.
func NewSnapshotReader(snap *Snapshot) *SnapshotReader {
	return &SnapshotReader{snapshot: snap}
}

func (r *SnapshotReader) resolve(hash [32]byte) (node, error) {
	data, ok := r.snapshot.Nodes[hash]
	if !ok {
		return nil, ErrAccessOutsideSnapshot
	}
	n, err := decodeNode(data)
	if err != nil {
		return nil, fmt.Errorf("decode witness node %x: %w", hash, err)
	}
	if n.hash() != hash {
		return nil, ErrHashMismatch
	}
	return n, nil
}

// Txn opens a read/write transaction against the snapshot's root. The
// same Txn type, and the same executor, run against it as against a
// FullStore — only the resolver differs.
func (r *SnapshotReader) Txn() *Txn {
	var root node = hashNode(r.snapshot.Root)
	if r.snapshot.Root == ([32]byte{}) {
		root = emptyNode{}
	}
	return &Txn{
		root: root,
		ctx:  &accessCtx{resolve: r.resolve},
	}
}
