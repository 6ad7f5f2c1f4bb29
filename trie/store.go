package trie

import (
	"fmt"
	"sync"

	"github.com/cspr-rad/kairos-sub000/account"
	"github.com/cspr-rad/kairos-sub000/kairoslog"
)

// NodeStore is the content-addressed persistence layer the full store
// writes dirty nodes to and reads cold nodes from. PebbleNodeStore
// (store_pebble.go) is the production implementation; MemNodeStore is
// used by tests and by anything that only needs an in-process store.
type NodeStore interface {
	Get(hash [32]byte) ([]byte, bool, error)
	Put(hash [32]byte, encoded []byte) error
}

// MemNodeStore is an in-memory NodeStore, safe for concurrent use.
type MemNodeStore struct {
	mu   sync.RWMutex
	data map[[32]byte][]byte
}

// NewMemNodeStore returns an empty in-memory node store.
func NewMemNodeStore() *MemNodeStore {
	return &MemNodeStore{data: make(map[[32]byte][]byte)}
}

func (s *MemNodeStore) Get(hash [32]byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[hash]
	return v, ok, nil
}

func (s *MemNodeStore) Put(hash [32]byte, encoded []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[hash] = append([]byte(nil), encoded...)
	return nil
}

// FullStore is the server-side backing store described in spec.md
// §4.1a: all committed nodes are reachable, cold ones lazily resolved
// from NodeStore on first access. A single writer commits at a time;
// concurrent readers are safe against the committed root because
// nodes are immutable once built (see sequencer.go for the lock
// discipline that enforces single-writer access in practice).
type FullStore struct {
	mu       sync.RWMutex
	store    NodeStore
	root     node
	rootHash [32]byte
	log      *kairoslog.Logger
}

// NewFullStore returns an empty full store backed by store.
func NewFullStore(store NodeStore) *FullStore {
	return &FullStore{
		store: store,
		root:  emptyNode{},
		log:   kairoslog.Default().Module("trie"),
	}
}

// OpenAt resumes a full store whose root was previously committed as
// root. The root node itself is resolved lazily on first access,
// exactly like any other cold node.
func OpenAt(store NodeStore, root [32]byte) *FullStore {
	var r node = hashNode(root)
	if root == ([32]byte{}) {
		r = emptyNode{}
	}
	return &FullStore{
		store:    store,
		root:     r,
		rootHash: root,
		log:      kairoslog.Default().Module("trie"),
	}
}

// RootHash returns the store's current committed root.
func (s *FullStore) RootHash() [32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootHash
}

func (s *FullStore) resolve(hash [32]byte) (node, error) {
	data, ok, err := s.store.Get(hash)
	if err != nil {
		return nil, fmt.Errorf("node store get %x: %w", hash, err)
	}
	if !ok {
		return nil, ErrAccessOutsideSnapshot
	}
	n, err := decodeNode(data)
	if err != nil {
		return nil, fmt.Errorf("decode node %x: %w", hash, err)
	}
	if n.hash() != hash {
		return nil, ErrHashMismatch
	}
	return n, nil
}

// Txn is a single in-flight, copy-on-write view over a trie root. Gets
// and Puts mutate txn.root only; nothing is visible to other readers
// of the owning FullStore until Commit.
type Txn struct {
	store *FullStore
	root  node
	ctx   *accessCtx
}

// Begin opens a read/write transaction at the store's current root,
// with no witness recording — used for ordinary server-side reads and
// writes outside of batch-proof assembly (e.g. answering a /nonce
// query, or applying a batch the caller does not need a witness for).
func (s *FullStore) Begin() *Txn {
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()
	return &Txn{
		store: s,
		root:  root,
		ctx:   &accessCtx{resolve: s.resolve},
	}
}

// Recorder accumulates the pre-mutation encoding of every node a
// witnessed Txn dereferences, keyed by hash. It is the snapshot
// builder of spec.md §4.1b.
type Recorder struct {
	mu    sync.Mutex
	nodes map[[32]byte][]byte
}

func newRecorder() *Recorder {
	return &Recorder{nodes: make(map[[32]byte][]byte)}
}

func (r *Recorder) record(hash [32]byte, encoded []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[hash]; ok {
		return
	}
	r.nodes[hash] = append([]byte(nil), encoded...)
}

// Snapshot freezes the recorder's touched set against root into the
// replayable witness a guest will later load.
func (r *Recorder) Snapshot(root [32]byte) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	nodes := make(map[[32]byte][]byte, len(r.nodes))
	for h, v := range r.nodes {
		nodes[h] = append([]byte(nil), v...)
	}
	return &Snapshot{Root: root, Nodes: nodes}
}

// BeginWitnessed opens a transaction exactly like Begin, but every
// node it dereferences is recorded into the returned Recorder before
// any mutation can replace it — the minimal data a SnapshotReader
// needs to replay the same batch (§4.3 step 1-2).
func (s *FullStore) BeginWitnessed() (*Txn, *Recorder) {
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()
	rec := newRecorder()
	return &Txn{
		store: s,
		root:  root,
		ctx:   &accessCtx{resolve: s.resolve, record: rec.record},
	}, rec
}

// GetAccount returns the account at k, or nil if absent.
func (t *Txn) GetAccount(k account.KeyHash) (*account.Account, error) {
	return get(t.root, k, t.ctx)
}

// PutAccount inserts or replaces the account at k.
func (t *Txn) PutAccount(k account.KeyHash, a account.Account) error {
	newRoot, err := put(t.root, k, a, t.ctx)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// RootHash computes the transaction's current root hash without
// committing it (calc_root_hash, §4.1).
func (t *Txn) RootHash() [32]byte {
	return t.root.hash()
}

// Commit persists every dirty node reachable from the transaction's
// root and advances the owning FullStore's committed root to it. A
// Txn opened against a store other than its own produces undefined
// results; callers must not reuse a Txn after Commit.
func (t *Txn) Commit() ([32]byte, error) {
	if t.store == nil {
		return [32]byte{}, fmt.Errorf("trie: Commit called on a transaction with no backing store (e.g. a guest SnapshotReader)")
	}
	var firstErr error
	collectDirty(t.root, func(hash [32]byte, encoded []byte) {
		if firstErr != nil {
			return
		}
		if err := t.store.store.Put(hash, encoded); err != nil {
			firstErr = fmt.Errorf("persist node %x: %w", hash, err)
		}
	})
	if firstErr != nil {
		return [32]byte{}, firstErr
	}
	newRoot := t.root.hash()
	t.store.mu.Lock()
	t.store.root = t.root
	t.store.rootHash = newRoot
	t.store.mu.Unlock()

	if rs, ok := t.store.store.(rootSaver); ok {
		if err := rs.SaveRoot(newRoot); err != nil {
			return [32]byte{}, fmt.Errorf("persist root pointer: %w", err)
		}
	}

	t.store.log.Debug("committed trie root", "root", fmt.Sprintf("%x", newRoot))
	return newRoot, nil
}

// rootSaver is implemented by NodeStore backends (PebbleNodeStore)
// that can durably remember the current root across restarts. A
// MemNodeStore does not implement it, which is fine: in-memory stores
// never survive a restart anyway.
type rootSaver interface {
	SaveRoot(root [32]byte) error
}

// collectDirty walks n, invoking visit for every dirty node's
// encoding. It stops descending once it reaches a node that was
// loaded from the store (not dirty) or not yet resolved (hashNode),
// since everything beneath either of those is already in the store.
// Nodes built in memory keep their dirty flag after a Commit, so a
// later Commit writes them again.
func collectDirty(n node, visit func(hash [32]byte, encoded []byte)) {
	switch t := n.(type) {
	case *leafNode:
		if !t.dirty {
			return
		}
		visit(t.hash(), encodeNode(t))
	case *branchNode:
		if !t.dirty {
			return
		}
		collectDirty(t.left, visit)
		collectDirty(t.right, visit)
		visit(t.hash(), encodeNode(t))
	case emptyNode, hashNode:
		// nothing to persist
	}
}
