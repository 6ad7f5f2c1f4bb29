package trie

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleNodeStore is the production NodeStore: trie nodes persisted in
// a pebble instance, content-addressed by their 32-byte hash. This is
// the Full store of spec.md §4.1a; pebble is pulled in transitively by
// go-ethereum's own pebble-backed state database, and the teacher's
// corpus uses it the same way (a flat key/value layer under a
// higher-level, hash-addressed store).
type PebbleNodeStore struct {
	db *pebble.DB
}

// OpenPebbleNodeStore opens (creating if necessary) a pebble database
// at dir for use as a trie node store.
func OpenPebbleNodeStore(dir string) (*PebbleNodeStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble node store at %s: %w", dir, err)
	}
	return &PebbleNodeStore{db: db}, nil
}

// Close closes the underlying pebble database.
func (s *PebbleNodeStore) Close() error {
	return s.db.Close()
}

func (s *PebbleNodeStore) Get(hash [32]byte) ([]byte, bool, error) {
	v, closer, err := s.db.Get(hash[:])
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := append([]byte(nil), v...)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (s *PebbleNodeStore) Put(hash [32]byte, encoded []byte) error {
	return s.db.Set(hash[:], encoded, pebble.Sync)
}

// rootPointerKey is a single reserved key outside the 32-byte
// content-addressed keyspace, used to persist which root a FullStore
// last committed so a restart can resume with OpenAt instead of
// starting from an empty trie.
var rootPointerKey = []byte("kairos/trie/root")

// SaveRoot persists root as the store's current head.
func (s *PebbleNodeStore) SaveRoot(root [32]byte) error {
	return s.db.Set(rootPointerKey, root[:], pebble.Sync)
}

// LoadRoot returns the last root saved with SaveRoot, or ok=false if
// none has ever been saved (a fresh data directory).
func (s *PebbleNodeStore) LoadRoot() (root [32]byte, ok bool, err error) {
	v, closer, err := s.db.Get(rootPointerKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return root, false, nil
	}
	if err != nil {
		return root, false, err
	}
	copy(root[:], v)
	if cerr := closer.Close(); cerr != nil {
		return root, false, cerr
	}
	return root, true, nil
}
