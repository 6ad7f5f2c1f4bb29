package trie

// hashNode stands in for a subtree that has not been loaded: a
// pointer to a commitment, not the data behind it. A full store never
// produces one outside of a cold-cache load; a snapshot reader
// produces nothing else until resolve succeeds against its witness.
type hashNode [32]byte

func (h hashNode) hash() [32]byte {
	return [32]byte(h)
}
