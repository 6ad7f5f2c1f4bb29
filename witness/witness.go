// Package witness implements the proof-input assembler of spec.md
// §4.3: turn a candidate batch into the ProofInputs a guest will
// replay, dropping transactions that fail precheck and capturing the
// snapshot witness they collectively touched.
package witness

import (
	"github.com/cspr-rad/kairos-sub000/executor"
	"github.com/cspr-rad/kairos-sub000/kairoslog"
	"github.com/cspr-rad/kairos-sub000/trie"
	"github.com/cspr-rad/kairos-sub000/tx"
)

var log = kairoslog.Default().Module("witness")

// ProofInputs is everything a guest needs to replay a batch: the
// surviving transactions (in their original relative order) and the
// snapshot witness recorded while prechecking them.
type ProofInputs struct {
	Transactions []tx.KairosTransaction
	Snapshot     *trie.Snapshot
}

// AssembleResult reports the proof inputs alongside the bookkeeping a
// sequencer needs: the new committed root, and which candidate
// transactions were dropped and why.
type AssembleResult struct {
	Inputs   *ProofInputs
	NewRoot  [32]byte
	Rejected []*executor.TxError
}

// Assemble runs candidate through the executor in Prechecked mode
// against a witnessed transaction on store, commits the surviving
// mutations, and extracts the touched-node witness — spec.md §4.3's
// four steps in order:
//
//  1. open a snapshot-builder transaction at the current root
//  2. run the executor in prechecked mode, dropping failures
//  3. commit, fixing the new root
//  4. extract the snapshot witness
func Assemble(store *trie.FullStore, candidate []tx.KairosTransaction) (*AssembleResult, error) {
	preRoot := store.RootHash()
	txn, rec := store.BeginWitnessed()

	res, err := executor.ApplyBatch(txn, candidate, executor.Prechecked)
	if err != nil {
		// Prechecked mode returns an error only when the trie itself
		// failed (a missing node, a hash mismatch, a node store read
		// error), which is a consistency/external fault.
		return nil, err
	}

	newRoot, err := txn.Commit()
	if err != nil {
		return nil, err
	}

	snap := rec.Snapshot(preRoot)

	rejectedSet := make(map[int]bool, len(res.Rejected))
	for _, r := range res.Rejected {
		rejectedSet[r.Index] = true
	}
	surviving := make([]tx.KairosTransaction, 0, len(candidate)-len(res.Rejected))
	for i, t := range candidate {
		if !rejectedSet[i] {
			surviving = append(surviving, t)
		}
	}

	log.Info("assembled batch witness",
		"candidate", len(candidate),
		"applied", len(surviving),
		"rejected", len(res.Rejected),
		"nodes", len(snap.Nodes),
	)

	return &AssembleResult{
		Inputs: &ProofInputs{
			Transactions: surviving,
			Snapshot:     snap,
		},
		NewRoot:  newRoot,
		Rejected: res.Rejected,
	}, nil
}
