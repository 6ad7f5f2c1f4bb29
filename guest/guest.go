// Package guest implements the zkVM guest replay of spec.md §4.4:
// consume the server's ProofInputs inside the proof, re-run the batch
// authoritatively against a snapshot-only trie, and emit ProofOutputs
// the L1 verifier contract can check.
package guest

import (
	"fmt"

	"github.com/cspr-rad/kairos-sub000/executor"
	"github.com/cspr-rad/kairos-sub000/trie"
	"github.com/cspr-rad/kairos-sub000/tx"
	"github.com/cspr-rad/kairos-sub000/witness"
)

// ProofOutputs is the data the guest commits to: the state-transition
// endpoints and the L1-bound side effects the batch produced. The L1
// verifier contract reads this by fixed byte offset after the proof
// itself validates (§6.1) — see encode.go.
type ProofOutputs struct {
	PreRoot     [32]byte
	PostRoot    [32]byte
	Deposits    []tx.L1Deposit
	Withdrawals []tx.Signed[tx.Withdraw]
}

// Replay re-executes inputs.Transactions authoritatively against a
// SnapshotReader built from inputs.Snapshot. Any failure here —
// an executor rejection, a witness miss, a hash mismatch — is
// returned as an error; spec.md requires the guest to treat all three
// identically (abort the whole proof), which Run below does by
// panicking rather than letting a partial proof escape.
func Replay(inputs *witness.ProofInputs) (*ProofOutputs, error) {
	reader := trie.NewSnapshotReader(inputs.Snapshot)
	txn := reader.Txn()
	preRoot := txn.RootHash()
	if preRoot != inputs.Snapshot.Root {
		return nil, fmt.Errorf("guest: snapshot root mismatch: got %x, want %x", preRoot, inputs.Snapshot.Root)
	}

	res, err := executor.ApplyBatch(txn, inputs.Transactions, executor.Authoritative)
	if err != nil {
		return nil, fmt.Errorf("guest: batch replay failed: %w", err)
	}

	postRoot := txn.RootHash()
	return &ProofOutputs{
		PreRoot:     preRoot,
		PostRoot:    postRoot,
		Deposits:    res.Deposits,
		Withdrawals: res.Withdrawals,
	}, nil
}

// Run is the guest binary's entry point: Replay, but any failure
// panics rather than returning, since a guest that cannot produce a
// ProofOutputs has nothing meaningful to return to its caller (the
// proving harness aborts the whole proving run on panic). A batch
// that reaches the guest has already survived Prechecked execution
// server-side, so reaching this panic means the server's witness was
// wrong, corrupt, or built against a different batch entirely —
// always an operator-visible fault, never a client-triggerable one.
func Run(inputs *witness.ProofInputs) *ProofOutputs {
	out, err := Replay(inputs)
	if err != nil {
		panic(err)
	}
	return out
}
