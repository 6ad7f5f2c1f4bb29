// Package sequencer implements the sequencer state manager of
// spec.md §4.5: a single-writer-locked process-wide state holding the
// committed and pending roots, the deposit and L2 transaction queues,
// and the batch currently in flight to settlement.
package sequencer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cspr-rad/kairos-sub000/account"
	"github.com/cspr-rad/kairos-sub000/kairoslog"
	"github.com/cspr-rad/kairos-sub000/trie"
	"github.com/cspr-rad/kairos-sub000/tx"
	"github.com/cspr-rad/kairos-sub000/witness"
)

// Sequencer errors.
var (
	ErrQueueFull     = errors.New("sequencer: transaction queue is full")
	ErrBatchInFlight = errors.New("sequencer: a batch is already in flight")
	ErrNoBatch       = errors.New("sequencer: no batch in flight")
	ErrStaleNonce    = errors.New("sequencer: nonce already queued or below account nonce")
)

// Config controls batch-closing policy and backpressure.
type Config struct {
	// MaxBatchSize is the maximum number of transactions CloseBatch
	// draws from the queues at once.
	MaxBatchSize int

	// BatchTimeout is the longest a batch is left open before
	// CloseBatch is called even if it isn't full — enforced by the
	// caller's timer loop, not by this package.
	BatchTimeout time.Duration

	// MaxQueueDepth bounds the combined depth of the deposit and L2
	// queues; Enqueue* returns ErrQueueFull once reached, giving
	// clients (and the deposit follower) a backpressure signal (§4.5
	// resource bounds).
	MaxQueueDepth int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:  1000,
		BatchTimeout:  2 * time.Second,
		MaxQueueDepth: 50_000,
	}
}

// InFlightBatch is the batch currently assembled and handed to
// settlement, not yet known to have finalized on L1.
type InFlightBatch struct {
	Inputs   *witness.ProofInputs
	NewRoot  [32]byte
	Rejected []error
}

// State is the sequencer's single-writer-locked process state (§4.5).
// Every method that touches the queues, the roots or the nonce cache
// takes mu, since those are not safe for concurrent use. GetAccount
// does not take it: it reads the trie's FullStore directly, which is
// itself safe for concurrent reads.
type State struct {
	mu sync.Mutex

	store *trie.FullStore
	cfg   Config
	log   *kairoslog.Logger

	committedRoot [32]byte
	pendingRoot   [32]byte

	depositQueue []tx.L1Deposit
	l2Queue      []tx.KairosTransaction

	// nonces caches the next nonce each account is expected to submit,
	// updated optimistically as transactions are queued. This lets
	// enqueueL2 reject an obviously stale resubmission before it ever
	// reaches the trie (§4.5's "nonces fast-path").
	nonces map[account.KeyHash]uint64

	inFlight *InFlightBatch
}

// New creates a sequencer state over store, which must already be
// opened at the chain's current committed root.
func New(store *trie.FullStore, cfg Config) *State {
	root := store.RootHash()
	return &State{
		store:         store,
		cfg:           cfg,
		log:           kairoslog.Default().Module("sequencer"),
		committedRoot: root,
		pendingRoot:   root,
		nonces:        make(map[account.KeyHash]uint64),
	}
}

// CommittedRoot returns the last root settlement has finalized on L1.
func (s *State) CommittedRoot() [32]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committedRoot
}

// PendingRoot returns the speculative root of the batch currently in
// flight (equal to CommittedRoot when nothing is in flight).
func (s *State) PendingRoot() [32]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingRoot
}

// EnqueueDeposit appends a deposit observed on L1 to the deposit
// sub-queue. Deposits are never rejected for nonce or balance
// reasons at this stage — only queue depth can reject them.
func (s *State) EnqueueDeposit(d tx.L1Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.depositQueue)+len(s.l2Queue) >= s.cfg.MaxQueueDepth {
		return ErrQueueFull
	}
	s.depositQueue = append(s.depositQueue, d)
	return nil
}

// EnqueueTransfer validates t's nonce against the fast-path cache,
// falling back to the signer's account nonce in the trie on a cache
// miss, and appends it to the L2 sub-queue.
func (s *State) EnqueueTransfer(t tx.Signed[tx.Transfer]) error {
	return s.enqueueL2(tx.TransferTx(t), t.PublicKey, t.Nonce)
}

// EnqueueWithdraw validates t's nonce and appends it to the L2
// sub-queue.
func (s *State) EnqueueWithdraw(t tx.Signed[tx.Withdraw]) error {
	return s.enqueueL2(tx.WithdrawTx(t), t.PublicKey, t.Nonce)
}

func (s *State) enqueueL2(t tx.KairosTransaction, pk account.PublicKey, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.depositQueue)+len(s.l2Queue) >= s.cfg.MaxQueueDepth {
		return ErrQueueFull
	}

	key := account.Hash(pk)
	expected, cached := s.nonces[key]
	if cached && nonce < expected {
		return ErrStaleNonce
	}
	if !cached {
		txn := s.store.Begin()
		acc, err := txn.GetAccount(key)
		if err != nil {
			return fmt.Errorf("sequencer: nonce lookup: %w", err)
		}
		if acc != nil {
			expected = acc.Nonce
		}
		if nonce < expected {
			return ErrStaleNonce
		}
	}

	s.l2Queue = append(s.l2Queue, t)
	s.nonces[key] = nonce + 1
	return nil
}

// QueueDepth reports the combined length of both sub-queues.
func (s *State) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.depositQueue) + len(s.l2Queue)
}

// CloseBatch drains up to MaxBatchSize queued transactions — deposits
// first, then L2 transactions, a batch-closing policy this package
// owns rather than the executor (which only enforces per-transaction
// rules, not cross-transaction ordering) — assembles their proof
// inputs and witness, and advances the pending root. It fails with
// ErrBatchInFlight if a previous batch hasn't yet been resolved by
// Finalize or Rollback.
func (s *State) CloseBatch() (*InFlightBatch, error) {
	s.mu.Lock()
	if s.inFlight != nil {
		s.mu.Unlock()
		return nil, ErrBatchInFlight
	}

	n := s.cfg.MaxBatchSize
	if total := len(s.depositQueue) + len(s.l2Queue); total < n {
		n = total
	}
	if n == 0 {
		s.mu.Unlock()
		return nil, nil
	}

	candidate := make([]tx.KairosTransaction, 0, n)
	taken := 0
	for taken < n && len(s.depositQueue) > 0 {
		candidate = append(candidate, tx.DepositTx(s.depositQueue[0]))
		s.depositQueue = s.depositQueue[1:]
		taken++
	}
	for taken < n && len(s.l2Queue) > 0 {
		candidate = append(candidate, s.l2Queue[0])
		s.l2Queue = s.l2Queue[1:]
		taken++
	}
	store := s.store
	s.mu.Unlock()

	res, err := witness.Assemble(store, candidate)
	if err != nil {
		return nil, fmt.Errorf("sequencer: assemble batch: %w", err)
	}

	rejected := make([]error, len(res.Rejected))
	for i, r := range res.Rejected {
		rejected[i] = r
	}

	batch := &InFlightBatch{
		Inputs:   res.Inputs,
		NewRoot:  res.NewRoot,
		Rejected: rejected,
	}

	s.mu.Lock()
	s.inFlight = batch
	s.pendingRoot = res.NewRoot
	s.mu.Unlock()

	s.log.Info("closed batch", "transactions", len(candidate), "rejected", len(res.Rejected), "newRoot", fmt.Sprintf("%x", res.NewRoot))
	return batch, nil
}

// Finalize advances the committed root to the in-flight batch's new
// root once settlement has confirmed it on L1 (§4.5/§4.7).
func (s *State) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		return ErrNoBatch
	}
	s.committedRoot = s.inFlight.NewRoot
	s.inFlight = nil
	return nil
}

// Rollback discards the in-flight batch after a permanent settlement
// failure, resetting the pending root back to the last committed
// root. Its transactions are not automatically re-queued: clients are
// expected to resubmit, since the underlying L1 failure may mean the
// batch itself is no longer valid (§4.7).
func (s *State) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight == nil {
		return ErrNoBatch
	}
	s.pendingRoot = s.committedRoot
	s.inFlight = nil
	return nil
}

// InFlight returns the batch currently awaiting settlement, or nil.
func (s *State) InFlight() *InFlightBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// GetAccount reads an account at the sequencer's current pending
// view — a concurrent reader is always safe against a FullStore since
// committed nodes are immutable once written.
func (s *State) GetAccount(key account.KeyHash) (*account.Account, error) {
	return s.store.Begin().GetAccount(key)
}
