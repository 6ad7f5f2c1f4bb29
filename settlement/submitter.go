// Package settlement implements the settlement submitter of spec.md
// §4.7: build and submit the L1 transaction that finalizes a batch,
// poll for its outcome, and tell the sequencer whether to advance or
// roll back its pending root. Polls are spaced by a fixed interval, up
// to a fixed number of attempts; the interval does not grow between
// polls. Bounded exponential backoff applies only to retrying each
// individual submit or status call.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/holiman/uint256"

	"github.com/cspr-rad/kairos-sub000/kairoslog"
	"github.com/cspr-rad/kairos-sub000/sequencer"
)

// Status classifies the outcome of a submitted settlement
// transaction.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusFailed
)

// GasParams carries the genuinely 256-bit EVM quantities a settlement
// transaction needs — fee fields, unlike the trie's uint64 account
// balances (§3), are native 256-bit values on L1.
type GasParams struct {
	MaxFeePerGas         *uint256.Int
	MaxPriorityFeePerGas *uint256.Int
}

// L1Client is the RPC surface the submitter needs, injected so tests
// can fake an L1 node.
type L1Client interface {
	SubmitBatch(ctx context.Context, newRoot [32]byte, proof []byte, gas GasParams) (txHash [32]byte, err error)
	TxStatus(ctx context.Context, txHash [32]byte) (Status, error)
}

// ErrTimedOut is returned when polling exhausts its attempt budget
// without the transaction resolving to confirmed or failed.
var ErrTimedOut = errors.New("settlement: timed out waiting for transaction to resolve")

// ErrPermanentFailure is returned when L1 reports the transaction
// failed outright (reverted, or never included within its validity
// window).
var ErrPermanentFailure = errors.New("settlement: transaction failed on L1")

// Submitter drives a single sequencer.State's in-flight batch to
// settlement.
type Submitter struct {
	client L1Client
	seq    *sequencer.State
	log    *kairoslog.Logger

	newBackOff      func() backoff.BackOff
	pollInterval    time.Duration
	maxPollAttempts int
}

// New creates a Submitter wired to seq.
func New(client L1Client, seq *sequencer.State) *Submitter {
	return &Submitter{
		client: client,
		seq:    seq,
		log:    kairoslog.Default().Module("settlement"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 60 * time.Second
			return b
		},
		pollInterval:    3 * time.Second,
		maxPollAttempts: 40,
	}
}

// Submit builds and submits batch's settlement transaction, polls for
// its resolution, and finalizes or rolls back the sequencer's pending
// root accordingly. A submission error or a permanent on-chain
// failure both roll back; only on-chain confirmation finalizes.
func (s *Submitter) Submit(ctx context.Context, batch *sequencer.InFlightBatch, proof []byte, gas GasParams) error {
	txHash, err := s.submitWithRetry(ctx, batch.NewRoot, proof, gas)
	if err != nil {
		if rerr := s.seq.Rollback(); rerr != nil {
			s.log.Error("rollback after submit failure also failed", "err", rerr)
		}
		return fmt.Errorf("settlement: submit batch: %w", err)
	}

	status, err := s.pollUntilResolved(ctx, txHash)
	if err != nil {
		if rerr := s.seq.Rollback(); rerr != nil {
			s.log.Error("rollback after poll failure also failed", "err", rerr)
		}
		return err
	}

	switch status {
	case StatusConfirmed:
		s.log.Info("batch settled", "root", fmt.Sprintf("%x", batch.NewRoot), "tx", fmt.Sprintf("%x", txHash))
		return s.seq.Finalize()
	case StatusFailed:
		if rerr := s.seq.Rollback(); rerr != nil {
			s.log.Error("rollback after permanent failure also failed", "err", rerr)
		}
		return fmt.Errorf("%w: tx %x", ErrPermanentFailure, txHash)
	default:
		if rerr := s.seq.Rollback(); rerr != nil {
			s.log.Error("rollback after unexpected status also failed", "err", rerr)
		}
		return fmt.Errorf("settlement: unexpected status %d for tx %x", status, txHash)
	}
}

func (s *Submitter) submitWithRetry(ctx context.Context, newRoot [32]byte, proof []byte, gas GasParams) ([32]byte, error) {
	var txHash [32]byte
	op := func() error {
		h, err := s.client.SubmitBatch(ctx, newRoot, proof, gas)
		if err != nil {
			return err
		}
		txHash = h
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(s.newBackOff(), ctx))
	return txHash, err
}

func (s *Submitter) pollUntilResolved(ctx context.Context, txHash [32]byte) (Status, error) {
	for attempt := 0; attempt < s.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return StatusPending, ctx.Err()
		case <-time.After(s.pollInterval):
		}

		status, err := s.statusWithRetry(ctx, txHash)
		if err != nil {
			return StatusPending, fmt.Errorf("settlement: poll tx status: %w", err)
		}
		if status != StatusPending {
			return status, nil
		}
	}
	return StatusPending, ErrTimedOut
}

func (s *Submitter) statusWithRetry(ctx context.Context, txHash [32]byte) (Status, error) {
	var status Status
	op := func() error {
		st, err := s.client.TxStatus(ctx, txHash)
		if err != nil {
			return err
		}
		status = st
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(s.newBackOff(), ctx))
	return status, err
}
