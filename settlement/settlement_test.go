package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cspr-rad/kairos-sub000/account"
	"github.com/cspr-rad/kairos-sub000/sequencer"
	"github.com/cspr-rad/kairos-sub000/trie"
	"github.com/cspr-rad/kairos-sub000/tx"
)

type fakeClient struct {
	mu        sync.Mutex
	submitErr error
	statusSeq []Status
	statusErr error
	idx       int
}

func (c *fakeClient) SubmitBatch(ctx context.Context, newRoot [32]byte, proof []byte, gas GasParams) ([32]byte, error) {
	if c.submitErr != nil {
		return [32]byte{}, c.submitErr
	}
	return [32]byte{0xAB}, nil
}

func (c *fakeClient) TxStatus(ctx context.Context, txHash [32]byte) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusErr != nil {
		return StatusPending, c.statusErr
	}
	if c.idx >= len(c.statusSeq) {
		return StatusPending, nil
	}
	st := c.statusSeq[c.idx]
	c.idx++
	return st, nil
}

func newInFlightState(t *testing.T) (*sequencer.State, *sequencer.InFlightBatch, [32]byte) {
	t.Helper()
	store := trie.NewFullStore(trie.NewMemNodeStore())
	seq := sequencer.New(store, sequencer.Config{MaxBatchSize: 10, BatchTimeout: time.Second, MaxQueueDepth: 10})
	committed := seq.CommittedRoot()

	recipient := account.PublicKey{1}
	if err := seq.EnqueueDeposit(tx.L1Deposit{Recipient: recipient, Amount: 10}); err != nil {
		t.Fatalf("EnqueueDeposit: %v", err)
	}
	batch, err := seq.CloseBatch()
	if err != nil {
		t.Fatalf("CloseBatch: %v", err)
	}
	return seq, batch, committed
}

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
}

func TestSubmitConfirmsAndFinalizes(t *testing.T) {
	seq, batch, _ := newInFlightState(t)
	client := &fakeClient{statusSeq: []Status{StatusConfirmed}}
	sub := New(client, seq)
	sub.pollInterval = time.Millisecond
	sub.maxPollAttempts = 5

	if err := sub.Submit(context.Background(), batch, nil, GasParams{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if seq.CommittedRoot() != batch.NewRoot {
		t.Fatalf("expected committed root to advance to %x, got %x", batch.NewRoot, seq.CommittedRoot())
	}
	if seq.InFlight() != nil {
		t.Fatalf("expected no in-flight batch after confirmation")
	}
}

func TestSubmitPermanentFailureRollsBack(t *testing.T) {
	seq, batch, committed := newInFlightState(t)
	client := &fakeClient{statusSeq: []Status{StatusFailed}}
	sub := New(client, seq)
	sub.pollInterval = time.Millisecond
	sub.maxPollAttempts = 5

	err := sub.Submit(context.Background(), batch, nil, GasParams{})
	if !errors.Is(err, ErrPermanentFailure) {
		t.Fatalf("expected ErrPermanentFailure, got %v", err)
	}
	if seq.InFlight() != nil {
		t.Fatalf("expected rollback to clear the in-flight batch")
	}
	if seq.PendingRoot() != committed {
		t.Fatalf("expected pending root to reset to %x, got %x", committed, seq.PendingRoot())
	}
}

func TestSubmitTimesOutAndRollsBack(t *testing.T) {
	seq, batch, committed := newInFlightState(t)
	client := &fakeClient{}
	sub := New(client, seq)
	sub.pollInterval = time.Millisecond
	sub.maxPollAttempts = 3

	err := sub.Submit(context.Background(), batch, nil, GasParams{})
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if seq.PendingRoot() != committed {
		t.Fatalf("expected rollback on timeout, pending root %x != committed %x", seq.PendingRoot(), committed)
	}
}

func TestSubmitFailsOnSubmissionError(t *testing.T) {
	seq, batch, committed := newInFlightState(t)
	client := &fakeClient{submitErr: errors.New("rpc down")}
	sub := New(client, seq)
	sub.newBackOff = fastBackOff

	err := sub.Submit(context.Background(), batch, nil, GasParams{})
	if err == nil {
		t.Fatalf("expected an error when submission fails")
	}
	if seq.PendingRoot() != committed {
		t.Fatalf("expected rollback after submission failure")
	}
}
