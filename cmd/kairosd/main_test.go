package main

import (
	"context"
	"testing"
	"time"

	"github.com/cspr-rad/kairos-sub000/account"
	"github.com/cspr-rad/kairos-sub000/kairoslog"
	"github.com/cspr-rad/kairos-sub000/sequencer"
	"github.com/cspr-rad/kairos-sub000/trie"
	"github.com/cspr-rad/kairos-sub000/tx"
)

func TestRunRejectsInvalidConfigurationBeforeTouchingDisk(t *testing.T) {
	code := run([]string{"--datadir", "", "--http.addr", ":0"})
	if code != 1 {
		t.Fatalf("expected exit code 1 for an invalid configuration, got %d", code)
	}
}

func TestRunBatchLoopClosesNonEmptyQueue(t *testing.T) {
	store := trie.NewFullStore(trie.NewMemNodeStore())
	seq := sequencer.New(store, sequencer.Config{MaxBatchSize: 10, BatchTimeout: time.Millisecond, MaxQueueDepth: 10})
	metrics := NewMetrics()

	recipient := account.PublicKey{1}
	if err := seq.EnqueueDeposit(tx.L1Deposit{Recipient: recipient, Amount: 1}); err != nil {
		t.Fatalf("EnqueueDeposit: %v", err)
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	runBatchLoop(ctx, seq, metrics, kairoslog.Default().Module("test"), ticker)

	if seq.QueueDepth() != 0 {
		t.Fatalf("expected the batch loop to drain the queue, got depth %d", seq.QueueDepth())
	}
	if seq.InFlight() == nil {
		t.Fatalf("expected an in-flight batch after the loop closed one")
	}
}
