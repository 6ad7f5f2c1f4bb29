package deposit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cspr-rad/kairos-sub000/tx"
)

type fakeAdapter struct {
	lastProcessed uint64
	hasLast       bool
	events        []tx.L1Deposit
	eventErr      error
}

func (a *fakeAdapter) LastProcessedIndex(ctx context.Context) (uint64, bool, error) {
	return a.lastProcessed, a.hasLast, nil
}

func (a *fakeAdapter) EventCount(ctx context.Context) (uint64, error) {
	return uint64(len(a.events)), nil
}

func (a *fakeAdapter) Event(ctx context.Context, index uint64) (tx.L1Deposit, error) {
	if a.eventErr != nil {
		return tx.L1Deposit{}, a.eventErr
	}
	if index >= uint64(len(a.events)) {
		return tx.L1Deposit{}, fmt.Errorf("fakeAdapter: index %d out of range", index)
	}
	return a.events[index], nil
}

type fakeSink struct {
	mu       sync.Mutex
	received []tx.L1Deposit
}

func (s *fakeSink) EnqueueDeposit(d tx.L1Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, d)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
}

func TestNewResumesFromLastProcessedIndex(t *testing.T) {
	adapter := &fakeAdapter{lastProcessed: 5, hasLast: true}
	f, err := New(context.Background(), adapter, &fakeSink{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.NextIndex() != 6 {
		t.Fatalf("expected NextIndex 6, got %d", f.NextIndex())
	}
}

func TestNewStartsAtZeroWhenNothingProcessed(t *testing.T) {
	adapter := &fakeAdapter{hasLast: false}
	f, err := New(context.Background(), adapter, &fakeSink{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.NextIndex() != 0 {
		t.Fatalf("expected NextIndex 0, got %d", f.NextIndex())
	}
}

func TestRunProcessesEventsInOrder(t *testing.T) {
	adapter := &fakeAdapter{events: []tx.L1Deposit{
		{Amount: 1}, {Amount: 2}, {Amount: 3},
	}}
	sink := &fakeSink{}
	f, err := New(context.Background(), adapter, sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.pollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for sink.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for all deposits to be processed, got %d", sink.count())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	err = <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Run to return context.Canceled after cancellation, got %v", err)
	}
	for i, d := range sink.received {
		if d.Amount != adapter.events[i].Amount {
			t.Fatalf("deposit %d out of order: got %+v want %+v", i, d, adapter.events[i])
		}
	}
}

func TestRunDetectsGap(t *testing.T) {
	adapter := &fakeAdapter{lastProcessed: 5, hasLast: true}
	f, err := New(context.Background(), adapter, &fakeSink{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = f.Run(context.Background())
	if !errors.Is(err, ErrGap) {
		t.Fatalf("expected ErrGap, got %v", err)
	}
}

func TestRunReturnsErrorWhenEventFetchExhaustsRetries(t *testing.T) {
	adapter := &fakeAdapter{
		events:   []tx.L1Deposit{{Amount: 1}},
		eventErr: errors.New("rpc unavailable"),
	}
	f, err := New(context.Background(), adapter, &fakeSink{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.newBackOff = fastBackOff

	err = f.Run(context.Background())
	if err == nil {
		t.Fatalf("expected Run to fail once retries are exhausted")
	}
}
