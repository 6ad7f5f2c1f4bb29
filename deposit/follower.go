// Package deposit implements the deposit follower of spec.md §4.6: a
// strictly-ordered reader of L1 deposit events that feeds them into
// the sequencer's deposit queue, resuming after a crash from the
// on-chain high-water mark and refusing to skip a gap.
//
// The bookkeeping mirrors the original implementation's
// deposit_manager (an AtomicU32 "next expected index" plus a
// monotonic on-chain counter read on startup); the retry shape
// mirrors its use of exponential backoff around every L1 RPC call.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cspr-rad/kairos-sub000/kairoslog"
	"github.com/cspr-rad/kairos-sub000/tx"
)

// ErrGap is returned (and treated as fatal, per §7's Fatal category —
// an operator must intervene) when the follower would have to skip an
// index to keep going, meaning its view of L1 has fallen out of sync
// with reality in a way retries cannot fix.
var ErrGap = errors.New("deposit: detected a gap in the L1 deposit index")

// Adapter is the L1 access the follower needs, injected so tests can
// fake an L1 deposit contract without a real RPC endpoint.
type Adapter interface {
	// LastProcessedIndex returns the index of the last deposit this
	// rollup has already settled on L1, used to resume after a
	// restart (§4.6 crash recovery). Returns 0 with ok=false if no
	// deposit has ever been processed.
	LastProcessedIndex(ctx context.Context) (index uint64, ok bool, err error)
	// EventCount returns the total number of deposit events the L1
	// contract has recorded so far.
	EventCount(ctx context.Context) (uint64, error)
	// Event fetches the deposit recorded at index.
	Event(ctx context.Context, index uint64) (tx.L1Deposit, error)
}

// Sink accepts a deposit pulled off L1. sequencer.State implements
// this via EnqueueDeposit.
type Sink interface {
	EnqueueDeposit(d tx.L1Deposit) error
}

// Follower pulls deposits off L1 strictly in index order.
type Follower struct {
	adapter Adapter
	sink    Sink
	next    atomic.Uint64
	log     *kairoslog.Logger

	pollInterval time.Duration
	newBackOff   func() backoff.BackOff
}

// New creates a Follower, resuming from the adapter's on-chain
// high-water mark. If the chain reports no deposit has ever been
// processed, the follower starts at index 0.
func New(ctx context.Context, adapter Adapter, sink Sink) (*Follower, error) {
	f := &Follower{
		adapter:      adapter,
		sink:         sink,
		log:          kairoslog.Default().Module("deposit"),
		pollInterval: 2 * time.Second,
		newBackOff:   defaultBackOff,
	}
	last, ok, err := adapter.LastProcessedIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("deposit: read last processed index: %w", err)
	}
	if ok {
		f.next.Store(last + 1)
	}
	return f, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// Run polls L1 until ctx is canceled, feeding every deposit it finds
// into the sink in strict index order. It returns ErrGap (wrapped) if
// it ever finds next skipped by L1's own count, and any other error
// once its retry budget is exhausted on a single event fetch.
func (f *Follower) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		count, err := f.eventCountWithRetry(ctx)
		if err != nil {
			return fmt.Errorf("deposit: fetch event count: %w", err)
		}

		next := f.next.Load()
		if next > count {
			return fmt.Errorf("%w: next=%d but L1 only has %d events", ErrGap, next, count)
		}
		if next == count {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.pollInterval):
			}
			continue
		}

		event, err := f.eventWithRetry(ctx, next)
		if err != nil {
			return fmt.Errorf("deposit: fetch event %d: %w", next, err)
		}

		if err := f.enqueueWithRetry(ctx, event); err != nil {
			return fmt.Errorf("deposit: enqueue event %d: %w", next, err)
		}

		if !f.next.CompareAndSwap(next, next+1) {
			return fmt.Errorf("%w: concurrent advance past index %d", ErrGap, next)
		}
		f.log.Debug("processed deposit", "index", next, "recipient_len", len(event.Recipient), "amount", event.Amount)
	}
}

// NextIndex reports the next L1 index the follower expects to
// process.
func (f *Follower) NextIndex() uint64 {
	return f.next.Load()
}

func (f *Follower) eventCountWithRetry(ctx context.Context) (uint64, error) {
	var count uint64
	op := func() error {
		c, err := f.adapter.EventCount(ctx)
		if err != nil {
			return err
		}
		count = c
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(f.newBackOff(), ctx))
	return count, err
}

func (f *Follower) eventWithRetry(ctx context.Context, index uint64) (tx.L1Deposit, error) {
	var event tx.L1Deposit
	op := func() error {
		e, err := f.adapter.Event(ctx, index)
		if err != nil {
			return err
		}
		event = e
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(f.newBackOff(), ctx))
	return event, err
}

func (f *Follower) enqueueWithRetry(ctx context.Context, d tx.L1Deposit) error {
	op := func() error {
		return f.sink.EnqueueDeposit(d)
	}
	return backoff.Retry(op, backoff.WithContext(f.newBackOff(), ctx))
}
