// Command kairosd runs the Kairos L2 sequencer node: it accepts
// client transfers and withdrawals over HTTP and assembles and
// witnesses batches on a timer. It starts no deposit follower and no
// settlement submitter, so it queues no L1 deposits and never
// finalizes or rolls back a closed batch.
//
// Usage:
//
//	kairosd [flags]
//
// Flags:
//
//	--datadir            data directory for the trie node store (default: ./kairos-data)
//	--http.addr           HTTP API listen address (default: :8080)
//	--l1.rpc              L1 RPC endpoint
//	--l1.deposit-purse    deposit purse contract address on L1
//	--batch.max-size      maximum transactions per batch (default: 1000)
//	--batch.timeout       maximum time a batch stays open before close (default: 2s)
//	--queue.max-depth     maximum combined queue depth (default: 50000)
//	--verbosity           log level 0-5 (default: 3)
//	--version             print version and exit
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cspr-rad/kairos-sub000/kairoslog"
	"github.com/cspr-rad/kairos-sub000/sequencer"
	"github.com/cspr-rad/kairos-sub000/trie"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. It accepts
// CLI arguments without the program name so it can be exercised in
// isolation by tests.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	log := kairoslog.New(cfg.LogLevel)
	kairoslog.SetDefault(log)

	log.Info("kairosd starting", "version", version, "commit", commit)
	log.Info("resolved configuration",
		"datadir", cfg.DataDir,
		"http.addr", cfg.HTTPAddr,
		"batch.max-size", cfg.MaxBatchSize,
		"batch.timeout", cfg.BatchTimeout,
		"queue.max-depth", cfg.MaxQueueDepth,
		"verbosity", cfg.Verbosity,
	)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		return 1
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Error("failed to create data directory", "err", err)
		return 1
	}

	store, err := trie.OpenPebbleNodeStore(cfg.DataDir)
	if err != nil {
		log.Error("failed to open node store", "err", err)
		return 1
	}
	defer store.Close()

	var full *trie.FullStore
	if root, ok, err := store.LoadRoot(); err != nil {
		log.Error("failed to load persisted root", "err", err)
		return 1
	} else if ok {
		full = trie.OpenAt(store, root)
		log.Info("resumed trie from persisted root", "root", fmt.Sprintf("%x", root))
	} else {
		full = trie.NewFullStore(store)
		log.Info("starting with a fresh, empty trie")
	}
	seq := sequencer.New(full, cfg.SequencerConfig())

	metrics := NewMetrics()
	srv := newServer(seq, metrics, "kairos-devnet", cfg.DepositPurse)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.mux(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP API listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batchTicker := time.NewTicker(cfg.BatchTimeout)
	defer batchTicker.Stop()

	go runBatchLoop(ctx, seq, metrics, log, batchTicker)

	select {
	case err := <-errCh:
		log.Error("HTTP server failed", "err", err)
		return 1
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error during HTTP shutdown", "err", err)
		return 1
	}

	log.Info("shutdown complete")
	return 0
}

// runBatchLoop closes a batch every tick that the queue is non-empty.
// Settlement (submitting the closed batch to L1 and finalizing or
// rolling it back) belongs to a settlement.Submitter, which kairosd
// does not construct: once a batch is closed it stays in flight, and
// each later tick with a non-empty queue logs CloseBatch's
// ErrBatchInFlight. This loop only owns batch assembly, matching the
// sequencer's own separation between CloseBatch and Finalize/Rollback
// (§4.5, §4.7).
func runBatchLoop(ctx context.Context, seq *sequencer.State, metrics *Metrics, log *kairoslog.Logger, ticker *time.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if seq.QueueDepth() == 0 {
				continue
			}
			batch, err := seq.CloseBatch()
			if err != nil {
				log.Warn("close batch failed", "err", err)
				continue
			}
			if batch == nil {
				continue
			}
			metrics.BatchesClosed.Inc()
			metrics.BatchSize.Observe(float64(len(batch.Inputs.Transactions)))
			metrics.BatchesRejected.Add(float64(len(batch.Rejected)))
			metrics.QueueDepth.Set(float64(seq.QueueDepth()))
			log.Info("batch closed, awaiting settlement",
				"transactions", len(batch.Inputs.Transactions),
				"rejected", len(batch.Rejected),
				"newRoot", fmt.Sprintf("%x", batch.NewRoot),
			)
		}
	}
}
