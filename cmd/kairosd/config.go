package main

import (
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/cspr-rad/kairos-sub000/sequencer"
)

// Config holds kairosd's resolved runtime configuration, following
// the teacher's own cmd/eth2030-style Config: a plain struct
// populated by parseFlags, validated once, then handed to the rest of
// the program.
type Config struct {
	DataDir      string
	HTTPAddr     string
	L1RPCURL     string
	DepositPurse string

	MaxBatchSize  int
	BatchTimeout  time.Duration
	MaxQueueDepth int

	Verbosity int
	LogLevel  slog.Level
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:       "./kairos-data",
		HTTPAddr:      ":8080",
		MaxBatchSize:  1000,
		BatchTimeout:  2 * time.Second,
		MaxQueueDepth: 50_000,
		Verbosity:     3,
	}
}

// Validate checks the configuration for consistency before the node
// starts doing any work.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: datadir must not be empty")
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("config: max-batch-size must be positive")
	}
	if c.MaxQueueDepth <= 0 {
		return fmt.Errorf("config: max-queue-depth must be positive")
	}
	return nil
}

// SequencerConfig projects the fields sequencer.Config needs out of
// the full node Config.
func (c *Config) SequencerConfig() sequencer.Config {
	return sequencer.Config{
		MaxBatchSize:  c.MaxBatchSize,
		BatchTimeout:  c.BatchTimeout,
		MaxQueueDepth: c.MaxQueueDepth,
	}
}

// VerbosityToLogLevel maps a 0-5 verbosity flag to a slog.Level,
// named and shaped after the teacher's node package helper of the
// same purpose.
func VerbosityToLogLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError + 4 // effectively silent
	case v == 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// parseFlags parses CLI arguments into a Config. Returns the config,
// whether the caller should exit immediately, and the exit code —
// the same three-value shape the teacher's cmd/eth2030 uses so main
// stays a thin, testable wrapper around run(args []string) int.
func parseFlags(args []string) (Config, bool, int) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("kairosd", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "data directory for the trie node store")
	fs.StringVar(&cfg.HTTPAddr, "http.addr", cfg.HTTPAddr, "HTTP API listen address")
	fs.StringVar(&cfg.L1RPCURL, "l1.rpc", cfg.L1RPCURL, "L1 RPC endpoint")
	fs.StringVar(&cfg.DepositPurse, "l1.deposit-purse", cfg.DepositPurse, "deposit purse contract address on L1")
	fs.IntVar(&cfg.MaxBatchSize, "batch.max-size", cfg.MaxBatchSize, "maximum transactions per batch")
	fs.DurationVar(&cfg.BatchTimeout, "batch.timeout", cfg.BatchTimeout, "maximum time a batch stays open before it is closed")
	fs.IntVar(&cfg.MaxQueueDepth, "queue.max-depth", cfg.MaxQueueDepth, "maximum combined deposit/L2 queue depth")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-5 (0=silent, 5=debug)")

	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, true, 2
	}
	if *showVersion {
		fmt.Println("kairosd dev")
		return cfg, true, 0
	}

	cfg.LogLevel = VerbosityToLogLevel(cfg.Verbosity)
	return cfg, false, 0
}
