package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments kairosd exposes, grounded
// on the domain-stack wiring called for in SPEC_FULL.md: batch size,
// queue depth, and backoff/retry activity across the deposit follower
// and settlement submitter.
type Metrics struct {
	registry *prometheus.Registry

	QueueDepth      prometheus.Gauge
	BatchSize       prometheus.Histogram
	BatchesClosed   prometheus.Counter
	BatchesRejected prometheus.Counter
	DepositIndex    prometheus.Gauge
	SettlementRetry prometheus.Counter
}

// NewMetrics creates and registers all of kairosd's instruments
// against a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kairos",
			Subsystem: "sequencer",
			Name:      "queue_depth",
			Help:      "Combined depth of the deposit and L2 transaction queues.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kairos",
			Subsystem: "sequencer",
			Name:      "batch_size",
			Help:      "Number of transactions drawn into a closed batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		BatchesClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kairos",
			Subsystem: "sequencer",
			Name:      "batches_closed_total",
			Help:      "Total number of batches closed for settlement.",
		}),
		BatchesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kairos",
			Subsystem: "sequencer",
			Name:      "transactions_rejected_total",
			Help:      "Total number of transactions rejected during batch assembly.",
		}),
		DepositIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kairos",
			Subsystem: "deposit",
			Name:      "next_index",
			Help:      "Next L1 deposit index the follower expects to process.",
		}),
		SettlementRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kairos",
			Subsystem: "settlement",
			Name:      "retries_total",
			Help:      "Total number of backoff retries performed while submitting or polling a settlement transaction.",
		}),
	}

	reg.MustRegister(
		m.QueueDepth,
		m.BatchSize,
		m.BatchesClosed,
		m.BatchesRejected,
		m.DepositIndex,
		m.SettlementRetry,
	)
	return m
}
