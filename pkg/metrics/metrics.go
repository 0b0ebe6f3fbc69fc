// Package metrics exposes Prometheus instruments for the import pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finance"

var (
	// ImportRows counts rows by outcome: valid, invalid, duplicate.
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_rows_total",
		Help:      "Statement rows processed by outcome.",
	}, []string{"outcome"})

	// ImportRuns counts finished runs by terminal state.
	ImportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_runs_total",
		Help:      "Import runs by terminal state.",
	}, []string{"state"})

	// ClassifierBatches counts fallback batches by status: ok, failed, skipped.
	ClassifierBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classifier_batches_total",
		Help:      "Fallback classifier batches by status.",
	}, []string{"status"})

	// ClassifierTransactions counts final classifications by tier: rule, fallback.
	ClassifierTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classifier_transactions_total",
		Help:      "Transactions classified by tier.",
	}, []string{"tier"})

	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "import_duration_seconds",
		Help:      "Wall time of one import run.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
