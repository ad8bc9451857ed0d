// Package metrics records import and detection counters on a private
// Prometheus registry and writes them out in textfile-collector format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cleared-dev/txray/internal/model"
)

// File import outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Recorder holds the txray collectors. All methods are safe on a nil
// receiver so callers can run without metrics.
type Recorder struct {
	registry *prometheus.Registry

	filesImported     *prometheus.CounterVec
	txnsImported      *prometheus.CounterVec
	rowsSkipped       *prometheus.CounterVec
	duplicates        prometheus.Counter
	recurringDetected *prometheus.CounterVec
	detectionDuration prometheus.Histogram
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		filesImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txray_files_imported_total",
				Help: "Total number of source files processed",
			},
			[]string{"format", "status"},
		),
		txnsImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txray_transactions_imported_total",
				Help: "Total number of transactions written to the store",
			},
			[]string{"account_type"},
		),
		rowsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txray_rows_skipped_total",
				Help: "Total number of source rows that carried no transaction",
			},
			[]string{"format"},
		),
		duplicates: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "txray_duplicates_total",
				Help: "Total number of transactions skipped as already imported",
			},
		),
		recurringDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txray_recurring_detected_total",
				Help: "Total number of recurring payments written by detection",
			},
			[]string{"frequency"},
		),
		detectionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "txray_recurrence_detection_seconds",
				Help:    "Recurrence detection duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// FileImported counts one processed file.
func (r *Recorder) FileImported(format model.Format, status string) {
	if r == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	r.filesImported.WithLabelValues(string(format), status).Inc()
}

// TransactionsImported adds n stored transactions for an account type.
func (r *Recorder) TransactionsImported(account model.AccountType, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.txnsImported.WithLabelValues(string(account)).Add(float64(n))
}

// RowsSkipped adds n dropped rows for a format.
func (r *Recorder) RowsSkipped(format model.Format, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rowsSkipped.WithLabelValues(string(format)).Add(float64(n))
}

// Duplicates adds n transactions rejected by dedupe.
func (r *Recorder) Duplicates(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.duplicates.Add(float64(n))
}

// RecurringDetected counts one upserted recurring record.
func (r *Recorder) RecurringDetected(freq model.Frequency) {
	if r == nil {
		return
	}
	r.recurringDetected.WithLabelValues(string(freq)).Inc()
}

// ObserveDetection records how long a detection run took.
func (r *Recorder) ObserveDetection(d time.Duration) {
	if r == nil {
		return
	}
	r.detectionDuration.Observe(d.Seconds())
}

// WriteTextfile writes every collected metric to path for the node
// exporter textfile collector. The write is atomic.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
