package observability

import "github.com/prometheus/client_golang/prometheus"

// RunMetrics counts ingestion-run outcomes: runs per source, matches per
// join strategy, and rows written per result. All methods are nil-safe so
// callers can run without a collector in tests.
type RunMetrics struct {
	runsTotal      *prometheus.CounterVec
	matchesTotal   *prometheus.CounterVec
	unmatchedTotal *prometheus.CounterVec
	rowsTotal      *prometheus.CounterVec
}

// NewRunMetrics registers the run counters on the given registerer.
func NewRunMetrics(reg prometheus.Registerer) *RunMetrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gss_ingest_runs_total",
		Help: "Ingestion runs by source and final status.",
	}, []string{"source", "status"})
	matches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gss_ingest_matches_total",
		Help: "External rows joined onto base records, by source and strategy.",
	}, []string{"source", "strategy"})
	unmatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gss_ingest_unmatched_total",
		Help: "Base records no strategy could match, by source.",
	}, []string{"source"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gss_ingest_rows_total",
		Help: "Rows written to storage by result (inserted, updated, failed).",
	}, []string{"result"})
	reg.MustRegister(runs, matches, unmatched, rows)
	return &RunMetrics{
		runsTotal:      runs,
		matchesTotal:   matches,
		unmatchedTotal: unmatched,
		rowsTotal:      rows,
	}
}

// RunCompleted increments the run counter for a source.
func (m *RunMetrics) RunCompleted(source, status string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(source, status).Inc()
}

// MatchRecorded adds n joins for one (source, strategy) pair.
func (m *RunMetrics) MatchRecorded(source, strategy string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.matchesTotal.WithLabelValues(source, strategy).Add(float64(n))
}

// UnmatchedRecorded adds n unmatched base records for a source.
func (m *RunMetrics) UnmatchedRecorded(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.unmatchedTotal.WithLabelValues(source).Add(float64(n))
}

// RowsWritten adds n rows for one write result.
func (m *RunMetrics) RowsWritten(result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rowsTotal.WithLabelValues(result).Add(float64(n))
}
