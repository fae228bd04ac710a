package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the wins pool tracker

var (
	// Standings fetch metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winspool_standings_fetches_total",
			Help: "Total number of standings fetches against the MLB API",
		},
		[]string{"status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "winspool_standings_fetch_duration_seconds",
			Help:    "Duration of standings fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// Snapshot cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winspool_snapshot_cache_hits_total",
			Help: "Total number of snapshot cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winspool_snapshot_cache_misses_total",
			Help: "Total number of snapshot cache misses",
		},
	)

	// Ledger metrics
	LedgerUpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winspool_ledger_upserts_total",
			Help: "Total number of ledger insert-if-absent calls",
		},
		[]string{"outcome"},
	)

	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winspool_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "winspool_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// Backfill metrics
	BackfillDaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winspool_backfill_days_total",
			Help: "Total number of days processed by backfill runs",
		},
		[]string{"outcome"},
	)

	BackfillDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "winspool_backfill_duration_seconds",
			Help:    "Duration of backfill runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winspool_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winspool_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulLog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winspool_last_successful_log_timestamp",
			Help: "Timestamp of the last successful daily log",
		},
	)
)

// RecordFetch records a standings fetch
func RecordFetch(status string, duration float64) {
	FetchesTotal.WithLabelValues(status).Inc()
	FetchDuration.WithLabelValues(status).Observe(duration)
}

// RecordCacheHit records a snapshot cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a snapshot cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordLedgerUpsert records an insert-if-absent outcome ("inserted" or "exists")
func RecordLedgerUpsert(outcome string) {
	LedgerUpsertsTotal.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordBackfillDay records one day's outcome within a backfill run
// ("logged", "existing", or "failed")
func RecordBackfillDay(outcome string) {
	BackfillDaysTotal.WithLabelValues(outcome).Inc()
}

// RecordBackfill records a completed backfill run
func RecordBackfill(status string, duration float64) {
	BackfillDuration.WithLabelValues(status).Observe(duration)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordDailyLog marks a successful daily log
func RecordDailyLog() {
	LastSuccessfulLog.SetToCurrentTime()
}
