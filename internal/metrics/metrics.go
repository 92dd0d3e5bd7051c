package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_preview_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdf_preview_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pdf_preview_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Processing metrics
var (
	ProcessingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_preview_processing_total",
			Help: "Total number of document processing attempts",
		},
		[]string{"status"},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pdf_preview_processing_duration_seconds",
			Help:    "Document processing duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	MetadataExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_preview_metadata_extractions_total",
			Help: "Total number of metadata extractions by source",
		},
		[]string{"source", "status"},
	)
)

// Preview generation metrics
var (
	PreviewGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_preview_generations_total",
			Help: "Total number of preview generations",
		},
		[]string{"format", "status"},
	)

	PreviewGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdf_preview_generation_duration_seconds",
			Help:    "Preview generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"format"},
	)
)

// Cache metrics
var (
	CacheFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pdf_preview_cache_files",
			Help: "Number of preview files currently cached",
		},
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pdf_preview_cache_size_bytes",
			Help: "Total size of the preview cache in bytes",
		},
	)

	CleanupRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pdf_preview_cleanup_runs_total",
			Help: "Total number of cache cleanup sweeps",
		},
	)

	CleanupDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pdf_preview_cleanup_deleted_total",
			Help: "Total number of files deleted by cleanup sweeps",
		},
	)

	CleanupLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pdf_preview_cleanup_last_run_timestamp",
			Help: "Unix timestamp of the last cache cleanup sweep",
		},
	)
)

// Capability metrics
var (
	CapabilityRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_preview_capability_refreshes_total",
			Help: "Total number of capability snapshot recomputations",
		},
		[]string{"trigger"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_preview_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdf_preview_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pdf_preview_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Scanner metrics
var (
	ScannerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pdf_preview_scanner_runs_total",
			Help: "Total number of uploads directory scans",
		},
	)

	ScannerRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pdf_preview_scanner_registered_total",
			Help: "Total number of documents registered by the scanner",
		},
	)

	ScannerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pdf_preview_scanner_errors_total",
			Help: "Total number of scanner errors",
		},
	)
)
