// Package metrics defines the Prometheus metrics exported by the PDF preview
// service: HTTP traffic, document processing, preview generation, cache
// state, capability refreshes, database queries, and uploads scanning.
//
// All metrics are registered with the default registry via promauto at
// package load time. Call InitializeMetrics once at startup to pre-populate
// label combinations.
package metrics
