package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "failed", "skipped"} {
		ProcessingTotal.WithLabelValues(status)
	}

	for _, source := range []string{"vips", "pdfcpu", "structural"} {
		MetadataExtractionsTotal.WithLabelValues(source, "success")
		MetadataExtractionsTotal.WithLabelValues(source, "error")
	}

	for _, format := range []string{"webp", "jpg"} {
		PreviewGenerationsTotal.WithLabelValues(format, "success")
		PreviewGenerationsTotal.WithLabelValues(format, "error")
		PreviewGenerationDuration.WithLabelValues(format)
	}

	for _, trigger := range []string{"ttl", "force", "invalidate"} {
		CapabilityRefreshTotal.WithLabelValues(trigger)
	}

	for _, op := range []string{"initialize_schema", "insert_document", "get_document",
		"delete_document", "list_unprocessed", "count_unprocessed", "save_extraction",
		"save_preview", "mark_processed", "set_error", "clear_preview", "clear_all_previews",
		"get_metadata", "set_metadata"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
