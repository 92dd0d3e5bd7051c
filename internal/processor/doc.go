// Package processor orchestrates the document pipeline: metadata
// extraction, preview generation, and the bookkeeping that ties them to
// processing records.
//
// The load-bearing rule lives here: metadata failure fails a processing
// attempt, preview failure does not. A processed document with metadata
// and no preview is a valid terminal state.
package processor
