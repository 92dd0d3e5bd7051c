// Package scanner discovers PDFs dropped into the uploads directory
// outside the upload API and registers them for processing. It walks on
// a fixed interval, skips the preview cache subdirectory, and registers
// new files through a small worker pool.
package scanner
