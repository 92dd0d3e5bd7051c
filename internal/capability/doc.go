// Package capability detects what the runtime environment can do and
// caches the answer.
//
// A Snapshot records whether libvips is linked, whether its build can
// rasterize PDFs and encode WebP, and which rendering method the rest of
// the pipeline should use. Snapshots are cached for an hour because the
// answers only change when the process is rebuilt against a different
// libvips; the cache supports forced refresh for operators who swap the
// library under a running container.
package capability
