// Package cache manages the on-disk preview cache.
//
// Previews live in a fixed subdirectory of the uploads tree, named by
// document ID. The package enforces two rules the rest of the system
// relies on: the filesystem is the authority (a database row pointing at
// a missing file yields no path or URL), and deleting a preview always
// resets every preview-related database field so nothing stale survives.
// Age-based cleanup records its last-run timestamp on every sweep.
package cache
