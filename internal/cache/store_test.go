package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pdf-preview/internal/database"
)

func newTestStore(t *testing.T, retentionDays int) (*Store, *database.Database) {
	t.Helper()
	dir := t.TempDir()
	db, err := database.New(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewStore(db, filepath.Join(dir, "pdf-previews"), "/previews", retentionDays)
	return store, db
}

func insertDoc(t *testing.T, db *database.Database, path string) int64 {
	t.Helper()
	id, err := db.InsertDocument(context.Background(), &database.Document{
		Name: filepath.Base(path), Path: path, MimeType: "application/pdf", Size: 100,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return id
}

func TestEnsureDirectoryWritesSentinels(t *testing.T) {
	store, _ := newTestStore(t, 30)

	if err := store.EnsureDirectory(); err != nil {
		t.Fatalf("EnsureDirectory failed: %v", err)
	}

	htaccess := filepath.Join(store.BaseDir(), ".htaccess")
	data, err := os.ReadFile(htaccess)
	if err != nil {
		t.Fatalf(".htaccess missing: %v", err)
	}
	if len(data) == 0 {
		t.Error(".htaccess is empty")
	}

	if _, err := os.Stat(filepath.Join(store.BaseDir(), "index.html")); err != nil {
		t.Errorf("index.html missing: %v", err)
	}
}

func TestEnsureDirectoryIdempotent(t *testing.T) {
	store, _ := newTestStore(t, 30)

	if err := store.EnsureDirectory(); err != nil {
		t.Fatal(err)
	}

	// A second call must not rewrite existing sentinels.
	custom := []byte("# customized")
	htaccess := filepath.Join(store.BaseDir(), ".htaccess")
	if err := os.WriteFile(htaccess, custom, 0644); err != nil {
		t.Fatal(err)
	}

	if err := store.EnsureDirectory(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(htaccess)
	if string(data) != string(custom) {
		t.Error("EnsureDirectory overwrote an existing sentinel")
	}
}

func TestWritePreview(t *testing.T) {
	store, _ := newTestStore(t, 30)

	relPath, err := store.WritePreview(7, "webp", []byte("webp-bytes"))
	if err != nil {
		t.Fatalf("WritePreview failed: %v", err)
	}
	if relPath != "7-p1.webp" {
		t.Errorf("relPath = %q, want 7-p1.webp", relPath)
	}

	data, err := os.ReadFile(filepath.Join(store.BaseDir(), relPath))
	if err != nil {
		t.Fatalf("preview not on disk: %v", err)
	}
	if string(data) != "webp-bytes" {
		t.Error("preview content mismatch")
	}

	// No temp file may survive.
	entries, _ := os.ReadDir(store.BaseDir())
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWritePreviewRejectsEmpty(t *testing.T) {
	store, _ := newTestStore(t, 30)

	if _, err := store.WritePreview(7, "webp", nil); err == nil {
		t.Error("expected error for empty preview data")
	}
}

func TestPreviewURLRequiresFileOnDisk(t *testing.T) {
	store, db := newTestStore(t, 30)
	ctx := context.Background()

	id := insertDoc(t, db, "/uploads/a.pdf")
	relPath, err := store.WritePreview(id, "webp", []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SavePreviewResult(ctx, id, relPath, database.MethodVips, time.Now()); err != nil {
		t.Fatal(err)
	}

	doc, _ := db.GetDocument(ctx, id)
	if url := store.PreviewURL(doc); url != "/previews/"+relPath {
		t.Errorf("PreviewURL = %q, want /previews/%s", url, relPath)
	}

	// Delete the file behind the record: URL and path must vanish.
	if err := os.Remove(filepath.Join(store.BaseDir(), relPath)); err != nil {
		t.Fatal(err)
	}
	if url := store.PreviewURL(doc); url != "" {
		t.Errorf("PreviewURL = %q for missing file, want empty", url)
	}
	if path := store.PreviewPath(doc); path != "" {
		t.Errorf("PreviewPath = %q for missing file, want empty", path)
	}
}

func TestPreviewPathRejectsEmptyFile(t *testing.T) {
	store, db := newTestStore(t, 30)
	ctx := context.Background()

	id := insertDoc(t, db, "/uploads/a.pdf")
	relPath, _ := store.WritePreview(id, "webp", []byte("data"))
	if err := db.SavePreviewResult(ctx, id, relPath, database.MethodVips, time.Now()); err != nil {
		t.Fatal(err)
	}

	// Truncate the file to zero bytes.
	if err := os.WriteFile(filepath.Join(store.BaseDir(), relPath), nil, 0644); err != nil {
		t.Fatal(err)
	}

	doc, _ := db.GetDocument(ctx, id)
	if path := store.PreviewPath(doc); path != "" {
		t.Errorf("PreviewPath = %q for zero-byte file, want empty", path)
	}
}

func TestDeletePreviewResetsEverything(t *testing.T) {
	store, db := newTestStore(t, 30)
	ctx := context.Background()

	id := insertDoc(t, db, "/uploads/a.pdf")
	relPath, _ := store.WritePreview(id, "webp", []byte("data"))
	if err := db.SavePreviewResult(ctx, id, relPath, database.MethodVips, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkProcessed(ctx, id, ""); err != nil {
		t.Fatal(err)
	}

	doc, _ := db.GetDocument(ctx, id)
	if err := store.DeletePreview(ctx, doc); err != nil {
		t.Fatalf("DeletePreview failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(store.BaseDir(), relPath)); !os.IsNotExist(err) {
		t.Error("preview file still on disk")
	}

	doc, _ = db.GetDocument(ctx, id)
	if doc.PreviewPath != "" || doc.PreviewGeneratedAt != nil ||
		doc.ExtractionMethod != database.MethodNone ||
		doc.ExtractionError != "" || doc.Processed {
		t.Errorf("preview fields not fully reset: %+v", doc)
	}
}

func TestDeletePreviewMissingFile(t *testing.T) {
	store, db := newTestStore(t, 30)
	ctx := context.Background()

	id := insertDoc(t, db, "/uploads/a.pdf")
	if err := db.SavePreviewResult(ctx, id, "42-p1.webp", database.MethodVips, time.Now()); err != nil {
		t.Fatal(err)
	}

	doc, _ := db.GetDocument(ctx, id)
	if err := store.DeletePreview(ctx, doc); err != nil {
		t.Fatalf("DeletePreview should tolerate a missing file: %v", err)
	}

	doc, _ = db.GetDocument(ctx, id)
	if doc.ExtractionMethod != database.MethodNone {
		t.Error("database reset must happen even when the file is gone")
	}
}

func TestClearAll(t *testing.T) {
	store, db := newTestStore(t, 30)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := insertDoc(t, db, filepath.Join("/uploads", string(rune('a'+i))+".pdf"))
		relPath, err := store.WritePreview(id, "webp", []byte("data"))
		if err != nil {
			t.Fatal(err)
		}
		if err := db.SavePreviewResult(ctx, id, relPath, database.MethodVips, time.Now()); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := store.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	// Sentinels survive a clear.
	if _, err := os.Stat(filepath.Join(store.BaseDir(), ".htaccess")); err != nil {
		t.Error("ClearAll removed the .htaccess sentinel")
	}

	docs, _ := db.ListDocuments(ctx, 10, 0)
	for _, doc := range docs {
		if doc.HasPreview() {
			t.Errorf("document %d still reports a preview after ClearAll", doc.ID)
		}
	}
}

func TestGetStats(t *testing.T) {
	store, db := newTestStore(t, 30)
	ctx := context.Background()

	// Empty cache, even before the directory exists.
	stats, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.FileCount != 0 || stats.TotalSizeBytes != 0 {
		t.Errorf("empty cache stats = %+v", stats)
	}

	id := insertDoc(t, db, "/uploads/a.pdf")
	if _, err := store.WritePreview(id, "webp", []byte("12345")); err != nil {
		t.Fatal(err)
	}

	stats, err = store.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1 (sentinels must not count)", stats.FileCount)
	}
	if stats.TotalSizeBytes != 5 {
		t.Errorf("TotalSizeBytes = %d, want 5", stats.TotalSizeBytes)
	}
	if stats.OldestFile == nil {
		t.Error("OldestFile not set")
	}
}
