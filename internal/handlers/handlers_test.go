package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"pdf-preview/internal/cache"
	"pdf-preview/internal/capability"
	"pdf-preview/internal/database"
	"pdf-preview/internal/events"
	"pdf-preview/internal/pdfmeta"
	"pdf-preview/internal/preview"
	"pdf-preview/internal/processor"
	"pdf-preview/internal/scanner"
	"pdf-preview/internal/startup"
)

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, path string) (*pdfmeta.Metadata, error) {
	if strings.Contains(path, "bad") {
		return nil, errors.New("unreadable file")
	}
	return &pdfmeta.Metadata{
		PageCount: 2, Width: 612, Height: 792, Source: pdfmeta.SourceStructural,
	}, nil
}

type stubGenerator struct {
	store *cache.Store
}

func (g stubGenerator) Generate(_ context.Context, doc *database.Document) preview.Result {
	relPath, err := g.store.WritePreview(doc.ID, "webp", []byte("img"))
	if err != nil {
		return preview.Result{Success: false, Method: database.MethodNone, Err: err}
	}
	return preview.Result{Success: true, RelativePath: relPath, Method: database.MethodVips}
}

func (g stubGenerator) GenerateJPEG(ctx context.Context, doc *database.Document) preview.Result {
	return g.Generate(ctx, doc)
}

type testServer struct {
	h      *Handlers
	db     *database.Database
	store  *cache.Store
	router *mux.Router
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	uploadsDir := filepath.Join(dir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		t.Fatal(err)
	}

	db, err := database.New(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := cache.NewStore(db, filepath.Join(uploadsDir, startup.PreviewSubdir), "/previews", 30)
	caps := capability.NewCacheWithProbe(func() capability.Snapshot {
		return capability.Snapshot{
			VipsAvailable: true, PDFSupported: true, WebPSupported: true,
			ExtractionAvailable: true, RecommendedMethod: "vips", CheckedAt: time.Now(),
		}
	}, time.Hour, nil)

	bus := events.NewBus()
	proc := processor.New(db, stubExtractor{}, stubGenerator{store: store}, caps, store, bus, true)
	scan := scanner.New(db, uploadsDir, time.Hour)

	config := &startup.Config{UploadsDir: uploadsDir}
	h := New(db, proc, store, caps, scan, config)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/previews/{name}", h.ServePreview).Methods("GET")
	r.HandleFunc("/api/documents", h.ListDocuments).Methods("GET")
	r.HandleFunc("/api/documents", h.UploadDocument).Methods("POST")
	r.HandleFunc("/api/documents/{id}", h.GetDocument).Methods("GET")
	r.HandleFunc("/api/documents/{id}", h.DeleteDocument).Methods("DELETE")
	r.HandleFunc("/api/documents/{id}/preview", h.DeletePreview).Methods("DELETE")
	r.HandleFunc("/api/documents/{id}/process", h.ProcessDocument).Methods("POST")
	r.HandleFunc("/api/process/bulk", h.BulkProcess).Methods("POST")
	r.HandleFunc("/api/capabilities", h.GetCapabilities).Methods("GET")
	r.HandleFunc("/api/cache/stats", h.CacheStats).Methods("GET")
	r.HandleFunc("/api/cache/clear", h.ClearCache).Methods("POST")

	return &testServer{h: h, db: db, store: store, router: r, dir: dir}
}

func (s *testServer) insert(t *testing.T, name string) int64 {
	t.Helper()
	path := filepath.Join(s.dir, "uploads", name)
	if err := os.WriteFile(path, []byte("%PDF-1.4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	id, err := s.db.InsertDocument(context.Background(), &database.Document{
		Name: name, Path: path, MimeType: "application/pdf", Size: 9,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (s *testServer) request(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, "GET", "/api/documents/999")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetDocumentInvalidID(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, "GET", "/api/documents/abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListDocuments(t *testing.T) {
	s := newTestServer(t)
	s.insert(t, "a.pdf")
	s.insert(t, "b.pdf")

	rec := s.request(t, "GET", "/api/documents")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
}

func TestProcessEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := s.insert(t, "report.pdf")

	rec := s.request(t, "POST", "/api/documents/"+itoa(id)+"/process")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Processed  bool   `json:"processed"`
		PageCount  int    `json:"pageCount"`
		PreviewURL string `json:"previewUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Processed || body.PageCount != 2 {
		t.Errorf("response = %+v", body)
	}
	if !strings.HasPrefix(body.PreviewURL, "/previews/") {
		t.Errorf("previewUrl = %q, want /previews/ prefix", body.PreviewURL)
	}
}

func TestProcessEndpointExtractionFailure(t *testing.T) {
	s := newTestServer(t)
	id := s.insert(t, "bad.pdf")

	rec := s.request(t, "POST", "/api/documents/"+itoa(id)+"/process")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestBulkEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.insert(t, "a.pdf")
	s.insert(t, "b.pdf")

	rec := s.request(t, "POST", "/api/process/bulk?limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result processor.BulkResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Processed != 2 || result.Failed != 0 || result.Remaining != 0 {
		t.Errorf("result = %+v, want 2/0/0", result)
	}
}

func TestCapabilitiesEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, "GET", "/api/capabilities")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var snapshot capability.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatal(err)
	}
	if snapshot.RecommendedMethod != "vips" {
		t.Errorf("recommendedMethod = %q, want vips", snapshot.RecommendedMethod)
	}
}

func TestServePreviewValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		wantStatus int
	}{
		{"passwd", http.StatusBadRequest},
		{"1-p1.exe", http.StatusBadRequest},
		{"15-p2.webp", http.StatusBadRequest},
		{"99-p1.webp", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := s.request(t, "GET", "/previews/"+tt.name)
		if rec.Code != tt.wantStatus {
			t.Errorf("GET /previews/%s status = %d, want %d", tt.name, rec.Code, tt.wantStatus)
		}
	}
}

func TestServePreviewHappyPath(t *testing.T) {
	s := newTestServer(t)
	id := s.insert(t, "a.pdf")
	if _, err := s.store.WritePreview(id, "webp", []byte("webp-data")); err != nil {
		t.Fatal(err)
	}

	rec := s.request(t, "GET", "/previews/"+itoa(id)+"-p1.webp")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "webp-data" {
		t.Error("preview body mismatch")
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age") {
		t.Errorf("Cache-Control = %q, want max-age directive", cc)
	}
}

func TestDeletePreviewEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := s.insert(t, "a.pdf")

	if rec := s.request(t, "POST", "/api/documents/"+itoa(id)+"/process"); rec.Code != http.StatusOK {
		t.Fatalf("process failed: %d", rec.Code)
	}

	rec := s.request(t, "DELETE", "/api/documents/"+itoa(id)+"/preview")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	doc, err := s.db.GetDocument(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.HasPreview() || doc.Processed {
		t.Errorf("preview fields not reset: %+v", doc)
	}
}

func TestDeleteDocumentEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := s.insert(t, "a.pdf")

	rec := s.request(t, "DELETE", "/api/documents/"+itoa(id))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if _, err := s.db.GetDocument(context.Background(), id); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}

	// Source file is removed along with the record.
	if _, err := os.Stat(filepath.Join(s.dir, "uploads", "a.pdf")); !os.IsNotExist(err) {
		t.Error("source file still on disk")
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, "GET", "/api/cache/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats cache.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.FileCount != 0 {
		t.Errorf("FileCount = %d on empty cache, want 0", stats.FileCount)
	}
}

func TestClearCacheEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := s.insert(t, "a.pdf")
	if rec := s.request(t, "POST", "/api/documents/"+itoa(id)+"/process"); rec.Code != http.StatusOK {
		t.Fatal("process failed")
	}

	rec := s.request(t, "POST", "/api/cache/clear")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		FilesDeleted int `json:"filesDeleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.FilesDeleted != 1 {
		t.Errorf("filesDeleted = %d, want 1", body.FilesDeleted)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, "GET", "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != statusHealthy {
		t.Errorf("status = %q, want %q", body.Status, statusHealthy)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`..\..\win\path.pdf`, "path.pdf"},
		{"..", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func uploadBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func postUpload(t *testing.T, s *testServer, filename, contentType string, data []byte) (*httptest.ResponseRecorder, database.Document) {
	t.Helper()
	body, ct := uploadBody(t, filename, contentType, data)
	req := httptest.NewRequest("POST", "/api/documents", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var doc database.Document
	if rec.Code == http.StatusCreated {
		if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
			t.Fatalf("failed to decode upload response: %v", err)
		}
	}
	return rec, doc
}

func TestUploadPDFDefaultsMimeType(t *testing.T) {
	s := newTestServer(t)

	rec, doc := postUpload(t, s, "report.pdf", "", []byte("%PDF-1.4\n"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if doc.MimeType != "application/pdf" {
		t.Errorf("MimeType = %q, want application/pdf for a .pdf upload", doc.MimeType)
	}
	if !doc.Processed {
		t.Error("pdf upload not processed")
	}
}

func TestUploadWithoutContentTypeIsNotAssumedPDF(t *testing.T) {
	s := newTestServer(t)

	// A missing Content-Type on a non-pdf part must not push the file into
	// the rendering pipeline.
	rec, doc := postUpload(t, s, "notes.txt", "", []byte("plain text"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if doc.MimeType == "application/pdf" {
		t.Errorf("MimeType = %q for notes.txt", doc.MimeType)
	}
	if doc.Processed || doc.HasPreview() {
		t.Errorf("non-pdf upload entered processing: %+v", doc)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
