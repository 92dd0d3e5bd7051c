package pdfmeta

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempPDF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pdf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestScanStructurePageCount(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected int
	}{
		{
			name: "three pages",
			content: `%PDF-1.4
<< /Type /Page /Parent 2 0 R >>
<< /Type /Page /Parent 2 0 R >>
<< /Type /Page /Parent 2 0 R >>
`,
			expected: 3,
		},
		{
			name: "pages node not counted",
			content: `%PDF-1.4
<< /Type /Pages /Kids [3 0 R] /Count 1 >>
<< /Type /Page /Parent 2 0 R >>
`,
			expected: 1,
		},
		{
			name:     "no page objects clamps to one",
			content:  "%PDF-1.4\nnothing useful here\n",
			expected: 1,
		},
		{
			name:     "empty file clamps to one",
			content:  "",
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempPDF(t, tt.content)
			meta, err := scanStructure(path)
			if err != nil {
				t.Fatalf("scanStructure failed: %v", err)
			}
			if meta.PageCount != tt.expected {
				t.Errorf("PageCount = %d, want %d", meta.PageCount, tt.expected)
			}
			if meta.Source != SourceStructural {
				t.Errorf("Source = %q, want %q", meta.Source, SourceStructural)
			}
		})
	}
}

func TestScanStructureMediaBox(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantWidth  int
		wantHeight int
	}{
		{
			name:       "letter",
			content:    "<< /Type /Page /MediaBox [0 0 612 792] >>",
			wantWidth:  612,
			wantHeight: 792,
		},
		{
			name:       "a4 fractional rounds",
			content:    "<< /Type /Page /MediaBox [0 0 595.276 841.89] >>",
			wantWidth:  595,
			wantHeight: 842,
		},
		{
			name:       "missing defaults to letter",
			content:    "<< /Type /Page >>",
			wantWidth:  612,
			wantHeight: 792,
		},
		{
			name:       "malformed defaults to letter",
			content:    "<< /Type /Page /MediaBox [0 0 bogus 792] >>",
			wantWidth:  612,
			wantHeight: 792,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempPDF(t, tt.content)
			meta, err := scanStructure(path)
			if err != nil {
				t.Fatalf("scanStructure failed: %v", err)
			}
			if meta.Width != tt.wantWidth || meta.Height != tt.wantHeight {
				t.Errorf("dimensions = %dx%d, want %dx%d",
					meta.Width, meta.Height, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestScanStructureTitleAndAuthor(t *testing.T) {
	content := `%PDF-1.4
<< /Title (Annual Report \(2025\)) /Author (Smith\\Jones) >>
<< /Type /Page >>
`
	path := writeTempPDF(t, content)
	meta, err := scanStructure(path)
	if err != nil {
		t.Fatalf("scanStructure failed: %v", err)
	}

	if meta.Title != "Annual Report (2025)" {
		t.Errorf("Title = %q, want %q", meta.Title, "Annual Report (2025)")
	}
	if meta.Author != `Smith\Jones` {
		t.Errorf("Author = %q, want %q", meta.Author, `Smith\Jones`)
	}
}

func TestScanStructureMissingFile(t *testing.T) {
	_, err := scanStructure(filepath.Join(t.TempDir(), "does-not-exist.pdf"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestScanStructureLargeFile(t *testing.T) {
	// Content past the scan limit must not influence the result.
	var b strings.Builder
	b.WriteString("%PDF-1.4\n<< /Type /Page /MediaBox [0 0 612 792] >>\n")
	for b.Len() < structuralScanLimit {
		b.WriteString("% padding line to push the tail past the read window\n")
	}
	b.WriteString("<< /Type /Page >>\n<< /Title (Hidden) >>\n")

	path := writeTempPDF(t, b.String())
	meta, err := scanStructure(path)
	if err != nil {
		t.Fatalf("scanStructure failed: %v", err)
	}
	if meta.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1 (tail beyond limit must be ignored)", meta.PageCount)
	}
	if meta.Title != "" {
		t.Errorf("Title = %q, want empty", meta.Title)
	}
}

func TestDecodeLiteralString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{`line\nbreak`, "line\nbreak"},
		{`tab\there`, "tab\there"},
		{`escaped \(parens\)`, "escaped (parens)"},
		{`back\\slash`, `back\slash`},
		{`unknown \z escape`, "unknown z escape"},
		{`trailing backslash \`, `trailing backslash \`},
		{"", ""},
	}

	for _, tt := range tests {
		if got := decodeLiteralString(tt.in); got != tt.want {
			t.Errorf("decodeLiteralString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
