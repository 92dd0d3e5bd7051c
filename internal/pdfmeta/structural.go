package pdfmeta

import (
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// structuralScanLimit bounds how much of the file the scanner reads. The
// catalog, page tree, and info dictionary of almost every real-world PDF
// sit inside the first 100KB; reading more buys nothing on the files that
// matter and costs real I/O on the ones that don't.
const structuralScanLimit = 100 * 1024

// Default page geometry in PDF points (US Letter) when no MediaBox is found.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

var (
	// Matches /Type /Page but not /Type /Pages. The page tree node would
	// otherwise inflate the count by one per intermediate node.
	pageObjectRe = regexp.MustCompile(`/Type\s*/Page(?:[^s]|$)`)

	mediaBoxRe = regexp.MustCompile(`/MediaBox\s*\[\s*([\d.+-]+)\s+([\d.+-]+)\s+([\d.+-]+)\s+([\d.+-]+)\s*\]`)

	// Literal-string info entries. The body alternates escaped pairs and
	// non-delimiter characters so escaped parentheses don't end the match.
	titleRe  = regexp.MustCompile(`/Title\s*\(((?:\\.|[^\\)])*)\)`)
	authorRe = regexp.MustCompile(`/Author\s*\(((?:\\.|[^\\)])*)\)`)
)

// scanStructure extracts what it can from the raw bytes of a PDF without a
// parser: an approximate page count, the first MediaBox, and literal-string
// Title and Author entries. It never fails on malformed content, only on
// read errors.
func scanStructure(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for scan: %w", err)
	}
	defer f.Close()

	buf := make([]byte, structuralScanLimit)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read file for scan: %w", err)
	}
	data := string(buf[:n])

	meta := &Metadata{
		PageCount: len(pageObjectRe.FindAllString(data, -1)),
		Width:     defaultPageWidth,
		Height:    defaultPageHeight,
		Source:    SourceStructural,
	}
	if meta.PageCount < 1 {
		meta.PageCount = 1
	}

	if m := mediaBoxRe.FindStringSubmatch(data); m != nil {
		// MediaBox is [llx lly urx ury]; width and height come from the
		// upper-right corner because the lower-left is almost always 0 0.
		if w, err := strconv.ParseFloat(m[3], 64); err == nil && w > 0 {
			meta.Width = int(math.Round(w))
		}
		if h, err := strconv.ParseFloat(m[4], 64); err == nil && h > 0 {
			meta.Height = int(math.Round(h))
		}
	}

	if m := titleRe.FindStringSubmatch(data); m != nil {
		meta.Title = decodeLiteralString(m[1])
	}
	if m := authorRe.FindStringSubmatch(data); m != nil {
		meta.Author = decodeLiteralString(m[1])
	}

	return meta, nil
}

// decodeLiteralString resolves the escape sequences a PDF literal string
// may carry. Unknown escapes drop the backslash, matching reader behavior.
func decodeLiteralString(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\', '(', ')':
			b.WriteByte(s[i])
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
