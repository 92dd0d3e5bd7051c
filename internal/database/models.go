package database

import "time"

// Extraction method values recorded on a processing record. The method
// reflects how the preview image was produced, not how metadata was read;
// a document with valid metadata but no preview carries MethodNone.
const (
	// MethodNone means no preview exists for the document.
	MethodNone = "none"
	// MethodVips means the preview was rasterized in-process by libvips.
	MethodVips = "vips"
)

// Document is the processing record for one uploaded PDF.
type Document struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"-"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`

	Processed      bool   `json:"processed"`
	PageCount      int    `json:"pageCount"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Title          string `json:"title,omitempty"`
	Author         string `json:"author,omitempty"`
	MetadataSource string `json:"metadataSource,omitempty"`

	PreviewPath        string     `json:"previewPath,omitempty"`
	PreviewGeneratedAt *time.Time `json:"previewGeneratedAt,omitempty"`
	ExtractionMethod   string     `json:"extractionMethod"`
	ExtractionError    string     `json:"extractionError,omitempty"`
}

// HasPreview reports whether the record references a generated preview.
// The backing file must still be re-validated against the filesystem
// before the reference is trusted.
func (d *Document) HasPreview() bool {
	return d.PreviewPath != "" && d.ExtractionMethod != MethodNone
}
