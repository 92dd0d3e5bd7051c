// Package pdfmeta extracts page count, page geometry, and document info
// from PDF files.
//
// Backends are tiered: libvips rasterization when available, pdfcpu's
// parser next, and a raw byte scanner last. The scanner reads only the
// first 100KB and works on damaged files a real parser rejects, so
// extraction degrades to approximate answers instead of failing.
package pdfmeta
