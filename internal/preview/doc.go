// Package preview renders first-page PDF previews.
//
// Rasterization always happens in-process through libvips. WebP is the
// primary output; a pure-Go JPEG path exists for libvips builds without a
// WebP encoder. Quality presets pair a render DPI with encoder quality,
// and oversized source files get their DPI reduced before rendering.
package preview
