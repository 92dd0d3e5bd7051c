// Package raster owns the libvips lifecycle and runtime capability probes.
//
// libvips is linked via cgo and must be started exactly once per process;
// InitVips and ShutdownVips guard that lifecycle. SupportsPDF and
// SupportsWebP probe the linked build by exercising the actual load and
// export paths, since PDF and WebP support depend on how the system
// library was compiled.
package raster
