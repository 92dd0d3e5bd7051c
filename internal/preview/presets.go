package preview

// QualityPreset pairs a render DPI with an encoder quality setting.
type QualityPreset struct {
	Name    string
	DPI     int
	Quality int
}

// Named presets. DPI drives both sharpness and memory cost: a US Letter
// page at 300 DPI is a 2550x3300 raster.
var (
	PresetLow    = QualityPreset{Name: "low", DPI: 72, Quality: 70}
	PresetMedium = QualityPreset{Name: "medium", DPI: 150, Quality: 85}
	PresetHigh   = QualityPreset{Name: "high", DPI: 300, Quality: 95}
)

// PresetByName resolves a preset name, defaulting to medium for anything
// unrecognized.
func PresetByName(name string) QualityPreset {
	switch name {
	case "low":
		return PresetLow
	case "high":
		return PresetHigh
	default:
		return PresetMedium
	}
}

// File-size thresholds above which the render DPI is reduced. Large PDFs
// tend to be image-heavy scans where high DPI multiplies memory use
// without improving a one-page preview.
const (
	largeFileBytes = 10 * 1024 * 1024
	hugeFileBytes  = 50 * 1024 * 1024

	largeFileMaxDPI = 100
	hugeFileDPI     = 72
)

// EffectiveDPI applies the size-based downgrades to a preset's DPI.
func EffectiveDPI(preset QualityPreset, fileSize int64) int {
	dpi := preset.DPI
	if fileSize > hugeFileBytes {
		return hugeFileDPI
	}
	if fileSize > largeFileBytes && dpi > largeFileMaxDPI {
		return largeFileMaxDPI
	}
	return dpi
}
