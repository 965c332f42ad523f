package model

import (
	"path/filepath"
	"strings"
)

// DefaultQuality is used when no encode quality is configured.
const DefaultQuality = 70

const (
	minQuality = 1
	maxQuality = 100
)

// Format identifies the output encoding of a derivative.
type Format string

const (
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// Extension returns the file extension (without dot) written for the format.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	default:
		return "webp"
	}
}

// SourceImage is a discovered source file. Its pixel dimensions are only
// known once the image has been decoded.
type SourceImage struct {
	Path string `json:"path" yaml:"path"`
}

// Stem returns the file name of the source without directory and extension.
func (s SourceImage) Stem() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EncodeParameters holds the settings applied to every derivative of a job.
type EncodeParameters struct {
	Quality int    `json:"quality" yaml:"quality"` // always within [1, 100]
	Format  Format `json:"format" yaml:"format"`
}

// NewEncodeParameters builds encode parameters, clamping quality into [1, 100].
// An empty format falls back to WebP.
func NewEncodeParameters(quality int, format Format) EncodeParameters {
	if format == "" {
		format = FormatWebP
	}

	return EncodeParameters{
		Quality: ClampQuality(quality),
		Format:  format,
	}
}

// ClampQuality forces quality into the range accepted by the encoders.
func ClampQuality(q int) int {
	if q < minQuality {
		return minQuality
	}
	if q > maxQuality {
		return maxQuality
	}
	return q
}

// DerivativeSpec describes one scaled derivative to render.
type DerivativeSpec struct {
	FileName string
	Width    int
	Height   int
}

// DerivativePlan is the ordered list of scaled derivatives for one source,
// widths increasing with the index.
type DerivativePlan []DerivativeSpec

// Derivative is the record of a written derivative file, consumed by the
// markup formatter.
type Derivative struct {
	FileName string `json:"file_name" yaml:"file_name"`
	Width    int    `json:"width" yaml:"width"`
	Height   int    `json:"height" yaml:"height"`
}
