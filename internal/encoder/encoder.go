// Package encoder turns decoded pixels into derivative file contents.
package encoder

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	webpenc "github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"github.com/aliskhannn/html5-picture/internal/model"
)

// Encoder writes img to w at the given quality.
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality int) error
}

// WebP encodes lossy WebP through libwebp.
type WebP struct{}

// Encode implements Encoder.
func (WebP) Encode(w io.Writer, img image.Image, quality int) error {
	opts, err := webpenc.NewLossyEncoderOptions(webpenc.PresetDefault, float32(model.ClampQuality(quality)))
	if err != nil {
		return fmt.Errorf("failed to build webp options: %w", err)
	}

	if err := webp.Encode(w, img, opts); err != nil {
		return fmt.Errorf("failed to encode webp: %w", err)
	}

	return nil
}

// JPEG encodes baseline JPEG.
type JPEG struct{}

// Encode implements Encoder.
func (JPEG) Encode(w io.Writer, img image.Image, quality int) error {
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(model.ClampQuality(quality))); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return nil
}

// PNG encodes PNG. Quality only selects the compression level: anything
// below 50 favours speed.
type PNG struct{}

// Encode implements Encoder.
func (PNG) Encode(w io.Writer, img image.Image, quality int) error {
	level := imaging.PNGCompressionLevel(png.BestCompression)
	if quality < 50 {
		level = imaging.PNGCompressionLevel(png.BestSpeed)
	}

	if err := imaging.Encode(w, img, imaging.PNG, level); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}

	return nil
}

// ForFormat returns the encoder writing the given output format.
func ForFormat(f model.Format) (Encoder, error) {
	switch f {
	case model.FormatWebP, "":
		return WebP{}, nil
	case model.FormatJPEG:
		return JPEG{}, nil
	case model.FormatPNG:
		return PNG{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", f)
	}
}
