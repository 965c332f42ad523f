// Package testutil draws fixture images for package tests.
package testutil

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/fogleman/gg"
)

// WritePNG draws a w x h gradient with a circle on it and saves it as PNG at
// path, creating parent directories.
func WritePNG(t testing.TB, path string, w, h int) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir fixture dir: %v", err)
	}

	dc := gg.NewContext(w, h)

	grad := gg.NewLinearGradient(0, 0, float64(w), float64(h))
	grad.AddColorStop(0, color.RGBA{R: 25, G: 76, B: 204, A: 255})
	grad.AddColorStop(1, color.RGBA{R: 230, G: 153, B: 25, A: 255})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	r := float64(min(w, h)) / 3
	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(float64(w)/2, float64(h)/2, r)
	dc.Fill()

	if err := dc.SavePNG(path); err != nil {
		t.Fatalf("save fixture %s: %v", path, err)
	}

	return path
}

// WriteGarbage writes bytes that no image decoder accepts.
func WriteGarbage(t testing.TB, path string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("definitely not a png"), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}

	return path
}
