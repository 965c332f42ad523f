package model

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestClampQuality(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 1},
		{-20, 1},
		{1, 1},
		{70, 70},
		{100, 100},
		{255, 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			p := NewEncodeParameters(tt.in, FormatWebP)
			if p.Quality != tt.want {
				t.Fatalf("quality %d: got %d, want %d", tt.in, p.Quality, tt.want)
			}
		})
	}
}

func TestNewEncodeParametersDefaultsFormat(t *testing.T) {
	p := NewEncodeParameters(DefaultQuality, "")
	if p.Format != FormatWebP {
		t.Fatalf("format = %q, want webp", p.Format)
	}
	if p.Format.Extension() != "webp" {
		t.Fatalf("extension = %q", p.Format.Extension())
	}
	if FormatJPEG.Extension() != "jpg" || FormatPNG.Extension() != "png" {
		t.Fatal("unexpected extensions for jpeg/png")
	}
}

func TestSourceImageStem(t *testing.T) {
	tests := map[string]string{
		"assets/banner.png":        "banner",
		"/abs/dir/photo.v2.png":    "photo.v2",
		"noext":                    "noext",
		"nested/dir/Hero Shot.PNG": "Hero Shot",
	}
	for path, want := range tests {
		if got := (SourceImage{Path: path}).Stem(); got != want {
			t.Errorf("Stem(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestNewProcessingJobNegativeScale(t *testing.T) {
	job := NewProcessingJob("a.png", "out", NewEncodeParameters(70, FormatWebP), -3)
	if job.ScaleCount != 0 {
		t.Fatalf("scale count = %d, want 0", job.ScaleCount)
	}
	if job.Source.Path != "a.png" || job.OutputDir != "out" {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestJobErrorUnwrap(t *testing.T) {
	cause := os.ErrNotExist
	err := fmt.Errorf("process: %w", NewJobError("a.png", ErrNotAFile, cause))

	if !errors.Is(err, ErrNotAFile) {
		t.Fatal("expected kind to match")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatal("expected cause to match")
	}
	if errors.Is(err, ErrWriteFailure) {
		t.Fatal("unexpected kind match")
	}
	if KindOf(err) != ErrNotAFile {
		t.Fatalf("KindOf = %v", KindOf(err))
	}

	var je *JobError
	if !errors.As(err, &je) || je.Path != "a.png" {
		t.Fatalf("errors.As failed: %v", je)
	}
}

func TestKindOfUnknown(t *testing.T) {
	if KindOf(errors.New("boom")) != ErrUnexpectedFault {
		t.Fatal("plain errors should map to unexpected fault")
	}
	if KindOf(fmt.Errorf("x: %w", ErrInvalidImage)) != ErrInvalidImage {
		t.Fatal("wrapped sentinel should be recognised")
	}
}

func TestSummarize(t *testing.T) {
	full := &Derivative{FileName: "a.webp", Width: 10, Height: 10}
	results := []JobResult{
		{FullScale: full, Scaled: []Derivative{{FileName: "a-w5.webp", Width: 5, Height: 5}}},
		{Err: NewJobError("b.png", ErrNotAFile, nil)},
		{FullScale: full, Err: NewJobError("c.png", ErrWriteFailure, nil)},
	}

	s := Summarize(results)
	want := Summary{Total: 3, Succeeded: 1, Failed: 2, Files: 3}
	if s != want {
		t.Fatalf("summary = %+v, want %+v", s, want)
	}
}
