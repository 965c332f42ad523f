package picture

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aliskhannn/html5-picture/internal/model"
)

func result(src string) model.JobResult {
	return model.JobResult{
		Job:       model.NewProcessingJob(src, "out", model.NewEncodeParameters(70, model.FormatWebP), 3),
		FullScale: &model.Derivative{FileName: "banner.webp", Width: 6000, Height: 962},
		Scaled: []model.Derivative{
			{FileName: "banner-w1500.webp", Width: 1500, Height: 240},
			{FileName: "banner-w3000.webp", Width: 3000, Height: 481},
			{FileName: "banner-w4500.webp", Width: 4500, Height: 721},
		},
	}
}

func TestHTML(t *testing.T) {
	pic, err := New(result("assets/banner.png"), "", "banner.png", "Banner")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := `<picture>` +
		`<source media="(max-width: 1500px)" srcset="banner-w1500.webp">` +
		`<source media="(max-width: 3000px)" srcset="banner-w3000.webp">` +
		`<source media="(max-width: 4500px)" srcset="banner-w4500.webp">` +
		`<source media="(min-width: 4501px)" srcset="banner.webp">` +
		`<img src="banner.png" alt="Banner" />` +
		`</picture>`
	if got := pic.HTML(); got != want {
		t.Fatalf("HTML =\n%s\nwant\n%s", got, want)
	}
}

func TestHTMLPrefixAndEscaping(t *testing.T) {
	pic, err := New(result("assets/banner.png"), "/static/img", "/static/img/banner.png", `a "quoted" alt`)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if pic.Sources[0].SrcSet != "/static/img/banner-w1500.webp" {
		t.Fatalf("srcset = %q", pic.Sources[0].SrcSet)
	}
	if got := pic.HTML(); !strings.Contains(got, `alt="a &#34;quoted&#34; alt"`) {
		t.Fatalf("alt not escaped: %s", got)
	}
}

func TestWriterFallbackWithoutMountpoint(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "assets")
	w := Writer{InputRoot: in, Dir: filepath.Join(dir, "tags")}

	if n, err := w.WriteAll([]model.JobResult{result(filepath.Join(in, "banner.png"))}); err != nil || n != 1 {
		t.Fatalf("WriteAll: n=%d err=%v", n, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "tags", "banner.html"))
	if err != nil {
		t.Fatalf("read tag: %v", err)
	}
	if !strings.Contains(string(data), `<img src="banner.webp"`) {
		t.Fatalf("fallback does not point at the full-scale derivative: %s", data)
	}
}

func TestNewWithoutScaled(t *testing.T) {
	res := result("a.png")
	res.Scaled = nil
	if _, err := New(res, "", "a.png", ""); !errors.Is(err, ErrNoScaledImages) {
		t.Fatalf("err = %v", err)
	}
}

func TestWriterWriteAll(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "assets")
	tags := filepath.Join(dir, "tags")

	ok := result(filepath.Join(in, "sub", "banner.png"))
	failed := result(filepath.Join(in, "broken.png"))
	failed.Err = model.NewJobError(failed.Job.Source.Path, model.ErrDecodeFailure, nil)
	noScaled := result(filepath.Join(in, "plain.png"))
	noScaled.Scaled = nil

	w := Writer{InputRoot: in, Dir: tags, Mountpoint: "/img"}
	n, err := w.WriteAll([]model.JobResult{ok, failed, noScaled})
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if n != 1 {
		t.Fatalf("written = %d, want 1", n)
	}

	data, err := os.ReadFile(filepath.Join(tags, "sub", "banner.html"))
	if err != nil {
		t.Fatalf("read tag: %v", err)
	}
	if !strings.Contains(string(data), `srcset="/img/sub/banner-w1500.webp"`) || !strings.Contains(string(data), `<img src="/img/sub/banner.webp"`) {
		t.Fatalf("unexpected tag: %s", data)
	}

	// Existing files are kept unless ForceOverwrite is set.
	if err := os.WriteFile(filepath.Join(tags, "sub", "banner.html"), []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	if n, _ := w.WriteAll([]model.JobResult{ok}); n != 0 {
		t.Fatalf("overwrote existing tag without force")
	}
	w.ForceOverwrite = true
	if n, _ := w.WriteAll([]model.JobResult{ok}); n != 1 {
		t.Fatalf("force overwrite wrote %d files", n)
	}
}
