package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aliskhannn/html5-picture/internal/model"
)

func parse(t *testing.T, args ...string) *Config {
	t.Helper()
	fs := Flags()
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := parse(t, "--config", "", "assets")

	if cfg.Input.Dir != "assets" || cfg.Scale.Count != 0 {
		t.Fatalf("input = %+v, scale = %d", cfg.Input, cfg.Scale.Count)
	}
	if cfg.Output.Dir != ".assets-html5picture" {
		t.Fatalf("output dir = %q", cfg.Output.Dir)
	}
	if cfg.Encode.Quality != model.DefaultQuality || cfg.Encode.Format != "webp" {
		t.Fatalf("encode = %+v", cfg.Encode)
	}
	if len(cfg.Input.Extensions) != 1 || cfg.Input.Extensions[0] != ".png" {
		t.Fatalf("extensions = %v", cfg.Input.Extensions)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.Delay != time.Second || cfg.Retry.Backoff != 2 {
		t.Fatalf("retry = %+v", cfg.Retry)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := `
input:
  dir: photos
encode:
  quality: 55
  format: jpeg
scale:
  count: 2
batch:
  concurrency: 4
picture:
  dir: fragments
  mountpoint: /static
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HTML5_PICTURE_BATCH_CONCURRENCY", "8")
	t.Setenv("MINIO_ACCESS_KEY", "key")

	cfg := parse(t, "--config", path, "-q", "90")

	if cfg.Input.Dir != "photos" || cfg.Scale.Count != 2 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Encode.Quality != 90 || cfg.Encode.Format != "jpeg" {
		t.Fatalf("encode = %+v", cfg.Encode)
	}
	if cfg.Batch.Concurrency != 8 {
		t.Fatalf("concurrency = %d, want env override", cfg.Batch.Concurrency)
	}
	if cfg.Storage.AccessKey != "key" {
		t.Fatalf("access key = %q", cfg.Storage.AccessKey)
	}
	if cfg.Picture.Dir != "fragments" || cfg.Picture.Mountpoint != "/static" {
		t.Fatalf("picture = %+v", cfg.Picture)
	}
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("HTML5_PICTURE_INPUT_DIR", "assets")
	t.Setenv("HTML5_PICTURE_OUTPUT_DIR", "public")
	t.Setenv("HTML5_PICTURE_PICTURE_DIR", "fragments")
	t.Setenv("HTML5_PICTURE_STORAGE_ENABLED", "true")
	t.Setenv("HTML5_PICTURE_STORAGE_ENDPOINT", "localhost:9000")
	t.Setenv("HTML5_PICTURE_STORAGE_BUCKET_NAME", "images")
	t.Setenv("HTML5_PICTURE_KAFKA_ENABLED", "true")
	t.Setenv("HTML5_PICTURE_KAFKA_BROKERS", "a:9092 b:9092")

	cfg := parse(t, "--config", "")

	if cfg.Input.Dir != "assets" || cfg.Output.Dir != "public" || cfg.Picture.Dir != "fragments" {
		t.Fatalf("dirs not taken from env: %+v %+v %+v", cfg.Input, cfg.Output, cfg.Picture)
	}
	if !cfg.Storage.Enabled || cfg.Storage.BucketName != "images" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("kafka = %+v", cfg.Kafka)
	}
}

func TestLoadPositionalScale(t *testing.T) {
	cfg := parse(t, "--config", "", "-o", "public", "assets", "3")

	if cfg.Scale.Count != 3 || cfg.Output.Dir != "public" {
		t.Fatalf("scale = %d, output = %q", cfg.Scale.Count, cfg.Output.Dir)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"--config", ""}},
		{"bad scale", []string{"--config", "", "assets", "many"}},
		{"negative scale", []string{"--config", "", "--scale=-1", "assets"}},
		{"bad format", []string{"--config", "", "--format", "gif", "assets"}},
		{"too many args", []string{"--config", "", "a", "1", "b"}},
		{"missing explicit file", []string{"--config", "/nonexistent/config.yml", "assets"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := Flags()
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse flags: %v", err)
			}
			if _, err := Load(fs); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEncodeParametersClamp(t *testing.T) {
	cfg := &Config{Encode: Encode{Quality: 250, Format: "png"}}
	p := cfg.EncodeParameters()
	if p.Quality != 100 || p.Format != model.FormatPNG {
		t.Fatalf("params = %+v", p)
	}
}

func TestOutputDirFor(t *testing.T) {
	got := OutputDirFor(filepath.Join("site", "assets") + string(filepath.Separator))
	want := filepath.Join("site", ".assets-html5picture")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
