// Package manifest records the derivatives of a batch in a YAML file, so the
// markup tooling can pick up file names and dimensions without decoding images.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aliskhannn/html5-picture/internal/model"
)

// Manifest is the document written after a batch.
type Manifest struct {
	RunID       string        `yaml:"run_id"`
	GeneratedAt time.Time     `yaml:"generated_at"`
	Summary     model.Summary `yaml:"summary"`
	Images      []Entry       `yaml:"images"`
}

// Entry describes the outputs of one source image.
type Entry struct {
	Source      string             `yaml:"source"`
	OutputDir   string             `yaml:"output_dir"`
	Width       int                `yaml:"width,omitempty"`
	Height      int                `yaml:"height,omitempty"`
	Derivatives []model.Derivative `yaml:"derivatives,omitempty"` // full scale first, then ascending width
	Error       string             `yaml:"error,omitempty"`
}

// New converts a batch result into a manifest.
func New(res model.BatchResult, now time.Time) Manifest {
	m := Manifest{
		RunID:       res.RunID.String(),
		GeneratedAt: now.UTC(),
		Summary:     res.Summary,
		Images:      make([]Entry, 0, len(res.Results)),
	}

	for _, r := range res.Results {
		e := Entry{
			Source:      r.Job.Source.Path,
			OutputDir:   r.Job.OutputDir,
			Width:       r.SourceWidth,
			Height:      r.SourceHeight,
			Derivatives: r.Files(),
		}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		m.Images = append(m.Images, e)
	}

	return m
}

// Write saves m as YAML at path, creating parent directories.
func Write(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}

	return nil
}

// Read loads a manifest written by Write.
func Read(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to unmarshal manifest %s: %w", path, err)
	}

	return m, nil
}
