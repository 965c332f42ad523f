// Package scan discovers source images and turns them into processing jobs.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aliskhannn/html5-picture/internal/model"
)

// DefaultExtensions lists the source extensions recognised when none are configured.
var DefaultExtensions = []string{".png"}

// Source is a discovered image file.
type Source struct {
	// Path is the file path as found under the input root.
	Path string
	// RelPath is the path relative to the input root.
	RelPath string
}

// Discover walks root and returns every file whose extension is in
// extensions (case-insensitive), sorted by relative path. Hidden directories
// are skipped.
func Discover(root string, extensions []string) ([]Source, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}

	var sources []Source
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sources = append(sources, Source{Path: path, RelPath: rel})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].RelPath < sources[j].RelPath })

	return sources, nil
}

// Jobs builds one job per source. The output directory of a job mirrors the
// source's directory below outputRoot.
func Jobs(sources []Source, outputRoot string, enc model.EncodeParameters, scaleCount int) []model.ProcessingJob {
	jobs := make([]model.ProcessingJob, 0, len(sources))
	for _, src := range sources {
		outDir := filepath.Join(outputRoot, filepath.Dir(src.RelPath))
		jobs = append(jobs, model.NewProcessingJob(src.Path, outDir, enc, scaleCount))
	}

	return jobs
}
