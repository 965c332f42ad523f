package model

import (
	"github.com/google/uuid"
)

// ProcessingJob is the complete input of one processor run. It is built once
// per source image and never modified afterwards.
type ProcessingJob struct {
	Source     SourceImage      `json:"source" yaml:"source"`
	OutputDir  string           `json:"output_dir" yaml:"output_dir"`
	Encode     EncodeParameters `json:"encode" yaml:"encode"`
	ScaleCount int              `json:"scale_count" yaml:"scale_count"` // number of scaled derivatives, 0 = full scale only
}

// NewProcessingJob returns a fully formed job. Negative scale counts are
// treated as zero.
func NewProcessingJob(src, outputDir string, enc EncodeParameters, scaleCount int) ProcessingJob {
	if scaleCount < 0 {
		scaleCount = 0
	}

	return ProcessingJob{
		Source:     SourceImage{Path: src},
		OutputDir:  outputDir,
		Encode:     enc,
		ScaleCount: scaleCount,
	}
}

// JobResult is the terminal state of one job.
type JobResult struct {
	Job          ProcessingJob `json:"job" yaml:"job"`
	SourceWidth  int           `json:"source_width" yaml:"source_width"`
	SourceHeight int           `json:"source_height" yaml:"source_height"`
	FullScale    *Derivative   `json:"full_scale,omitempty" yaml:"full_scale,omitempty"`
	Scaled       []Derivative  `json:"scaled,omitempty" yaml:"scaled,omitempty"` // ascending width
	Err          error         `json:"-" yaml:"-"`
}

// OK reports whether the job finished without error.
func (r JobResult) OK() bool {
	return r.Err == nil
}

// Files returns every derivative written for the job, full scale first.
func (r JobResult) Files() []Derivative {
	files := make([]Derivative, 0, len(r.Scaled)+1)
	if r.FullScale != nil {
		files = append(files, *r.FullScale)
	}

	return append(files, r.Scaled...)
}

// Summary aggregates job outcomes of a batch.
type Summary struct {
	Total     int `json:"total" yaml:"total"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Files     int `json:"files" yaml:"files"` // derivative files written, including partial jobs
}

// BatchResult holds every job result in input order.
type BatchResult struct {
	RunID   uuid.UUID   `json:"run_id" yaml:"run_id"`
	Results []JobResult `json:"results" yaml:"results"`
	Summary Summary     `json:"summary" yaml:"summary"`
}

// Summarize computes aggregate counts from job results.
func Summarize(results []JobResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		s.Files += len(r.Files())
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
	}

	return s
}
