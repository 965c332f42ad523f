package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/html5-picture/internal/model"
	"github.com/aliskhannn/html5-picture/internal/planner"
	"github.com/aliskhannn/html5-picture/internal/progress"
)

// fileStorage defines the interface for file storage.
// It allows checking, loading and saving files on the local filesystem.
type fileStorage interface {
	IsRegular(path string) (bool, error)
	Load(path string) (io.ReadCloser, error)
	EnsureDir(dir string) error
	Save(dir, filename string, src io.Reader) (string, error)
}

// Encoder writes decoded pixels in an output format.
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality int) error
}

// Processor converts one source image into its full-scale and scaled
// derivatives. It holds no per-job state and may be shared between goroutines.
type Processor struct {
	fileStorage fileStorage
	encoders    map[model.Format]Encoder
}

// New creates a new Processor with the given file storage backend and one
// encoder per supported output format.
func New(fs fileStorage, encoders map[model.Format]Encoder) *Processor {
	return &Processor{fileStorage: fs, encoders: encoders}
}

// job bundles the per-run state of Process.
type job struct {
	model.ProcessingJob
	sink progress.Sink
	enc  Encoder
	img  image.Image
	stem string
	ext  string
}

func (j *job) status(format string, args ...any) {
	if j.sink == nil {
		return
	}
	j.sink.Emit(progress.Event{Path: j.Source.Path, Kind: progress.KindStatus, Message: fmt.Sprintf(format, args...)})
}

func (j *job) inc() {
	if j.sink == nil {
		return
	}
	j.sink.Emit(progress.Event{Path: j.Source.Path, Kind: progress.KindIncrement, Delta: 1})
}

func (j *job) fail(kind, err error) error {
	return model.NewJobError(j.Source.Path, kind, err)
}

// Process loads the job's source, writes the full-scale derivative and then
// every scaled derivative, widest first. The returned result lists every file
// written, also when an error aborted the job halfway.
//
// sink may be nil.
func (p *Processor) Process(ctx context.Context, pj model.ProcessingJob, sink progress.Sink) (model.JobResult, error) {
	res := model.JobResult{Job: pj}

	j := &job{
		ProcessingJob: pj,
		sink:          sink,
		stem:          pj.Source.Stem(),
		ext:           pj.Encode.Format.Extension(),
	}

	// Validate the input path.
	isFile, err := p.fileStorage.IsRegular(pj.Source.Path)
	if err != nil {
		return res, j.fail(model.ErrNotAFile, err)
	}
	if !isFile {
		return res, j.fail(model.ErrNotAFile, nil)
	}

	enc, ok := p.encoders[pj.Encode.Format]
	if !ok {
		return res, j.fail(model.ErrEncodeFailure, fmt.Errorf("no encoder for format %q", pj.Encode.Format))
	}
	j.enc = enc

	// Load and decode the original image.
	j.status("loading")
	if j.img, err = p.load(pj.Source.Path); err != nil {
		return res, j.fail(model.ErrDecodeFailure, err)
	}

	b := j.img.Bounds()
	res.SourceWidth, res.SourceHeight = b.Dx(), b.Dy()
	if res.SourceWidth <= 0 || res.SourceHeight <= 0 {
		return res, j.fail(model.ErrInvalidImage, fmt.Errorf("dimensions %dx%d", res.SourceWidth, res.SourceHeight))
	}

	if err := p.fileStorage.EnsureDir(pj.OutputDir); err != nil {
		return res, j.fail(model.ErrOutputDirectory, err)
	}

	// Full-scale derivative: re-encode only.
	full := model.DerivativeSpec{
		FileName: planner.FullScaleName(j.stem, j.ext),
		Width:    res.SourceWidth,
		Height:   res.SourceHeight,
	}
	if err := p.write(j, j.img, full); err != nil {
		return res, err
	}
	res.FullScale = &model.Derivative{FileName: full.FileName, Width: full.Width, Height: full.Height}

	if pj.ScaleCount == 0 {
		j.status("done")
		return res, nil
	}

	plan, err := planner.Derivatives(j.stem, j.ext, res.SourceWidth, res.SourceHeight, pj.ScaleCount)
	if err != nil {
		return res, j.fail(model.ErrInvalidImage, err)
	}

	res.Scaled, err = p.renderScaled(ctx, j, plan)
	if err != nil {
		return res, err
	}

	j.status("done")

	return res, nil
}

// renderScaled resizes, encodes and saves every planned derivative, widest
// first. It stops at the first failure and returns the records of the files
// written so far in ascending width order.
func (p *Processor) renderScaled(ctx context.Context, j *job, plan model.DerivativePlan) ([]model.Derivative, error) {
	first := len(plan)
	for i := len(plan) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return records(plan[first:]), j.fail(model.ErrCanceled, err)
		}

		spec := plan[i]
		j.status("resizing to %dx%d", spec.Width, spec.Height)
		resized := imaging.Resize(j.img, spec.Width, spec.Height, imaging.Linear)

		if err := p.write(j, resized, spec); err != nil {
			return records(plan[first:]), err
		}
		first = i
	}

	return records(plan), nil
}

func records(plan model.DerivativePlan) []model.Derivative {
	if len(plan) == 0 {
		return nil
	}

	out := make([]model.Derivative, 0, len(plan))
	for _, spec := range plan {
		out = append(out, model.Derivative{FileName: spec.FileName, Width: spec.Width, Height: spec.Height})
	}

	return out
}

// load opens and decodes the image at path.
func (p *Processor) load(path string) (image.Image, error) {
	srcReader, err := p.fileStorage.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load original image: %w", err)
	}
	defer srcReader.Close()

	img, err := imaging.Decode(srcReader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}

// write encodes img and saves it under spec.FileName in the job's output dir.
func (p *Processor) write(j *job, img image.Image, spec model.DerivativeSpec) error {
	j.status("encoding")
	buf := bytes.NewBuffer(nil)
	if err := j.enc.Encode(buf, img, j.Encode.Quality); err != nil {
		return j.fail(model.ErrEncodeFailure, err)
	}

	j.status("saving")
	if _, err := p.fileStorage.Save(j.OutputDir, spec.FileName, buf); err != nil {
		return j.fail(model.ErrWriteFailure, err)
	}
	j.inc()

	return nil
}
