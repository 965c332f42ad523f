// Package mirror copies written derivatives to object storage after a batch.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/html5-picture/internal/model"
)

// uploader defines the object storage operations the mirror needs.
type uploader interface {
	Upload(ctx context.Context, objectName string, src io.Reader, size int64, contentType string) error
}

// Mirror uploads derivative files, keeping their path relative to the output
// root as object name.
type Mirror struct {
	uploader   uploader
	strategy   retry.Strategy
	outputRoot string
	prefix     string
}

// New creates a Mirror. prefix is prepended to every object name and may be empty.
func New(u uploader, s retry.Strategy, outputRoot, prefix string) *Mirror {
	return &Mirror{uploader: u, strategy: s, outputRoot: outputRoot, prefix: strings.Trim(prefix, "/")}
}

// Sync uploads every file written by the given jobs, including files of jobs
// that failed halfway. It returns the number of uploaded objects and the
// joined upload errors; one failed upload does not stop the others.
func (m *Mirror) Sync(ctx context.Context, results []model.JobResult) (int, error) {
	var errs []error
	uploaded := 0

	for _, res := range results {
		for _, d := range res.Files() {
			if err := ctx.Err(); err != nil {
				return uploaded, errors.Join(append(errs, err)...)
			}

			local := filepath.Join(res.Job.OutputDir, d.FileName)
			name, err := m.objectName(local)
			if err != nil {
				errs = append(errs, err)
				continue
			}

			err = retry.Do(func() error {
				return m.upload(ctx, local, name, res.Job.Encode.Format)
			}, m.strategy)
			if err != nil {
				zlog.Logger.Err(err).Str("object", name).Msg("failed to mirror derivative")
				errs = append(errs, err)
				continue
			}
			uploaded++
		}
	}

	zlog.Logger.Info().Int("objects", uploaded).Int("errors", len(errs)).Msg("mirror finished")

	return uploaded, errors.Join(errs...)
}

func (m *Mirror) objectName(local string) (string, error) {
	rel, err := filepath.Rel(m.outputRoot, local)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s against %s: %w", local, m.outputRoot, err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside of output root %s", local, m.outputRoot)
	}

	return path.Join(m.prefix, filepath.ToSlash(rel)), nil
}

func (m *Mirror) upload(ctx context.Context, local, name string, format model.Format) error {
	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", local, err)
	}

	return m.uploader.Upload(ctx, name, f, info.Size(), ContentType(format))
}

// ContentType returns the MIME type of derivatives in the given format.
func ContentType(f model.Format) string {
	switch f {
	case model.FormatJPEG:
		return "image/jpeg"
	case model.FormatPNG:
		return "image/png"
	default:
		return "image/webp"
	}
}
