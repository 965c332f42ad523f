// Package picture renders HTML5 <picture> fragments from derivative records.
package picture

import (
	"errors"
	"fmt"
	"html"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/html5-picture/internal/model"
)

// ErrNoScaledImages is returned for jobs without scaled derivatives: a
// <picture> with a single source adds nothing over a plain <img>.
var ErrNoScaledImages = errors.New("picture needs at least one scaled image")

// Source is one <source> element.
type Source struct {
	MinWidth bool // media is (min-width: ...) instead of (max-width: ...)
	Width    int
	SrcSet   string
}

// Picture is a renderable <picture> element.
type Picture struct {
	Sources     []Source
	FallbackURI string
	AltText     string
}

// New builds the picture for a finished job. srcPrefix is prepended to every
// derivative file name. fallback is the URI of the <img> element; when empty,
// the full-scale derivative is used.
func New(res model.JobResult, srcPrefix, fallback, alt string) (Picture, error) {
	if len(res.Scaled) == 0 {
		return Picture{}, ErrNoScaledImages
	}
	if res.FullScale == nil {
		return Picture{}, fmt.Errorf("%s: missing full-scale derivative", res.Job.Source.Path)
	}

	if fallback == "" {
		fallback = join(srcPrefix, res.FullScale.FileName)
	}

	p := Picture{FallbackURI: fallback, AltText: alt}
	for _, d := range res.Scaled {
		p.Sources = append(p.Sources, Source{Width: d.Width, SrcSet: join(srcPrefix, d.FileName)})
	}

	last := res.Scaled[len(res.Scaled)-1]
	p.Sources = append(p.Sources, Source{
		MinWidth: true,
		Width:    last.Width + 1,
		SrcSet:   join(srcPrefix, res.FullScale.FileName),
	})

	return p, nil
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// HTML renders the element on a single line.
func (p Picture) HTML() string {
	var b strings.Builder

	b.WriteString("<picture>")
	for _, s := range p.Sources {
		media := "max"
		if s.MinWidth {
			media = "min"
		}
		fmt.Fprintf(&b, `<source media="(%s-width: %dpx)" srcset="%s">`, media, s.Width, html.EscapeString(s.SrcSet))
	}
	fmt.Fprintf(&b, `<img src="%s" alt="%s" />`, html.EscapeString(p.FallbackURI), html.EscapeString(p.AltText))
	b.WriteString("</picture>")

	return b.String()
}

// Writer saves one fragment file per job below Dir, mirroring the input tree.
type Writer struct {
	InputRoot      string
	Dir            string
	Mountpoint     string // URI prefix for links; empty keeps them relative to the fragment
	ForceOverwrite bool
}

// WriteAll writes fragments for every successful job with scaled derivatives
// and returns the number of files written.
func (w Writer) WriteAll(results []model.JobResult) (int, error) {
	var errs []error
	written := 0

	for _, res := range results {
		if !res.OK() {
			continue
		}

		ok, err := w.write(res)
		switch {
		case errors.Is(err, ErrNoScaledImages):
			zlog.Logger.Debug().Str("file", res.Job.Source.Path).Msg("skipping picture tag without scaled images")
		case err != nil:
			errs = append(errs, err)
		case ok:
			written++
		}
	}

	return written, errors.Join(errs...)
}

func (w Writer) write(res model.JobResult) (bool, error) {
	rel, err := filepath.Rel(w.InputRoot, res.Job.Source.Path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve %s: %w", res.Job.Source.Path, err)
	}
	relDir := filepath.ToSlash(filepath.Dir(rel))

	var prefix string
	if w.Mountpoint != "" {
		prefix = path.Join(w.Mountpoint, relDir)
	}

	// Originals are not copied to the output tree, so <img> falls back to
	// the full-scale derivative.
	pic, err := New(res, prefix, "", "")
	if err != nil {
		return false, err
	}

	dst := filepath.Join(w.Dir, strings.TrimSuffix(rel, filepath.Ext(rel))+".html")
	if !w.ForceOverwrite {
		if _, err := os.Stat(dst); err == nil {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	if err := os.WriteFile(dst, []byte(pic.HTML()), 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return true, nil
}
