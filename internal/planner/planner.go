// Package planner computes the scaled derivatives of a source image.
//
// Planning is pure: it only looks at the source dimensions and the requested
// scale count, never at pixels or the filesystem.
package planner

import (
	"fmt"
	"math"

	"github.com/aliskhannn/html5-picture/internal/model"
)

// Plan returns the target widths of scaleCount derivatives of a source that is
// sourceWidth pixels wide, smallest first.
//
// The source width is divided into scaleCount+1 equal steps and every step
// boundary below the full width is rounded up. Duplicates produced by tiny
// sources are kept.
func Plan(sourceWidth, scaleCount int) ([]int, error) {
	if sourceWidth <= 0 {
		return nil, fmt.Errorf("%w: source width %d", model.ErrInvalidImage, sourceWidth)
	}
	if scaleCount < 0 {
		return nil, fmt.Errorf("%w: scale count %d", model.ErrInvalidImage, scaleCount)
	}
	if scaleCount == 0 {
		return []int{}, nil
	}

	step := float64(sourceWidth) / float64(scaleCount+1)

	widths := make([]int, 0, scaleCount)
	for idx := 0; idx < scaleCount; idx++ {
		widths = append(widths, int(math.Ceil(float64(idx+1)*step)))
	}

	return widths, nil
}

// Height returns the height matching targetWidth for a sourceWidth x
// sourceHeight image. The result is truncated, never rounded, and is at least 1.
func Height(targetWidth, sourceWidth, sourceHeight int) int {
	if sourceWidth <= 0 {
		return 0
	}

	h := int(float64(targetWidth) / float64(sourceWidth) * float64(sourceHeight))
	if h < 1 {
		h = 1
	}

	return h
}

// FileName is the output name of the derivative of stem that is width pixels wide.
func FileName(stem string, width int, ext string) string {
	return fmt.Sprintf("%s-w%d.%s", stem, width, ext)
}

// FullScaleName is the output name of the full-scale derivative of stem.
func FullScaleName(stem, ext string) string {
	return fmt.Sprintf("%s.%s", stem, ext)
}

// Derivatives builds the complete plan for a source of the given dimensions.
func Derivatives(stem, ext string, sourceWidth, sourceHeight, scaleCount int) (model.DerivativePlan, error) {
	widths, err := Plan(sourceWidth, scaleCount)
	if err != nil {
		return nil, err
	}
	if sourceHeight <= 0 {
		return nil, fmt.Errorf("%w: source height %d", model.ErrInvalidImage, sourceHeight)
	}

	plan := make(model.DerivativePlan, 0, len(widths))
	for _, w := range widths {
		plan = append(plan, model.DerivativeSpec{
			FileName: FileName(stem, w, ext),
			Width:    w,
			Height:   Height(w, sourceWidth, sourceHeight),
		})
	}

	return plan, nil
}
