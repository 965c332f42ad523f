package model

import (
	"errors"
	"fmt"
)

// Job error kinds. Every failure of a job unwraps to exactly one of them.
var (
	ErrNotAFile        = errors.New("not a file")
	ErrDecodeFailure   = errors.New("decode failure")
	ErrInvalidImage    = errors.New("invalid image")
	ErrOutputDirectory = errors.New("output directory failure")
	ErrEncodeFailure   = errors.New("encode failure")
	ErrWriteFailure    = errors.New("write failure")
	ErrUnexpectedFault = errors.New("unexpected fault")
	ErrCanceled        = errors.New("canceled")
)

var kinds = []error{
	ErrNotAFile,
	ErrDecodeFailure,
	ErrInvalidImage,
	ErrOutputDirectory,
	ErrEncodeFailure,
	ErrWriteFailure,
	ErrUnexpectedFault,
	ErrCanceled,
}

// JobError is a failure of a single job, tagged with the source path.
type JobError struct {
	Path string
	Kind error
	Err  error
}

// NewJobError wraps err as a job failure of the given kind.
func NewJobError(path string, kind, err error) *JobError {
	return &JobError{Path: path, Kind: kind, Err: err}
}

func (e *JobError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *JobError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the job error kind of err, or ErrUnexpectedFault when err
// does not carry one.
func KindOf(err error) error {
	var je *JobError
	if errors.As(err, &je) && je.Kind != nil {
		return je.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrUnexpectedFault
}
