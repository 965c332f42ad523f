// Package batch runs many image jobs with per-job fault isolation.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/html5-picture/internal/model"
	"github.com/aliskhannn/html5-picture/internal/progress"
)

// imageProcessor defines the single-image processing step.
type imageProcessor interface {
	Process(ctx context.Context, job model.ProcessingJob, sink progress.Sink) (model.JobResult, error)
}

// Options controls how jobs are scheduled.
type Options struct {
	// SingleThreaded runs jobs one after another in input order.
	SingleThreaded bool
	// Concurrency caps the number of jobs in flight. 0 starts every job at once.
	Concurrency int
}

// Coordinator fans jobs out to a processor and collects their results.
type Coordinator struct {
	processor imageProcessor
	opts      Options
	sink      progress.Sink
}

// New creates a Coordinator. sink may be nil.
func New(p imageProcessor, opts Options, sink progress.Sink) *Coordinator {
	return &Coordinator{processor: p, opts: opts, sink: sink}
}

// Run processes every job and returns once all of them reached a terminal
// state. Failures never stop sibling jobs. Results keep the input order.
//
// When ctx is canceled, jobs that have not started yet fail with
// model.ErrCanceled; running jobs stop at their next derivative.
func (c *Coordinator) Run(ctx context.Context, jobs []model.ProcessingJob) model.BatchResult {
	runID := uuid.New()
	tracker := progress.NewTracker()
	sink := progress.Multi{tracker, c.sink}

	zlog.Logger.Info().
		Str("run_id", runID.String()).
		Int("jobs", len(jobs)).
		Bool("single_threaded", c.opts.SingleThreaded).
		Int("concurrency", c.opts.Concurrency).
		Msg("starting batch")

	results := make([]model.JobResult, len(jobs))

	if c.opts.SingleThreaded {
		for i, job := range jobs {
			results[i] = c.runJob(ctx, job, sink)
		}
	} else {
		c.runConcurrent(ctx, jobs, results, sink)
	}

	summary := model.Summarize(results)
	stats := tracker.Stats()

	emit(sink, progress.Event{
		Kind:    progress.KindBatchDone,
		Message: fmt.Sprintf("batch finished: %d/%d succeeded, %d failed, %d files", summary.Succeeded, summary.Total, summary.Failed, stats.Files),
	})

	return model.BatchResult{RunID: runID, Results: results, Summary: summary}
}

// runConcurrent starts one goroutine per job, bounded by a semaphore when a
// concurrency cap is set.
func (c *Coordinator) runConcurrent(ctx context.Context, jobs []model.ProcessingJob, results []model.JobResult, sink progress.Sink) {
	var sem chan struct{}
	if c.opts.Concurrency > 0 {
		sem = make(chan struct{}, c.opts.Concurrency)
	}

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job model.ProcessingJob) {
			defer wg.Done()

			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
				}
			}

			results[idx] = c.runJob(ctx, job, sink)
		}(i, job)
	}
	wg.Wait()
}

// runJob is the fault boundary of a single job: it converts panics into
// model.ErrUnexpectedFault and reports the outcome.
func (c *Coordinator) runJob(ctx context.Context, job model.ProcessingJob, sink progress.Sink) (res model.JobResult) {
	res = model.JobResult{Job: job}

	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().
				Str("file", job.Source.Path).
				Str("stack", string(debug.Stack())).
				Msgf("recovered from panic: %v", r)
			res.Err = model.NewJobError(job.Source.Path, model.ErrUnexpectedFault, fmt.Errorf("panic: %v", r))
		}

		if res.Err != nil {
			emit(sink, progress.Event{Path: job.Source.Path, Kind: progress.KindJobFailed, Err: res.Err})
			return
		}
		emit(sink, progress.Event{Path: job.Source.Path, Kind: progress.KindJobSucceeded})
	}()

	emit(sink, progress.Event{Path: job.Source.Path, Kind: progress.KindJobStarted, Total: job.ScaleCount + 1})

	if err := ctx.Err(); err != nil {
		res.Err = model.NewJobError(job.Source.Path, model.ErrCanceled, err)
		return res
	}

	out, err := c.processor.Process(ctx, job, sink)
	out.Job = job
	if err != nil {
		out.Err = asJobError(job.Source.Path, err)
	}

	return out
}

// emit delivers e to sink. A panicking sink is logged and otherwise ignored.
func emit(sink progress.Sink, e progress.Event) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().
				Str("file", e.Path).
				Str("event", e.Kind.String()).
				Msgf("progress sink panicked: %v", r)
		}
	}()

	sink.Emit(e)
}

// asJobError makes sure err carries a kind and the source path.
func asJobError(path string, err error) error {
	var je *model.JobError
	if errors.As(err, &je) {
		return err
	}

	return model.NewJobError(path, model.KindOf(err), err)
}
