// Package progress carries advisory progress events from jobs to whoever
// renders them. Every sink here is safe for concurrent use.
package progress

import (
	"sync"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/html5-picture/internal/model"
)

// Kind identifies what an Event reports.
type Kind int

const (
	// KindStatus is a human-readable status line of one job.
	KindStatus Kind = iota
	// KindIncrement reports Delta output files written by one job.
	KindIncrement
	KindJobStarted
	KindJobSucceeded
	KindJobFailed
	// KindBatchDone is emitted once after every job reached a terminal state.
	KindBatchDone
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindIncrement:
		return "increment"
	case KindJobStarted:
		return "job_started"
	case KindJobSucceeded:
		return "job_succeeded"
	case KindJobFailed:
		return "job_failed"
	case KindBatchDone:
		return "batch_done"
	default:
		return "unknown"
	}
}

// Event is a single progress notification.
type Event struct {
	Path    string // source path of the job, empty for batch events
	Kind    Kind
	Message string
	Delta   int   // KindIncrement only
	Total   int   // expected output files of the job, KindJobStarted only
	Err     error // KindJobFailed only
}

// Sink receives progress events.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to Sink. The function must be safe for
// concurrent calls.
type SinkFunc func(e Event)

// Emit implements Sink.
func (f SinkFunc) Emit(e Event) { f(e) }

// Channel forwards events to a channel. Sends block until the reader keeps up.
type Channel chan<- Event

// Emit implements Sink.
func (c Channel) Emit(e Event) { c <- e }

// Multi fans an event out to several sinks in order. Nil sinks are skipped.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Stats is a snapshot of a Tracker.
type Stats struct {
	Started   int
	Succeeded int
	Failed    int
	Files     int
	Expected  int
}

// Done is the number of jobs in a terminal state.
func (s Stats) Done() int { return s.Succeeded + s.Failed }

// Tracker aggregates events into counters.
type Tracker struct {
	mu    sync.Mutex
	stats Stats
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Emit implements Sink.
func (t *Tracker) Emit(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Kind {
	case KindJobStarted:
		t.stats.Started++
		t.stats.Expected += e.Total
	case KindIncrement:
		t.stats.Files += e.Delta
	case KindJobSucceeded:
		t.stats.Succeeded++
	case KindJobFailed:
		t.stats.Failed++
	}
}

// Stats returns the current counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stats
}

// Log writes events to the global zlog logger: status lines at debug level,
// job outcomes at info/error level.
type Log struct{}

// Emit implements Sink.
func (Log) Emit(e Event) {
	switch e.Kind {
	case KindStatus:
		zlog.Logger.Debug().Str("file", e.Path).Msg(e.Message)
	case KindJobSucceeded:
		zlog.Logger.Info().Str("file", e.Path).Msg("image converted")
	case KindJobFailed:
		zlog.Logger.Error().
			Err(e.Err).
			Str("file", e.Path).
			Str("kind", model.KindOf(e.Err).Error()).
			Msg("image conversion failed")
	case KindBatchDone:
		zlog.Logger.Info().Msg(e.Message)
	}
}
