package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/html5-picture/internal/config"
	"github.com/aliskhannn/html5-picture/internal/model"
)

// sender is the part of the Kafka client the producer uses.
type sender interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key, value []byte) error
	Close() error
}

// Event is published once per finished job.
type Event struct {
	RunID       string             `json:"run_id"`
	Source      string             `json:"source"`
	OutputDir   string             `json:"output_dir"`
	Status      string             `json:"status"` // succeeded / failed
	Kind        string             `json:"kind,omitempty"`
	Error       string             `json:"error,omitempty"`
	Derivatives []model.Derivative `json:"derivatives,omitempty"`
}

// Producer represents a Kafka producer of job completion events.
type Producer struct {
	client   sender
	strategy retry.Strategy
	cfg      *config.Kafka
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	return newWithSender(wbfkafka.NewProducer(cfg.Brokers, cfg.Topic), cfg, s)
}

func newWithSender(c sender, cfg *config.Kafka, s retry.Strategy) *Producer {
	return &Producer{client: c, cfg: cfg, strategy: s}
}

// NewEvent describes the outcome of one job.
func NewEvent(runID string, res model.JobResult) Event {
	e := Event{
		RunID:       runID,
		Source:      res.Job.Source.Path,
		OutputDir:   res.Job.OutputDir,
		Status:      "succeeded",
		Derivatives: res.Files(),
	}
	if res.Err != nil {
		e.Status = "failed"
		e.Kind = model.KindOf(res.Err).Error()
		e.Error = res.Err.Error()
	}

	return e
}

// Produce serializes the Event to JSON and sends it to Kafka.
// The source path is used as the message key so events of one image stay ordered.
func (p *Producer) Produce(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err = p.client.SendWithRetry(ctx, p.strategy, []byte(e.Source), data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

// PublishBatch sends one event per job result and returns the joined errors.
func (p *Producer) PublishBatch(ctx context.Context, res model.BatchResult) error {
	var errs []error
	for _, r := range res.Results {
		if err := p.Produce(ctx, NewEvent(res.RunID.String(), r)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Job.Source.Path, err))
		}
	}

	return errors.Join(errs...)
}

// Close closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.client.Close()
}
