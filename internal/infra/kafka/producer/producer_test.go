package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/html5-picture/internal/config"
	"github.com/aliskhannn/html5-picture/internal/model"
)

type message struct {
	key, value []byte
}

type fakeSender struct {
	sent   []message
	fail   string
	closed bool
}

func (f *fakeSender) SendWithRetry(_ context.Context, _ retry.Strategy, key, value []byte) error {
	if string(key) == f.fail {
		return errors.New("broker down")
	}
	f.sent = append(f.sent, message{key: key, value: value})
	return nil
}

func (f *fakeSender) Close() error {
	f.closed = true
	return nil
}

func TestPublishBatch(t *testing.T) {
	enc := model.NewEncodeParameters(70, model.FormatWebP)
	results := []model.JobResult{
		{
			Job:       model.NewProcessingJob("in/a.png", "out", enc, 0),
			FullScale: &model.Derivative{FileName: "a.webp", Width: 10, Height: 5},
		},
		{
			Job: model.NewProcessingJob("in/b.png", "out", enc, 0),
			Err: model.NewJobError("in/b.png", model.ErrDecodeFailure, errors.New("bad header")),
		},
		{Job: model.NewProcessingJob("in/c.png", "out", enc, 0)},
	}
	batch := model.BatchResult{RunID: uuid.New(), Results: results}

	s := &fakeSender{fail: "in/c.png"}
	p := newWithSender(s, &config.Kafka{Topic: "derivatives"}, retry.Strategy{Attempts: 1})

	err := p.PublishBatch(context.Background(), batch)
	if err == nil {
		t.Fatal("expected error for the failing send")
	}
	if len(s.sent) != 2 {
		t.Fatalf("sent %d messages", len(s.sent))
	}

	var first, second Event
	if err := json.Unmarshal(s.sent[0].value, &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(s.sent[1].value, &second); err != nil {
		t.Fatal(err)
	}

	if first.Status != "succeeded" || first.RunID != batch.RunID.String() || len(first.Derivatives) != 1 {
		t.Fatalf("first event = %+v", first)
	}
	if second.Status != "failed" || second.Kind != "decode failure" || string(s.sent[1].key) != "in/b.png" {
		t.Fatalf("second event = %+v", second)
	}

	if err := p.Close(); err != nil || !s.closed {
		t.Fatalf("close: %v", err)
	}
}
