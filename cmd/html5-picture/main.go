package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/html5-picture/internal/batch"
	"github.com/aliskhannn/html5-picture/internal/config"
	"github.com/aliskhannn/html5-picture/internal/encoder"
	"github.com/aliskhannn/html5-picture/internal/infra/kafka/producer"
	"github.com/aliskhannn/html5-picture/internal/manifest"
	"github.com/aliskhannn/html5-picture/internal/mirror"
	"github.com/aliskhannn/html5-picture/internal/model"
	"github.com/aliskhannn/html5-picture/internal/picture"
	"github.com/aliskhannn/html5-picture/internal/processor"
	"github.com/aliskhannn/html5-picture/internal/progress"
	"github.com/aliskhannn/html5-picture/internal/scan"
	"github.com/aliskhannn/html5-picture/internal/storage/file"
	"github.com/aliskhannn/html5-picture/internal/storage/object"
)

func main() {
	// Context & signals: canceling stops jobs that have not started yet.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()

	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		zlog.Logger.Fatal().Err(err).Msg("failed to parse flags")
	}
	cfg := config.MustLoad(flags)

	// Retry strategy for object storage and Kafka calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Discover source images and build one job per image.
	sources, err := scan.Discover(cfg.Input.Dir, cfg.Input.Extensions)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Str("dir", cfg.Input.Dir).Msg("failed to scan input directory")
	}
	enc := cfg.EncodeParameters()
	jobs := scan.Jobs(sources, cfg.Output.Dir, enc, cfg.Scale.Count)

	zlog.Logger.Info().
		Int("images", len(jobs)).
		Str("output", cfg.Output.Dir).
		Str("format", string(enc.Format)).
		Int("quality", enc.Quality).
		Int("scale", cfg.Scale.Count).
		Msg("images found")

	// Initialize the encoder for the configured format and the processor.
	e, err := encoder.ForFormat(enc.Format)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize encoder")
	}
	imageProcessor := processor.New(file.NewStorage(""), map[model.Format]processor.Encoder{enc.Format: e})

	// Drain progress events in a separate goroutine.
	events := make(chan progress.Event, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		drain(events)
	}()

	coordinator := batch.New(imageProcessor, batch.Options{
		SingleThreaded: cfg.Batch.SingleThreaded,
		Concurrency:    cfg.Batch.Concurrency,
	}, progress.Channel(events))

	res := coordinator.Run(ctx, jobs)
	close(events)
	wg.Wait()

	// Side outputs: manifest, picture fragments, object storage, events.
	if cfg.Output.Manifest != "" {
		if err := manifest.Write(cfg.Output.Manifest, manifest.New(res, time.Now())); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to write manifest")
		}
	}

	if cfg.Picture.Dir != "" {
		w := picture.Writer{
			InputRoot:      cfg.Input.Dir,
			Dir:            cfg.Picture.Dir,
			Mountpoint:     cfg.Picture.Mountpoint,
			ForceOverwrite: cfg.Picture.ForceOverwrite,
		}
		n, err := w.WriteAll(res.Results)
		if err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to write picture tags")
		}
		zlog.Logger.Info().Int("files", n).Str("dir", cfg.Picture.Dir).Msg("picture tags written")
	}

	if cfg.Storage.Enabled {
		mirrorResults(ctx, cfg, strategy, res)
	}

	if cfg.Kafka.Enabled {
		publishResults(ctx, cfg, strategy, res)
	}

	zlog.Logger.Info().
		Str("run_id", res.RunID.String()).
		Int("total", res.Summary.Total).
		Int("succeeded", res.Summary.Succeeded).
		Int("failed", res.Summary.Failed).
		Int("files", res.Summary.Files).
		Msg("done")

	if res.Summary.Failed > 0 {
		stop()
		os.Exit(1)
	}
}

// drain logs every event and prints an overall counter each time a job finishes.
func drain(events <-chan progress.Event) {
	tracker := progress.NewTracker()
	sink := progress.Multi{tracker, progress.Log{}}

	for e := range events {
		sink.Emit(e)

		if e.Kind == progress.KindJobSucceeded || e.Kind == progress.KindJobFailed {
			s := tracker.Stats()
			zlog.Logger.Info().
				Int("done", s.Done()).
				Int("started", s.Started).
				Int("files", s.Files).
				Msg("progress")
		}
	}
}

func mirrorResults(ctx context.Context, cfg *config.Config, strategy retry.Strategy, res model.BatchResult) {
	storage, err := object.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to connect to storage")
		return
	}

	m := mirror.New(storage, strategy, cfg.Output.Dir, cfg.Storage.Prefix)
	if _, err := m.Sync(ctx, res.Results); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to mirror derivatives")
	}
}

func publishResults(ctx context.Context, cfg *config.Config, strategy retry.Strategy, res model.BatchResult) {
	p := producer.New(&cfg.Kafka, strategy)
	defer func() {
		if err := p.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}()

	if err := p.PublishBatch(ctx, res); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to publish job events")
	}
}
