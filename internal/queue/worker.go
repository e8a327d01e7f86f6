package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fmueller/xxlasr/internal/engine"
	"go.uber.org/zap"
)

// Engine is the part of *engine.Engine the worker depends on.
type Engine interface {
	Transcribe(ctx context.Context, req engine.Request) (engine.Result, error)
	DetectLanguage(ctx context.Context, audioPath string) engine.LanguageResult
}

type Publisher interface {
	PublishResult(ctx context.Context, result Result) error
}

type WorkerOptions struct {
	Engine    Engine
	Publisher Publisher
	Workers   int
	Logger    *zap.Logger
}

type Worker struct {
	engine    Engine
	publisher Publisher
	workers   int
	logger    *zap.Logger
	now       func() time.Time
}

func NewWorker(opts WorkerOptions) (*Worker, error) {
	if opts.Engine == nil {
		return nil, errors.New("worker requires an engine")
	}
	if opts.Publisher == nil {
		return nil, errors.New("worker requires a result publisher")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Worker{
		engine:    opts.Engine,
		publisher: opts.Publisher,
		workers:   workers,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// ErrDeliveriesClosed is returned by Run when the delivery channel closes
// while ctx is still live, typically because the broker dropped the
// connection.
var ErrDeliveriesClosed = errors.New("job deliveries closed unexpectedly")

// Run processes deliveries on the configured number of goroutines until
// the channel is closed or ctx is done. It returns after every in-flight
// job is settled, with ErrDeliveriesClosed if the channel closed first.
func (w *Worker) Run(ctx context.Context, deliveries <-chan Delivery) error {
	var wg sync.WaitGroup
	for id := 0; id < w.workers; id++ {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx, id, deliveries)
		}()
	}
	w.logger.Info("workers ready", zap.Int("workers", w.workers))
	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	return ErrDeliveriesClosed
}

func (w *Worker) loop(ctx context.Context, id int, deliveries <-chan Delivery) {
	logger := w.logger.With(zap.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.process(ctx, logger, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, logger *zap.Logger, d Delivery) {
	logger = logger.With(zap.String("job_id", d.Job.ID))
	logger.Debug("job received", zap.String("audio_path", d.Job.AudioPath))

	result := w.Handle(ctx, d.Job)
	if result.Success {
		logger.Info("job done", zap.Float64("duration_s", result.Duration))
	} else {
		logger.Warn("job failed", zap.String("error", result.ErrorMessage))
	}

	if err := w.publisher.PublishResult(ctx, result); err != nil {
		logger.Error("publish result failed, requeueing job", zap.Error(err))
		if nackErr := d.Acker.Nack(false, true); nackErr != nil {
			logger.Error("nack failed", zap.Error(nackErr))
		}
		return
	}

	if err := d.Acker.Ack(false); err != nil {
		logger.Error("ack failed", zap.Error(err))
	}
}

// Handle runs one job against the engine. Failures are reported in the
// returned Result and never retried.
func (w *Worker) Handle(ctx context.Context, job Job) Result {
	started := w.now()
	result := w.handle(ctx, job)
	result.ID = job.ID
	result.Duration = w.now().Sub(started).Seconds()
	return result
}

func (w *Worker) handle(ctx context.Context, job Job) Result {
	if job.AudioPath == "" {
		return failure(errors.New("audio_path is required"))
	}
	if _, err := os.Stat(job.AudioPath); err != nil {
		return failure(fmt.Errorf("audio file not found: %s", job.AudioPath))
	}

	if job.DetectLanguage {
		detected := w.engine.DetectLanguage(ctx, job.AudioPath)
		return Result{
			Success:      true,
			LanguageCode: detected.Code,
			Confidence:   detected.Confidence,
		}
	}

	task, err := engine.ParseTask(job.Task)
	if err != nil {
		return failure(err)
	}

	transcript, err := w.engine.Transcribe(ctx, engine.Request{
		AudioPath:      job.AudioPath,
		Task:           task,
		Language:       job.Language,
		InitialPrompt:  job.InitialPrompt,
		VADFilter:      job.VADFilter,
		WordTimestamps: job.WordTimestamps,
		Output:         job.Output,
	})
	if err != nil {
		return failure(err)
	}

	return Result{
		Success:      true,
		Text:         transcript.Text,
		Format:       string(transcript.Format),
		LanguageCode: job.Language,
	}
}

func failure(err error) Result {
	return Result{Success: false, ErrorMessage: err.Error()}
}
