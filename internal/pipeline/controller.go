package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/recaplabs/recapd/internal/asr"
	"github.com/recaplabs/recapd/internal/config"
	"github.com/recaplabs/recapd/internal/intake"
	"github.com/recaplabs/recapd/internal/job"
)

// Summarizer is the summarization stage contract.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (job.StructuredSummary, error)
}

// Notifier publishes job lifecycle transitions for interested listeners.
type Notifier interface {
	PublishJobEvent(j job.Job)
}

// EventLog records job lifecycle entries in the audit trail.
type EventLog interface {
	Append(ctx context.Context, j job.Job, note string) error
}

// Controller drives each job through intake, transcription and
// summarization. It is the only component that mutates job state, and the
// only place retries are applied.
type Controller struct {
	cfg        config.Config
	store      *job.Store
	uploads    *intake.Store
	recognizer asr.Recognizer
	summarizer Summarizer
	lease      *AcceleratorLease
	notifier   Notifier
	events     EventLog
	metrics    *pipelineMetrics
	logger     *slog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewController(parent context.Context, cfg config.Config, store *job.Store, uploads *intake.Store,
	recognizer asr.Recognizer, summarizer Summarizer, logger *slog.Logger) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		cfg:        cfg,
		store:      store,
		uploads:    uploads,
		recognizer: recognizer,
		summarizer: summarizer,
		lease:      NewAcceleratorLease(time.Duration(cfg.ASR.LeaseWaitMS) * time.Millisecond),
		logger:     logger.With(slog.String("component", "pipeline")),
		ctx:        ctx,
		cancel:     cancel,
	}
	m, err := newPipelineMetrics()
	if err != nil {
		c.logger.Warn("failed to initialize pipeline metrics", slogError(err))
	} else {
		c.metrics = m
	}
	return c
}

// SetNotifier attaches an optional lifecycle event publisher.
func (c *Controller) SetNotifier(n Notifier) { c.notifier = n }

// SetEventLog attaches an optional audit trail.
func (c *Controller) SetEventLog(e EventLog) { c.events = e }

// Start launches the retention sweeper.
func (c *Controller) Start() {
	c.wg.Add(1)
	go c.sweep()
}

// Close interrupts in-flight stages and waits for workers to exit.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// Submit validates and stages an upload, registers the job, and starts its
// worker. Validation failures surface directly; no job record is created.
func (c *Controller) Submit(data []byte, filename string) (job.Job, error) {
	staged, err := c.uploads.Accept(data, filename)
	if err != nil {
		return job.Job{}, err
	}

	j := c.store.Create(staged.Filename, staged.Path)
	c.logger.Info("job accepted",
		slog.String("job_id", j.ID),
		slog.String("filename", j.Filename))
	c.emit(j, "accepted")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(j.ID)
	}()
	return j, nil
}

// Status returns a stable snapshot of the job and its artifacts so far.
func (c *Controller) Status(id string) (job.Job, error) {
	return c.store.Snapshot(id)
}

// run executes the full stage sequence for one job.
func (c *Controller) run(id string) {
	if err := c.store.Transition(id, job.StateTranscribing); err != nil {
		c.logger.Error("cannot start transcription", slog.String("job_id", id), slogError(err))
		return
	}
	c.emitByID(id, "transcribing")

	transcript, err := c.transcribe(id)
	if err != nil {
		c.fail(id, err)
		return
	}

	if err := c.store.Transition(id, job.StateSummarizing); err != nil {
		c.logger.Error("cannot start summarization", slog.String("job_id", id), slogError(err))
		return
	}
	c.emitByID(id, "summarizing")

	structured, elapsed, err := c.summarize(transcript.Text)
	if err != nil {
		c.fail(id, err)
		return
	}

	if err := c.store.Complete(id, structured, elapsed); err != nil {
		c.logger.Error("cannot complete job", slog.String("job_id", id), slogError(err))
		return
	}
	c.metrics.recordCompleted(c.ctx)
	c.metrics.recordStage(c.ctx, "summarization", elapsed.Seconds())
	c.logger.Info("job completed", slog.String("job_id", id))
	c.emitByID(id, "completed")
	c.reclaim(id)
}

// transcribe runs the recognition stage under the accelerator lease. The
// lease covers only the inference call and is released on every path.
func (c *Controller) transcribe(id string) (job.Transcript, error) {
	snap, err := c.store.Snapshot(id)
	if err != nil {
		return job.Transcript{}, err
	}

	stageCtx, cancel := context.WithTimeout(c.ctx, time.Duration(c.cfg.ASR.TimeoutMS)*time.Millisecond)
	defer cancel()

	release, err := c.lease.Acquire(stageCtx)
	if err != nil {
		return job.Transcript{}, err
	}

	start := time.Now()
	result, err := c.recognizer.Transcribe(stageCtx, snap.SourcePath)
	release()
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, job.ErrTimeout) {
			err = errors.Join(job.ErrTimeout, err)
		}
		return job.Transcript{}, err
	}

	transcript := job.Transcript{
		Text:            result.Text,
		DurationSeconds: result.DurationSeconds,
		Language:        result.Language,
	}
	if err := c.store.StoreTranscript(id, transcript, elapsed); err != nil {
		return job.Transcript{}, err
	}
	c.metrics.recordStage(c.ctx, "transcription", elapsed.Seconds())
	c.logger.Info("transcription complete",
		slog.String("job_id", id),
		slog.Duration("elapsed", elapsed),
		slog.Int("chars", len(result.Text)))
	return transcript, nil
}

// summarize runs the summarization stage with bounded retries for transient
// service unavailability. All other failures are permanent.
func (c *Controller) summarize(transcript string) (job.StructuredSummary, time.Duration, error) {
	stageCtx, cancel := context.WithTimeout(c.ctx, time.Duration(c.cfg.LLM.TimeoutMS)*time.Millisecond)
	defer cancel()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Duration(c.cfg.Pipeline.RetryBackoffMS) * time.Millisecond

	start := time.Now()
	structured, err := backoff.Retry(stageCtx, func() (job.StructuredSummary, error) {
		s, err := c.summarizer.Summarize(stageCtx, transcript)
		if err != nil && !errors.Is(err, job.ErrSummaryUnavailable) {
			return job.StructuredSummary{}, backoff.Permanent(err)
		}
		return s, err
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(c.cfg.Pipeline.SummarizeAttempts)))
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, job.ErrTimeout) {
			err = errors.Join(job.ErrTimeout, err)
		}
		return job.StructuredSummary{}, elapsed, err
	}
	return structured, elapsed, nil
}

// fail moves the job to its terminal failure state, keeping any artifact an
// earlier stage produced.
func (c *Controller) fail(id string, cause error) {
	code := job.Classify(cause)
	if err := c.store.Fail(id, code, cause.Error()); err != nil {
		c.logger.Error("cannot record failure", slog.String("job_id", id), slogError(err))
		return
	}
	c.metrics.recordFailed(c.ctx, string(code))
	c.logger.Warn("job failed",
		slog.String("job_id", id),
		slog.String("code", string(code)),
		slogError(cause))
	c.emitByID(id, "failed")
	c.reclaim(id)
}

// reclaim removes the job's staged audio once it is terminal. The in-memory
// record stays until the retention sweep so callers can still poll it.
func (c *Controller) reclaim(id string) {
	snap, err := c.store.Snapshot(id)
	if err != nil {
		return
	}
	c.uploads.Discard(snap.SourcePath)
}

// sweep drops terminal jobs past the retention window.
func (c *Controller) sweep() {
	defer c.wg.Done()
	interval := time.Duration(c.cfg.Pipeline.SweepIntervalMS) * time.Millisecond
	retention := time.Duration(c.cfg.Pipeline.RetentionMS) * time.Millisecond

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			for _, expired := range c.store.Expired(retention) {
				c.uploads.Discard(expired.SourcePath)
				if err := c.store.Remove(expired.ID); err != nil {
					c.logger.Warn("sweep failed to remove job",
						slog.String("job_id", expired.ID), slogError(err))
					continue
				}
				c.logger.Info("job reclaimed", slog.String("job_id", expired.ID))
			}
		}
	}
}

func (c *Controller) emitByID(id, note string) {
	snap, err := c.store.Snapshot(id)
	if err != nil {
		return
	}
	c.emit(snap, note)
}

func (c *Controller) emit(j job.Job, note string) {
	if c.notifier != nil {
		c.notifier.PublishJobEvent(j)
	}
	if c.events != nil {
		if err := c.events.Append(c.ctx, j, note); err != nil {
			c.logger.Warn("failed to append job event", slog.String("job_id", j.ID), slogError(err))
		}
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
