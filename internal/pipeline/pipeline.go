package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"minuet/internal/config"
	"minuet/internal/journal"
	"minuet/internal/logging"
	"minuet/internal/services"
	"minuet/internal/stage"
)

// Handlers binds one adapter per pipeline stage. Music may be nil when the
// follow-up is disabled.
type Handlers struct {
	Affect     stage.Handler
	Transcript stage.Handler
	Summary    stage.Handler
	Response   stage.Handler
	Music      stage.Handler
}

// Pipeline schedules stage executions for journal entries.
type Pipeline struct {
	cfg      *config.Config
	store    *journal.Store
	handlers Handlers
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sem     chan struct{}

	mu         sync.Mutex
	entryLocks map[int64]*entryLock
	closed     bool
}

// entryLock serializes flag updates for one entry. refs counts in-flight
// holders so the map entry can be dropped once the last one releases it.
type entryLock struct {
	mu   sync.Mutex
	refs int
}

// New constructs a pipeline. The returned pipeline accepts work until Close
// is called.
func New(cfg *config.Config, store *journal.Store, handlers Handlers, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	limit := cfg.Workflow.MaxConcurrentStages
	if limit <= 0 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		handlers:   handlers,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		baseCtx:    ctx,
		cancel:     cancel,
		sem:        make(chan struct{}, limit),
		entryLocks: make(map[int64]*entryLock),
	}
}

// Close stops accepting new work, cancels in-flight stages, and waits for
// them to unwind.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
}

// OnUpload schedules the derivation work for a freshly stored entry: affect
// and transcription run concurrently, and transcript completion chains
// summary, response, and the optional music follow-up. The call returns as
// soon as the work is scheduled; the work itself runs on the pipeline's
// own context and outlives the upload request.
func (p *Pipeline) OnUpload(entryID int64) *Job {
	job := &Job{}
	p.spawn(job, entryID, func(ctx context.Context) error {
		return p.runStage(ctx, p.handlers.Affect, entryID)
	})
	p.spawn(job, entryID, func(ctx context.Context) error {
		if err := p.runStage(ctx, p.handlers.Transcript, entryID); err != nil {
			return err
		}
		if err := p.runStage(ctx, p.handlers.Summary, entryID); err != nil {
			return err
		}
		if err := p.runStage(ctx, p.handlers.Response, entryID); err != nil {
			return err
		}
		p.runMusicFollowup(ctx, entryID)
		return nil
	})
	return job
}

// Retrigger re-runs a single stage against the entry's currently stored
// upstream artifacts. Only summary and response retriggers are supported.
// Returns services.ErrNotFound when the entry does not exist.
func (p *Pipeline) Retrigger(ctx context.Context, entryID int64, st journal.Stage) (*Job, error) {
	var handler stage.Handler
	switch st {
	case journal.StageSummary:
		handler = p.handlers.Summary
	case journal.StageResponse:
		handler = p.handlers.Response
	default:
		return nil, services.Wrap(services.ErrValidation, "pipeline", "retrigger",
			fmt.Sprintf("stage %q cannot be retriggered", st), nil)
	}
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "retrigger", "entry not found", nil)
	}

	job := &Job{}
	p.spawn(job, entryID, func(ctx context.Context) error {
		return p.runStage(ctx, handler, entryID)
	})
	return job, nil
}

// Health reports the readiness of every configured stage adapter.
func (p *Pipeline) Health(ctx context.Context) []stage.Health {
	handlers := []stage.Handler{
		p.handlers.Affect,
		p.handlers.Transcript,
		p.handlers.Summary,
		p.handlers.Response,
		p.handlers.Music,
	}
	out := make([]stage.Health, 0, len(handlers))
	for _, h := range handlers {
		if h == nil {
			continue
		}
		out = append(out, h.HealthCheck(ctx))
	}
	return out
}

func (p *Pipeline) spawn(job *Job, entryID int64, fn func(context.Context) error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		job.record(services.Wrap(services.ErrStage, "pipeline", "schedule", "pipeline is shut down", nil))
		return
	}
	p.wg.Add(1)
	job.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer job.wg.Done()
		if err := fn(p.baseCtx); err != nil {
			job.record(err)
		}
	}()
}

// runMusicFollowup runs the music stage best effort. Its outcome never
// changes entry status, so failures are logged and swallowed here rather
// than surfaced through the job.
func (p *Pipeline) runMusicFollowup(ctx context.Context, entryID int64) {
	if p.handlers.Music == nil || !p.cfg.MusicGen.Enabled {
		return
	}
	if err := p.execStage(ctx, p.handlers.Music, entryID, false); err != nil {
		p.logger.Warn("music follow-up failed",
			logging.Int64(logging.FieldEntryID, entryID),
			logging.Error(err))
	}
}

func (p *Pipeline) runStage(ctx context.Context, handler stage.Handler, entryID int64) error {
	return p.execStage(ctx, handler, entryID, true)
}

// execStage runs one stage execution. gating controls whether a failure is
// recorded against the entry; the music follow-up runs with gating false.
func (p *Pipeline) execStage(ctx context.Context, handler stage.Handler, entryID int64, gating bool) error {
	if handler == nil {
		return services.Wrap(services.ErrStage, "pipeline", "run stage", "missing stage handler", nil)
	}
	st := handler.Stage()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()

	ctx = services.WithEntryID(ctx, entryID)
	ctx = services.WithStage(ctx, string(st))
	ctx = services.WithRequestID(ctx, uuid.NewString())
	stageLogger := logging.WithContext(ctx, p.logger)

	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return services.Wrap(services.ErrNotFound, string(st), "run", "entry not found", nil)
	}

	timeout := time.Duration(p.cfg.Workflow.StageTimeoutSeconds) * time.Second
	stageCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	start := time.Now()
	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	result, runErr := handler.Run(stageCtx, entry)
	if runErr != nil {
		if errors.Is(runErr, stage.ErrUpstreamNotReady) {
			// The input artifact is not there yet. The upload chain will
			// reach this stage in order, so treat the run as a no-op.
			stageLogger.Info("stage skipped, upstream artifact not ready",
				logging.String(logging.FieldEventType, "stage_skipped"))
			return nil
		}
		if ctx.Err() != nil {
			// Shutdown, not a stage failure.
			stageLogger.Debug("stage interrupted by shutdown")
			return runErr
		}
		if stageCtx.Err() != nil && errors.Is(runErr, context.DeadlineExceeded) {
			runErr = services.Wrap(services.ErrTimeout, string(st), "run",
				fmt.Sprintf("stage exceeded %s", timeout), runErr)
		}
		if gating {
			p.recordFailure(entryID, st, runErr, stageLogger)
		}
		return runErr
	}

	bctx, bcancel := bookkeepingContext()
	defer bcancel()
	l := p.lockFor(entryID)
	l.mu.Lock()
	updated, markErr := p.store.MarkStageReady(bctx, entryID, st, result.ArtifactPath, result.Source)
	l.mu.Unlock()
	p.releaseLock(entryID)
	if markErr != nil {
		stageLogger.Error("failed to persist stage completion", logging.Error(markErr))
		return markErr
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("source", result.Source),
		logging.String("status", string(updated.Status)),
		logging.Duration("stage_duration", time.Since(start)))
	return nil
}

func (p *Pipeline) recordFailure(entryID int64, st journal.Stage, cause error, stageLogger *slog.Logger) {
	bctx, bcancel := bookkeepingContext()
	defer bcancel()
	l := p.lockFor(entryID)
	defer p.releaseLock(entryID)
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := p.store.MarkStageFailed(bctx, entryID, fmt.Sprintf("%s: %v", st, cause)); err != nil {
		stageLogger.Error("failed to persist stage failure", logging.Error(err))
		return
	}
	stageLogger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failed"),
		logging.Error(cause))
}

// bookkeepingContext bounds flag persistence independently of the stage
// context so a timed-out stage can still record its outcome.
func bookkeepingContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// lockFor returns the bookkeeping lock for an entry, creating it on first
// use. Every lockFor call must be paired with releaseLock so the map does
// not retain a mutex per entry forever.
func (p *Pipeline) lockFor(entryID int64) *entryLock {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.entryLocks[entryID]
	if !ok {
		l = &entryLock{}
		p.entryLocks[entryID] = l
	}
	l.refs++
	return l
}

func (p *Pipeline) releaseLock(entryID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.entryLocks[entryID]
	if !ok {
		return
	}
	l.refs--
	if l.refs <= 0 {
		delete(p.entryLocks, entryID)
	}
}
