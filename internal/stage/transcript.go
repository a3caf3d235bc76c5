package stage

import (
	"context"
	"log/slog"

	"minuet/internal/artifacts"
	"minuet/internal/config"
	"minuet/internal/journal"
	"minuet/internal/logging"
	"minuet/internal/services"
)

// TranscriptStage runs speech-to-text over the stored recording and writes
// the transcript artifact.
type TranscriptStage struct {
	cfg         *config.Config
	store       *artifacts.Store
	transcriber Transcriber
	logger      *slog.Logger
}

// NewTranscriptStage constructs the transcript adapter.
func NewTranscriptStage(cfg *config.Config, store *artifacts.Store, transcriber Transcriber, logger *slog.Logger) *TranscriptStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TranscriptStage{cfg: cfg, store: store, transcriber: transcriber, logger: logging.NewComponentLogger(logger, "stage-transcript")}
}

func (s *TranscriptStage) Stage() journal.Stage { return journal.StageTranscript }

func (s *TranscriptStage) Run(ctx context.Context, entry *journal.Entry) (Result, error) {
	if entry.StoragePath == "" {
		return Result{}, services.Wrap(services.ErrStage, "transcript", "run", "entry has no stored recording", nil)
	}
	res, err := s.transcriber.Transcribe(ctx, entry.StoragePath, s.cfg.Paths.StagingDir)
	if err != nil {
		return Result{}, err
	}
	payload := TranscriptPayload{
		Transcript: res.Text,
		Language:   res.Language,
		Duration:   res.Duration,
		Segments:   res.Segments,
		Words:      res.Words,
	}
	path, err := s.store.Put(artifacts.CategoryTranscript, entry.ID, payload)
	if err != nil {
		return Result{}, services.Wrap(services.ErrStage, "transcript", "store artifact", "", err)
	}
	s.logger.InfoContext(ctx, "transcript stored",
		logging.Int64(logging.FieldEntryID, entry.ID),
		logging.String("language", res.Language),
		logging.Int("segments", len(res.Segments)))
	return Result{ArtifactPath: path, Source: SourceGenerated}, nil
}

func (s *TranscriptStage) HealthCheck(context.Context) Health {
	if ok, detail := s.transcriber.HealthDetail(); !ok {
		return Unhealthy("transcript", detail)
	}
	return Healthy("transcript")
}

var _ Handler = (*TranscriptStage)(nil)
