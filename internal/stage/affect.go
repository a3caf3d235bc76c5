package stage

import (
	"context"
	"log/slog"
	"os"
	"time"

	"minuet/internal/artifacts"
	"minuet/internal/config"
	"minuet/internal/journal"
	"minuet/internal/logging"
	"minuet/internal/services"
)

// AffectStage runs the voice-affect estimator over the stored recording and
// writes the affect artifact.
type AffectStage struct {
	cfg       *config.Config
	store     *artifacts.Store
	estimator AffectEstimator
	logger    *slog.Logger
}

// NewAffectStage constructs the affect adapter.
func NewAffectStage(cfg *config.Config, store *artifacts.Store, estimator AffectEstimator, logger *slog.Logger) *AffectStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AffectStage{cfg: cfg, store: store, estimator: estimator, logger: logging.NewComponentLogger(logger, "stage-affect")}
}

func (s *AffectStage) Stage() journal.Stage { return journal.StageAffect }

func (s *AffectStage) Run(ctx context.Context, entry *journal.Entry) (Result, error) {
	if entry.StoragePath == "" {
		return Result{}, services.Wrap(services.ErrStage, "affect", "run", "entry has no stored recording", nil)
	}
	est, err := s.estimator.Estimate(ctx, entry.StoragePath, s.cfg.Paths.StagingDir)
	if err != nil {
		return Result{}, err
	}
	payload := AffectPayload{
		DurationMS:   est.DurationMS,
		VAD:          est.VAD,
		RecordedDate: recordedDate(entry.StoragePath),
	}
	path, err := s.store.Put(artifacts.CategoryAffect, entry.ID, payload)
	if err != nil {
		return Result{}, services.Wrap(services.ErrStage, "affect", "store artifact", "", err)
	}
	s.logger.InfoContext(ctx, "affect estimate stored",
		logging.Int64(logging.FieldEntryID, entry.ID),
		logging.Float64("valence", est.VAD.Valence),
		logging.Float64("arousal", est.VAD.Arousal),
		logging.Float64("dominance", est.VAD.Dominance))
	return Result{ArtifactPath: path, Source: SourceGenerated}, nil
}

func (s *AffectStage) HealthCheck(context.Context) Health {
	if ok, detail := s.estimator.HealthDetail(); !ok {
		return Unhealthy("affect", detail)
	}
	return Healthy("affect")
}

// recordedDate reports the calendar date of the recording from file mtime,
// falling back to today when the file cannot be inspected.
func recordedDate(path string) string {
	if info, err := os.Stat(path); err == nil {
		return info.ModTime().UTC().Format("2006-01-02")
	}
	return time.Now().UTC().Format("2006-01-02")
}

var _ Handler = (*AffectStage)(nil)
