package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"minuet/internal/artifacts"
	"minuet/internal/config"
	"minuet/internal/journal"
	"minuet/internal/logging"
	"minuet/internal/services"
)

// SummaryStage condenses the transcript into a short supportive summary.
// Generator outages degrade to the transcript text instead of failing the
// entry: the summary is enrichment, not a hard dependency.
type SummaryStage struct {
	cfg    *config.Config
	store  *artifacts.Store
	gen    TextGenerator
	logger *slog.Logger
}

// NewSummaryStage constructs the summary adapter.
func NewSummaryStage(cfg *config.Config, store *artifacts.Store, gen TextGenerator, logger *slog.Logger) *SummaryStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SummaryStage{cfg: cfg, store: store, gen: gen, logger: logging.NewComponentLogger(logger, "stage-summary")}
}

func (s *SummaryStage) Stage() journal.Stage { return journal.StageSummary }

func (s *SummaryStage) Run(ctx context.Context, entry *journal.Entry) (Result, error) {
	var transcript TranscriptPayload
	if err := s.store.GetInto(artifacts.CategoryTranscript, entry.ID, &transcript); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return Result{}, fmt.Errorf("summary: %w", ErrUpstreamNotReady)
		}
		return Result{}, services.Wrap(services.ErrStage, "summary", "load transcript", "transcript artifact required", err)
	}

	payload := SummaryPayload{Summary: transcript.Transcript, SummarySource: SourceFallback}
	reply, err := s.gen.Generate(ctx, summaryPrompt(transcript.Transcript), s.cfg.TextGen.MaxTokens, s.cfg.TextGen.Temperature)
	switch {
	case err == nil:
		if text := strings.TrimSpace(reply); text != "" {
			payload = SummaryPayload{Summary: text, SummarySource: SourceGenerated}
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Result{}, err
	case errors.Is(err, services.ErrService):
		s.logger.WarnContext(ctx, "text generation unavailable, using transcript as summary",
			logging.Int64(logging.FieldEntryID, entry.ID),
			logging.Error(err))
	default:
		return Result{}, err
	}

	path, err := s.store.Put(artifacts.CategorySummary, entry.ID, payload)
	if err != nil {
		return Result{}, services.Wrap(services.ErrStage, "summary", "store artifact", "", err)
	}
	s.logger.InfoContext(ctx, "summary stored",
		logging.Int64(logging.FieldEntryID, entry.ID),
		logging.String("source", payload.SummarySource))
	return Result{ArtifactPath: path, Source: payload.SummarySource}, nil
}

func (s *SummaryStage) HealthCheck(context.Context) Health {
	if s.gen == nil {
		return Unhealthy("summary", "no text generator configured")
	}
	if s.cfg.TextGen.APIKey == "" {
		return Health{Name: "summary", Ready: true, Detail: "no api key, fallback output only"}
	}
	return Healthy("summary")
}

var _ Handler = (*SummaryStage)(nil)
