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

// ResponseStage writes the empathetic reply. It requires the summary
// artifact, consults the affect artifact at the instant it builds its
// inputs, and proceeds without it when absent. Generator outages degrade to
// the summary text.
type ResponseStage struct {
	cfg    *config.Config
	store  *artifacts.Store
	gen    TextGenerator
	logger *slog.Logger
}

// NewResponseStage constructs the response adapter.
func NewResponseStage(cfg *config.Config, store *artifacts.Store, gen TextGenerator, logger *slog.Logger) *ResponseStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ResponseStage{cfg: cfg, store: store, gen: gen, logger: logging.NewComponentLogger(logger, "stage-response")}
}

func (s *ResponseStage) Stage() journal.Stage { return journal.StageResponse }

func (s *ResponseStage) Run(ctx context.Context, entry *journal.Entry) (Result, error) {
	var summary SummaryPayload
	if err := s.store.GetInto(artifacts.CategorySummary, entry.ID, &summary); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return Result{}, fmt.Errorf("response: %w", ErrUpstreamNotReady)
		}
		return Result{}, services.Wrap(services.ErrStage, "response", "load summary", "summary artifact required", err)
	}
	summaryText := summary.Summary
	if summaryText == "" {
		var transcript TranscriptPayload
		if err := s.store.GetInto(artifacts.CategoryTranscript, entry.ID, &transcript); err == nil {
			summaryText = transcript.Transcript
		}
	}

	var affectPayload *AffectPayload
	var loaded AffectPayload
	if err := s.store.GetInto(artifacts.CategoryAffect, entry.ID, &loaded); err == nil {
		affectPayload = &loaded
	}

	payload := ResponsePayload{Response: summaryText}
	source := SourceFallback
	reply, err := s.gen.Generate(ctx, responsePrompt(summaryText, affectPayload), s.cfg.TextGen.MaxTokens, s.cfg.TextGen.Temperature)
	switch {
	case err == nil:
		if text := strings.TrimSpace(reply); text != "" {
			payload = ResponsePayload{Response: text}
			source = SourceGenerated
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Result{}, err
	case errors.Is(err, services.ErrService):
		s.logger.WarnContext(ctx, "text generation unavailable, using summary as reply",
			logging.Int64(logging.FieldEntryID, entry.ID),
			logging.Error(err))
	default:
		return Result{}, err
	}

	path, err := s.store.Put(artifacts.CategoryResponse, entry.ID, payload)
	if err != nil {
		return Result{}, services.Wrap(services.ErrStage, "response", "store artifact", "", err)
	}
	s.logger.InfoContext(ctx, "response stored",
		logging.Int64(logging.FieldEntryID, entry.ID),
		logging.String("source", source),
		logging.Bool("affect_available", affectPayload != nil))
	return Result{ArtifactPath: path, Source: source}, nil
}

func (s *ResponseStage) HealthCheck(context.Context) Health {
	if s.gen == nil {
		return Unhealthy("response", "no text generator configured")
	}
	if s.cfg.TextGen.APIKey == "" {
		return Health{Name: "response", Ready: true, Detail: "no api key, fallback output only"}
	}
	return Healthy("response")
}

var _ Handler = (*ResponseStage)(nil)
