package stage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"minuet/internal/artifacts"
	"minuet/internal/config"
	"minuet/internal/journal"
	"minuet/internal/logging"
	"minuet/internal/services"
	"minuet/internal/services/musicgen"
)

// MusicStage generates a closing accompaniment track once the response is
// ready. It is a follow-up: its outcome never changes entry status.
type MusicStage struct {
	cfg    *config.Config
	store  *artifacts.Store
	gen    MusicGenerator
	logger *slog.Logger
}

// NewMusicStage constructs the music adapter.
func NewMusicStage(cfg *config.Config, store *artifacts.Store, gen MusicGenerator, logger *slog.Logger) *MusicStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MusicStage{cfg: cfg, store: store, gen: gen, logger: logging.NewComponentLogger(logger, "stage-music")}
}

func (s *MusicStage) Stage() journal.Stage { return journal.StageMusic }

func (s *MusicStage) Run(ctx context.Context, entry *journal.Entry) (Result, error) {
	var summary SummaryPayload
	if err := s.store.GetInto(artifacts.CategorySummary, entry.ID, &summary); err != nil {
		return Result{}, services.Wrap(services.ErrStage, "music", "load summary", "summary artifact required", err)
	}
	var affectPayload *AffectPayload
	var loaded AffectPayload
	if err := s.store.GetInto(artifacts.CategoryAffect, entry.ID, &loaded); err == nil {
		affectPayload = &loaded
	}

	prompt := musicPrompt(summary.Summary, affectPayload)
	result, err := s.gen.Generate(ctx, musicgen.Request{
		Prompt:       prompt,
		Style:        "Ambient",
		Title:        fmt.Sprintf("Journal closing track %d", entry.ID),
		CustomMode:   true,
		Instrumental: true,
		Model:        s.cfg.MusicGen.Model,
	})
	if err != nil {
		return Result{}, err
	}

	localPath := filepath.Join(filepath.Dir(s.store.Path(artifacts.CategoryMusic, entry.ID)), fmt.Sprintf("%d.mp3", entry.ID))
	if err := s.gen.Download(ctx, result.URL(), localPath); err != nil {
		return Result{}, err
	}

	payload := MusicPayload{
		AudioURL:  result.URL(),
		LocalPath: localPath,
		Title:     result.Title,
		Prompt:    prompt,
	}
	path, err := s.store.Put(artifacts.CategoryMusic, entry.ID, payload)
	if err != nil {
		return Result{}, services.Wrap(services.ErrStage, "music", "store artifact", "", err)
	}
	s.logger.InfoContext(ctx, "music track stored",
		logging.Int64(logging.FieldEntryID, entry.ID),
		logging.String("local_path", localPath))
	return Result{ArtifactPath: path, Source: SourceGenerated}, nil
}

func (s *MusicStage) HealthCheck(context.Context) Health {
	if !s.cfg.MusicGen.Enabled {
		return Health{Name: "music", Ready: true, Detail: "disabled"}
	}
	if s.cfg.MusicGen.APIKey == "" {
		return Unhealthy("music", "enabled without api key")
	}
	return Healthy("music")
}

var _ Handler = (*MusicStage)(nil)
