package main

import (
	"log/slog"

	"minuet/internal/artifacts"
	"minuet/internal/config"
	"minuet/internal/pipeline"
	"minuet/internal/services/affect"
	"minuet/internal/services/musicgen"
	"minuet/internal/services/textgen"
	"minuet/internal/services/whisper"
	"minuet/internal/stage"
)

func buildHandlers(cfg *config.Config, artStore *artifacts.Store, logger *slog.Logger) pipeline.Handlers {
	transcriber := whisper.NewService(cfg.Transcriber)
	estimator := affect.NewService(cfg.Affect)
	generator := textgen.NewClient(textgen.Config{
		APIKey:         cfg.TextGen.APIKey,
		BaseURL:        cfg.TextGen.BaseURL,
		Model:          cfg.TextGen.Model,
		TimeoutSeconds: cfg.TextGen.TimeoutSeconds,
	})

	handlers := pipeline.Handlers{
		Affect:     stage.NewAffectStage(cfg, artStore, estimator, logger),
		Transcript: stage.NewTranscriptStage(cfg, artStore, transcriber, logger),
		Summary:    stage.NewSummaryStage(cfg, artStore, generator, logger),
		Response:   stage.NewResponseStage(cfg, artStore, generator, logger),
	}
	if cfg.MusicGen.Enabled {
		music := musicgen.NewClient(musicgen.Config{
			APIKey:         cfg.MusicGen.APIKey,
			BaseURL:        cfg.MusicGen.BaseURL,
			Model:          cfg.MusicGen.Model,
			TimeoutSeconds: cfg.MusicGen.TimeoutSeconds,
		})
		handlers.Music = stage.NewMusicStage(cfg, artStore, music, logger)
	}
	return handlers
}
