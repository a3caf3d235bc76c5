// Package testsupport provides shared helpers for package tests: temp-dir
// configurations, store construction, and stub collaborators.
package testsupport

import (
	"path/filepath"
	"testing"

	"minuet/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.TextGen.APIKey = "test"
	cfg.MusicGen.Enabled = false

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithTextGenKey sets the text-generation API key on the test config.
func WithTextGenKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.TextGen.APIKey = key
	}
}

// WithMusicEnabled turns on the music follow-up stage for the test config.
func WithMusicEnabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.MusicGen.Enabled = true
		cfg.MusicGen.APIKey = "test"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
