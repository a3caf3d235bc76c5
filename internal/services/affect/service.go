package affect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"minuet/internal/config"
	"minuet/internal/services"
)

// Service wraps the wav2vec2 affect-estimation CLI, which scores a recording
// on the valence/arousal/dominance dimensions and writes the triple as JSON.
type Service struct {
	cfg           config.Affect
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates an affect-estimation service with the given configuration.
func NewService(cfg config.Affect) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Triple is the dimensional emotion estimate. Values are conventionally in
// [0, 1] but are passed through unclamped; range policy belongs to consumers.
type Triple struct {
	Valence   float64 `json:"valence"`
	Arousal   float64 `json:"arousal"`
	Dominance float64 `json:"dominance"`
}

// Result is the parsed output of one estimation run.
type Result struct {
	DurationMS float64 `json:"duration"`
	VAD        Triple  `json:"vad"`
}

// Estimate scores the recording at source. workDir holds the JSON the binary
// writes.
func (s *Service) Estimate(ctx context.Context, source, workDir string) (*Result, error) {
	if strings.TrimSpace(source) == "" {
		return nil, services.Wrap(services.ErrStage, "affect", "estimate", "source path required", nil)
	}
	if workDir == "" {
		workDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("estimate: ensure work dir: %w", err)
	}

	outPath := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))+".vad.json")
	args := []string{
		source,
		"--model", s.cfg.Model,
		"--device", s.cfg.Device,
		"--output", outPath,
	}
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "affect", "estimate", "collaborator call timed out", err)
		}
		return nil, services.Wrap(services.ErrStage, "affect", "estimate", "affect estimation failed", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, services.Wrap(services.ErrStage, "affect", "read output", outPath, err)
	}
	result := &Result{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, services.Wrap(services.ErrStage, "affect", "parse output", outPath, err)
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// HealthDetail reports whether the estimation binary is reachable.
func (s *Service) HealthDetail() (bool, string) {
	if _, err := exec.LookPath(s.cfg.Binary); err != nil {
		return false, fmt.Sprintf("%s not found on PATH", s.cfg.Binary)
	}
	return true, ""
}
