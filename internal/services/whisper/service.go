package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"minuet/internal/config"
	"minuet/internal/services"
)

// Service wraps the faster-whisper transcription CLI. The binary decodes the
// input container via ffmpeg, runs speech-to-text, and writes a single JSON
// document with text, segment, and word timing to the requested output path.
type Service struct {
	cfg           config.Transcriber
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcription service with the given configuration.
func NewService(cfg config.Transcriber) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Segment is one timed span of recognized speech.
type Segment struct {
	ID               int     `json:"id"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	AvgLogprob       float64 `json:"avg_logprob"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	CompressionRatio float64 `json:"compression_ratio"`
}

// Word is one recognized word with timing and confidence.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Prob  float64 `json:"prob"`
}

// Result is the parsed output of one transcription run.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
	Words    []Word    `json:"words"`
}

// Transcribe runs speech-to-text over the recording at source. workDir holds
// the intermediate JSON the binary writes. Decode failures surface as stage
// errors: an unreadable container is not retryable for this invocation.
func (s *Service) Transcribe(ctx context.Context, source, workDir string) (*Result, error) {
	if strings.TrimSpace(source) == "" {
		return nil, services.Wrap(services.ErrStage, "transcript", "transcribe", "source path required", nil)
	}
	if workDir == "" {
		workDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure work dir: %w", err)
	}

	outPath := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))+".json")
	args := s.buildArgs(source, outPath)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "transcript", "transcribe", "collaborator call timed out", err)
		}
		return nil, services.Wrap(services.ErrStage, "transcript", "transcribe", "speech-to-text failed", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, services.Wrap(services.ErrStage, "transcript", "read output", outPath, err)
	}
	result := &Result{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, services.Wrap(services.ErrStage, "transcript", "parse output", outPath, err)
	}
	result.Text = strings.TrimSpace(result.Text)
	return result, nil
}

func (s *Service) buildArgs(source, outPath string) []string {
	args := []string{
		source,
		"--model", s.cfg.Model,
		"--device", s.cfg.Device,
		"--compute_type", s.cfg.Compute,
		"--beam_size", strconv.Itoa(s.cfg.BeamSize),
		"--word_timestamps",
		"--output", outPath,
	}
	if s.cfg.VADFilter {
		args = append(args, "--vad_filter")
	}
	if s.cfg.Language != "" {
		args = append(args, "--language", s.cfg.Language)
	}
	return args
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

// HealthDetail reports whether the transcription binary is reachable.
func (s *Service) HealthDetail() (bool, string) {
	if _, err := exec.LookPath(s.cfg.Binary); err != nil {
		return false, fmt.Sprintf("%s not found on PATH", s.cfg.Binary)
	}
	return true, ""
}
