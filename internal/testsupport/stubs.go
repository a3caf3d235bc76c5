package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"minuet/internal/services/affect"
	"minuet/internal/services/musicgen"
	"minuet/internal/services/whisper"
)

// StubTranscriber returns a canned transcription result or error.
type StubTranscriber struct {
	Result *whisper.Result
	Err    error
	Calls  atomic.Int64
}

func (s *StubTranscriber) Transcribe(ctx context.Context, source, workDir string) (*whisper.Result, error) {
	s.Calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		return s.Result, nil
	}
	return &whisper.Result{Text: "stub transcript", Language: "en"}, nil
}

func (s *StubTranscriber) HealthDetail() (bool, string) { return s.Err == nil, "" }

// StubAffectEstimator returns a canned affect estimate or error.
type StubAffectEstimator struct {
	Result *affect.Result
	Err    error
	Calls  atomic.Int64
}

func (s *StubAffectEstimator) Estimate(ctx context.Context, source, workDir string) (*affect.Result, error) {
	s.Calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result != nil {
		return s.Result, nil
	}
	return &affect.Result{
		DurationMS: 4200,
		VAD:        affect.Triple{Valence: 0.62, Arousal: 0.35, Dominance: 0.55},
	}, nil
}

func (s *StubAffectEstimator) HealthDetail() (bool, string) { return s.Err == nil, "" }

// StubTextGenerator returns a canned reply or error. GenerateFunc overrides
// the canned behavior when set.
type StubTextGenerator struct {
	Reply        string
	Err          error
	GenerateFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
	Calls        atomic.Int64

	mu         sync.Mutex
	lastPrompt string
}

// LastPrompt reports the prompt from the most recent Generate call.
func (s *StubTextGenerator) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrompt
}

func (s *StubTextGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	s.Calls.Add(1)
	s.mu.Lock()
	s.lastPrompt = prompt
	s.mu.Unlock()
	if s.GenerateFunc != nil {
		return s.GenerateFunc(ctx, prompt, maxTokens, temperature)
	}
	if s.Err != nil {
		return "", s.Err
	}
	if s.Reply != "" {
		return s.Reply, nil
	}
	return "stub reply", nil
}

// StubMusicGenerator returns a canned track and records downloads as empty
// files at the requested destination.
type StubMusicGenerator struct {
	URL         string
	GenerateErr error
	DownloadErr error
	Calls       atomic.Int64
}

func (s *StubMusicGenerator) Generate(ctx context.Context, req musicgen.Request) (musicgen.Result, error) {
	s.Calls.Add(1)
	if s.GenerateErr != nil {
		return musicgen.Result{}, s.GenerateErr
	}
	url := s.URL
	if url == "" {
		url = "https://example.com/track.mp3"
	}
	return musicgen.Result{AudioURL: url, Title: "stub track"}, nil
}

func (s *StubMusicGenerator) Download(ctx context.Context, url, dest string) error {
	if s.DownloadErr != nil {
		return s.DownloadErr
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("stub-audio"), 0o644)
}
