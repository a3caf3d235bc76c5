// Package stage defines the contract the pipeline needs from each
// derivation stage and the adapters that bind external services to it.
package stage

import (
	"context"
	"errors"

	"minuet/internal/journal"
	"minuet/internal/services/affect"
	"minuet/internal/services/musicgen"
	"minuet/internal/services/whisper"
)

// Artifact provenance tags recorded alongside each stage output.
const (
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
)

// ErrUpstreamNotReady reports that the artifact a stage reads its input
// from has not been produced yet. Running such a stage is a no-op, not a
// failure: the normal chain will reach it in order, and an early retrigger
// must not mark a healthy entry failed.
var ErrUpstreamNotReady = errors.New("upstream artifact not ready")

// Result reports where a stage stored its artifact and how it was produced.
type Result struct {
	ArtifactPath string
	Source       string
}

// Handler is the contract the pipeline needs from each stage adapter.
type Handler interface {
	Stage() journal.Stage
	Run(context.Context, *journal.Entry) (Result, error)
	HealthCheck(context.Context) Health
}

// Transcriber produces speech-to-text results for a stored recording.
type Transcriber interface {
	Transcribe(ctx context.Context, source, workDir string) (*whisper.Result, error)
	HealthDetail() (bool, string)
}

// AffectEstimator produces a valence/arousal/dominance estimate for a
// stored recording.
type AffectEstimator interface {
	Estimate(ctx context.Context, source, workDir string) (*affect.Result, error)
	HealthDetail() (bool, string)
}

// TextGenerator produces a single text reply for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// MusicGenerator produces and fetches a generated accompaniment track.
type MusicGenerator interface {
	Generate(ctx context.Context, req musicgen.Request) (musicgen.Result, error)
	Download(ctx context.Context, url, dest string) error
}
