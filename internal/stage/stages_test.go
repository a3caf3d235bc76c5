package stage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"minuet/internal/artifacts"
	"minuet/internal/config"
	"minuet/internal/journal"
	"minuet/internal/services"
	"minuet/internal/services/affect"
	"minuet/internal/testsupport"
)

func seedEntry(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, *artifacts.Store, *journal.Entry) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := artifacts.NewStore(cfg)
	dbStore := testsupport.MustOpenStore(t, cfg)
	entry := testsupport.NewEntry(t, dbStore, "morning.wav", "user-1", "session-1")

	audioPath := store.AudioPath(entry.ID, entry.Filename)
	testsupport.WriteFile(t, audioPath, 64)
	if err := dbStore.SetStoragePath(context.Background(), entry.ID, audioPath); err != nil {
		t.Fatalf("SetStoragePath: %v", err)
	}
	entry.StoragePath = audioPath
	return cfg, store, entry
}

func TestAffectStageStoresEstimate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := artifacts.NewStore(cfg)
	dbStore := testsupport.MustOpenStore(t, cfg)
	entry := testsupport.NewEntry(t, dbStore, "morning.wav", "user-1", "session-1")
	audioPath := store.AudioPath(entry.ID, entry.Filename)
	testsupport.WriteFile(t, audioPath, 64)
	entry.StoragePath = audioPath

	estimator := &testsupport.StubAffectEstimator{
		Result: &affect.Result{DurationMS: 1234, VAD: affect.Triple{Valence: 0.8, Arousal: 0.2, Dominance: 0.6}},
	}
	st := NewAffectStage(cfg, store, estimator, nil)
	result, err := st.Run(context.Background(), entry)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Source != SourceGenerated {
		t.Fatalf("unexpected source %q", result.Source)
	}

	var payload AffectPayload
	if err := store.GetInto(artifacts.CategoryAffect, entry.ID, &payload); err != nil {
		t.Fatalf("load affect artifact: %v", err)
	}
	if payload.VAD.Valence != 0.8 || payload.DurationMS != 1234 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.RecordedDate == "" {
		t.Fatal("expected recorded_date to be set")
	}
}

func TestTranscriptStagePropagatesFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := artifacts.NewStore(cfg)
	entry := &journal.Entry{ID: 7, StoragePath: "/nope/missing.wav"}

	transcriber := &testsupport.StubTranscriber{
		Err: services.Wrap(services.ErrStage, "transcript", "run", "binary exploded", nil),
	}
	st := NewTranscriptStage(cfg, store, transcriber, nil)
	if _, err := st.Run(context.Background(), entry); !errors.Is(err, services.ErrStage) {
		t.Fatalf("expected stage error, got %v", err)
	}
}

func TestSummaryStageGenerated(t *testing.T) {
	cfg, store, entry := seedEntry(t)
	if _, err := store.Put(artifacts.CategoryTranscript, entry.ID, TranscriptPayload{Transcript: "I had a long day."}); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	gen := &testsupport.StubTextGenerator{Reply: "A long but meaningful day."}
	st := NewSummaryStage(cfg, store, gen, nil)
	result, err := st.Run(context.Background(), entry)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Source != SourceGenerated {
		t.Fatalf("unexpected source %q", result.Source)
	}
	var payload SummaryPayload
	if err := store.GetInto(artifacts.CategorySummary, entry.ID, &payload); err != nil {
		t.Fatalf("load summary artifact: %v", err)
	}
	if payload.Summary != "A long but meaningful day." || payload.SummarySource != SourceGenerated {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if !strings.Contains(gen.LastPrompt(), "I had a long day.") {
		t.Fatal("expected prompt to carry transcript text")
	}
}

func TestSummaryStageFallsBackOnServiceError(t *testing.T) {
	cfg, store, entry := seedEntry(t)
	if _, err := store.Put(artifacts.CategoryTranscript, entry.ID, TranscriptPayload{Transcript: "The rain would not stop."}); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	gen := &testsupport.StubTextGenerator{
		Err: services.Wrap(services.ErrService, "textgen", "generate", "unreachable", nil),
	}
	st := NewSummaryStage(cfg, store, gen, nil)
	result, err := st.Run(context.Background(), entry)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Source != SourceFallback {
		t.Fatalf("unexpected source %q", result.Source)
	}
	var payload SummaryPayload
	if err := store.GetInto(artifacts.CategorySummary, entry.ID, &payload); err != nil {
		t.Fatalf("load summary artifact: %v", err)
	}
	if payload.Summary != "The rain would not stop." || payload.SummarySource != SourceFallback {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestSummaryStageReportsMissingTranscript(t *testing.T) {
	cfg, store, entry := seedEntry(t)

	gen := &testsupport.StubTextGenerator{}
	st := NewSummaryStage(cfg, store, gen, nil)
	if _, err := st.Run(context.Background(), entry); !errors.Is(err, ErrUpstreamNotReady) {
		t.Fatalf("expected upstream-not-ready without transcript, got %v", err)
	}
	if gen.Calls.Load() != 0 {
		t.Fatal("generator must not run without the transcript")
	}
}

func TestResponseStageReportsMissingSummary(t *testing.T) {
	cfg, store, entry := seedEntry(t)

	st := NewResponseStage(cfg, store, &testsupport.StubTextGenerator{}, nil)
	if _, err := st.Run(context.Background(), entry); !errors.Is(err, ErrUpstreamNotReady) {
		t.Fatalf("expected upstream-not-ready without summary, got %v", err)
	}
}

func TestResponseStageUsesAffectWhenPresent(t *testing.T) {
	cfg, store, entry := seedEntry(t)
	if _, err := store.Put(artifacts.CategorySummary, entry.ID, SummaryPayload{Summary: "A hard day at work.", SummarySource: SourceGenerated}); err != nil {
		t.Fatalf("seed summary: %v", err)
	}
	if _, err := store.Put(artifacts.CategoryAffect, entry.ID, AffectPayload{
		VAD: affect.Triple{Valence: 0.3, Arousal: 0.7, Dominance: 0.4},
	}); err != nil {
		t.Fatalf("seed affect: %v", err)
	}

	gen := &testsupport.StubTextGenerator{Reply: "That sounds heavy; maybe take a short walk tonight."}
	st := NewResponseStage(cfg, store, gen, nil)
	result, err := st.Run(context.Background(), entry)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Source != SourceGenerated {
		t.Fatalf("unexpected source %q", result.Source)
	}
	if !strings.Contains(gen.LastPrompt(), "valence=0.300") {
		t.Fatalf("expected prompt to carry affect cues, got:\n%s", gen.LastPrompt())
	}
}

func TestResponseStageProceedsWithoutAffect(t *testing.T) {
	cfg, store, entry := seedEntry(t)
	if _, err := store.Put(artifacts.CategorySummary, entry.ID, SummaryPayload{Summary: "Quiet evening.", SummarySource: SourceGenerated}); err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	gen := &testsupport.StubTextGenerator{Reply: "Enjoy the calm."}
	st := NewResponseStage(cfg, store, gen, nil)
	if _, err := st.Run(context.Background(), entry); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(gen.LastPrompt(), "not available") {
		t.Fatal("expected prompt to mark affect as unavailable")
	}
}

func TestResponseStageFallsBackToSummary(t *testing.T) {
	cfg, store, entry := seedEntry(t)
	if _, err := store.Put(artifacts.CategorySummary, entry.ID, SummaryPayload{Summary: "The rain would not stop.", SummarySource: SourceFallback}); err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	gen := &testsupport.StubTextGenerator{
		Err: services.Wrap(services.ErrService, "textgen", "generate", "unreachable", nil),
	}
	st := NewResponseStage(cfg, store, gen, nil)
	result, err := st.Run(context.Background(), entry)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Source != SourceFallback {
		t.Fatalf("unexpected source %q", result.Source)
	}
	var payload ResponsePayload
	if err := store.GetInto(artifacts.CategoryResponse, entry.ID, &payload); err != nil {
		t.Fatalf("load response artifact: %v", err)
	}
	if payload.Response != "The rain would not stop." {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestMusicStageStoresTrack(t *testing.T) {
	cfg, store, entry := seedEntry(t, testsupport.WithMusicEnabled())
	if _, err := store.Put(artifacts.CategorySummary, entry.ID, SummaryPayload{Summary: "A good day.", SummarySource: SourceGenerated}); err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	gen := &testsupport.StubMusicGenerator{URL: "https://cdn.example.com/7.mp3"}
	st := NewMusicStage(cfg, store, gen, nil)
	result, err := st.Run(context.Background(), entry)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Source != SourceGenerated {
		t.Fatalf("unexpected source %q", result.Source)
	}
	var payload MusicPayload
	if err := store.GetInto(artifacts.CategoryMusic, entry.ID, &payload); err != nil {
		t.Fatalf("load music artifact: %v", err)
	}
	if payload.AudioURL != "https://cdn.example.com/7.mp3" || payload.LocalPath == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}
