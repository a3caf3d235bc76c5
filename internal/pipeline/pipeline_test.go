package pipeline

import (
	"context"
	"errors"
	"testing"

	"minuet/internal/artifacts"
	"minuet/internal/config"
	"minuet/internal/journal"
	"minuet/internal/services"
	"minuet/internal/stage"
	"minuet/internal/testsupport"
)

type fixture struct {
	cfg       *config.Config
	dbStore   *journal.Store
	artStore  *artifacts.Store
	affect    *testsupport.StubAffectEstimator
	transcrib *testsupport.StubTranscriber
	textgen   *testsupport.StubTextGenerator
	music     *testsupport.StubMusicGenerator
	pipeline  *Pipeline
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	dbStore := testsupport.MustOpenStore(t, cfg)
	artStore := artifacts.NewStore(cfg)

	f := &fixture{
		cfg:       cfg,
		dbStore:   dbStore,
		artStore:  artStore,
		affect:    &testsupport.StubAffectEstimator{},
		transcrib: &testsupport.StubTranscriber{},
		textgen:   &testsupport.StubTextGenerator{},
		music:     &testsupport.StubMusicGenerator{},
	}
	handlers := Handlers{
		Affect:     stage.NewAffectStage(cfg, artStore, f.affect, nil),
		Transcript: stage.NewTranscriptStage(cfg, artStore, f.transcrib, nil),
		Summary:    stage.NewSummaryStage(cfg, artStore, f.textgen, nil),
		Response:   stage.NewResponseStage(cfg, artStore, f.textgen, nil),
		Music:      stage.NewMusicStage(cfg, artStore, f.music, nil),
	}
	f.pipeline = New(cfg, dbStore, handlers, nil)
	t.Cleanup(f.pipeline.Close)
	return f
}

func (f *fixture) upload(t *testing.T) *journal.Entry {
	t.Helper()
	entry := testsupport.NewEntry(t, f.dbStore, "morning.wav", "user-1", "session-1")
	audioPath := f.artStore.AudioPath(entry.ID, entry.Filename)
	testsupport.WriteFile(t, audioPath, 128)
	if err := f.dbStore.SetStoragePath(context.Background(), entry.ID, audioPath); err != nil {
		t.Fatalf("SetStoragePath: %v", err)
	}
	entry.StoragePath = audioPath
	return entry
}

func (f *fixture) reload(t *testing.T, id int64) *journal.Entry {
	t.Helper()
	entry, err := f.dbStore.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if entry == nil {
		t.Fatalf("entry %d vanished", id)
	}
	return entry
}

func TestOnUploadReachesReady(t *testing.T) {
	f := newFixture(t)
	entry := f.upload(t)

	job := f.pipeline.OnUpload(entry.ID)
	if err := job.Wait(); err != nil {
		t.Fatalf("job failed: %v", err)
	}

	got := f.reload(t, entry.ID)
	if got.Status != journal.StatusReady {
		t.Fatalf("expected ready, got %s (error %q)", got.Status, got.ErrorMessage)
	}
	flags := got.Flags
	if !flags.Affect || !flags.Transcript || !flags.Summary || !flags.Response {
		t.Fatalf("expected all core flags set, got %+v", flags)
	}
	for _, category := range []artifacts.Category{
		artifacts.CategoryAffect,
		artifacts.CategoryTranscript,
		artifacts.CategorySummary,
		artifacts.CategoryResponse,
	} {
		if !f.artStore.Exists(category, entry.ID) {
			t.Fatalf("missing %s artifact", category)
		}
	}
}

func TestTranscriptFailureBlocksBranchButNotAffect(t *testing.T) {
	f := newFixture(t)
	f.transcrib.Err = services.Wrap(services.ErrStage, "transcript", "run", "decode failed", nil)
	entry := f.upload(t)

	job := f.pipeline.OnUpload(entry.ID)
	if err := job.Wait(); !errors.Is(err, services.ErrStage) {
		t.Fatalf("expected stage error from job, got %v", err)
	}

	got := f.reload(t, entry.ID)
	if got.Status != journal.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if !got.Flags.Affect {
		t.Fatal("affect flag should still be set by the sibling branch")
	}
	if got.Flags.Transcript || got.Flags.Summary || got.Flags.Response {
		t.Fatalf("downstream flags should stay unset, got %+v", got.Flags)
	}
	if f.textgen.Calls.Load() != 0 {
		t.Fatal("summary must not run after transcript failure")
	}
}

func TestTextGeneratorOutageDegradesToFallback(t *testing.T) {
	f := newFixture(t)
	f.textgen.Err = services.Wrap(services.ErrService, "textgen", "generate", "quota exceeded", nil)
	entry := f.upload(t)

	job := f.pipeline.OnUpload(entry.ID)
	if err := job.Wait(); err != nil {
		t.Fatalf("job failed: %v", err)
	}

	got := f.reload(t, entry.ID)
	if got.Status != journal.StatusReady {
		t.Fatalf("expected ready despite generator outage, got %s", got.Status)
	}

	var summary stage.SummaryPayload
	if err := f.artStore.GetInto(artifacts.CategorySummary, entry.ID, &summary); err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if summary.SummarySource != stage.SourceFallback {
		t.Fatalf("expected fallback summary, got %+v", summary)
	}
	var response stage.ResponsePayload
	if err := f.artStore.GetInto(artifacts.CategoryResponse, entry.ID, &response); err != nil {
		t.Fatalf("load response: %v", err)
	}
	if response.Response != summary.Summary {
		t.Fatalf("fallback response should echo summary text, got %q vs %q", response.Response, summary.Summary)
	}
}

func TestRetriggerSummaryReplacesArtifactOnly(t *testing.T) {
	f := newFixture(t)
	entry := f.upload(t)
	if err := f.pipeline.OnUpload(entry.ID).Wait(); err != nil {
		t.Fatalf("initial job failed: %v", err)
	}

	f.textgen.Reply = "A fresh take on the day."
	job, err := f.pipeline.Retrigger(context.Background(), entry.ID, journal.StageSummary)
	if err != nil {
		t.Fatalf("Retrigger: %v", err)
	}
	if err := job.Wait(); err != nil {
		t.Fatalf("retrigger job failed: %v", err)
	}

	var summary stage.SummaryPayload
	if err := f.artStore.GetInto(artifacts.CategorySummary, entry.ID, &summary); err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if summary.Summary != "A fresh take on the day." {
		t.Fatalf("expected regenerated summary, got %+v", summary)
	}

	got := f.reload(t, entry.ID)
	if got.Status != journal.StatusReady {
		t.Fatalf("status should remain ready, got %s", got.Status)
	}
	if !got.Flags.Response {
		t.Fatal("sibling flags must be untouched by retrigger")
	}
}

func TestRetriggerRecoversFailedEntry(t *testing.T) {
	f := newFixture(t)
	f.textgen.GenerateFunc = func(context.Context, string, int, float64) (string, error) {
		return "", services.Wrap(services.ErrStage, "textgen", "generate", "malformed output", nil)
	}
	entry := f.upload(t)
	_ = f.pipeline.OnUpload(entry.ID).Wait()

	if got := f.reload(t, entry.ID); got.Status != journal.StatusFailed {
		t.Fatalf("expected failed before recovery, got %s", got.Status)
	}

	f.textgen.GenerateFunc = nil
	for _, st := range []journal.Stage{journal.StageSummary, journal.StageResponse} {
		job, err := f.pipeline.Retrigger(context.Background(), entry.ID, st)
		if err != nil {
			t.Fatalf("Retrigger %s: %v", st, err)
		}
		if err := job.Wait(); err != nil {
			t.Fatalf("retrigger %s failed: %v", st, err)
		}
	}

	if got := f.reload(t, entry.ID); got.Status != journal.StatusReady {
		t.Fatalf("expected ready after retriggers, got %s", got.Status)
	}
}

func TestRetriggerValidation(t *testing.T) {
	f := newFixture(t)

	if _, err := f.pipeline.Retrigger(context.Background(), 9999, journal.StageSummary); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	entry := f.upload(t)
	if _, err := f.pipeline.Retrigger(context.Background(), entry.ID, journal.StageTranscript); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMusicFollowupDoesNotGateStatus(t *testing.T) {
	f := newFixture(t, testsupport.WithMusicEnabled())
	f.music.GenerateErr = services.Wrap(services.ErrService, "music", "generate", "provider down", nil)
	entry := f.upload(t)

	if err := f.pipeline.OnUpload(entry.ID).Wait(); err != nil {
		t.Fatalf("job failed: %v", err)
	}

	got := f.reload(t, entry.ID)
	if got.Status != journal.StatusReady {
		t.Fatalf("music failure must not gate readiness, got %s", got.Status)
	}
	if got.Flags.Music {
		t.Fatal("music flag should stay unset after provider failure")
	}
}

func TestMusicFollowupStoresTrackWhenEnabled(t *testing.T) {
	f := newFixture(t, testsupport.WithMusicEnabled())
	entry := f.upload(t)

	if err := f.pipeline.OnUpload(entry.ID).Wait(); err != nil {
		t.Fatalf("job failed: %v", err)
	}

	got := f.reload(t, entry.ID)
	if !got.Flags.Music {
		t.Fatal("expected music flag after successful follow-up")
	}
	if !f.artStore.Exists(artifacts.CategoryMusic, entry.ID) {
		t.Fatal("expected music artifact")
	}
}

func TestRetriggerBeforeUpstreamIsNoOp(t *testing.T) {
	f := newFixture(t)
	entry := f.upload(t)

	for _, st := range []journal.Stage{journal.StageSummary, journal.StageResponse} {
		job, err := f.pipeline.Retrigger(context.Background(), entry.ID, st)
		if err != nil {
			t.Fatalf("Retrigger %s: %v", st, err)
		}
		if err := job.Wait(); err != nil {
			t.Fatalf("retrigger %s without upstream should be a no-op, got %v", st, err)
		}
	}

	got := f.reload(t, entry.ID)
	if got.Status != journal.StatusProcessing {
		t.Fatalf("entry should stay processing, got %s (error %q)", got.Status, got.ErrorMessage)
	}
	if got.ErrorMessage != "" {
		t.Fatalf("no failure should be recorded, got %q", got.ErrorMessage)
	}
	if f.artStore.Exists(artifacts.CategorySummary, entry.ID) || f.artStore.Exists(artifacts.CategoryResponse, entry.ID) {
		t.Fatal("skipped retriggers must not write artifacts")
	}
	if f.textgen.Calls.Load() != 0 {
		t.Fatal("generator must not run without its input artifact")
	}
}

func TestEntryLocksAreReleased(t *testing.T) {
	f := newFixture(t)
	entry := f.upload(t)

	if err := f.pipeline.OnUpload(entry.ID).Wait(); err != nil {
		t.Fatalf("job failed: %v", err)
	}

	f.pipeline.mu.Lock()
	held := len(f.pipeline.entryLocks)
	f.pipeline.mu.Unlock()
	if held != 0 {
		t.Fatalf("expected entry locks to be dropped after completion, got %d", held)
	}
}

func TestConcurrentCompletionsDoNotLoseFlags(t *testing.T) {
	f := newFixture(t)

	const entries = 8
	jobs := make([]*Job, 0, entries)
	ids := make([]int64, 0, entries)
	for i := 0; i < entries; i++ {
		entry := f.upload(t)
		ids = append(ids, entry.ID)
		jobs = append(jobs, f.pipeline.OnUpload(entry.ID))
	}
	for _, job := range jobs {
		if err := job.Wait(); err != nil {
			t.Fatalf("job failed: %v", err)
		}
	}
	for _, id := range ids {
		if got := f.reload(t, id); got.Status != journal.StatusReady {
			t.Fatalf("entry %d expected ready, got %s", id, got.Status)
		}
	}
}
