package artifacts_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"minuet/internal/artifacts"
	"minuet/internal/services"
	"minuet/internal/testsupport"
)

func TestPutAndGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := artifacts.NewStore(cfg)

	type payload struct {
		Summary string `json:"summary"`
		Source  string `json:"summary_source"`
	}

	path, err := store.Put(artifacts.CategorySummary, 7, payload{Summary: "a calm day", Source: "generated"})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if path != store.Path(artifacts.CategorySummary, 7) {
		t.Fatalf("Put returned %q, want %q", path, store.Path(artifacts.CategorySummary, 7))
	}
	if !store.Exists(artifacts.CategorySummary, 7) {
		t.Fatal("expected payload to exist after Put")
	}

	var out payload
	if err := store.GetInto(artifacts.CategorySummary, 7, &out); err != nil {
		t.Fatalf("GetInto failed: %v", err)
	}
	if out.Summary != "a calm day" || out.Source != "generated" {
		t.Fatalf("unexpected payload: %#v", out)
	}
}

func TestGetMissingPayloadIsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := artifacts.NewStore(cfg)

	_, err := store.Get(artifacts.CategoryResponse, 42)
	if err == nil {
		t.Fatal("expected error for missing payload")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.Exists(artifacts.CategoryResponse, 42) {
		t.Fatal("Exists must be false for missing payload")
	}
}

func TestPutReplacesExistingPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := artifacts.NewStore(cfg)

	if _, err := store.PutRaw(artifacts.CategoryTranscript, 3, []byte(`{"transcript":"first"}`)); err != nil {
		t.Fatalf("first PutRaw failed: %v", err)
	}
	if _, err := store.PutRaw(artifacts.CategoryTranscript, 3, []byte(`{"transcript":"second"}`)); err != nil {
		t.Fatalf("second PutRaw failed: %v", err)
	}

	data, err := store.Get(artifacts.CategoryTranscript, 3)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !strings.Contains(string(data), "second") {
		t.Fatalf("expected replacement payload, got %s", data)
	}
}

func TestPutRawAudioMovesStagedUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := artifacts.NewStore(cfg)

	staged := filepath.Join(cfg.Paths.StagingDir, "upload-123")
	testsupport.WriteFile(t, staged, 2048)

	final, err := store.PutRawAudio(staged, 9, "evening.wav")
	if err != nil {
		t.Fatalf("PutRawAudio failed: %v", err)
	}
	if final != store.AudioPath(9, "evening.wav") {
		t.Fatalf("unexpected final path: %q", final)
	}
	info, err := os.Stat(final)
	if err != nil {
		t.Fatalf("stat final audio: %v", err)
	}
	if info.Size() != 2048 {
		t.Fatalf("expected 2048 bytes, got %d", info.Size())
	}
	if _, err := os.Stat(staged); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected staged file to be removed, stat err: %v", err)
	}
}

func TestAudioPathSanitizesFilename(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := artifacts.NewStore(cfg)

	path := store.AudioPath(5, "../..//weird: name?.wav")
	base := filepath.Base(path)
	if strings.ContainsAny(base, "/\\:*?\"<>|") {
		t.Fatalf("expected sanitized filename, got %q", base)
	}
	if !strings.HasPrefix(base, "5_") {
		t.Fatalf("expected entry id prefix, got %q", base)
	}

	if got := filepath.Base(store.AudioPath(6, "")); got != "6_recording.wav" {
		t.Fatalf("expected fallback name for empty filename, got %q", got)
	}
}
