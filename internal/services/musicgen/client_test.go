package musicgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"minuet/internal/services"
)

func TestClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "V3_5" {
			t.Fatalf("expected configured model fallback, got %q", req.Model)
		}
		_ = json.NewEncoder(w).Encode(Result{AudioURL: "https://cdn.example.com/track.mp3"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "V3_5"})
	result, err := client.Generate(context.Background(), Request{Prompt: "calm piano", Instrumental: true})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if result.URL() != "https://cdn.example.com/track.mp3" {
		t.Fatalf("unexpected audio url %q", result.URL())
	}
}

func TestClientGenerateRetriesServerError(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Result{Audio: "https://cdn.example.com/retry.mp3"})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "V3_5"},
		WithMaxRetryTime(5*time.Second),
	)
	result, err := client.Generate(context.Background(), Request{Prompt: "calm piano"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if result.URL() != "https://cdn.example.com/retry.mp3" {
		t.Fatalf("unexpected audio url %q", result.URL())
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestClientGenerateClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "V3_5"})
	_, err := client.Generate(context.Background(), Request{Prompt: "calm piano"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
}

func TestClientDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "music", "1.mp3")
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "V3_5"})
	if err := client.Download(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Fatalf("unexpected file contents %q", data)
	}
}
