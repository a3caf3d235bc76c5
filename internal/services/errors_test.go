package services_test

import (
	"errors"
	"strings"
	"testing"

	"minuet/internal/services"
)

func TestWrapClassifiesWithMarker(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrService, "summary", "generate", "request failed", cause)

	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected ErrService classification, got %v", err)
	}
	if errors.Is(err, services.ErrStage) {
		t.Fatal("error must not match a different marker")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to remain reachable")
	}
	for _, want := range []string{"summary", "generate", "request failed", "connection refused"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestWrapDefaultsToStageMarker(t *testing.T) {
	err := services.Wrap(nil, "transcript", "", "", nil)
	if !errors.Is(err, services.ErrStage) {
		t.Fatalf("expected ErrStage default, got %v", err)
	}
}

func TestWrapWithoutDetailStillProducesMessage(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "", "", "", nil)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err)
	}
}
