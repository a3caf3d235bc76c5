package affect_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"minuet/internal/services"
	"minuet/internal/services/affect"
	"minuet/internal/testsupport"
)

func newService(t *testing.T) (*affect.Service, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	svc := affect.NewService(cfg.Affect)
	source := filepath.Join(cfg.Paths.StagingDir, "clip.wav")
	testsupport.WriteFile(t, source, 64)
	return svc, source
}

func outputArg(t *testing.T, args []string) string {
	t.Helper()
	for i, arg := range args {
		if arg == "--output" && i+1 < len(args) {
			return args[i+1]
		}
	}
	t.Fatalf("no --output flag in args: %v", args)
	return ""
}

func TestEstimateParsesBinaryOutput(t *testing.T) {
	svc, source := newService(t)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		out := affect.Result{
			DurationMS: 4200,
			VAD:        affect.Triple{Valence: 0.62, Arousal: 0.41, Dominance: 0.55},
		}
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return os.WriteFile(outputArg(t, args), data, 0o644)
	})

	result, err := svc.Estimate(context.Background(), source, filepath.Dir(source))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if result.VAD.Valence != 0.62 || result.VAD.Arousal != 0.41 || result.VAD.Dominance != 0.55 {
		t.Fatalf("unexpected triple: %#v", result.VAD)
	}
	if result.DurationMS != 4200 {
		t.Fatalf("unexpected duration: %v", result.DurationMS)
	}
}

func TestEstimateCommandFailureIsStageError(t *testing.T) {
	svc, source := newService(t)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("weights missing")
	})

	_, err := svc.Estimate(context.Background(), source, filepath.Dir(source))
	if !errors.Is(err, services.ErrStage) {
		t.Fatalf("expected ErrStage, got %v", err)
	}
}

func TestEstimateCanceledContextIsTimeout(t *testing.T) {
	svc, source := newService(t)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Estimate(ctx, source, filepath.Dir(source))
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestEstimateRequiresSource(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Estimate(context.Background(), "", ""); !errors.Is(err, services.ErrStage) {
		t.Fatalf("expected ErrStage for missing source, got %v", err)
	}
}
