package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for error classification. Stage adapters and the HTTP
// layer dispatch on these with errors.Is.
var (
	// ErrValidation indicates bad caller input (empty upload, missing field).
	// Surfaced synchronously before any background work is scheduled.
	ErrValidation = errors.New("validation error")
	// ErrNotFound indicates a referenced entry or artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStage indicates a stage collaborator failed irrecoverably for this
	// invocation. The entry is marked failed; the error is not retried.
	ErrStage = errors.New("stage error")
	// ErrService indicates the text-generation service failed. Summary and
	// response adapters recover locally by falling back to upstream text;
	// this marker must never escalate to ErrStage.
	ErrService = errors.New("service error")
	// ErrTimeout indicates a collaborator call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
