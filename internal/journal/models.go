package journal

import (
	"strings"
	"time"
)

// Status represents the aggregate lifecycle of a journal entry.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

var statusSet = map[Status]struct{}{
	StatusProcessing: {},
	StatusReady:      {},
	StatusFailed:     {},
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Stage identifies one derivation stage of the pipeline.
type Stage string

const (
	StageAffect     Stage = "affect"
	StageTranscript Stage = "transcript"
	StageSummary    Stage = "summary"
	StageResponse   Stage = "response"
	// StageMusic is the best-effort music follow-up. Its flag never
	// participates in status derivation.
	StageMusic Stage = "music"
)

var allStages = []Stage{StageAffect, StageTranscript, StageSummary, StageResponse, StageMusic}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	for _, stage := range allStages {
		if stage == normalized {
			return stage, true
		}
	}
	return "", false
}

// Flags holds the per-stage readiness booleans. Each is monotonic: once true
// it is never reset, even across a retrigger of the stage.
type Flags struct {
	Affect     bool
	Transcript bool
	Summary    bool
	Response   bool
	Music      bool
}

// AllCoreReady reports whether the four readiness-gating stages are done.
// Music is excluded; it is enrichment, not a readiness dependency.
func (f Flags) AllCoreReady() bool {
	return f.Affect && f.Transcript && f.Summary && f.Response
}

// Stage reports the flag for a single stage.
func (f Flags) Stage(stage Stage) bool {
	switch stage {
	case StageAffect:
		return f.Affect
	case StageTranscript:
		return f.Transcript
	case StageSummary:
		return f.Summary
	case StageResponse:
		return f.Response
	case StageMusic:
		return f.Music
	default:
		return false
	}
}

func (f *Flags) set(stage Stage) {
	switch stage {
	case StageAffect:
		f.Affect = true
	case StageTranscript:
		f.Transcript = true
	case StageSummary:
		f.Summary = true
	case StageResponse:
		f.Response = true
	case StageMusic:
		f.Music = true
	}
}

// DeriveStatus computes the aggregate status from the readiness flags and the
// sticky failure marker. Status is a pure function of these inputs; no caller
// maintains it independently. A completed set of core flags always wins, so a
// successful retrigger of a previously failed stage moves the entry back to
// ready once everything is in place.
func DeriveStatus(flags Flags, failed bool) Status {
	if flags.AllCoreReady() {
		return StatusReady
	}
	if failed {
		return StatusFailed
	}
	return StatusProcessing
}

// Entry represents one uploaded recording persisted in SQLite.
type Entry struct {
	ID           int64
	UserID       string
	SessionID    string
	Filename     string
	StoragePath  string
	Status       Status
	Flags        Flags
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsProcessing returns true while background stages may still run.
func (e Entry) IsProcessing() bool {
	return e.Status == StatusProcessing
}

// Artifact represents the stored output of one stage for one entry. At most
// one row exists per (entry, stage); a retrigger replaces the row in place.
type Artifact struct {
	ID          int64
	EntryID     int64
	Stage       Stage
	StoragePath string
	Source      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	UserID    string
	SessionID string
}
