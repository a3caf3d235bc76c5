// Package api defines the JSON payloads exchanged over the daemon's HTTP
// surface and their conversions from journal records.
package api

import (
	"time"

	"minuet/internal/journal"
	"minuet/internal/stage"
)

// EntryStatus is the polling shape for one entry. Upload acknowledgements
// use the same shape with every flag still false.
type EntryStatus struct {
	ID              int64  `json:"id"`
	Status          string `json:"status"`
	AffectReady     bool   `json:"affect_ready"`
	TranscriptReady bool   `json:"transcript_ready"`
	SummaryReady    bool   `json:"summary_ready"`
	ResponseReady   bool   `json:"response_ready"`
	MusicReady      bool   `json:"music_ready"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// EntryListItem extends EntryStatus with listing metadata.
type EntryListItem struct {
	EntryStatus
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Filename  string `json:"filename"`
	CreatedAt string `json:"created_at"`
}

// ListResponse wraps an entry listing.
type ListResponse struct {
	Entries []EntryListItem `json:"entries"`
}

// OKResponse acknowledges a retrigger request.
type OKResponse struct {
	OK bool `json:"ok"`
}

// StageHealth reports one stage adapter's readiness.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse reports daemon and collaborator health.
type HealthResponse struct {
	Status  string        `json:"status"`
	Store   bool          `json:"store"`
	Stages  []StageHealth `json:"stages"`
	Version string        `json:"version,omitempty"`
}

// FromEntry converts a journal entry to its polling shape.
func FromEntry(entry *journal.Entry) EntryStatus {
	return EntryStatus{
		ID:              entry.ID,
		Status:          string(entry.Status),
		AffectReady:     entry.Flags.Affect,
		TranscriptReady: entry.Flags.Transcript,
		SummaryReady:    entry.Flags.Summary,
		ResponseReady:   entry.Flags.Response,
		MusicReady:      entry.Flags.Music,
		ErrorMessage:    entry.ErrorMessage,
	}
}

// FromEntryList converts journal entries to listing rows.
func FromEntryList(entries []*journal.Entry) []EntryListItem {
	items := make([]EntryListItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, EntryListItem{
			EntryStatus: FromEntry(entry),
			UserID:      entry.UserID,
			SessionID:   entry.SessionID,
			Filename:    entry.Filename,
			CreatedAt:   entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return items
}

// FromStageHealth converts stage health records to their wire shape.
func FromStageHealth(checks []stage.Health) []StageHealth {
	out := make([]StageHealth, 0, len(checks))
	for _, check := range checks {
		out = append(out, StageHealth{Name: check.Name, Ready: check.Ready, Detail: check.Detail})
	}
	return out
}
