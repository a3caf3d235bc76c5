package stage

import (
	"minuet/internal/services/affect"
	"minuet/internal/services/whisper"
)

// AffectPayload is the stored affect artifact. Duration keeps the wire name
// the estimator emits; recorded_date is the calendar date of the recording.
type AffectPayload struct {
	DurationMS   float64       `json:"duration"`
	VAD          affect.Triple `json:"vad"`
	RecordedDate string        `json:"recorded_date"`
}

// TranscriptPayload is the stored transcript artifact.
type TranscriptPayload struct {
	Transcript string            `json:"transcript"`
	Language   string            `json:"language,omitempty"`
	Duration   float64           `json:"duration,omitempty"`
	Segments   []whisper.Segment `json:"segments,omitempty"`
	Words      []whisper.Word    `json:"words,omitempty"`
}

// SummaryPayload is the stored summary artifact. SummarySource records
// whether the text came from the generator or fell back to the transcript.
type SummaryPayload struct {
	Summary       string `json:"summary"`
	SummarySource string `json:"summary_source"`
}

// ResponsePayload is the stored empathetic-response artifact.
type ResponsePayload struct {
	Response string `json:"response"`
}

// MusicPayload is the stored music artifact. LocalPath points at the
// downloaded track under the audio data root.
type MusicPayload struct {
	AudioURL  string `json:"audio_url"`
	LocalPath string `json:"local_path"`
	Title     string `json:"title,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
}
