// Package whisper adapts the faster-whisper speech-to-text CLI to the
// transcription contract the pipeline consumes. The command runner is
// injectable so tests can stub the binary and seed its JSON output.
package whisper
