// Package pipeline coordinates the derivation stages for uploaded journal
// entries. Affect estimation and transcription run concurrently after
// upload; transcript completion chains summary, then response, then the
// optional music follow-up. Flag updates are serialized per entry and the
// entry status is recomputed transactionally on every stage completion.
package pipeline
