// Package journal persists voice-journal entries and their per-stage
// artifact rows in SQLite and exposes helpers for driving their lifecycle.
//
// The Store manages database connections, schema initialization, list and
// stats queries, and the atomic stage-completion transition that sets a
// readiness flag and rederives the entry status in one transaction. Entry
// status is never stored independently of the flags: DeriveStatus is the
// single source of truth, invoked after every flag mutation.
//
// Treat this package as the single source of truth for entry semantics; when
// you add new stages or metadata fields, update schema.go alongside.
package journal
