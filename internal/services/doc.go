// Package services provides shared plumbing for external collaborator
// wrappers: the error classification sentinels used across stages and the
// context annotations that structured logging pulls from.
package services
