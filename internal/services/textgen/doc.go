// Package textgen provides the client for the hosted language model used by
// the summary and response stages.
package textgen
