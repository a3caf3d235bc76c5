// Package artifacts stores stage payloads as one JSON document per
// (category, entry id) pair plus the raw audio file per entry, all under the
// configured data directory. Writes are atomic via temp-file rename so a
// retrigger can replace a payload in place without readers observing a
// partial document.
package artifacts
