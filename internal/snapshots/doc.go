// Package snapshots is the local cache of imported uploads.
//
// Each upload is kept as a named snapshot together with its provenance
// filename. The whole cache lives in one JSON file guarded by a file lock so
// concurrent CLI invocations serialize their read-modify-write cycles.
// Persistence is best-effort: callers get booleans and counts, and failures
// are logged rather than returned.
package snapshots
