// Package mutation coordinates record edits and deletes across the session
// working set, the snapshot cache and the candidate store.
//
// A record is either cache-only (no store id) or store-confirmed. Every call
// returns an Outcome so the caller decides how to surface store failures;
// a failed store call never leaves a partial edit behind.
package mutation
