// Package remote is the HTTP client for the candidate store.
//
// Every call carries the bearer token from a Credentials source. A 401 or 403
// clears that token and returns ErrUnauthorized; network failures return
// ErrUnavailable. Nothing is retried.
package remote
