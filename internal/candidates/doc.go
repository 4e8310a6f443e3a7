// Package candidates persists candidate records for the store service.
//
// The repository runs over database/sql with one embedded migration set per
// dialect: sqlite (modernc.org/sqlite, the default), postgres (pgx) and
// mysql. Queries are written with ? placeholders and rebound for postgres.
// Every statement runs under the configured per-call timeout.
package candidates
