// Command ncstored serves the candidate store HTTP API used by ncboard.
//
// It owns the candidates database (SQLite by default, PostgreSQL or MySQL
// when configured), guards it with a lock file so only one instance runs per
// data directory, and exposes Prometheus metrics on /metrics.
package main
