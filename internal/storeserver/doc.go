// Package storeserver serves the candidate store HTTP API used by the
// dashboard: list, create, update and delete candidates, delete by
// provenance, and bulk import. Requests under /api/ require the configured
// bearer token; /healthz and /metrics are open.
package storeserver
