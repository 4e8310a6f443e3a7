// Package config loads, normalizes, and validates ncboard configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NCBOARD_TOKEN and NCSTORED_DB_DSN. A single Config serves both the
// dashboard CLI and the candidate store service.
package config
