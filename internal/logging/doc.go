// Package logging assembles structured slog loggers used by the ncboard CLI
// and the candidate store service.
//
// It owns the console/JSON handlers, level parsing, and the attribute helpers
// that keep warning lines shaped as cause + impact + next step. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
