// Package logging builds the slog loggers used by annoset commands.
//
// It owns the console and JSON handlers, level parsing and output routing,
// and exposes attribute helpers so batch operations tag their lines with the
// same keys (component, batch_id, set, raw_filename).
package logging
