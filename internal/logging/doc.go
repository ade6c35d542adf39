// Package logging builds mediasort's slog loggers.
//
// Terminal output is one line per record (or JSON when logging.format is
// json); when a log directory is configured every record is also appended
// as JSON to mediasort.log, which the logs command reads back. Contexts
// carry the run id and the file being relocated so worker log lines can be
// traced to a run.
package logging
