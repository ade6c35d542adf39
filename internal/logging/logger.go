package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediasort/internal/config"
)

// LogFilename is the JSON log kept inside paths.log_dir. The logs command
// reads it back.
const LogFilename = "mediasort.log"

// Options controls New.
type Options struct {
	// Level is one of debug, info, warn or error. Anything else means info.
	Level string
	// Format selects the terminal rendering: console or json.
	Format string
	// Writer receives terminal output. Nil means stderr.
	Writer io.Writer
	// FilePath, when set, receives a JSON copy of every record regardless
	// of Format.
	FilePath string
	// AddSource appends the caller position. Debug level implies it.
	AddSource bool
}

// New builds a logger from opts.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	source := opts.AddSource || level <= slog.LevelDebug
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var terminal slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		terminal = newConsoleHandler(w, level, source)
	case "json":
		terminal = newAuditHandler(w, level, source)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	path := strings.TrimSpace(opts.FilePath)
	if path == "" {
		return slog.New(terminal), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(teeHandler{terminal: terminal, audit: newAuditHandler(file, level, source)}), nil
}

// NewFromConfig builds the application logger: terminal output to w and,
// when paths.log_dir is set, the JSON audit log beside it.
func NewFromConfig(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Writer: w})
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Writer: w}
	if cfg.Paths.LogDir != "" {
		opts.FilePath = filepath.Join(cfg.Paths.LogDir, LogFilename)
	}
	return New(opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newAuditHandler writes the JSON shape the logs reader parses: ts in UTC
// RFC 3339, lower-case level, source as file:line.
func newAuditHandler(w io.Writer, level slog.Leveler, source bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: source,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}
			switch attr.Key {
			case slog.TimeKey:
				return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339))
			case slog.LevelKey:
				return slog.String(slog.LevelKey, strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}
