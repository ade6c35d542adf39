package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler sends each record to the terminal handler and to the JSON
// audit file. Each side applies its own level check.
type teeHandler struct {
	terminal slog.Handler
	audit    slog.Handler
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.terminal.Enabled(ctx, level) || t.audit.Enabled(ctx, level)
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var termErr, auditErr error
	if t.terminal.Enabled(ctx, record.Level) {
		termErr = t.terminal.Handle(ctx, record.Clone())
	}
	if t.audit.Enabled(ctx, record.Level) {
		auditErr = t.audit.Handle(ctx, record)
	}
	return errors.Join(termErr, auditErr)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{terminal: t.terminal.WithAttrs(attrs), audit: t.audit.WithAttrs(attrs)}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{terminal: t.terminal.WithGroup(name), audit: t.audit.WithGroup(name)}
}
