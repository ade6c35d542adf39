package logging

import (
	"context"
	"log/slog"
)

// scope is what a context carries for log enrichment: the run and, inside a
// worker, the file being relocated.
type scope struct {
	runID string
	file  string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// WithRunID tags ctx with the identifier of the current run.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	s := scopeOf(ctx)
	s.runID = runID
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithFile tags ctx with the source path a worker is handling.
func WithFile(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	s := scopeOf(ctx)
	s.file = path
	return context.WithValue(ctx, scopeKey{}, s)
}

// ContextFields returns the run id and file attributes carried by ctx, in
// that order, omitting the ones that are unset.
func ContextFields(ctx context.Context) []slog.Attr {
	s := scopeOf(ctx)
	var fields []slog.Attr
	if s.runID != "" {
		fields = append(fields, slog.String(FieldRunID, s.runID))
	}
	if s.file != "" {
		fields = append(fields, slog.String(FieldFile, s.file))
	}
	return fields
}

// WithContext binds the fields carried by ctx to logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(toArgs(fields)...)
	}
	return logger
}
