package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler writes one line per record:
//
//	15:04:05 INF worker IMG_0001.JPG: file placed destination=/out/2021/07/IMG_0001.JPG
//
// The file is shown by base name and the run id only at debug, since the
// run command prints both in its report.
type consoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	source bool

	component string
	file      string
	runID     string
	bound     []field
	prefix    string
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	line := *h
	line.bound = append([]field(nil), h.bound...)
	record.Attrs(func(attr slog.Attr) bool {
		line.collect(attr, h.prefix)
		return true
	})

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}

	var b strings.Builder
	b.WriteString(when.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(shortLevel(record.Level))
	if line.component != "" {
		b.WriteByte(' ')
		b.WriteString(line.component)
	}
	if line.file != "" {
		b.WriteByte(' ')
		b.WriteString(filepath.Base(line.file))
		b.WriteByte(':')
	}
	b.WriteByte(' ')
	b.WriteString(strings.TrimSpace(record.Message))

	debug := record.Level < slog.LevelInfo
	if debug && line.runID != "" {
		writeField(&b, FieldRunID, slog.StringValue(line.runID))
	}
	for _, f := range latestByKey(line.bound) {
		writeField(&b, f.key, f.value)
	}
	if h.source && record.PC != 0 {
		src := record.Source()
		fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.bound = append([]field(nil), h.bound...)
	for _, attr := range attrs {
		next.collect(attr, h.prefix)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// collect routes the well-known keys into their slots and flattens groups
// into dotted keys.
func (h *consoleHandler) collect(attr slog.Attr, prefix string) {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = prefix + attr.Key + "."
		}
		for _, member := range value.Group() {
			h.collect(member, inner)
		}
		return
	}
	if attr.Key == "" {
		return
	}
	if prefix == "" {
		switch attr.Key {
		case FieldComponent:
			h.component = value.String()
			return
		case FieldFile:
			h.file = value.String()
			return
		case FieldRunID:
			h.runID = value.String()
			return
		}
	}
	h.bound = append(h.bound, field{key: prefix + attr.Key, value: value})
}

// latestByKey keeps the first position of each key with its last value.
func latestByKey(fields []field) []field {
	index := make(map[string]int, len(fields))
	out := fields[:0:0]
	for _, f := range fields {
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func writeField(b *strings.Builder, key string, value slog.Value) {
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(renderValue(value))
}

func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " =\"\t\n\r") {
		return strconv.Quote(s)
	}
	return s
}

func shortLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERR"
	case level >= slog.LevelWarn:
		return "WRN"
	case level >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}
