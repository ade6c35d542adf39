package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"mediasort/internal/logging"
)

// Entry is one decoded log record.
type Entry struct {
	Time      time.Time
	Level     slog.Level
	Message   string
	Component string
	RunID     string
	// Fields holds the remaining attributes.
	Fields map[string]any
	Raw    string
}

// Filter narrows entries. The zero value keeps info and above, since the
// zero slog.Level is info.
type Filter struct {
	RunID     string
	Component string
	MinLevel  slog.Level
}

func (f Filter) match(e Entry) bool {
	if f.RunID != "" && !strings.HasPrefix(e.RunID, f.RunID) {
		return false
	}
	if f.Component != "" && !strings.EqualFold(e.Component, f.Component) {
		return false
	}
	return e.Level >= f.MinLevel
}

// ParseLevel maps a level name to slog.Level. Unknown names map to debug.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// Parse decodes a JSON log line. Lines that are not JSON objects are
// returned as info-level entries carrying only Raw and Message.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Level: slog.LevelInfo}
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		entry.Message = line
		return entry
	}
	for key, value := range record {
		switch key {
		case "ts", slog.TimeKey:
			if s, ok := value.(string); ok {
				entry.Time, _ = time.Parse(time.RFC3339, s)
			}
		case slog.LevelKey:
			entry.Level = ParseLevel(fmt.Sprint(value))
		case slog.MessageKey:
			entry.Message = fmt.Sprint(value)
		case logging.FieldComponent:
			entry.Component = fmt.Sprint(value)
		case logging.FieldRunID:
			entry.RunID = fmt.Sprint(value)
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]any)
			}
			entry.Fields[key] = value
		}
	}
	return entry
}

// Format renders e on one line for terminal output.
func (e Entry) Format() string {
	if e.Time.IsZero() && e.Component == "" && len(e.Fields) == 0 {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(e.Level.String()))
	if e.Component != "" {
		fmt.Fprintf(&b, "[%s] ", e.Component)
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, e.Fields[key])
	}
	return b.String()
}
