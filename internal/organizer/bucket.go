package organizer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Bucket is a destination category: a calendar year and month, or unknown
// when Year is zero.
type Bucket struct {
	Year  int
	Month int
}

// UnknownBucket is the quarantine sentinel.
var UnknownBucket = Bucket{}

// BucketFor derives the bucket of t in loc.
func BucketFor(t time.Time, loc *time.Location) Bucket {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	return Bucket{Year: local.Year(), Month: int(local.Month())}
}

// IsUnknown reports whether b is the quarantine bucket.
func (b Bucket) IsUnknown() bool {
	return b.Year == 0
}

// String renders the bucket as "2021/07" or "unknown".
func (b Bucket) String() string {
	if b.IsUnknown() {
		return "unknown"
	}
	year, month := b.segments()
	return year + "/" + month
}

// Dir returns the directory for b under outputRoot. Unknown buckets map to
// outputRoot/unknownDir.
func (b Bucket) Dir(outputRoot, unknownDir string) string {
	if b.IsUnknown() {
		return filepath.Join(outputRoot, unknownDir)
	}
	year, month := b.segments()
	return filepath.Join(outputRoot, year, month)
}

// segments renders the dated path components: the year unpadded and the
// month as two digits.
func (b Bucket) segments() (year, month string) {
	year = strconv.Itoa(b.Year)
	month = strconv.Itoa(b.Month)
	if b.Month < 10 {
		month = "0" + month
	}
	return year, month
}

// TimestampSource names where a classification's timestamp came from.
type TimestampSource string

const (
	SourceCaptureTime TimestampSource = "capture_time"
	SourceCreateTime  TimestampSource = "create_time"
	SourceModifyTime  TimestampSource = "modify_time"
	SourceFileMtime   TimestampSource = "file_mtime"
)

// Layouts carrying their own offset. Parsing accepts fractional seconds after
// the seconds field even when a layout omits them.
var zonedLayouts = []string{
	time.RFC3339,
	"2006:01:02 15:04:05Z07:00",
	"2006:01:02 15:04:05-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -0700 MST",
}

// Layouts without an offset are read as wall-clock time in the bucket zone.
var zonelessLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006:01:02 15:04",
	"2006:01:02",
	"2006-01-02",
}

var errEmptyTimestamp = errors.New("empty timestamp")

// ParseTimestamp parses a metadata date value. Values without an offset are
// interpreted in loc. A value that matches no known layout, or that yields
// a year before 1, is an error.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if value == "" {
		return time.Time{}, errEmptyTimestamp
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return validTimestamp(t.In(loc), raw)
		}
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return validTimestamp(t, raw)
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func validTimestamp(t time.Time, raw string) (time.Time, error) {
	if t.IsZero() || t.Year() < 1 {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
	}
	return t, nil
}
