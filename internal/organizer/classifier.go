package organizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"mediasort/internal/faults"
	"mediasort/internal/metadata"
)

// StatFunc returns file information for path.
type StatFunc func(path string) (fs.FileInfo, error)

// Classification is the result of a successful Classify.
type Classification struct {
	Bucket    Bucket
	Timestamp time.Time
	Source    TimestampSource
}

// Classifier decides a file's destination bucket from its metadata with a
// fallback to the filesystem modification time.
type Classifier struct {
	reader metadata.Reader
	stat   StatFunc
	loc    *time.Location
}

// NewClassifier returns a classifier reading tags through reader and
// deriving buckets in loc. A nil loc means the process local zone.
func NewClassifier(reader metadata.Reader, loc *time.Location) *Classifier {
	if reader == nil {
		reader = metadata.None
	}
	if loc == nil {
		loc = time.Local
	}
	return &Classifier{reader: reader, stat: os.Stat, loc: loc}
}

// WithStat replaces the stat function used for the modification time
// fallback.
func (c *Classifier) WithStat(stat StatFunc) *Classifier {
	clone := *c
	clone.stat = stat
	return &clone
}

// Classify selects the first non-empty timestamp by precedence: capture
// time, creation time, modification tag, then file modification time. A
// metadata read failure, an unparsable selected tag or the absence of any
// usable timestamp is returned as an ErrClassification error.
func (c *Classifier) Classify(ctx context.Context, path string) (Classification, error) {
	tags, err := c.reader.Read(ctx, path)
	if err != nil && !errors.Is(err, metadata.ErrNoMetadata) {
		return Classification{}, faults.Wrap(faults.ErrClassification, "classifier", "read metadata", "", err)
	}

	candidates := []struct {
		source TimestampSource
		raw    string
	}{
		{SourceCaptureTime, tags.CaptureTime},
		{SourceCreateTime, tags.CreateTime},
		{SourceModifyTime, tags.ModifyTime},
	}
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.raw) == "" {
			continue
		}
		ts, err := ParseTimestamp(candidate.raw, c.loc)
		if err != nil {
			return Classification{}, faults.Wrap(faults.ErrClassification, "classifier", "parse "+string(candidate.source), "", err)
		}
		return Classification{Bucket: BucketFor(ts, c.loc), Timestamp: ts, Source: candidate.source}, nil
	}

	info, err := c.stat(path)
	if err != nil {
		return Classification{}, faults.Wrap(faults.ErrClassification, "classifier", "stat", "no valid date found", err)
	}
	modTime := info.ModTime()
	if modTime.IsZero() || modTime.Year() < 1 {
		return Classification{}, faults.Wrap(faults.ErrClassification, "classifier", "stat", "no valid date found", fmt.Errorf("modification time %v", modTime))
	}
	modTime = modTime.In(c.loc)
	return Classification{Bucket: BucketFor(modTime, c.loc), Timestamp: modTime, Source: SourceFileMtime}, nil
}
