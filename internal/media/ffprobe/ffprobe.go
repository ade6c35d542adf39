package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result holds the tag entries ffprobe reports for a container and its
// streams.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream carries the tags of one stream.
type Stream struct {
	CodecType string            `json:"codec_type"`
	Tags      map[string]string `json:"tags"`
}

// Format carries the container tags.
type Format struct {
	Tags map[string]string `json:"tags"`
}

// Recording timestamps by preference. The QuickTime key keeps the camera's
// UTC offset, creation_time is always UTC. The generic "date" tag is left out
// because it often holds a bare year.
var creationTags = []string{
	"com.apple.quicktime.creationdate",
	"creation_time",
}

// Zero timestamps written by muxers that never knew the recording time:
// the QuickTime epoch and the Unix epoch.
var epochPrefixes = []string{
	"1904-01-01T00:00:00",
	"1970-01-01T00:00:00",
}

const showEntries = "format_tags:stream=codec_type:stream_tags"

// Inspect runs ffprobe against path and decodes the tag entries.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_entries", showEntries, "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if detail := strings.TrimSpace(string(exitErr.Stderr)); detail != "" {
				return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, detail)
			}
		}
		return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: decode: %w", path, err)
	}
	return result, nil
}

// CreationTime returns the raw recording timestamp. Container tags win over
// stream tags; "" means none was found.
func (r Result) CreationTime() string {
	if value := firstTag(r.Format.Tags); value != "" {
		return value
	}
	for _, stream := range r.Streams {
		if value := firstTag(stream.Tags); value != "" {
			return value
		}
	}
	return ""
}

func firstTag(tags map[string]string) string {
	for _, want := range creationTags {
		for key, value := range tags {
			if !strings.EqualFold(key, want) {
				continue
			}
			if value = strings.TrimSpace(value); value != "" && !isEpoch(value) {
				return value
			}
		}
	}
	return ""
}

func isEpoch(value string) bool {
	value = strings.Replace(value, " ", "T", 1)
	for _, prefix := range epochPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
