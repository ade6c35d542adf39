package metadata

import (
	"context"

	"mediasort/internal/faults"
	"mediasort/internal/media/ffprobe"
)

// FFprobeReader reads container creation timestamps from video files.
type FFprobeReader struct {
	Binary string
}

// Read implements Reader. The container creation time is reported as the
// create tag; video containers carry no capture or modify equivalent.
func (r FFprobeReader) Read(ctx context.Context, path string) (Tags, error) {
	result, err := ffprobe.Inspect(ctx, r.Binary, path)
	if err != nil {
		if ctx.Err() != nil {
			return Tags{}, ctx.Err()
		}
		return Tags{}, faults.Wrap(faults.ErrExternalTool, "metadata", "ffprobe", "inspect failed", err)
	}
	created := result.CreationTime()
	if created == "" {
		return Tags{}, ErrNoMetadata
	}
	return Tags{CreateTime: created}, nil
}
