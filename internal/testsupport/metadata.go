package testsupport

import (
	"context"

	"mediasort/internal/metadata"
)

// StaticReader serves canned metadata keyed by absolute path. Paths missing
// from both maps report metadata.ErrNoMetadata. It is safe for concurrent use
// as long as the maps are not modified during a run.
type StaticReader struct {
	Tags map[string]metadata.Tags
	Errs map[string]error
}

// Read implements metadata.Reader.
func (r StaticReader) Read(ctx context.Context, path string) (metadata.Tags, error) {
	if err := ctx.Err(); err != nil {
		return metadata.Tags{}, err
	}
	if err, ok := r.Errs[path]; ok {
		return metadata.Tags{}, err
	}
	if tags, ok := r.Tags[path]; ok {
		return tags, nil
	}
	return metadata.Tags{}, metadata.ErrNoMetadata
}
