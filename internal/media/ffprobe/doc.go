// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties and tags
//   - Format: container-level metadata and tags
//
// Inspect executes ffprobe and returns the parsed Result. CreationTime picks
// the recording timestamp a camera or phone wrote into the container.
package ffprobe
