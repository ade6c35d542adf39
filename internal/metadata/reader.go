// Package metadata reads the raw date tags mediasort classifies files by.
//
// Readers only extract strings; parsing and precedence live in the
// organizer. A reader that finds no embedded metadata at all returns
// ErrNoMetadata so the caller can fall back to the file modification time,
// while any other error means the file could not be inspected.
package metadata

import (
	"context"
	"errors"
	"time"
)

// ErrNoMetadata reports that a file carries no readable embedded metadata.
var ErrNoMetadata = errors.New("no embedded metadata")

// Tags holds the raw date values found in a file, in precedence order.
type Tags struct {
	CaptureTime string
	CreateTime  string
	ModifyTime  string
}

// IsEmpty reports whether no date tag was found.
func (t Tags) IsEmpty() bool {
	return t.CaptureTime == "" && t.CreateTime == "" && t.ModifyTime == ""
}

// Reader extracts date tags from a file.
type Reader interface {
	Read(ctx context.Context, path string) (Tags, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context, path string) (Tags, error)

// Read calls f.
func (f ReaderFunc) Read(ctx context.Context, path string) (Tags, error) {
	return f(ctx, path)
}

// ReadCloser is a Reader holding external resources such as a long-lived
// exiftool process.
type ReadCloser interface {
	Reader
	Close() error
}

type nopCloser struct{ Reader }

func (nopCloser) Close() error { return nil }

// NopCloser wraps r with a no-op Close.
func NopCloser(r Reader) ReadCloser {
	return nopCloser{r}
}

type timeoutReader struct {
	next    Reader
	timeout time.Duration
}

// WithTimeout bounds every Read on r by d. A non-positive d returns r as is.
func WithTimeout(r Reader, d time.Duration) Reader {
	if d <= 0 {
		return r
	}
	return timeoutReader{next: r, timeout: d}
}

func (r timeoutReader) Read(ctx context.Context, path string) (Tags, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.next.Read(ctx, path)
}

// None never finds metadata, so classification always uses the file
// modification time.
var None Reader = ReaderFunc(func(context.Context, string) (Tags, error) {
	return Tags{}, ErrNoMetadata
})
