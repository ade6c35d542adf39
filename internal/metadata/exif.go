package metadata

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// ExifReader decodes EXIF blocks in-process. It understands JPEG and
// TIFF-based files, which covers most camera raw formats.
type ExifReader struct{}

// Read implements Reader.
func (ExifReader) Read(ctx context.Context, path string) (Tags, error) {
	if err := ctx.Err(); err != nil {
		return Tags{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return Tags{}, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}

	return Tags{
		CaptureTime: exifString(x, exif.DateTimeOriginal),
		CreateTime:  exifString(x, exif.DateTimeDigitized),
		ModifyTime:  exifString(x, exif.DateTime),
	}, nil
}

func exifString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(value, "\x00"))
}
