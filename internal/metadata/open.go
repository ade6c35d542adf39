package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"mediasort/internal/config"
	"mediasort/internal/faults"
	"mediasort/internal/logging"
	"mediasort/internal/media"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// Open builds the reader selected by cfg.Backend, bounded by cfg's timeout.
// The exiftool reader applies the timeout itself once a request owns the
// shared process.
//
// The auto backend prefers exiftool for every file when it is installed.
// Without it, images and raw files are decoded in-process and videos go
// through ffprobe when available.
func Open(cfg config.Metadata, logger *slog.Logger) (ReadCloser, error) {
	logger = logging.NewComponentLogger(logger, "metadata")
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	wrap := func(r Reader) ReadCloser {
		return NopCloser(WithTimeout(r, timeout))
	}

	switch cfg.Backend {
	case config.BackendNone:
		return NopCloser(None), nil
	case config.BackendExif:
		return wrap(ExifReader{}), nil
	case config.BackendFFprobe:
		if _, err := lookPath(cfg.FFprobeBinary); err != nil {
			return nil, missingBinary(cfg.FFprobeBinary, err)
		}
		return wrap(FFprobeReader{Binary: cfg.FFprobeBinary}), nil
	case config.BackendExiftool:
		if _, err := lookPath(cfg.ExiftoolBinary); err != nil {
			return nil, missingBinary(cfg.ExiftoolBinary, err)
		}
		return NewExiftoolReader(cfg.ExiftoolBinary, timeout, logger), nil
	case config.BackendAuto, "":
		if _, err := lookPath(cfg.ExiftoolBinary); err == nil {
			logger.Info("metadata backend selected", logging.String("backend", config.BackendExiftool))
			return NewExiftoolReader(cfg.ExiftoolBinary, timeout, logger), nil
		}
		auto := ByKind{Image: ExifReader{}, Raw: ExifReader{}, Other: ExifReader{}}
		if _, err := lookPath(cfg.FFprobeBinary); err == nil {
			auto.Video = FFprobeReader{Binary: cfg.FFprobeBinary}
		} else {
			logging.WarnWithContext(logger, "ffprobe not found; videos will be dated by modification time", "metadata_backend_degraded",
				logging.String("binary", cfg.FFprobeBinary),
				logging.String(logging.FieldErrorHint, "install ffmpeg or exiftool"),
				logging.String(logging.FieldImpact, "video capture dates are approximated"),
			)
		}
		logger.Info("metadata backend selected", logging.String("backend", "exif+ffprobe"))
		return wrap(auto), nil
	default:
		return nil, faults.Wrap(faults.ErrConfiguration, "metadata", "open", fmt.Sprintf("unsupported backend %q", cfg.Backend), nil)
	}
}

// ByKind dispatches to a reader chosen by the file's media kind. A nil
// reader for a kind behaves like None.
type ByKind struct {
	Image Reader
	Raw   Reader
	Video Reader
	Other Reader
}

// Read implements Reader.
func (b ByKind) Read(ctx context.Context, path string) (Tags, error) {
	var r Reader
	switch media.KindOf(path) {
	case media.KindImage:
		r = b.Image
	case media.KindRaw:
		r = b.Raw
	case media.KindVideo:
		r = b.Video
	default:
		r = b.Other
	}
	if r == nil {
		return Tags{}, ErrNoMetadata
	}
	return r.Read(ctx, path)
}

func missingBinary(binary string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return faults.Wrap(faults.ErrConfiguration, "metadata", "open", fmt.Sprintf("%s not found on PATH", binary), err)
	}
	return faults.Wrap(faults.ErrConfiguration, "metadata", "open", fmt.Sprintf("resolve %s", binary), err)
}
