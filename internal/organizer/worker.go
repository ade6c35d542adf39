package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
)

// OutcomeKind is the terminal state of one file.
type OutcomeKind string

const (
	OutcomeClassified  OutcomeKind = "classified"
	OutcomeQuarantined OutcomeKind = "quarantined"
	OutcomeFatal       OutcomeKind = "fatal"
	// OutcomeSkipped marks files never processed because the run was
	// canceled or aborted. They remain at their original path.
	OutcomeSkipped OutcomeKind = "skipped"
)

// Reason explains a quarantine.
type Reason string

const (
	ReasonClassificationFailed Reason = "classification_failed"
	ReasonPlacementFailed      Reason = "placement_failed"
)

// Outcome is the per-file result of Worker.Process.
type Outcome struct {
	Kind   OutcomeKind
	Source string
	// Destination is the final path for classified and quarantined files.
	Destination     string
	Bucket          Bucket
	TimestampSource TimestampSource
	Reason          Reason
	// Err is the quarantine cause, the fatal error, or the cancellation
	// cause for skipped files.
	Err      error
	Renamed  bool
	Duration time.Duration
}

// FileClassifier is the Classifier contract the Worker depends on.
type FileClassifier interface {
	Classify(ctx context.Context, path string) (Classification, error)
}

// FilePlacer is the Placer contract the Worker depends on.
type FilePlacer interface {
	Place(ctx context.Context, src, targetDir string) (string, error)
}

// Worker processes one file at a time and never fails: every call returns an
// Outcome, including when a collaborator panics.
type Worker struct {
	classifier FileClassifier
	placer     FilePlacer
	opts       Options
	logger     *slog.Logger
}

// NewWorker composes a classifier and a placer.
func NewWorker(classifier FileClassifier, placer FilePlacer, opts Options, logger *slog.Logger) *Worker {
	return &Worker{
		classifier: classifier,
		placer:     placer,
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "worker"),
	}
}

// Process classifies path and places it into its date bucket, falling back to
// the unknown directory. A context that is already done yields a Skipped
// outcome; once started, processing runs to completion regardless of
// cancellation.
func (w *Worker) Process(ctx context.Context, path string) (outcome Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{
				Kind:   OutcomeFatal,
				Source: path,
				Err:    faults.Wrap(faults.ErrTransient, "worker", "process", "panic", fmt.Errorf("%v", r)),
			}
		}
		outcome.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		return Outcome{Kind: OutcomeSkipped, Source: path, Err: err}
	}
	ctx = logging.WithFile(context.WithoutCancel(ctx), path)
	logger := logging.WithContext(ctx, w.logger)

	classification, err := w.classifier.Classify(ctx, path)
	if err != nil {
		logger.Debug("classification failed; quarantining", logging.Error(err))
		return w.quarantine(ctx, logger, path, ReasonClassificationFailed, err)
	}

	targetDir := classification.Bucket.Dir(w.opts.OutputDir, w.opts.unknownDir())
	dest, err := w.placer.Place(ctx, path, targetDir)
	if err != nil {
		if !w.opts.QuarantineOnPlacementFailure {
			return Outcome{
				Kind:            OutcomeFatal,
				Source:          path,
				Bucket:          classification.Bucket,
				TimestampSource: classification.Source,
				Reason:          ReasonPlacementFailed,
				Err:             err,
			}
		}
		logger.Debug("date bucket placement failed; quarantining",
			logging.String("bucket", classification.Bucket.String()),
			logging.Error(err),
		)
		return w.quarantine(ctx, logger, path, ReasonPlacementFailed, err)
	}

	logger.Debug("file placed",
		logging.String("destination", dest),
		logging.String("bucket", classification.Bucket.String()),
		logging.String("timestamp_source", string(classification.Source)),
	)
	return Outcome{
		Kind:            OutcomeClassified,
		Source:          path,
		Destination:     dest,
		Bucket:          classification.Bucket,
		TimestampSource: classification.Source,
		Renamed:         filepath.Base(dest) != filepath.Base(path),
	}
}

func (w *Worker) quarantine(ctx context.Context, logger *slog.Logger, path string, reason Reason, cause error) Outcome {
	dest, err := w.placer.Place(ctx, path, UnknownBucket.Dir(w.opts.OutputDir, w.opts.unknownDir()))
	if err != nil {
		return Outcome{
			Kind:   OutcomeFatal,
			Source: path,
			Reason: reason,
			Err:    faults.Wrap(faults.ErrPlacement, "worker", "quarantine", "unknown directory placement failed", err),
		}
	}
	logger.Debug("file quarantined", logging.String("destination", dest), logging.String("reason", string(reason)))
	return Outcome{
		Kind:        OutcomeQuarantined,
		Source:      path,
		Destination: dest,
		Bucket:      UnknownBucket,
		Reason:      reason,
		Err:         cause,
		Renamed:     filepath.Base(dest) != filepath.Base(path),
	}
}
