package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mediasort/internal/config"
	"mediasort/internal/discovery"
	"mediasort/internal/faults"
	"mediasort/internal/fileutil"
	"mediasort/internal/journal"
	"mediasort/internal/logging"
	"mediasort/internal/metadata"
	"mediasort/internal/metrics"
	"mediasort/internal/notifications"
	"mediasort/internal/organizer"
	"mediasort/internal/preflight"
)

// ErrOutputLocked reports that another mediasort process holds the output
// tree.
var ErrOutputLocked = errors.New("output directory is locked by another mediasort run")

// Options customizes a run.
type Options struct {
	// Progress receives one tick per settled file. When nil, progress is
	// reported through sampled log lines.
	Progress organizer.Progress
	// OnDiscovered is called with the batch size before dispatch starts.
	OnDiscovered func(total int)
	// Reader overrides the configured metadata backend. The runner does not
	// close it.
	Reader metadata.Reader
	// SkipPreflight disables the readiness checks.
	SkipPreflight bool
	// Notifier overrides the service built from cfg.Notifications.
	Notifier notifications.Service
}

// Report describes a finished run.
type Report struct {
	RunID      string
	InputDir   string
	OutputDir  string
	Discovered int
	Ignored    int
	Unreadable int
	Summary    organizer.Summary
	// JournalPath is empty when the journal was disabled or unavailable.
	JournalPath     string
	JournalFailures int
	MetricsPath     string
}

// Err summarizes per-file problems of a completed run. It is nil when every
// discovered file was placed. A canceled run wraps context.Canceled.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	s := r.Summary
	switch {
	case s.Aborted:
		return fmt.Errorf("run aborted: %d file(s) could not be placed, %d left in place", s.Fatal, s.Skipped)
	case s.Canceled:
		return fmt.Errorf("run canceled: %d file(s) left in place: %w", s.Skipped, context.Canceled)
	case s.Fatal > 0:
		return fmt.Errorf("%d file(s) could not be placed", s.Fatal)
	}
	return nil
}

// Run organizes cfg.Paths.InputDir into cfg.Paths.OutputDir. The returned
// error covers setup failures only; per-file problems are in the report.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Report, error) {
	if cfg == nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "runner", "start", "config is required", nil)
	}
	report, err := run(ctx, cfg, logger, opts)
	notifyRun(ctx, cfg, opts.Notifier, report, err, logger)
	return report, err
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "runner"))

	report := &Report{RunID: runID, InputDir: cfg.Paths.InputDir, OutputDir: cfg.Paths.OutputDir}

	loc, err := cfg.Location()
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "runner", "load timezone", cfg.Organize.Timezone, err)
	}
	if !opts.SkipPreflight {
		if err := runPreflight(ctx, cfg, logger); err != nil {
			return nil, err
		}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "runner", "prepare directories", "", err)
	}

	if cfg.Organize.LockOutput {
		unlock, err := lockOutput(cfg)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	reader := opts.Reader
	if reader == nil {
		rc, err := metadata.Open(cfg.Metadata, logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := rc.Close(); err != nil {
				logger.Warn("metadata backend shutdown failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "metadata_close_failed"),
					logging.String(logging.FieldImpact, "an external tool may still be running"),
				)
			}
		}()
		reader = rc
	}

	jrnl, jrec := openJournal(ctx, cfg, runID, start, logger)
	if jrnl != nil {
		defer jrnl.Close()
		defer jrec.Close()
		report.JournalPath = jrnl.Path()
	}

	found, err := discovery.Discover(cfg.Paths.InputDir, discovery.Options{
		Extensions: cfg.Organize.Extensions,
		Exclude:    []string{cfg.Paths.OutputDir},
		SkipHidden: cfg.Organize.SkipHidden,
		Logger:     logger,
	})
	if err != nil {
		if !errors.Is(err, faults.ErrDiscovery) || !isMissingRoot(cfg.Paths.InputDir) {
			finishJournal(ctx, jrnl, runID, journal.RunFailed, organizer.Summary{}, time.Since(start), err, logger)
			return nil, err
		}
		logging.WarnWithContext(logger, "input directory does not exist; nothing to organize", "input_missing",
			logging.String("input_dir", cfg.Paths.InputDir),
			logging.String(logging.FieldImpact, "no files were processed"),
			logging.String(logging.FieldErrorHint, "check paths.input_dir or pass --input"),
		)
	}
	report.Discovered = len(found.Files)
	report.Ignored = found.Ignored
	report.Unreadable = found.Unreadable

	recorder := metrics.NewRecorder()
	recorder.SetDiscovered(len(found.Files))
	observers := []organizer.Observer{recorder}
	if jrec != nil {
		observers = append(observers, jrec)
	}

	progress := opts.Progress
	if progress == nil {
		progress = newLogProgress(logger, len(found.Files))
	}
	if opts.OnDiscovered != nil {
		opts.OnDiscovered(len(found.Files))
	}

	pipelineOpts := organizer.OptionsFromConfig(cfg)
	worker := organizer.NewWorker(organizer.NewClassifier(reader, loc), organizer.NewPlacer(), pipelineOpts, logger)
	scheduler := organizer.NewScheduler(worker, pipelineOpts, progress, logger, observers...)

	logger.Info("mediasort run started",
		logging.String("input_dir", cfg.Paths.InputDir),
		logging.String("output_dir", cfg.Paths.OutputDir),
		logging.Int("files", len(found.Files)),
		logging.Int("ignored", found.Ignored),
		logging.Int("concurrency", cfg.Organize.Concurrency),
		logging.String("metadata_backend", cfg.Metadata.Backend),
	)

	summary := scheduler.Run(ctx, found.Files)
	report.Summary = summary

	recorder.Finish(summary, time.Now())
	if path := cfg.Metrics.TextfilePath; path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "monitoring will show stale values"),
			)
		} else {
			report.MetricsPath = path
		}
	}
	if jrec != nil {
		jrec.Close()
		report.JournalFailures = jrec.Failures()
	}
	finishJournal(ctx, jrnl, runID, journal.StatusFromSummary(summary), summary, time.Since(start), report.Err(), logger)

	logger.Info("mediasort run finished",
		logging.Int("files", summary.Total),
		logging.Int("classified", summary.Classified),
		logging.Int("quarantined", summary.Quarantined),
		logging.Int("fatal", summary.Fatal),
		logging.Int("skipped", summary.Skipped),
		logging.Int("renamed", summary.Renamed),
		logging.Duration("duration", summary.Duration),
	)
	return report, nil
}

// notifyRun publishes the outcome of a run. Delivery problems are logged and
// never change the run's result.
func notifyRun(ctx context.Context, cfg *config.Config, notifier notifications.Service, report *Report, runErr error, logger *slog.Logger) {
	if notifier == nil {
		notifier = notifications.NewService(cfg.Notifications)
	}
	ctx = context.WithoutCancel(ctx)

	var err error
	switch {
	case runErr != nil:
		err = notifier.NotifyRunFailed(ctx, runErr)
	case report == nil:
		return
	case report.Discovered == 0 && !cfg.Notifications.NotifyEmptyRuns:
		return
	default:
		s := report.Summary
		err = notifier.NotifyRunCompleted(ctx, notifications.RunSummary{
			RunID:       report.RunID,
			OutputDir:   report.OutputDir,
			Discovered:  report.Discovered,
			Organized:   s.Classified,
			Quarantined: s.Quarantined,
			Failed:      s.Fatal,
			Skipped:     s.Skipped,
			Duration:    s.Duration,
			Aborted:     s.Aborted,
			Canceled:    s.Canceled,
		})
	}
	if err != nil {
		logging.WarnWithContext(logging.NewComponentLogger(logger, "runner"), "run notification not delivered", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no push notification for this run"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		)
	}
}

func runPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, cfg)
	for _, result := range results {
		if result.Passed {
			logger.Debug("preflight check passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		if result.Advisory {
			logger.Debug("preflight advisory", logging.String("check", result.Name), logging.String("detail", result.Detail))
		}
	}
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, result := range failed {
		details = append(details, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	return faults.Wrap(faults.ErrConfiguration, "runner", "preflight", strings.Join(details, "; "), nil)
}

func lockOutput(cfg *config.Config) (func(), error) {
	if err := fileutil.EnsureDir(cfg.Paths.OutputDir); err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "runner", "create output directory", "", err)
	}
	lock := flock.New(cfg.OutputLockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, cfg.OutputLockPath())
	}
	return func() { _ = lock.Unlock() }, nil
}

// openJournal returns nil values when the journal is disabled or cannot be
// opened; the run proceeds without history.
func openJournal(ctx context.Context, cfg *config.Config, runID string, start time.Time, logger *slog.Logger) (*journal.Journal, *journal.Recorder) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	// History is written even for runs canceled before they start.
	ctx = context.WithoutCancel(ctx)
	j, err := journal.Open(ctx, cfg.Journal.Path)
	if err == nil {
		err = j.BeginRun(ctx, runID, cfg.Paths.InputDir, cfg.Paths.OutputDir, start)
		if err != nil {
			_ = j.Close()
		}
	}
	if err != nil {
		logging.WarnWithContext(logger, "run journal unavailable", "journal_unavailable",
			logging.String("path", cfg.Journal.Path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in history"),
			logging.String(logging.FieldErrorHint, "check journal.path or disable the journal"),
		)
		return nil, nil
	}
	return j, journal.NewRecorder(ctx, j, runID, logger)
}

func finishJournal(ctx context.Context, j *journal.Journal, runID string, status journal.RunStatus, summary organizer.Summary, elapsed time.Duration, runErr error, logger *slog.Logger) {
	if j == nil {
		return
	}
	if err := j.FinishRun(context.WithoutCancel(ctx), runID, status, journal.CountsFromSummary(summary), elapsed, runErr); err != nil {
		logger.Warn("journal finish failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "journal_write_failed"),
			logging.String(logging.FieldImpact, "run history shows this run as running"),
		)
	}
}

func isMissingRoot(root string) bool {
	exists, err := fileutil.Exists(root)
	return err == nil && !exists
}
