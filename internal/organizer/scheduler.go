package organizer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
)

// errRunAborted is the skip cause after a fatal outcome under the abort
// policy.
var errRunAborted = errors.New("run aborted after unrecoverable file")

// Processor handles one file. Worker is the production implementation.
type Processor interface {
	Process(ctx context.Context, path string) Outcome
}

// Progress receives one Tick per settled file.
type Progress interface {
	Tick()
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func()

// Tick calls f.
func (f ProgressFunc) Tick() { f() }

// Observer is notified as files are dispatched and settle. Calls are
// serialized under the scheduler's lock, so observers must not block on I/O.
// OnSettle is also called for files that were never dispatched because the
// run stopped early.
type Observer interface {
	OnDispatch(index int, path string)
	OnSettle(index int, outcome Outcome)
}

// Summary aggregates a run.
type Summary struct {
	Total       int
	Classified  int
	Quarantined int
	Fatal       int
	Skipped     int
	Renamed     int
	// Outcomes is indexed like the input file list.
	Outcomes []Outcome
	Duration time.Duration
	// Aborted is set when the abort policy stopped dispatch.
	Aborted bool
	// Canceled is set when the caller's context stopped dispatch.
	Canceled bool
}

// Settled returns the number of files that reached a terminal state through
// processing.
func (s Summary) Settled() int {
	return s.Classified + s.Quarantined + s.Fatal
}

// Errors returns the errors of fatal outcomes in input order.
func (s Summary) Errors() []error {
	var errs []error
	for _, outcome := range s.Outcomes {
		if outcome.Kind == OutcomeFatal && outcome.Err != nil {
			errs = append(errs, outcome.Err)
		}
	}
	return errs
}

// Scheduler runs a Processor over a file list with at most Concurrency
// files in flight.
type Scheduler struct {
	processor Processor
	opts      Options
	progress  Progress
	observers []Observer
	logger    *slog.Logger
}

// NewScheduler returns a scheduler for processor. progress may be nil.
func NewScheduler(processor Processor, opts Options, progress Progress, logger *slog.Logger, observers ...Observer) *Scheduler {
	return &Scheduler{
		processor: processor,
		opts:      opts,
		progress:  progress,
		observers: observers,
		logger:    logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Run dispatches files in order, each exactly once, and returns after every
// dispatched file has settled. Canceling ctx stops further dispatch; files
// not yet dispatched are reported as skipped. Under the abort policy the
// first fatal outcome has the same effect.
func (s *Scheduler) Run(ctx context.Context, files []string) Summary {
	start := time.Now()
	summary := Summary{Total: len(files), Outcomes: make([]Outcome, len(files))}

	runCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.opts.concurrency())
	)

	settle := func(index int, outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		summary.Outcomes[index] = outcome
		switch outcome.Kind {
		case OutcomeClassified:
			summary.Classified++
		case OutcomeQuarantined:
			summary.Quarantined++
		case OutcomeFatal:
			summary.Fatal++
		case OutcomeSkipped:
			summary.Skipped++
		}
		if outcome.Renamed {
			summary.Renamed++
		}
		if outcome.Kind == OutcomeFatal {
			logging.ErrorWithContext(s.logger, "file could not be placed", "file_unrecoverable",
				logging.String(logging.FieldFile, outcome.Source),
				logging.String("category", faults.Category(outcome.Err)),
				logging.Error(outcome.Err),
				logging.String(logging.FieldErrorHint, "check permissions and free space on the output volume"),
			)
			if s.opts.abortOnFatal() && !summary.Aborted {
				summary.Aborted = true
				stop(errRunAborted)
			}
		}
		for _, observer := range s.observers {
			observer.OnSettle(index, outcome)
		}
		if s.progress != nil && outcome.Kind != OutcomeSkipped {
			s.progress.Tick()
		}
	}

	dispatched := 0
dispatch:
	for index, path := range files {
		select {
		case <-runCtx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		if runCtx.Err() != nil {
			<-sem
			break dispatch
		}

		mu.Lock()
		for _, observer := range s.observers {
			observer.OnDispatch(index, path)
		}
		mu.Unlock()

		dispatched++
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			outcome := s.processor.Process(runCtx, path)
			if outcome.Source == "" {
				outcome.Source = path
			}
			settle(index, outcome)
		}(index, path)
	}
	wg.Wait()

	if dispatched < len(files) {
		cause := context.Cause(runCtx)
		if errors.Is(cause, errRunAborted) {
			summary.Aborted = true
		} else {
			summary.Canceled = true
		}
		s.logger.Warn("run stopped before all files were dispatched",
			logging.Int("dispatched", dispatched),
			logging.Int("remaining", len(files)-dispatched),
			logging.Error(cause),
			logging.String(logging.FieldEventType, "run_interrupted"),
			logging.String(logging.FieldImpact, "remaining files were left in place"),
			logging.String(logging.FieldErrorHint, "rerun to process the remaining files"),
		)
		for index := dispatched; index < len(files); index++ {
			settle(index, Outcome{Kind: OutcomeSkipped, Source: files[index], Err: cause})
		}
	} else if ctx.Err() != nil {
		summary.Canceled = true
	}

	summary.Duration = time.Since(start)
	return summary
}
