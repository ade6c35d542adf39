package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
	"mediasort/internal/organizer"
)

// recorderQueue bounds placements waiting for the writer. OnSettle blocks
// only when the writer falls this far behind.
const recorderQueue = 256

// Recorder writes every settled outcome of one run to the journal. It
// implements organizer.Observer. Rows are queued and written by a background
// goroutine so the scheduler never waits on SQLite; Close flushes the queue.
type Recorder struct {
	journal *Journal
	runID   string
	ctx     context.Context
	logger  *slog.Logger

	queue     chan Placement
	done      chan struct{}
	closeOnce sync.Once
	failures  atomic.Int64
}

// NewRecorder returns an observer recording into runID. The caller must
// Close it once the scheduler has returned.
func NewRecorder(ctx context.Context, j *Journal, runID string, logger *slog.Logger) *Recorder {
	r := &Recorder{
		journal: j,
		runID:   runID,
		ctx:     context.WithoutCancel(ctx),
		logger:  logging.NewComponentLogger(logger, "journal"),
		queue:   make(chan Placement, recorderQueue),
		done:    make(chan struct{}),
	}
	go r.write()
	return r
}

// OnDispatch implements organizer.Observer.
func (r *Recorder) OnDispatch(int, string) {}

// OnSettle implements organizer.Observer. It must not be called after Close.
func (r *Recorder) OnSettle(index int, outcome organizer.Outcome) {
	r.queue <- PlacementFromOutcome(r.runID, index, outcome)
}

// Close waits until every queued placement has been written. It is safe to
// call more than once.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.queue) })
	<-r.done
}

// Failures returns the number of placements that could not be recorded.
// The count is final once Close has returned.
func (r *Recorder) Failures() int {
	return int(r.failures.Load())
}

// write drains the queue. Write failures are logged once and counted; they
// never affect the run.
func (r *Recorder) write() {
	defer close(r.done)
	for placement := range r.queue {
		err := r.journal.RecordPlacement(r.ctx, placement)
		if err == nil {
			continue
		}
		if r.failures.Add(1) == 1 {
			logging.WarnWithContext(r.logger, "journal write failed", "journal_write_failed",
				logging.String(logging.FieldRunID, r.runID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "run history will be incomplete"),
				logging.String(logging.FieldErrorHint, "check free space and permissions of the journal path"),
			)
		}
	}
}

// PlacementFromOutcome converts a pipeline outcome to a journal row.
func PlacementFromOutcome(runID string, index int, outcome organizer.Outcome) Placement {
	p := Placement{
		RunID:           runID,
		Seq:             index,
		Source:          outcome.Source,
		Destination:     outcome.Destination,
		Outcome:         string(outcome.Kind),
		TimestampSource: string(outcome.TimestampSource),
		Reason:          string(outcome.Reason),
		Renamed:         outcome.Renamed,
		Duration:        outcome.Duration,
	}
	switch outcome.Kind {
	case organizer.OutcomeClassified, organizer.OutcomeQuarantined:
		p.Bucket = outcome.Bucket.String()
	}
	if outcome.Err != nil {
		p.ErrorCategory = faults.Category(outcome.Err)
		p.ErrorMessage = outcome.Err.Error()
	}
	return p
}

// CountsFromSummary extracts run totals from a scheduler summary.
func CountsFromSummary(summary organizer.Summary) Counts {
	return Counts{
		Total:       summary.Total,
		Classified:  summary.Classified,
		Quarantined: summary.Quarantined,
		Fatal:       summary.Fatal,
		Skipped:     summary.Skipped,
		Renamed:     summary.Renamed,
	}
}

// StatusFromSummary maps a finished scheduler summary to a run status.
func StatusFromSummary(summary organizer.Summary) RunStatus {
	switch {
	case summary.Aborted:
		return RunAborted
	case summary.Canceled:
		return RunCanceled
	default:
		return RunCompleted
	}
}
