package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
	RunCanceled  RunStatus = "canceled"
	RunFailed    RunStatus = "failed"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Counts are the per-outcome totals of a run.
type Counts struct {
	Total       int
	Classified  int
	Quarantined int
	Fatal       int
	Skipped     int
	Renamed     int
}

// Run is one row of the runs table.
type Run struct {
	ID         string
	Status     RunStatus
	InputDir   string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     Counts
	Duration   time.Duration
	Error      string
}

const runColumns = "id, status, input_dir, output_dir, started_at, finished_at, total, classified, quarantined, fatal, skipped, renamed, duration_ms, error_message"

// BeginRun records a new running run.
func (j *Journal) BeginRun(ctx context.Context, id, inputDir, outputDir string, startedAt time.Time) error {
	_, err := j.exec(ctx,
		`INSERT INTO runs (id, status, input_dir, output_dir, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(RunRunning), inputDir, outputDir, formatTime(startedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", id, err)
	}
	return nil
}

// FinishRun stores the final status and counts of a run.
func (j *Journal) FinishRun(ctx context.Context, id string, status RunStatus, counts Counts, duration time.Duration, runErr error) error {
	var message sql.NullString
	if runErr != nil {
		message = nullString(runErr.Error())
	}
	res, err := j.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, total = ?, classified = ?, quarantined = ?,
            fatal = ?, skipped = ?, renamed = ?, duration_ms = ?, error_message = ?
        WHERE id = ?`,
		string(status), formatTime(time.Now()), counts.Total, counts.Classified, counts.Quarantined,
		counts.Fatal, counts.Skipped, counts.Renamed, duration.Milliseconds(), message, id,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun loads a run by id.
func (j *Journal) GetRun(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("load run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneRuns deletes all but the keep most recent runs together with their
// placements. It returns the number of runs removed.
func (j *Journal) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := j.exec(ctx,
		`DELETE FROM runs WHERE id NOT IN (
            SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run        Run
		status     string
		startedAt  sql.NullString
		finishedAt sql.NullString
		durationMS int64
		message    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&status,
		&run.InputDir,
		&run.OutputDir,
		&startedAt,
		&finishedAt,
		&run.Counts.Total,
		&run.Counts.Classified,
		&run.Counts.Quarantined,
		&run.Counts.Fatal,
		&run.Counts.Skipped,
		&run.Counts.Renamed,
		&durationMS,
		&message,
	); err != nil {
		return Run{}, err
	}
	run.Status = RunStatus(status)
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.Error = message.String
	return run, nil
}
