package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Placement is one file's record within a run.
type Placement struct {
	RunID string
	// Seq is the file's position in the sorted input list.
	Seq             int
	Source          string
	Destination     string
	Outcome         string
	Bucket          string
	TimestampSource string
	Reason          string
	ErrorCategory   string
	ErrorMessage    string
	Renamed         bool
	Duration        time.Duration
	RecordedAt      time.Time
}

// PlacementFilter narrows ListPlacements.
type PlacementFilter struct {
	// Outcome keeps only rows with this outcome when non-empty.
	Outcome string
	Limit   int
}

const placementColumns = "run_id, seq, source_path, destination_path, outcome, bucket, timestamp_source, reason, error_category, error_message, renamed, duration_ms, recorded_at"

// RecordPlacement inserts p. RecordedAt defaults to now.
func (j *Journal) RecordPlacement(ctx context.Context, p Placement) error {
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now()
	}
	_, err := j.exec(ctx,
		`INSERT INTO placements (`+placementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RunID,
		p.Seq,
		p.Source,
		nullString(p.Destination),
		p.Outcome,
		nullString(p.Bucket),
		nullString(p.TimestampSource),
		nullString(p.Reason),
		nullString(p.ErrorCategory),
		nullString(p.ErrorMessage),
		boolToInt(p.Renamed),
		p.Duration.Milliseconds(),
		formatTime(p.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert placement %s#%d: %w", p.RunID, p.Seq, err)
	}
	return nil
}

// ListPlacements returns the placements of runID in input order.
func (j *Journal) ListPlacements(ctx context.Context, runID string, filter PlacementFilter) ([]Placement, error) {
	query := "SELECT " + placementColumns + " FROM placements WHERE run_id = ?"
	args := []any{runID}
	if filter.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, filter.Outcome)
	}
	query += " ORDER BY seq"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	defer rows.Close()

	var placements []Placement
	for rows.Next() {
		var (
			p           Placement
			destination sql.NullString
			bucket      sql.NullString
			source      sql.NullString
			reason      sql.NullString
			category    sql.NullString
			message     sql.NullString
			renamed     int
			durationMS  int64
			recordedAt  sql.NullString
		)
		if err := rows.Scan(
			&p.RunID,
			&p.Seq,
			&p.Source,
			&destination,
			&p.Outcome,
			&bucket,
			&source,
			&reason,
			&category,
			&message,
			&renamed,
			&durationMS,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		p.Destination = destination.String
		p.Bucket = bucket.String
		p.TimestampSource = source.String
		p.Reason = reason.String
		p.ErrorCategory = category.String
		p.ErrorMessage = message.String
		p.Renamed = renamed != 0
		p.Duration = time.Duration(durationMS) * time.Millisecond
		p.RecordedAt = parseTime(recordedAt)
		placements = append(placements, p)
	}
	return placements, rows.Err()
}
