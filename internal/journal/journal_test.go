package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
	"mediasort/internal/organizer"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRunLifecycle(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	started := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	if err := j.BeginRun(ctx, "run-1", "/in", "/out", started); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	run, err := j.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != RunRunning || !run.StartedAt.Equal(started) || !run.FinishedAt.IsZero() {
		t.Fatalf("unexpected running row %+v", run)
	}

	counts := Counts{Total: 5, Classified: 3, Quarantined: 1, Fatal: 1, Renamed: 2}
	if err := j.FinishRun(ctx, "run-1", RunCompleted, counts, 1500*time.Millisecond, errors.New("1 file could not be placed")); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, err = j.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != RunCompleted || run.Counts != counts || run.Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected finished row %+v", run)
	}
	if run.Error != "1 file could not be placed" || run.FinishedAt.IsZero() {
		t.Fatalf("unexpected finish metadata %+v", run)
	}

	if _, err := j.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := j.FinishRun(ctx, "missing", RunCompleted, Counts{}, 0, nil); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListAndPruneRuns(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := j.BeginRun(ctx, id, "/in", "/out", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("BeginRun %s: %v", id, err)
		}
	}
	if err := j.RecordPlacement(ctx, Placement{RunID: "a", Seq: 0, Source: "/in/x.jpg", Outcome: "classified"}); err != nil {
		t.Fatalf("RecordPlacement: %v", err)
	}

	runs, err := j.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("expected newest first, got %+v", runs)
	}

	removed, err := j.PruneRuns(ctx, 1)
	if err != nil {
		t.Fatalf("PruneRuns: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 runs removed, got %d", removed)
	}
	placements, err := j.ListPlacements(ctx, "a", PlacementFilter{})
	if err != nil {
		t.Fatalf("ListPlacements: %v", err)
	}
	if len(placements) != 0 {
		t.Fatalf("expected placements to be removed with their run, got %d", len(placements))
	}
}

func TestRecorderStoresOutcomes(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	if err := j.BeginRun(ctx, "run-2", "/in", "/out", time.Now()); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	recorder := NewRecorder(ctx, j, "run-2", logging.NewNop())
	recorder.OnDispatch(0, "/in/a.jpg")
	recorder.OnSettle(0, organizer.Outcome{
		Kind:            organizer.OutcomeClassified,
		Source:          "/in/a.jpg",
		Destination:     "/out/2021/07/a.jpg",
		Bucket:          organizer.Bucket{Year: 2021, Month: 7},
		TimestampSource: organizer.SourceCaptureTime,
		Duration:        12 * time.Millisecond,
	})
	recorder.OnSettle(1, organizer.Outcome{
		Kind:        organizer.OutcomeQuarantined,
		Source:      "/in/b.jpg",
		Destination: "/out/unknown/b_1.jpg",
		Bucket:      organizer.UnknownBucket,
		Reason:      organizer.ReasonClassificationFailed,
		Err:         faults.Wrap(faults.ErrClassification, "classifier", "stat", "no valid date found", nil),
		Renamed:     true,
	})
	recorder.OnSettle(2, organizer.Outcome{Kind: organizer.OutcomeSkipped, Source: "/in/c.jpg", Err: context.Canceled})
	recorder.Close()

	if recorder.Failures() != 0 {
		t.Fatalf("unexpected journal failures: %d", recorder.Failures())
	}

	all, err := j.ListPlacements(ctx, "run-2", PlacementFilter{})
	if err != nil {
		t.Fatalf("ListPlacements: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 placements, got %d", len(all))
	}
	if all[0].Bucket != "2021/07" || all[0].TimestampSource != "capture_time" || all[0].Duration != 12*time.Millisecond {
		t.Fatalf("unexpected classified row %+v", all[0])
	}
	if all[1].Bucket != "unknown" || all[1].ErrorCategory != "classification" || !all[1].Renamed {
		t.Fatalf("unexpected quarantined row %+v", all[1])
	}
	if all[2].Bucket != "" || all[2].ErrorCategory != "canceled" || all[2].Destination != "" {
		t.Fatalf("unexpected skipped row %+v", all[2])
	}

	quarantined, err := j.ListPlacements(ctx, "run-2", PlacementFilter{Outcome: "quarantined"})
	if err != nil {
		t.Fatalf("ListPlacements: %v", err)
	}
	if len(quarantined) != 1 || quarantined[0].Source != "/in/b.jpg" {
		t.Fatalf("unexpected filtered placements %+v", quarantined)
	}
}

func TestRecorderCountsFailures(t *testing.T) {
	j := openTestJournal(t)
	recorder := NewRecorder(context.Background(), j, "no-such-run", logging.NewNop())
	recorder.OnSettle(0, organizer.Outcome{Kind: organizer.OutcomeClassified, Source: "/in/a.jpg"})
	recorder.OnSettle(1, organizer.Outcome{Kind: organizer.OutcomeClassified, Source: "/in/b.jpg"})
	recorder.Close()
	recorder.Close()
	if recorder.Failures() != 2 {
		t.Fatalf("expected foreign key failures to be counted, got %d", recorder.Failures())
	}
}

func TestRecorderDoesNotBlockSettle(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	if err := j.BeginRun(ctx, "run-3", "/in", "/out", time.Now()); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	// An open write transaction keeps the recorder's inserts waiting on the
	// database lock.
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM placements WHERE run_id = ?", "run-3"); err != nil {
		t.Fatalf("lock journal: %v", err)
	}

	recorder := NewRecorder(ctx, j, "run-3", logging.NewNop())
	settled := make(chan struct{})
	go func() {
		defer close(settled)
		for i := range 10 {
			recorder.OnSettle(i, organizer.Outcome{Kind: organizer.OutcomeClassified, Source: fmt.Sprintf("/in/%d.jpg", i)})
		}
	}()
	select {
	case <-settled:
	case <-time.After(2 * time.Second):
		t.Fatal("OnSettle blocked on a busy journal")
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	recorder.Close()
	if recorder.Failures() != 0 {
		t.Fatalf("unexpected journal failures: %d", recorder.Failures())
	}
	rows, err := j.ListPlacements(ctx, "run-3", PlacementFilter{})
	if err != nil {
		t.Fatalf("ListPlacements: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 10 placements after Close, got %d", len(rows))
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := j.BeginRun(ctx, "persisted", "/in", "/out", time.Now()); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetRun(ctx, "persisted"); err != nil {
		t.Fatalf("GetRun after reopen: %v", err)
	}
}

func TestStatusFromSummary(t *testing.T) {
	if StatusFromSummary(organizer.Summary{Aborted: true, Canceled: true}) != RunAborted {
		t.Fatal("abort should win")
	}
	if StatusFromSummary(organizer.Summary{Canceled: true}) != RunCanceled {
		t.Fatal("expected canceled")
	}
	if StatusFromSummary(organizer.Summary{}) != RunCompleted {
		t.Fatal("expected completed")
	}
}

func TestOpenRejectsForeignDatabases(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	newer := filepath.Join(dir, "newer.db")
	j, err := Open(ctx, newer)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := j.db.ExecContext(ctx, "PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = j.Close()
	if _, err := Open(ctx, newer); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("expected ErrIncompatible for newer layout, got %v", err)
	}

	other := filepath.Join(dir, "other.db")
	raw, err := sql.Open("sqlite", "file:"+other)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.ExecContext(ctx, "CREATE TABLE notes (body TEXT)"); err != nil {
		t.Fatalf("seed foreign database: %v", err)
	}
	_ = raw.Close()
	if _, err := Open(ctx, other); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("expected ErrIncompatible for unversioned database with tables, got %v", err)
	}
}
