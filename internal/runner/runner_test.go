package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"mediasort/internal/config"
	"mediasort/internal/faults"
	"mediasort/internal/journal"
	"mediasort/internal/logging"
	"mediasort/internal/metadata"
	"mediasort/internal/organizer"
	"mediasort/internal/testsupport"
)

func TestRunScenario(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetricsTextfile())
	in, out := cfg.Paths.InputDir, cfg.Paths.OutputDir

	a := testsupport.WriteMedia(t, filepath.Join(in, "a.jpg"), "a", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC))
	testsupport.WriteMedia(t, filepath.Join(in, "b.jpg"), "b", time.Date(2020, time.January, 15, 12, 0, 0, 0, time.UTC))
	c := testsupport.WriteMedia(t, filepath.Join(in, "c.xyz"), "c", time.Date(2019, time.March, 3, 0, 0, 0, 0, time.UTC))

	reader := testsupport.StaticReader{Tags: map[string]metadata.Tags{
		a: {CaptureTime: "2021:07:01 10:00:00"},
	}}

	ticks := 0
	var discovered int
	report, err := Run(context.Background(), cfg, logging.NewNop(), Options{
		Reader:       reader,
		Progress:     organizer.ProgressFunc(func() { ticks++ }),
		OnDiscovered: func(total int) { discovered = total },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Err() != nil {
		t.Fatalf("unexpected per-file errors: %v", report.Err())
	}

	if got, want := testsupport.ListFiles(t, out), []string{".mediasort.lock", "2020/01/b.jpg", "2021/07/a.jpg"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("output tree = %v, want %v", got, want)
	}
	if got := testsupport.ListFiles(t, in); !reflect.DeepEqual(got, []string{"c.xyz"}) {
		t.Fatalf("input tree = %v, want only c.xyz", got)
	}
	if testsupport.ReadFile(t, c) != "c" {
		t.Fatal("c.xyz was modified")
	}

	if report.Discovered != 2 || report.Ignored != 1 || discovered != 2 || ticks != 2 {
		t.Fatalf("unexpected counts: report=%+v discovered=%d ticks=%d", report, discovered, ticks)
	}
	if report.Summary.Classified != 2 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
	if _, err := os.Stat(report.MetricsPath); err != nil {
		t.Fatalf("metrics textfile missing: %v", err)
	}

	j, err := journal.Open(context.Background(), report.JournalPath)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()
	run, err := j.GetRun(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != journal.RunCompleted || run.Counts.Classified != 2 {
		t.Fatalf("unexpected journal run %+v", run)
	}
	placements, err := j.ListPlacements(context.Background(), report.RunID, journal.PlacementFilter{})
	if err != nil {
		t.Fatalf("ListPlacements: %v", err)
	}
	if len(placements) != 2 || placements[0].Bucket != "2021/07" || placements[1].TimestampSource != "file_mtime" {
		t.Fatalf("unexpected placements %+v", placements)
	}
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithConcurrency(3))
	in, out := cfg.Paths.InputDir, cfg.Paths.OutputDir
	mtime := time.Date(2022, time.November, 5, 9, 0, 0, 0, time.UTC)

	for round, content := range []string{"first", "second"} {
		testsupport.WriteMedia(t, filepath.Join(in, "img.jpg"), content, mtime)
		testsupport.WriteMedia(t, filepath.Join(in, "nested", "img.jpg"), content+"-nested", mtime)

		report, err := Run(context.Background(), cfg, logging.NewNop(), Options{})
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if report.Summary.Classified != 2 {
			t.Fatalf("round %d: unexpected summary %+v", round, report.Summary)
		}
	}

	got := testsupport.ListFiles(t, filepath.Join(out, "2022", "11"))
	want := []string{"img.jpg", "img_1.jpg", "img_2.jpg", "img_3.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("bucket = %v, want %v", got, want)
	}
	contents := map[string]bool{}
	for _, name := range got {
		contents[testsupport.ReadFile(t, filepath.Join(out, "2022", "11", name))] = true
	}
	for _, c := range []string{"first", "first-nested", "second", "second-nested"} {
		if !contents[c] {
			t.Fatalf("content %q lost; have %v", c, contents)
		}
	}
	if left := testsupport.ListFiles(t, in); len(left) != 0 {
		t.Fatalf("files left at origin: %v", left)
	}
}

func TestRunQuarantinesUnreadableMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	src := testsupport.WriteMedia(t, filepath.Join(cfg.Paths.InputDir, "broken.mov"), "x", time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC))
	reader := testsupport.StaticReader{Errs: map[string]error{src: errors.New("moov atom not found")}}

	report, err := Run(context.Background(), cfg, logging.NewNop(), Options{Reader: reader})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.Quarantined != 1 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
	if _, err := os.Stat(filepath.Join(cfg.UnknownPath(), "broken.mov")); err != nil {
		t.Fatalf("expected file in unknown dir: %v", err)
	}
}

func TestRunMissingInputIsEmptyBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutJournal())
	if err := os.Remove(cfg.Paths.InputDir); err != nil {
		t.Fatal(err)
	}

	report, err := Run(context.Background(), cfg, logging.NewNop(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Discovered != 0 || report.Summary.Total != 0 || report.Err() != nil {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.JournalPath != "" {
		t.Fatalf("journal should be disabled, got %s", report.JournalPath)
	}
}

func TestRunSkipsNestedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.OutputDir = filepath.Join(cfg.Paths.InputDir, "organized")
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteMedia(t, filepath.Join(cfg.Paths.OutputDir, "2019", "01", "done.jpg"), "done", time.Date(2019, time.January, 2, 0, 0, 0, 0, time.UTC))
	testsupport.WriteMedia(t, filepath.Join(cfg.Paths.InputDir, "new.jpg"), "new", time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC))

	report, err := Run(context.Background(), cfg, logging.NewNop(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Discovered != 1 {
		t.Fatalf("expected only new.jpg to be discovered, got %d", report.Discovered)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "2024", "02", "new.jpg")); err != nil {
		t.Fatalf("new.jpg not placed: %v", err)
	}
}

func TestRunRefusesLockedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.OutputLockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer held.Unlock()

	testsupport.WriteMedia(t, filepath.Join(cfg.Paths.InputDir, "a.jpg"), "a", time.Now())
	if _, err := Run(context.Background(), cfg, logging.NewNop(), Options{}); !errors.Is(err, ErrOutputLocked) {
		t.Fatalf("expected ErrOutputLocked, got %v", err)
	}
	if left := testsupport.ListFiles(t, cfg.Paths.InputDir); len(left) != 1 {
		t.Fatalf("input must be untouched, got %v", left)
	}
}

func TestRunPreflightFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetadataBackend(config.BackendExiftool))
	cfg.Metadata.ExiftoolBinary = "clearly-not-present-exiftool"

	_, err := Run(context.Background(), cfg, logging.NewNop(), Options{})
	if !errors.Is(err, faults.ErrConfiguration) || !strings.Contains(err.Error(), "ExifTool") {
		t.Fatalf("expected preflight configuration error, got %v", err)
	}
}

func TestRunCanceledLeavesFilesInPlace(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithConcurrency(1))
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		testsupport.WriteMedia(t, filepath.Join(cfg.Paths.InputDir, name), name, time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, cfg, logging.NewNop(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Summary.Canceled || report.Summary.Skipped != 3 || report.Err() == nil {
		t.Fatalf("unexpected report %+v", report.Summary)
	}
	if left := testsupport.ListFiles(t, cfg.Paths.InputDir); len(left) != 3 {
		t.Fatalf("expected all files left in place, got %v", left)
	}

	j, err := journal.Open(context.Background(), report.JournalPath)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	run, err := j.GetRun(context.Background(), report.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != journal.RunCanceled || run.Counts.Skipped != 3 {
		t.Fatalf("unexpected journal run %+v", run)
	}
}

func TestReportErr(t *testing.T) {
	tests := []struct {
		summary organizer.Summary
		want    string
	}{
		{organizer.Summary{}, ""},
		{organizer.Summary{Fatal: 2}, "2 file(s) could not be placed"},
		{organizer.Summary{Fatal: 1, Skipped: 4, Aborted: true}, "run aborted"},
		{organizer.Summary{Skipped: 3, Canceled: true}, "run canceled"},
	}
	for _, tt := range tests {
		err := (&Report{Summary: tt.summary}).Err()
		if tt.want == "" {
			if err != nil {
				t.Errorf("expected nil error for %+v, got %v", tt.summary, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("Err() = %v, want substring %q", err, tt.want)
		}
		if got := errors.Is(err, context.Canceled); got != tt.summary.Canceled {
			t.Errorf("errors.Is(%v, context.Canceled) = %v", err, got)
		}
	}
}
