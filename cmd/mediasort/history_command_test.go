package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mediasort/internal/journal"
	"mediasort/internal/testsupport"
)

func latestRunID(t *testing.T, path string) string {
	t.Helper()
	j, err := journal.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()
	runs, err := j.ListRuns(context.Background(), 1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	return runs[0].ID
}

func TestHistoryBeforeAnyRun(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	_, _, err = runCLI(t, []string{"history", "show", "abc"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for show without a journal")
	}
	requireContains(t, err.Error(), "no run history")
}

func TestHistoryListShowAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	in := env.cfg.Paths.InputDir
	testsupport.WriteMedia(t, filepath.Join(in, "a.jpg"), "a", time.Date(2021, time.July, 4, 10, 0, 0, 0, time.UTC))
	testsupport.WriteMedia(t, filepath.Join(in, "b.png"), "b", time.Date(2020, time.January, 15, 12, 0, 0, 0, time.UTC))

	if _, stderr, err := runCLI(t, []string{"run", "--no-progress"}, env.configPath); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	runID := latestRunID(t, env.cfg.Journal.Path)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, runID)
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, []string{"history", "show", runID}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "2 total, 2 organized")
	requireContains(t, out, "2021/07/a.jpg")
	requireContains(t, out, "2020/01/b.png")
	requireContains(t, out, "date from file_mtime")

	out, _, err = runCLI(t, []string{"history", "show", runID, "--outcome", "quarantined"}, env.configPath)
	if err != nil {
		t.Fatalf("history show --outcome: %v", err)
	}
	requireContains(t, out, "No placements recorded")

	if _, _, err := runCLI(t, []string{"history", "show", "missing-run"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown run")
	} else {
		requireContains(t, err.Error(), "not found")
	}

	out, _, err = runCLI(t, []string{"history", "prune", "--keep", "0"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 1 run(s)")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history after prune: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestHistoryDisabledJournal(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutJournal())

	_, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err == nil {
		t.Fatal("expected error when the journal is disabled")
	}
	requireContains(t, err.Error(), "disabled")
}

func TestRelativeTo(t *testing.T) {
	tests := []struct {
		root, path, want string
	}{
		{"/out", "/out/2021/07/a.jpg", "2021/07/a.jpg"},
		{"/out", "/elsewhere/a.jpg", "/elsewhere/a.jpg"},
		{"/out", "/out/..hidden", "..hidden"},
		{"/out", "", "-"},
	}
	for _, tt := range tests {
		if got := relativeTo(tt.root, tt.path); got != tt.want {
			t.Errorf("relativeTo(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}
