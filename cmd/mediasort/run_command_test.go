package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mediasort/internal/fileutil"
	"mediasort/internal/testsupport"
)

func TestRunCommandOrganizesByModificationTime(t *testing.T) {
	env := setupCLITestEnv(t)
	in := env.cfg.Paths.InputDir
	testsupport.WriteMedia(t, filepath.Join(in, "a.jpg"), "a", time.Date(2021, time.July, 4, 10, 0, 0, 0, time.UTC))
	testsupport.WriteMedia(t, filepath.Join(in, "clips", "b.mp4"), "b", time.Date(2020, time.January, 15, 12, 0, 0, 0, time.UTC))
	testsupport.WriteMedia(t, filepath.Join(in, "notes.txt"), "n", time.Time{})

	out, stderr, err := runCLI(t, []string{"run", "--no-progress"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, out, "Organized")
	requireContains(t, out, "[OK] completed in")
	requireContains(t, out, env.cfg.Journal.Path)
	requireContains(t, stderr, "mediasort run finished")

	want := []string{".mediasort.lock", "2020/01/b.mp4", "2021/07/a.jpg"}
	if got := testsupport.ListFiles(t, env.cfg.Paths.OutputDir); !reflect.DeepEqual(got, want) {
		t.Fatalf("output tree = %v, want %v", got, want)
	}
	if got := testsupport.ListFiles(t, in); !reflect.DeepEqual(got, []string{"notes.txt"}) {
		t.Fatalf("input tree = %v, want only notes.txt", got)
	}
}

func TestRunCommandFlagOverrides(t *testing.T) {
	env := setupCLITestEnv(t)
	in := filepath.Join(env.baseDir, "card")
	alt := filepath.Join(env.baseDir, "sorted")
	metricsPath := filepath.Join(env.baseDir, "textfile", "mediasort.prom")
	testsupport.WriteMedia(t, filepath.Join(in, "DSC_0001.NEF"), "raw", time.Date(2018, time.December, 31, 23, 30, 0, 0, time.UTC))

	out, stderr, err := runCLI(t, []string{
		"run", "--no-progress",
		"--input", in,
		"--output", alt,
		"--concurrency", "2",
		"--no-journal",
		"--metrics-file", metricsPath,
	}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, out, metricsPath)
	requireNotContains(t, out, "Journal:")

	if got := testsupport.ListFiles(t, alt); !reflect.DeepEqual(got, []string{".mediasort.lock", "2018/12/DSC_0001.NEF"}) {
		t.Fatalf("output tree = %v", got)
	}
	if exists, _ := fileutil.Exists(env.cfg.Journal.Path); exists {
		t.Fatal("journal written despite --no-journal")
	}
	requireContains(t, testsupport.ReadFile(t, metricsPath), "mediasort_files_total")
}

func TestRunCommandTimezoneOverride(t *testing.T) {
	env := setupCLITestEnv(t)
	// 23:30 UTC on the last day of the year is already January in Tokyo.
	testsupport.WriteMedia(t, filepath.Join(env.cfg.Paths.InputDir, "late.jpg"), "x", time.Date(2019, time.December, 31, 23, 30, 0, 0, time.UTC))

	if _, stderr, err := runCLI(t, []string{"run", "--no-progress", "--timezone", "Asia/Tokyo"}, env.configPath); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "2020", "01", "late.jpg")); err != nil {
		t.Fatalf("expected file in 2020/01: %v", err)
	}
}

func TestRunCommandRenamesCollisions(t *testing.T) {
	env := setupCLITestEnv(t)
	in := env.cfg.Paths.InputDir
	stamp := time.Date(2022, time.November, 5, 8, 0, 0, 0, time.UTC)
	testsupport.WriteMedia(t, filepath.Join(in, "a", "img.jpg"), "first", stamp)
	testsupport.WriteMedia(t, filepath.Join(in, "b", "img.jpg"), "second", stamp)

	out, stderr, err := runCLI(t, []string{"run", "--no-progress", "-j", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, out, "Renamed on collision")

	want := []string{".mediasort.lock", "2022/11/img.jpg", "2022/11/img_1.jpg"}
	if got := testsupport.ListFiles(t, env.cfg.Paths.OutputDir); !reflect.DeepEqual(got, want) {
		t.Fatalf("output tree = %v, want %v", got, want)
	}
	contents := map[string]bool{
		testsupport.ReadFile(t, filepath.Join(env.cfg.Paths.OutputDir, "2022", "11", "img.jpg")):   true,
		testsupport.ReadFile(t, filepath.Join(env.cfg.Paths.OutputDir, "2022", "11", "img_1.jpg")): true,
	}
	if !contents["first"] || !contents["second"] {
		t.Fatalf("expected both sources preserved, got %v", contents)
	}
}

func TestRunCommandRejectsInvalidFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "zero concurrency", args: []string{"--concurrency", "0"}, want: "--concurrency"},
		{name: "fatal policy", args: []string{"--fatal-policy", "explode"}, want: "fatal_policy"},
		{name: "backend", args: []string{"--backend", "magic"}, want: "backend"},
		{name: "same dirs", args: []string{"--output", env.cfg.Paths.InputDir}, want: "must differ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, append([]string{"run", "--no-progress"}, tt.args...), env.configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			requireContains(t, err.Error(), tt.want)
		})
	}
}

func TestRunCommandMissingInputIsEmptyRun(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.baseDir, "no-such-card")

	out, stderr, err := runCLI(t, []string{"run", "--no-progress", "--input", missing}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, out, "Discovered")
	requireContains(t, stderr, "input directory does not exist")
}
