package main

import (
	"os"
	"testing"

	"mediasort/internal/testsupport"
)

func TestDoctorReady(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Configuration\n─────────────\n")
	requireContains(t, out, env.configPath)
	requireContains(t, out, "Input directory")
	requireContains(t, out, "(will be created)")
	requireContains(t, out, "[OK] ready to run")
}

func TestDoctorReportsMissingInputAsWarning(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(env.cfg.Paths.InputDir); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	requireContains(t, out, "[WARN]")
	requireContains(t, out, "1 warning(s)")
}

func TestDoctorFailsOnUnusableOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.Touch(t, env.cfg.Paths.OutputDir)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, err.Error(), "preflight check(s) failed")
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "is not a directory")
}

func TestDoctorChecksConfiguredBackend(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMetadataBackend("exiftool"), testsupport.WithStubbedBinaries("exiftool"))

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "exiftool")
}
