package preflight

import (
	"context"
	"fmt"

	"mediasort/internal/config"
	"mediasort/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Advisory results never block a run.
	Advisory bool
}

// RunAll executes the checks that gate a run for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDirectory("Input directory", cfg.Paths.InputDir),
		CheckWritableTarget("Output directory", cfg.Paths.OutputDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckWritableTarget("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Journal.Enabled {
		results = append(results, advisory(CheckWritableTarget("Journal directory", parentDir(cfg.Journal.Path))))
	}
	results = append(results, CheckSameFilesystem("Input/output volume", cfg.Paths.InputDir, cfg.Paths.OutputDir))

	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, resultFromStatus(status))
	}
	return results
}

// Failed returns the blocking results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Advisory {
			failed = append(failed, result)
		}
	}
	return failed
}

// CheckSystemDeps evaluates the metadata binaries for the given config.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	if cfg.Metadata.Backend == config.BackendNone || cfg.Metadata.Backend == config.BackendExif {
		return nil
	}
	return deps.CheckBinaries(ctx, deps.MetadataRequirements(cfg.Metadata))
}

func resultFromStatus(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available, Advisory: status.Optional}
	switch {
	case status.Available && status.Version != "":
		result.Detail = fmt.Sprintf("%s (%s)", status.Path, status.Version)
	case status.Available:
		result.Detail = status.Path
	case status.Optional:
		result.Detail = fmt.Sprintf("%s; optional: %s", status.Detail, status.Description)
	default:
		result.Detail = status.Detail
	}
	return result
}

func advisory(result Result) Result {
	result.Advisory = true
	return result
}
