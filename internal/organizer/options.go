package organizer

import (
	"mediasort/internal/config"
)

// Options is the immutable pipeline configuration shared by Worker and
// Scheduler.
type Options struct {
	OutputDir                    string
	UnknownDir                   string
	QuarantineOnPlacementFailure bool
	Concurrency                  int
	FatalPolicy                  string
}

// OptionsFromConfig extracts pipeline options from a finalized config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OutputDir:                    cfg.Paths.OutputDir,
		UnknownDir:                   cfg.Organize.UnknownDir,
		QuarantineOnPlacementFailure: cfg.Organize.QuarantineOnPlacementFailure,
		Concurrency:                  cfg.Organize.Concurrency,
		FatalPolicy:                  cfg.Organize.FatalPolicy,
	}
}

func (o Options) unknownDir() string {
	if o.UnknownDir == "" {
		return "unknown"
	}
	return o.UnknownDir
}

func (o Options) concurrency() int {
	if o.Concurrency < 1 {
		return 1
	}
	return o.Concurrency
}

func (o Options) abortOnFatal() bool {
	return o.FatalPolicy == config.FatalPolicyAbort
}
