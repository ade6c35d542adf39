package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediasort/internal/config"
	"mediasort/internal/runner"
)

type runFlags struct {
	input       string
	output      string
	concurrency int
	fatalPolicy string
	backend     string
	timezone    string
	metricsFile string
	noJournal   bool
	noProgress  bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Organize the input directory into the output tree",
		Long: "Move every media file under the input directory into <output>/<year>/<month>/,\n" +
			"using embedded capture dates when available and modification times otherwise.\n" +
			"Files that cannot be dated are moved to the unknown directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(cmd, base)
			if err != nil {
				return err
			}
			stderr := cmd.ErrOrStderr()
			logger, err := ctx.newLogger(cfg, stderr)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var opts runner.Options
			var bar *progressBar
			if !flags.noProgress && isTerminal(stderr) {
				bar = newProgressBar(stderr)
				opts.OnDiscovered = bar.Start
				opts.Progress = bar
			}

			report, err := runner.Run(runCtx, cfg, logger, opts)
			if bar != nil {
				bar.Finish()
			}
			if err != nil {
				if errors.Is(err, runner.ErrOutputLocked) {
					return fmt.Errorf("%w (is another mediasort run active?)", err)
				}
				return err
			}

			printRunReport(newReportWriter(cmd.OutOrStdout()), report)
			return report.Err()
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Directory to organize (overrides paths.input_dir)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Destination root (overrides paths.output_dir)")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "j", 0, "Number of files processed in parallel")
	cmd.Flags().StringVar(&flags.fatalPolicy, "fatal-policy", "", "What to do after an unplaceable file: continue or abort")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Metadata backend: auto, exiftool, exif, ffprobe or none")
	cmd.Flags().StringVar(&flags.timezone, "timezone", "", "Time zone for year/month folders (IANA name, Local or UTC)")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	cmd.Flags().BoolVar(&flags.noJournal, "no-journal", false, "Do not record this run in the history journal")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

// apply returns a copy of base with the changed flags applied.
func (f runFlags) apply(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	cfg := *base
	cfg.Organize.Extensions = append([]string(nil), base.Organize.Extensions...)

	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.Paths.InputDir = f.input
	}
	if changed("output") {
		cfg.Paths.OutputDir = f.output
	}
	if changed("concurrency") {
		if f.concurrency < 1 {
			return nil, fmt.Errorf("--concurrency must be at least 1, got %d", f.concurrency)
		}
		cfg.Organize.Concurrency = f.concurrency
	}
	if changed("fatal-policy") {
		cfg.Organize.FatalPolicy = f.fatalPolicy
	}
	if changed("backend") {
		cfg.Metadata.Backend = f.backend
	}
	if changed("timezone") {
		cfg.Organize.Timezone = f.timezone
	}
	if changed("metrics-file") {
		cfg.Metrics.TextfilePath = f.metricsFile
	}
	if f.noJournal {
		cfg.Journal.Enabled = false
	}
	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("invalid run options: %w", err)
	}
	return &cfg, nil
}

func printRunReport(r *reportWriter, report *runner.Report) {
	s := report.Summary

	rows := [][]string{
		{"Discovered", r.count(report.Discovered)},
		{"Organized", r.count(s.Classified)},
		{"Quarantined", r.count(s.Quarantined)},
		{"Failed", r.count(s.Fatal)},
		{"Left in place", r.count(s.Skipped)},
		{"Renamed on collision", r.count(s.Renamed)},
		{"Ignored (not media)", r.count(report.Ignored)},
	}
	if report.Unreadable > 0 {
		rows = append(rows, []string{"Unreadable paths", r.count(report.Unreadable)})
	}
	r.table([]column{{title: "Outcome"}, {title: "Files", numeric: true}}, rows)

	kind, message := runResult(report)
	r.status("Result", kind, message)
	r.status("Run", statusInfo, report.RunID)
	r.status("Output", statusInfo, report.OutputDir)
	if report.JournalPath != "" {
		if report.JournalFailures > 0 {
			r.status("Journal", statusWarn, r.p.Sprintf("%s (%d record(s) not written)", report.JournalPath, report.JournalFailures))
		} else {
			r.status("Journal", statusInfo, report.JournalPath)
		}
	}
	if report.MetricsPath != "" {
		r.status("Metrics", statusInfo, report.MetricsPath)
	}

	errs := s.Errors()
	if len(errs) == 0 {
		return
	}
	r.blank()
	fmt.Fprintln(r.out, "Failures:")
	for i, err := range errs {
		if i == maxReportedFailures {
			fmt.Fprintf(r.out, "  ... and %s more (see `mediasort history show %s --outcome fatal`)\n", r.count(len(errs)-i), report.RunID)
			break
		}
		fmt.Fprintf(r.out, "  - %v\n", err)
	}
}

const maxReportedFailures = 10

func runResult(report *runner.Report) (statusKind, string) {
	s := report.Summary
	elapsed := formatDuration(s.Duration)
	switch {
	case s.Aborted:
		return statusError, "aborted after " + elapsed
	case s.Canceled:
		return statusWarn, "canceled after " + elapsed
	case s.Fatal > 0:
		return statusError, "completed with failures in " + elapsed
	case s.Quarantined > 0:
		return statusWarn, "completed with quarantined files in " + elapsed
	default:
		return statusOK, "completed in " + elapsed
	}
}
