package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mediasort/internal/config"
	"mediasort/internal/fileutil"
	"mediasort/internal/journal"
)

var errNoHistory = errors.New("no run history recorded yet")

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withJournal(cmd.Context(), ctx, func(j *journal.Journal) error {
				runs, err := j.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				r := newReportWriter(cmd.OutOrStdout())
				if len(runs) == 0 {
					fmt.Fprintln(r.out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						formatTimestamp(run.StartedAt),
						string(run.Status),
						r.count(run.Counts.Total),
						r.count(run.Counts.Classified),
						r.count(run.Counts.Quarantined),
						r.count(run.Counts.Fatal),
						formatDuration(run.Duration),
					})
				}
				r.table([]column{
					{title: "Run"}, {title: "Started"}, {title: "Status"},
					{title: "Files", numeric: true}, {title: "Organized", numeric: true},
					{title: "Quarantined", numeric: true}, {title: "Failed", numeric: true},
					{title: "Duration", numeric: true},
				}, rows)
				return nil
			})
			if errors.Is(err, errNoHistory) {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var outcome string
	var limit int

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the placements of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := strings.TrimSpace(args[0])
			return withJournal(cmd.Context(), ctx, func(j *journal.Journal) error {
				run, err := j.GetRun(cmd.Context(), runID)
				if err != nil {
					if errors.Is(err, journal.ErrRunNotFound) {
						return fmt.Errorf("run %s not found", runID)
					}
					return err
				}
				placements, err := j.ListPlacements(cmd.Context(), run.ID, journal.PlacementFilter{
					Outcome: strings.ToLower(strings.TrimSpace(outcome)),
					Limit:   limit,
				})
				if err != nil {
					return err
				}

				r := newReportWriter(cmd.OutOrStdout())
				r.section("Run " + run.ID)
				r.status("Status", runStatusKind(run.Status), string(run.Status))
				r.status("Started", statusInfo, formatTimestamp(run.StartedAt))
				r.status("Duration", statusInfo, formatDuration(run.Duration))
				r.status("Input", statusInfo, run.InputDir)
				r.status("Output", statusInfo, run.OutputDir)
				r.status("Files", statusInfo, r.p.Sprintf(
					"%d total, %d organized, %d quarantined, %d failed, %d left in place, %d renamed",
					run.Counts.Total, run.Counts.Classified, run.Counts.Quarantined, run.Counts.Fatal, run.Counts.Skipped, run.Counts.Renamed,
				))
				if run.Error != "" {
					r.status("Error", statusError, run.Error)
				}
				r.blank()

				if len(placements) == 0 {
					fmt.Fprintln(r.out, "No placements recorded")
					return nil
				}
				rows := make([][]string, 0, len(placements))
				for _, pl := range placements {
					rows = append(rows, []string{
						fmt.Sprint(pl.Seq + 1),
						relativeTo(run.InputDir, pl.Source),
						relativeTo(run.OutputDir, pl.Destination),
						pl.Outcome,
						placementDetail(pl),
					})
				}
				r.table([]column{
					{title: "#", numeric: true}, {title: "Source"}, {title: "Destination"}, {title: "Outcome"}, {title: "Detail"},
				}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "Only show classified, quarantined, fatal or skipped files")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of placements to show (0 for all)")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative, got %d", keep)
			}
			err := withJournal(cmd.Context(), ctx, func(j *journal.Journal) error {
				removed, err := j.PruneRuns(cmd.Context(), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s), kept the %d most recent\n", removed, keep)
				return nil
			})
			if errors.Is(err, errNoHistory) {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 20, "Number of most recent runs to keep")
	return cmd
}

// withJournal opens the configured journal for fn. It returns errNoHistory
// when no run has been recorded yet.
func withJournal(ctx context.Context, cc *commandContext, fn func(*journal.Journal) error) error {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	path, err := journalPath(cfg)
	if err != nil {
		return err
	}
	exists, err := fileutil.Exists(path)
	if err != nil {
		return fmt.Errorf("check journal %s: %w", path, err)
	}
	if !exists {
		return fmt.Errorf("%w at %s", errNoHistory, path)
	}
	j, err := journal.Open(ctx, path)
	if err != nil {
		return err
	}
	defer j.Close()
	return fn(j)
}

func journalPath(cfg *config.Config) (string, error) {
	if !cfg.Journal.Enabled {
		return "", errors.New("the run journal is disabled (journal.enabled = false)")
	}
	return cfg.Journal.Path, nil
}

func runStatusKind(status journal.RunStatus) statusKind {
	switch status {
	case journal.RunCompleted:
		return statusOK
	case journal.RunCanceled, journal.RunRunning:
		return statusWarn
	default:
		return statusError
	}
}

func placementDetail(p journal.Placement) string {
	parts := make([]string, 0, 3)
	if p.TimestampSource != "" {
		parts = append(parts, "date from "+p.TimestampSource)
	}
	if p.Reason != "" {
		parts = append(parts, p.Reason)
	}
	if p.Renamed {
		parts = append(parts, "renamed")
	}
	if p.ErrorMessage != "" {
		parts = append(parts, p.ErrorMessage)
	}
	return strings.Join(parts, "; ")
}

func relativeTo(root, path string) string {
	if path == "" {
		return "-"
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return path
	}
	return filepath.ToSlash(rel)
}
