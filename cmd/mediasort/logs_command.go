package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediasort/internal/logging"
	"mediasort/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string
	var level string
	var component string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show entries from the mediasort log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.LogDir == "" {
				return errors.New("paths.log_dir is not set; runs only log to the console")
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFilename)
			filter := logs.Filter{RunID: runID, Component: component, MinLevel: logs.ParseLevel(level)}

			result, err := logs.Tail(path, lines, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, entry := range result.Entries {
				fmt.Fprintln(out, entry.Format())
			}
			if !follow {
				if len(result.Entries) == 0 {
					fmt.Fprintf(out, "No log entries in %s\n", path)
				}
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = logs.Follow(followCtx, path, result.Offset, filter, 250*time.Millisecond, func(entry logs.Entry) {
				fmt.Fprintln(out, entry.Format())
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of entries to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&runID, "run", "", "Only show entries of this run (id or prefix)")
	cmd.Flags().StringVar(&level, "level", "info", "Minimum level: debug, info, warn or error")
	cmd.Flags().StringVar(&component, "component", "", "Only show entries of this component")
	return cmd
}
