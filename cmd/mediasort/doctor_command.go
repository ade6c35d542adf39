package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediasort/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories and metadata tools before a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			r := newReportWriter(cmd.OutOrStdout())

			r.section("Configuration")
			configMsg := ctx.configPath
			if !ctx.configExists {
				configMsg += " (not found, using defaults)"
			}
			r.status("Config file", statusInfo, configMsg)
			r.status("Metadata backend", statusInfo, cfg.Metadata.Backend)
			r.status("Concurrency", statusInfo, r.count(cfg.Organize.Concurrency))
			r.status("Journal", statusInfo, yesNo(cfg.Journal.Enabled))
			r.blank()

			r.section("Checks")
			results := preflight.RunAll(cmd.Context(), cfg)
			r.preflight(results)

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
}
