package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"amreingest/internal/logging"
	"amreingest/internal/queue"
	"amreingest/internal/report"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var asJSON bool
	var statusNames []string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show completed and failed jobs, or the whole job table",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilter(statusNames)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.DatabasePath()); os.IsNotExist(err) {
				fmt.Fprintf(out, "No job database at %s; load packages with 'amreingest run --from-list' or '--from-storage'\n", cfg.DatabasePath())
				return nil
			}

			store, err := queue.Open(cfg, logging.NewNop())
			if err != nil {
				return err
			}
			defer store.Close()

			var rep report.Report
			if all {
				rep, err = report.Build(cmd.Context(), store, true)
			} else {
				rep, err = report.BuildFor(cmd.Context(), store, statuses...)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, rep)
			}
			renderReport(out, rep, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "List every job regardless of status")
	cmd.Flags().StringSliceVarP(&statusNames, "status", "s", nil, "List only jobs in these statuses (new, in_progress, complete, error)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.MarkFlagsMutuallyExclusive("all", "status")
	return cmd
}

func parseStatusFilter(names []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(names))
	for _, name := range names {
		status, ok := queue.ParseStatus(name)
		if !ok {
			known := make([]string, 0, 4)
			for _, s := range queue.AllStatuses() {
				known = append(known, strings.ToLower(string(s)))
			}
			return nil, fmt.Errorf("unknown status %q (valid: %s)", name, strings.Join(known, ", "))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
