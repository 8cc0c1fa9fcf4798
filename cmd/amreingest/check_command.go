package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"amreingest/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, credentials, and pipeline settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := ctx.pipelineClient(cfg, ctx.cliLogger(cfg))
			results := preflight.RunAll(cmd.Context(), cfg, client)
			failed := preflight.Failed(results)

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				view := newTableView("Check", "Result", "Detail")
				for _, r := range results {
					state := "ok"
					color := ansiGreen
					if !r.Passed {
						state = "failed"
						color = ansiRed
					}
					if colorize {
						state = color + state + ansiReset
					}
					view.row(r.Name, state, r.Detail)
				}
				view.writeTo(out)
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
