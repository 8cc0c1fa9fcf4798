package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"amreingest/internal/report"
)

func newPackagesCommand(ctx *commandContext) *cobra.Command {
	packagesCmd := &cobra.Command{
		Use:   "packages",
		Short: "Inspect compressed AIPs in the Storage Service",
	}

	packagesCmd.AddCommand(newPackagesListCommand(ctx))
	packagesCmd.AddCommand(newPackagesCompareCommand(ctx))
	return packagesCmd
}

func newPackagesListCommand(ctx *commandContext) *cobra.Command {
	var verbose bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Count compressed AIPs in the Storage Service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := ctx.pipelineClient(cfg, ctx.cliLogger(cfg))
			packages, err := client.CompressedPackages(cmd.Context())
			if err != nil {
				return fmt.Errorf("list compressed AIPs: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), packages)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d compressed AIPs in the Storage Service\n", len(packages))
			if !verbose || len(packages) == 0 {
				return nil
			}
			view := newTableView("Package", "Size", "Path").numeric(1)
			for _, id := range sortedKeys(packages) {
				pkg := packages[id]
				path := pkg.CurrentFullPath
				if path == "" {
					path = pkg.CurrentPath
				}
				view.row(id, strconv.FormatInt(pkg.Size, 10), path)
			}
			view.writeTo(out)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every package")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newPackagesCompareCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compare <list-file>",
		Short: "Compare a package list with the Storage Service inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			list, err := readPackageList(args[0])
			if err != nil {
				return err
			}
			client := ctx.pipelineClient(cfg, ctx.cliLogger(cfg))
			packages, err := client.CompressedPackages(cmd.Context())
			if err != nil {
				return fmt.Errorf("list compressed AIPs: %w", err)
			}

			cmp := report.Compare(list, packages)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), cmp)
			}

			out := cmd.OutOrStdout()
			if cmp.Identical() {
				fmt.Fprintln(out, "Both lists of compressed AIPs are identical. Recommendation is to proceed with reingest")
				return nil
			}
			fmt.Fprintf(out, "Only in user list (%d):\n", len(cmp.OnlyInList))
			for _, id := range cmp.OnlyInList {
				fmt.Fprintf(out, "  %s\n", id)
			}
			fmt.Fprintf(out, "Only in Storage Service (%d):\n", len(cmp.OnlyInStorage))
			for _, id := range cmp.OnlyInStorage {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
