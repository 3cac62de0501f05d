// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/devlayer/devlayer/internal/bake"
	"github.com/devlayer/devlayer/pkg/types"
)

const (
	formatHCL   = "hcl"
	formatTable = "table"
)

func newPlanCommand(app *App) *cobra.Command {
	var (
		flags  keyFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the bake file of a key set without building",
		Long: `Print the bake file of a key set without building.

The keys are resolved against the search directories exactly as build does
and the compiled bake file is printed as HCL, or as a table of stages with
--format table. Docker is not contacted.`,
		Example: `  devlayer plan -i noble.ros2_jazzy --search-dir ./docker
  devlayer plan -i noble -i ros2_jazzy -p aarch64 --format table`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != formatHCL && format != formatTable {
				cmd.SilenceUsage = true
				return &ExitError{Code: types.ExitUsage, Err: fmt.Errorf("invalid --format %q (valid: %s, %s)", format, formatHCL, formatTable)}
			}

			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return app.fail(cmd, err)
			}
			settings, err := app.buildSettings(ctx, cfg, flags.layers)
			if err != nil {
				return app.fail(cmd, err)
			}
			plan, err := app.builder(settings, false).Plan(flags.request())
			if err != nil {
				return app.fail(cmd, err)
			}

			if format == formatTable {
				return writeStageTable(app.stdout, plan.Graph)
			}
			return bake.WriteHCL(app.stdout, plan.Graph)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringArrayVar(&flags.layers.searchDirs, "search-dir", nil, "layer definition directory searched before the configured ones, repeatable")
	cmd.Flags().StringVar(&format, "format", formatHCL, "output format: hcl or table")

	return cmd
}

// writeStageTable renders one row per bake target.
func writeStageTable(w io.Writer, g *bake.Graph) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{Borders: tw.BorderNone}),
	)

	rows := make([][]string, 0, len(g.Targets()))
	for _, t := range g.Targets() {
		dockerfile := t.Dockerfile
		if t.DockerfileInline != "" {
			dockerfile = "(inline)"
		}
		rows = append(rows, []string{t.Name, dockerfile, t.PrimaryTag(), strings.Join(t.DependsOn, ", ")})
	}

	table.Header([]string{"Target", "Dockerfile", "Tag", "Depends On"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
