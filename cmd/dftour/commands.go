package main

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/dftour"
	"github.com/paveg/dftour/internal/config"
	"github.com/paveg/dftour/internal/display"
	dfio "github.com/paveg/dftour/internal/io"
	"github.com/paveg/dftour/internal/tour"
	"github.com/paveg/dftour/internal/version"
	"github.com/spf13/cobra"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the tour, or the steps named with --steps",
		Example: `  dftour run
  dftour run --steps group_agg,compound --format markdown
  dftour run --export-dir out --compression zstd`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout())
		},
	}
	addRunFlags(cmd.Flags())
	return cmd
}

func newStepsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the steps of the tour",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := tour.Steps()
			numbers := make([]int64, len(catalog))
			names := make([]string, len(catalog))
			titles := make([]string, len(catalog))
			for i, step := range catalog {
				numbers[i] = int64(step.Number)
				names[i] = step.Name
				titles[i] = step.Title
			}

			mem := memory.NewGoAllocator()
			df, err := dftour.NewDataFrame(
				dftour.NewSeries("#", numbers, mem),
				dftour.NewSeries("step", names, mem),
				dftour.NewSeries("title", titles, mem),
			)
			if err != nil {
				return err
			}
			defer df.Release()

			opts := a.cfg.DisplayOptions()
			opts.ShowShape = false
			opts.ShowDtypes = false
			opts.MaxRows = 0
			return display.Render(cmd.OutOrStdout(), df, opts)
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.Dump(a.cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func newInspectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Render a Parquet file written by run --export-dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, err := dfio.ReadParquetFile(args[0], memory.NewGoAllocator())
			if err != nil {
				return err
			}
			defer df.Release()

			a.logger.Debug("read parquet", "path", args[0], "rows", df.Len(), "columns", df.Width())
			return display.Render(cmd.OutOrStdout(), df, a.cfg.DisplayOptions())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), version.Info().String())
			return err
		},
	}
}
