package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/paveg/dftour/internal/config"
	"github.com/paveg/dftour/internal/display"
	"github.com/paveg/dftour/internal/tour"
	"github.com/paveg/dftour/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app carries what PersistentPreRunE resolved to the subcommands
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCmd creates and returns the root command. Without a subcommand it
// runs the tour.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "dftour",
		Short: "A guided tour of DataFrame operations",
		Long: `dftour builds three small tables and walks through projection, derived
columns, filtering, grouping, aggregation, a compound pipeline, a left join
and a vertical concatenation, printing every result.`,
		Version: version.Info().Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./dftour.yaml)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringP("format", "f", config.DefaultFormat, "Output format (table|markdown|json)")
	addRunFlags(rootCmd.Flags())

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{display.FormatTable, display.FormatMarkdown, display.FormatJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newStepsCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))
	rootCmd.AddCommand(newInspectCommand(a))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// addRunFlags registers the flags shared by the root and run commands
func addRunFlags(flags *pflag.FlagSet) {
	flags.StringSlice("steps", nil, "Comma-separated steps to run (default: all)")
	flags.String("export-dir", "", "Write each result to <dir>/<NN>_<step>.parquet")
	flags.String("compression", config.DefaultCompression, "Parquet compression (snappy|zstd|gzip|lz4|uncompressed)")
	flags.Int("max-rows", config.DefaultMaxRows, "Rows shown per table, 0 for all")
	flags.String("style", config.DefaultStyle, "Table style (rounded|light|ascii)")
	flags.Int("workers", config.DefaultWorkers, "Steps computed concurrently")
	flags.Bool("stats", false, "Print per-step statistics after the tour")
}

// load resolves configuration from defaults, file, env and the flags that
// were set on this invocation, then builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if cfg.File != "" {
		a.logger.Debug("using config file", "path", cfg.File)
	}
	return nil
}

func (a *app) run(ctx context.Context, out io.Writer) error {
	runner := &tour.Runner{Config: a.cfg, Logger: a.logger, Out: out}
	return runner.Run(ctx)
}
