package tour

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hashicorp/go-multierror"
	"github.com/paveg/dftour"
	"github.com/paveg/dftour/internal/config"
	"github.com/paveg/dftour/internal/display"
	dferrors "github.com/paveg/dftour/internal/errors"
	dfio "github.com/paveg/dftour/internal/io"
	"github.com/paveg/dftour/internal/monitoring"
	"github.com/paveg/dftour/internal/parallel"
)

// Runner executes the selected steps and writes their results to Out
type Runner struct {
	Config *config.Config
	Logger *slog.Logger
	Out    io.Writer
	// Allocator backs the source tables and every result; nil uses the Go
	// allocator.
	Allocator memory.Allocator
}

// Result is the outcome of one step
type Result struct {
	Step    Step
	Frame   *dftour.DataFrame
	Elapsed time.Duration
	Err     error
}

// Select returns the catalogue entries named in names, in catalogue order.
// An empty selection keeps every step.
func Select(catalog []Step, names []string) ([]Step, error) {
	if len(names) == 0 {
		return catalog, nil
	}

	var errs *multierror.Error
	for _, name := range names {
		if !slices.ContainsFunc(catalog, func(s Step) bool { return s.Name == name }) {
			errs = multierror.Append(errs, dferrors.NewInvalidInputError("Select", fmt.Sprintf("unknown step %q", name)))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	selected := make([]Step, 0, len(names))
	for _, step := range catalog {
		if slices.Contains(names, step.Name) {
			selected = append(selected, step)
		}
	}
	return selected, nil
}

// Run builds the tables, computes the selected steps and renders each result
// in order. It stops at the first failing step. With a single worker each
// step is written before the next one is computed; with more, steps are
// computed up front and written in catalogue order.
func (r *Runner) Run(ctx context.Context) error {
	cfg := r.Config
	if cfg == nil {
		defaults := config.NewConfig()
		cfg = &defaults
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mem := r.Allocator
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	closed, err := dftour.ParseClosed(cfg.Filter.BetweenClosed)
	if err != nil {
		return dferrors.NewInvalidInputError("Run", err.Error())
	}
	steps, err := Select(Catalog(closed), cfg.Steps)
	if err != nil {
		return err
	}

	tables, err := NewTables(mem)
	if err != nil {
		return fmt.Errorf("building tables: %w", err)
	}
	defer tables.Release()

	logger.Debug("running tour", "steps", len(steps), "workers", cfg.Run.Workers)
	collector := monitoring.NewMetricsCollector(cfg.Run.Stats || logger.Enabled(ctx, slog.LevelDebug))
	opts := cfg.DisplayOptions()

	emit := func(i int, res Result) error {
		if res.Err != nil {
			logger.Error("step failed", "step", res.Step.Name, "error", res.Err)
			return fmt.Errorf("step %s: %w", res.Step.Name, res.Err)
		}
		logger.Debug("step finished",
			"step", res.Step.Name,
			"rows", res.Frame.Len(),
			"columns", res.Frame.Width(),
			"elapsed", res.Elapsed,
		)

		if err := r.render(res, opts, i > 0); err != nil {
			return fmt.Errorf("rendering %s: %w", res.Step.Name, err)
		}
		if cfg.Export.Dir != "" {
			path := dfio.ExportPath(cfg.Export.Dir, res.Step.Number, res.Step.Name)
			options := dfio.ParquetOptions{Compression: cfg.Export.Compression, BatchSize: dfio.DefaultBatchSize}
			if err := dfio.WriteParquetFile(path, res.Frame, options); err != nil {
				return err
			}
			logger.Info("exported step", "step", res.Step.Name, "path", path)
		}
		return nil
	}

	if cfg.Run.Workers <= 1 {
		// each step is written before the next one starts
		for i, step := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := runStep(tables, step, collector)
			err := emit(i, res)
			if res.Frame != nil {
				res.Frame.Release()
			}
			if err != nil {
				return err
			}
		}
	} else {
		results, err := r.compute(ctx, tables, steps, cfg.Run.Workers, collector)
		defer func() {
			for _, res := range results {
				if res.Frame != nil {
					res.Frame.Release()
				}
			}
		}()
		if err != nil {
			return err
		}

		for i, res := range results {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(i, res); err != nil {
				return err
			}
		}
	}

	if collector.IsEnabled() {
		summary := collector.GetSummary()
		logger.Debug("tour finished",
			"steps", summary.TotalSteps,
			"elapsed", summary.TotalDuration,
			"bytes", summary.TotalBytes,
			"slowest", summary.Slowest,
		)
	}
	if cfg.Run.Stats {
		return r.renderStats(collector, steps, mem, opts)
	}
	return nil
}

// compute runs steps on a bounded pool when more than one worker is
// configured. Step failures are carried in the
// results so earlier steps still render; only cancellation aborts.
func (r *Runner) compute(ctx context.Context, tables *Tables, steps []Step, workers int, collector *monitoring.MetricsCollector) ([]Result, error) {
	pool := parallel.NewWorkerPool(workers)
	return parallel.ProcessIndexed(ctx, pool, steps, func(_ context.Context, _ int, step Step) (Result, error) {
		return runStep(tables, step, collector), nil
	})
}

func runStep(tables *Tables, step Step, collector *monitoring.MetricsCollector) Result {
	start := time.Now()
	frame, err := step.Run(tables)
	elapsed := time.Since(start)
	collector.RecordStep(step.Name, frame, elapsed)
	return Result{Step: step, Frame: frame, Elapsed: elapsed, Err: err}
}

func (r *Runner) renderStats(collector *monitoring.MetricsCollector, steps []Step, mem memory.Allocator, opts display.Options) error {
	order := make([]string, len(steps))
	for i, step := range steps {
		order[i] = step.Name
	}
	stats, err := collector.Frame(order, mem)
	if err != nil {
		return err
	}
	defer stats.Release()

	opts.FloatPrecision = 3
	switch opts.Format {
	case display.FormatJSON:
	case display.FormatMarkdown:
		if _, err := io.WriteString(r.Out, "\n### Run statistics\n\n"); err != nil {
			return err
		}
	default:
		if _, err := io.WriteString(r.Out, "\nRun statistics\n"); err != nil {
			return err
		}
	}
	return display.Render(r.Out, stats, opts)
}

func (r *Runner) render(res Result, opts display.Options, separate bool) error {
	if opts.Format == display.FormatJSON {
		return display.Render(r.Out, res.Frame, opts)
	}

	var heading strings.Builder
	if separate {
		heading.WriteString("\n")
	}
	if opts.Format == display.FormatMarkdown {
		fmt.Fprintf(&heading, "### %d. %s\n\n", res.Step.Number, res.Step.Title)
	} else {
		fmt.Fprintf(&heading, "%d. %s (%s)\n", res.Step.Number, res.Step.Title, res.Step.Name)
	}
	if _, err := io.WriteString(r.Out, heading.String()); err != nil {
		return err
	}
	return display.Render(r.Out, res.Frame, opts)
}
