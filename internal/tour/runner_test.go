package tour

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/dftour"
	"github.com/paveg/dftour/internal/config"
	"github.com/paveg/dftour/internal/display"
	dfio "github.com/paveg/dftour/internal/io"
	"github.com/paveg/dftour/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T, mutate func(*config.Config)) (*Runner, *bytes.Buffer) {
	t.Helper()
	cfg := config.NewConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	var out bytes.Buffer
	return &Runner{Config: &cfg, Out: &out, Allocator: testutil.SetupMemoryTest(t)}, &out
}

func TestSelect(t *testing.T) {
	catalog := Steps()

	all, err := Select(catalog, nil)
	require.NoError(t, err)
	assert.Len(t, all, len(catalog))

	picked, err := Select(catalog, []string{"concat_vertical", "people"})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "people", picked[0].Name, "catalogue order wins")
	assert.Equal(t, "concat_vertical", picked[1].Name)

	_, err = Select(catalog, []string{"people", "pivot", "unstack"})
	require.ErrorIs(t, err, dftour.ErrInvalidInput)
	assert.Contains(t, err.Error(), `"pivot"`)
	assert.Contains(t, err.Error(), `"unstack"`)
}

func TestRunnerRun(t *testing.T) {
	runner, out := newRunner(t, nil)
	require.NoError(t, runner.Run(context.Background()))

	text := out.String()
	for _, step := range Steps() {
		assert.Contains(t, text, step.Title, step.Name)
	}
	assert.True(t, strings.HasPrefix(text, "1. The people table (people)\n"))
	assert.Contains(t, text, "shape: (4, 4)")
	assert.Contains(t, text, "shape: (7, 4)", "concatenated frame")
	assert.Contains(t, text, "weight-5%")
	assert.Contains(t, text, `["Ben", "Chloe", "Daniel"]`)
	assert.Less(t, strings.Index(text, "(people)"), strings.Index(text, "(concat_vertical)"))
}

func TestRunnerSelectedSteps(t *testing.T) {
	runner, out := newRunner(t, func(c *config.Config) {
		c.Steps = []string{"join_left"}
		c.Output.Format = display.FormatJSON
	})
	require.NoError(t, runner.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4, "one JSON object per joined row")
	assert.Contains(t, lines[1], `"name":"Ben Brown"`)
	assert.Contains(t, lines[1], `"siblings":null`)
}

func TestRunnerMarkdown(t *testing.T) {
	runner, out := newRunner(t, func(c *config.Config) {
		c.Steps = []string{"filter_between"}
		c.Output.Format = display.FormatMarkdown
	})
	require.NoError(t, runner.Run(context.Background()))

	assert.True(t, strings.HasPrefix(out.String(), "### 6. "))
	assert.Contains(t, out.String(), "Ben Brown")
	assert.NotContains(t, out.String(), "Alice Archer")
}

func TestRunnerWorkersKeepOrder(t *testing.T) {
	sequential, seqOut := newRunner(t, nil)
	require.NoError(t, sequential.Run(context.Background()))

	concurrent, conOut := newRunner(t, func(c *config.Config) { c.Run.Workers = 4 })
	require.NoError(t, concurrent.Run(context.Background()))

	assert.Equal(t, seqOut.String(), conOut.String())
}

func TestRunnerErrors(t *testing.T) {
	t.Run("unknown step runs nothing", func(t *testing.T) {
		runner, out := newRunner(t, func(c *config.Config) { c.Steps = []string{"people", "melt"} })
		err := runner.Run(context.Background())
		require.ErrorIs(t, err, dftour.ErrInvalidInput)
		assert.Empty(t, out.String())
	})

	t.Run("unknown interval closure", func(t *testing.T) {
		runner, _ := newRunner(t, func(c *config.Config) { c.Filter.BetweenClosed = "half" })
		assert.ErrorIs(t, runner.Run(context.Background()), dftour.ErrInvalidInput)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		runner, out := newRunner(t, nil)
		assert.ErrorIs(t, runner.Run(ctx), context.Canceled)
		assert.Empty(t, out.String())
	})
}

func TestRunnerExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "export")
	runner, _ := newRunner(t, func(c *config.Config) {
		c.Steps = []string{"people", "group_agg"}
		c.Export.Dir = dir
		c.Export.Compression = "zstd"
	})
	require.NoError(t, runner.Run(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Equal(t, []string{"01_people.parquet", "08_group_agg.parquet"}, names)

	df, err := dfio.ReadParquetFile(filepath.Join(dir, "08_group_agg.parquet"), memory.NewGoAllocator())
	require.NoError(t, err)
	defer df.Release()
	assert.Equal(t, []string{"decade", "sample_size", "avg_weight", "tallest"}, df.Columns())
	assert.Equal(t, 2, df.Len())
}

func TestRunnerLogging(t *testing.T) {
	var logs bytes.Buffer
	runner, _ := newRunner(t, func(c *config.Config) { c.Steps = []string{"filter_year"} })
	runner.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	require.NoError(t, runner.Run(context.Background()))
	assert.Contains(t, logs.String(), "step finished")
	assert.Contains(t, logs.String(), "step=filter_year")
	assert.Contains(t, logs.String(), "rows=3")
	assert.Contains(t, logs.String(), "columns=4")
	assert.Contains(t, logs.String(), "tour finished")
	assert.Contains(t, logs.String(), "slowest=filter_year")
}

func TestRunnerStats(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		runner, out := newRunner(t, func(c *config.Config) {
			c.Steps = []string{"people", "concat_vertical"}
			c.Run.Stats = true
			c.Run.Workers = 2
		})
		require.NoError(t, runner.Run(context.Background()))

		text := out.String()
		stats := text[strings.Index(text, "Run statistics"):]
		assert.Contains(t, stats, "elapsed_ms")
		assert.Contains(t, stats, "shape: (2, 5)")
		assert.Less(t, strings.Index(stats, "people"), strings.Index(stats, "concat_vertical"))
	})

	t.Run("markdown", func(t *testing.T) {
		runner, out := newRunner(t, func(c *config.Config) {
			c.Steps = []string{"group_len"}
			c.Run.Stats = true
			c.Output.Format = display.FormatMarkdown
		})
		require.NoError(t, runner.Run(context.Background()))
		assert.Contains(t, out.String(), "### Run statistics")
	})

	t.Run("off by default", func(t *testing.T) {
		runner, out := newRunner(t, func(c *config.Config) { c.Steps = []string{"people"} })
		require.NoError(t, runner.Run(context.Background()))
		assert.NotContains(t, out.String(), "Run statistics")
	})
}

// firstWriteHook calls onFirst before the first byte reaches the buffer
type firstWriteHook struct {
	bytes.Buffer
	onFirst func()
	fired   bool
}

func (w *firstWriteHook) Write(p []byte) (int, error) {
	if !w.fired {
		w.fired = true
		w.onFirst()
	}
	return w.Buffer.Write(p)
}

func TestRunnerWritesEachStepBeforeTheNext(t *testing.T) {
	liveAtFirstWrite := func(workers int) int {
		mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
		t.Cleanup(func() { mem.AssertSize(t, 0) })

		var live int
		out := &firstWriteHook{onFirst: func() { live = mem.CurrentAlloc() }}
		cfg := config.NewConfig()
		cfg.Run.Workers = workers
		runner := &Runner{Config: &cfg, Out: out, Allocator: mem}

		require.NoError(t, runner.Run(context.Background()))
		assert.Contains(t, out.String(), "11. Stack the newcomers beneath the people table")
		return live
	}

	sequential := liveAtFirstWrite(1)
	batched := liveAtFirstWrite(4)
	assert.Positive(t, sequential)
	assert.Less(t, sequential, batched, "one worker holds only the first result when it is written")
}
