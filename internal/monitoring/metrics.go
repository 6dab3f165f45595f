// Package monitoring collects per-step statistics for a tour run.
package monitoring

import (
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/dftour"
)

// StepMetrics describes one computed step.
type StepMetrics struct {
	Step     string        `json:"step"`
	Duration time.Duration `json:"duration"`
	Rows     int64         `json:"rows"`
	Columns  int           `json:"columns"`
	Bytes    int64         `json:"bytes"`
}

// MetricsCollector gathers StepMetrics from concurrent workers.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []StepMetrics
	enabled bool
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		metrics: make([]StepMetrics, 0),
		enabled: enabled,
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// RecordStep stores the shape and buffer footprint of a step's result.
// A nil frame records the duration alone.
func (mc *MetricsCollector) RecordStep(step string, df *dftour.DataFrame, elapsed time.Duration) {
	if !mc.IsEnabled() {
		return
	}

	m := StepMetrics{Step: step, Duration: elapsed}
	if df != nil {
		m.Rows = int64(df.Len())
		m.Columns = df.Width()
		m.Bytes = FrameBytes(df)
	}

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, m)
	mc.mu.Unlock()
}

// GetMetrics returns a copy of all collected metrics.
func (mc *MetricsCollector) GetMetrics() []StepMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]StepMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected metrics.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalSteps      int           `json:"total_steps"`
	TotalDuration   time.Duration `json:"total_duration"`
	TotalRows       int64         `json:"total_rows"`
	TotalBytes      int64         `json:"total_bytes"`
	AverageDuration time.Duration `json:"average_duration"`
	Slowest         string        `json:"slowest"`
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	var summary MetricsSummary
	var slowest time.Duration
	for _, m := range mc.metrics {
		summary.TotalDuration += m.Duration
		summary.TotalRows += m.Rows
		summary.TotalBytes += m.Bytes
		if summary.Slowest == "" || m.Duration > slowest {
			slowest = m.Duration
			summary.Slowest = m.Step
		}
	}
	summary.TotalSteps = len(mc.metrics)
	summary.AverageDuration = summary.TotalDuration / time.Duration(len(mc.metrics))
	return summary
}

// Frame lays the collected metrics out as a DataFrame in the given step
// order. Steps without metrics are skipped.
func (mc *MetricsCollector) Frame(order []string, mem memory.Allocator) (*dftour.DataFrame, error) {
	byStep := make(map[string]StepMetrics)
	for _, m := range mc.GetMetrics() {
		byStep[m.Step] = m
	}

	var (
		steps   []string
		rows    []int64
		columns []int64
		bytes   []int64
		elapsed []float64
	)
	for _, name := range order {
		m, ok := byStep[name]
		if !ok {
			continue
		}
		steps = append(steps, m.Step)
		rows = append(rows, m.Rows)
		columns = append(columns, int64(m.Columns))
		bytes = append(bytes, m.Bytes)
		elapsed = append(elapsed, float64(m.Duration.Microseconds())/1000)
	}

	return dftour.NewDataFrameWithAllocator(mem,
		dftour.NewSeries("step", steps, mem),
		dftour.NewSeries("rows", rows, mem),
		dftour.NewSeries("columns", columns, mem),
		dftour.NewSeries("bytes", bytes, mem),
		dftour.NewSeries("elapsed_ms", elapsed, mem),
	)
}

// FrameBytes sums the buffer sizes behind every column of df, children
// included. Buffers shared between columns are counted once per column.
func FrameBytes(df *dftour.DataFrame) int64 {
	var total int64
	for _, name := range df.Columns() {
		col, ok := df.Column(name)
		if !ok {
			continue
		}
		arr := col.Array()
		total += dataBytes(arr.Data())
		arr.Release()
	}
	return total
}

func dataBytes(data arrow.ArrayData) int64 {
	var n int64
	for _, buf := range data.Buffers() {
		if buf != nil {
			n += int64(buf.Len())
		}
	}
	for _, child := range data.Children() {
		n += dataBytes(child)
	}
	return n
}
