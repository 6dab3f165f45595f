package io_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/dftour"
	"github.com/paveg/dftour/internal/io"
	"github.com/paveg/dftour/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPeople(t *testing.T, mem memory.Allocator) *dftour.DataFrame {
	t.Helper()
	df, err := dftour.NewDataFrame(
		dftour.NewSeries("name", []string{"Alice Archer", "Ben Brown", "Chloe Cooper", "Daniel Donovan"}, mem),
		dftour.NewSeries("birthdate", []time.Time{
			dftour.Date(1997, time.January, 10),
			dftour.Date(1985, time.February, 15),
			dftour.Date(1983, time.March, 22),
			dftour.Date(1981, time.April, 30),
		}, mem),
		dftour.NewSeries("weight", []float64{57.9, 72.5, 53.6, 83.1}, mem),
		dftour.NewNullableSeries("siblings", []int64{3, 0, 4, 2}, []bool{true, false, true, true}, mem),
		dftour.NewSeries("parent", []bool{false, true, false, false}, mem),
	)
	require.NoError(t, err)
	t.Cleanup(df.Release)
	return df
}

func roundTrip(t *testing.T, df *dftour.DataFrame, options io.ParquetOptions) *dftour.DataFrame {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, io.NewParquetWriter(buf, options).Write(df))
	require.Positive(t, buf.Len())

	result, err := io.NewParquetReader(bytes.NewReader(buf.Bytes()), options, memory.NewGoAllocator()).Read()
	require.NoError(t, err)
	t.Cleanup(result.Release)
	return result
}

func TestParquetRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("preserve data integrity", func(t *testing.T) {
		original := createPeople(t, mem)
		result := roundTrip(t, original, io.DefaultParquetOptions())

		assert.Equal(t, original.Columns(), result.Columns())
		assert.True(t, original.Equal(result), "got %s", result)

		siblings, ok := result.Column("siblings")
		require.True(t, ok)
		assert.True(t, siblings.IsNull(1), "nulls survive")
	})

	t.Run("list columns", func(t *testing.T) {
		original, err := dftour.NewDataFrame(
			dftour.NewSeries("decade", []int64{1990, 1980}, mem),
			dftour.NewListSeries("name", [][]string{{"Alice"}, {"Ben", "Chloe", "Daniel"}}, mem),
		)
		require.NoError(t, err)
		defer original.Release()

		result := roundTrip(t, original, io.DefaultParquetOptions())
		names, ok := result.Column("name")
		require.True(t, ok)
		assert.Equal(t, arrow.LIST, names.DataType().ID())
		assert.Equal(t, []string{`["Alice"]`, `["Ben", "Chloe", "Daniel"]`}, testutil.Cells(t, result, "name"))
	})

	t.Run("empty frame keeps its schema", func(t *testing.T) {
		original, err := dftour.NewDataFrame(
			dftour.NewSeries("name", []string{}, mem),
			dftour.NewSeries("weight", []float64{}, mem),
		)
		require.NoError(t, err)
		defer original.Release()

		result := roundTrip(t, original, io.DefaultParquetOptions())
		assert.Equal(t, 0, result.Len())
		assert.Equal(t, []string{"name", "weight"}, result.Columns())
	})
}

func TestParquetWriter_Write(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := createPeople(t, mem)

	t.Run("compression options", func(t *testing.T) {
		for _, comp := range []string{"snappy", "gzip", "lz4", "zstd", "uncompressed"} {
			t.Run(comp, func(t *testing.T) {
				result := roundTrip(t, df, io.ParquetOptions{Compression: comp, BatchSize: io.DefaultBatchSize})
				assert.Equal(t, df.Len(), result.Len())
			})
		}
	})

	t.Run("unknown compression", func(t *testing.T) {
		err := io.NewParquetWriter(new(bytes.Buffer), io.ParquetOptions{Compression: "lzo"}).Write(df)
		assert.Error(t, err)
	})
}

func TestParquetReader_Read(t *testing.T) {
	reader := io.NewParquetReader(bytes.NewReader([]byte{}), io.DefaultParquetOptions(), memory.NewGoAllocator())
	_, err := reader.Read()
	require.Error(t, err)

	reader = io.NewParquetReader(bytes.NewReader([]byte("not parquet")), io.DefaultParquetOptions(), memory.NewGoAllocator())
	_, err = reader.Read()
	require.Error(t, err)
}

func TestParquetFiles(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := createPeople(t, mem)
	dir := filepath.Join(t.TempDir(), "out")

	path := io.ExportPath(dir, 3, "select_expanded")
	assert.Equal(t, filepath.Join(dir, "03_select_expanded.parquet"), path)

	require.NoError(t, io.WriteParquetFile(path, df, io.DefaultParquetOptions()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	result, err := io.ReadParquetFile(path, mem)
	require.NoError(t, err)
	defer result.Release()
	testutil.AssertDataFrameEqual(t, df, result)

	_, err = io.ReadParquetFile(filepath.Join(dir, "missing.parquet"), mem)
	assert.Error(t, err)
}
