// Package testutil provides common testing utilities shared by the dftour
// test suites.
//
// It covers:
// - leak-checked memory allocators
// - reading cells out of DataFrames for comparison
// - common DataFrame assertions
package testutil

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/dftour"
	"github.com/paveg/dftour/internal/display"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SetupMemoryTest returns a checked allocator that fails the test if any
// allocation is still live when the test finishes.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	tables, err := tour.NewTables(mem)
//	require.NoError(t, err)
//	t.Cleanup(tables.Release)
func SetupMemoryTest(tb testing.TB) memory.Allocator {
	tb.Helper()
	allocator := memory.NewCheckedAllocator(memory.NewGoAllocator())
	tb.Cleanup(func() { allocator.AssertSize(tb, 0) })
	return allocator
}

// Cells renders every value of a column as it appears in tables: "null" for
// nulls, ISO dates and quoted list elements.
func Cells(tb testing.TB, df *dftour.DataFrame, name string) []string {
	tb.Helper()
	col, ok := df.Column(name)
	require.True(tb, ok, "column %s", name)
	arr := col.Array()
	defer arr.Release()

	out := make([]string, arr.Len())
	for i := range out {
		out[i] = display.FormatCell(arr, i, -1)
	}
	return out
}

// Floats returns the values of a float64 column
func Floats(tb testing.TB, df *dftour.DataFrame, name string) []float64 {
	tb.Helper()
	col, ok := df.Column(name)
	require.True(tb, ok, "column %s", name)
	arr := col.Array()
	defer arr.Release()

	typed, ok := arr.(*array.Float64)
	require.True(tb, ok, "column %s is %s", name, arr.DataType())
	return append([]float64(nil), typed.Float64Values()...)
}

// AssertDataFrameEqual compares two DataFrames column by column, reporting
// the first differing column by name.
func AssertDataFrameEqual(tb testing.TB, expected, actual *dftour.DataFrame) {
	tb.Helper()
	require.Equal(tb, expected.Columns(), actual.Columns(), "column names")
	require.Equal(tb, expected.Len(), actual.Len(), "row count")

	for _, name := range expected.Columns() {
		want, _ := expected.Column(name)
		got, _ := actual.Column(name)
		assert.Equal(tb, want.DataType().String(), got.DataType().String(), "dtype of %s", name)
		assert.Equal(tb, Cells(tb, expected, name), Cells(tb, actual, name), "cells of %s", name)
	}
}
