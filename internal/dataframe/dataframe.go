// Package dataframe provides immutable tables of named, Arrow-backed columns
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	dferrors "github.com/paveg/dftour/internal/errors"
	"github.com/paveg/dftour/internal/series"
)

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]*series.Series
	order   []string // Maintains column order
	mem     memory.Allocator
}

// New creates a DataFrame from columns, taking ownership of them. All columns
// must have the same length and distinct names; on error the columns are
// released.
func New(columns ...*series.Series) (*DataFrame, error) {
	return NewWithAllocator(memory.NewGoAllocator(), columns...)
}

// NewWithAllocator is New with an explicit allocator for derived frames
func NewWithAllocator(mem memory.Allocator, columns ...*series.Series) (*DataFrame, error) {
	df := &DataFrame{
		columns: make(map[string]*series.Series, len(columns)),
		order:   make([]string, 0, len(columns)),
		mem:     mem,
	}

	for _, s := range columns {
		name := s.Name()
		if _, dup := df.columns[name]; dup {
			releaseSeries(columns)
			return nil, dferrors.NewInvalidInputError("New", fmt.Sprintf("duplicate column name %q", name))
		}
		if s.Len() != columns[0].Len() {
			releaseSeries(columns)
			return nil, dferrors.NewShapeMismatchError("New", name, columns[0].Len(), s.Len())
		}
		df.columns[name] = s
		df.order = append(df.order, name)
	}

	return df, nil
}

// FromColumns builds a DataFrame from parallel name and array slices, taking
// ownership of the arrays
func FromColumns(names []string, arrays []arrow.Array) (*DataFrame, error) {
	return fromArrays(memory.NewGoAllocator(), names, arrays)
}

func fromArrays(mem memory.Allocator, names []string, arrays []arrow.Array) (*DataFrame, error) {
	if len(names) != len(arrays) {
		releaseArrays(arrays)
		return nil, dferrors.NewInvalidInputError("FromColumns",
			fmt.Sprintf("%d names for %d arrays", len(names), len(arrays)))
	}
	columns := make([]*series.Series, len(arrays))
	for i, arr := range arrays {
		columns[i] = series.FromArray(names[i], arr)
	}
	return NewWithAllocator(mem, columns...)
}

// FromRecord creates a DataFrame sharing the columns of an Arrow record
func FromRecord(rec arrow.Record) (*DataFrame, error) {
	names := make([]string, rec.NumCols())
	arrays := make([]arrow.Array, rec.NumCols())
	for i, col := range rec.Columns() {
		col.Retain()
		names[i] = rec.ColumnName(i)
		arrays[i] = col
	}
	return FromColumns(names, arrays)
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	if len(df.order) == 0 {
		return []string{}
	}
	return append([]string(nil), df.order...)
}

// Len returns the number of rows
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	return df.columns[df.order[0]].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.order)
}

// Column returns the series for the given column name. The series stays
// owned by the DataFrame.
func (df *DataFrame) Column(name string) (*series.Series, bool) {
	s, exists := df.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Schema describes the columns as Arrow fields
func (df *DataFrame) Schema() *arrow.Schema {
	fields := make([]arrow.Field, len(df.order))
	for i, name := range df.order {
		fields[i] = arrow.Field{Name: name, Type: df.columns[name].DataType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Allocator returns the allocator used for derived frames
func (df *DataFrame) Allocator() memory.Allocator {
	return df.mem
}

// Drop returns a new DataFrame without the specified columns
func (df *DataFrame) Drop(names ...string) (*DataFrame, error) {
	dropSet := make(map[string]bool, len(names))
	for _, name := range names {
		if !df.HasColumn(name) {
			return nil, dferrors.NewColumnNotFoundError("Drop", name)
		}
		dropSet[name] = true
	}

	kept := make([]*series.Series, 0, len(df.order))
	for _, name := range df.order {
		if !dropSet[name] {
			kept = append(kept, df.columns[name].Rename(name))
		}
	}
	return NewWithAllocator(df.mem, kept...)
}

// Equal reports whether both frames have the same columns, in the same
// order, with equal cells
func (df *DataFrame) Equal(other *DataFrame) bool {
	if other == nil || df.Width() != other.Width() || df.Len() != other.Len() {
		return false
	}
	for i, name := range df.order {
		if other.order[i] != name || !df.columns[name].Equal(other.columns[name]) {
			return false
		}
	}
	return true
}

// ToRecord exports the frame as an Arrow record. The caller releases it.
func (df *DataFrame) ToRecord() arrow.Record {
	arrays := make([]arrow.Array, len(df.order))
	for i, name := range df.order {
		arrays[i] = df.columns[name].Array()
	}
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()
	return array.NewRecord(df.Schema(), arrays, int64(df.Len()))
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}
	for _, name := range df.order {
		parts = append(parts, fmt.Sprintf("  %s: %s", name, series.DTypeName(df.columns[name].DataType())))
	}
	return strings.Join(parts, "\n")
}

// Release releases all column memory
func (df *DataFrame) Release() {
	for _, s := range df.columns {
		s.Release()
	}
}

// arrays returns retained references to every column keyed by name, and a
// function releasing them
func (df *DataFrame) arrays() (map[string]arrow.Array, func()) {
	columns := make(map[string]arrow.Array, len(df.columns))
	for name, s := range df.columns {
		columns[name] = s.Array()
	}
	return columns, func() {
		for _, arr := range columns {
			arr.Release()
		}
	}
}

// take gathers the given rows of every column into a new frame. NullIndex
// rows become nulls.
func (df *DataFrame) take(indices []int) (*DataFrame, error) {
	names := df.Columns()
	arrays := make([]arrow.Array, 0, len(names))
	for _, name := range names {
		arr, err := takeSeries(df.columns[name], indices, df.mem)
		if err != nil {
			releaseArrays(arrays)
			return nil, err
		}
		arrays = append(arrays, arr)
	}
	return fromArrays(df.mem, names, arrays)
}

func takeSeries(s *series.Series, indices []int, mem memory.Allocator) (arrow.Array, error) {
	arr := s.Array()
	defer arr.Release()
	return series.Take(arr, indices, mem)
}

func releaseSeries(columns []*series.Series) {
	for _, s := range columns {
		s.Release()
	}
}

func releaseArrays(arrays []arrow.Array) {
	for _, arr := range arrays {
		if arr != nil {
			arr.Release()
		}
	}
}
