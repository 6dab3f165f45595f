// Package series provides data structures for column operations
package series

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Value is the set of Go types a Series can be built from.
// time.Time values are stored as calendar dates (date32).
type Value interface {
	string | int64 | float64 | bool | time.Time
}

// Series represents a named data column with Apache Arrow backend
type Series struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values
func New[T Value](name string, values []T, mem memory.Allocator) *Series {
	return NewNullable(name, values, nil, mem)
}

// NewNullable creates a new Series where valid[i] == false marks a null.
// A nil valid slice means every value is present.
func NewNullable[T Value](name string, values []T, valid []bool, mem memory.Allocator) *Series {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if valid != nil && len(valid) != len(values) {
		panic(fmt.Sprintf("validity length %d does not match values length %d", len(valid), len(values)))
	}

	var arr arrow.Array

	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []time.Time:
		builder := array.NewDate32Builder(mem)
		defer builder.Release()
		for i, t := range v {
			if valid != nil && !valid[i] {
				builder.AppendNull()
				continue
			}
			builder.Append(arrow.Date32FromTime(t))
		}
		arr = builder.NewArray()
	default:
		panic(fmt.Sprintf("unsupported type: %T", values))
	}

	return &Series{name: name, array: arr}
}

// NewList creates a list-valued Series, one list per row
func NewList[T Value](name string, values [][]T, mem memory.Allocator) *Series {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	flat := make([]T, 0, len(values))
	indices := make([][]int, len(values))
	for i, row := range values {
		for _, v := range row {
			indices[i] = append(indices[i], len(flat))
			flat = append(flat, v)
		}
	}

	child := New("", flat, mem)
	defer child.Release()

	arr, err := Implode(child.array, indices, mem)
	if err != nil {
		panic(err)
	}
	return &Series{name: name, array: arr}
}

// FromArray wraps an Arrow array as a Series. The Series takes ownership of
// the caller's reference.
func FromArray(name string, arr arrow.Array) *Series {
	return &Series{name: name, array: arr}
}

// Name returns the column name
func (s *Series) Name() string {
	return s.name
}

// Len returns the length of the series
func (s *Series) Len() int {
	return s.array.Len()
}

// DataType returns the Arrow data type
func (s *Series) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// NullN returns the number of nulls in the series
func (s *Series) NullN() int {
	return s.array.NullN()
}

// GetAsString returns the value at index in Arrow's textual form, "null" for nulls
func (s *Series) GetAsString(index int) string {
	if s.array.IsNull(index) {
		return "null"
	}
	return s.array.ValueStr(index)
}

// Rename returns a Series sharing the same data under a new name
func (s *Series) Rename(name string) *Series {
	s.array.Retain()
	return &Series{name: name, array: s.array}
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Equal reports whether both series have the same name, type and cells
func (s *Series) Equal(other *Series) bool {
	if other == nil || s.name != other.name {
		return false
	}
	return array.Equal(s.array, other.array)
}

// String returns a string representation of the series
func (s *Series) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)", DTypeName(s.DataType()), s.name, s.Len())
}

// Release releases the underlying Arrow memory
func (s *Series) Release() {
	if s.array != nil {
		s.array.Release()
	}
}

// Values returns the data as a Go slice. Nulls yield the zero value.
func Values[T Value](s *Series) ([]T, error) {
	result := make([]T, s.array.Len())

	switch arr := s.array.(type) {
	case *array.String:
		values, ok := any(result).([]string)
		if !ok {
			return nil, typeError[T](s)
		}
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Int64:
		values, ok := any(result).([]int64)
		if !ok {
			return nil, typeError[T](s)
		}
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Float64:
		values, ok := any(result).([]float64)
		if !ok {
			return nil, typeError[T](s)
		}
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Boolean:
		values, ok := any(result).([]bool)
		if !ok {
			return nil, typeError[T](s)
		}
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Date32:
		values, ok := any(result).([]time.Time)
		if !ok {
			return nil, typeError[T](s)
		}
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				values[i] = arr.Value(i).ToTime()
			}
		}
	default:
		return nil, fmt.Errorf("unsupported array type: %s", s.DataType())
	}

	return result, nil
}

// ListValues returns the rows of a list-valued series
func ListValues[T Value](s *Series) ([][]T, error) {
	list, ok := s.array.(*array.List)
	if !ok {
		return nil, fmt.Errorf("series %s is %s, not a list", s.name, DTypeName(s.DataType()))
	}

	child := FromArray("", list.ListValues())
	flat, err := Values[T](child)
	if err != nil {
		return nil, err
	}

	result := make([][]T, list.Len())
	for i := 0; i < list.Len(); i++ {
		if list.IsNull(i) {
			continue
		}
		start, end := list.ValueOffsets(i)
		result[i] = append([]T{}, flat[start:end]...)
	}
	return result, nil
}

func typeError[T Value](s *Series) error {
	var zero T
	return fmt.Errorf("series %s is %s, cannot read as %T", s.name, DTypeName(s.DataType()), zero)
}

// DTypeName returns the short dtype label used in rendered tables
func DTypeName(dt arrow.DataType) string {
	switch t := dt.(type) {
	case *arrow.StringType:
		return "str"
	case *arrow.Int64Type:
		return "i64"
	case *arrow.Int32Type:
		return "i32"
	case *arrow.Float64Type:
		return "f64"
	case *arrow.BooleanType:
		return "bool"
	case *arrow.Date32Type:
		return "date"
	case *arrow.ListType:
		return "list[" + DTypeName(t.Elem()) + "]"
	case *arrow.NullType:
		return "null"
	default:
		return dt.Name()
	}
}
