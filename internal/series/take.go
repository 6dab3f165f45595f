package series

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// NullIndex marks a position that Take fills with null.
const NullIndex = -1

// Take gathers arr[indices[i]] into a new array of the same type.
// A NullIndex entry produces a null.
func Take(arr arrow.Array, indices []int, mem memory.Allocator) (arrow.Array, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	for _, idx := range indices {
		if idx != NullIndex && (idx < 0 || idx >= arr.Len()) {
			return nil, fmt.Errorf("take index %d out of bounds for length %d", idx, arr.Len())
		}
	}

	switch typedArr := arr.(type) {
	case *array.String:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		takeInto(builder, typedArr, indices, func(i int) { builder.Append(typedArr.Value(i)) })
		return builder.NewArray(), nil
	case *array.Int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		takeInto(builder, typedArr, indices, func(i int) { builder.Append(typedArr.Value(i)) })
		return builder.NewArray(), nil
	case *array.Float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		takeInto(builder, typedArr, indices, func(i int) { builder.Append(typedArr.Value(i)) })
		return builder.NewArray(), nil
	case *array.Boolean:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		takeInto(builder, typedArr, indices, func(i int) { builder.Append(typedArr.Value(i)) })
		return builder.NewArray(), nil
	case *array.Date32:
		builder := array.NewDate32Builder(mem)
		defer builder.Release()
		takeInto(builder, typedArr, indices, func(i int) { builder.Append(typedArr.Value(i)) })
		return builder.NewArray(), nil
	case *array.Null:
		return array.NewNull(len(indices)), nil
	case *array.List:
		return takeList(typedArr, indices, mem)
	default:
		return nil, fmt.Errorf("take: unsupported array type %s", arr.DataType())
	}
}

func takeInto(builder array.Builder, arr arrow.Array, indices []int, appendValue func(int)) {
	builder.Reserve(len(indices))
	for _, idx := range indices {
		if idx == NullIndex || arr.IsNull(idx) {
			builder.AppendNull()
			continue
		}
		appendValue(idx)
	}
}

// takeList gathers whole list rows by gathering their child ranges
func takeList(list *array.List, indices []int, mem memory.Allocator) (arrow.Array, error) {
	childIdx := make([]int, 0, len(indices))
	groups := make([][]int, len(indices))
	valid := make([]bool, len(indices))

	for row, idx := range indices {
		if idx == NullIndex || list.IsNull(idx) {
			continue
		}
		valid[row] = true
		start, end := list.ValueOffsets(idx)
		for j := start; j < end; j++ {
			groups[row] = append(groups[row], len(childIdx))
			childIdx = append(childIdx, int(j))
		}
	}

	child, err := Take(list.ListValues(), childIdx, mem)
	if err != nil {
		return nil, err
	}
	defer child.Release()

	return buildList(child, groups, valid)
}

// Implode builds a list array with one row per group; row i holds
// arr[groups[i]...] in the given order.
func Implode(arr arrow.Array, groups [][]int, mem memory.Allocator) (arrow.Array, error) {
	flat := make([]int, 0, arr.Len())
	positions := make([][]int, len(groups))
	for g, indices := range groups {
		for _, idx := range indices {
			positions[g] = append(positions[g], len(flat))
			flat = append(flat, idx)
		}
	}

	child, err := Take(arr, flat, mem)
	if err != nil {
		return nil, err
	}
	defer child.Release()

	return buildList(child, positions, nil)
}

// buildList assembles a list array over child. groups[i] must be the
// contiguous child positions of row i; a nil valid slice means no nulls.
func buildList(child arrow.Array, groups [][]int, valid []bool) (arrow.Array, error) {
	offsets := make([]int32, len(groups)+1)
	for i, g := range groups {
		offsets[i+1] = offsets[i] + int32(len(g))
	}
	if int(offsets[len(groups)]) != child.Len() {
		return nil, fmt.Errorf("list offsets cover %d values, child has %d", offsets[len(groups)], child.Len())
	}

	var validity *memory.Buffer
	nulls := 0
	if valid != nil {
		bits := make([]byte, bitutil.BytesForBits(int64(len(groups))))
		for i, ok := range valid {
			if ok {
				bitutil.SetBit(bits, i)
			} else {
				nulls++
			}
		}
		if nulls > 0 {
			validity = memory.NewBufferBytes(bits)
		}
	}

	data := array.NewData(
		arrow.ListOf(child.DataType()),
		len(groups),
		[]*memory.Buffer{validity, memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(offsets))},
		[]arrow.ArrayData{child.Data()},
		nulls,
		0,
	)
	defer data.Release()

	return array.NewListData(data), nil
}
