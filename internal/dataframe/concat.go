package dataframe

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	dferrors "github.com/paveg/dftour/internal/errors"
	"github.com/paveg/dftour/internal/series"
)

// Concat stacks frames vertically: the rows of the first frame followed by
// the rows of the others, in order. All frames must have the same column
// names, order and types.
func Concat(frames ...*DataFrame) (*DataFrame, error) {
	if len(frames) == 0 {
		return nil, dferrors.NewInvalidInputError("Concat", "no frames to concatenate")
	}

	first := frames[0]
	for i, other := range frames[1:] {
		if err := sameSchema(first, other); err != nil {
			return nil, dferrors.NewSchemaMismatchError("Concat", fmt.Sprintf("frame %d: %s", i+1, err))
		}
	}

	names := first.Columns()
	arrays := make([]arrow.Array, 0, len(names))
	for _, name := range names {
		parts := make([]arrow.Array, len(frames))
		for i, frame := range frames {
			parts[i] = frame.columns[name].Array()
		}
		arr, err := array.Concatenate(parts, first.mem)
		releaseArrays(parts)
		if err != nil {
			releaseArrays(arrays)
			return nil, dferrors.NewInternalError("Concat", err)
		}
		arrays = append(arrays, arr)
	}
	return fromArrays(first.mem, names, arrays)
}

// Concat appends the rows of others below df
func (df *DataFrame) Concat(others ...*DataFrame) (*DataFrame, error) {
	return Concat(append([]*DataFrame{df}, others...)...)
}

func sameSchema(want, got *DataFrame) error {
	if want.Width() != got.Width() {
		return fmt.Errorf("expected %d columns, got %d", want.Width(), got.Width())
	}
	for i, name := range want.order {
		if got.order[i] != name {
			return fmt.Errorf("column %d is %q, expected %q", i, got.order[i], name)
		}
		wantType, gotType := want.columns[name].DataType(), got.columns[name].DataType()
		if !arrow.TypeEqual(wantType, gotType) {
			return fmt.Errorf("column %q is %s, expected %s", name, series.DTypeName(gotType), series.DTypeName(wantType))
		}
	}
	return nil
}
