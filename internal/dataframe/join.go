package dataframe

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	dferrors "github.com/paveg/dftour/internal/errors"
	"github.com/paveg/dftour/internal/series"
)

// JoinType represents the type of join operation
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

func (jt JoinType) String() string {
	if jt == LeftJoin {
		return "left"
	}
	return "inner"
}

// DefaultJoinSuffix is appended to right columns whose names collide with
// left columns
const DefaultJoinSuffix = "_right"

// JoinOptions specifies parameters for join operations
type JoinOptions struct {
	How     JoinType
	On      []string // Key columns present in both frames
	LeftOn  []string // Left keys when names differ
	RightOn []string // Right keys, paired with LeftOn
	Suffix  string
}

func (o JoinOptions) keys() (left, right []string, err error) {
	switch {
	case len(o.On) > 0 && (len(o.LeftOn) > 0 || len(o.RightOn) > 0):
		return nil, nil, dferrors.NewInvalidInputError("Join", "use either On or LeftOn/RightOn, not both")
	case len(o.On) > 0:
		return o.On, o.On, nil
	case len(o.LeftOn) == 0 || len(o.LeftOn) != len(o.RightOn):
		return nil, nil, dferrors.NewInvalidInputError("Join",
			fmt.Sprintf("need matching key lists, got %d left and %d right", len(o.LeftOn), len(o.RightOn)))
	default:
		return o.LeftOn, o.RightOn, nil
	}
}

// Join combines df with right on equal key values. A left join keeps every
// left row, once per match or once with null right columns when nothing
// matches. Right key columns are not repeated in the output. Null keys never
// match.
func (df *DataFrame) Join(right *DataFrame, opts JoinOptions) (*DataFrame, error) {
	leftKeys, rightKeys, err := opts.keys()
	if err != nil {
		return nil, err
	}
	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultJoinSuffix
	}

	leftArrays, err := keyArrays(df, leftKeys)
	if err != nil {
		return nil, err
	}
	defer releaseArrays(leftArrays)

	rightArrays, err := keyArrays(right, rightKeys)
	if err != nil {
		return nil, err
	}
	defer releaseArrays(rightArrays)

	for i := range leftArrays {
		if !arrow.TypeEqual(leftArrays[i].DataType(), rightArrays[i].DataType()) {
			return nil, dferrors.NewTypeMismatchError("Join", leftKeys[i], fmt.Sprintf(
				"key type %s does not match right key %s of type %s",
				series.DTypeName(leftArrays[i].DataType()), rightKeys[i],
				series.DTypeName(rightArrays[i].DataType())))
		}
	}

	index := newRowIndex(right.Len())
	var buf []byte
	for row := 0; row < right.Len(); row++ {
		var hasNull bool
		buf, hasNull = appendRowKey(buf[:0], rightArrays, row)
		if !hasNull {
			index.add(buf, row)
		}
	}

	leftRows := make([]int, 0, df.Len())
	rightRows := make([]int, 0, df.Len())
	for row := 0; row < df.Len(); row++ {
		var hasNull bool
		buf, hasNull = appendRowKey(buf[:0], leftArrays, row)
		var matches []int
		if !hasNull {
			matches, _ = index.rows(buf)
		}
		for _, match := range matches {
			leftRows = append(leftRows, row)
			rightRows = append(rightRows, match)
		}
		if len(matches) == 0 && opts.How == LeftJoin {
			leftRows = append(leftRows, row)
			rightRows = append(rightRows, series.NullIndex)
		}
	}

	return df.assembleJoin(right, rightKeys, suffix, leftRows, rightRows)
}

func (df *DataFrame) assembleJoin(right *DataFrame, rightKeys []string, suffix string, leftRows, rightRows []int) (*DataFrame, error) {
	skip := make(map[string]bool, len(rightKeys))
	for _, key := range rightKeys {
		skip[key] = true
	}

	names := make([]string, 0, df.Width()+right.Width())
	arrays := make([]arrow.Array, 0, df.Width()+right.Width())
	taken := make(map[string]bool, df.Width()+right.Width())

	for _, name := range df.order {
		arr, err := takeSeries(df.columns[name], leftRows, df.mem)
		if err != nil {
			releaseArrays(arrays)
			return nil, err
		}
		names = append(names, name)
		arrays = append(arrays, arr)
		taken[name] = true
	}

	for _, name := range right.order {
		if skip[name] {
			continue
		}
		outName := name
		if taken[outName] {
			outName = name + suffix
		}
		if taken[outName] {
			releaseArrays(arrays)
			return nil, dferrors.NewInvalidInputError("Join",
				fmt.Sprintf("column %q collides with an existing column even after adding suffix", name))
		}

		arr, err := takeSeries(right.columns[name], rightRows, df.mem)
		if err != nil {
			releaseArrays(arrays)
			return nil, err
		}
		names = append(names, outName)
		arrays = append(arrays, arr)
		taken[outName] = true
	}

	return fromArrays(df.mem, names, arrays)
}

// keyArrays returns retained key columns, failing on any missing name
func keyArrays(df *DataFrame, names []string) ([]arrow.Array, error) {
	arrays := make([]arrow.Array, 0, len(names))
	for _, name := range names {
		s, ok := df.Column(name)
		if !ok {
			releaseArrays(arrays)
			return nil, dferrors.NewColumnNotFoundError("Join", name)
		}
		arrays = append(arrays, s.Array())
	}
	return arrays, nil
}
