package dataframe

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	dferrors "github.com/paveg/dftour/internal/errors"
	"github.com/paveg/dftour/internal/expr"
	"github.com/paveg/dftour/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decadeExpr() expr.Expr {
	return expr.Alias(
		expr.Binary(
			expr.Binary(expr.Year(expr.Col("birthdate")), expr.OpFloorDiv, expr.Lit(int64(10))),
			expr.OpMul, expr.Lit(int64(10))),
		"decade")
}

func TestGroupByLenMaintainOrder(t *testing.T) {
	df := newPeople(t)

	gb, err := df.GroupBy(GroupByOptions{MaintainOrder: true}, decadeExpr())
	require.NoError(t, err)
	defer gb.Release()

	assert.Equal(t, []string{"decade"}, gb.KeyNames())
	assert.Equal(t, 2, gb.NumGroups())

	result, err := gb.Len()
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, []string{"decade", "len"}, result.Columns())
	assert.Equal(t, []int64{1990, 1980}, columnValues[int64](t, result, "decade"))
	assert.Equal(t, []int64{1, 3}, columnValues[int64](t, result, "len"))
}

func TestGroupBySortedByKey(t *testing.T) {
	df := newPeople(t)

	gb, err := df.GroupBy(GroupByOptions{}, decadeExpr())
	require.NoError(t, err)
	defer gb.Release()

	result, err := gb.Len()
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, []int64{1980, 1990}, columnValues[int64](t, result, "decade"))
	assert.Equal(t, []int64{3, 1}, columnValues[int64](t, result, "len"))
}

func TestGroupByAgg(t *testing.T) {
	df := newPeople(t)

	gb, err := df.GroupBy(GroupByOptions{MaintainOrder: true}, decadeExpr())
	require.NoError(t, err)
	defer gb.Release()

	result, err := gb.Agg(
		expr.Alias(expr.Len(), "sample_size"),
		expr.Prefix(expr.Round(expr.Mean(expr.Col("weight")), 2), "avg_"),
		expr.Prefix(expr.Max(expr.Col("height")), "tallest_"),
	)
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, []string{"decade", "sample_size", "avg_weight", "tallest_height"}, result.Columns())
	assert.Equal(t, []int64{1, 3}, columnValues[int64](t, result, "sample_size"))

	avg := columnValues[float64](t, result, "avg_weight")
	assert.InDelta(t, 57.9, avg[0], 1e-9)
	assert.InDelta(t, 69.73, avg[1], 1e-9)
	assert.Equal(t, []float64{1.56, 1.77}, columnValues[float64](t, result, "tallest_height"))
}

func TestGroupByCompoundPipeline(t *testing.T) {
	df := newPeople(t)

	derived, err := df.WithColumns(
		decadeExpr(),
		expr.ListFirst(expr.StrSplit(expr.Col("name"), " ")),
	)
	require.NoError(t, err)
	defer derived.Release()

	trimmed, err := derived.Select(expr.All().Exclude("birthdate"))
	require.NoError(t, err)
	defer trimmed.Release()
	assert.Equal(t, []string{"name", "weight", "height", "decade"}, trimmed.Columns())

	gb, err := trimmed.GroupBy(GroupByOptions{MaintainOrder: true}, expr.Col("decade"))
	require.NoError(t, err)
	defer gb.Release()

	result, err := gb.Agg(
		expr.Col("name"),
		expr.Prefix(expr.Round(expr.Mean(expr.Cols("weight", "height")), 2), "avg_"),
	)
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, []string{"decade", "name", "avg_weight", "avg_height"}, result.Columns())
	assert.Equal(t, []int64{1990, 1980}, columnValues[int64](t, result, "decade"))

	names, ok := result.Column("name")
	require.True(t, ok)
	lists, err := series.ListValues[string](names)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Alice"}, {"Ben", "Chloe", "Daniel"}}, lists)

	heights := columnValues[float64](t, result, "avg_height")
	assert.InDelta(t, 1.56, heights[0], 1e-9)
	assert.InDelta(t, 1.72, heights[1], 1e-9)
}

func TestGroupByMultipleKeysAndNulls(t *testing.T) {
	mem := memory.NewGoAllocator()
	df, err := New(
		series.NewNullable("team", []string{"b", "a", "", "b", "a"}, []bool{true, true, false, true, true}, mem),
		series.New("active", []bool{true, true, false, true, false}, mem),
		series.New("points", []int64{1, 2, 3, 4, 5}, mem),
	)
	require.NoError(t, err)
	defer df.Release()

	gb, err := df.GroupBy(GroupByOptions{}, expr.Col("team"), expr.Col("active"))
	require.NoError(t, err)
	defer gb.Release()

	result, err := gb.Agg(expr.Sum(expr.Col("points")))
	require.NoError(t, err)
	defer result.Release()

	team, ok := result.Column("team")
	require.True(t, ok)
	assert.True(t, team.IsNull(0), "null key sorts first")
	assert.Equal(t, []string{"", "a", "a", "b"}, columnValues[string](t, result, "team"))
	assert.Equal(t, []bool{false, false, true, true}, columnValues[bool](t, result, "active"))
	assert.Equal(t, []int64{3, 5, 2, 5}, columnValues[int64](t, result, "points"))
}

func TestGroupByErrors(t *testing.T) {
	df := newPeople(t)

	_, err := df.GroupBy(GroupByOptions{})
	assert.ErrorIs(t, err, dferrors.ErrInvalidInput)

	_, err = df.GroupBy(GroupByOptions{}, expr.Col("age"))
	assert.ErrorIs(t, err, dferrors.ErrMissingColumn)

	gb, err := df.GroupBy(GroupByOptions{}, expr.Col("name"))
	require.NoError(t, err)
	defer gb.Release()

	_, err = gb.Agg(expr.Mean(expr.Col("name")))
	assert.ErrorIs(t, err, dferrors.ErrTypeMismatch)

	_, err = gb.Agg(expr.Col("name"))
	assert.ErrorIs(t, err, dferrors.ErrInvalidInput, "output collides with the key column")

	_, err = gb.Agg(expr.Sum(expr.Col("shoe_size")))
	assert.ErrorIs(t, err, dferrors.ErrMissingColumn)
}
