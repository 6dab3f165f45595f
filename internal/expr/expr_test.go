package expr_test

import (
	"testing"
	"time"

	"github.com/paveg/dftour/internal/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnExpr(t *testing.T) {
	col := expr.Col("weight")

	assert.Equal(t, expr.ExprColumn, col.Type())
	assert.Equal(t, "weight", col.Name())
	assert.Equal(t, "col(weight)", col.String())
}

func TestLiteralExpr(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"int literal", int64(42), "lit(42)"},
		{"string literal", "hello", "lit(hello)"},
		{"float literal", 3.14, "lit(3.14)"},
		{"bool literal", true, "lit(true)"},
		{"date literal", time.Date(1982, 12, 31, 0, 0, 0, 0, time.UTC), "lit(1982-12-31)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lit := expr.Lit(tt.value)

			assert.Equal(t, expr.ExprLiteral, lit.Type())
			assert.Equal(t, tt.value, lit.Value())
			assert.Equal(t, tt.expected, lit.String())
		})
	}
}

func TestBinaryExpressions(t *testing.T) {
	col := expr.Col("value")
	lit := expr.Lit(int64(10))

	tests := []struct {
		name     string
		op       expr.BinaryOp
		expected string
	}{
		{"addition", expr.OpAdd, "(col(value) + lit(10))"},
		{"true division", expr.OpDiv, "(col(value) / lit(10))"},
		{"floor division", expr.OpFloorDiv, "(col(value) // lit(10))"},
		{"power", expr.OpPow, "(col(value) ** lit(10))"},
		{"greater than", expr.OpGt, "(col(value) > lit(10))"},
		{"logical and", expr.OpAnd, "(col(value) && lit(10))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := expr.Binary(col, tt.op, lit)
			assert.Equal(t, expr.ExprBinary, bin.Type())
			assert.Equal(t, tt.op, bin.Op())
			assert.Equal(t, tt.expected, bin.String())
		})
	}

	assert.True(t, expr.OpPow.IsArithmetic())
	assert.False(t, expr.OpEq.IsArithmetic())
	assert.True(t, expr.OpGe.IsComparison())
	assert.False(t, expr.OpAnd.IsComparison())
}

func TestParseClosed(t *testing.T) {
	for input, want := range map[string]expr.Closed{
		"":      expr.ClosedBoth,
		"both":  expr.ClosedBoth,
		"LEFT":  expr.ClosedLeft,
		"right": expr.ClosedRight,
		"none":  expr.ClosedNone,
	} {
		got, err := expr.ParseClosed(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := expr.ParseClosed("sideways")
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		name     string
		expr     expr.Expr
		expected string
	}{
		{"column", expr.Col("name"), "name"},
		{"arithmetic takes left-most column", expr.Binary(expr.Col("weight"), expr.OpDiv, expr.Col("height")), "weight"},
		{"function", expr.Year(expr.Col("birthdate")), "birthdate"},
		{"alias wins", expr.Alias(expr.Year(expr.Col("birthdate")), "birth_year"), "birth_year"},
		{"aggregation", expr.Mean(expr.Col("weight")), "weight"},
		{"len", expr.Len(), expr.LenName},
		{"literal", expr.Lit(int64(1)), expr.LiteralName},
		{"suffix", expr.Suffix(expr.Round(expr.Col("weight"), 0), "-rounded"), "weight-rounded"},
		{"prefix", expr.Prefix(expr.Max(expr.Col("height")), "tallest_"), "tallest_height"},
		{"alias under rename", expr.Suffix(expr.Alias(expr.Col("a"), "b"), "_x"), "b_x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expr.OutputName(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := expr.OutputName(expr.Cols("a", "b"))
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	schema := []string{"name", "birthdate", "weight", "height"}

	t.Run("cols selector", func(t *testing.T) {
		e := expr.Suffix(expr.Round(expr.Cols("weight", "height"), 2), "-rounded")
		expanded, err := expr.Expand(e, schema)
		require.NoError(t, err)
		require.Len(t, expanded, 2)

		names := make([]string, len(expanded))
		for i, ex := range expanded {
			names[i], err = expr.OutputName(ex)
			require.NoError(t, err)
		}
		assert.Equal(t, []string{"weight-rounded", "height-rounded"}, names)
	})

	t.Run("all with exclude", func(t *testing.T) {
		e := expr.Mean(expr.All().Exclude("name", "birthdate"))
		expanded, err := expr.Expand(e, schema)
		require.NoError(t, err)
		require.Len(t, expanded, 2)
		assert.Equal(t, "mean(col(weight))", expanded[0].String())
		assert.Equal(t, "mean(col(height))", expanded[1].String())
	})

	t.Run("plain expression is unchanged", func(t *testing.T) {
		e := expr.Col("name")
		expanded, err := expr.Expand(e, schema)
		require.NoError(t, err)
		assert.Equal(t, []expr.Expr{e}, expanded)
	})

	t.Run("selector matching nothing", func(t *testing.T) {
		expanded, err := expr.Expand(expr.All().Exclude(schema...), schema)
		require.NoError(t, err)
		assert.Empty(t, expanded)
	})

	t.Run("mixed selectors", func(t *testing.T) {
		e := expr.Binary(expr.Cols("weight"), expr.OpAdd, expr.Cols("height"))
		_, err := expr.Expand(e, schema)
		assert.Error(t, err)
	})
}

func TestReferencedColumnsAndAggregation(t *testing.T) {
	bmi := expr.Binary(expr.Col("weight"), expr.OpDiv,
		expr.Binary(expr.Col("height"), expr.OpPow, expr.Lit(int64(2))))

	assert.Equal(t, []string{"weight", "height"}, expr.ReferencedColumns(bmi))
	assert.False(t, expr.HasAggregation(bmi))
	assert.True(t, expr.HasAggregation(expr.Round(expr.Mean(expr.Col("weight")), 2)))
	assert.True(t, expr.HasAggregation(expr.Alias(expr.Len(), "n")))
}

func TestStringRendering(t *testing.T) {
	between := expr.Between(expr.Col("birthdate"),
		expr.Lit(time.Date(1982, 12, 31, 0, 0, 0, 0, time.UTC)),
		expr.Lit(time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC)),
		expr.ClosedBoth)
	assert.Equal(t, "is_between(col(birthdate), lit(1982-12-31), lit(1996-01-01), closed=both)", between.String())

	assert.Equal(t, "all().exclude(name)", expr.All().Exclude("name").String())
	assert.Equal(t, "list.first(str.split(col(name), lit( )))", expr.ListFirst(expr.StrSplit(expr.Col("name"), " ")).String())
	assert.Equal(t, `max(col(height)).name.prefix("tallest_")`, expr.Prefix(expr.Max(expr.Col("height")), "tallest_").String())
}
