package dataframe

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/hashicorp/go-multierror"
	dferrors "github.com/paveg/dftour/internal/errors"
	"github.com/paveg/dftour/internal/expr"
)

// projection is one evaluated output column
type projection struct {
	name  string
	array arrow.Array
}

func releaseProjections(projections []projection) {
	for _, p := range projections {
		p.array.Release()
	}
}

// expand resolves multi-column selectors against the frame's columns and
// checks that every referenced column exists. All missing columns are
// reported together.
func (df *DataFrame) expand(op string, exprs []expr.Expr) ([]expr.Expr, error) {
	schema := df.Columns()
	expanded := make([]expr.Expr, 0, len(exprs))
	var result *multierror.Error

	for _, e := range exprs {
		parts, err := expr.Expand(e, schema)
		if err != nil {
			result = multierror.Append(result, dferrors.NewInvalidInputError(op, err.Error()))
			continue
		}
		for _, part := range parts {
			for _, name := range expr.ReferencedColumns(part) {
				if !df.HasColumn(name) {
					result = multierror.Append(result, dferrors.NewColumnNotFoundError(op, name))
				}
			}
		}
		expanded = append(expanded, parts...)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return expanded, nil
}

// project evaluates expanded expressions row-wise. Results are either full
// length or, for aggregations, a single value.
func (df *DataFrame) project(op string, exprs []expr.Expr) ([]projection, error) {
	columns, release := df.arrays()
	defer release()

	eval := expr.NewEvaluator(df.mem)
	projections := make([]projection, 0, len(exprs))
	seen := make(map[string]bool, len(exprs))

	for _, e := range exprs {
		name, err := expr.OutputName(e)
		if err != nil {
			releaseProjections(projections)
			return nil, dferrors.NewInvalidInputError(op, err.Error())
		}
		if seen[name] {
			releaseProjections(projections)
			return nil, dferrors.NewInvalidInputError(op,
				fmt.Sprintf("column %q appears more than once in the output", name))
		}
		seen[name] = true

		arr, err := eval.Evaluate(e, columns, df.Len())
		if err != nil {
			releaseProjections(projections)
			return nil, err
		}
		projections = append(projections, projection{name: name, array: arr})
	}
	return projections, nil
}

// broadcast stretches single-value projections to length rows
func (df *DataFrame) broadcast(op string, projections []projection, length int) error {
	for i, p := range projections {
		switch p.array.Len() {
		case length:
			continue
		case 1:
			wide, err := expr.Broadcast(p.array, length, df.mem)
			if err != nil {
				return err
			}
			p.array.Release()
			projections[i].array = wide
		default:
			return dferrors.NewShapeMismatchError(op, p.name, length, p.array.Len())
		}
	}
	return nil
}

// Select returns a new DataFrame holding exactly the given expressions, in
// order. Aggregations yield one row, broadcast when mixed with full columns.
func (df *DataFrame) Select(exprs ...expr.Expr) (*DataFrame, error) {
	expanded, err := df.expand("Select", exprs)
	if err != nil {
		return nil, err
	}

	projections, err := df.project("Select", expanded)
	if err != nil {
		return nil, err
	}

	length := 1
	for _, p := range projections {
		if p.array.Len() != 1 {
			length = df.Len()
			break
		}
	}
	if err := df.broadcast("Select", projections, length); err != nil {
		releaseProjections(projections)
		return nil, err
	}

	return df.fromProjections(projections)
}

// WithColumns returns a new DataFrame with the given expressions added. An
// output named like an existing column replaces it in place; other outputs
// are appended in order. Every expression sees the original columns.
func (df *DataFrame) WithColumns(exprs ...expr.Expr) (*DataFrame, error) {
	expanded, err := df.expand("WithColumns", exprs)
	if err != nil {
		return nil, err
	}

	projections, err := df.project("WithColumns", expanded)
	if err != nil {
		return nil, err
	}
	if err := df.broadcast("WithColumns", projections, df.Len()); err != nil {
		releaseProjections(projections)
		return nil, err
	}

	replaced := make(map[string]arrow.Array, len(projections))
	var appended []projection
	for _, p := range projections {
		if df.HasColumn(p.name) {
			replaced[p.name] = p.array
		} else {
			appended = append(appended, p)
		}
	}

	out := make([]projection, 0, df.Width()+len(appended))
	for _, name := range df.order {
		if arr, ok := replaced[name]; ok {
			out = append(out, projection{name: name, array: arr})
			continue
		}
		out = append(out, projection{name: name, array: df.columns[name].Array()})
	}
	out = append(out, appended...)

	return df.fromProjections(out)
}

func (df *DataFrame) fromProjections(projections []projection) (*DataFrame, error) {
	names := make([]string, len(projections))
	arrays := make([]arrow.Array, len(projections))
	for i, p := range projections {
		names[i] = p.name
		arrays[i] = p.array
	}
	return fromArrays(df.mem, names, arrays)
}

// Filter keeps the rows for which every predicate is true. Null counts as
// false and row order is preserved.
func (df *DataFrame) Filter(predicates ...expr.Expr) (*DataFrame, error) {
	if len(predicates) == 0 {
		return nil, dferrors.NewInvalidInputError("Filter", "at least one predicate is required")
	}

	expanded, err := df.expand("Filter", predicates)
	if err != nil {
		return nil, err
	}

	columns, release := df.arrays()
	defer release()

	eval := expr.NewEvaluator(df.mem)
	keep := make([]bool, df.Len())
	for i := range keep {
		keep[i] = true
	}

	for _, predicate := range expanded {
		mask, err := eval.EvaluateBoolean(predicate, columns, df.Len())
		if err != nil {
			return nil, fmt.Errorf("evaluating filter predicate: %w", err)
		}
		err = applyMask(keep, mask)
		mask.Release()
		if err != nil {
			return nil, err
		}
	}

	indices := make([]int, 0, len(keep))
	for i, ok := range keep {
		if ok {
			indices = append(indices, i)
		}
	}
	return df.take(indices)
}

// applyMask clears keep[i] wherever mask is false or null. A single-value
// mask applies to every row.
func applyMask(keep []bool, mask *array.Boolean) error {
	switch mask.Len() {
	case len(keep):
		for i := range keep {
			keep[i] = keep[i] && mask.IsValid(i) && mask.Value(i)
		}
	case 1:
		pass := mask.IsValid(0) && mask.Value(0)
		for i := range keep {
			keep[i] = keep[i] && pass
		}
	default:
		return dferrors.NewShapeMismatchError("Filter", "", len(keep), mask.Len())
	}
	return nil
}
