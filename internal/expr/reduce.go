package expr

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	dferrors "github.com/paveg/dftour/internal/errors"
	"github.com/paveg/dftour/internal/series"
	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

// reduceNumbers sums the non-null values at indices and reports how many
// contributed
func reduceNumbers[T number](valueAt func(int) T, isNull func(int) bool, indices []int) (T, int) {
	var total T
	count := 0
	for _, idx := range indices {
		if isNull(idx) {
			continue
		}
		total += valueAt(idx)
		count++
	}
	return total, count
}

// aggregate reduces inner to one value per group
func (e *Evaluator) aggregate(aggType AggregationType, inner arrow.Array, groups [][]int) (arrow.Array, error) {
	switch aggType {
	case AggCount:
		counts := make([]int64, len(groups))
		for g, indices := range groups {
			for _, idx := range indices {
				if !inner.IsNull(idx) {
					counts[g]++
				}
			}
		}
		return literalSlice(counts, e.mem), nil
	case AggList:
		return series.Implode(inner, groups, e.mem)
	case AggFirst, AggLast:
		picks := make([]int, len(groups))
		for g, indices := range groups {
			switch {
			case len(indices) == 0:
				picks[g] = series.NullIndex
			case aggType == AggFirst:
				picks[g] = indices[0]
			default:
				picks[g] = indices[len(indices)-1]
			}
		}
		return series.Take(inner, picks, e.mem)
	case AggSum:
		return e.sum(inner, groups)
	case AggMean:
		return e.mean(inner, groups)
	case AggMin, AggMax:
		return e.extreme(aggType, inner, groups)
	default:
		return nil, dferrors.NewInvalidInputError(opEvaluate, fmt.Sprintf("unsupported aggregation %v", aggType))
	}
}

func (e *Evaluator) sum(inner arrow.Array, groups [][]int) (arrow.Array, error) {
	switch {
	case isInteger(inner.DataType()):
		sums := make([]int64, len(groups))
		for g, indices := range groups {
			sums[g], _ = reduceNumbers(func(i int) int64 { return intAt(inner, i) }, inner.IsNull, indices)
		}
		return literalSlice(sums, e.mem), nil
	case isNumeric(inner.DataType()):
		sums := make([]float64, len(groups))
		for g, indices := range groups {
			sums[g], _ = reduceNumbers(func(i int) float64 { return floatAt(inner, i) }, inner.IsNull, indices)
		}
		return literalSlice(sums, e.mem), nil
	default:
		return nil, notSupported(AggNameSum, inner)
	}
}

// mean is null for a group without any non-null value
func (e *Evaluator) mean(inner arrow.Array, groups [][]int) (arrow.Array, error) {
	if !isNumeric(inner.DataType()) {
		return nil, notSupported(AggNameMean, inner)
	}

	builder := array.NewFloat64Builder(e.mem)
	defer builder.Release()
	builder.Reserve(len(groups))

	for _, indices := range groups {
		total, count := reduceNumbers(func(i int) float64 { return floatAt(inner, i) }, inner.IsNull, indices)
		if count == 0 {
			builder.AppendNull()
			continue
		}
		builder.Append(total / float64(count))
	}
	return builder.NewArray(), nil
}

// extreme picks the row holding the min or max of every group and gathers
// it, so the result keeps the input type
func (e *Evaluator) extreme(aggType AggregationType, inner arrow.Array, groups [][]int) (arrow.Array, error) {
	compare, err := CompareFunc(inner, inner)
	if err != nil {
		return nil, err
	}

	picks := make([]int, len(groups))
	for g, indices := range groups {
		best := series.NullIndex
		for _, idx := range indices {
			if inner.IsNull(idx) {
				continue
			}
			if best == series.NullIndex {
				best = idx
				continue
			}
			c := compare(idx, best)
			if (aggType == AggMin && c < 0) || (aggType == AggMax && c > 0) {
				best = idx
			}
		}
		picks[g] = best
	}
	return series.Take(inner, picks, e.mem)
}
