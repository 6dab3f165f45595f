package expr

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	dferrors "github.com/paveg/dftour/internal/errors"
	"github.com/paveg/dftour/internal/series"
)

func (e *Evaluator) evalFunction(node *FunctionExpr, ctx *evalContext) (arrow.Array, error) {
	if len(node.args) == 0 {
		return nil, dferrors.NewInvalidInputError(opEvaluate, fmt.Sprintf("function %s needs an argument", node.name))
	}

	input, err := e.eval(node.args[0], ctx)
	if err != nil {
		return nil, err
	}
	defer input.Release()

	switch node.name {
	case FuncYear, FuncMonth, FuncDay:
		return e.datePart(node.name, input)
	case FuncRound:
		decimals, err := literalArg[int64](node, 1)
		if err != nil {
			return nil, err
		}
		return e.round(input, int(decimals))
	case FuncAbs:
		return e.abs(input)
	case FuncStrSplit:
		sep, err := literalArg[string](node, 1)
		if err != nil {
			return nil, err
		}
		return e.strSplit(input, sep)
	case FuncListFirst, FuncListLast:
		return e.listElement(input, node.name == FuncListFirst)
	case FuncListLen:
		return e.listLen(input)
	default:
		return nil, dferrors.NewInvalidInputError(opEvaluate, fmt.Sprintf("unknown function %q", node.name))
	}
}

// literalArg reads a constant argument such as the decimals of round
func literalArg[T any](node *FunctionExpr, idx int) (T, error) {
	var zero T
	if idx >= len(node.args) {
		return zero, dferrors.NewInvalidInputError(opEvaluate,
			fmt.Sprintf("function %s expects %d arguments", node.name, idx+1))
	}
	lit, ok := node.args[idx].(*LiteralExpr)
	if !ok {
		return zero, dferrors.NewInvalidInputError(opEvaluate,
			fmt.Sprintf("argument %d of %s must be a literal", idx, node.name))
	}
	v, ok := lit.value.(T)
	if !ok {
		return zero, dferrors.NewTypeMismatchError(opEvaluate, "",
			fmt.Sprintf("argument %d of %s has type %T, want %T", idx, node.name, lit.value, zero))
	}
	return v, nil
}

func notSupported(fn string, arr arrow.Array) error {
	return dferrors.NewTypeMismatchError(opEvaluate, "",
		fmt.Sprintf("%s is not supported for %s", fn, series.DTypeName(arr.DataType())))
}

func (e *Evaluator) datePart(fn string, input arrow.Array) (arrow.Array, error) {
	var timeAt func(i int) time.Time
	switch a := input.(type) {
	case *array.Date32:
		timeAt = func(i int) time.Time { return a.Value(i).ToTime() }
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		timeAt = func(i int) time.Time { return a.Value(i).ToTime(unit) }
	default:
		return nil, notSupported(fn, input)
	}

	builder := array.NewInt64Builder(e.mem)
	defer builder.Release()
	builder.Reserve(input.Len())

	for i := 0; i < input.Len(); i++ {
		if input.IsNull(i) {
			builder.AppendNull()
			continue
		}
		t := timeAt(i).UTC()
		switch fn {
		case FuncYear:
			builder.Append(int64(t.Year()))
		case FuncMonth:
			builder.Append(int64(t.Month()))
		default:
			builder.Append(int64(t.Day()))
		}
	}
	return builder.NewArray(), nil
}

// roundHalfAway rounds to decimals places with ties away from zero
func roundHalfAway(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

func (e *Evaluator) round(input arrow.Array, decimals int) (arrow.Array, error) {
	if isInteger(input.DataType()) {
		input.Retain()
		return input, nil
	}
	if !isNumeric(input.DataType()) {
		return nil, notSupported(FuncRound, input)
	}

	builder := array.NewFloat64Builder(e.mem)
	defer builder.Release()
	builder.Reserve(input.Len())

	for i := 0; i < input.Len(); i++ {
		if input.IsNull(i) {
			builder.AppendNull()
			continue
		}
		builder.Append(roundHalfAway(floatAt(input, i), decimals))
	}
	return builder.NewArray(), nil
}

func (e *Evaluator) abs(input arrow.Array) (arrow.Array, error) {
	switch {
	case isInteger(input.DataType()):
		builder := array.NewInt64Builder(e.mem)
		defer builder.Release()
		for i := 0; i < input.Len(); i++ {
			if input.IsNull(i) {
				builder.AppendNull()
				continue
			}
			v := intAt(input, i)
			if v < 0 {
				v = -v
			}
			builder.Append(v)
		}
		return builder.NewArray(), nil
	case isNumeric(input.DataType()):
		builder := array.NewFloat64Builder(e.mem)
		defer builder.Release()
		for i := 0; i < input.Len(); i++ {
			if input.IsNull(i) {
				builder.AppendNull()
				continue
			}
			builder.Append(math.Abs(floatAt(input, i)))
		}
		return builder.NewArray(), nil
	default:
		return nil, notSupported(FuncAbs, input)
	}
}

func (e *Evaluator) strSplit(input arrow.Array, sep string) (arrow.Array, error) {
	strs, ok := input.(*array.String)
	if !ok {
		return nil, notSupported(FuncStrSplit, input)
	}

	builder := array.NewListBuilder(e.mem, arrow.BinaryTypes.String)
	defer builder.Release()
	values := builder.ValueBuilder().(*array.StringBuilder)

	for i := 0; i < strs.Len(); i++ {
		if strs.IsNull(i) {
			builder.AppendNull()
			continue
		}
		builder.Append(true)
		for _, part := range strings.Split(strs.Value(i), sep) {
			values.Append(part)
		}
	}
	return builder.NewArray(), nil
}

func (e *Evaluator) listElement(input arrow.Array, first bool) (arrow.Array, error) {
	list, ok := input.(*array.List)
	if !ok {
		fn := FuncListLast
		if first {
			fn = FuncListFirst
		}
		return nil, notSupported(fn, input)
	}

	indices := make([]int, list.Len())
	for i := range indices {
		start, end := list.ValueOffsets(i)
		switch {
		case list.IsNull(i) || start == end:
			indices[i] = series.NullIndex
		case first:
			indices[i] = int(start)
		default:
			indices[i] = int(end - 1)
		}
	}
	return series.Take(list.ListValues(), indices, e.mem)
}

func (e *Evaluator) listLen(input arrow.Array) (arrow.Array, error) {
	list, ok := input.(*array.List)
	if !ok {
		return nil, notSupported(FuncListLen, input)
	}

	builder := array.NewInt64Builder(e.mem)
	defer builder.Release()
	for i := 0; i < list.Len(); i++ {
		if list.IsNull(i) {
			builder.AppendNull()
			continue
		}
		start, end := list.ValueOffsets(i)
		builder.Append(end - start)
	}
	return builder.NewArray(), nil
}
