package expr

import (
	"cmp"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	dferrors "github.com/paveg/dftour/internal/errors"
	"github.com/paveg/dftour/internal/series"
)

const opEvaluate = "Evaluate"

// Evaluator evaluates expressions against Arrow arrays
type Evaluator struct {
	mem memory.Allocator
}

// NewEvaluator creates a new expression evaluator
func NewEvaluator(mem memory.Allocator) *Evaluator {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Evaluator{mem: mem}
}

// evalContext carries the input columns and, inside an aggregation, the
// row indices of every group
type evalContext struct {
	columns map[string]arrow.Array
	rows    int
	groups  [][]int
}

func (c *evalContext) rowContext() *evalContext {
	return &evalContext{columns: c.columns, rows: c.rows}
}

func (c *evalContext) groupsOrAll() [][]int {
	if c.groups != nil {
		return c.groups
	}
	all := make([]int, c.rows)
	for i := range all {
		all[i] = i
	}
	return [][]int{all}
}

// Evaluate evaluates an expanded expression row-wise over columns, each of
// the given length. Aggregations reduce all rows to a single value.
// The caller owns the returned array.
func (e *Evaluator) Evaluate(ex Expr, columns map[string]arrow.Array, length int) (arrow.Array, error) {
	return e.eval(ex, &evalContext{columns: columns, rows: length})
}

// EvaluateBoolean evaluates an expression that must return a boolean array
func (e *Evaluator) EvaluateBoolean(ex Expr, columns map[string]arrow.Array, length int) (*array.Boolean, error) {
	arr, err := e.Evaluate(ex, columns, length)
	if err != nil {
		return nil, err
	}
	boolArr, ok := arr.(*array.Boolean)
	if !ok {
		arr.Release()
		return nil, dferrors.NewTypeMismatchError(opEvaluate, "",
			fmt.Sprintf("predicate %s yields %s, not bool", ex, series.DTypeName(arr.DataType())))
	}
	return boolArr, nil
}

// EvaluateGroups evaluates an expression once per group. Aggregations reduce
// each group to one value and a bare column collects each group into a list.
func (e *Evaluator) EvaluateGroups(ex Expr, columns map[string]arrow.Array, length int, groups [][]int) (arrow.Array, error) {
	if groups == nil {
		groups = [][]int{}
	}
	arr, err := e.eval(ex, &evalContext{columns: columns, rows: length, groups: groups})
	if err != nil {
		return nil, err
	}
	if arr.Len() == 1 && len(groups) != 1 {
		defer arr.Release()
		return Broadcast(arr, len(groups), e.mem)
	}
	return arr, nil
}

func (e *Evaluator) eval(ex Expr, ctx *evalContext) (arrow.Array, error) {
	switch node := ex.(type) {
	case *ColumnExpr:
		arr, exists := ctx.columns[node.name]
		if !exists {
			return nil, dferrors.NewColumnNotFoundError(opEvaluate, node.name)
		}
		if ctx.groups != nil {
			return series.Implode(arr, ctx.groups, e.mem)
		}
		arr.Retain()
		return arr, nil
	case *ColumnsExpr:
		return nil, dferrors.NewInvalidInputError(opEvaluate, fmt.Sprintf("selector %s was not expanded", node))
	case *LiteralExpr:
		return e.literal(node.value, 1)
	case *BinaryExpr:
		return e.evalBinary(node, ctx)
	case *UnaryExpr:
		operand, err := e.eval(node.operand, ctx)
		if err != nil {
			return nil, err
		}
		defer operand.Release()
		return e.unary(node.op, operand)
	case *FunctionExpr:
		return e.evalFunction(node, ctx)
	case *BetweenExpr:
		return e.evalBetween(node, ctx)
	case *AggregationExpr:
		inner, err := e.eval(node.column, ctx.rowContext())
		if err != nil {
			return nil, err
		}
		defer inner.Release()
		return e.aggregate(node.aggType, inner, ctx.groupsOrAll())
	case *LenExpr:
		groups := ctx.groupsOrAll()
		counts := make([]int64, len(groups))
		for i, g := range groups {
			counts[i] = int64(len(g))
		}
		return literalSlice(counts, e.mem), nil
	case *AliasExpr:
		return e.eval(node.expr, ctx)
	case *RenameExpr:
		return e.eval(node.expr, ctx)
	default:
		return nil, dferrors.NewInvalidInputError(opEvaluate, fmt.Sprintf("unsupported expression type: %T", ex))
	}
}

func (e *Evaluator) evalBinary(node *BinaryExpr, ctx *evalContext) (arrow.Array, error) {
	left, err := e.eval(node.left, ctx)
	if err != nil {
		return nil, err
	}
	defer left.Release()

	right, err := e.eval(node.right, ctx)
	if err != nil {
		return nil, err
	}
	defer right.Release()

	if left.Len() != right.Len() {
		if left, right, err = e.broadcastPair(left, right); err != nil {
			return nil, err
		}
		defer left.Release()
		defer right.Release()
	}

	switch {
	case node.op.IsArithmetic():
		return e.arithmetic(node.op, left, right)
	case node.op.IsComparison():
		return e.comparison(node.op, left, right)
	default:
		return e.logical(node.op, left, right)
	}
}

// broadcastPair stretches a length-1 operand to the length of the other
func (e *Evaluator) broadcastPair(left, right arrow.Array) (arrow.Array, arrow.Array, error) {
	switch {
	case left.Len() == 1:
		wide, err := Broadcast(left, right.Len(), e.mem)
		if err != nil {
			return nil, nil, err
		}
		right.Retain()
		return wide, right, nil
	case right.Len() == 1:
		wide, err := Broadcast(right, left.Len(), e.mem)
		if err != nil {
			return nil, nil, err
		}
		left.Retain()
		return left, wide, nil
	default:
		return nil, nil, dferrors.NewShapeMismatchError(opEvaluate, "", left.Len(), right.Len())
	}
}

// align stretches length-1 arrays to the longest length among arrs. Every
// returned array is a new reference.
func (e *Evaluator) align(arrs ...arrow.Array) ([]arrow.Array, error) {
	n := 0
	for _, arr := range arrs {
		n = max(n, arr.Len())
	}

	out := make([]arrow.Array, 0, len(arrs))
	for _, arr := range arrs {
		switch arr.Len() {
		case n:
			arr.Retain()
			out = append(out, arr)
		case 1:
			wide, err := Broadcast(arr, n, e.mem)
			if err != nil {
				releaseAll(out)
				return nil, err
			}
			out = append(out, wide)
		default:
			releaseAll(out)
			return nil, dferrors.NewShapeMismatchError(opEvaluate, "", n, arr.Len())
		}
	}
	return out, nil
}

func releaseAll(arrs []arrow.Array) {
	for _, arr := range arrs {
		arr.Release()
	}
}

// Broadcast repeats the single value of arr n times
func Broadcast(arr arrow.Array, n int, mem memory.Allocator) (arrow.Array, error) {
	if arr.Len() != 1 {
		return nil, dferrors.NewShapeMismatchError("Broadcast", "", 1, arr.Len())
	}
	return series.Take(arr, make([]int, n), mem)
}

// literal repeats a Go value length times
func (e *Evaluator) literal(value interface{}, length int) (arrow.Array, error) {
	switch v := value.(type) {
	case nil:
		return array.NewNull(length), nil
	case string:
		return repeatLiteral(v, length, e.mem), nil
	case int:
		return repeatLiteral(int64(v), length, e.mem), nil
	case int32:
		return repeatLiteral(int64(v), length, e.mem), nil
	case int64:
		return repeatLiteral(v, length, e.mem), nil
	case float32:
		return repeatLiteral(float64(v), length, e.mem), nil
	case float64:
		return repeatLiteral(v, length, e.mem), nil
	case bool:
		return repeatLiteral(v, length, e.mem), nil
	case time.Time:
		return repeatLiteral(v, length, e.mem), nil
	default:
		return nil, dferrors.NewInvalidInputError(opEvaluate, fmt.Sprintf("unsupported literal type %T", value))
	}
}

func repeatLiteral[T series.Value](v T, length int, mem memory.Allocator) arrow.Array {
	values := make([]T, length)
	for i := range values {
		values[i] = v
	}
	return literalSlice(values, mem)
}

func literalSlice[T series.Value](values []T, mem memory.Allocator) arrow.Array {
	s := series.New("", values, mem)
	defer s.Release()
	return s.Array()
}

func isInteger(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT64, arrow.INT32:
		return true
	default:
		return false
	}
}

func isNumeric(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT64, arrow.INT32, arrow.FLOAT64, arrow.FLOAT32:
		return true
	default:
		return false
	}
}

func intAt(arr arrow.Array, i int) int64 {
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return int64(a.Value(i))
	default:
		return int64(floatAt(arr, i))
	}
}

func floatAt(arr arrow.Array, i int) float64 {
	switch a := arr.(type) {
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Int64:
		return float64(a.Value(i))
	case *array.Int32:
		return float64(a.Value(i))
	default:
		return math.NaN()
	}
}

func typeMismatch(op fmt.Stringer, left, right arrow.Array) error {
	return dferrors.NewTypeMismatchError(opEvaluate, "", fmt.Sprintf("cannot apply %s to %s and %s",
		op, series.DTypeName(left.DataType()), series.DTypeName(right.DataType())))
}

// arithmetic keeps integer results for integer operands, except for true
// division and powers which always produce floats
func (e *Evaluator) arithmetic(op BinaryOp, left, right arrow.Array) (arrow.Array, error) {
	if left.DataType().ID() == arrow.NULL || right.DataType().ID() == arrow.NULL {
		return array.NewNull(left.Len()), nil
	}
	if !isNumeric(left.DataType()) || !isNumeric(right.DataType()) {
		return nil, typeMismatch(op, left, right)
	}

	n := left.Len()
	if isInteger(left.DataType()) && isInteger(right.DataType()) && op != OpDiv && op != OpPow {
		builder := array.NewInt64Builder(e.mem)
		defer builder.Release()
		builder.Reserve(n)

		for i := 0; i < n; i++ {
			if left.IsNull(i) || right.IsNull(i) {
				builder.AppendNull()
				continue
			}
			a, b := intAt(left, i), intAt(right, i)
			if (op == OpFloorDiv || op == OpMod) && b == 0 {
				builder.AppendNull()
				continue
			}
			switch op {
			case OpAdd:
				builder.Append(a + b)
			case OpSub:
				builder.Append(a - b)
			case OpMul:
				builder.Append(a * b)
			case OpFloorDiv:
				builder.Append(floorDiv(a, b))
			case OpMod:
				builder.Append(a - floorDiv(a, b)*b)
			default:
				return nil, typeMismatch(op, left, right)
			}
		}
		return builder.NewArray(), nil
	}

	builder := array.NewFloat64Builder(e.mem)
	defer builder.Release()
	builder.Reserve(n)

	for i := 0; i < n; i++ {
		if left.IsNull(i) || right.IsNull(i) {
			builder.AppendNull()
			continue
		}
		a, b := floatAt(left, i), floatAt(right, i)
		switch op {
		case OpAdd:
			builder.Append(a + b)
		case OpSub:
			builder.Append(a - b)
		case OpMul:
			builder.Append(a * b)
		case OpDiv:
			builder.Append(a / b)
		case OpFloorDiv:
			builder.Append(math.Floor(a / b))
		case OpMod:
			builder.Append(a - b*math.Floor(a/b))
		case OpPow:
			builder.Append(math.Pow(a, b))
		default:
			return nil, typeMismatch(op, left, right)
		}
	}
	return builder.NewArray(), nil
}

// floorDiv rounds the quotient towards negative infinity
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// CompareFunc returns a function comparing left[i] with right[j], returning
// -1, 0 or +1. Numeric types compare across widths; other types must match.
// Callers handle nulls.
func CompareFunc(left, right arrow.Array) (func(i, j int) int, error) {
	lt, rt := left.DataType(), right.DataType()

	switch {
	case isInteger(lt) && isInteger(rt):
		return func(i, j int) int { return cmp.Compare(intAt(left, i), intAt(right, j)) }, nil
	case isNumeric(lt) && isNumeric(rt):
		return func(i, j int) int { return cmp.Compare(floatAt(left, i), floatAt(right, j)) }, nil
	}

	if !arrow.TypeEqual(lt, rt) {
		return nil, dferrors.NewTypeMismatchError(opEvaluate, "",
			fmt.Sprintf("cannot compare %s with %s", series.DTypeName(lt), series.DTypeName(rt)))
	}

	switch l := left.(type) {
	case *array.String:
		r := right.(*array.String)
		return func(i, j int) int { return strings.Compare(l.Value(i), r.Value(j)) }, nil
	case *array.Date32:
		r := right.(*array.Date32)
		return func(i, j int) int { return cmp.Compare(l.Value(i), r.Value(j)) }, nil
	case *array.Boolean:
		r := right.(*array.Boolean)
		return func(i, j int) int { return cmp.Compare(boolRank(l.Value(i)), boolRank(r.Value(j))) }, nil
	default:
		return nil, dferrors.NewTypeMismatchError(opEvaluate, "",
			fmt.Sprintf("%s values are not comparable", series.DTypeName(lt)))
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareResult(op BinaryOp, c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	default:
		return c >= 0
	}
}

func (e *Evaluator) comparison(op BinaryOp, left, right arrow.Array) (arrow.Array, error) {
	compare, err := CompareFunc(left, right)
	if err != nil {
		return nil, err
	}

	builder := array.NewBooleanBuilder(e.mem)
	defer builder.Release()
	builder.Reserve(left.Len())

	for i := 0; i < left.Len(); i++ {
		if left.IsNull(i) || right.IsNull(i) {
			builder.AppendNull()
			continue
		}
		builder.Append(compareResult(op, compare(i, i)))
	}
	return builder.NewArray(), nil
}

func (e *Evaluator) logical(op BinaryOp, left, right arrow.Array) (arrow.Array, error) {
	l, lok := left.(*array.Boolean)
	r, rok := right.(*array.Boolean)
	if !lok || !rok {
		return nil, typeMismatch(op, left, right)
	}

	builder := array.NewBooleanBuilder(e.mem)
	defer builder.Release()
	builder.Reserve(l.Len())

	for i := 0; i < l.Len(); i++ {
		if l.IsNull(i) || r.IsNull(i) {
			builder.AppendNull()
			continue
		}
		switch op {
		case OpAnd:
			builder.Append(l.Value(i) && r.Value(i))
		case OpOr:
			builder.Append(l.Value(i) || r.Value(i))
		default:
			return nil, fmt.Errorf("unsupported logical operation: %v", op)
		}
	}
	return builder.NewArray(), nil
}

func (e *Evaluator) unary(op UnaryOp, operand arrow.Array) (arrow.Array, error) {
	switch op {
	case OpNot:
		b, ok := operand.(*array.Boolean)
		if !ok {
			return nil, dferrors.NewTypeMismatchError(opEvaluate, "",
				fmt.Sprintf("cannot negate %s", series.DTypeName(operand.DataType())))
		}
		builder := array.NewBooleanBuilder(e.mem)
		defer builder.Release()
		for i := 0; i < b.Len(); i++ {
			if b.IsNull(i) {
				builder.AppendNull()
				continue
			}
			builder.Append(!b.Value(i))
		}
		return builder.NewArray(), nil
	default:
		zero, err := e.literal(int64(0), operand.Len())
		if err != nil {
			return nil, err
		}
		defer zero.Release()
		return e.arithmetic(OpSub, zero, operand)
	}
}

func (e *Evaluator) evalBetween(node *BetweenExpr, ctx *evalContext) (arrow.Array, error) {
	value, err := e.eval(node.value, ctx)
	if err != nil {
		return nil, err
	}
	defer value.Release()

	lower, err := e.eval(node.lower, ctx)
	if err != nil {
		return nil, err
	}
	defer lower.Release()

	upper, err := e.eval(node.upper, ctx)
	if err != nil {
		return nil, err
	}
	defer upper.Release()

	aligned, err := e.align(value, lower, upper)
	if err != nil {
		return nil, err
	}
	defer releaseAll(aligned)
	value, lower, upper = aligned[0], aligned[1], aligned[2]

	lowerCmp, err := CompareFunc(value, lower)
	if err != nil {
		return nil, err
	}
	upperCmp, err := CompareFunc(value, upper)
	if err != nil {
		return nil, err
	}

	lowerInclusive := node.closed == ClosedBoth || node.closed == ClosedLeft
	upperInclusive := node.closed == ClosedBoth || node.closed == ClosedRight

	builder := array.NewBooleanBuilder(e.mem)
	defer builder.Release()
	builder.Reserve(value.Len())

	for i := 0; i < value.Len(); i++ {
		if value.IsNull(i) || lower.IsNull(i) || upper.IsNull(i) {
			builder.AppendNull()
			continue
		}
		lc, uc := lowerCmp(i, i), upperCmp(i, i)
		aboveLower := lc > 0 || (lowerInclusive && lc == 0)
		belowUpper := uc < 0 || (upperInclusive && uc == 0)
		builder.Append(aboveLower && belowUpper)
	}
	return builder.NewArray(), nil
}
