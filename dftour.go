// Package dftour provides immutable Arrow-backed DataFrames with a fluent
// expression API for projection, filtering, grouping, joining and stacking.
// This package is the sole public API for the library.
package dftour

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/dftour/internal/dataframe"
	dferrors "github.com/paveg/dftour/internal/errors"
	"github.com/paveg/dftour/internal/expr"
	"github.com/paveg/dftour/internal/series"
)

// ISeries provides a type-erased interface for Series of any type
type ISeries interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	GetAsString(index int) string
	String() string
	Array() arrow.Array
	Release()
}

// Value lists the Go types a Series can be built from: string, int64,
// float64, bool and time.Time (stored as a calendar date).
type Value = series.Value

// Errors reported by DataFrame operations, for use with errors.Is
var (
	ErrShapeMismatch  = dferrors.ErrShapeMismatch
	ErrSchemaMismatch = dferrors.ErrSchemaMismatch
	ErrMissingColumn  = dferrors.ErrMissingColumn
	ErrTypeMismatch   = dferrors.ErrTypeMismatch
	ErrInvalidInput   = dferrors.ErrInvalidInput
)

// DataFrame is the public type for a DataFrame.
// It wraps the internal dataframe.DataFrame to hide implementation details.
type DataFrame struct {
	df *dataframe.DataFrame
}

// Expression is the public type for defining operations.
type Expression struct {
	expr expr.Expr
}

// Closed selects which bounds of IsBetween are inclusive
type Closed = expr.Closed

const (
	ClosedBoth  = expr.ClosedBoth
	ClosedLeft  = expr.ClosedLeft
	ClosedRight = expr.ClosedRight
	ClosedNone  = expr.ClosedNone
)

// ParseClosed maps "both", "left", "right" or "none" to a Closed value
func ParseClosed(s string) (Closed, error) {
	return expr.ParseClosed(s)
}

// JoinType represents the type of join operation
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
)

// JoinOptions specifies parameters for join operations
type JoinOptions struct {
	How     JoinType
	On      []string // Key columns shared by both frames
	LeftOn  []string // Left keys when the names differ
	RightOn []string // Right keys, paired with LeftOn
	Suffix  string   // Added to colliding right columns, "_right" by default
}

// NewSeries creates a new typed Series from values.
func NewSeries[T Value](name string, values []T, mem memory.Allocator) ISeries {
	return series.New(name, values, mem)
}

// NewNullableSeries creates a Series where valid[i] == false marks a null
func NewNullableSeries[T Value](name string, values []T, valid []bool, mem memory.Allocator) ISeries {
	return series.NewNullable(name, values, valid, mem)
}

// NewListSeries creates a Series whose cells are lists of T
func NewListSeries[T Value](name string, values [][]T, mem memory.Allocator) ISeries {
	return series.NewList(name, values, mem)
}

// Date returns midnight UTC of the given day, for date columns and literals
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewDataFrame creates a DataFrame from columns of equal length, taking
// ownership of them.
func NewDataFrame(columns ...ISeries) (*DataFrame, error) {
	return NewDataFrameWithAllocator(memory.NewGoAllocator(), columns...)
}

// NewDataFrameWithAllocator is NewDataFrame with the allocator used by every
// frame derived from the result.
func NewDataFrameWithAllocator(mem memory.Allocator, columns ...ISeries) (*DataFrame, error) {
	internal := make([]*series.Series, len(columns))
	for i, s := range columns {
		if typed, ok := s.(*series.Series); ok {
			internal[i] = typed
			continue
		}
		internal[i] = series.FromArray(s.Name(), s.Array())
		s.Release()
	}

	df, err := dataframe.NewWithAllocator(mem, internal...)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// NewDataFrameFromRecord creates a DataFrame sharing the columns of rec
func NewDataFrameFromRecord(rec arrow.Record) (*DataFrame, error) {
	df, err := dataframe.FromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

func wrap(df *dataframe.DataFrame, err error) (*DataFrame, error) {
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

func unwrap(exprs []Expression) []expr.Expr {
	internal := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		internal[i] = e.expr
	}
	return internal
}

// DataFrame methods

// Columns returns the column names in order.
func (d *DataFrame) Columns() []string {
	return d.df.Columns()
}

// Len returns the number of rows.
func (d *DataFrame) Len() int {
	return d.df.Len()
}

// Width returns the number of columns.
func (d *DataFrame) Width() int {
	return d.df.Width()
}

// Column returns the column with the given name. It stays owned by the
// DataFrame.
func (d *DataFrame) Column(name string) (ISeries, bool) {
	s, ok := d.df.Column(name)
	if !ok {
		return nil, false
	}
	return s, true
}

// HasColumn returns true if the DataFrame has the given column.
func (d *DataFrame) HasColumn(name string) bool {
	return d.df.HasColumn(name)
}

// Schema returns the Arrow schema of the DataFrame.
func (d *DataFrame) Schema() *arrow.Schema {
	return d.df.Schema()
}

// String returns a string representation of the DataFrame.
func (d *DataFrame) String() string {
	return d.df.String()
}

// Equal reports whether both DataFrames hold the same columns and cells.
func (d *DataFrame) Equal(other *DataFrame) bool {
	if other == nil {
		return false
	}
	return d.df.Equal(other.df)
}

// ToRecord exports the DataFrame as an Arrow record. The caller releases it.
func (d *DataFrame) ToRecord() arrow.Record {
	return d.df.ToRecord()
}

// Select returns a new DataFrame holding exactly the given expressions.
func (d *DataFrame) Select(exprs ...Expression) (*DataFrame, error) {
	return wrap(d.df.Select(unwrap(exprs)...))
}

// WithColumns returns a new DataFrame with the given expressions added or
// replacing same-named columns.
func (d *DataFrame) WithColumns(exprs ...Expression) (*DataFrame, error) {
	return wrap(d.df.WithColumns(unwrap(exprs)...))
}

// Filter keeps the rows where every predicate is true.
func (d *DataFrame) Filter(predicates ...Expression) (*DataFrame, error) {
	return wrap(d.df.Filter(unwrap(predicates)...))
}

// Drop returns a new DataFrame without the specified columns.
func (d *DataFrame) Drop(names ...string) (*DataFrame, error) {
	return wrap(d.df.Drop(names...))
}

// GroupBy groups rows by the given key expressions.
func (d *DataFrame) GroupBy(keys ...Expression) *GroupBy {
	return &GroupBy{df: d.df, keys: unwrap(keys)}
}

// Join performs a join operation with another DataFrame.
func (d *DataFrame) Join(right *DataFrame, options JoinOptions) (*DataFrame, error) {
	how := dataframe.InnerJoin
	if options.How == LeftJoin {
		how = dataframe.LeftJoin
	}
	return wrap(d.df.Join(right.df, dataframe.JoinOptions{
		How:     how,
		On:      options.On,
		LeftOn:  options.LeftOn,
		RightOn: options.RightOn,
		Suffix:  options.Suffix,
	}))
}

// Concat appends the rows of others below this DataFrame.
func (d *DataFrame) Concat(others ...*DataFrame) (*DataFrame, error) {
	return Concat(append([]*DataFrame{d}, others...)...)
}

// Release releases the memory held by the DataFrame.
func (d *DataFrame) Release() {
	if d != nil && d.df != nil {
		d.df.Release()
	}
}

// Concat stacks frames vertically. All frames must share column names,
// order and types.
func Concat(frames ...*DataFrame) (*DataFrame, error) {
	internal := make([]*dataframe.DataFrame, len(frames))
	for i, f := range frames {
		internal[i] = f.df
	}
	return wrap(dataframe.Concat(internal...))
}

// GroupBy collects grouping keys until Len or Agg runs the aggregation.
type GroupBy struct {
	df            *dataframe.DataFrame
	keys          []expr.Expr
	maintainOrder bool
}

// MaintainOrder emits groups in order of first appearance instead of
// sorted by key.
func (gb *GroupBy) MaintainOrder() *GroupBy {
	return &GroupBy{df: gb.df, keys: gb.keys, maintainOrder: true}
}

// Len counts the rows of every group into a column named "len".
func (gb *GroupBy) Len() (*DataFrame, error) {
	return gb.Agg(Len())
}

// Agg evaluates the expressions once per group.
func (gb *GroupBy) Agg(exprs ...Expression) (*DataFrame, error) {
	grouped, err := gb.df.GroupBy(dataframe.GroupByOptions{MaintainOrder: gb.maintainOrder}, gb.keys...)
	if err != nil {
		return nil, err
	}
	defer grouped.Release()
	return wrap(grouped.Agg(unwrap(exprs)...))
}

// Expression factory functions

// Col returns an Expression representing a column reference.
func Col(name string) Expression {
	return Expression{expr: expr.Col(name)}
}

// Cols selects several columns. Every expression built on it is applied to
// each column independently.
func Cols(names ...string) Expression {
	return Expression{expr: expr.Cols(names...)}
}

// All selects every column of the frame.
func All() Expression {
	return Expression{expr: expr.All()}
}

// Lit returns an Expression representing a literal value.
func Lit(value interface{}) Expression {
	return Expression{expr: expr.Lit(value)}
}

// Len counts rows, per group inside Agg.
func Len() Expression {
	return Expression{expr: expr.Len()}
}

// toExpr lets operator arguments be either expressions or plain values
func toExpr(v interface{}) expr.Expr {
	switch e := v.(type) {
	case Expression:
		return e.expr
	case expr.Expr:
		return e
	default:
		return expr.Lit(v)
	}
}

// Expression methods

// String returns a readable form of the expression.
func (e Expression) String() string {
	return e.expr.String()
}

// Name returns the output column name of the expression.
func (e Expression) Name() (string, error) {
	return expr.OutputName(e.expr)
}

func (e Expression) binary(op expr.BinaryOp, other interface{}) Expression {
	return Expression{expr: expr.Binary(e.expr, op, toExpr(other))}
}

// Add returns e + other. Operands may be expressions or plain values.
func (e Expression) Add(other interface{}) Expression { return e.binary(expr.OpAdd, other) }

// Sub returns e - other.
func (e Expression) Sub(other interface{}) Expression { return e.binary(expr.OpSub, other) }

// Mul returns e * other.
func (e Expression) Mul(other interface{}) Expression { return e.binary(expr.OpMul, other) }

// Div returns e / other, always as a float.
func (e Expression) Div(other interface{}) Expression { return e.binary(expr.OpDiv, other) }

// FloorDiv returns e / other rounded towards negative infinity.
func (e Expression) FloorDiv(other interface{}) Expression { return e.binary(expr.OpFloorDiv, other) }

// Mod returns the remainder of FloorDiv.
func (e Expression) Mod(other interface{}) Expression { return e.binary(expr.OpMod, other) }

// Pow returns e raised to other.
func (e Expression) Pow(other interface{}) Expression { return e.binary(expr.OpPow, other) }

func (e Expression) Eq(other interface{}) Expression { return e.binary(expr.OpEq, other) }
func (e Expression) Ne(other interface{}) Expression { return e.binary(expr.OpNe, other) }
func (e Expression) Lt(other interface{}) Expression { return e.binary(expr.OpLt, other) }
func (e Expression) Le(other interface{}) Expression { return e.binary(expr.OpLe, other) }
func (e Expression) Gt(other interface{}) Expression { return e.binary(expr.OpGt, other) }
func (e Expression) Ge(other interface{}) Expression { return e.binary(expr.OpGe, other) }

// And returns a logical AND expression.
func (e Expression) And(other interface{}) Expression { return e.binary(expr.OpAnd, other) }

// Or returns a logical OR expression.
func (e Expression) Or(other interface{}) Expression { return e.binary(expr.OpOr, other) }

// Not negates a boolean expression.
func (e Expression) Not() Expression {
	return Expression{expr: expr.Not(e.expr)}
}

// Neg negates a numeric expression.
func (e Expression) Neg() Expression {
	return Expression{expr: expr.Neg(e.expr)}
}

// IsBetween checks lower <= e <= upper, with inclusiveness chosen by closed.
func (e Expression) IsBetween(lower, upper interface{}, closed Closed) Expression {
	return Expression{expr: expr.Between(e.expr, toExpr(lower), toExpr(upper), closed)}
}

// Year extracts the calendar year of a date.
func (e Expression) Year() Expression {
	return Expression{expr: expr.Year(e.expr)}
}

// Month extracts the month (1-12) of a date.
func (e Expression) Month() Expression {
	return Expression{expr: expr.Month(e.expr)}
}

// Day extracts the day of month of a date.
func (e Expression) Day() Expression {
	return Expression{expr: expr.Day(e.expr)}
}

// Round rounds to decimals places, half away from zero.
func (e Expression) Round(decimals int) Expression {
	return Expression{expr: expr.Round(e.expr, decimals)}
}

// Abs returns the absolute value.
func (e Expression) Abs() Expression {
	return Expression{expr: expr.Abs(e.expr)}
}

// StrSplit splits text on sep into a list.
func (e Expression) StrSplit(sep string) Expression {
	return Expression{expr: expr.StrSplit(e.expr, sep)}
}

// ListFirst takes the first element of each list.
func (e Expression) ListFirst() Expression {
	return Expression{expr: expr.ListFirst(e.expr)}
}

// ListLast takes the last element of each list.
func (e Expression) ListLast() Expression {
	return Expression{expr: expr.ListLast(e.expr)}
}

// ListLen counts the elements of each list.
func (e Expression) ListLen() Expression {
	return Expression{expr: expr.ListLen(e.expr)}
}

// Aggregations reduce a column to one value, per group inside Agg.

func (e Expression) Sum() Expression   { return Expression{expr: expr.Sum(e.expr)} }
func (e Expression) Count() Expression { return Expression{expr: expr.Count(e.expr)} }
func (e Expression) Mean() Expression  { return Expression{expr: expr.Mean(e.expr)} }
func (e Expression) Min() Expression   { return Expression{expr: expr.Min(e.expr)} }
func (e Expression) Max() Expression   { return Expression{expr: expr.Max(e.expr)} }
func (e Expression) First() Expression { return Expression{expr: expr.First(e.expr)} }
func (e Expression) Last() Expression  { return Expression{expr: expr.Last(e.expr)} }

// Implode collects all values into a single list.
func (e Expression) Implode() Expression {
	return Expression{expr: expr.List(e.expr)}
}

// Alias names the output column.
func (e Expression) Alias(name string) Expression {
	return Expression{expr: expr.Alias(e.expr, name)}
}

// Suffix names the output after the source column with suffix appended.
func (e Expression) Suffix(suffix string) Expression {
	return Expression{expr: expr.Suffix(e.expr, suffix)}
}

// Prefix names the output after the source column with prefix prepended.
func (e Expression) Prefix(prefix string) Expression {
	return Expression{expr: expr.Prefix(e.expr, prefix)}
}

// Exclude removes columns from a selector built with Col, Cols or All.
func (e Expression) Exclude(names ...string) Expression {
	switch sel := e.expr.(type) {
	case *expr.ColumnsExpr:
		return Expression{expr: sel.Exclude(names...)}
	case *expr.ColumnExpr:
		return Expression{expr: expr.Cols(sel.Name()).Exclude(names...)}
	default:
		panic(fmt.Sprintf("Exclude only supported on column selectors, got %T", e.expr))
	}
}
