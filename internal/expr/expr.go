// Package expr provides expression evaluation for DataFrame operations
package expr

import (
	"fmt"
	"strings"
	"time"
)

// ExprType represents the type of expression
type ExprType int

const (
	ExprColumn ExprType = iota
	ExprColumns
	ExprLiteral
	ExprBinary
	ExprUnary
	ExprFunction
	ExprBetween
	ExprAggregation
	ExprLen
	ExprAlias
	ExprRename
)

// Expr represents an expression that can be evaluated lazily
type Expr interface {
	Type() ExprType
	String() string
}

// ColumnExpr represents a column reference
type ColumnExpr struct {
	name string
}

func (c *ColumnExpr) Type() ExprType {
	return ExprColumn
}

func (c *ColumnExpr) String() string {
	return fmt.Sprintf("col(%s)", c.name)
}

func (c *ColumnExpr) Name() string {
	return c.name
}

// ColumnsExpr selects several columns at once. Expressions containing it
// are expanded into one expression per selected column before evaluation.
type ColumnsExpr struct {
	names   []string
	all     bool
	exclude []string
}

func (c *ColumnsExpr) Type() ExprType {
	return ExprColumns
}

func (c *ColumnsExpr) String() string {
	var sb strings.Builder
	if c.all {
		sb.WriteString("all()")
	} else {
		sb.WriteString("cols(" + strings.Join(c.names, ", ") + ")")
	}
	if len(c.exclude) > 0 {
		sb.WriteString(".exclude(" + strings.Join(c.exclude, ", ") + ")")
	}
	return sb.String()
}

// Exclude returns a selector without the named columns
func (c *ColumnsExpr) Exclude(names ...string) *ColumnsExpr {
	return &ColumnsExpr{
		names:   c.names,
		all:     c.all,
		exclude: append(append([]string{}, c.exclude...), names...),
	}
}

// Resolve returns the concrete column names the selector picks from schema
func (c *ColumnsExpr) Resolve(schema []string) []string {
	excluded := make(map[string]bool, len(c.exclude))
	for _, name := range c.exclude {
		excluded[name] = true
	}

	source := c.names
	if c.all {
		source = schema
	}

	names := make([]string, 0, len(source))
	for _, name := range source {
		if !excluded[name] {
			names = append(names, name)
		}
	}
	return names
}

// LiteralExpr represents a literal value
type LiteralExpr struct {
	value interface{}
}

func (l *LiteralExpr) Type() ExprType {
	return ExprLiteral
}

func (l *LiteralExpr) String() string {
	if t, ok := l.value.(time.Time); ok {
		return fmt.Sprintf("lit(%s)", t.Format(time.DateOnly))
	}
	return fmt.Sprintf("lit(%v)", l.value)
}

func (l *LiteralExpr) Value() interface{} {
	return l.value
}

// BinaryOp represents binary operations
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryOpSymbols = map[BinaryOp]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpFloorDiv: "//",
	OpMod:      "%",
	OpPow:      "**",
	OpEq:       "==",
	OpNe:       "!=",
	OpLt:       "<",
	OpLe:       "<=",
	OpGt:       ">",
	OpGe:       ">=",
	OpAnd:      "&&",
	OpOr:       "||",
}

func (op BinaryOp) String() string {
	if s, ok := binaryOpSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// IsArithmetic reports whether op produces a numeric result
func (op BinaryOp) IsArithmetic() bool {
	return op <= OpPow
}

// IsComparison reports whether op compares its operands
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// BinaryExpr represents a binary operation
type BinaryExpr struct {
	left  Expr
	op    BinaryOp
	right Expr
}

func (b *BinaryExpr) Type() ExprType {
	return ExprBinary
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.left.String(), b.op, b.right.String())
}

func (b *BinaryExpr) Left() Expr {
	return b.left
}

func (b *BinaryExpr) Op() BinaryOp {
	return b.op
}

func (b *BinaryExpr) Right() Expr {
	return b.right
}

// UnaryOp represents unary operations
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

// UnaryExpr represents a unary operation
type UnaryExpr struct {
	op      UnaryOp
	operand Expr
}

func (u *UnaryExpr) Type() ExprType {
	return ExprUnary
}

func (u *UnaryExpr) String() string {
	if u.op == OpNot {
		return fmt.Sprintf("!%s", u.operand.String())
	}
	return fmt.Sprintf("-%s", u.operand.String())
}

func (u *UnaryExpr) Op() UnaryOp {
	return u.op
}

func (u *UnaryExpr) Operand() Expr {
	return u.operand
}

// Function names understood by the evaluator
const (
	FuncYear      = "year"
	FuncMonth     = "month"
	FuncDay       = "day"
	FuncRound     = "round"
	FuncAbs       = "abs"
	FuncStrSplit  = "str.split"
	FuncListFirst = "list.first"
	FuncListLast  = "list.last"
	FuncListLen   = "list.len"
)

// FunctionExpr represents a function call expression
type FunctionExpr struct {
	name string
	args []Expr
}

func (f *FunctionExpr) Type() ExprType {
	return ExprFunction
}

func (f *FunctionExpr) String() string {
	argStrs := make([]string, len(f.args))
	for i, arg := range f.args {
		argStrs[i] = arg.String()
	}
	return f.name + "(" + strings.Join(argStrs, ", ") + ")"
}

func (f *FunctionExpr) Name() string {
	return f.name
}

func (f *FunctionExpr) Args() []Expr {
	return f.args
}

// Closed selects which bounds of a range check are inclusive
type Closed int

const (
	ClosedBoth Closed = iota
	ClosedLeft
	ClosedRight
	ClosedNone
)

// ParseClosed maps "both", "left", "right" and "none" to a Closed value
func ParseClosed(s string) (Closed, error) {
	switch strings.ToLower(s) {
	case "both", "":
		return ClosedBoth, nil
	case "left":
		return ClosedLeft, nil
	case "right":
		return ClosedRight, nil
	case "none":
		return ClosedNone, nil
	default:
		return ClosedBoth, fmt.Errorf("unknown interval closure %q", s)
	}
}

func (c Closed) String() string {
	switch c {
	case ClosedLeft:
		return "left"
	case ClosedRight:
		return "right"
	case ClosedNone:
		return "none"
	default:
		return "both"
	}
}

// BetweenExpr checks lower <= value <= upper, with the bound inclusiveness
// chosen by closed
type BetweenExpr struct {
	value  Expr
	lower  Expr
	upper  Expr
	closed Closed
}

func (b *BetweenExpr) Type() ExprType {
	return ExprBetween
}

func (b *BetweenExpr) String() string {
	return fmt.Sprintf("is_between(%s, %s, %s, closed=%s)", b.value, b.lower, b.upper, b.closed)
}

func (b *BetweenExpr) Value() Expr {
	return b.value
}

func (b *BetweenExpr) Lower() Expr {
	return b.lower
}

func (b *BetweenExpr) Upper() Expr {
	return b.upper
}

func (b *BetweenExpr) Closed() Closed {
	return b.closed
}

// AggregationType represents the type of aggregation function
type AggregationType int

const (
	AggSum AggregationType = iota
	AggCount
	AggMean
	AggMin
	AggMax
	AggFirst
	AggLast
	AggList
)

// Aggregation function name constants
const (
	AggNameSum   = "sum"
	AggNameCount = "count"
	AggNameMean  = "mean"
	AggNameMin   = "min"
	AggNameMax   = "max"
	AggNameFirst = "first"
	AggNameLast  = "last"
	AggNameList  = "list"
)

var aggNames = map[AggregationType]string{
	AggSum:   AggNameSum,
	AggCount: AggNameCount,
	AggMean:  AggNameMean,
	AggMin:   AggNameMin,
	AggMax:   AggNameMax,
	AggFirst: AggNameFirst,
	AggLast:  AggNameLast,
	AggList:  AggNameList,
}

func (a AggregationType) String() string {
	return aggNames[a]
}

// AggregationExpr represents an aggregation function over a column
type AggregationExpr struct {
	column  Expr
	aggType AggregationType
}

func (a *AggregationExpr) Type() ExprType {
	return ExprAggregation
}

func (a *AggregationExpr) String() string {
	return fmt.Sprintf("%s(%s)", a.aggType, a.column.String())
}

func (a *AggregationExpr) Column() Expr {
	return a.column
}

func (a *AggregationExpr) AggType() AggregationType {
	return a.aggType
}

// LenExpr counts rows, per group inside an aggregation
type LenExpr struct{}

func (l *LenExpr) Type() ExprType {
	return ExprLen
}

func (l *LenExpr) String() string {
	return "len()"
}

// AliasExpr names the output of an expression
type AliasExpr struct {
	expr Expr
	name string
}

func (a *AliasExpr) Type() ExprType {
	return ExprAlias
}

func (a *AliasExpr) String() string {
	return fmt.Sprintf("%s.alias(%s)", a.expr.String(), a.name)
}

func (a *AliasExpr) Expr() Expr {
	return a.expr
}

func (a *AliasExpr) Name() string {
	return a.name
}

// RenameExpr derives the output name from the root column name by adding a
// prefix and/or suffix
type RenameExpr struct {
	expr   Expr
	prefix string
	suffix string
}

func (r *RenameExpr) Type() ExprType {
	return ExprRename
}

func (r *RenameExpr) String() string {
	out := r.expr.String()
	if r.prefix != "" {
		out += fmt.Sprintf(".name.prefix(%q)", r.prefix)
	}
	if r.suffix != "" {
		out += fmt.Sprintf(".name.suffix(%q)", r.suffix)
	}
	return out
}

func (r *RenameExpr) Expr() Expr {
	return r.expr
}

// Constructor functions

// Col creates a column expression
func Col(name string) *ColumnExpr {
	return &ColumnExpr{name: name}
}

// Cols selects several named columns for expansion
func Cols(names ...string) *ColumnsExpr {
	return &ColumnsExpr{names: append([]string{}, names...)}
}

// All selects every column of the input for expansion
func All() *ColumnsExpr {
	return &ColumnsExpr{all: true}
}

// Lit creates a literal expression
func Lit(value interface{}) *LiteralExpr {
	return &LiteralExpr{value: value}
}

// Binary creates a binary expression
func Binary(left Expr, op BinaryOp, right Expr) *BinaryExpr {
	return &BinaryExpr{left: left, op: op, right: right}
}

// Not negates a boolean expression
func Not(operand Expr) *UnaryExpr {
	return &UnaryExpr{op: OpNot, operand: operand}
}

// Neg negates a numeric expression
func Neg(operand Expr) *UnaryExpr {
	return &UnaryExpr{op: OpNeg, operand: operand}
}

// NewFunction creates a function expression
func NewFunction(name string, args ...Expr) *FunctionExpr {
	return &FunctionExpr{name: name, args: args}
}

// Year extracts the calendar year of a date
func Year(e Expr) *FunctionExpr {
	return NewFunction(FuncYear, e)
}

// Month extracts the month of a date
func Month(e Expr) *FunctionExpr {
	return NewFunction(FuncMonth, e)
}

// Day extracts the day of month of a date
func Day(e Expr) *FunctionExpr {
	return NewFunction(FuncDay, e)
}

// Round rounds to the given number of decimals, half away from zero
func Round(e Expr, decimals int) *FunctionExpr {
	return NewFunction(FuncRound, e, Lit(int64(decimals)))
}

// Abs creates an absolute value function expression
func Abs(e Expr) *FunctionExpr {
	return NewFunction(FuncAbs, e)
}

// StrSplit splits each string on sep into a list of strings
func StrSplit(e Expr, sep string) *FunctionExpr {
	return NewFunction(FuncStrSplit, e, Lit(sep))
}

// ListFirst takes the first element of each list
func ListFirst(e Expr) *FunctionExpr {
	return NewFunction(FuncListFirst, e)
}

// ListLast takes the last element of each list
func ListLast(e Expr) *FunctionExpr {
	return NewFunction(FuncListLast, e)
}

// ListLen counts the elements of each list
func ListLen(e Expr) *FunctionExpr {
	return NewFunction(FuncListLen, e)
}

// Between creates a range membership check
func Between(value, lower, upper Expr, closed Closed) *BetweenExpr {
	return &BetweenExpr{value: value, lower: lower, upper: upper, closed: closed}
}

// Aggregation constructor functions

// Sum creates a sum aggregation expression
func Sum(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggSum}
}

// Count creates a count aggregation expression (non-null values)
func Count(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggCount}
}

// Mean creates a mean aggregation expression
func Mean(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggMean}
}

// Min creates a min aggregation expression
func Min(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggMin}
}

// Max creates a max aggregation expression
func Max(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggMax}
}

// First creates a first-value aggregation expression
func First(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggFirst}
}

// Last creates a last-value aggregation expression
func Last(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggLast}
}

// List collects every value of a group into one list
func List(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggList}
}

// Len counts rows
func Len() *LenExpr {
	return &LenExpr{}
}

// Alias names the output of e
func Alias(e Expr, name string) *AliasExpr {
	return &AliasExpr{expr: e, name: name}
}

// Prefix names the output of e as prefix + root column name
func Prefix(e Expr, prefix string) *RenameExpr {
	return &RenameExpr{expr: e, prefix: prefix}
}

// Suffix names the output of e as root column name + suffix
func Suffix(e Expr, suffix string) *RenameExpr {
	return &RenameExpr{expr: e, suffix: suffix}
}
