package expr

import (
	"fmt"
)

// Output names for expressions without a column root
const (
	LenName     = "len"
	LiteralName = "literal"
)

// OutputName returns the column name an expanded expression produces: the
// alias when set, otherwise the left-most column it reads.
func OutputName(e Expr) (string, error) {
	switch ex := e.(type) {
	case *ColumnExpr:
		return ex.name, nil
	case *ColumnsExpr:
		return "", fmt.Errorf("multi-column selector %s must be expanded before naming", ex)
	case *LiteralExpr:
		return LiteralName, nil
	case *BinaryExpr:
		return OutputName(ex.left)
	case *UnaryExpr:
		return OutputName(ex.operand)
	case *FunctionExpr:
		if len(ex.args) == 0 {
			return ex.name, nil
		}
		return OutputName(ex.args[0])
	case *BetweenExpr:
		return OutputName(ex.value)
	case *AggregationExpr:
		return OutputName(ex.column)
	case *LenExpr:
		return LenName, nil
	case *AliasExpr:
		return ex.name, nil
	case *RenameExpr:
		root, err := OutputName(ex.expr)
		if err != nil {
			return "", err
		}
		return ex.prefix + root + ex.suffix, nil
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

// Children returns the direct sub-expressions of e
func Children(e Expr) []Expr {
	switch ex := e.(type) {
	case *BinaryExpr:
		return []Expr{ex.left, ex.right}
	case *UnaryExpr:
		return []Expr{ex.operand}
	case *FunctionExpr:
		return ex.args
	case *BetweenExpr:
		return []Expr{ex.value, ex.lower, ex.upper}
	case *AggregationExpr:
		return []Expr{ex.column}
	case *AliasExpr:
		return []Expr{ex.expr}
	case *RenameExpr:
		return []Expr{ex.expr}
	default:
		return nil
	}
}

// Transform rebuilds e bottom-up, replacing every node n with fn(n)
func Transform(e Expr, fn func(Expr) Expr) Expr {
	var rebuilt Expr
	switch ex := e.(type) {
	case *BinaryExpr:
		rebuilt = &BinaryExpr{left: Transform(ex.left, fn), op: ex.op, right: Transform(ex.right, fn)}
	case *UnaryExpr:
		rebuilt = &UnaryExpr{op: ex.op, operand: Transform(ex.operand, fn)}
	case *FunctionExpr:
		args := make([]Expr, len(ex.args))
		for i, arg := range ex.args {
			args[i] = Transform(arg, fn)
		}
		rebuilt = &FunctionExpr{name: ex.name, args: args}
	case *BetweenExpr:
		rebuilt = &BetweenExpr{
			value:  Transform(ex.value, fn),
			lower:  Transform(ex.lower, fn),
			upper:  Transform(ex.upper, fn),
			closed: ex.closed,
		}
	case *AggregationExpr:
		rebuilt = &AggregationExpr{column: Transform(ex.column, fn), aggType: ex.aggType}
	case *AliasExpr:
		rebuilt = &AliasExpr{expr: Transform(ex.expr, fn), name: ex.name}
	case *RenameExpr:
		rebuilt = &RenameExpr{expr: Transform(ex.expr, fn), prefix: ex.prefix, suffix: ex.suffix}
	default:
		rebuilt = e
	}
	return fn(rebuilt)
}

// Walk visits e and all of its sub-expressions depth first
func Walk(e Expr, visit func(Expr)) {
	visit(e)
	for _, child := range Children(e) {
		Walk(child, visit)
	}
}

// Expand replaces the multi-column selector in e with each column it
// resolves to against schema, returning one expression per column. An
// expression without a selector is returned unchanged.
func Expand(e Expr, schema []string) ([]Expr, error) {
	var selector *ColumnsExpr
	var conflict bool
	Walk(e, func(node Expr) {
		cols, ok := node.(*ColumnsExpr)
		if !ok {
			return
		}
		if selector != nil && selector.String() != cols.String() {
			conflict = true
			return
		}
		selector = cols
	})

	if conflict {
		return nil, fmt.Errorf("expression %s combines different multi-column selectors", e)
	}
	if selector == nil {
		return []Expr{e}, nil
	}

	names := selector.Resolve(schema)
	expanded := make([]Expr, 0, len(names))
	for _, name := range names {
		column := name
		expanded = append(expanded, Transform(e, func(node Expr) Expr {
			if _, ok := node.(*ColumnsExpr); ok {
				return Col(column)
			}
			return node
		}))
	}
	return expanded, nil
}

// ReferencedColumns lists the distinct column names e reads, in first-use order
func ReferencedColumns(e Expr) []string {
	seen := make(map[string]bool)
	var names []string
	Walk(e, func(node Expr) {
		if col, ok := node.(*ColumnExpr); ok && !seen[col.name] {
			seen[col.name] = true
			names = append(names, col.name)
		}
	})
	return names
}

// HasAggregation reports whether e reduces rows (an aggregation or Len)
func HasAggregation(e Expr) bool {
	found := false
	Walk(e, func(node Expr) {
		switch node.(type) {
		case *AggregationExpr, *LenExpr:
			found = true
		}
	})
	return found
}
