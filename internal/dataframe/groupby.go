package dataframe

import (
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	dferrors "github.com/paveg/dftour/internal/errors"
	"github.com/paveg/dftour/internal/expr"
	"github.com/paveg/dftour/internal/series"
)

// GroupByOptions controls how groups are ordered
type GroupByOptions struct {
	// MaintainOrder emits groups in order of first appearance. Otherwise
	// groups are sorted by ascending key, nulls first.
	MaintainOrder bool
}

// GroupBy represents a grouped DataFrame for aggregation operations
type GroupBy struct {
	df       *DataFrame
	keyNames []string
	keys     []arrow.Array // key values, one per group
	groups   [][]int       // row indices per group
}

// GroupBy groups rows by the values of the key expressions. Keys may be
// plain columns or derived expressions such as a decade computed from a date.
// The caller releases the result.
func (df *DataFrame) GroupBy(opts GroupByOptions, keys ...expr.Expr) (*GroupBy, error) {
	if len(keys) == 0 {
		return nil, dferrors.NewInvalidInputError("GroupBy", "at least one key is required")
	}

	expanded, err := df.expand("GroupBy", keys)
	if err != nil {
		return nil, err
	}
	projections, err := df.project("GroupBy", expanded)
	if err != nil {
		return nil, err
	}
	defer releaseProjections(projections)

	if err := df.broadcast("GroupBy", projections, df.Len()); err != nil {
		return nil, err
	}

	keyArrays := make([]arrow.Array, len(projections))
	keyNames := make([]string, len(projections))
	for i, p := range projections {
		keyArrays[i] = p.array
		keyNames[i] = p.name
	}

	index := newRowIndex(df.Len())
	var buf []byte
	for row := 0; row < df.Len(); row++ {
		buf, _ = appendRowKey(buf[:0], keyArrays, row)
		index.add(buf, row)
	}

	groups := index.groups
	if !opts.MaintainOrder {
		if groups, err = sortGroups(keyArrays, groups); err != nil {
			return nil, err
		}
	}

	first := make([]int, len(groups))
	for i, g := range groups {
		first[i] = g[0]
	}
	gb := &GroupBy{df: df, keyNames: keyNames, groups: groups}
	for _, arr := range keyArrays {
		taken, err := series.Take(arr, first, df.mem)
		if err != nil {
			gb.Release()
			return nil, err
		}
		gb.keys = append(gb.keys, taken)
	}
	return gb, nil
}

// sortGroups orders groups by their key values, nulls first
func sortGroups(keyArrays []arrow.Array, groups [][]int) ([][]int, error) {
	compares := make([]func(i, j int) int, len(keyArrays))
	for k, arr := range keyArrays {
		compare, err := expr.CompareFunc(arr, arr)
		if err != nil {
			return nil, err
		}
		compares[k] = compare
	}

	sorted := append([][]int(nil), groups...)
	sort.SliceStable(sorted, func(a, b int) bool {
		i, j := sorted[a][0], sorted[b][0]
		for k, arr := range keyArrays {
			iNull, jNull := arr.IsNull(i), arr.IsNull(j)
			switch {
			case iNull && jNull:
				continue
			case iNull:
				return true
			case jNull:
				return false
			}
			if c := compares[k](i, j); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return sorted, nil
}

// KeyNames returns the names of the group key columns
func (gb *GroupBy) KeyNames() []string {
	return append([]string(nil), gb.keyNames...)
}

// NumGroups returns the number of distinct keys
func (gb *GroupBy) NumGroups() int {
	return len(gb.groups)
}

// Len counts the rows of every group into a column named "len"
func (gb *GroupBy) Len() (*DataFrame, error) {
	return gb.Agg(expr.Len())
}

// Agg evaluates each expression once per group. The result holds the key
// columns followed by one column per expression. A bare column collects the
// group's values into a list.
func (gb *GroupBy) Agg(exprs ...expr.Expr) (*DataFrame, error) {
	expanded, err := gb.df.expand("Agg", exprs)
	if err != nil {
		return nil, err
	}

	columns, release := gb.df.arrays()
	defer release()

	names := append([]string(nil), gb.keyNames...)
	arrays := make([]arrow.Array, 0, len(names)+len(expanded))
	for _, key := range gb.keys {
		key.Retain()
		arrays = append(arrays, key)
	}

	seen := make(map[string]bool, len(names)+len(expanded))
	for _, name := range names {
		seen[name] = true
	}

	eval := expr.NewEvaluator(gb.df.mem)
	for _, e := range expanded {
		name, err := expr.OutputName(e)
		if err != nil {
			releaseArrays(arrays)
			return nil, dferrors.NewInvalidInputError("Agg", err.Error())
		}
		if seen[name] {
			releaseArrays(arrays)
			return nil, dferrors.NewInvalidInputError("Agg",
				fmt.Sprintf("column %q appears more than once in the output", name))
		}
		seen[name] = true

		arr, err := eval.EvaluateGroups(e, columns, gb.df.Len(), gb.groups)
		if err != nil {
			releaseArrays(arrays)
			return nil, fmt.Errorf("aggregating %s: %w", name, err)
		}
		if arr.Len() != len(gb.groups) {
			arr.Release()
			releaseArrays(arrays)
			return nil, dferrors.NewShapeMismatchError("Agg", name, len(gb.groups), arr.Len())
		}
		names = append(names, name)
		arrays = append(arrays, arr)
	}

	return fromArrays(gb.df.mem, names, arrays)
}

// Release releases the group key columns
func (gb *GroupBy) Release() {
	releaseArrays(gb.keys)
}
