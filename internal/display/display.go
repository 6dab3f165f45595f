// Package display renders DataFrames for terminals and documents.
//
// Tables follow the layout users of columnar tools expect: an optional shape
// line, a header of column names, an optional dtype row and one line per row.
// Long frames are truncated to their head and tail around an ellipsis row.
package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/paveg/dftour"
	"github.com/paveg/dftour/internal/series"
)

// Output formats
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Table styles
const (
	StyleRounded = "rounded"
	StyleLight   = "light"
	StyleASCII   = "ascii"
)

// Ellipsis marks the rows hidden by truncation
const Ellipsis = "…"

// Options controls how frames are rendered
type Options struct {
	Format string
	// FloatPrecision is the number of decimals for floats; negative means the
	// shortest representation that round-trips.
	FloatPrecision int
	// MaxRows limits the rendered rows; 0 renders every row.
	MaxRows    int
	ShowDtypes bool
	ShowShape  bool
	Style      string
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Format:         FormatTable,
		FloatPrecision: -1,
		MaxRows:        20,
		ShowDtypes:     true,
		ShowShape:      true,
		Style:          StyleRounded,
	}
}

// Render writes df to w in the configured format
func Render(w io.Writer, df *dftour.DataFrame, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return RenderJSON(w, df)
	case FormatMarkdown:
		return RenderMarkdown(w, df, opts)
	case FormatTable, "":
		return RenderTable(w, df, opts)
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// RenderTable draws df as a boxed table
func RenderTable(w io.Writer, df *dftour.DataFrame, opts Options) error {
	t := newWriter(df, opts)
	t.AppendHeader(headerRow(df))
	if opts.ShowDtypes {
		t.AppendHeader(dtypeRow(df))
	}
	appendBody(t, df, opts)

	if opts.ShowShape {
		if _, err := fmt.Fprintln(w, Shape(df)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// RenderMarkdown writes df as a GitHub-flavoured markdown table. Dtypes, when
// shown, are folded into the header cells.
func RenderMarkdown(w io.Writer, df *dftour.DataFrame, opts Options) error {
	t := newWriter(df, opts)
	header := headerRow(df)
	if opts.ShowDtypes {
		dtypes := dtypeRow(df)
		for i := range header {
			header[i] = fmt.Sprintf("%s (%s)", header[i], dtypes[i])
		}
	}
	t.AppendHeader(header)
	appendBody(t, df, opts)

	if opts.ShowShape {
		if _, err := fmt.Fprintf(w, "%s\n\n", Shape(df)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, t.RenderMarkdown())
	return err
}

// RenderJSON writes one JSON object per row
func RenderJSON(w io.Writer, df *dftour.DataFrame) error {
	rec := df.ToRecord()
	defer rec.Release()
	return array.RecordToJSON(rec, w)
}

// Shape returns the "shape: (rows, cols)" line
func Shape(df *dftour.DataFrame) string {
	return fmt.Sprintf("shape: (%d, %d)", df.Len(), df.Width())
}

func newWriter(df *dftour.DataFrame, opts Options) table.Writer {
	t := table.NewWriter()
	style := styleFor(opts.Style)
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)

	configs := make([]table.ColumnConfig, 0, df.Width())
	for i, name := range df.Columns() {
		col, _ := df.Column(name)
		if isNumeric(col.DataType()) {
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	t.SetColumnConfigs(configs)
	return t
}

func styleFor(name string) table.Style {
	switch name {
	case StyleLight:
		return table.StyleLight
	case StyleASCII:
		return table.StyleDefault
	default:
		return table.StyleRounded
	}
}

func headerRow(df *dftour.DataFrame) table.Row {
	row := table.Row{}
	for _, name := range df.Columns() {
		row = append(row, name)
	}
	return row
}

func dtypeRow(df *dftour.DataFrame) table.Row {
	row := table.Row{}
	for _, name := range df.Columns() {
		col, _ := df.Column(name)
		row = append(row, series.DTypeName(col.DataType()))
	}
	return row
}

func appendBody(t table.Writer, df *dftour.DataFrame, opts Options) {
	names := df.Columns()
	arrays := make([]arrow.Array, len(names))
	for i, name := range names {
		col, _ := df.Column(name)
		arrays[i] = col.Array()
	}
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	appendRow := func(i int) {
		row := make(table.Row, len(arrays))
		for j, arr := range arrays {
			row[j] = FormatCell(arr, i, opts.FloatPrecision)
		}
		t.AppendRow(row)
	}

	head, tail := VisibleRows(df.Len(), opts.MaxRows)
	for i := 0; i < head; i++ {
		appendRow(i)
	}
	if head+tail < df.Len() {
		ellipsis := make(table.Row, len(arrays))
		for j := range ellipsis {
			ellipsis[j] = Ellipsis
		}
		t.AppendRow(ellipsis)
	}
	for i := df.Len() - tail; i < df.Len(); i++ {
		appendRow(i)
	}
}

// VisibleRows splits maxRows between the head and tail of a frame with n
// rows. When nothing is hidden the tail is 0 and the head covers every row.
func VisibleRows(n, maxRows int) (head, tail int) {
	if maxRows <= 0 || n <= maxRows {
		return n, 0
	}
	head = (maxRows + 1) / 2
	tail = maxRows - head
	return head, tail
}

// FormatCell renders one cell: "null" for nulls, ISO dates and quoted list
// elements.
func FormatCell(arr arrow.Array, i int, precision int) string {
	if arr.IsNull(i) {
		return "null"
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.Int64:
		return strconv.FormatInt(a.Value(i), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(a.Value(i)), 10)
	case *array.Float64:
		return FormatFloat(a.Value(i), precision)
	case *array.Boolean:
		return strconv.FormatBool(a.Value(i))
	case *array.Date32:
		return a.Value(i).FormattedString()
	case *array.List:
		return formatList(a, i, precision)
	default:
		return arr.ValueStr(i)
	}
}

// FormatFloat formats v with precision decimals, or the shortest exact form
// when precision is negative
func FormatFloat(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}

func formatList(list *array.List, i int, precision int) string {
	start, end := list.ValueOffsets(i)
	values := list.ListValues()

	parts := make([]string, 0, end-start)
	for j := int(start); j < int(end); j++ {
		cell := FormatCell(values, j, precision)
		if _, ok := values.(*array.String); ok && values.IsValid(j) {
			cell = strconv.Quote(cell)
		}
		parts = append(parts, cell)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func isNumeric(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT64, arrow.INT32, arrow.FLOAT64:
		return true
	default:
		return false
	}
}
