// Package inspect holds the row-major view every artifact reader returns and
// renders it for humans or as JSON lines.
package inspect

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
)

// Table is a row-major view of one artifact table or group.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// Column returns every cell of the named column, or false if there is no
// such column.
func (t *Table) Column(name string) ([]any, bool) {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, true
}

// Render writes an aligned text table with at most limit rows; limit <= 0
// prints every row.
func Render(w io.Writer, t *Table, limit int) error {
	if t.Name != "" {
		if _, err := fmt.Fprintf(w, "%s (%d rows)\n", t.Name, len(t.Rows)); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))

	n := len(t.Rows)
	if limit > 0 && limit < n {
		n = limit
	}
	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows[:n] {
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = FormatCell(row[i])
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if n < len(t.Rows) {
		_, err := fmt.Fprintf(w, "... %d more rows\n", len(t.Rows)-n)
		return err
	}
	return nil
}

// FormatCell renders one cell. Slices print in brackets with spaces.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

// RenderJSON writes one JSON object per row, keyed by column name, in column
// order. Non-finite floats are written as strings.
func RenderJSON(w io.Writer, t *Table) error {
	enc := json.NewEncoder(w)
	for _, row := range t.Rows {
		obj := make(orderedRow, 0, len(t.Columns))
		for i, name := range t.Columns {
			var v any
			if i < len(row) {
				v = jsonSafe(row[i])
			}
			obj = append(obj, field{name, v})
		}
		if err := enc.Encode(obj); err != nil {
			return err
		}
	}
	return nil
}

type field struct {
	key   string
	value any
}

// orderedRow marshals as an object whose keys keep column order.
type orderedRow []field

func (r orderedRow) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, f := range r {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

func jsonSafe(v any) any {
	switch x := v.(type) {
	case float64:
		return finiteOrString(x)
	case float32:
		return finiteOrString(float64(x))
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = finiteOrString(f)
		}
		return out
	case []float32:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = finiteOrString(float64(f))
		}
		return out
	}
	return v
}

func finiteOrString(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprint(f)
	}
	return f
}

// ColumnSummary describes the cells of one column.
type ColumnSummary struct {
	Name string
	// Type is the Go type of the cells, or "mixed".
	Type string
	// MinLen and MaxLen bound the lengths of slice cells; both are -1 for
	// scalar columns.
	MinLen int
	MaxLen int
	Nulls  int
}

// Ragged reports whether slice cells differ in length.
func (s ColumnSummary) Ragged() bool { return s.MinLen >= 0 && s.MinLen != s.MaxLen }

// Describe summarizes every column of t.
func Describe(t *Table) []ColumnSummary {
	out := make([]ColumnSummary, len(t.Columns))
	for i, name := range t.Columns {
		s := ColumnSummary{Name: name, MinLen: -1, MaxLen: -1}
		for _, row := range t.Rows {
			if i >= len(row) || row[i] == nil {
				s.Nulls++
				continue
			}
			v := row[i]
			typ := reflect.TypeOf(v).String()
			switch {
			case s.Type == "":
				s.Type = typ
			case s.Type != typ:
				s.Type = "mixed"
			}
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Slice {
				n := rv.Len()
				if s.MinLen < 0 || n < s.MinLen {
					s.MinLen = n
				}
				if n > s.MaxLen {
					s.MaxLen = n
				}
			}
		}
		out[i] = s
	}
	return out
}

// RenderDescribe writes the Describe summary as an aligned table.
func RenderDescribe(w io.Writer, t *Table) error {
	if _, err := fmt.Fprintf(w, "%s: %d columns, %d rows\n", t.Name, len(t.Columns), len(t.Rows)); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "column\ttype\tlength\tnulls")
	for _, s := range Describe(t) {
		length := "scalar"
		switch {
		case s.Ragged():
			length = fmt.Sprintf("%d..%d", s.MinLen, s.MaxLen)
		case s.MinLen >= 0:
			length = fmt.Sprintf("%d", s.MinLen)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.Name, s.Type, length, s.Nulls)
	}
	return tw.Flush()
}
