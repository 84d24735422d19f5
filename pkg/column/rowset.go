package column

import (
	"github.com/appINPP/root2data/pkg/errors"
)

// RowSet is the unit of conversion: every column extracted from one source
// file, all sharing one row count. Columns keep their insertion order, which
// is the order encoders write them in.
type RowSet struct {
	columns []Column
	index   map[string]int
}

// NewRowSet returns an empty RowSet.
func NewRowSet() *RowSet {
	return &RowSet{index: make(map[string]int)}
}

// Add appends a column. It rejects duplicate names and any column whose row
// count differs from the columns already present.
func (rs *RowSet) Add(col Column) error {
	if col.Value == nil {
		return errors.Newf(errors.ErrorTypeValidation, "column %q has no value", col.Name)
	}
	if _, dup := rs.index[col.Name]; dup {
		return errors.Newf(errors.ErrorTypeValidation, "duplicate column %q", col.Name)
	}
	if len(rs.columns) > 0 && col.Len() != rs.NumRows() {
		return errors.Newf(errors.ErrorTypeValidation,
			"column %q has %d rows, row set has %d", col.Name, col.Len(), rs.NumRows()).
			WithDetail("column", col.Name).
			WithDetail("rows", col.Len()).
			WithDetail("expected", rs.NumRows())
	}
	rs.index[col.Name] = len(rs.columns)
	rs.columns = append(rs.columns, col)
	return nil
}

// Columns returns the columns in insertion order.
func (rs *RowSet) Columns() []Column { return rs.columns }

// Column looks a column up by name.
func (rs *RowSet) Column(name string) (Column, bool) {
	i, ok := rs.index[name]
	if !ok {
		return Column{}, false
	}
	return rs.columns[i], true
}

// Names returns the column names in insertion order.
func (rs *RowSet) Names() []string {
	out := make([]string, len(rs.columns))
	for i, c := range rs.columns {
		out[i] = c.Name
	}
	return out
}

// NumColumns returns the number of columns.
func (rs *RowSet) NumColumns() int { return len(rs.columns) }

// NumRows returns the shared row count, 0 for an empty RowSet.
func (rs *RowSet) NumRows() int {
	if len(rs.columns) == 0 {
		return 0
	}
	return rs.columns[0].Len()
}

// Empty reports whether the RowSet has no columns.
func (rs *RowSet) Empty() bool { return len(rs.columns) == 0 }

// Validate re-checks the row-count invariant. Encoders call it before writing
// anything.
func (rs *RowSet) Validate() error {
	if len(rs.columns) == 0 {
		return nil
	}
	want := rs.columns[0].Len()
	for _, c := range rs.columns[1:] {
		if c.Len() != want {
			return errors.Newf(errors.ErrorTypeValidation,
				"column %q has %d rows, %q has %d", c.Name, c.Len(), rs.columns[0].Name, want)
		}
	}
	return nil
}

// RawColumn is a column as the source adapter hands it over, before
// normalization. Values is either a typed numeric slice holding rows×Width
// elements, or []any whose elements are the per-row values of a column with a
// generic element kind (variable-length sequences, strings, mixed content).
type RawColumn struct {
	Name   string
	Values any
	Width  int
}

// Generic reports whether the raw column has the generic element kind.
func (rc RawColumn) Generic() bool {
	_, ok := rc.Values.([]any)
	return ok
}
