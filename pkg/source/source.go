// Package source locates requested columns inside an input file and hands
// them over as raw per-column arrays.
//
// The input format is hidden behind Opener, Handle and Table; the ROOT
// implementation lives in the rootfile subpackage.
package source

import (
	"strings"

	"go.uber.org/zap"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/logger"
)

// Opener opens one input file.
type Opener interface {
	Open(path string) (Handle, error)
}

// Handle is an open input file.
type Handle interface {
	// Tables lists the file's tables in storage order.
	Tables() ([]Table, error)
	Close() error
}

// Table is one named table (a ROOT tree) of an input file.
type Table interface {
	Name() string
	Columns() []string
	Read(names []string) (map[string]column.RawColumn, error)
}

// BaseName strips a ";N" revision suffix from a table name.
func BaseName(name string) string {
	if i := strings.LastIndexByte(name, ';'); i >= 0 {
		return name[:i]
	}
	return name
}

// FindColumns returns, per table name, the requested columns the table holds.
// Tables are visited in listing order; a later revision of an already
// visited table is ignored, and a table is selected only when it holds every
// requested column.
func FindColumns(h Handle, requested []string) (map[string][]string, error) {
	tables, err := h.Tables()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "list tables")
	}

	found := make(map[string][]string)
	seen := make(map[string]struct{})
	for _, t := range tables {
		base := BaseName(t.Name())
		if _, dup := seen[base]; dup {
			continue
		}
		seen[base] = struct{}{}

		have := make(map[string]struct{}, len(t.Columns()))
		for _, c := range t.Columns() {
			have[c] = struct{}{}
		}
		all := true
		for _, name := range requested {
			if _, ok := have[name]; !ok {
				all = false
				break
			}
		}
		if all {
			found[t.Name()] = append([]string(nil), requested...)
		}
	}
	return found, nil
}

// Extraction is the result of Extract.
type Extraction struct {
	// Columns in the requested order; names no table supplied are absent.
	Columns []column.RawColumn
	// Missing lists requested names found in no selected table.
	Missing []string
	// Tables lists the tables that were read, in listing order.
	Tables []string
}

// Extract reads every selected table and merges their columns. The first
// table to supply a name wins. Missing columns are logged and reported but
// are not an error.
func Extract(h Handle, requested []string, log *zap.Logger) (*Extraction, error) {
	log = logger.OrGlobal(log)

	selected, err := FindColumns(h, requested)
	if err != nil {
		return nil, err
	}
	tables, err := h.Tables()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "list tables")
	}

	merged := make(map[string]column.RawColumn, len(requested))
	out := &Extraction{}
	for _, t := range tables {
		names, ok := selected[t.Name()]
		if !ok {
			continue
		}
		raw, err := t.Read(names)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeSource, "read table %s", t.Name())
		}
		out.Tables = append(out.Tables, t.Name())
		for name, rc := range raw {
			if _, dup := merged[name]; dup {
				log.Debug("column already supplied by an earlier table",
					zap.String("column", name), zap.String("table", t.Name()))
				continue
			}
			if rc.Name == "" {
				rc.Name = name
			}
			merged[name] = rc
		}
	}

	for _, name := range requested {
		rc, ok := merged[name]
		if !ok {
			out.Missing = append(out.Missing, name)
			log.Warn("requested column not found",
				zap.String("column", name),
				zap.String("error_type", string(errors.ErrorTypeMissingColumn)))
			continue
		}
		out.Columns = append(out.Columns, rc)
	}
	return out, nil
}

// MissingError builds the missing_column error for names, or nil.
func MissingError(names []string) error {
	if len(names) == 0 {
		return nil
	}
	return errors.Newf(errors.ErrorTypeMissingColumn, "columns not found: %s", strings.Join(names, ", ")).
		WithDetail("columns", names)
}
