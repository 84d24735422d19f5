// Package encoding defines the artifact formats and the Encoder contract
// shared by the hdf5, sqlite and parquet sub-packages.
package encoding

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/errors"
)

// Format identifies one artifact format.
type Format string

const (
	// FormatHDF5 is the hierarchical array container.
	FormatHDF5 Format = "h5"
	// FormatSQLite is the relational database.
	FormatSQLite Format = "sqlite"
	// FormatParquet is the columnar table.
	FormatParquet Format = "parquet"
)

var extensions = map[Format]string{
	FormatHDF5:    ".h5",
	FormatSQLite:  ".db",
	FormatParquet: ".parquet",
}

// AllFormats returns every format in canonical order.
func AllFormats() []Format {
	return []Format{FormatHDF5, FormatSQLite, FormatParquet}
}

// Ext returns the artifact file extension, including the dot.
func (f Format) Ext() string { return extensions[f] }

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	_, ok := extensions[f]
	return ok
}

func (f Format) String() string { return string(f) }

// ParseFormat accepts a format name or one of its common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h5", "hdf5":
		return FormatHDF5, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	case "parquet", "pq":
		return FormatParquet, nil
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "unknown format %q", s)
}

// ParseFormats parses a list of names, dropping duplicates and keeping order.
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]bool, len(names))
	out := make([]Format, 0, len(names))
	for _, n := range names {
		f, err := ParseFormat(n)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// FormatOf infers the format of an artifact from its extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h5", ".hdf5":
		return FormatHDF5, true
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, true
	case ".parquet":
		return FormatParquet, true
	}
	return "", false
}

// Encoder writes one RowSet to one self-contained artifact at dest.
// Implementations call RowSet.Validate before touching the file system and
// return errors of type encoder_io for storage engine failures.
type Encoder interface {
	Format() Format
	Encode(ctx context.Context, rs *column.RowSet, dest string) error
}
