// Package naming derives artifact file names, internal group/table names and
// SQL identifiers from source file paths.
//
// The rules use plain substring replacement on the basename, so a source
// extension that also appears in the middle of a name is replaced there too.
// Converted-file detection in the scanner depends on these exact rules.
package naming

import (
	"path/filepath"
	"strings"
)

// DefaultSourceExt is the extension of ROOT input files.
const DefaultSourceExt = ".root"

// ArtifactName returns the basename of the artifact produced from src: the
// basename of src with every occurrence of srcExt replaced by newExt.
func ArtifactName(src, srcExt, newExt string) string {
	return strings.ReplaceAll(filepath.Base(src), srcExt, newExt)
}

// Stem returns the basename of path up to the first occurrence of ext, or
// the whole basename when ext does not occur.
func Stem(path, ext string) string {
	base := filepath.Base(path)
	if ext == "" {
		return base
	}
	return strings.SplitN(base, ext, 2)[0]
}

// TableName is the relational table name for an artifact stem: every dot
// replaced by an underscore.
func TableName(stem string) string {
	return strings.ReplaceAll(stem, ".", "_")
}

// QuoteIdent double-quotes an SQL identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableIdentifier is QuoteIdent(TableName(stem)).
func TableIdentifier(stem string) string {
	return QuoteIdent(TableName(stem))
}
