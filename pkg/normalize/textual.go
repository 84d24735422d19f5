package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/appINPP/root2data/pkg/errors"
)

var whitespace = regexp.MustCompile(`\s+`)

// textual renders every row, drops rows whose text is at most one character
// long and parses the rest. The first unparsable token aborts the column.
func textual(name string, rows []any) ([][]float64, int, error) {
	out := make([][]float64, 0, len(rows))
	dropped := 0
	for i, row := range rows {
		text := RenderRow(row)
		if len(text) <= 1 {
			dropped++
			continue
		}
		seq, err := ParseRowText(text)
		if err != nil {
			return nil, dropped, errors.Wrapf(err, errors.ErrorTypeRaggedParse,
				"column %q row %d", name, i).
				WithDetail("column", name).
				WithDetail("row", i).
				WithDetail("text", text)
		}
		out = append(out, seq)
	}
	return out, dropped, nil
}

// RenderRow returns the default print form of a row value. Numeric
// sequences are converted to float64 first, so [1 2.5] prints the same
// whatever the source element type was; booleans become 0 and 1.
func RenderRow(row any) string {
	switch v := row.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	if seq, ok := sequenceFloats(row); ok {
		return fmt.Sprint(seq)
	}
	if f, ok := scalarFloat(row); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprint(row)
}

// ParseRowText parses the print form of one row: enclosing brackets and
// newlines are removed, runs of whitespace collapse to one space and every
// space-separated token must be a float.
func ParseRowText(text string) ([]float64, error) {
	s := strings.Trim(text, "[]")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.TrimSpace(s)
	s = whitespace.ReplaceAllString(s, " ")

	tokens := strings.Split(s, " ")
	out := make([]float64, len(tokens))
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("token %q is not a float: %w", tok, err)
		}
		out[i] = f
	}
	return out, nil
}
