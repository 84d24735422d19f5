package sqlite

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/appINPP/root2data/pkg/column"
)

// cellSource yields the SQL argument for every row of one column.
type cellSource func(row int) (any, error)

// sqlType is REAL for one scalar per row, TEXT for anything stored as a JSON
// array.
func sqlType(col column.Column) string {
	if u, ok := col.Value.(*column.Uniform); ok && u.Width() == 1 {
		return "REAL"
	}
	return "TEXT"
}

func cells(col column.Column) cellSource {
	switch v := col.Value.(type) {
	case *column.Uniform:
		flat := v.Float64s()
		w := v.Width()
		if w == 1 {
			return func(row int) (any, error) { return flat[row], nil }
		}
		return func(row int) (any, error) {
			return marshalRow(flat[row*w : (row+1)*w])
		}
	case *column.Ragged:
		return func(row int) (any, error) { return marshalRow(v.Row(row)) }
	}
	return func(int) (any, error) { return nil, nil }
}

// marshalRow encodes one row as a JSON array. Non-finite values are written
// as the bare NaN, Infinity and -Infinity tokens, which strict JSON lacks.
func marshalRow(row []float64) (string, error) {
	if len(row) == 0 {
		return "[]", nil
	}
	if allFinite(row) {
		b, err := json.Marshal(row)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range row {
		if i > 0 {
			sb.WriteString(", ")
		}
		switch {
		case math.IsNaN(f):
			sb.WriteString("NaN")
		case math.IsInf(f, 1):
			sb.WriteString("Infinity")
		case math.IsInf(f, -1):
			sb.WriteString("-Infinity")
		default:
			sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
	}
	sb.WriteByte(']')
	return sb.String(), nil
}

func allFinite(row []float64) bool {
	for _, f := range row {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

var separators = regexp.MustCompile(`[\s,]+`)

// parseArray decodes a stored array cell: strict JSON first, then a lenient
// split on commas and whitespace that also accepts the non-finite tokens.
func parseArray(text string) ([]float64, error) {
	var out []float64
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		if out == nil {
			out = []float64{}
		}
		return out, nil
	}

	body := strings.TrimSpace(strings.Trim(strings.TrimSpace(text), "[]"))
	if body == "" {
		return []float64{}, nil
	}
	tokens := separators.Split(strings.Trim(body, ", \t\n"), -1)
	out = make([]float64, len(tokens))
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
