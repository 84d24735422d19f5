package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/inspect"
	"github.com/appINPP/root2data/pkg/logger"
	"github.com/appINPP/root2data/pkg/naming"
)

// Read loads every row of table from the database at path. An empty table
// name selects the table derived from the file's stem. Text cells starting
// with '[' are decoded back to []float64; a cell that fails to decode keeps
// its text and is reported as a warning.
func Read(ctx context.Context, path, table string, log *zap.Logger) (*inspect.Table, error) {
	log = logger.OrGlobal(log)
	if table == "" {
		table = naming.TableName(naming.Stem(path, encoding.FormatSQLite.Ext()))
	}

	db, err := openExisting(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", naming.QuoteIdent(table)))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "select from %s", table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEncoderIO, "columns")
	}

	t := &inspect.Table{Name: table, Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeEncoderIO, "scan")
		}
		for i, v := range vals {
			vals[i] = decodeCell(v, func(text string, err error) {
				log.Warn("keeping undecodable array cell as text",
					zap.String("table", table),
					zap.String("column", cols[i]),
					zap.Int("row", len(t.Rows)),
					zap.String("text", text),
					zap.Error(err))
			})
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEncoderIO, "iterate rows")
	}
	return t, nil
}

// decodeCell turns '['-prefixed text into []float64 and leaves every other
// value untouched.
func decodeCell(v any, onFail func(string, error)) any {
	var text string
	switch x := v.(type) {
	case string:
		text = x
	case []byte:
		text = string(x)
	default:
		return v
	}
	if !strings.HasPrefix(text, "[") {
		return text
	}
	seq, err := parseArray(text)
	if err != nil {
		onFail(text, err)
		return text
	}
	return seq
}

// Tables lists the user tables of the database at path.
func Tables(ctx context.Context, path string) ([]string, error) {
	db, err := openExisting(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEncoderIO, "list tables")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeEncoderIO, "scan table name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEncoderIO, "list tables")
	}
	return names, nil
}

// openExisting refuses to create a database that is not there.
func openExisting(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "open %s", path)
	}
	return open(ctx, path)
}
