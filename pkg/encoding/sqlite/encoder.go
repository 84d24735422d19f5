// Package sqlite writes RowSets to SQLite databases and reads them back.
//
// Each artifact holds one table named after the artifact stem with dots
// replaced by underscores. Columns holding one scalar per row are REAL;
// ragged and rectangular columns are TEXT with one JSON array per row.
// All rows of one RowSet are inserted in a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/logger"
	"github.com/appINPP/root2data/pkg/naming"
)

const driverName = "sqlite"

// Encoder writes the SQLite artifact.
type Encoder struct {
	logger *zap.Logger
}

// New returns an Encoder; a nil logger falls back to the global one.
func New(log *zap.Logger) *Encoder {
	return &Encoder{logger: logger.OrGlobal(log)}
}

// Format implements encoding.Encoder.
func (e *Encoder) Format() encoding.Format { return encoding.FormatSQLite }

// Encode creates the table if it does not exist and replaces its rows with
// the rows of rs, so encoding the same file twice leaves one copy. Any
// failure rolls the transaction back, leaving the previous rows in place.
func (e *Encoder) Encode(ctx context.Context, rs *column.RowSet, dest string) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	if rs.Empty() {
		return errors.New(errors.ErrorTypeValidation, "row set has no columns")
	}

	table := naming.TableIdentifier(naming.Stem(dest, encoding.FormatSQLite.Ext()))
	log := e.logger.With(zap.String("destination", dest), zap.String("table", table))

	db, err := open(ctx, dest)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, buildCreateSQL(table, rs)); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "create table %s", table)
	}

	sources := make([]cellSource, rs.NumColumns())
	for i, col := range rs.Columns() {
		log.Info("writing column", zap.String("column", col.Name), zap.String("type", sqlType(col)))
		sources[i] = cells(col)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeEncoderIO, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "clear table %s", table)
	}

	stmt, err := tx.PrepareContext(ctx, buildInsertSQL(table, rs))
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "prepare insert into %s", table)
	}
	defer stmt.Close()

	args := make([]any, len(sources))
	for row := 0; row < rs.NumRows(); row++ {
		for i, src := range sources {
			v, err := src(row)
			if err != nil {
				return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "encode row %d column %q", row, rs.Columns()[i].Name)
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "insert row %d", row).
				WithDetail("row", row)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeEncoderIO, "commit")
	}
	log.Debug("rows committed", zap.Int("rows", rs.NumRows()))
	return nil
}

func open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "open %s", path)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "open %s", path)
	}
	return db, nil
}

func buildCreateSQL(table string, rs *column.RowSet) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(table)
	b.WriteString(" (")
	for i, col := range rs.Columns() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(naming.QuoteIdent(col.Name))
		b.WriteString(" ")
		b.WriteString(sqlType(col))
	}
	b.WriteString(")")
	return b.String()
}

func buildInsertSQL(table string, rs *column.RowSet) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	for i, col := range rs.Columns() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(naming.QuoteIdent(col.Name))
	}
	b.WriteString(") VALUES (")
	for i := 0; i < rs.NumColumns(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	b.WriteString(")")
	return b.String()
}
