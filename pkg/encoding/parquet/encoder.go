// Package parquet writes RowSets to Parquet files through Apache Arrow and
// reads them back.
//
// Scalar columns become flat primitive columns, rectangular columns become
// fixed-size lists and ragged columns become variable-length lists of
// float64. Each artifact is written whole: an existing file is replaced.
package parquet

import (
	"context"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/logger"
)

// Options tunes the Parquet writer.
type Options struct {
	Compression      string
	EnableDictionary bool
	EnableStats      bool
}

// DefaultOptions matches the defaults of the configuration file.
func DefaultOptions() Options {
	return Options{Compression: "snappy", EnableDictionary: true, EnableStats: true}
}

// Encoder writes the Parquet artifact.
type Encoder struct {
	logger *zap.Logger
	opts   Options
	pool   memory.Allocator
}

// New validates opts and returns an Encoder.
func New(log *zap.Logger, opts Options) (*Encoder, error) {
	if _, err := codec(opts.Compression); err != nil {
		return nil, err
	}
	return &Encoder{
		logger: logger.OrGlobal(log),
		opts:   opts,
		pool:   memory.NewGoAllocator(),
	}, nil
}

// Format implements encoding.Encoder.
func (e *Encoder) Format() encoding.Format { return encoding.FormatParquet }

// Encode writes rs to dest as a single row group.
func (e *Encoder) Encode(ctx context.Context, rs *column.RowSet, dest string) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	if rs.Empty() {
		return errors.New(errors.ErrorTypeValidation, "row set has no columns")
	}
	log := e.logger.With(zap.String("destination", dest))

	fields := make([]arrow.Field, 0, rs.NumColumns())
	cols := make([]arrow.Array, 0, rs.NumColumns())
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	for _, col := range rs.Columns() {
		if err := ctx.Err(); err != nil {
			return err
		}
		field, arr, err := toArrow(e.pool, col)
		if err != nil {
			return errors.Wrapf(err, errors.TypeOr(err, errors.ErrorTypeEncoderIO), "column %q", col.Name)
		}
		log.Info("writing column", zap.String("column", col.Name), zap.Stringer("type", field.Type))
		fields = append(fields, field)
		cols = append(cols, arr)
	}

	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, cols, int64(rs.NumRows()))
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "create %s", dest)
	}
	defer f.Close()

	props, err := e.writerProperties()
	if err != nil {
		return err
	}
	arrProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(e.pool),
		pqarrow.WithStoreSchema(),
	)
	chunk := int64(rs.NumRows())
	if chunk == 0 {
		chunk = 1
	}
	if err := pqarrow.WriteTable(tbl, f, chunk, props, arrProps); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "write %s", dest)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "close %s", dest)
	}
	log.Debug("parquet written", zap.Int("rows", rs.NumRows()), zap.String("compression", e.opts.Compression))
	return nil
}

func (e *Encoder) writerProperties() (*parquet.WriterProperties, error) {
	c, err := codec(e.opts.Compression)
	if err != nil {
		return nil, err
	}
	return parquet.NewWriterProperties(
		parquet.WithCompression(c),
		parquet.WithDictionaryDefault(e.opts.EnableDictionary),
		parquet.WithStats(e.opts.EnableStats),
		parquet.WithAllocator(e.pool),
	), nil
}

func codec(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeConfig, "unknown parquet compression %q", name)
}
