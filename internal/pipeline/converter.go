// Package pipeline drives conversions: it extracts the configured columns
// from each source file, normalizes them into a RowSet and hands the RowSet
// to one encoder per requested format.
//
// # Basic Usage
//
//	conv, err := pipeline.NewConverter(cfg, pipeline.WithLogger(log))
//	plan, err := pipeline.Scan(cfg.SourceDir, cfg.SourceExt, cfg.Dirs, cfg.Formats)
//	summary, err := conv.Run(ctx, plan)
//
// Files are converted one at a time. A failed file is logged and counted and
// the run moves on; cancellation is honoured between files.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/encoding/hdf5"
	"github.com/appINPP/root2data/pkg/encoding/parquet"
	"github.com/appINPP/root2data/pkg/encoding/sqlite"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/logger"
	"github.com/appINPP/root2data/pkg/metrics"
	"github.com/appINPP/root2data/pkg/naming"
	"github.com/appINPP/root2data/pkg/normalize"
	"github.com/appINPP/root2data/pkg/observability"
	"github.com/appINPP/root2data/pkg/source"
	"github.com/appINPP/root2data/pkg/source/rootfile"
)

// Converter turns source files into artifacts.
type Converter struct {
	cfg      Config
	opener   source.Opener
	encoders map[encoding.Format]encoding.Encoder
	logger   *zap.Logger
	metrics  *metrics.Collector
	tracing  *observability.Tracing
	monitor  *ResourceMonitor
}

// Option customizes a Converter.
type Option func(*Converter)

// WithLogger sets the logger; the global logger is used otherwise.
func WithLogger(l *zap.Logger) Option { return func(c *Converter) { c.logger = l } }

// WithMetrics records conversion metrics into m.
func WithMetrics(m *metrics.Collector) Option { return func(c *Converter) { c.metrics = m } }

// WithTracing emits spans through t.
func WithTracing(t *observability.Tracing) Option { return func(c *Converter) { c.tracing = t } }

// WithOpener replaces the ROOT reader.
func WithOpener(o source.Opener) Option { return func(c *Converter) { c.opener = o } }

// WithEncoder replaces the encoder of enc.Format().
func WithEncoder(enc encoding.Encoder) Option {
	return func(c *Converter) { c.encoders[enc.Format()] = enc }
}

// NewConverter validates cfg and wires the default reader and encoders.
func NewConverter(cfg Config, opts ...Option) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Converter{
		cfg:      cfg,
		opener:   rootfile.Opener{},
		encoders: make(map[encoding.Format]encoding.Encoder, 3),
		monitor:  NewResourceMonitor(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrGlobal(c.logger)
	if c.metrics == nil {
		c.metrics = metrics.NewCollector()
	}
	if c.tracing == nil {
		c.tracing = observability.Noop()
	}

	if _, ok := c.encoders[encoding.FormatHDF5]; !ok {
		c.encoders[encoding.FormatHDF5] = hdf5.New(c.logger)
	}
	if _, ok := c.encoders[encoding.FormatSQLite]; !ok {
		c.encoders[encoding.FormatSQLite] = sqlite.New(c.logger)
	}
	if _, ok := c.encoders[encoding.FormatParquet]; !ok {
		pq, err := parquet.New(c.logger, cfg.Parquet)
		if err != nil {
			return nil, err
		}
		c.encoders[encoding.FormatParquet] = pq
	}
	return c, nil
}

// Metrics returns the collector the converter records into.
func (c *Converter) Metrics() *metrics.Collector { return c.metrics }

// FileResult describes one converted file.
type FileResult struct {
	Path      string
	Columns   []string
	Rows      int
	Missing   []string
	Artifacts []string
	// Skipped is set when no requested column was found.
	Skipped bool
	Usage   ResourceUsage
}

// ConvertFile converts path into every format of formats (the configured
// formats when empty). A path whose name lacks the source extension is
// rejected, since its artifacts would be named after the whole file name.
func (c *Converter) ConvertFile(ctx context.Context, path string, formats []encoding.Format) (res *FileResult, err error) {
	if len(formats) == 0 {
		formats = c.cfg.Formats
	}
	ctx = context.WithValue(ctx, logger.FileKey, path)
	log := logger.WithContext(ctx, c.logger)

	ctx, span := c.tracing.StartSpan(ctx, "convert_file")
	span.SetAttribute("file", path)
	defer func() { span.End(err) }()

	if !strings.HasSuffix(filepath.Base(path), c.cfg.SourceExt) {
		return nil, errors.Newf(errors.ErrorTypeValidation, "%s does not have the source extension %s", path, c.cfg.SourceExt)
	}

	rs, res, err := c.load(ctx, path, log)
	if err != nil {
		return nil, err
	}
	if rs.Empty() {
		log.Warn("no requested column found, skipping file", zap.Strings("missing", res.Missing))
		res.Skipped = true
		return res, nil
	}
	span.SetAttribute("rows", rs.NumRows())

	var errs []error
	for _, f := range formats {
		dest, err := c.encode(ctx, f, rs, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res.Artifacts = append(res.Artifacts, dest)
	}

	res.Usage = c.monitor.Usage()
	c.metrics.SetResidentMemory(res.Usage.MemoryRSS)
	log.Info("file converted", append(res.Usage.Fields(),
		zap.Int("rows", res.Rows),
		zap.Strings("artifacts", res.Artifacts))...)

	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}
	return res, nil
}

// load extracts and normalizes the configured columns of path.
func (c *Converter) load(ctx context.Context, path string, log *zap.Logger) (*column.RowSet, *FileResult, error) {
	_, span := c.tracing.StartSpan(ctx, "extract")
	h, err := c.opener.Open(path)
	if err != nil {
		span.End(err)
		return nil, nil, errors.Wrapf(err, errors.ErrorTypeSource, "open %s", path)
	}
	defer h.Close()

	ex, err := source.Extract(h, c.cfg.Columns, log)
	span.End(err)
	if err != nil {
		return nil, nil, err
	}
	c.metrics.ObserveMissing(len(ex.Missing))

	res := &FileResult{Path: path, Missing: ex.Missing}
	rs := column.NewRowSet()
	for _, raw := range ex.Columns {
		n, err := normalize.Column(raw)
		if err != nil {
			return nil, nil, err
		}
		c.metrics.ObserveColumn(string(n.Path), n.Dropped)
		fields := []zap.Field{
			zap.String("column", raw.Name),
			zap.String("path", string(n.Path)),
			zap.Stringer("kind", n.Column.Kind()),
		}
		if n.Dropped > 0 {
			fields = append(fields, zap.Int("dropped_rows", n.Dropped))
		}
		log.Debug("column normalized", fields...)

		if err := rs.Add(n.Column); err != nil {
			return nil, nil, err
		}
		res.Columns = append(res.Columns, raw.Name)
	}
	if err := rs.Validate(); err != nil {
		return nil, nil, err
	}
	res.Rows = rs.NumRows()
	return rs, res, nil
}

// encode writes one artifact. A failed encode removes the artifact when it
// did not exist beforehand, so the file is picked up again by the next scan.
func (c *Converter) encode(ctx context.Context, f encoding.Format, rs *column.RowSet, path string) (dest string, err error) {
	enc, ok := c.encoders[f]
	if !ok {
		return "", errors.Newf(errors.ErrorTypeConfig, "no encoder for format %s", f)
	}
	dest = filepath.Join(c.cfg.Dirs[f], naming.ArtifactName(path, c.cfg.SourceExt, f.Ext()))

	ctx = context.WithValue(ctx, logger.FormatKey, string(f))
	log := logger.WithContext(ctx, c.logger)
	ctx, span := c.tracing.StartSpan(ctx, "encode")
	span.SetAttribute("format", string(f))
	span.SetAttribute("destination", dest)
	defer func() { span.End(err) }()

	if err := os.MkdirAll(c.cfg.Dirs[f], 0o755); err != nil {
		return "", errors.Wrapf(err, errors.ErrorTypeFile, "create %s", c.cfg.Dirs[f])
	}
	_, statErr := os.Stat(dest)
	existed := statErr == nil

	timer := metrics.NewTimer(string(f))
	err = enc.Encode(ctx, rs, dest)
	elapsed := timer.Stop()
	c.metrics.ObserveEncode(string(f), rs.NumRows(), elapsed, err)
	if err != nil {
		if !existed {
			if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn("could not remove partial artifact", zap.String("destination", dest), zap.Error(rmErr))
			}
		}
		log.Error("encode failed", zap.String("destination", dest), zap.Error(err))
		return "", errors.Wrapf(err, errors.TypeOr(err, errors.ErrorTypeEncoderIO), "encode %s to %s", path, f)
	}
	log.Info("artifact written", zap.String("destination", dest), zap.Duration("elapsed", elapsed))
	return dest, nil
}

// Summary reports a Run.
type Summary struct {
	RunID     string
	Converted int
	Skipped   int
	Failed    int
	Results   []*FileResult
	Elapsed   time.Duration
}

// Run converts every job of plan in path order.
func (c *Converter) Run(ctx context.Context, plan Plan) (*Summary, error) {
	start := time.Now()
	s := &Summary{RunID: uuid.New().String()}
	ctx = context.WithValue(ctx, logger.RunIDKey, s.RunID)
	log := logger.WithContext(ctx, c.logger)

	ctx, span := c.tracing.StartSpan(ctx, "run")
	span.SetAttribute("run_id", s.RunID)

	jobs := plan.Jobs()
	log.Info("conversion started", zap.Int("files", len(jobs)))

	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := c.ConvertFile(ctx, job.Path, job.Formats)
		if res != nil {
			s.Results = append(s.Results, res)
		}
		switch {
		case err != nil:
			s.Failed++
			c.metrics.ObserveFile(metrics.StatusFailure)
			log.Error("file failed", zap.String("file", job.Path),
				zap.String("error_type", string(errors.TypeOf(err))), zap.Error(err))
			errs = append(errs, err)
		case res.Skipped:
			s.Skipped++
			c.metrics.ObserveFile(metrics.StatusSkipped)
		default:
			s.Converted++
			c.metrics.ObserveFile(metrics.StatusSuccess)
		}
	}

	s.Elapsed = time.Since(start)
	err := errors.Join(errs...)
	span.SetAttribute("converted", s.Converted)
	span.SetAttribute("failed", s.Failed)
	span.End(err)
	log.Info("conversion finished",
		zap.Int("converted", s.Converted),
		zap.Int("skipped", s.Skipped),
		zap.Int("failed", s.Failed),
		zap.Duration("elapsed", s.Elapsed))
	return s, err
}
