package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/config"
	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/encoding/parquet"
	"github.com/appINPP/root2data/pkg/encoding/sqlite"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/metrics"
	"github.com/appINPP/root2data/pkg/source"
	"github.com/appINPP/root2data/pkg/testutil"
)

// memTable is an in-memory source.Table.
type memTable struct {
	name string
	cols []column.RawColumn
}

func (t memTable) Name() string { return t.name }

func (t memTable) Columns() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

func (t memTable) Read(names []string) (map[string]column.RawColumn, error) {
	out := make(map[string]column.RawColumn, len(names))
	for _, c := range t.cols {
		for _, n := range names {
			if c.Name == n {
				out[n] = c
			}
		}
	}
	return out, nil
}

type memHandle struct{ tables []source.Table }

func (h memHandle) Tables() ([]source.Table, error) { return h.tables, nil }
func (h memHandle) Close() error                    { return nil }

// memOpener serves tables by file basename.
type memOpener map[string][]source.Table

func (o memOpener) Open(path string) (source.Handle, error) {
	tables, ok := o[filepath.Base(path)]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeSource, "no such file %s", path)
	}
	return memHandle{tables: tables}, nil
}

func scenarioTables() []source.Table {
	return []source.Table{memTable{name: "events;1", cols: []column.RawColumn{
		{Name: "eventNumber", Values: []int32{1, 2, 3}, Width: 1},
		{Name: "digitX", Values: []any{[]float64{1, 2}, []float64{3}, []float64{4, 5, 6}}, Width: 1},
	}}}
}

// failingEncoder writes a partial file and then fails.
type failingEncoder struct{ format encoding.Format }

func (e failingEncoder) Format() encoding.Format { return e.format }

func (e failingEncoder) Encode(_ context.Context, _ *column.RowSet, dest string) error {
	if err := os.WriteFile(dest, []byte("partial"), 0o644); err != nil {
		return err
	}
	return errors.New(errors.ErrorTypeEncoderIO, "disk full")
}

func testConfig(t *testing.T, formats ...encoding.Format) Config {
	t.Helper()
	root := t.TempDir()
	return Config{
		Columns:   []string{"eventNumber", "digitX"},
		Formats:   formats,
		SourceDir: filepath.Join(root, "root"),
		SourceExt: ".root",
		Dirs: map[encoding.Format]string{
			encoding.FormatHDF5:    filepath.Join(root, "h5"),
			encoding.FormatSQLite:  filepath.Join(root, "sqlite"),
			encoding.FormatParquet: filepath.Join(root, "parquet"),
		},
		Parquet: parquet.DefaultOptions(),
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no columns", func(c *Config) { c.Columns = nil }},
		{"no formats", func(c *Config) { c.Formats = nil }},
		{"no extension", func(c *Config) { c.SourceExt = "" }},
		{"unknown format", func(c *Config) { c.Formats = []encoding.Format{"xlsx"} }},
		{"missing dir", func(c *Config) { delete(c.Dirs, encoding.FormatSQLite) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, encoding.FormatSQLite)
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		})
	}
	assert.NoError(t, testConfig(t, encoding.AllFormats()...).Validate())
}

func TestFromConfig(t *testing.T) {
	c := config.Default()
	c.Columns = []string{"eventNumber"}
	c.Formats = []string{"sqlite", "pq"}
	c.Parquet.Compression = "zstd"

	cfg, err := FromConfig(c)
	require.NoError(t, err)
	assert.Equal(t, []encoding.Format{encoding.FormatSQLite, encoding.FormatParquet}, cfg.Formats)
	assert.Equal(t, c.Output.SQLiteDir, cfg.Dirs[encoding.FormatSQLite])
	assert.Equal(t, "zstd", cfg.Parquet.Compression)

	c.Columns = nil
	_, err = FromConfig(c)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestScan(t *testing.T) {
	cfg := testConfig(t, encoding.FormatSQLite, encoding.FormatParquet)
	require.NoError(t, os.MkdirAll(cfg.SourceDir, 0o755))
	for _, name := range []string{"a.root", "b.root", "c.root", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.SourceDir, name), nil, 0o644))
	}
	require.NoError(t, os.MkdirAll(cfg.Dirs[encoding.FormatSQLite], 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dirs[encoding.FormatSQLite], "a.db"), nil, 0o644))

	plan, err := Scan(cfg.SourceDir, cfg.SourceExt, cfg.Dirs, cfg.Formats)
	require.NoError(t, err)

	src := func(n string) string { return filepath.Join(cfg.SourceDir, n) }
	assert.Equal(t, []string{src("b.root"), src("c.root")}, plan[encoding.FormatSQLite])
	assert.Equal(t, []string{src("a.root"), src("b.root"), src("c.root")}, plan[encoding.FormatParquet])
	assert.DirExists(t, cfg.Dirs[encoding.FormatParquet])
	assert.NoDirExists(t, cfg.Dirs[encoding.FormatHDF5])

	jobs := plan.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, Job{Path: src("a.root"), Formats: []encoding.Format{encoding.FormatParquet}}, jobs[0])
	assert.Equal(t, []encoding.Format{encoding.FormatSQLite, encoding.FormatParquet}, jobs[1].Formats)
	assert.False(t, plan.Empty())
}

func TestScan_MissingSourceDir(t *testing.T) {
	cfg := testConfig(t, encoding.FormatSQLite)
	_, err := Scan(cfg.SourceDir, cfg.SourceExt, cfg.Dirs, cfg.Formats)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestFilePlan(t *testing.T) {
	p := FilePlan([]string{"x.root"}, []encoding.Format{encoding.FormatHDF5, encoding.FormatSQLite})
	assert.Equal(t, []Job{{Path: "x.root", Formats: []encoding.Format{encoding.FormatHDF5, encoding.FormatSQLite}}}, p.Jobs())
	assert.True(t, Plan{}.Empty())
}

func TestConvertFile(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	cfg := testConfig(t, encoding.FormatSQLite, encoding.FormatParquet)
	conv, err := NewConverter(cfg,
		WithLogger(testutil.TestLogger(t)),
		WithOpener(memOpener{"run.2024.01.root": scenarioTables()}))
	require.NoError(t, err)

	res, err := conv.ConvertFile(ctx, filepath.Join(cfg.SourceDir, "run.2024.01.root"), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, []string{"eventNumber", "digitX"}, res.Columns)
	assert.Equal(t, []string{
		filepath.Join(cfg.Dirs[encoding.FormatSQLite], "run.2024.01.db"),
		filepath.Join(cfg.Dirs[encoding.FormatParquet], "run.2024.01.parquet"),
	}, res.Artifacts)

	tbl, err := sqlite.Read(ctx, res.Artifacts[0], "", nil)
	require.NoError(t, err)
	assert.Equal(t, "run_2024_01", tbl.Name)
	assert.Equal(t, []float64{4, 5, 6}, tbl.Rows[2][1])

	ptbl, err := parquet.Read(ctx, res.Artifacts[1])
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, ptbl.Rows[2][1])
}

func TestConvertFile_MissingColumnsSkips(t *testing.T) {
	cfg := testConfig(t, encoding.FormatSQLite)
	cfg.Columns = []string{"eventNumber", "noSuchColumn"}
	conv, err := NewConverter(cfg, WithOpener(memOpener{"a.root": scenarioTables()}))
	require.NoError(t, err)

	res, err := conv.ConvertFile(context.Background(), "a.root", nil)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, []string{"eventNumber", "noSuchColumn"}, res.Missing)
	assert.NoFileExists(t, filepath.Join(cfg.Dirs[encoding.FormatSQLite], "a.db"))
}

func TestConvertFile_RemovesPartialArtifact(t *testing.T) {
	cfg := testConfig(t, encoding.FormatSQLite, encoding.FormatParquet)
	conv, err := NewConverter(cfg,
		WithOpener(memOpener{"a.root": scenarioTables()}),
		WithEncoder(failingEncoder{format: encoding.FormatSQLite}))
	require.NoError(t, err)

	res, err := conv.ConvertFile(context.Background(), "a.root", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEncoderIO))
	assert.NoFileExists(t, filepath.Join(cfg.Dirs[encoding.FormatSQLite], "a.db"))
	assert.FileExists(t, filepath.Join(cfg.Dirs[encoding.FormatParquet], "a.parquet"))
	assert.Len(t, res.Artifacts, 1)
}

func TestConvertFile_KeepsPreexistingArtifact(t *testing.T) {
	cfg := testConfig(t, encoding.FormatSQLite)
	require.NoError(t, os.MkdirAll(cfg.Dirs[encoding.FormatSQLite], 0o755))
	dest := filepath.Join(cfg.Dirs[encoding.FormatSQLite], "a.db")
	require.NoError(t, os.WriteFile(dest, []byte("earlier"), 0o644))

	conv, err := NewConverter(cfg,
		WithOpener(memOpener{"a.root": scenarioTables()}),
		WithEncoder(failingEncoder{format: encoding.FormatSQLite}))
	require.NoError(t, err)

	_, err = conv.ConvertFile(context.Background(), "a.root", nil)
	require.Error(t, err)
	assert.FileExists(t, dest)
}

func TestConvertFile_RaggedParseFailure(t *testing.T) {
	cfg := testConfig(t, encoding.FormatSQLite)
	cfg.Columns = []string{"label"}
	tables := []source.Table{memTable{name: "t;1", cols: []column.RawColumn{
		{Name: "label", Values: []any{"alpha", "beta"}, Width: 1},
	}}}
	conv, err := NewConverter(cfg, WithOpener(memOpener{"a.root": tables}))
	require.NoError(t, err)

	_, err = conv.ConvertFile(context.Background(), "a.root", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRaggedParse))
	assert.NoFileExists(t, filepath.Join(cfg.Dirs[encoding.FormatSQLite], "a.db"))
}

func TestConvertFile_RejectsForeignExtension(t *testing.T) {
	cfg := testConfig(t, encoding.FormatHDF5, encoding.FormatSQLite)
	conv, err := NewConverter(cfg, WithOpener(memOpener{"data.txt": scenarioTables()}))
	require.NoError(t, err)

	_, err = conv.ConvertFile(context.Background(), "data.txt", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.NoFileExists(t, filepath.Join(cfg.Dirs[encoding.FormatHDF5], "data.txt.h5"))
	assert.NoFileExists(t, filepath.Join(cfg.Dirs[encoding.FormatSQLite], "data.txt.db"))

	summary, err := conv.Run(context.Background(), FilePlan([]string{"data.txt"}, cfg.Formats))
	require.Error(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, summary.Results)
}

func TestRun_ContinuesPastFailures(t *testing.T) {
	cfg := testConfig(t, encoding.FormatSQLite)
	m := metrics.NewCollector()
	conv, err := NewConverter(cfg,
		WithLogger(testutil.TestLogger(t)),
		WithMetrics(m),
		WithOpener(memOpener{"a.root": scenarioTables(), "c.root": scenarioTables()}))
	require.NoError(t, err)

	plan := FilePlan([]string{"a.root", "b.root", "c.root"}, cfg.Formats)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	summary, err := conv.Run(ctx, plan)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Converted)
	assert.Equal(t, 1, summary.Failed)
	assert.FileExists(t, filepath.Join(cfg.Dirs[encoding.FormatSQLite], "c.db"))

	prom := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, m.WriteToTextfile(prom))
	body, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(body), `root2data_files_processed_total{status="failure"} 1`)
	assert.Contains(t, string(body), `root2data_files_processed_total{status="success"} 2`)
	assert.Contains(t, string(body), `root2data_rows_written_total{format="sqlite"} 6`)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t, encoding.FormatSQLite)
	conv, err := NewConverter(cfg, WithOpener(memOpener{"a.root": scenarioTables()}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := conv.Run(ctx, FilePlan([]string{"a.root"}, cfg.Formats))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Converted)
	assert.NoFileExists(t, filepath.Join(cfg.Dirs[encoding.FormatSQLite], "a.db"))
}

func TestResourceMonitor(t *testing.T) {
	u := NewResourceMonitor().Usage()
	assert.NotZero(t, u.HeapAlloc)
	assert.Len(t, u.Fields(), 3)
}
