package config

import (
	"path/filepath"
	"strings"

	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/logger"
	"github.com/appINPP/root2data/pkg/naming"
)

// Config is the full configuration of a conversion run.
type Config struct {
	// Columns lists the branch names to extract, in output order
	Columns []string `yaml:"columns" json:"columns" mapstructure:"columns"`
	// Formats lists the artifact formats to produce (h5, sqlite, parquet)
	Formats []string `yaml:"formats" json:"formats" mapstructure:"formats"`

	// Source locates input files
	Source SourceConfig `yaml:"source" json:"source" mapstructure:"source"`

	// Output holds one directory per artifact format
	Output OutputConfig `yaml:"output" json:"output" mapstructure:"output"`

	// Parquet writer settings
	Parquet ParquetConfig `yaml:"parquet" json:"parquet" mapstructure:"parquet"`

	// Logging settings
	Logging logger.Config `yaml:"logging" json:"logging" mapstructure:"logging"`

	// Observability settings for metrics and traces
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// SourceConfig locates ROOT inputs.
type SourceConfig struct {
	Dir string `yaml:"dir" json:"dir" mapstructure:"dir"`
	// Ext is the source extension replaced in artifact names
	Ext string `yaml:"ext" json:"ext" mapstructure:"ext"`
}

// OutputConfig holds the destination directory for each format.
type OutputConfig struct {
	HDF5Dir    string `yaml:"h5_dir" json:"h5_dir" mapstructure:"h5_dir"`
	SQLiteDir  string `yaml:"sqlite_dir" json:"sqlite_dir" mapstructure:"sqlite_dir"`
	ParquetDir string `yaml:"parquet_dir" json:"parquet_dir" mapstructure:"parquet_dir"`
}

// ParquetConfig controls the Parquet writer.
type ParquetConfig struct {
	// Compression selects the block codec (snappy, zstd, gzip, brotli, lz4, none)
	Compression      string `yaml:"compression" json:"compression" mapstructure:"compression"`
	EnableDictionary bool   `yaml:"enable_dictionary" json:"enable_dictionary" mapstructure:"enable_dictionary"`
	EnableStats      bool   `yaml:"enable_stats" json:"enable_stats" mapstructure:"enable_stats"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	// MetricsFile receives the Prometheus text exposition after a run; empty disables it
	MetricsFile string `yaml:"metrics_file" json:"metrics_file" mapstructure:"metrics_file"`
	// TraceFile receives exported spans as JSON; empty disables tracing
	TraceFile   string `yaml:"trace_file" json:"trace_file" mapstructure:"trace_file"`
	ServiceName string `yaml:"service_name" json:"service_name" mapstructure:"service_name"`
}

// Default returns a Config with every default applied. Directories are
// relative to the working directory, under data/.
func Default() *Config {
	return &Config{
		Formats: []string{string(encoding.FormatHDF5), string(encoding.FormatSQLite), string(encoding.FormatParquet)},
		Source: SourceConfig{
			Dir: filepath.Join("data", "root"),
			Ext: naming.DefaultSourceExt,
		},
		Output: OutputConfig{
			HDF5Dir:    filepath.Join("data", "h5"),
			SQLiteDir:  filepath.Join("data", "sqlite"),
			ParquetDir: filepath.Join("data", "parquet"),
		},
		Parquet: ParquetConfig{
			Compression:      "snappy",
			EnableDictionary: true,
			EnableStats:      true,
		},
		Logging: logger.Config{
			Level:       "info",
			Encoding:    "console",
			OutputPaths: []string{"stderr"},
		},
		Observability: ObservabilityConfig{
			ServiceName: "root2data",
		},
	}
}

// ApplyDefaults fills every zero-valued field from Default. Boolean Parquet
// settings are left as loaded.
func (c *Config) ApplyDefaults() {
	d := Default()
	if len(c.Formats) == 0 {
		c.Formats = d.Formats
	}
	if c.Source.Dir == "" {
		c.Source.Dir = d.Source.Dir
	}
	if c.Source.Ext == "" {
		c.Source.Ext = d.Source.Ext
	}
	if c.Output.HDF5Dir == "" {
		c.Output.HDF5Dir = d.Output.HDF5Dir
	}
	if c.Output.SQLiteDir == "" {
		c.Output.SQLiteDir = d.Output.SQLiteDir
	}
	if c.Output.ParquetDir == "" {
		c.Output.ParquetDir = d.Output.ParquetDir
	}
	if c.Parquet.Compression == "" {
		c.Parquet.Compression = d.Parquet.Compression
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = d.Logging.Encoding
	}
	if len(c.Logging.OutputPaths) == 0 {
		c.Logging.OutputPaths = d.Logging.OutputPaths
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = d.Observability.ServiceName
	}
}

// Validate checks required fields and known values.
func (c *Config) Validate() error {
	if len(c.Columns) == 0 {
		return errors.New(errors.ErrorTypeConfig, "at least one column is required")
	}
	for _, name := range c.Columns {
		if strings.TrimSpace(name) == "" {
			return errors.New(errors.ErrorTypeConfig, "column names must not be blank")
		}
	}
	formats, err := c.ParsedFormats()
	if err != nil {
		return err
	}
	if len(formats) == 0 {
		return errors.New(errors.ErrorTypeConfig, "at least one format is required")
	}
	if c.Source.Ext == "" {
		return errors.New(errors.ErrorTypeConfig, "source.ext is required")
	}
	dirs := c.Dirs()
	for _, f := range formats {
		if dirs[f] == "" {
			return errors.Newf(errors.ErrorTypeConfig, "no output directory for format %s", f)
		}
	}
	if !KnownCompression(c.Parquet.Compression) {
		return errors.Newf(errors.ErrorTypeConfig, "unknown parquet compression %q", c.Parquet.Compression)
	}
	return nil
}

// ParsedFormats returns Formats as encoding.Format values.
func (c *Config) ParsedFormats() ([]encoding.Format, error) {
	return encoding.ParseFormats(c.Formats)
}

// Dirs maps every format to its output directory.
func (c *Config) Dirs() map[encoding.Format]string {
	return map[encoding.Format]string{
		encoding.FormatHDF5:    c.Output.HDF5Dir,
		encoding.FormatSQLite:  c.Output.SQLiteDir,
		encoding.FormatParquet: c.Output.ParquetDir,
	}
}

// KnownCompression reports whether name is a supported Parquet codec.
func KnownCompression(name string) bool {
	switch strings.ToLower(name) {
	case "snappy", "zstd", "gzip", "brotli", "lz4", "none", "uncompressed":
		return true
	}
	return false
}
