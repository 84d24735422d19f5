package pipeline

import (
	"github.com/appINPP/root2data/pkg/config"
	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/encoding/parquet"
	"github.com/appINPP/root2data/pkg/errors"
)

// Config is everything the converter needs; nothing is read interactively.
type Config struct {
	// Columns to extract, in output order
	Columns []string
	// Formats to produce when a plan does not say otherwise
	Formats   []encoding.Format
	SourceDir string
	SourceExt string
	// Dirs holds the output directory of every format
	Dirs    map[encoding.Format]string
	Parquet parquet.Options
}

// FromConfig derives the pipeline configuration from a loaded config file.
func FromConfig(c *config.Config) (Config, error) {
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	formats, err := c.ParsedFormats()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Columns:   append([]string(nil), c.Columns...),
		Formats:   formats,
		SourceDir: c.Source.Dir,
		SourceExt: c.Source.Ext,
		Dirs:      c.Dirs(),
		Parquet: parquet.Options{
			Compression:      c.Parquet.Compression,
			EnableDictionary: c.Parquet.EnableDictionary,
			EnableStats:      c.Parquet.EnableStats,
		},
	}, nil
}

// Validate checks the column list, the formats and their directories.
func (c Config) Validate() error {
	if len(c.Columns) == 0 {
		return errors.New(errors.ErrorTypeValidation, "at least one column is required")
	}
	if len(c.Formats) == 0 {
		return errors.New(errors.ErrorTypeValidation, "at least one format is required")
	}
	if c.SourceExt == "" {
		return errors.New(errors.ErrorTypeValidation, "source extension is required")
	}
	for _, f := range c.Formats {
		if !f.Valid() {
			return errors.Newf(errors.ErrorTypeValidation, "unknown format %q", f)
		}
		if c.Dirs[f] == "" {
			return errors.Newf(errors.ErrorTypeValidation, "no output directory for format %s", f)
		}
	}
	return nil
}
