package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appINPP/root2data/pkg/config"
	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/errors"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a,b", "c"}))
	assert.Equal(t, []string{"x", "y"}, splitList([]string{"x y"}))
	assert.Nil(t, splitList(nil))
}

func TestLoadConfig_FlagsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "root2data.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
columns: [eventNumber]
formats: [h5]
source:
  dir: /data/root
`), 0o644))

	v := viper.New()
	v.Set("config", path)
	v.Set("formats", []string{"sqlite,parquet"})
	v.Set("sqlite-dir", "/tmp/out")

	cfg, err := loadConfig(v, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"eventNumber"}, cfg.Columns)
	assert.Equal(t, []string{"sqlite", "parquet"}, cfg.Formats)
	assert.Equal(t, "/data/root", cfg.Source.Dir)
	assert.Equal(t, "/tmp/out", cfg.Output.SQLiteDir)
	assert.Equal(t, ".root", cfg.Source.Ext)
}

func TestLoadConfig_RequiresColumns(t *testing.T) {
	_, err := loadConfig(viper.New(), true)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	cfg, err := loadConfig(viper.New(), false)
	require.NoError(t, err)
	assert.Empty(t, cfg.Columns)
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "root2data.yaml")
	v := viper.New()
	v.Set("columns", []string{"eventNumber,digitX"})
	v.Set("parquet-compression", "zstd")

	require.NoError(t, initConfig(v, path, false))
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"eventNumber", "digitX"}, cfg.Columns)
	assert.Equal(t, "zstd", cfg.Parquet.Compression)
	assert.NoError(t, cfg.Validate())

	err = initConfig(viper.New(), path, false)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	require.NoError(t, initConfig(viper.New(), path, true))
	cfg, err = config.LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Columns)
}

func TestFormatOf(t *testing.T) {
	f, err := formatOf("run1.parquet")
	require.NoError(t, err)
	assert.Equal(t, encoding.FormatParquet, f)

	_, err = formatOf("run1.csv")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
