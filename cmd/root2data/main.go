package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/appINPP/root2data/internal/pipeline"
	"github.com/appINPP/root2data/pkg/config"
	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/logger"
	"github.com/appINPP/root2data/pkg/metrics"
	"github.com/appINPP/root2data/pkg/observability"
)

var version = "0.1.0"

func main() {
	v := viper.New()
	v.SetEnvPrefix("ROOT2DATA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "root2data",
		Short: "Convert ROOT trees to HDF5, SQLite and Parquet",
		Long: `root2data extracts selected branches from ROOT files and writes one
artifact per file and format. Ragged branches are normalized to
variable-length float64 rows.

Every flag can also be set through the environment, e.g. ROOT2DATA_COLUMNS
or ROOT2DATA_SOURCE_DIR, or through a YAML file given with --config.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML configuration file")
	pf.StringSlice("columns", nil, "Branch names to extract, in output order")
	pf.StringSlice("formats", nil, "Formats to produce (h5, sqlite, parquet)")
	pf.String("source-dir", "", "Directory holding the ROOT files")
	pf.String("source-ext", "", "Extension of source files")
	pf.String("h5-dir", "", "Output directory for HDF5 artifacts")
	pf.String("sqlite-dir", "", "Output directory for SQLite artifacts")
	pf.String("parquet-dir", "", "Output directory for Parquet artifacts")
	pf.String("parquet-compression", "", "Parquet codec (snappy, zstd, gzip, brotli, lz4, none)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log encoding (console or json)")
	pf.String("metrics-file", "", "Write Prometheus metrics to this file after a run")
	pf.String("trace-file", "", "Append trace spans as JSON to this file")
	_ = v.BindPFlags(pf)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("root2data v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(
		convertCmd(v),
		scanCmd(v),
		watchCmd(v),
		inspectCmd(v),
		tablesCmd(),
		configCmd(v),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func convertCmd(v *viper.Viper) *cobra.Command {
	var cpuProfile, memProfile string

	cmd := &cobra.Command{
		Use:   "convert [file.root ...]",
		Short: "Convert new source files, or the given ones",
		Long: `Without arguments, convert every file of the source directory that has no
artifact yet in a format's output directory. With arguments, convert exactly
those files to every configured format, replacing what exists.

Example:
  root2data convert --columns eventNumber,digitX --formats h5,parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, v)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			stopProfiling, err := startProfiling(cpuProfile, memProfile, a.log)
			if err != nil {
				return err
			}
			defer stopProfiling()

			var plan pipeline.Plan
			if len(args) > 0 {
				plan = pipeline.FilePlan(args, a.pcfg.Formats)
			} else {
				plan, err = pipeline.Scan(a.pcfg.SourceDir, a.pcfg.SourceExt, a.pcfg.Dirs, a.pcfg.Formats)
				if err != nil {
					return err
				}
			}
			if plan.Empty() {
				a.log.Info("nothing to convert", zap.String("source_dir", a.pcfg.SourceDir))
				return nil
			}

			summary, err := a.conv.Run(ctx, plan)
			if summary != nil {
				fmt.Printf("converted %d, skipped %d, failed %d in %s\n",
					summary.Converted, summary.Skipped, summary.Failed, summary.Elapsed.Round(time.Millisecond))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")
	cmd.Flags().StringVar(&memProfile, "memprofile", "", "Write a heap profile to this file after the run")
	return cmd
}

func scanCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List source files that still need converting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, false)
			if err != nil {
				return err
			}
			formats, err := cfg.ParsedFormats()
			if err != nil {
				return err
			}
			plan, err := pipeline.Scan(cfg.Source.Dir, cfg.Source.Ext, cfg.Dirs(), formats)
			if err != nil {
				return err
			}
			for _, job := range plan.Jobs() {
				names := make([]string, len(job.Formats))
				for i, f := range job.Formats {
					names[i] = f.String()
				}
				fmt.Printf("%s\t%s\n", job.Path, strings.Join(names, ","))
			}
			return nil
		},
	}
}

func watchCmd(v *viper.Viper) *cobra.Command {
	var debounce time.Duration
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert new source files as they appear",
		Long: `Watch the source directory and convert every new or changed file once
writes have settled. A cron schedule adds periodic rescans.

Example:
  root2data watch --columns eventNumber,digitX --schedule "@every 10m"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, v)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			w := pipeline.NewWatcher(a.conv, pipeline.WatchOptions{
				Debounce: debounce,
				Schedule: schedule,
				OnRun: func(*pipeline.Summary, error) {
					a.writeMetrics()
				},
			})
			return w.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period after a change before converting")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron spec for periodic rescans, e.g. \"@every 10m\"")
	return cmd
}

// app bundles what the converting commands share.
type app struct {
	cfg     *config.Config
	pcfg    pipeline.Config
	log     *zap.Logger
	metrics *metrics.Collector
	tracing *observability.Tracing
	conv    *pipeline.Converter
}

func newApp(ctx context.Context, v *viper.Viper) (*app, error) {
	cfg, err := loadConfig(v, true)
	if err != nil {
		return nil, err
	}
	pcfg, err := pipeline.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "logger")
	}

	tracing, err := observability.Init(ctx, observability.TracingConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: version,
		File:           cfg.Observability.TraceFile,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "tracing")
	}

	m := metrics.NewCollector()
	conv, err := pipeline.NewConverter(pcfg,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(m),
		pipeline.WithTracing(tracing))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, pcfg: pcfg, log: log, metrics: m, tracing: tracing, conv: conv}, nil
}

func (a *app) writeMetrics() {
	path := a.cfg.Observability.MetricsFile
	if path == "" {
		return
	}
	if err := a.metrics.WriteToTextfile(path); err != nil {
		a.log.Warn("failed to write metrics", zap.String("path", path), zap.Error(err))
	}
}

func (a *app) close(ctx context.Context) {
	a.writeMetrics()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.tracing.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("failed to flush traces", zap.Error(err))
	}
	_ = a.log.Sync()
}

// loadConfig starts from the defaults or the --config file and lays explicit
// flags and ROOT2DATA_* variables over it.
func loadConfig(v *viper.Viper, needColumns bool) (*config.Config, error) {
	cfg := config.Default()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeConfig, "load %s", path)
		}
		cfg = loaded
	}

	if v.IsSet("columns") {
		cfg.Columns = splitList(v.GetStringSlice("columns"))
	}
	if v.IsSet("formats") {
		cfg.Formats = splitList(v.GetStringSlice("formats"))
	}
	setString(v, "source-dir", &cfg.Source.Dir)
	setString(v, "source-ext", &cfg.Source.Ext)
	setString(v, "h5-dir", &cfg.Output.HDF5Dir)
	setString(v, "sqlite-dir", &cfg.Output.SQLiteDir)
	setString(v, "parquet-dir", &cfg.Output.ParquetDir)
	setString(v, "parquet-compression", &cfg.Parquet.Compression)
	setString(v, "log-level", &cfg.Logging.Level)
	setString(v, "log-format", &cfg.Logging.Encoding)
	setString(v, "metrics-file", &cfg.Observability.MetricsFile)
	setString(v, "trace-file", &cfg.Observability.TraceFile)

	if needColumns {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
}

// splitList accepts both repeated flags and comma or space separated values.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, part)
		}
	}
	return out
}

// formatOf resolves an artifact's format or fails with a config error.
func formatOf(path string) (encoding.Format, error) {
	f, ok := encoding.FormatOf(path)
	if !ok {
		return "", errors.Newf(errors.ErrorTypeConfig, "cannot tell the format of %s from its extension", path)
	}
	return f, nil
}
