// Package config loads and validates root2data run configuration.
//
// # Usage
//
//	cfg, err := config.LoadFile("root2data.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// # Environment Variable Substitution
//
// Any ${VAR_NAME} in the YAML file is replaced with the variable's value
// before parsing; unset variables become empty strings.
//
//	output:
//	  parquet_dir: ${DATA_ROOT}/parquet
//
// # Example File
//
//	columns: [eventNumber, digitX, digitY]
//	formats: [h5, sqlite, parquet]
//	source:
//	  dir: data/root
//	  ext: .root
//	output:
//	  h5_dir: data/h5
//	  sqlite_dir: data/sqlite
//	  parquet_dir: data/parquet
//	parquet:
//	  compression: snappy
//	  enable_dictionary: true
//	  enable_stats: true
//	logging:
//	  level: info
//	  encoding: console
//	observability:
//	  metrics_file: metrics.prom
//	  trace_file: traces.json
package config
