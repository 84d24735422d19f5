// Package root2data converts the trees of CERN ROOT files into HDF5, SQLite
// and Parquet artifacts for analysis outside the ROOT ecosystem.
//
// For every source file the configured branches are extracted, normalized
// and written once per requested format. Branches of a fixed element type
// keep it; ragged branches (one variable-length sequence per entry) become
// variable-length float64 rows.
//
// # Architecture
//
// The conversion is split into small packages:
//
//   - source and source/rootfile list the trees of a ROOT file and read the
//     requested branches with groot.
//   - normalize turns every raw branch into a column.Uniform or a
//     column.Ragged, collected in a column.RowSet.
//   - encoding/hdf5, encoding/sqlite and encoding/parquet write a RowSet to
//     one artifact each and read artifacts back for inspection.
//   - internal/pipeline scans the source directory for unconverted files,
//     drives the encoders and watches the directory for new files.
//
// # Quick Start
//
// Convert every new file of data/root to all three formats:
//
//	root2data convert --columns eventNumber,digitX
//
// Inspect the result:
//
//	root2data inspect data/sqlite/run1.db --limit 5
//	root2data inspect data/h5/run1.h5 --describe
//
// # Configuration
//
// Settings come from a YAML file (--config), from ROOT2DATA_* environment
// variables and from flags, later sources overriding earlier ones. See
// pkg/config for every key.
//
// # Observability
//
// Logs are structured (zap). A run can write Prometheus metrics to a text
// file (--metrics-file) and OpenTelemetry spans as JSON (--trace-file).
package root2data
