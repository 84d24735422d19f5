package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/encoding/hdf5"
	"github.com/appINPP/root2data/pkg/encoding/parquet"
	"github.com/appINPP/root2data/pkg/encoding/sqlite"
	"github.com/appINPP/root2data/pkg/inspect"
	"github.com/appINPP/root2data/pkg/logger"
)

func inspectCmd(v *viper.Viper) *cobra.Command {
	var (
		table    string
		limit    int
		asJSON   bool
		describe bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Print the contents of an HDF5, SQLite or Parquet artifact",
		Long: `Print an artifact as an aligned table, as JSON lines (--json) or as a
per-column summary (--describe). The format follows the file extension.

Example:
  root2data inspect data/sqlite/run1.db --limit 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, false)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			path := args[0]
			f, err := formatOf(path)
			if err != nil {
				return err
			}

			var tables []*inspect.Table
			switch f {
			case encoding.FormatHDF5:
				if table != "" {
					t, err := hdf5.ReadGroup(path, table)
					if err != nil {
						return err
					}
					tables = []*inspect.Table{t}
				} else if tables, err = hdf5.Read(path); err != nil {
					return err
				}
			case encoding.FormatSQLite:
				t, err := sqlite.Read(cmd.Context(), path, table, log)
				if err != nil {
					return err
				}
				tables = []*inspect.Table{t}
			case encoding.FormatParquet:
				t, err := parquet.Read(cmd.Context(), path)
				if err != nil {
					return err
				}
				tables = []*inspect.Table{t}
			}

			for i, t := range tables {
				if i > 0 && !asJSON {
					fmt.Println()
				}
				switch {
				case describe:
					err = inspect.RenderDescribe(os.Stdout, t)
				case asJSON:
					err = inspect.RenderJSON(os.Stdout, t)
				default:
					err = inspect.Render(os.Stdout, t, limit)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "SQLite table or HDF5 group (default: derived from the file name)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Rows to print; 0 prints every row")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON lines instead of a table")
	cmd.Flags().BoolVar(&describe, "describe", false, "Print a per-column summary")
	return cmd
}

func tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables <artifact>",
		Short: "List the tables or groups of an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := formatOf(path)
			if err != nil {
				return err
			}

			var names []string
			switch f {
			case encoding.FormatSQLite:
				if names, err = sqlite.Tables(cmd.Context(), path); err != nil {
					return err
				}
			case encoding.FormatHDF5:
				tables, err := hdf5.Read(path)
				if err != nil {
					return err
				}
				for _, t := range tables {
					names = append(names, t.Name)
				}
			case encoding.FormatParquet:
				t, err := parquet.Read(cmd.Context(), path)
				if err != nil {
					return err
				}
				names = []string{t.Name}
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}
