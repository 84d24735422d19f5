package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/appINPP/root2data/pkg/config"
)

const defaultConfigFile = "root2data.yaml"

func configCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	cmd.AddCommand(configInitCmd(v))
	return cmd
}

func configInitCmd(v *viper.Viper) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file to start from",
		Long: `Write the default configuration, with any flags or ROOT2DATA_* variables
applied, as YAML. The file defaults to ` + defaultConfigFile + `.

Example:
  root2data config init --columns eventNumber,digitX --formats parquet`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			return initConfig(v, path, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")
	return cmd
}

func initConfig(v *viper.Viper, path string, force bool) error {
	cfg, err := loadConfig(v, false)
	if err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := config.Save(path, cfg, force); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
