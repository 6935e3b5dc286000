/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/cstruct/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration",
	Long: `Write a configuration file with a generated API key.

The file records the schema path, the data directory and the server
settings used by the other commands.

Examples:
  cstruct init
  cstruct init --config ./cstruct.yaml --schema ./layouts.yaml --data-dir ./data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := initializeConfig(s.configPath, s.cfg.DataDir, s.cfg.SchemaPath, force)
		if err != nil {
			return err
		}

		cmd.Printf("Configuration written to %s\n", s.configPath)
		cmd.Printf("Schema: %s\n", cfg.SchemaPath)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		cmd.Printf("API key: %s\n", cfg.Security.APIKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
}

// initializeConfig bootstraps a config file unless one exists.
func initializeConfig(configPath, dataDir, schemaPath string, force bool) (*config.Config, error) {
	if config.ConfigExists(configPath) && !force {
		return nil, fmt.Errorf("config already exists at %s, use --force to overwrite", configPath)
	}
	cfg, err := config.BootstrapConfig(configPath, dataDir, schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap config: %w", err)
	}
	return cfg, nil
}
