/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ssargent/cstruct/pkg/config"
	"github.com/ssargent/cstruct/pkg/di"
	"github.com/ssargent/cstruct/pkg/logging"
	"github.com/ssargent/cstruct/pkg/schema"
	"github.com/ssargent/cstruct/pkg/storage"
	"github.com/ssargent/cstruct/pkg/store"
)

// Layout of the data directory
const (
	JournalDir = "journal"
	RecordsDir = "records"
)

var container *di.Container

// SetContainer injects the dependency container used by serve
func SetContainer(c *di.Container) {
	container = c
}

type settingsKey struct{}

// settings is what every subcommand works from once flags and the config
// file are merged.
type settings struct {
	cfg        *config.Config
	configPath string
	logger     *log.Logger
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cstruct",
	Short: "cstruct - declarative binary record layouts",
	Long: `cstruct decodes and encodes binary records described by a YAML
layout schema, and keeps encoded records in a journal or a keyed store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), settingsKey{}, s))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default is ~/.config/cstruct/config.yaml)")
	rootCmd.PersistentFlags().StringP("schema", "s", "", "Layout schema file")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the journal and the record store")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

// loadSettings reads the config file when there is one and applies the
// persistent flags over it.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	configPath, _ := cmd.Flags().GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if explicit && cmd.Name() != "init" {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if v, _ := cmd.Flags().GetString("schema"); v != "" {
		cfg.SchemaPath = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}

	logger, err := logging.NewWithWriter(cmd.ErrOrStderr(), "cstruct", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return &settings{cfg: cfg, configPath: configPath, logger: logger}, nil
}

func settingsFrom(cmd *cobra.Command) (*settings, error) {
	s, ok := cmd.Context().Value(settingsKey{}).(*settings)
	if !ok {
		return nil, fmt.Errorf("settings not found in context")
	}
	return s, nil
}

// layouts loads the schema named by the settings.
func (s *settings) layouts() (*schema.Registry, error) {
	reg, err := schema.LoadFile(s.cfg.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", s.cfg.SchemaPath, err)
	}
	return reg, nil
}

// openJournal opens the journal under the data directory.
func (s *settings) openJournal() (*store.Journal, error) {
	j, err := store.NewJournal(store.JournalConfig{
		DataDir:       filepath.Join(s.cfg.DataDir, JournalDir),
		FsyncInterval: s.cfg.Storage.FsyncInterval,
		Logger:        s.logger.WithPrefix("journal"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}
	recovery, err := j.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if recovery.EntriesTruncated > 0 {
		s.logger.Warn("recovered journal", "truncated", recovery.EntriesTruncated)
	}
	return j, nil
}

// openRecords opens the keyed record store under the data directory.
func (s *settings) openRecords() (*storage.DefaultStorage, error) {
	path := filepath.Join(s.cfg.DataDir, RecordsDir)
	if err := os.MkdirAll(s.cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	db, err := storage.NewDefaultStorage(path, s.cfg.Storage.SyncWrites)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	return db, nil
}
