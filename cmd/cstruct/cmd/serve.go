/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/cstruct/pkg/api"
	"github.com/ssargent/cstruct/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the cstruct REST API server. Layouts come from the schema file;
records and journal entries are kept under the data directory.

An API key of "auto" is replaced by a generated key that is logged once.
Pass --api-key="" to serve without authentication.

Examples:
  cstruct serve --schema ./layouts.yaml --port 8080
  cstruct serve --config ./cstruct.yaml --api-key=mysecretkey`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		applyServeFlags(cmd, s.cfg)

		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}

		apiKey, err := resolveAPIKey(s.cfg.Security.APIKey)
		if err != nil {
			return err
		}
		if apiKey != s.cfg.Security.APIKey {
			s.logger.Info("generated API key", "key", apiKey)
		}
		if apiKey == "" {
			s.logger.Warn("serving without authentication")
		}

		reg, err := s.layouts()
		if err != nil {
			return err
		}
		journal, err := s.openJournal()
		if err != nil {
			return err
		}
		defer journal.Close()
		records, err := s.openRecords()
		if err != nil {
			return err
		}
		defer records.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps := api.Deps{
			Layouts: reg,
			Records: records,
			Journal: journal,
			Logger:  s.logger.WithPrefix("api"),
		}
		serverConfig := api.ServerConfig{
			Port:   s.cfg.Port,
			Bind:   s.cfg.Bind,
			APIKey: apiKey,
		}

		s.logger.Info("starting server", "addr", serverConfig.Addr(), "layouts", len(reg.Names()), "data_dir", s.cfg.DataDir)
		starter := container.GetServerFactory().CreateServerStarter()
		if err := starter.StartServer(ctx, deps, serverConfig); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key for authentication")
}

// applyServeFlags overrides the config with serve flags that were set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind, _ = cmd.Flags().GetString("bind")
	}
	if cmd.Flags().Changed("api-key") {
		cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
	}
}

// resolveAPIKey replaces the "auto" placeholder with a fresh key.
func resolveAPIKey(key string) (string, error) {
	if key != "auto" {
		return key, nil
	}
	generated, err := config.GenerateSecureKey(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return generated, nil
}
