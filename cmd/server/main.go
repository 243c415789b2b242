// Command server runs the innovation records API and its operator tasks.
//
//	server serve                      start the HTTP API
//	server migrate up|down N|version  manage the schema
//	server staff add|import|list      maintain the staff directory
//
// Configuration comes from INNOVATION_* environment variables, an optional
// .env file and the file named by --config.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/innovation-records/internal/config"
	"github.com/sakif/innovation-records/internal/server"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Innovation records API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger.Debug("configuration loaded", slog.String("config", cfg.String()))

		srv, err := server.New(cfg, logger)
		if err != nil {
			return err
		}
		return srv.Start()
	},
}

// load reads the configuration and builds the logger it describes.
func load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Log.NewLogger(os.Stdout)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func ensureDBDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.AddCommand(serveCmd, migrateCmd, staffCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
