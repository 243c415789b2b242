package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sakif/innovation-records/internal/config"
	sqliteRepo "github.com/sakif/innovation-records/internal/repository/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sqliteRepo.DB) error {
			if err := db.MigrateUp(); err != nil {
				return err
			}
			return printVersion(cmd, db)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down N",
	Short: "Roll back the last N migrations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := strconv.Atoi(args[0])
		if err != nil || steps <= 0 {
			return fmt.Errorf("N must be a positive integer, got %q", args[0])
		}
		return withDB(func(db *sqliteRepo.DB) error {
			if err := db.MigrateDown(steps); err != nil {
				return err
			}
			return printVersion(cmd, db)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sqliteRepo.DB) error {
			return printVersion(cmd, db)
		})
	},
}

func printVersion(cmd *cobra.Command, db *sqliteRepo.DB) error {
	v, dirty, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", v)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
	return nil
}

// withDB opens the configured database without migrating it and closes it
// when fn returns.
func withDB(fn func(db *sqliteRepo.DB) error) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return err
	}
	db, err := sqliteRepo.Connect(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}
