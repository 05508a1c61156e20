package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/arcward/infobot/infobot"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database and the default runtime configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.DatabaseType == "" {
			return errors.New(
				"environment variable IB_DATABASE_TYPE not set (must be one of: sqlite, postgres)",
			)
		}
		if cfg.Database == "" {
			return errors.New(
				"environment variable IB_DATABASE not set (must be a valid " +
					"database connection string or sqlite file path)",
			)
		}

		// Run database migrations
		db, closeDB, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		state, created, err := infobot.LoadRuntimeConfig(ctx, db)
		if err != nil {
			return fmt.Errorf("error loading runtime config: %w", err)
		}

		out := cmd.OutOrStdout()
		if created {
			fmt.Fprintln(out, "Created the default runtime configuration.")
		} else {
			fmt.Fprintf(
				out,
				"Runtime configuration already exists (last updated %s).\n",
				time.UnixMilli(state.UpdatedAt).UTC().Format(time.RFC3339),
			)
		}

		fmt.Fprintln(
			out,
			"Initialization complete. You can now start the bot with the 'run' subcommand.",
		)
		return nil
	},
}

// openDatabase connects to (and migrates) the configured database. The
// returned func closes the connection.
func openDatabase(ctx context.Context) (infobot.DBI, func(), error) {
	gdb, err := infobot.CreateDB(ctx, cfg.DatabaseType, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating database: %w", err)
	}
	closeDB := func() {
		if sqlDB, e := gdb.DB(); e == nil {
			_ = sqlDB.Close()
		}
	}
	db := infobot.NewDatabase(
		gdb,
		cliLogger(cfg.DatabaseLogLevel),
		cfg.DatabaseType == "postgres",
	)
	return db, closeDB, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// cliLogger writes to stderr, leaving stdout for command output
func cliLogger(level *slog.LevelVar) *slog.Logger {
	var leveler slog.Leveler = slog.LevelInfo
	if level != nil {
		leveler = level
	}
	return slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{Level: leveler}),
	)
}
